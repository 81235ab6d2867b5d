package serviceapi

import (
	"context"
	"time"

	"github.com/smilemakc/mbflow/pkg/models"
)

// CredentialInfo is the credential shape exposed to Service API callers -
// it never carries decrypted values, only the set of field names stored.
type CredentialInfo struct {
	ID             string
	Name           string
	Description    string
	Status         string
	CredentialType string
	Provider       string
	ExpiresAt      *time.Time
	LastUsedAt     *time.Time
	UsageCount     int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Fields         []string
}

func toCredentialInfo(cred *models.CredentialsResource) *CredentialInfo {
	fields := make([]string, 0, len(cred.EncryptedData))
	for k := range cred.EncryptedData {
		fields = append(fields, k)
	}

	return &CredentialInfo{
		ID:             cred.ID,
		Name:           cred.Name,
		Description:    cred.Description,
		Status:         string(cred.Status),
		CredentialType: string(cred.CredentialType),
		Provider:       cred.Provider,
		ExpiresAt:      cred.ExpiresAt,
		LastUsedAt:     cred.LastUsedAt,
		UsageCount:     cred.UsageCount,
		CreatedAt:      cred.CreatedAt,
		UpdatedAt:      cred.UpdatedAt,
		Fields:         fields,
	}
}

// ListCredentialsParams contains parameters for listing credentials.
type ListCredentialsParams struct {
	UserID   string
	Provider string
}

// ListCredentialsResult contains the result of listing credentials.
type ListCredentialsResult struct {
	Credentials []*CredentialInfo
}

func (o *Operations) ListCredentials(ctx context.Context, params ListCredentialsParams) (*ListCredentialsResult, error) {
	if params.UserID == "" {
		return nil, NewValidationError("USER_ID_REQUIRED", "user_id is required")
	}

	var credentials []*models.CredentialsResource
	var err error

	if params.Provider != "" {
		credentials, err = o.CredentialsRepo.GetCredentialsByProvider(ctx, params.UserID, params.Provider)
	} else {
		credentials, err = o.CredentialsRepo.GetCredentialsByOwner(ctx, params.UserID)
	}
	if err != nil {
		o.Logger.Error("Failed to list credentials", "error", err, "user_id", params.UserID)
		return nil, err
	}

	result := make([]*CredentialInfo, len(credentials))
	for i, cred := range credentials {
		result[i] = toCredentialInfo(cred)
	}

	return &ListCredentialsResult{Credentials: result}, nil
}

// CreateCredentialParams contains parameters for creating a credential.
type CreateCredentialParams struct {
	UserID         string
	Name           string
	Description    string
	CredentialType string
	Provider       string
	Data           map[string]string
}

func (o *Operations) CreateCredential(ctx context.Context, params CreateCredentialParams) (*CredentialInfo, error) {
	if params.Name == "" {
		return nil, NewValidationError("NAME_REQUIRED", "name is required")
	}

	credType := models.CredentialType(params.CredentialType)
	if !models.IsValidCredentialType(credType) {
		return nil, NewValidationError("INVALID_CREDENTIAL_TYPE", "invalid credential_type")
	}

	encryptedData, err := o.EncryptionSvc.EncryptMap(params.Data)
	if err != nil {
		o.Logger.Error("Failed to encrypt credential data", "error", err, "user_id", params.UserID)
		return nil, err
	}

	cred := models.NewCredentialsResource(params.UserID, params.Name, credType)
	cred.Description = params.Description
	cred.Provider = params.Provider
	cred.EncryptedData = encryptedData

	if err := o.CredentialsRepo.CreateCredentials(ctx, cred); err != nil {
		o.Logger.Error("Failed to create credential", "error", err, "user_id", params.UserID)
		return nil, err
	}

	return toCredentialInfo(cred), nil
}

// UpdateCredentialParams contains parameters for updating a credential.
type UpdateCredentialParams struct {
	CredentialID string
	Name         string
	Description  string
}

func (o *Operations) UpdateCredential(ctx context.Context, params UpdateCredentialParams) (*CredentialInfo, error) {
	cred, err := o.CredentialsRepo.GetCredentials(ctx, params.CredentialID)
	if err != nil {
		o.Logger.Error("Failed to get credential", "error", err, "credential_id", params.CredentialID)
		return nil, err
	}

	if params.Name != "" {
		cred.Name = params.Name
	}
	cred.Description = params.Description
	cred.UpdatedAt = time.Now()

	if err := o.CredentialsRepo.UpdateCredentials(ctx, cred); err != nil {
		o.Logger.Error("Failed to update credential", "error", err, "credential_id", params.CredentialID)
		return nil, err
	}

	return toCredentialInfo(cred), nil
}

// DeleteCredentialParams contains parameters for deleting a credential.
type DeleteCredentialParams struct {
	CredentialID string
}

func (o *Operations) DeleteCredential(ctx context.Context, params DeleteCredentialParams) error {
	if _, err := o.CredentialsRepo.GetCredentials(ctx, params.CredentialID); err != nil {
		o.Logger.Error("Failed to get credential", "error", err, "credential_id", params.CredentialID)
		return err
	}

	if err := o.CredentialsRepo.DeleteCredentials(ctx, params.CredentialID); err != nil {
		o.Logger.Error("Failed to delete credential", "error", err, "credential_id", params.CredentialID)
		return err
	}

	return nil
}
