package serviceapi

import (
	"github.com/smilemakc/mbflow/internal/application/engine"
	"github.com/smilemakc/mbflow/internal/application/systemkey"
	"github.com/smilemakc/mbflow/internal/domain/repository"
	"github.com/smilemakc/mbflow/internal/infrastructure/logger"
	"github.com/smilemakc/mbflow/pkg/crypto"
	"github.com/smilemakc/mbflow/pkg/executor"
)

// Operations bundles the repositories and managers needed to serve the
// system-key-authenticated Service API. Both the gRPC server and the
// service-API REST operations methods are built on top of it.
type Operations struct {
	WorkflowRepo    repository.WorkflowRepository
	ExecutionRepo   repository.ExecutionRepository
	TriggerRepo     repository.TriggerRepository
	CredentialsRepo repository.CredentialsRepository
	ExecutionMgr    *engine.ExecutionManager
	ExecutorManager executor.Manager
	EncryptionSvc   *crypto.EncryptionService
	AuditService    *systemkey.AuditService
	Logger          *logger.Logger
}
