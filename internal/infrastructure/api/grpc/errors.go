package grpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/smilemakc/mbflow/internal/application/serviceapi"
	"github.com/smilemakc/mbflow/pkg/models"
)

// mapError translates a business-logic error into a gRPC status error.
// An *serviceapi.OperationError takes priority over the sentinel errors
// below since it already carries its own HTTP status.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var opErr *serviceapi.OperationError
	if errors.As(err, &opErr) {
		return status.Error(httpStatusToGRPCCode(opErr.HTTPStatus), opErr.Message)
	}

	switch {
	case errors.Is(err, models.ErrWorkflowNotFound):
		return status.Error(codes.NotFound, "workflow not found")
	case errors.Is(err, models.ErrExecutionNotFound):
		return status.Error(codes.NotFound, "execution not found")
	case errors.Is(err, models.ErrTriggerNotFound):
		return status.Error(codes.NotFound, "trigger not found")
	case errors.Is(err, models.ErrResourceNotFound):
		return status.Error(codes.NotFound, "resource not found")
	case errors.Is(err, models.ErrInvalidID):
		return status.Error(codes.InvalidArgument, "invalid ID format")
	case errors.Is(err, models.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "authentication required")
	case errors.Is(err, models.ErrForbidden):
		return status.Error(codes.PermissionDenied, "access denied")
	case errors.Is(err, models.ErrWorkflowExists):
		return status.Error(codes.AlreadyExists, "workflow already exists")
	case errors.Is(err, models.ErrValidationFailed):
		return status.Error(codes.InvalidArgument, "validation failed")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// httpStatusToGRPCCode maps an OperationError's HTTP status to the closest gRPC code.
func httpStatusToGRPCCode(httpStatus int) codes.Code {
	switch {
	case httpStatus >= 200 && httpStatus < 300:
		return codes.OK
	case httpStatus == 400:
		return codes.InvalidArgument
	case httpStatus == 401:
		return codes.Unauthenticated
	case httpStatus == 403:
		return codes.PermissionDenied
	case httpStatus == 404:
		return codes.NotFound
	case httpStatus == 409:
		return codes.AlreadyExists
	case httpStatus == 429:
		return codes.ResourceExhausted
	case httpStatus == 501:
		return codes.Unimplemented
	default:
		return codes.Internal
	}
}
