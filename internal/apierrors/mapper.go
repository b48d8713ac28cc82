package apierrors

import (
	"errors"
	"net/http"

	"q-pipecat/internal/agent"
	"q-pipecat/internal/dialin/processor"
)

// MapError converts provisioning errors to APIErrors.
//
// Provisioning failures keep the full error text as the detail so that the
// telephony vendor's webhook log shows which room or call failed. Unknown
// errors are sanitized.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, processor.ErrInvalidRequest):
		return &APIError{StatusCode: http.StatusBadRequest, Code: CodeInvalidRequest, Message: err.Error(), Err: err}

	case errors.Is(err, processor.ErrRoomUnavailable):
		return BadGateway(CodeRoomUnavailable, err.Error(), err)

	case errors.Is(err, processor.ErrProvisioningFailed):
		return BadGateway(CodeProvisioningFailed, err.Error(), err)

	case errors.Is(err, processor.ErrAgentSpawnFailed) && errors.Is(err, agent.ErrCapacity):
		return ServiceUnavailable(CodeAgentCapacity, err.Error(), err)

	case errors.Is(err, processor.ErrAgentSpawnFailed):
		return &APIError{StatusCode: http.StatusInternalServerError, Code: CodeAgentSpawnFailed, Message: err.Error(), Err: err}
	}

	return InternalError(err)
}

// MapLegacyError maps provisioning failures to 500, matching vendor
// integrations built against the single-status behavior. The detail message is
// unchanged. Errors raised before provisioning, such as a rejected signature or
// a rate limit, keep their status.
func MapLegacyError(err error) *APIError {
	apiErr := MapError(err)
	if apiErr == nil || !isProvisioningError(err) {
		return apiErr
	}
	legacy := *apiErr
	legacy.StatusCode = http.StatusInternalServerError
	return &legacy
}

func isProvisioningError(err error) bool {
	return errors.Is(err, processor.ErrInvalidRequest) ||
		errors.Is(err, processor.ErrRoomUnavailable) ||
		errors.Is(err, processor.ErrProvisioningFailed) ||
		errors.Is(err, processor.ErrAgentSpawnFailed)
}
