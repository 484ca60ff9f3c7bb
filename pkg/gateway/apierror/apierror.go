package apierror

import (
	"context"
	"errors"
	"net/http"

	"github.com/vango-go/vai-copilot/pkg/core"
	"github.com/vango-go/vai-copilot/pkg/gateway/mw"
)

// FromError maps err to the JSON error body and HTTP status served by the
// plain HTTP routes.
func FromError(err error, requestID string) (mw.ErrorBody, int) {
	if err == nil {
		return mw.ErrorBody{}, http.StatusOK
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return mw.ErrorBody{Type: "timeout_error", Message: "request timeout", RequestID: requestID}, http.StatusGatewayTimeout
	}
	if errors.Is(err, context.Canceled) {
		return mw.ErrorBody{Type: "cancelled", Message: "request cancelled", RequestID: requestID}, http.StatusRequestTimeout
	}

	var coreErr *core.Error
	if errors.As(err, &coreErr) && coreErr != nil {
		return mw.ErrorBody{
			Type:      string(coreErr.Type),
			Message:   coreErr.Message,
			RequestID: requestID,
		}, statusFromType(coreErr.Type)
	}

	// Do not leak details of unknown errors.
	return mw.ErrorBody{Type: "internal_error", Message: "internal error", RequestID: requestID}, http.StatusInternalServerError
}

// Write serves err via FromError.
func Write(w http.ResponseWriter, err error, requestID string) {
	body, status := FromError(err, requestID)
	mw.WriteJSONError(w, status, body)
}

func statusFromType(t core.ErrorType) int {
	switch t {
	case core.ErrInvalidRequest:
		return http.StatusBadRequest
	case core.ErrAuthentication:
		return http.StatusUnauthorized
	case core.ErrNoActiveSession:
		return http.StatusConflict
	case core.ErrPlatformUnsupported:
		return http.StatusNotImplemented
	case core.ErrChannel:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
