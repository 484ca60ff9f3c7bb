package apierror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vango-go/vai-copilot/pkg/core"
)

func TestFromError_ContextCanceled_Is408Cancelled(t *testing.T) {
	body, status := FromError(context.Canceled, "req_test")
	if status != http.StatusRequestTimeout {
		t.Fatalf("status=%d", status)
	}
	if body.Type != "cancelled" {
		t.Fatalf("type=%q", body.Type)
	}
	if body.RequestID != "req_test" {
		t.Fatalf("request_id=%q", body.RequestID)
	}
}

func TestFromError_WrappedCoreError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{core.NewInvalidRequestError("bad"), http.StatusBadRequest},
		{core.NewAuthenticationError("no token", nil), http.StatusUnauthorized},
		{core.NewNoActiveSessionError(), http.StatusConflict},
		{core.NewPlatformUnsupportedError("linux"), http.StatusNotImplemented},
		{core.NewChannelError("closed", nil), http.StatusBadGateway},
		{core.NewCaptureProcessError("exited", nil), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		body, status := FromError(fmt.Errorf("wrapped: %w", tt.err), "")
		if status != tt.status {
			t.Fatalf("%v: status=%d, want %d", tt.err, status, tt.status)
		}
		var ce *core.Error
		errors.As(tt.err, &ce)
		if body.Type != string(ce.Type) || body.Message != ce.Message {
			t.Fatalf("%v: body=%+v", tt.err, body)
		}
	}
}

func TestWrite_UnknownErrorHidesDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	Write(rr, errors.New("disk on fire"), "req_1")

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rr.Code)
	}
	got := rr.Body.String()
	if strings.Contains(got, "disk on fire") {
		t.Fatalf("leaked error detail: %s", got)
	}
	if !strings.Contains(got, `"request_id":"req_1"`) {
		t.Fatalf("missing request id: %s", got)
	}
}
