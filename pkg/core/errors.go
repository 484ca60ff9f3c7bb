package core

import (
	"errors"
	"fmt"
)

// Error is the structured error shared by the engine and its collaborators.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    string    `json:"code,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorType categorizes errors.
type ErrorType string

const (
	ErrInvalidRequest      ErrorType = "invalid_request_error"
	ErrPlatformUnsupported ErrorType = "platform_unsupported"
	ErrAuthentication      ErrorType = "authentication_error"
	ErrChannel             ErrorType = "channel_error"
	ErrNoActiveSession     ErrorType = "no_active_session"
	ErrCaptureProcess      ErrorType = "capture_process_error"
)

// NewInvalidRequestError creates an invalid request error.
func NewInvalidRequestError(message string) *Error {
	return &Error{
		Type:    ErrInvalidRequest,
		Message: message,
	}
}

// NewPlatformUnsupportedError reports a capability missing on the host OS.
func NewPlatformUnsupportedError(message string) *Error {
	return &Error{
		Type:    ErrPlatformUnsupported,
		Message: message,
	}
}

// NewAuthenticationError creates an authentication error.
func NewAuthenticationError(message string, cause error) *Error {
	return &Error{
		Type:    ErrAuthentication,
		Message: message,
		Cause:   cause,
	}
}

// NewChannelError wraps an upstream connect or runtime failure.
func NewChannelError(message string, cause error) *Error {
	return &Error{
		Type:    ErrChannel,
		Message: message,
		Cause:   cause,
	}
}

// NewNoActiveSessionError creates the error returned by sends while not live.
func NewNoActiveSessionError() *Error {
	return &Error{
		Type:    ErrNoActiveSession,
		Message: "no active session",
	}
}

// NewCaptureProcessError wraps a capture helper crash or unexpected exit.
func NewCaptureProcessError(message string, cause error) *Error {
	return &Error{
		Type:    ErrCaptureProcess,
		Message: message,
		Cause:   cause,
	}
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsType reports whether err is (or wraps) a *Error of the given type.
func IsType(err error, t ErrorType) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Type == t
	}
	return false
}
