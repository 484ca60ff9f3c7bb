package live

import (
	"errors"

	"github.com/vango-go/vai-copilot/pkg/core"
)

// Result is the outcome of a command that never returns an error directly.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	// Type is the core error type when Success is false.
	Type core.ErrorType `json:"errorType,omitempty"`
}

func ok() Result { return Result{Success: true} }

func fail(err error) Result {
	r := Result{Error: err.Error()}
	var ce *core.Error
	if errors.As(err, &ce) {
		r.Type = ce.Type
		r.Error = ce.Message
	}
	return r
}
