package capture

import "context"

// Handle identifies one running capture process.
type Handle interface {
	PID() int
}

// Process starts and stops the capture helper.
//
// Start spawns the helper and returns once it is running. onChunk receives
// mono PCM in arrival order, always from a single goroutine. onExit is called
// at most once, when the helper ends without a matching Stop; err is nil for
// a clean exit.
//
// Stop terminates the helper and returns after its output has been fully
// consumed. No onChunk call happens after Stop returns.
type Process interface {
	Start(ctx context.Context, onChunk func([]byte), onExit func(error)) (Handle, error)
	Stop(h Handle) error
}
