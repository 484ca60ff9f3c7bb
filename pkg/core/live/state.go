package live

// State is the connection state of the engine.
type State int

const (
	// StateIdle is the initial state before any Initialize.
	StateIdle State = iota
	// StateConnecting is while the token is fetched and the channel dialed.
	StateConnecting
	// StateLive is when the channel is open and accepts sends.
	StateLive
	// StateClosing is while an explicit Close tears the channel down.
	StateClosing
	// StateClosed is after Close or after the upstream closed the channel.
	StateClosed
	// StateError is after a failed connect or a channel error.
	StateError
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateLive:
		return "LIVE"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
