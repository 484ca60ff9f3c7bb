// Package transcript assembles incremental transcription and response deltas
// from a live channel into per-turn text.
package transcript

import (
	"strings"
	"sync"
)

// Delta is the result of feeding one output fragment to the Aggregator.
type Delta struct {
	// IsFirst is true for the first output fragment since the last reset.
	IsFirst bool
	// Accumulated is the full output text of the current turn so far.
	Accumulated string
}

// Turn is a snapshot of both directions of the current turn.
type Turn struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Aggregator keeps one append-only buffer per direction for the current turn.
// Fragments are concatenated in arrival order without reordering or
// deduplication. It is safe for concurrent use.
type Aggregator struct {
	mu     sync.Mutex
	input  strings.Builder
	output strings.Builder
	// started tracks whether an output fragment arrived since the last reset;
	// an empty first fragment still counts.
	started bool
}

// New returns an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{}
}

// OnInputDelta appends an input transcription fragment.
func (a *Aggregator) OnInputDelta(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.input.WriteString(text)
}

// OnOutputDelta appends a response fragment and reports whether it opened a
// new message.
func (a *Aggregator) OnOutputDelta(text string) Delta {
	a.mu.Lock()
	defer a.mu.Unlock()

	isFirst := !a.started
	a.started = true
	a.output.WriteString(text)
	return Delta{IsFirst: isFirst, Accumulated: a.output.String()}
}

// ResetTurn clears both buffers.
func (a *Aggregator) ResetTurn() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.input.Reset()
	a.output.Reset()
	a.started = false
}

// Snapshot returns both buffers at once.
func (a *Aggregator) Snapshot() Turn {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Turn{Input: a.input.String(), Output: a.output.String()}
}
