package audio

import (
	"sync"
	"time"
)

// Source identifies where a chunk of audio came from.
type Source string

const (
	SourceSystem     Source = "system"
	SourceMicrophone Source = "microphone"
)

// Chunk is one immutable buffer of mono PCM in arrival order.
type Chunk struct {
	Source     Source
	Seq        int64
	Data       []byte
	ReceivedAt time.Time
}

// RollingBuffer accumulates PCM up to a fixed window. When the window fills,
// Write hands the full window back to the caller and starts over, so memory
// never grows past the window size.
type RollingBuffer struct {
	mu       sync.Mutex
	data     []byte
	maxBytes int
	format   Format
}

// NewRollingBuffer creates a buffer holding up to windowMs of audio.
func NewRollingBuffer(format Format, windowMs int) *RollingBuffer {
	maxBytes := format.BytesForDurationMs(windowMs)
	if maxBytes <= 0 {
		maxBytes = format.BytesPerSecond()
	}
	return &RollingBuffer{
		data:     make([]byte, 0, maxBytes),
		maxBytes: maxBytes,
		format:   format,
	}
}

// Write appends data. Every time the window fills, the full window is
// returned in order and the buffer keeps only the overflow.
func (b *RollingBuffer) Write(data []byte) (full [][]byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for len(data) > 0 {
		room := b.maxBytes - len(b.data)
		n := min(room, len(data))
		b.data = append(b.data, data[:n]...)
		data = data[n:]

		if len(b.data) == b.maxBytes {
			window := make([]byte, len(b.data))
			copy(window, b.data)
			full = append(full, window)
			b.data = b.data[:0]
		}
	}
	return full
}

// Drain returns whatever is buffered and empties the buffer.
func (b *RollingBuffer) Drain() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.data) == 0 {
		return nil
	}
	result := make([]byte, len(b.data))
	copy(result, b.data)
	b.data = b.data[:0]
	return result
}

// Len returns the current buffer size in bytes.
func (b *RollingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Cap returns the window size in bytes.
func (b *RollingBuffer) Cap() int {
	return b.maxBytes
}

// DurationMs returns the current buffer duration in milliseconds.
func (b *RollingBuffer) DurationMs() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.format.DurationMs(len(b.data))
}
