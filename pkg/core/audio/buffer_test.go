package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollingBuffer_FlushesFullWindows(t *testing.T) {
	f := DefaultFormat()
	buf := NewRollingBuffer(f, 100) // 4800 bytes
	require.Equal(t, 4800, buf.Cap())

	first := make([]byte, f.BytesForDurationMs(60))
	for i := range first {
		first[i] = byte(i % 251)
	}
	assert.Empty(t, buf.Write(first))
	assert.Equal(t, 60, buf.DurationMs())

	second := make([]byte, f.BytesForDurationMs(60))
	full := buf.Write(second)
	require.Len(t, full, 1)
	assert.Len(t, full[0], 4800)
	assert.Equal(t, first, full[0][:len(first)], "window keeps arrival order")
	assert.Equal(t, f.BytesForDurationMs(20), buf.Len(), "overflow carries into the next window")
}

func TestRollingBuffer_LargeWriteSplitsIntoWindows(t *testing.T) {
	buf := NewRollingBuffer(DefaultFormat(), 100)
	full := buf.Write(make([]byte, 4800*3+10))
	assert.Len(t, full, 3)
	assert.Equal(t, 10, buf.Len())
}

func TestRollingBuffer_Drain(t *testing.T) {
	buf := NewRollingBuffer(DefaultFormat(), 100)
	assert.Nil(t, buf.Drain())

	buf.Write([]byte{1, 2, 3, 4})
	assert.Equal(t, []byte{1, 2, 3, 4}, buf.Drain())
	assert.Equal(t, 0, buf.Len())
}

func TestRollingBuffer_NeverExceedsWindow(t *testing.T) {
	buf := NewRollingBuffer(DefaultFormat(), 50)
	for i := 0; i < 100; i++ {
		buf.Write(make([]byte, 333))
		assert.Less(t, buf.Len(), buf.Cap())
	}
}
