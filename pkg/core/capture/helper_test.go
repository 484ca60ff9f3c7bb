package capture

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-go/vai-copilot/pkg/core"
)

func shellHelper(t *testing.T, script string) *HelperProcess {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	return &HelperProcess{
		Path:        "sh",
		Args:        []string{"-c", script},
		ChunkBytes:  4,
		Stereo:      true,
		StopTimeout: time.Second,
	}
}

func TestHelperProcess_ConvertsStereoChunks(t *testing.T) {
	// Two interleaved frames: L=1 R=2, L=3 R=4.
	p := shellHelper(t, `printf '\001\000\002\000\003\000\004\000'`)

	var mu sync.Mutex
	var chunks [][]byte
	exited := make(chan error, 1)

	_, err := p.Start(context.Background(), func(b []byte) {
		mu.Lock()
		chunks = append(chunks, b)
		mu.Unlock()
	}, func(err error) { exited <- err })
	require.NoError(t, err)

	select {
	case err := <-exited:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("helper did not exit")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, [][]byte{{1, 0}, {3, 0}}, chunks)
}

func TestHelperProcess_ReportsFailingExit(t *testing.T) {
	p := shellHelper(t, `exit 3`)
	exited := make(chan error, 1)

	_, err := p.Start(context.Background(), nil, func(err error) { exited <- err })
	require.NoError(t, err)

	select {
	case err := <-exited:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("helper did not exit")
	}
}

func TestHelperProcess_StopSuppressesExitCallback(t *testing.T) {
	p := shellHelper(t, `exec sleep 30`)
	exited := make(chan error, 1)

	h, err := p.Start(context.Background(), nil, func(err error) { exited <- err })
	require.NoError(t, err)
	assert.NotZero(t, h.PID())

	require.NoError(t, p.Stop(h))
	require.NoError(t, p.Stop(h), "second stop is a no-op")

	select {
	case <-exited:
		t.Fatal("onExit must not fire after Stop")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHelperProcess_MissingBinary(t *testing.T) {
	p := &HelperProcess{Path: "definitely-not-a-capture-helper"}
	_, err := p.Start(context.Background(), nil, nil)
	require.Error(t, err)
	assert.True(t, core.IsType(err, core.ErrCaptureProcess))
}

func TestParsePlatform(t *testing.T) {
	assert.Equal(t, PlatformDarwin, ParsePlatform("darwin"))
	assert.Equal(t, PlatformLinux, ParsePlatform("linux"))
	assert.Equal(t, PlatformWindows, ParsePlatform("windows"))
	assert.Equal(t, PlatformUnknown, ParsePlatform("plan9"))
	assert.True(t, SupportsSystemAudio(PlatformDarwin))
	assert.False(t, SupportsSystemAudio(PlatformLinux))
}

func TestDefaultChunkBytes(t *testing.T) {
	// 100 ms of 24 kHz 16-bit stereo.
	assert.Equal(t, 9600, DefaultChunkBytes)
}
