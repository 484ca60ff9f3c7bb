package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/vango-go/vai-copilot/pkg/core"
	"github.com/vango-go/vai-copilot/pkg/core/audio"
)

// DefaultHelperPath is the macOS system-audio helper binary.
const DefaultHelperPath = "SystemAudioDump"

// Helper output is 24 kHz 16-bit interleaved stereo.
const (
	helperSampleRate = 24000
	helperChannels   = 2
	helperChunkMs    = 100
)

// DefaultChunkBytes is 100 ms of helper output.
var DefaultChunkBytes = audio.Format{
	SampleRate:    helperSampleRate,
	Channels:      helperChannels,
	BitsPerSample: 16,
}.BytesForDurationMs(helperChunkMs)

// HelperProcess runs an external binary that writes raw PCM to stdout.
type HelperProcess struct {
	// Path is the helper binary. Default: DefaultHelperPath.
	Path string
	Args []string

	// ChunkBytes is the size of each read from stdout. Default: DefaultChunkBytes.
	ChunkBytes int

	// Stereo output is reduced to its left channel before delivery.
	Stereo bool

	// KillStale runs `pkill -f <binary>` before spawning so a helper left
	// over from a previous run cannot hold the audio device.
	KillStale bool

	// StopTimeout bounds the wait after SIGTERM before the helper is killed.
	StopTimeout time.Duration

	Logger *slog.Logger
}

// NewHelperProcess returns the macOS SystemAudioDump configuration.
func NewHelperProcess(path string, logger *slog.Logger) *HelperProcess {
	if path == "" {
		path = DefaultHelperPath
	}
	return &HelperProcess{
		Path:        path,
		ChunkBytes:  DefaultChunkBytes,
		Stereo:      true,
		KillStale:   true,
		StopTimeout: 2 * time.Second,
		Logger:      logger,
	}
}

type helperHandle struct {
	cmd     *exec.Cmd
	stopped atomic.Bool
	done    chan struct{}
}

func (h *helperHandle) PID() int {
	if h == nil || h.cmd == nil || h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

func (p *HelperProcess) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

// Start implements Process.
func (p *HelperProcess) Start(ctx context.Context, onChunk func([]byte), onExit func(error)) (Handle, error) {
	path := p.Path
	if path == "" {
		path = DefaultHelperPath
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, core.NewCaptureProcessError(fmt.Sprintf("capture helper %q not found", path), err)
	}

	if p.KillStale {
		p.killStale(ctx, filepath.Base(resolved))
	}

	cmd := exec.Command(resolved, p.Args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, core.NewCaptureProcessError("open capture helper stdout", err)
	}
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, core.NewCaptureProcessError("start capture helper", err)
	}

	h := &helperHandle{cmd: cmd, done: make(chan struct{})}
	p.logger().Info("capture helper started", "path", resolved, "pid", h.PID())

	go p.readLoop(h, stdout, onChunk, onExit)
	return h, nil
}

func (p *HelperProcess) killStale(ctx context.Context, name string) {
	if _, err := exec.LookPath("pkill"); err != nil {
		return
	}
	// pkill exits 1 when nothing matched.
	if err := exec.CommandContext(ctx, "pkill", "-f", name).Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
			p.logger().Debug("stale capture helper cleanup failed", "name", name, "err", err)
		}
	}
}

func (p *HelperProcess) readLoop(h *helperHandle, stdout io.Reader, onChunk func([]byte), onExit func(error)) {
	size := p.ChunkBytes
	if size <= 0 {
		size = DefaultChunkBytes
	}

	var readErr error
	for {
		buf := make([]byte, size)
		n, err := io.ReadFull(stdout, buf)
		if n > 0 && !h.stopped.Load() {
			data := buf[:n]
			if p.Stereo {
				data = audio.StereoToMono(data)
			}
			if len(data) > 0 && onChunk != nil {
				onChunk(data)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				readErr = err
			}
			break
		}
	}

	waitErr := h.cmd.Wait()
	close(h.done)

	if h.stopped.Load() {
		return
	}
	exitErr := waitErr
	if exitErr == nil {
		exitErr = readErr
	}
	p.logger().Warn("capture helper exited", "pid", h.PID(), "err", exitErr)
	if onExit != nil {
		onExit(exitErr)
	}
}

// Stop implements Process.
func (p *HelperProcess) Stop(handle Handle) error {
	h, ok := handle.(*helperHandle)
	if !ok || h == nil {
		return nil
	}
	if h.stopped.Swap(true) {
		<-h.done
		return nil
	}

	select {
	case <-h.done:
		return nil
	default:
	}

	if err := h.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		_ = h.cmd.Process.Kill()
	}

	timeout := p.StopTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-h.done:
	case <-timer.C:
		p.logger().Warn("capture helper ignored SIGTERM, killing", "pid", h.PID())
		_ = h.cmd.Process.Kill()
		<-h.done
	}
	p.logger().Info("capture helper stopped", "pid", h.PID())
	return nil
}
