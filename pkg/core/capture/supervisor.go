package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vango-go/vai-copilot/pkg/core"
	"github.com/vango-go/vai-copilot/pkg/core/audio"
)

// DebugLabel tags system-audio windows handed to the debug recorder.
const DebugLabel = "system_audio"

// DebugSink receives full debug windows. *audio.RecorderQueue implements it.
type DebugSink interface {
	Enqueue(pcm []byte, label string) bool
}

// Config configures a Supervisor.
type Config struct {
	Probe   Probe
	Process Process

	// Debug receives the rolling debug window. Nil disables debug capture.
	Debug DebugSink
	// DebugWindowMs bounds the in-memory debug window. Default: 10000.
	DebugWindowMs int

	// Format describes the mono PCM delivered by Process. Default: audio.DefaultFormat().
	Format audio.Format

	Logger *slog.Logger
	Now    func() time.Time
}

// Supervisor owns at most one running capture process.
type Supervisor struct {
	probe   Probe
	process Process
	debug   DebugSink
	window  *audio.RollingBuffer
	format  audio.Format
	logger  *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	handle    Handle
	cancel    context.CancelFunc
	onStopped func(error)

	// gen identifies the current run; callbacks from older runs are ignored.
	gen atomic.Uint64
}

// NewSupervisor builds a Supervisor. Probe defaults to RuntimeProbe and
// Process to the macOS helper.
func NewSupervisor(cfg Config) *Supervisor {
	if cfg.Probe == nil {
		cfg.Probe = RuntimeProbe{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Process == nil {
		cfg.Process = NewHelperProcess("", cfg.Logger)
	}
	if cfg.Format.SampleRate == 0 {
		cfg.Format = audio.DefaultFormat()
	}
	if cfg.DebugWindowMs <= 0 {
		cfg.DebugWindowMs = 10_000
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Supervisor{
		probe:   cfg.Probe,
		process: cfg.Process,
		debug:   cfg.Debug,
		window:  audio.NewRollingBuffer(cfg.Format, cfg.DebugWindowMs),
		format:  cfg.Format,
		logger:  cfg.Logger,
		now:     cfg.Now,
	}
}

// SetOnStopped registers the callback invoked when the helper exits without
// a Stop. The error is a capture_process_error.
func (s *Supervisor) SetOnStopped(fn func(error)) {
	s.mu.Lock()
	s.onStopped = fn
	s.mu.Unlock()
}

// Running reports whether a capture process is active.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil
}

// Start spawns the capture helper and delivers every chunk to sink in
// arrival order. On unsupported platforms it returns a platform_unsupported
// error without spawning anything.
func (s *Supervisor) Start(sink func(audio.Chunk)) error {
	platform := s.probe.CurrentPlatform()
	if !SupportsSystemAudio(platform) {
		return core.NewPlatformUnsupportedError(fmt.Sprintf(
			"system audio capture is only supported on macOS (current platform: %s)", platform))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil {
		return core.NewInvalidRequestError("audio capture is already running")
	}

	gen := s.gen.Add(1)
	ctx, cancel := context.WithCancel(context.Background())

	var seq int64
	onChunk := func(data []byte) {
		if s.gen.Load() != gen {
			return
		}
		seq++
		if sink != nil {
			sink(audio.Chunk{
				Source:     audio.SourceSystem,
				Seq:        seq,
				Data:       data,
				ReceivedAt: s.now(),
			})
		}
		if s.debug != nil {
			for _, window := range s.window.Write(data) {
				s.emitWindow(window)
			}
		}
	}

	handle, err := s.process.Start(ctx, onChunk, func(err error) { s.handleExit(gen, err) })
	if err != nil {
		cancel()
		s.gen.Add(1)
		return err
	}

	s.handle = handle
	s.cancel = cancel
	s.logger.Info("audio capture started", "pid", handle.PID())
	return nil
}

// Stop terminates the helper if one is running and flushes the debug window.
// It is a no-op when nothing is running.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	handle, cancel := s.handle, s.cancel
	s.handle, s.cancel = nil, nil
	if handle != nil {
		s.gen.Add(1)
	}
	s.mu.Unlock()

	if handle == nil {
		return
	}
	if err := s.process.Stop(handle); err != nil {
		s.logger.Warn("stop capture helper", "pid", handle.PID(), "err", err)
	}
	if cancel != nil {
		cancel()
	}
	s.flushWindow()
	s.logger.Info("audio capture stopped")
}

func (s *Supervisor) handleExit(gen uint64, err error) {
	s.mu.Lock()
	if s.gen.Load() != gen || s.handle == nil {
		s.mu.Unlock()
		return
	}
	s.gen.Add(1)
	cancel := s.cancel
	s.handle, s.cancel = nil, nil
	onStopped := s.onStopped
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.flushWindow()

	msg := "capture helper exited unexpectedly"
	if err != nil {
		msg = "capture helper failed: " + err.Error()
	}
	stopErr := core.NewCaptureProcessError(msg, err)
	s.logger.Warn("audio capture stopped", "err", stopErr)
	if onStopped != nil {
		onStopped(stopErr)
	}
}

func (s *Supervisor) flushWindow() {
	if s.debug == nil {
		s.window.Drain()
		return
	}
	s.logger.Debug("flushing capture debug window", "buffered_ms", s.window.DurationMs())
	if rest := s.window.Drain(); len(rest) > 0 {
		s.emitWindow(rest)
	}
}

// emitWindow hands pcm to the debug sink and logs its signal level, so a
// silent or clipped capture shows up without opening the dump.
func (s *Supervisor) emitWindow(pcm []byte) {
	level := audio.MeasureLevel(pcm)
	s.logger.Debug("capture debug window",
		"duration_ms", s.format.DurationMs(len(pcm)),
		"rms", level.RMS,
		"peak", level.Peak,
	)
	s.debug.Enqueue(pcm, DebugLabel)
}
