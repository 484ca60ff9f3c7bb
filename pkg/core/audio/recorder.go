package audio

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultDebugDir returns the directory debug dumps are written to.
func DefaultDebugDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".vai-copilot", "debug")
}

// Recorder persists PCM buffers for offline inspection. Each Save writes a
// raw .pcm file, a .wav copy and a .json metadata file.
type Recorder struct {
	Dir    string
	Format Format
	Logger *slog.Logger
	Now    func() time.Time
}

// NewRecorder creates a recorder writing to dir (DefaultDebugDir when empty).
func NewRecorder(dir string, logger *slog.Logger) *Recorder {
	if dir == "" {
		dir = DefaultDebugDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		Dir:    dir,
		Format: DefaultFormat(),
		Logger: logger,
		Now:    time.Now,
	}
}

type recordingMeta struct {
	Analysis
	Level
	Label      string    `json:"label"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Save writes the three artifacts for pcm synchronously. Failures are logged
// and never returned.
func (r *Recorder) Save(pcm []byte, label string) {
	if _, err := r.save(pcm, label); err != nil {
		r.logger().Warn("debug audio save failed", "label", label, "err", err)
	}
}

func (r *Recorder) save(pcm []byte, label string) (base string, err error) {
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create debug dir: %w", err)
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	capturedAt := now()
	base = filepath.Join(r.Dir, fmt.Sprintf("%s_%s", sanitizeLabel(label), capturedAt.Format("20060102-150405.000000000")))

	if err := os.WriteFile(base+".pcm", pcm, 0o644); err != nil {
		return base, fmt.Errorf("write pcm: %w", err)
	}
	if err := os.WriteFile(base+".wav", EncodeWAV(pcm, r.Format), 0o644); err != nil {
		return base, fmt.Errorf("write wav: %w", err)
	}

	level := MeasureLevel(pcm)
	meta, err := json.MarshalIndent(recordingMeta{
		Analysis:   Analyze(pcm),
		Level:      level,
		Label:      label,
		CapturedAt: capturedAt,
	}, "", "  ")
	if err != nil {
		return base, fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(base+".json", meta, 0o644); err != nil {
		return base, fmt.Errorf("write metadata: %w", err)
	}

	r.logger().Debug("debug audio saved", "path", base, "bytes", len(pcm), "rms", level.RMS, "peak", level.Peak)
	return base, nil
}

func (r *Recorder) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "audio"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, label)
}
