package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. VAI_COPILOT_ADDR.
const EnvPrefix = "VAI_COPILOT"

// DefaultConfigName is looked up as <name>.yaml in the working directory and
// in ~/.vai-copilot when no explicit file is given.
const DefaultConfigName = "vai-copilot"

type Config struct {
	Addr     string `mapstructure:"addr"`
	LogLevel string `mapstructure:"log_level"`

	// Upstream session defaults.
	Model          string        `mapstructure:"model"`
	LanguageCode   string        `mapstructure:"language_code"`
	Profile        string        `mapstructure:"profile"`
	CustomPrompt   string        `mapstructure:"custom_prompt"`
	GoogleSearch   bool          `mapstructure:"google_search"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	SendTimeout    time.Duration `mapstructure:"send_timeout"`

	// Direct mode uses APIKey as the upstream credential. Managed mode fetches
	// ephemeral tokens from BackendURL.
	APIKey            string        `mapstructure:"api_key"`
	BackendURL        string        `mapstructure:"backend_url"`
	BackendTimeout    time.Duration `mapstructure:"backend_timeout"`
	BackendMaxRetries int           `mapstructure:"backend_max_retries"`

	// System audio capture.
	HelperPath      string        `mapstructure:"helper_path"`
	DebugAudio      bool          `mapstructure:"debug_audio"`
	DebugDir        string        `mapstructure:"debug_dir"`
	DebugWindow     time.Duration `mapstructure:"debug_window"`
	DebugQueueSize  int           `mapstructure:"debug_queue_size"`
	HistoryPath     string        `mapstructure:"history_path"`
	HistoryDisabled bool          `mapstructure:"history_disabled"`

	// UI bridge.
	CORSAllowedOrigins  []string      `mapstructure:"cors_origins"`
	WSMaxMessageBytes   int64         `mapstructure:"ws_max_message_bytes"`
	WSWriteTimeout      time.Duration `mapstructure:"ws_write_timeout"`
	WSPingInterval      time.Duration `mapstructure:"ws_ping_interval"`
	WSSendQueueSize     int           `mapstructure:"ws_send_queue_size"`
	ReadHeaderTimeout   time.Duration `mapstructure:"read_header_timeout"`
	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`
}

// Managed reports whether tokens come from the backend.
func (c Config) Managed() bool {
	return strings.TrimSpace(c.BackendURL) != ""
}

// SlogLevel maps LogLevel to a slog level. Unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func appDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".vai-copilot"
	}
	return filepath.Join(home, ".vai-copilot")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", "127.0.0.1:8765")
	v.SetDefault("log_level", "info")
	v.SetDefault("model", "gemini-live-2.5-flash-preview")
	v.SetDefault("language_code", "en-US")
	v.SetDefault("profile", "interview")
	v.SetDefault("custom_prompt", "")
	v.SetDefault("google_search", true)
	v.SetDefault("connect_timeout", 15*time.Second)
	v.SetDefault("send_timeout", 5*time.Second)
	v.SetDefault("api_key", "")
	v.SetDefault("backend_url", "")
	v.SetDefault("backend_timeout", 10*time.Second)
	v.SetDefault("backend_max_retries", 3)
	v.SetDefault("helper_path", "SystemAudioDump")
	v.SetDefault("debug_audio", false)
	v.SetDefault("debug_dir", filepath.Join(appDir(), "debug"))
	v.SetDefault("debug_window", 10*time.Second)
	v.SetDefault("debug_queue_size", 16)
	v.SetDefault("history_path", filepath.Join(appDir(), "history.sqlite"))
	v.SetDefault("history_disabled", false)
	v.SetDefault("cors_origins", []string{})
	v.SetDefault("ws_max_message_bytes", 8<<20) // screenshots arrive base64-encoded
	v.SetDefault("ws_write_timeout", 5*time.Second)
	v.SetDefault("ws_ping_interval", 20*time.Second)
	v.SetDefault("ws_send_queue_size", 64)
	v.SetDefault("read_header_timeout", 10*time.Second)
	v.SetDefault("shutdown_grace_period", 5*time.Second)
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(appDir())
	}
	return v
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.CORSAllowedOrigins = cleanList(cfg.CORSAllowedOrigins)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("model must not be empty")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be > 0")
	}
	if c.SendTimeout <= 0 {
		return fmt.Errorf("send_timeout must be > 0")
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("backend_timeout must be > 0")
	}
	if c.BackendMaxRetries < 0 {
		return fmt.Errorf("backend_max_retries must be >= 0")
	}
	if c.DebugWindow <= 0 {
		return fmt.Errorf("debug_window must be > 0")
	}
	if c.DebugQueueSize <= 0 {
		return fmt.Errorf("debug_queue_size must be > 0")
	}
	if c.WSMaxMessageBytes <= 0 {
		return fmt.Errorf("ws_max_message_bytes must be > 0")
	}
	if c.WSWriteTimeout <= 0 {
		return fmt.Errorf("ws_write_timeout must be > 0")
	}
	if c.WSPingInterval <= 0 {
		return fmt.Errorf("ws_ping_interval must be > 0")
	}
	if c.WSSendQueueSize <= 0 {
		return fmt.Errorf("ws_send_queue_size must be > 0")
	}
	if c.ReadHeaderTimeout <= 0 {
		return fmt.Errorf("read_header_timeout must be > 0")
	}
	if c.ShutdownGracePeriod <= 0 {
		return fmt.Errorf("shutdown_grace_period must be > 0")
	}
	if c.Managed() {
		if !strings.HasPrefix(c.BackendURL, "http://") && !strings.HasPrefix(c.BackendURL, "https://") {
			return fmt.Errorf("backend_url must be an http(s) URL")
		}
	}
	return nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Manager holds the current Config and reloads it when the file changes.
type Manager struct {
	v      *viper.Viper
	logger *slog.Logger

	mu  sync.RWMutex
	cfg Config
}

// NewManager loads defaults, then the config file (path, or the default
// search locations when empty), then VAI_COPILOT_* environment variables.
// A missing file is only an error when path is explicit.
func NewManager(path string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	return &Manager{v: v, logger: logger, cfg: cfg}, nil
}

// Load is NewManager for callers that do not watch.
func Load(path string) (Config, error) {
	m, err := NewManager(path, nil)
	if err != nil {
		return Config{}, err
	}
	return m.Config(), nil
}

// Config returns the current configuration.
func (m *Manager) Config() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// File returns the config file in use, or "" when running on defaults.
func (m *Manager) File() string {
	return m.v.ConfigFileUsed()
}

// Watch reloads the configuration whenever the file changes and passes valid
// results to onChange. Invalid edits are logged and ignored. Watch is a
// no-op without a config file.
func (m *Manager) Watch(onChange func(Config)) {
	if m.File() == "" {
		return
	}
	m.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(m.v)
		if err != nil {
			m.logger.Warn("ignoring invalid config change", "file", e.Name, "err", err)
			return
		}
		m.mu.Lock()
		m.cfg = cfg
		m.mu.Unlock()

		m.logger.Info("config reloaded", "file", e.Name, "op", e.Op.String())
		if onChange != nil {
			onChange(cfg)
		}
	})
	m.v.WatchConfig()
}
