package live

import (
	"time"

	"github.com/vango-go/vai-copilot/pkg/core/audio"
)

// Defaults applied by SessionConfig.withDefaults.
const (
	DefaultModel          = "gemini-live-2.5-flash-preview"
	DefaultLanguageCode   = "en-US"
	DefaultConnectTimeout = 15 * time.Second
	DefaultSendTimeout    = 5 * time.Second
	ImageMIMEType         = "image/jpeg"
)

// SessionConfig holds the per-session options passed to Initialize.
type SessionConfig struct {
	// Model is the upstream live model.
	Model string `json:"model,omitempty"`

	// LanguageCode is the BCP-47 speech language. Default: en-US.
	LanguageCode string `json:"languageCode,omitempty"`

	// CustomPrompt is user-provided context embedded in the system instruction.
	CustomPrompt string `json:"customPrompt,omitempty"`

	// ConnectTimeout bounds token fetch plus dial. Default: 15s.
	ConnectTimeout time.Duration `json:"connectTimeout,omitempty"`

	// SendTimeout bounds each forwarded capture chunk. Default: 5s.
	SendTimeout time.Duration `json:"sendTimeout,omitempty"`

	// Format of the PCM sent upstream. Default: 24 kHz mono 16-bit.
	Format audio.Format `json:"format,omitempty"`
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.LanguageCode == "" {
		c.LanguageCode = DefaultLanguageCode
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = DefaultSendTimeout
	}
	if c.Format.SampleRate == 0 {
		c.Format = audio.DefaultFormat()
	}
	return c
}

// Session describes the open upstream session.
type Session struct {
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	Profile   string    `json:"profile"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"createdAt"`
}
