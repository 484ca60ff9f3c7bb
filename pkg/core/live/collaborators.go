package live

import (
	"context"
	"time"

	"github.com/vango-go/vai-copilot/pkg/core/audio"
)

// Credentials authenticate the caller with the token provider.
type Credentials struct {
	// APIKey is an upstream key used directly in direct mode.
	APIKey string `json:"apiKey,omitempty"`
	// AccessToken authenticates against the backend in managed mode.
	AccessToken string `json:"accessToken,omitempty"`
}

// BackendSession is the credential issued for one upstream session.
type BackendSession struct {
	Token     string `json:"token"`
	SessionID string `json:"sessionId"`
}

// TokenProvider issues upstream credentials.
type TokenProvider interface {
	FetchBackendSession(ctx context.Context, creds Credentials) (BackendSession, error)
}

// UsageTracker counts completed turns per model.
type UsageTracker interface {
	IncrementUsage(ctx context.Context, model string) error
}

// ConversationTurn is one finished exchange.
type ConversationTurn struct {
	SessionID     string    `json:"sessionId"`
	Seq           int       `json:"seq"`
	Profile       string    `json:"profile"`
	Model         string    `json:"model"`
	Transcription string    `json:"transcription"`
	Response      string    `json:"response"`
	CreatedAt     time.Time `json:"createdAt"`
}

// HistoryStore persists finished turns under a logical session id.
type HistoryStore interface {
	AppendConversationTurn(ctx context.Context, turn ConversationTurn) error
}

// Capture is the system-audio supervisor as seen by the engine.
// *capture.Supervisor implements it.
type Capture interface {
	Start(sink func(audio.Chunk)) error
	Stop()
	SetOnStopped(fn func(error))
	Running() bool
}

// NotificationKind names an outbound notification.
type NotificationKind string

const (
	NotifyStatus         NotificationKind = "status"
	NotifyNewResponse    NotificationKind = "new_response"
	NotifyUpdateResponse NotificationKind = "update_response"
)

// Notification is sent to the UI, fire-and-forget.
type Notification struct {
	Kind NotificationKind `json:"type"`
	Text string           `json:"text"`
}

// Notifier receives notifications. Notify must not block for long; it is
// called from the engine's event goroutine.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }
