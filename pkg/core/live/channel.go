package live

import (
	"context"

	"github.com/vango-go/vai-copilot/pkg/core/audio"
	"github.com/vango-go/vai-copilot/pkg/core/transcript"
)

// Payload is something the engine sends upstream. The set of variants is
// closed: TextPayload, AudioPayload and ImagePayload.
type Payload interface {
	payloadKind() string
}

// TextPayload is a typed user message.
type TextPayload struct {
	Text string
}

// AudioPayload is one chunk of mono PCM.
type AudioPayload struct {
	Data     []byte
	MIMEType string
	Source   audio.Source
}

// ImagePayload is one encoded image, usually a screenshot.
type ImagePayload struct {
	Data     []byte
	MIMEType string
}

func (TextPayload) payloadKind() string  { return "text" }
func (AudioPayload) payloadKind() string { return "audio" }
func (ImagePayload) payloadKind() string { return "image" }

// Event is something the channel reports. The set of variants is closed:
// InputTranscriptionDelta, OutputTranscriptionDelta, TurnComplete and
// ChannelError. Closing the events channel signals that the stream ended.
type Event interface {
	// EventType returns the event type string for logging.
	EventType() string
}

// InputTranscriptionDelta is a fragment of the interlocutor's transcribed speech.
type InputTranscriptionDelta struct {
	Text string
	// Segments carries diarized speech when the upstream provides it; the
	// engine then records the formatted lines instead of Text. The Gemini
	// adapter never sets it.
	Segments []transcript.SpeakerSegment
}

func (e InputTranscriptionDelta) EventType() string { return "input_transcription.delta" }

// OutputTranscriptionDelta is a fragment of the assistant's reply.
type OutputTranscriptionDelta struct {
	Text string
}

func (e OutputTranscriptionDelta) EventType() string { return "output_transcription.delta" }

// TurnComplete marks the end of the model's turn.
type TurnComplete struct{}

func (e TurnComplete) EventType() string { return "turn.complete" }

// ChannelError reports a runtime failure of the stream.
type ChannelError struct {
	Err error
}

func (e ChannelError) EventType() string { return "channel.error" }

func (e ChannelError) Error() string {
	if e.Err == nil {
		return "channel error"
	}
	return e.Err.Error()
}

func (e ChannelError) Unwrap() error { return e.Err }

// DialRequest carries everything needed to open a channel.
type DialRequest struct {
	Token             string
	Model             string
	SystemInstruction string
	LanguageCode      string
	GoogleSearch      bool
}

// Dialer opens upstream channels.
type Dialer interface {
	Dial(ctx context.Context, req DialRequest) (Channel, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, req DialRequest) (Channel, error)

func (f DialerFunc) Dial(ctx context.Context, req DialRequest) (Channel, error) { return f(ctx, req) }

// Channel is an open bidirectional stream.
//
// Send may be called from multiple goroutines and must return an error once
// the channel is closed. Events is closed when the stream ends for any
// reason. Close is idempotent and must not wait for Events to be drained.
type Channel interface {
	Send(ctx context.Context, p Payload) error
	Events() <-chan Event
	Close() error
}
