package gemini_live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"google.golang.org/genai"

	"github.com/vango-go/vai-copilot/pkg/core/live"
)

const (
	// DefaultAPIVersion is required for ephemeral tokens.
	DefaultAPIVersion = "v1alpha"

	defaultEventBuffer = 64
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("gemini live channel closed")

// upstreamSession is the subset of *genai.Session the channel uses.
type upstreamSession interface {
	SendRealtimeInput(input genai.LiveRealtimeInput) error
	Receive() (*genai.LiveServerMessage, error)
	Close() error
}

// Dialer opens Gemini Live sessions.
type Dialer struct {
	baseURL     string
	apiVersion  string
	httpClient  *http.Client
	eventBuffer int
	logger      *slog.Logger

	// connect is replaced in tests.
	connect func(ctx context.Context, req live.DialRequest, cfg *genai.LiveConnectConfig) (upstreamSession, error)
}

// NewDialer creates a Dialer.
func NewDialer(opts ...Option) *Dialer {
	d := &Dialer{
		apiVersion:  DefaultAPIVersion,
		eventBuffer: defaultEventBuffer,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	d.connect = d.connectGenAI
	return d
}

// Dial implements live.Dialer.
func (d *Dialer) Dial(ctx context.Context, req live.DialRequest) (live.Channel, error) {
	if req.Token == "" {
		return nil, fmt.Errorf("gemini live: token is required")
	}
	if req.Model == "" {
		return nil, fmt.Errorf("gemini live: model is required")
	}

	session, err := d.connect(ctx, req, connectConfig(req))
	if err != nil {
		return nil, fmt.Errorf("gemini live connect: %w", err)
	}
	d.logger.Debug("gemini live session opened", "model", req.Model)
	return newChannel(session, d.eventBuffer, d.logger), nil
}

func (d *Dialer) connectGenAI(ctx context.Context, req live.DialRequest, cfg *genai.LiveConnectConfig) (upstreamSession, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     req.Token,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: d.httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    d.baseURL,
			APIVersion: d.apiVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client.Live.Connect(ctx, req.Model, cfg)
}

// connectConfig builds the session setup: text responses, transcription in
// both directions and sliding-window compression so long calls do not hit
// the context limit.
func connectConfig(req live.DialRequest) *genai.LiveConnectConfig {
	cfg := &genai.LiveConnectConfig{
		ResponseModalities:       []genai.Modality{genai.ModalityText},
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
		ContextWindowCompression: &genai.ContextWindowCompressionConfig{
			SlidingWindow: &genai.SlidingWindow{},
		},
	}
	if req.LanguageCode != "" {
		cfg.SpeechConfig = &genai.SpeechConfig{LanguageCode: req.LanguageCode}
	}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if req.GoogleSearch {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	return cfg
}

type channel struct {
	session upstreamSession
	logger  *slog.Logger

	writeMu sync.Mutex
	closed  atomic.Bool

	events    chan live.Event
	done      chan struct{}
	closeOnce sync.Once
}

func newChannel(session upstreamSession, buffer int, logger *slog.Logger) *channel {
	c := &channel{
		session: session,
		logger:  logger,
		events:  make(chan live.Event, buffer),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Events implements live.Channel.
func (c *channel) Events() <-chan live.Event { return c.events }

// Send implements live.Channel. Writes are serialized.
func (c *channel) Send(ctx context.Context, p live.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	input, err := realtimeInput(p)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed.Load() {
		return ErrClosed
	}
	return c.session.SendRealtimeInput(input)
}

func realtimeInput(p live.Payload) (genai.LiveRealtimeInput, error) {
	switch p := p.(type) {
	case live.TextPayload:
		return genai.LiveRealtimeInput{Text: p.Text}, nil
	case live.AudioPayload:
		return genai.LiveRealtimeInput{Audio: &genai.Blob{Data: p.Data, MIMEType: p.MIMEType}}, nil
	case live.ImagePayload:
		return genai.LiveRealtimeInput{Video: &genai.Blob{Data: p.Data, MIMEType: p.MIMEType}}, nil
	default:
		return genai.LiveRealtimeInput{}, fmt.Errorf("gemini live: unsupported payload %T", p)
	}
}

// Close implements live.Channel. It neither waits for the read loop nor for
// an in-flight Send.
func (c *channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		err = c.session.Close()
	})
	return err
}

func (c *channel) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *channel) readLoop() {
	defer close(c.events)
	for {
		msg, err := c.session.Receive()
		if err != nil {
			if c.isClosed() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			c.logger.Warn("gemini live receive failed", "err", err)
			c.emit(live.ChannelError{Err: err})
			return
		}
		for _, ev := range decodeServerMessage(msg) {
			if !c.emit(ev) {
				return
			}
		}
	}
}

func (c *channel) emit(ev live.Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}
