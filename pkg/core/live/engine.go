package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vango-go/vai-copilot/pkg/core"
	"github.com/vango-go/vai-copilot/pkg/core/audio"
	"github.com/vango-go/vai-copilot/pkg/core/prompts"
	"github.com/vango-go/vai-copilot/pkg/core/transcript"
)

// Status texts sent with NotifyStatus.
const (
	StatusConnected = "Live session connected"
	StatusClosed    = "Session closed"
)

// persistTimeout bounds history and usage writes at turn completion.
const persistTimeout = 5 * time.Second

// Dependencies wires an Engine.
type Dependencies struct {
	Dialer Dialer
	Tokens TokenProvider

	// Capture is optional; without it StartCapture fails.
	Capture Capture
	// Notifier is optional; notifications are dropped without it.
	Notifier Notifier
	Usage    UsageTracker
	History  HistoryStore

	// GoogleSearch is the initial search setting.
	GoogleSearch bool

	Logger *slog.Logger
	Now    func() time.Time
	NewID  func() string
}

// Engine owns at most one live channel and exposes the command surface the UI
// drives. All methods are safe for concurrent use.
type Engine struct {
	dialer   Dialer
	tokens   TokenProvider
	capture  Capture
	notifier Notifier
	usage    UsageTracker
	history  HistoryStore
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string

	agg *transcript.Aggregator

	mu           sync.Mutex
	state        State
	active       *activeSession
	gen          uint64
	googleSearch bool
	// cancelConnect aborts the Initialize in flight, if any.
	cancelConnect context.CancelFunc

	// logical session used for history; independent from the channel
	historyID string
	turnSeq   int
}

type activeSession struct {
	info    Session
	config  SessionConfig
	channel Channel
}

// NewEngine validates deps and returns an idle Engine.
func NewEngine(deps Dependencies) (*Engine, error) {
	if deps.Dialer == nil {
		return nil, fmt.Errorf("dialer is required")
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("token provider is required")
	}
	if deps.Notifier == nil {
		deps.Notifier = NotifierFunc(func(Notification) {})
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}

	e := &Engine{
		dialer:       deps.Dialer,
		tokens:       deps.Tokens,
		capture:      deps.Capture,
		notifier:     deps.Notifier,
		usage:        deps.Usage,
		history:      deps.History,
		logger:       deps.Logger,
		now:          deps.Now,
		newID:        deps.NewID,
		agg:          transcript.New(),
		state:        StateIdle,
		googleSearch: deps.GoogleSearch,
	}
	if e.capture != nil {
		e.capture.SetOnStopped(e.onCaptureStopped)
	}
	return e, nil
}

// State returns the current connection state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Session returns the open session, if any.
func (e *Engine) Session() (Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return Session{}, false
	}
	info := e.active.info
	info.State = e.state
	return info, true
}

// Initialize opens a new channel, closing any existing one first. It starts
// a new logical history session. A failed connect leaves the engine in
// StateError and emits a status notification. A connect still in progress
// from an earlier call is aborted.
func (e *Engine) Initialize(ctx context.Context, creds Credentials, cfg SessionConfig, profile string) bool {
	cfg = cfg.withDefaults()
	profile = string(prompts.Normalize(profile))

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	e.mu.Lock()
	prev := e.active
	prevConnect := e.cancelConnect
	e.active = nil
	e.gen++
	gen := e.gen
	e.cancelConnect = cancel
	e.state = StateConnecting
	search := e.googleSearch
	e.historyID = e.newID()
	e.turnSeq = 0
	e.agg.ResetTurn()
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		if e.gen == gen {
			e.cancelConnect = nil
		}
		e.mu.Unlock()
	}()

	if prevConnect != nil {
		prevConnect()
	}
	if prev != nil {
		e.logger.Info("closing previous live session", "session_id", prev.info.ID)
		_ = prev.channel.Close()
	}

	backend, err := e.tokens.FetchBackendSession(ctx, creds)
	if err != nil {
		if !core.IsType(err, core.ErrAuthentication) {
			err = core.NewAuthenticationError("fetch backend session: "+err.Error(), err)
		}
		e.failConnect(gen, err)
		return false
	}

	ch, err := e.dialer.Dial(ctx, DialRequest{
		Token:             backend.Token,
		Model:             cfg.Model,
		SystemInstruction: prompts.Build(profile, cfg.CustomPrompt, search),
		LanguageCode:      cfg.LanguageCode,
		GoogleSearch:      search,
	})
	if err != nil {
		msg := "connect: " + err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = fmt.Sprintf("connect timed out after %s", cfg.ConnectTimeout)
		}
		e.failConnect(gen, core.NewChannelError(msg, err))
		return false
	}

	id := strings.TrimSpace(backend.SessionID)
	if id == "" {
		id = e.newID()
	}
	sess := &activeSession{
		info: Session{
			ID:        id,
			Model:     cfg.Model,
			Profile:   profile,
			CreatedAt: e.now(),
		},
		config:  cfg,
		channel: ch,
	}

	e.mu.Lock()
	if e.gen != gen {
		// Closed or re-initialized while dialing.
		e.mu.Unlock()
		_ = ch.Close()
		return false
	}
	e.active = sess
	e.state = StateLive
	e.cancelConnect = nil
	e.mu.Unlock()

	e.logger.Info("live session connected", "session_id", id, "model", cfg.Model, "profile", profile, "google_search", search)
	// The status goes out before any response notification from the pump.
	e.notify(NotifyStatus, StatusConnected)
	go e.pump(gen, sess)
	return true
}

func (e *Engine) failConnect(gen uint64, err error) {
	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		return
	}
	e.state = StateError
	e.mu.Unlock()

	e.logger.Warn("live session connect failed", "err", err)
	e.notify(NotifyStatus, "Error: "+errorMessage(err))
}

// pump drains channel events until the channel closes. Events from a channel
// that is no longer current are ignored.
func (e *Engine) pump(gen uint64, sess *activeSession) {
	for ev := range sess.channel.Events() {
		e.handleEvent(gen, sess, ev)
	}
	e.handleChannelClosed(gen, sess)
}

func (e *Engine) currentLocked(gen uint64) bool {
	return e.gen == gen && e.state == StateLive
}

func (e *Engine) handleEvent(gen uint64, sess *activeSession, ev Event) {
	switch ev := ev.(type) {
	case InputTranscriptionDelta:
		text := ev.Text
		if len(ev.Segments) > 0 {
			text = transcript.FormatSpeakerResults(ev.Segments) + "\n"
		}
		e.mu.Lock()
		if e.currentLocked(gen) {
			e.agg.OnInputDelta(text)
		}
		e.mu.Unlock()

	case OutputTranscriptionDelta:
		e.mu.Lock()
		if !e.currentLocked(gen) {
			e.mu.Unlock()
			return
		}
		d := e.agg.OnOutputDelta(ev.Text)
		e.mu.Unlock()

		if d.IsFirst {
			e.notify(NotifyNewResponse, ev.Text)
		} else {
			e.notify(NotifyUpdateResponse, d.Accumulated)
		}

	case TurnComplete:
		e.completeTurn(gen, sess)

	case ChannelError:
		e.mu.Lock()
		if e.gen != gen {
			e.mu.Unlock()
			return
		}
		e.gen++
		e.active = nil
		e.state = StateError
		e.agg.ResetTurn()
		e.mu.Unlock()

		_ = sess.channel.Close()
		err := core.NewChannelError(ev.Error(), ev.Err)
		e.logger.Warn("live session channel error", "session_id", sess.info.ID, "err", err)
		e.notify(NotifyStatus, "Error: "+errorMessage(err))

	default:
		e.logger.Debug("ignoring unknown live event", "type", ev.EventType())
	}
}

func (e *Engine) completeTurn(gen uint64, sess *activeSession) {
	e.mu.Lock()
	if !e.currentLocked(gen) {
		e.mu.Unlock()
		return
	}
	turn := e.agg.Snapshot()
	e.agg.ResetTurn()
	historyID := e.historyID
	var seq int
	if turn.Input != "" || turn.Output != "" {
		e.turnSeq++
		seq = e.turnSeq
	}
	e.mu.Unlock()

	if seq == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if e.history != nil {
		err := e.history.AppendConversationTurn(ctx, ConversationTurn{
			SessionID:     historyID,
			Seq:           seq,
			Profile:       sess.info.Profile,
			Model:         sess.info.Model,
			Transcription: strings.TrimSpace(turn.Input),
			Response:      turn.Output,
			CreatedAt:     e.now(),
		})
		if err != nil {
			e.logger.Warn("append conversation turn", "session_id", historyID, "err", err)
		}
	}
	if e.usage != nil {
		if err := e.usage.IncrementUsage(ctx, sess.info.Model); err != nil {
			e.logger.Warn("increment usage", "model", sess.info.Model, "err", err)
		}
	}
}

func (e *Engine) handleChannelClosed(gen uint64, sess *activeSession) {
	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		return
	}
	e.gen++
	e.active = nil
	e.state = StateClosed
	e.agg.ResetTurn()
	e.mu.Unlock()

	_ = sess.channel.Close()
	e.logger.Info("live session closed by upstream", "session_id", sess.info.ID)
	e.notify(NotifyStatus, StatusClosed)
}

// liveChannel returns the open channel, or a no_active_session error.
func (e *Engine) liveChannel() (*activeSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateLive || e.active == nil {
		return nil, core.NewNoActiveSessionError()
	}
	return e.active, nil
}

func (e *Engine) send(ctx context.Context, p Payload) Result {
	sess, err := e.liveChannel()
	if err != nil {
		return fail(err)
	}
	if err := sess.channel.Send(ctx, p); err != nil {
		e.logger.Debug("live send failed", "session_id", sess.info.ID, "kind", p.payloadKind(), "err", err)
		return fail(core.NewChannelError("send "+p.payloadKind()+": "+err.Error(), err))
	}
	return ok()
}

// SendText forwards text to the open session.
func (e *Engine) SendText(ctx context.Context, text string) Result {
	if strings.TrimSpace(text) == "" {
		return fail(core.NewInvalidRequestError("text must not be empty"))
	}
	return e.send(ctx, TextPayload{Text: text})
}

// SendAudio forwards one chunk of system audio.
func (e *Engine) SendAudio(ctx context.Context, pcm []byte) Result {
	return e.sendAudio(ctx, pcm, audio.SourceSystem)
}

// SendMicAudio forwards one chunk of microphone audio.
func (e *Engine) SendMicAudio(ctx context.Context, pcm []byte) Result {
	return e.sendAudio(ctx, pcm, audio.SourceMicrophone)
}

func (e *Engine) sendAudio(ctx context.Context, pcm []byte, src audio.Source) Result {
	if len(pcm) == 0 {
		return fail(core.NewInvalidRequestError("audio must not be empty"))
	}
	sess, err := e.liveChannel()
	if err != nil {
		return fail(err)
	}
	p := AudioPayload{Data: pcm, MIMEType: sess.config.Format.MIMEType(), Source: src}
	if err := sess.channel.Send(ctx, p); err != nil {
		return fail(core.NewChannelError("send audio: "+err.Error(), err))
	}
	return ok()
}

// SendImage forwards a JPEG image.
func (e *Engine) SendImage(ctx context.Context, jpeg []byte) Result {
	if len(jpeg) == 0 {
		return fail(core.NewInvalidRequestError("image must not be empty"))
	}
	return e.send(ctx, ImagePayload{Data: jpeg, MIMEType: ImageMIMEType})
}

// StartCapture starts system-audio capture. Captured chunks are forwarded
// while the session is live and dropped otherwise.
func (e *Engine) StartCapture() Result {
	if e.capture == nil {
		return fail(core.NewPlatformUnsupportedError("system audio capture is not available"))
	}
	if err := e.capture.Start(e.forwardChunk); err != nil {
		e.logger.Warn("start audio capture", "err", err)
		return fail(err)
	}
	return ok()
}

// StopCapture stops system-audio capture. It is safe to call at any time.
func (e *Engine) StopCapture() {
	if e.capture != nil {
		e.capture.Stop()
	}
}

func (e *Engine) forwardChunk(c audio.Chunk) {
	sess, err := e.liveChannel()
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), sess.config.SendTimeout)
	defer cancel()
	p := AudioPayload{Data: c.Data, MIMEType: sess.config.Format.MIMEType(), Source: c.Source}
	if err := sess.channel.Send(ctx, p); err != nil {
		e.logger.Debug("forward capture chunk", "seq", c.Seq, "err", err)
	}
}

func (e *Engine) onCaptureStopped(err error) {
	e.notify(NotifyStatus, "Audio capture stopped: "+errorMessage(err))
}

// Close closes the open channel, aborts a connect in progress, stops capture
// and resets the transcript. The state ends in StateClosed. It is safe to call
// at any time.
func (e *Engine) Close() {
	e.mu.Lock()
	sess := e.active
	connecting := e.cancelConnect
	e.active = nil
	e.cancelConnect = nil
	e.gen++
	gen := e.gen
	if sess != nil {
		e.state = StateClosing
	}
	e.agg.ResetTurn()
	e.mu.Unlock()

	if connecting != nil {
		connecting()
	}
	e.StopCapture()
	if sess != nil {
		if err := sess.channel.Close(); err != nil {
			e.logger.Debug("close live channel", "session_id", sess.info.ID, "err", err)
		}
	}

	e.mu.Lock()
	if e.gen == gen {
		e.state = StateClosed
	}
	e.mu.Unlock()

	if sess != nil {
		e.logger.Info("live session closed", "session_id", sess.info.ID)
		e.notify(NotifyStatus, StatusClosed)
	}
}

// CurrentSession returns the logical history session id.
func (e *Engine) CurrentSession() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.historyID, e.historyID != ""
}

// StartNewSession begins a new logical history session without touching the
// channel.
func (e *Engine) StartNewSession() string {
	e.mu.Lock()
	e.historyID = e.newID()
	e.turnSeq = 0
	id := e.historyID
	e.agg.ResetTurn()
	e.mu.Unlock()

	e.logger.Info("started new history session", "history_id", id)
	return id
}

// UpdateSearchSetting changes the search setting used by the next Initialize.
func (e *Engine) UpdateSearchSetting(enabled bool) {
	e.mu.Lock()
	e.googleSearch = enabled
	e.mu.Unlock()
}

// Capturing reports whether system-audio capture is running.
func (e *Engine) Capturing() bool {
	return e.capture != nil && e.capture.Running()
}

// SearchEnabled reports the current search setting.
func (e *Engine) SearchEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.googleSearch
}

func (e *Engine) notify(kind NotificationKind, text string) {
	e.notifier.Notify(Notification{Kind: kind, Text: text})
}

func errorMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	var ce *core.Error
	if errors.As(err, &ce) {
		return ce.Message
	}
	return err.Error()
}
