// Package bridge exposes the live engine to the desktop UI over a local
// websocket. Clients send JSON commands and receive one result frame per
// command. Engine notifications are broadcast to every connected client.
package bridge

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-go/vai-copilot/pkg/core/live"
	"github.com/vango-go/vai-copilot/pkg/gateway/mw"
)

// Engine is the command surface the bridge drives. *live.Engine implements it.
type Engine interface {
	Initialize(ctx context.Context, creds live.Credentials, cfg live.SessionConfig, profile string) bool
	SendText(ctx context.Context, text string) live.Result
	SendAudio(ctx context.Context, pcm []byte) live.Result
	SendMicAudio(ctx context.Context, pcm []byte) live.Result
	SendImage(ctx context.Context, jpeg []byte) live.Result
	StartCapture() live.Result
	StopCapture()
	Close()
	CurrentSession() (string, bool)
	StartNewSession() string
	UpdateSearchSetting(enabled bool)
	State() live.State
}

// Options tune the websocket transport.
type Options struct {
	MaxMessageBytes int64
	WriteTimeout    time.Duration
	PingInterval    time.Duration
	SendQueueSize   int
	AllowedOrigins  []string
}

func (o Options) withDefaults() Options {
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 8 << 20
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 20 * time.Second
	}
	if o.SendQueueSize <= 0 {
		o.SendQueueSize = 64
	}
	return o
}

// Defaults fill in whatever an initialize command leaves empty.
type Defaults struct {
	Credentials live.Credentials
	Session     live.SessionConfig
	Profile     string
}

// Handler serves /v1/ws.
type Handler struct {
	engine Engine
	hub    *Hub
	opts   Options
	logger *slog.Logger

	mu       sync.RWMutex
	defaults Defaults
}

func NewHandler(engine Engine, hub *Hub, opts Options, defaults Defaults, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if hub == nil {
		hub = NewHub(logger)
	}
	return &Handler{
		engine:   engine,
		hub:      hub,
		opts:     opts.withDefaults(),
		logger:   logger,
		defaults: defaults,
	}
}

// SetDefaults replaces the initialize defaults for subsequent commands.
func (h *Handler) SetDefaults(d Defaults) {
	h.mu.Lock()
	h.defaults = d
	h.mu.Unlock()
}

func (h *Handler) currentDefaults() Defaults {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.defaults
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	if r.Method != http.MethodGet {
		mw.WriteJSONError(w, http.StatusMethodNotAllowed, mw.ErrorBody{Type: "invalid_request_error", Message: "method not allowed", RequestID: reqID})
		return
	}
	if h.hub.Draining() {
		mw.WriteJSONError(w, http.StatusServiceUnavailable, mw.ErrorBody{Type: "unavailable", Message: "bridge is shutting down", RequestID: reqID})
		return
	}
	if !originAllowed(r.Header.Get("Origin"), h.opts.AllowedOrigins) {
		mw.WriteJSONError(w, http.StatusForbidden, mw.ErrorBody{Type: "permission_error", Message: "origin is not allowed", RequestID: reqID})
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	h.serve(r.Context(), conn)
}

func (h *Handler) serve(ctx context.Context, ws wsConn) {
	c := newClient(ctx, uuid.NewString(), ws, h.opts, h.logger)
	unregister := h.hub.register(c)
	defer unregister()

	h.logger.Info("bridge client connected", "client_id", c.id, "clients", h.hub.Count())

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		if err := c.writeLoop(); err != nil {
			h.logger.Debug("bridge write ended", "client_id", c.id, "err", err)
		}
		c.cancel()
		// Unblocks the read loop.
		_ = ws.Close()
	}()

	var inflight sync.WaitGroup
	c.readLoop(func(data []byte) { h.dispatch(c, &inflight, data) })

	c.cancel()
	<-writeDone
	inflight.Wait()
	h.logger.Info("bridge client disconnected", "client_id", c.id)
}

func (h *Handler) dispatch(c *client, inflight *sync.WaitGroup, data []byte) {
	cmd, err := DecodeCommand(data)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			c.send(ErrorFrame{Type: FrameError, ID: cmd.ID, Code: de.Code, Message: de.Message, Param: de.Param})
		}
		return
	}

	// Connecting can take seconds. Running it off the read loop keeps close
	// and stop_capture responsive meanwhile.
	if cmd.Cmd == CmdInitialize {
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			c.send(h.initialize(context.WithoutCancel(c.ctx), cmd))
		}()
		return
	}
	c.send(h.execute(c.ctx, cmd))
}

func (h *Handler) initialize(ctx context.Context, cmd Command) ResultFrame {
	d := h.currentDefaults()
	creds := d.Credentials
	if cmd.Credentials != nil {
		if cmd.Credentials.APIKey != "" {
			creds.APIKey = cmd.Credentials.APIKey
		}
		if cmd.Credentials.AccessToken != "" {
			creds.AccessToken = cmd.Credentials.AccessToken
		}
	}
	cfg := d.Session
	profile := d.Profile
	if o := cmd.Options; o != nil {
		if o.Model != "" {
			cfg.Model = o.Model
		}
		if o.LanguageCode != "" {
			cfg.LanguageCode = o.LanguageCode
		}
		if o.CustomPrompt != "" {
			cfg.CustomPrompt = o.CustomPrompt
		}
		if o.Profile != "" {
			profile = o.Profile
		}
	}

	okay := h.engine.Initialize(ctx, creds, cfg, profile)
	frame := ResultFrame{Type: FrameResult, ID: cmd.ID, Cmd: cmd.Cmd, Success: okay, State: h.engine.State().String()}
	if okay {
		frame.SessionID, _ = h.engine.CurrentSession()
	} else {
		frame.Error = "failed to initialize session"
	}
	return frame
}

func (h *Handler) execute(ctx context.Context, cmd Command) ResultFrame {
	switch cmd.Cmd {
	case CmdSendText:
		return resultFrom(cmd, h.engine.SendText(ctx, cmd.Text))
	case CmdSendAudio:
		return resultFrom(cmd, h.engine.SendAudio(ctx, cmd.Data))
	case CmdSendMicAudio:
		return resultFrom(cmd, h.engine.SendMicAudio(ctx, cmd.Data))
	case CmdSendImage:
		return resultFrom(cmd, h.engine.SendImage(ctx, cmd.Data))
	case CmdStartCapture:
		return resultFrom(cmd, h.engine.StartCapture())
	case CmdStopCapture:
		h.engine.StopCapture()
		return resultFrom(cmd, live.Result{Success: true})
	case CmdClose:
		h.engine.Close()
		frame := resultFrom(cmd, live.Result{Success: true})
		frame.State = h.engine.State().String()
		return frame
	case CmdGetCurrentSession:
		id, ok := h.engine.CurrentSession()
		frame := resultFrom(cmd, live.Result{Success: ok})
		frame.SessionID = id
		if !ok {
			frame.Error = "no session"
		}
		return frame
	case CmdStartNewSession:
		frame := resultFrom(cmd, live.Result{Success: true})
		frame.SessionID = h.engine.StartNewSession()
		return frame
	case CmdUpdateSearchSetting:
		h.engine.UpdateSearchSetting(*cmd.Enabled)
		frame := resultFrom(cmd, live.Result{Success: true})
		frame.Enabled = cmd.Enabled
		return frame
	case CmdGetState:
		frame := resultFrom(cmd, live.Result{Success: true})
		frame.State = h.engine.State().String()
		return frame
	default:
		return resultFrom(cmd, live.Result{Error: "unknown command"})
	}
}

// originAllowed accepts native clients (no Origin), file:// pages, loopback
// pages and the configured origins.
func originAllowed(origin string, allowed []string) bool {
	origin = strings.TrimSpace(origin)
	if origin == "" || origin == "file://" {
		return true
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
