package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

type wsConn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// client is one connected UI. A single writer goroutine owns all writes.
type client struct {
	id     string
	ws     wsConn
	opts   Options
	logger *slog.Logger

	out    chan []byte
	ctx    context.Context
	cancel context.CancelFunc
}

func newClient(parent context.Context, id string, ws wsConn, opts Options, logger *slog.Logger) *client {
	ctx, cancel := context.WithCancel(parent)
	return &client{
		id:     id,
		ws:     ws,
		opts:   opts,
		logger: logger,
		out:    make(chan []byte, opts.SendQueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *client) enqueue(payload []byte) bool {
	if c.ctx.Err() != nil {
		return false
	}
	select {
	case c.out <- payload:
		return true
	default:
		return false
	}
}

func (c *client) send(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("encode frame", "client_id", c.id, "err", err)
		return
	}
	if !c.enqueue(payload) {
		c.logger.Warn("dropping frame for slow client", "client_id", c.id)
	}
}

func (c *client) writeLoop() error {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			c.flushOnShutdown()
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.opts.WriteTimeout))
			return nil
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(c.opts.WriteTimeout)); err != nil {
				return err
			}
		case payload := <-c.out:
			if err := c.write(payload); err != nil {
				return err
			}
		}
	}
}

func (c *client) write(payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// flushOnShutdown writes whatever is already queued, bounded in time.
func (c *client) flushOnShutdown() {
	deadline := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		select {
		case payload := <-c.out:
			if err := c.write(payload); err != nil {
				return
			}
		default:
			return
		}
	}
}

// readLoop feeds text frames to handle until the connection fails or the
// client is canceled.
func (c *client) readLoop(handle func([]byte)) {
	readWait := 2 * c.opts.PingInterval
	c.ws.SetReadLimit(c.opts.MaxMessageBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(readWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(readWait))
	})

	for c.ctx.Err() == nil {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && c.ctx.Err() == nil {
				c.logger.Debug("bridge read ended", "client_id", c.id, "err", err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(readWait))
		if messageType != websocket.TextMessage {
			c.send(ErrorFrame{Type: FrameError, Code: "unsupported", Message: "binary frames are not supported"})
			continue
		}
		handle(data)
	}
}
