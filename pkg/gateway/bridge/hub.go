package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vango-go/vai-copilot/pkg/core/live"
)

// Hub fans engine notifications out to every connected UI client. It
// implements live.Notifier.
type Hub struct {
	logger *slog.Logger

	mu       sync.Mutex
	clients  map[*client]struct{}
	wg       sync.WaitGroup
	draining atomic.Bool
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{logger: logger, clients: make(map[*client]struct{})}
}

func (h *Hub) register(c *client) (unregister func()) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.wg.Add(1)
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients, c)
			h.mu.Unlock()
			h.wg.Done()
		})
	}
}

func (h *Hub) snapshot() []*client {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Notify implements live.Notifier. A client whose queue is full misses the
// notification.
func (h *Hub) Notify(n live.Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		h.logger.Error("encode notification", "err", err)
		return
	}
	for _, c := range h.snapshot() {
		if !c.enqueue(payload) {
			h.logger.Warn("dropping notification for slow client", "client_id", c.id, "type", n.Kind)
		}
	}
}

// Drain refuses new clients from now on and disconnects the current ones.
// It returns how many clients were connected.
func (h *Hub) Drain() int {
	h.draining.Store(true)
	return h.CloseAll()
}

// Draining reports whether Drain was called.
func (h *Hub) Draining() bool {
	return h.draining.Load()
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() int {
	clients := h.snapshot()
	for _, c := range clients {
		c.cancel()
	}
	return len(clients)
}

// Wait blocks until every client has disconnected or ctx is done.
func (h *Hub) Wait(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.wg.Wait()
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
