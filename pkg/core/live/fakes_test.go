package live

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vango-go/vai-copilot/pkg/core/audio"
)

var errChannelClosed = errors.New("channel closed")

type fakeChannel struct {
	mu     sync.Mutex
	sent   []Payload
	events chan Event
	closed bool
	sendFn func(Payload) error
	once   sync.Once
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{events: make(chan Event, 16)}
}

func (c *fakeChannel) Send(ctx context.Context, p Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errChannelClosed
	}
	if c.sendFn != nil {
		if err := c.sendFn(p); err != nil {
			return err
		}
	}
	c.sent = append(c.sent, p)
	return nil
}

func (c *fakeChannel) Events() <-chan Event { return c.events }

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.once.Do(func() { close(c.events) })
	return nil
}

// endStream simulates the upstream closing the stream.
func (c *fakeChannel) endStream() {
	c.once.Do(func() { close(c.events) })
}

func (c *fakeChannel) payloads() []Payload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Payload(nil), c.sent...)
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeDialer struct {
	mu       sync.Mutex
	channels []*fakeChannel
	requests []DialRequest
	err      error
	block    bool
	// preload is queued on each new channel before Dial returns.
	preload []Event
}

func (d *fakeDialer) Dial(ctx context.Context, req DialRequest) (Channel, error) {
	d.mu.Lock()
	d.requests = append(d.requests, req)
	err, block := d.err, d.block
	d.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	ch := newFakeChannel()
	d.mu.Lock()
	for _, ev := range d.preload {
		ch.events <- ev
	}
	d.channels = append(d.channels, ch)
	d.mu.Unlock()
	return ch, nil
}

func (d *fakeDialer) last() *fakeChannel {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.channels) == 0 {
		return nil
	}
	return d.channels[len(d.channels)-1]
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.requests)
}

func (d *fakeDialer) setBlock(block bool) {
	d.mu.Lock()
	d.block = block
	d.mu.Unlock()
}

func (d *fakeDialer) lastRequest() DialRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requests[len(d.requests)-1]
}

type fakeTokens struct {
	session BackendSession
	err     error
}

func (f fakeTokens) FetchBackendSession(ctx context.Context, creds Credentials) (BackendSession, error) {
	if f.err != nil {
		return BackendSession{}, f.err
	}
	return f.session, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	items []Notification
}

func (r *recordingNotifier) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *recordingNotifier) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

func (r *recordingNotifier) waitFor(t *testing.T, n int) []Notification {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if items := r.all(); len(items) >= n {
			return items
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected %d notifications, got %v", n, r.all())
	return nil
}

type fakeCapture struct {
	mu        sync.Mutex
	sink      func(audio.Chunk)
	startErr  error
	starts    int
	stops     int
	onStopped func(error)
}

func (c *fakeCapture) Start(sink func(audio.Chunk)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startErr != nil {
		return c.startErr
	}
	c.starts++
	c.sink = sink
	return nil
}

func (c *fakeCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
	c.sink = nil
}

func (c *fakeCapture) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sink != nil
}

func (c *fakeCapture) SetOnStopped(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStopped = fn
}

func (c *fakeCapture) emit(chunk audio.Chunk) {
	c.mu.Lock()
	sink := c.sink
	c.mu.Unlock()
	if sink != nil {
		sink(chunk)
	}
}

type memHistory struct {
	mu    sync.Mutex
	turns []ConversationTurn
}

func (h *memHistory) AppendConversationTurn(ctx context.Context, turn ConversationTurn) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, turn)
	return nil
}

func (h *memHistory) all() []ConversationTurn {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ConversationTurn(nil), h.turns...)
}

type memUsage struct {
	mu     sync.Mutex
	counts map[string]int
}

func (u *memUsage) IncrementUsage(ctx context.Context, model string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.counts == nil {
		u.counts = map[string]int{}
	}
	u.counts[model]++
	return nil
}

func (u *memUsage) count(model string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.counts[model]
}
