package session

import (
	"context"
	"sync"
	"time"

	"LiveDesk/entity"
	"LiveDesk/internal/ws"
)

type manualTimer struct {
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

// manualClock drives AfterFunc callbacks and Now deterministically.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Unix(1700000000, 0)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Pending counts timers that have neither fired nor been stopped.
func (c *manualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

type fakeConn struct {
	mu        sync.Mutex
	params    ws.Params
	events    chan entity.Event
	opened    chan struct{}
	connected bool
	closed    bool
	sent      []entity.Event
}

func newFakeConn(params ws.Params) *fakeConn {
	c := &fakeConn{
		params:    params,
		events:    make(chan entity.Event, 16),
		opened:    make(chan struct{}),
		connected: true,
	}
	close(c.opened)
	return c
}

func (c *fakeConn) Send(ev entity.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return false
	}
	c.sent = append(c.sent, ev)
	return true
}

func (c *fakeConn) Events() <-chan entity.Event { return c.events }
func (c *fakeConn) Opened() <-chan struct{}     { return c.opened }

func (c *fakeConn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.closed = true
}

// drop simulates the server going away.
func (c *fakeConn) drop() {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	close(c.events)
}

func (c *fakeConn) Sent() []entity.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]entity.Event(nil), c.sent...)
}

func (c *fakeConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	trace *[]string
}

func (d *fakeDialer) Dial(_ context.Context, params ws.Params) Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := newFakeConn(params)
	d.conns = append(d.conns, c)
	if d.trace != nil {
		*d.trace = append(*d.trace, "dial")
	}
	return c
}

func (d *fakeDialer) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakeDialer) Last() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

type fakeDirectory struct {
	mu       sync.Mutex
	history  []entity.Message
	histErr  error
	closeErr error
	closed   []string
	fetches  int
	trace    *[]string
}

func (d *fakeDirectory) Messages(_ context.Context, _ string) ([]entity.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fetches++
	if d.trace != nil {
		*d.trace = append(*d.trace, "history")
	}
	return append([]entity.Message(nil), d.history...), d.histErr
}

func (d *fakeDirectory) Close(_ context.Context, roomID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closeErr != nil {
		return d.closeErr
	}
	d.closed = append(d.closed, roomID)
	return nil
}

func (d *fakeDirectory) Fetches() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fetches
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []entity.Event
}

func (n *recordingNotifier) Dispatch(ev entity.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func waitUntil(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
