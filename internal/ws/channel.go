package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"LiveDesk/entity"
	"LiveDesk/internal/lib/sl"
)

const (
	sendQueueSize   = 256
	eventQueueSize  = 256
	maxSampleLength = 256
)

type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// Options tune the socket; zero values fall back to the package defaults.
type Options struct {
	HandshakeTimeout time.Duration
	PingPeriod       time.Duration
	PongWait         time.Duration
	WriteWait        time.Duration
	MaxMessageSize   int64
}

func (o Options) withDefaults() Options {
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	if o.PongWait <= 0 {
		o.PongWait = pongWait
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	if o.WriteWait <= 0 {
		o.WriteWait = writeWait
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 64 * 1024
	}
	return o
}

// Params identify one room-session connection. Auth values are passed in explicitly.
type Params struct {
	BaseURL  string
	RoomID   string
	Name     string
	Token    string
	TenantID string
}

// URL builds {base}/chat/{room}/ws?name=..&token=..&tenant_id=..; http(s) bases are mapped to ws(s).
func (p Params) URL() (string, error) {
	base, err := url.Parse(strings.TrimRight(p.BaseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch base.Scheme {
	case "http":
		base.Scheme = "ws"
	case "https":
		base.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", base.Scheme)
	}
	if p.RoomID == "" {
		return "", fmt.Errorf("room id is required")
	}
	base.Path = base.Path + "/chat/" + url.PathEscape(p.RoomID) + "/ws"

	q := url.Values{}
	q.Set("name", p.Name)
	q.Set("token", p.Token)
	q.Set("tenant_id", p.TenantID)
	base.RawQuery = q.Encode()
	return base.String(), nil
}

// Channel owns one WebSocket for one room-session. It never reports errors to its owner:
// failures leave it closed and its Events channel closed.
type Channel struct {
	log    *slog.Logger
	opts   Options
	params Params

	mu   sync.Mutex
	conn *websocket.Conn

	state     atomic.Int32
	send      chan []byte
	events    chan entity.Event
	opened    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	cancel    context.CancelFunc
	handled   atomic.Bool
}

// Open starts a connection attempt in the background and returns immediately.
func Open(ctx context.Context, log *slog.Logger, opts Options, params Params) *Channel {
	ctx, cancel := context.WithCancel(ctx)
	c := &Channel{
		log:    log.With(sl.Module("ws.channel"), slog.String("room_id", params.RoomID)),
		opts:   opts.withDefaults(),
		params: params,
		send:   make(chan []byte, sendQueueSize),
		events: make(chan entity.Event, eventQueueSize),
		opened: make(chan struct{}),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	c.state.Store(int32(StateConnecting))

	go c.connect(ctx)
	return c
}

func (c *Channel) connect(ctx context.Context) {
	endpoint, err := c.params.URL()
	if err != nil {
		c.log.Warn("build socket url", sl.Err(err))
		c.state.Store(int32(StateClosed))
		close(c.events)
		return
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.opts.HandshakeTimeout,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		c.log.With(sl.Secret("token", c.params.Token)).Warn("socket dial", sl.Err(err))
		c.state.Store(int32(StateClosed))
		close(c.events)
		return
	}

	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		_ = conn.Close()
		c.state.Store(int32(StateClosed))
		close(c.events)
		return
	default:
	}
	c.conn = conn
	c.state.Store(int32(StateOpen))
	close(c.opened)
	c.mu.Unlock()

	c.log.Debug("socket open")

	go c.writePump(conn)
	c.readPump(conn)
}

// readPump decodes inbound frames in receive order. Undecodable frames are logged and dropped.
func (c *Channel) readPump(conn *websocket.Conn) {
	defer func() {
		c.state.Store(int32(StateClosed))
		_ = conn.Close()
		close(c.events)
		c.log.Debug("socket closed")
	}()

	conn.SetReadLimit(c.opts.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Info("socket read", sl.Err(err))
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		ev, err := decodeEvent(data)
		if err != nil {
			c.log.With(
				slog.String("sample", sample(data)),
				slog.Int("len", len(data)),
			).Warn("drop inbound frame", sl.Err(err))
			continue
		}
		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}

func (c *Channel) writePump(conn *websocket.Conn) {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			w, err := conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Send queues ev for writing. Events are dropped silently unless the socket is open.
func (c *Channel) Send(ev entity.Event) bool {
	if c.State() != StateOpen {
		return false
	}
	data, err := json.Marshal(ev)
	if err != nil {
		c.log.Error("marshal event", sl.Err(err))
		return false
	}
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		c.log.Warn("send queue full, event dropped", slog.String("type", string(ev.Type)))
		return false
	}
}

// Events yields decoded inbound events and is closed when the socket goes down.
// It is meant for a single consumer.
func (c *Channel) Events() <-chan entity.Event {
	return c.events
}

// OnEvent consumes Events on a new goroutine, calling h once per frame in receive order.
// Only the first registration takes effect.
func (c *Channel) OnEvent(h func(entity.Event)) {
	if !c.handled.CompareAndSwap(false, true) {
		return
	}
	go func() {
		for ev := range c.events {
			h(ev)
		}
	}()
}

func (c *Channel) State() State {
	return State(c.state.Load())
}

func (c *Channel) Connected() bool {
	return c.State() == StateOpen
}

// Opened is closed once the handshake has completed.
func (c *Channel) Opened() <-chan struct{} {
	return c.opened
}

// Done is closed once Close has been called.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Close tears the socket down and stops event delivery. It is safe to call more than once.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		close(c.done)
		conn := c.conn
		c.mu.Unlock()

		c.cancel()
		c.state.Store(int32(StateClosed))
		if conn != nil {
			// writePump sends the close frame; the read side unblocks when the peer answers
			// or the deadline passes.
			_ = conn.SetReadDeadline(time.Now().Add(c.opts.WriteWait))
		}
	})
}

func decodeEvent(data []byte) (entity.Event, error) {
	var ev entity.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, fmt.Errorf("unmarshal frame: %w", err)
	}
	if err := ev.Validate(); err != nil {
		return ev, fmt.Errorf("invalid frame: %w", err)
	}
	return ev, nil
}

func sample(data []byte) string {
	if len(data) > maxSampleLength {
		data = data[:maxSampleLength]
	}
	return string(data)
}
