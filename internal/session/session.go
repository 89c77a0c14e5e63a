// Package session is the chat engine shared by the customer widget and the staff console:
// it ties the room state machine, the message ledger, the typing indicator, the room socket
// and notification dispatch together for one open room.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"LiveDesk/entity"
	"LiveDesk/internal/ledger"
	"LiveDesk/internal/lib/sl"
	"LiveDesk/internal/ws"
)

// Directory is the part of the Room Directory a session calls.
type Directory interface {
	Messages(ctx context.Context, roomID string) ([]entity.Message, error)
	Close(ctx context.Context, roomID string) error
}

// Conn is a room socket as seen by the session.
type Conn interface {
	Send(ev entity.Event) bool
	Events() <-chan entity.Event
	Opened() <-chan struct{}
	Connected() bool
	Close()
}

// Dialer opens a room socket. It must not block on the handshake.
type Dialer func(ctx context.Context, params ws.Params) Conn

// Notifier receives inbound events that may need sound, toast or OS notification.
type Notifier interface {
	Dispatch(ev entity.Event)
}

// WebSocketDialer returns a Dialer backed by ws.Open.
func WebSocketDialer(log *slog.Logger, opts ws.Options) Dialer {
	return func(ctx context.Context, params ws.Params) Conn {
		return ws.Open(ctx, log, opts, params)
	}
}

type Options struct {
	Identity  entity.Identity
	SocketURL string

	TypingTimeout  time.Duration
	TypingThrottle time.Duration

	// ReconnectAttempts of zero keeps a dropped socket down until the room changes.
	ReconnectAttempts int
	ReconnectBackoff  time.Duration

	AfterFunc AfterFunc
	Now       func() time.Time
}

// View is an immutable snapshot for rendering.
type View struct {
	State     State
	Room      *entity.Room
	Messages  []entity.Message
	Connected bool
	Typing    bool
}

// Composer reports whether the message composer should be shown.
func (v View) Composer() bool {
	return v.State == StateWaiting || v.State == StateActive
}

type Session struct {
	log      *slog.Logger
	dir      Directory
	dial     Dialer
	notifier Notifier
	opts     Options

	mu       sync.Mutex
	machine  Machine
	ledger   *ledger.Ledger
	typing   *Typing
	conn     Conn
	connKey  string
	connGen  uint64
	retries  int
	retry    Stopper
	lastType time.Time

	updates chan struct{}
}

func New(log *slog.Logger, dir Directory, dial Dialer, notifier Notifier, opts Options) *Session {
	if opts.TypingTimeout <= 0 {
		opts.TypingTimeout = 3 * time.Second
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = realAfterFunc
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Session{
		log:      log.With(sl.Module("session"), slog.String("role", string(opts.Identity.Role))),
		dir:      dir,
		dial:     dial,
		notifier: notifier,
		opts:     opts,
		ledger:   ledger.New(),
		updates:  make(chan struct{}, 1),
	}
	s.typing = NewTyping(opts.TypingTimeout, opts.AfterFunc, func(bool) { s.changed() })
	return s
}

// Updates signals that Snapshot would return something new. Signals coalesce.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

func (s *Session) changed() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		State:    s.machine.State(),
		Messages: s.ledger.Messages(),
		Typing:   s.typing.Active(),
	}
	if room, ok := s.machine.Room(); ok {
		v.Room = &room
	}
	if s.conn != nil {
		v.Connected = s.conn.Connected()
	}
	return v
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.State()
}

// RoomID returns the current room id, or "" with no room.
func (s *Session) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.machine.Room(); ok {
		return room.ID
	}
	return ""
}

func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil && s.conn.Connected()
}

// Attach makes room the session's room: the history is loaded into the ledger first and the
// socket is opened afterwards, so no live event can race the replace. A history failure still
// leaves the room attached with an empty ledger and is returned to the caller.
func (s *Session) Attach(ctx context.Context, room entity.Room) error {
	s.mu.Lock()
	if current, ok := s.machine.Room(); ok && current.ID != room.ID {
		s.teardownLocked()
		s.machine.Reset()
	}
	s.machine.Hydrate(room)
	wanted := s.machine.SocketWanted()
	s.mu.Unlock()

	var histErr error
	if wanted {
		history, err := s.dir.Messages(ctx, room.ID)
		if err != nil {
			histErr = fmt.Errorf("load history: %w", err)
			s.log.With(slog.String("room_id", room.ID)).Warn("load history", sl.Err(err))
		}
		s.mu.Lock()
		if current, ok := s.machine.Room(); ok && current.ID == room.ID {
			s.ledger.Replace(history)
		}
		s.mu.Unlock()
	} else {
		s.ledger.Reset()
	}

	s.mu.Lock()
	s.syncChannelLocked()
	s.mu.Unlock()
	s.changed()
	return histErr
}

// Joined applies the room returned by a successful staff join.
func (s *Session) Joined(ctx context.Context, room entity.Room) error {
	return s.Attach(ctx, room)
}

// HandleEvent processes one inbound protocol event.
func (s *Session) HandleEvent(ev entity.Event) {
	s.mu.Lock()
	state := s.machine.State()
	if state == StateNone || state == StateClosed {
		s.mu.Unlock()
		return
	}
	if ev.RoomID != "" && ev.RoomID != s.roomIDLocked() {
		s.mu.Unlock()
		return
	}

	own := ev.SenderType == s.opts.Identity.Role
	transition := s.machine.Apply(ev)
	notify := false

	switch ev.Type {
	case entity.EventChat:
		if s.ledger.Append(ev.ToMessage()) && !own {
			notify = true
		}
	case entity.EventTyping:
		if !own {
			s.typing.Touch()
		}
	case entity.EventJoin:
		notify = transition.Changed() && !own
	}

	if transition.Changed() {
		s.log.With(
			slog.String("from", string(transition.From)),
			slog.String("to", string(transition.To)),
			slog.String("event", string(ev.Type)),
		).Info("room transition")
		if transition.To == StateClosed {
			s.typing.Clear()
		}
		s.syncChannelLocked()
	}
	s.mu.Unlock()

	if notify && s.notifier != nil {
		s.notifier.Dispatch(ev)
	}
	s.changed()
}

// SendChat sends text to the room. A sent message is appended at once; the server echo carries
// the same timestamp and sender, so the ledger absorbs it.
func (s *Session) SendChat(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	s.mu.Lock()
	room, ok := s.machine.Room()
	if !ok || !s.machine.SocketWanted() || s.conn == nil {
		s.mu.Unlock()
		return false
	}
	ev := entity.NewChatEvent(room.ID, s.opts.Identity, text, entity.Epoch(s.opts.Now()))
	sent := s.conn.Send(ev)
	if sent {
		s.ledger.Append(ev.ToMessage())
	}
	s.mu.Unlock()

	if sent {
		s.changed()
	}
	return sent
}

// SendTyping tells the counterpart the local user is composing, at most once per TypingThrottle.
func (s *Session) SendTyping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.machine.Room()
	if !ok || !s.machine.SocketWanted() || s.conn == nil {
		return false
	}
	now := s.opts.Now()
	if s.opts.TypingThrottle > 0 && !s.lastType.IsZero() && now.Sub(s.lastType) < s.opts.TypingThrottle {
		return false
	}
	if !s.conn.Send(entity.NewTypingEvent(room.ID, s.opts.Identity, entity.Epoch(now))) {
		return false
	}
	s.lastType = now
	return true
}

// Close ends the room through the directory. On success the room is closed locally and the
// socket released; on failure nothing changes.
func (s *Session) Close(ctx context.Context) error {
	roomID := s.RoomID()
	if roomID == "" {
		return fmt.Errorf("no room")
	}
	if err := s.dir.Close(ctx, roomID); err != nil {
		return fmt.Errorf("close room: %w", err)
	}

	s.mu.Lock()
	if s.roomIDLocked() == roomID {
		s.machine.Close(s.opts.Now())
		s.typing.Clear()
		s.syncChannelLocked()
	}
	s.mu.Unlock()
	s.changed()
	return nil
}

// Discard forgets a closed room so a new one can be started.
func (s *Session) Discard() bool {
	s.mu.Lock()
	t := s.machine.Discard()
	if t.Changed() {
		s.ledger.Reset()
		s.teardownLocked()
	}
	s.mu.Unlock()
	if t.Changed() {
		s.changed()
	}
	return t.Changed()
}

// Detach releases the socket, typing timer and pending reconnect, and forgets the room.
func (s *Session) Detach() {
	s.mu.Lock()
	s.teardownLocked()
	s.machine.Reset()
	s.ledger.Reset()
	s.mu.Unlock()
	s.changed()
}

func (s *Session) roomIDLocked() string {
	if room, ok := s.machine.Room(); ok {
		return room.ID
	}
	return ""
}

func (s *Session) teardownLocked() {
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connKey = ""
	s.connGen++
	s.retries = 0
	s.typing.Clear()
}

// syncChannelLocked keeps exactly one socket open per (room, status) while the room is open.
func (s *Session) syncChannelLocked() {
	room, ok := s.machine.Room()
	if !ok || !s.machine.SocketWanted() {
		if s.conn != nil || s.retry != nil {
			s.teardownLocked()
		}
		return
	}
	key := room.ID + "/" + string(room.Status)
	if key == s.connKey && (s.conn != nil || s.retry != nil) {
		return
	}
	s.teardownLocked()
	s.connKey = key
	s.openLocked(room)
}

func (s *Session) openLocked(room entity.Room) {
	params := ws.Params{
		BaseURL:  s.opts.SocketURL,
		RoomID:   room.ID,
		Name:     s.opts.Identity.Name,
		Token:    s.opts.Identity.Token,
		TenantID: s.opts.Identity.TenantID,
	}
	conn := s.dial(context.Background(), params)
	s.conn = conn
	gen := s.connGen
	go s.consume(conn, gen)
}

// consume is the single reader of one socket. Events from a superseded socket are ignored.
func (s *Session) consume(conn Conn, gen uint64) {
	events := conn.Events()
	opened := conn.Opened()
	for {
		select {
		case <-opened:
			opened = nil
			s.mu.Lock()
			if gen == s.connGen {
				s.retries = 0
			}
			s.mu.Unlock()
			s.changed()
		case ev, ok := <-events:
			if !ok {
				s.lost(gen)
				return
			}
			if !s.current(gen) {
				continue
			}
			s.HandleEvent(ev)
		}
	}
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.connGen
}

// lost runs when a socket's event stream ends without the session closing it.
func (s *Session) lost(gen uint64) {
	s.mu.Lock()
	defer s.changed()
	defer s.mu.Unlock()

	if gen != s.connGen || s.conn == nil {
		return
	}
	s.log.With(slog.String("room_id", s.roomIDLocked())).Info("socket lost")
	s.conn.Close()
	s.conn = nil

	if s.retries >= s.opts.ReconnectAttempts || !s.machine.SocketWanted() {
		return
	}
	s.retries++
	attempt := s.retries
	s.retry = s.opts.AfterFunc(s.opts.ReconnectBackoff, func() { s.reconnect(gen, attempt) })
}

// reconnect reloads the history before reopening, since nothing links events across sockets.
func (s *Session) reconnect(gen uint64, attempt int) {
	s.mu.Lock()
	room, ok := s.machine.Room()
	if gen != s.connGen || !ok || !s.machine.SocketWanted() {
		s.mu.Unlock()
		return
	}
	s.retry = nil
	s.mu.Unlock()

	s.log.With(slog.String("room_id", room.ID), slog.Int("attempt", attempt)).Info("reconnecting")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	history, err := s.dir.Messages(ctx, room.ID)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.connGen || s.conn != nil {
		return
	}
	if err == nil {
		s.ledger.Replace(history)
	} else {
		s.log.Warn("reload history", sl.Err(err))
	}
	s.openLocked(room)
	s.changed()
}
