// Package console is the staff side of the chat: the waiting and active queues, claiming a room,
// and the one room currently open.
package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"LiveDesk/entity"
	"LiveDesk/internal/lib/sl"
	"LiveDesk/internal/notify"
	"LiveDesk/internal/session"
)

var (
	ErrJoinInFlight = errors.New("join already in progress")
	ErrNotListed    = errors.New("room is not in the active list")
	ErrNoSelection  = errors.New("no room selected")
)

type Directory interface {
	Waiting(ctx context.Context) ([]entity.Room, error)
	ActiveRooms(ctx context.Context) ([]entity.Room, error)
	Join(ctx context.Context, roomID string) (*entity.Room, error)
}

// Session is the chat engine driving the selected room.
type Session interface {
	Attach(ctx context.Context, room entity.Room) error
	Joined(ctx context.Context, room entity.Room) error
	Close(ctx context.Context) error
	Detach()
	RoomID() string
	State() session.State
}

// Ticker returns a tick channel and its stop function.
type Ticker func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

type Options struct {
	PollInterval time.Duration
	Ticker       Ticker
}

type Controller struct {
	log      *slog.Logger
	dir      Directory
	session  Session
	toaster  notify.Toaster
	interval time.Duration
	ticker   Ticker

	mu      sync.Mutex
	waiting []entity.Room
	active  []entity.Room
	joining bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	updates chan struct{}
}

func New(log *slog.Logger, dir Directory, sess Session, toaster notify.Toaster, opts Options) *Controller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.Ticker == nil {
		opts.Ticker = realTicker
	}
	return &Controller{
		log:      log.With(sl.Module("console")),
		dir:      dir,
		session:  sess,
		toaster:  toaster,
		interval: opts.PollInterval,
		ticker:   opts.Ticker,
		updates:  make(chan struct{}, 1),
	}
}

// Updates signals a change of the waiting or active list. Signals coalesce.
func (c *Controller) Updates() <-chan struct{} {
	return c.updates
}

func (c *Controller) changed() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

// Start refreshes both queues at once and then every poll interval until Stop or ctx ends.
// Polling continues while a room is open.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	c.Refresh(ctx)

	tick, stop := c.ticker(c.interval)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick:
				c.Refresh(ctx)
			}
		}
	}()
	c.log.With(slog.Duration("interval", c.interval)).Debug("polling started")
}

// Stop ends polling and releases the selected room's socket.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	c.session.Detach()
}

// Refresh reloads both queues. A failed read keeps the previous list.
func (c *Controller) Refresh(ctx context.Context) {
	c.refreshWaiting(ctx)
	c.refreshActive(ctx)
}

func (c *Controller) refreshWaiting(ctx context.Context) {
	rooms, err := c.dir.Waiting(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.log.Warn("load waiting chats", sl.Err(err))
		}
		return
	}
	c.mu.Lock()
	c.waiting = rooms
	c.mu.Unlock()
	c.changed()
}

func (c *Controller) refreshActive(ctx context.Context) {
	rooms, err := c.dir.ActiveRooms(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.log.Warn("load active chats", sl.Err(err))
		}
		return
	}
	c.mu.Lock()
	c.active = rooms
	c.mu.Unlock()
	c.changed()
}

func (c *Controller) Waiting() []entity.Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]entity.Room(nil), c.waiting...)
}

func (c *Controller) Active() []entity.Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]entity.Room(nil), c.active...)
}

// Selected returns the id of the open room, or "".
func (c *Controller) Selected() string {
	return c.session.RoomID()
}

// Join claims a waiting room and opens it. Only one join runs at a time. When the claim fails
// the waiting list is left as it is and a generic toast is shown.
func (c *Controller) Join(ctx context.Context, roomID string) error {
	c.mu.Lock()
	if c.joining {
		c.mu.Unlock()
		return ErrJoinInFlight
	}
	c.joining = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.joining = false
		c.mu.Unlock()
	}()

	log := c.log.With(slog.String("room_id", roomID))

	room, err := c.dir.Join(ctx, roomID)
	if err != nil {
		log.Warn("join chat", sl.Err(err))
		c.toast("Failed to join chat")
		return fmt.Errorf("join %s: %w", roomID, err)
	}

	c.mu.Lock()
	c.waiting = without(c.waiting, roomID)
	c.mu.Unlock()
	c.changed()

	if err = c.session.Joined(ctx, *room); err != nil {
		log.Warn("open joined chat", sl.Err(err))
	}
	log.Info("chat joined")

	c.refreshActive(ctx)
	return nil
}

// Select opens a room from the active list, replacing the previously open one.
func (c *Controller) Select(ctx context.Context, roomID string) error {
	if c.session.RoomID() == roomID {
		return nil
	}

	c.mu.Lock()
	room, ok := find(c.active, roomID)
	c.mu.Unlock()
	if !ok {
		return ErrNotListed
	}

	if err := c.session.Attach(ctx, room); err != nil {
		c.log.With(slog.String("room_id", roomID)).Warn("open chat", sl.Err(err))
		c.toast("Failed to load messages")
		return err
	}
	return nil
}

// Close ends the selected room, clears the selection and refreshes the active list.
// A room the customer already closed is only dismissed.
func (c *Controller) Close(ctx context.Context) error {
	roomID := c.session.RoomID()
	if roomID == "" {
		return ErrNoSelection
	}
	if c.session.State() == session.StateClosed {
		c.log.With(slog.String("room_id", roomID)).Debug("dismiss closed chat")
	} else if err := c.session.Close(ctx); err != nil {
		c.log.With(slog.String("room_id", roomID)).Warn("close chat", sl.Err(err))
		c.toast("Failed to close chat")
		return err
	}
	c.session.Detach()

	c.mu.Lock()
	c.active = without(c.active, roomID)
	c.mu.Unlock()
	c.changed()

	c.refreshActive(ctx)
	return nil
}

func (c *Controller) toast(body string) {
	if c.toaster != nil {
		c.toaster.Toast(notify.Toast{Title: "Error", Body: body})
	}
}

func without(rooms []entity.Room, id string) []entity.Room {
	out := make([]entity.Room, 0, len(rooms))
	for _, r := range rooms {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}

func find(rooms []entity.Room, id string) (entity.Room, bool) {
	for _, r := range rooms {
		if r.ID == id {
			return r, true
		}
	}
	return entity.Room{}, false
}
