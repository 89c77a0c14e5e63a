// Package widget is the customer side of the chat: one room at a time, resumed on mount.
package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"LiveDesk/entity"
	"LiveDesk/internal/lib/sl"
	"LiveDesk/internal/notify"
	"LiveDesk/internal/session"
)

const DefaultSubject = "Live Chat Support"

var ErrChatInProgress = errors.New("a chat is already open")

type Directory interface {
	Active(ctx context.Context) (*entity.Room, error)
	Start(ctx context.Context, req entity.StartRequest) (*entity.Room, error)
}

type Session interface {
	Attach(ctx context.Context, room entity.Room) error
	Close(ctx context.Context) error
	Discard() bool
	Detach()
	State() session.State
	SendChat(text string) bool
	SendTyping() bool
}

// Surface receives the widget visibility; *notify.Dispatcher implements it.
type Surface interface {
	SetMinimized(minimized bool)
	Opened()
	Unread() int
}

type Controller struct {
	log      *slog.Logger
	dir      Directory
	session  Session
	surface  Surface
	toaster  notify.Toaster
	identity entity.Identity
	subject  string

	mu        sync.Mutex
	minimized bool
	starting  bool
}

func New(log *slog.Logger, dir Directory, sess Session, surface Surface, toaster notify.Toaster, identity entity.Identity, subject string) *Controller {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Controller{
		log:      log.With(sl.Module("widget")),
		dir:      dir,
		session:  sess,
		surface:  surface,
		toaster:  toaster,
		identity: identity,
		subject:  subject,
	}
}

// Mount resumes the customer's open room, if the directory reports one. It reports whether a
// room was resumed.
func (c *Controller) Mount(ctx context.Context) (bool, error) {
	room, err := c.dir.Active(ctx)
	if err != nil {
		c.log.Warn("load active chat", sl.Err(err))
		return false, fmt.Errorf("load active chat: %w", err)
	}
	if room == nil || !room.IsOpen() {
		return false, nil
	}

	c.log.With(
		slog.String("room_id", room.ID),
		slog.String("status", string(room.Status)),
	).Info("resuming chat")
	if err = c.session.Attach(ctx, *room); err != nil {
		c.toast("Failed to load messages")
	}
	return true, err
}

// Open shows the chat surface for the first time.
func (c *Controller) Open() {
	c.mu.Lock()
	c.minimized = false
	c.mu.Unlock()
	if c.surface != nil {
		c.surface.SetMinimized(false)
		c.surface.Opened()
	}
}

// StartNewChat asks the directory for a new room. It is refused while a room is waiting or
// active; a closed room is discarded first.
func (c *Controller) StartNewChat(ctx context.Context) error {
	c.mu.Lock()
	if c.starting {
		c.mu.Unlock()
		return ErrChatInProgress
	}
	switch c.session.State() {
	case session.StateWaiting, session.StateActive:
		c.mu.Unlock()
		return ErrChatInProgress
	case session.StateClosed:
		c.session.Discard()
	}
	c.starting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.starting = false
		c.mu.Unlock()
	}()

	room, err := c.dir.Start(ctx, entity.StartRequest{
		Subject:  c.subject,
		UserName: c.identity.Name,
		Email:    c.identity.Email,
	})
	if err != nil {
		c.log.Warn("start chat", sl.Err(err))
		c.toast("Failed to start chat")
		return fmt.Errorf("start chat: %w", err)
	}
	c.log.With(slog.String("room_id", room.ID)).Info("chat started")

	if err = c.session.Attach(ctx, *room); err != nil {
		c.log.Warn("open new chat", sl.Err(err))
	}
	return nil
}

func (c *Controller) Send(text string) bool {
	return c.session.SendChat(text)
}

func (c *Controller) Typing() bool {
	return c.session.SendTyping()
}

// EndChat closes the room from the customer side.
func (c *Controller) EndChat(ctx context.Context) error {
	if err := c.session.Close(ctx); err != nil {
		c.log.Warn("end chat", sl.Err(err))
		c.toast("Failed to end chat")
		return err
	}
	return nil
}

// Discard forgets a closed room so a new chat can be started.
func (c *Controller) Discard() bool {
	return c.session.Discard()
}

// Minimize hides the chat panel. The socket stays open.
func (c *Controller) Minimize() {
	c.setMinimized(true)
}

// Expand shows the chat panel and clears the unread counter.
func (c *Controller) Expand() {
	c.setMinimized(false)
}

func (c *Controller) setMinimized(minimized bool) {
	c.mu.Lock()
	c.minimized = minimized
	c.mu.Unlock()
	if c.surface != nil {
		c.surface.SetMinimized(minimized)
	}
}

func (c *Controller) Minimized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.minimized
}

func (c *Controller) Unread() int {
	if c.surface == nil {
		return 0
	}
	return c.surface.Unread()
}

// Unmount releases the socket and timers.
func (c *Controller) Unmount() {
	c.session.Detach()
}

func (c *Controller) toast(body string) {
	if c.toaster != nil {
		c.toaster.Toast(notify.Toast{Title: "Error", Body: body})
	}
}
