// Package notify turns inbound chat events into sound, toast, unread count and OS notification.
package notify

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"LiveDesk/entity"
	"LiveDesk/internal/lib/sl"
)

const DefaultToastLength = 50

type Toast struct {
	Title string
	Body  string
}

type Beeper interface {
	Beep()
}

type Toaster interface {
	Toast(t Toast)
}

// Notifier delivers OS-level notifications, shown even when the chat surface is hidden.
type Notifier interface {
	Notify(title, body string)
}

type SoundPref interface {
	SoundEnabled() bool
}

// Surface is what the user currently sees of the chat.
type Surface struct {
	Minimized bool
	Hidden    bool
}

// Decision lists the side effects of one event.
type Decision struct {
	Beep   bool
	Toast  *Toast
	OS     bool
	Unread bool
}

func (d Decision) Empty() bool {
	return !d.Beep && d.Toast == nil && !d.OS && !d.Unread
}

// Decide applies the notification rules of role to ev.
// Only events from the counterpart role produce anything.
func Decide(role entity.Role, ev entity.Event, surface Surface, sound bool, toastLength int) Decision {
	var d Decision
	if ev.SenderType != role.Counterpart() {
		return d
	}

	switch role {
	case entity.AdminRole:
		if ev.Type != entity.EventChat {
			return d
		}
		d.Beep = sound
		d.Toast = &Toast{Title: senderTitle(ev), Body: Truncate(ev.Message, toastLength)}
		d.OS = surface.Hidden
	case entity.UserRole:
		switch ev.Type {
		case entity.EventChat:
			d.Beep = sound
			if surface.Minimized {
				d.Toast = &Toast{Title: senderTitle(ev), Body: Truncate(ev.Message, toastLength)}
				d.Unread = true
			}
		case entity.EventJoin:
			d.Beep = sound
			d.Toast = &Toast{Title: "Support", Body: fmt.Sprintf("%s joined the chat", senderTitle(ev))}
		}
	}
	return d
}

func senderTitle(ev entity.Event) string {
	if ev.SenderName != "" {
		return ev.SenderName
	}
	if ev.SenderType == entity.AdminRole {
		return "Support"
	}
	return "Customer"
}

// Truncate cuts s to n runes and appends "..." when it was longer.
func Truncate(s string, n int) string {
	if n <= 0 {
		n = DefaultToastLength
	}
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}

// Dispatcher applies Decide against the live surface state and runs the sinks.
type Dispatcher struct {
	log         *slog.Logger
	role        entity.Role
	sound       SoundPref
	beeper      Beeper
	toaster     Toaster
	notifier    Notifier
	toastLength int

	mu      sync.Mutex
	surface Surface
	unread  int
	opened  bool
}

// Sinks that are nil are skipped.
type Sinks struct {
	Beeper   Beeper
	Toaster  Toaster
	Notifier Notifier
}

func NewDispatcher(log *slog.Logger, role entity.Role, sound SoundPref, sinks Sinks, toastLength int) *Dispatcher {
	return &Dispatcher{
		log:         log.With(sl.Module("notify"), slog.String("role", string(role))),
		role:        role,
		sound:       sound,
		beeper:      sinks.Beeper,
		toaster:     sinks.Toaster,
		notifier:    sinks.Notifier,
		toastLength: toastLength,
	}
}

// Dispatch handles one inbound event.
func (d *Dispatcher) Dispatch(ev entity.Event) {
	d.dispatch(ev)
}

func (d *Dispatcher) dispatch(ev entity.Event) Decision {
	sound := d.sound == nil || d.sound.SoundEnabled()

	d.mu.Lock()
	dec := Decide(d.role, ev, d.surface, sound, d.toastLength)
	if dec.Unread {
		d.unread++
	}
	d.mu.Unlock()

	if dec.Empty() {
		return dec
	}
	d.log.With(
		slog.String("type", string(ev.Type)),
		slog.String("room_id", ev.RoomID),
		slog.Bool("beep", dec.Beep),
		slog.Bool("os", dec.OS),
	).Debug("notification")

	if dec.Beep && d.beeper != nil {
		d.beeper.Beep()
	}
	if dec.Toast != nil && d.toaster != nil {
		d.toaster.Toast(*dec.Toast)
	}
	if dec.OS && d.notifier != nil {
		d.notifier.Notify(dec.Toast.Title, dec.Toast.Body)
	}
	return dec
}

// SetMinimized records the widget visibility. Expanding resets the unread counter.
func (d *Dispatcher) SetMinimized(minimized bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.surface.Minimized && !minimized {
		d.unread = 0
	}
	d.surface.Minimized = minimized
}

// SetHidden records whether the console window is out of view.
func (d *Dispatcher) SetHidden(hidden bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.surface.Hidden = hidden
}

// Opened marks the chat surface as shown. The first call resets the unread counter.
func (d *Dispatcher) Opened() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		d.opened = true
		d.unread = 0
	}
}

func (d *Dispatcher) Unread() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unread
}

func (d *Dispatcher) Surface() Surface {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.surface
}
