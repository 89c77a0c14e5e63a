// Package terminal is a line-oriented front end for the widget and console controllers.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"LiveDesk/entity"
	"LiveDesk/internal/lib/sl"
	"LiveDesk/internal/notify"
	"LiveDesk/internal/session"
)

// View is what the terminal renders of a session.
type View interface {
	Updates() <-chan struct{}
	Snapshot() session.View
}

// Sound toggles the persisted sound preference.
type Sound interface {
	ToggleSound() (bool, error)
}

type Terminal struct {
	log *slog.Logger
	in  io.Reader

	mu  sync.Mutex
	out io.Writer
}

func New(log *slog.Logger, in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		log: log.With(sl.Module("terminal")),
		in:  in,
		out: out,
	}
}

func (t *Terminal) Printf(format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = fmt.Fprintf(t.out, format+"\n", args...)
}

// Toast prints an in-app toast.
func (t *Terminal) Toast(n notify.Toast) {
	t.Printf("[%s] %s", n.Title, n.Body)
}

// Watch renders session changes until ctx ends: new messages, status, typing and the Online badge.
func (t *Terminal) Watch(ctx context.Context, v View) {
	r := &renderer{t: t, seen: make(map[string]bool)}
	r.render(v.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return
		case <-v.Updates():
			r.render(v.Snapshot())
		}
	}
}

type renderer struct {
	t         *Terminal
	roomID    string
	state     session.State
	connected bool
	typing    bool
	seen      map[string]bool
}

func (r *renderer) render(v session.View) {
	roomID := ""
	if v.Room != nil {
		roomID = v.Room.ID
	}
	if roomID != r.roomID {
		r.roomID = roomID
		r.seen = make(map[string]bool)
	}

	if v.State != r.state {
		r.state = v.State
		switch {
		case v.Room == nil:
			r.t.Printf("-- no chat")
		case v.State == session.StateActive && v.Room.AdminName != "":
			r.t.Printf("-- chat %s is active with %s", v.Room.ID, v.Room.AdminName)
		default:
			r.t.Printf("-- chat %s is %s", v.Room.ID, v.State)
		}
	}

	if v.Connected != r.connected {
		r.connected = v.Connected
		if v.Connected {
			r.t.Printf("-- online")
		} else if v.Composer() {
			r.t.Printf("-- offline")
		}
	}

	for _, m := range v.Messages {
		if r.seen[m.ID] {
			continue
		}
		r.seen[m.ID] = true
		r.t.Printf("%s %s: %s", m.CreatedAt.Local().Format("15:04"), senderLabel(m), m.Message)
	}

	if v.Typing != r.typing {
		r.typing = v.Typing
		if v.Typing {
			r.t.Printf("-- typing...")
		}
	}
}

func senderLabel(m entity.Message) string {
	if m.SenderName != "" {
		return m.SenderName
	}
	return string(m.SenderType)
}

// readLines feeds input lines to handle until it returns false, input ends or ctx is done.
func (t *Terminal) readLines(ctx context.Context, handle func(line string) bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	errs := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(t.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errs <- scanner.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-errs
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if !handle(line) {
				return nil
			}
		}
	}
}

func command(line string) (string, string) {
	name, arg, _ := strings.Cut(line, " ")
	return strings.ToLower(name), strings.TrimSpace(arg)
}

func (t *Terminal) toggleSound(s Sound) {
	on, err := s.ToggleSound()
	if err != nil {
		t.log.Warn("save sound preference", sl.Err(err))
	}
	if on {
		t.Printf("-- sound on")
	} else {
		t.Printf("-- sound off")
	}
}

func (t *Terminal) printRooms(title string, rooms []entity.Room) {
	sort.SliceStable(rooms, func(i, j int) bool { return rooms[i].CreatedAt.Before(rooms[j].CreatedAt) })
	t.Printf("%s (%d)", title, len(rooms))
	for _, r := range rooms {
		line := fmt.Sprintf("  %s  %s", r.ID, r.UserName)
		if r.AdminName != "" {
			line += " / " + r.AdminName
		}
		if r.LastMessage != "" {
			line += "  \"" + notify.Truncate(r.LastMessage, 30) + "\""
		}
		t.Printf("%s", line)
	}
}
