package terminal

import (
	"context"
	"errors"
	"strings"

	"LiveDesk/entity"
	"LiveDesk/internal/console"
)

const consoleHelp = `commands: /list  /refresh  /join <id>  /open <id>  /close  /hide  /show  /sound  /quit  (anything else is sent)`

// Hider tells the notifier whether the console is out of view.
type Hider interface {
	SetHidden(hidden bool)
}

// Sender is the part of the session the console prompt writes to.
type Sender interface {
	SendChat(text string) bool
}

// RunConsole drives the staff console from the input lines.
func (t *Terminal) RunConsole(ctx context.Context, c *console.Controller, v View, send Sender, hider Hider, sound Sound) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer c.Stop()

	c.Start(ctx)
	go t.Watch(ctx, v)
	go t.watchQueues(ctx, c)
	t.Printf("%s", consoleHelp)

	return t.readLines(ctx, func(line string) bool {
		if line[0] != '/' {
			if !send.SendChat(line) {
				t.Printf("-- not sent")
			}
			return true
		}

		name, arg := command(line)
		switch name {
		case "/list":
			t.printRooms("waiting", c.Waiting())
			t.printRooms("active", c.Active())
		case "/refresh":
			c.Refresh(ctx)
			t.printRooms("waiting", c.Waiting())
		case "/join":
			if err := c.Join(ctx, arg); err == nil {
				t.Printf("-- joined %s", arg)
			}
		case "/open":
			if err := c.Select(ctx, arg); errors.Is(err, console.ErrNotListed) {
				t.Printf("-- %s is not an active chat", arg)
			}
		case "/close":
			_ = c.Close(ctx)
		case "/hide":
			hider.SetHidden(true)
		case "/show":
			hider.SetHidden(false)
		case "/sound":
			t.toggleSound(sound)
		case "/quit":
			return false
		default:
			t.Printf("%s", consoleHelp)
		}
		return true
	})
}

// watchQueues announces rooms that newly entered the waiting queue.
func (t *Terminal) watchQueues(ctx context.Context, c *console.Controller) {
	known := make(map[string]bool)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.Updates():
			var fresh []entity.Room
			current := make(map[string]bool)
			for _, r := range c.Waiting() {
				current[r.ID] = true
				if !known[r.ID] {
					fresh = append(fresh, r)
				}
			}
			known = current
			for _, r := range fresh {
				t.Printf("-- waiting: %s %s %s", r.ID, r.UserName, strings.TrimSpace(r.Subject))
			}
		}
	}
}
