package terminal

import (
	"context"

	"LiveDesk/internal/widget"
)

const widgetHelp = `commands: /start  /end  /new  /min  /max  /sound  /quit  (anything else is sent)`

// RunWidget drives a customer widget from the input lines.
func (t *Terminal) RunWidget(ctx context.Context, w *widget.Controller, v View, sound Sound) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer w.Unmount()

	if resumed, err := w.Mount(ctx); err == nil && resumed {
		t.Printf("-- resumed your chat")
	}
	w.Open()
	go t.Watch(ctx, v)
	t.Printf("%s", widgetHelp)

	return t.readLines(ctx, func(line string) bool {
		if line[0] != '/' {
			w.Typing()
			if !w.Send(line) {
				t.Printf("-- not sent")
			}
			return true
		}

		name, _ := command(line)
		switch name {
		case "/start":
			_ = w.StartNewChat(ctx)
		case "/end":
			_ = w.EndChat(ctx)
		case "/new":
			w.Discard()
			_ = w.StartNewChat(ctx)
		case "/min":
			w.Minimize()
		case "/max":
			w.Expand()
		case "/sound":
			t.toggleSound(sound)
		case "/quit":
			return false
		default:
			t.Printf("%s", widgetHelp)
		}
		if w.Minimized() {
			t.Printf("-- minimized, unread %d", w.Unread())
		}
		return true
	})
}
