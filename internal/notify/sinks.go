package notify

import (
	"io"
	"log/slog"
	"sync"

	"LiveDesk/internal/lib/sl"
)

// Bell rings the terminal bell.
type Bell struct {
	mu sync.Mutex
	w  io.Writer
}

func NewBell(w io.Writer) *Bell {
	return &Bell{w: w}
}

func (b *Bell) Beep() {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, _ = b.w.Write([]byte("\a"))
}

// ToastFunc adapts a function to Toaster.
type ToastFunc func(t Toast)

func (f ToastFunc) Toast(t Toast) {
	f(t)
}

// LogNotifier writes OS-level notifications to the log when no other channel is configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With(sl.Module("os-notify"))}
}

func (n *LogNotifier) Notify(title, body string) {
	n.log.With(
		slog.String("title", title),
		slog.String("body", body),
	).Info("notification")
}
