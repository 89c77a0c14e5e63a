package notify

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"

	"LiveDesk/entity"
	"LiveDesk/internal/lib/logger"
)

type sinkRecorder struct {
	mu     sync.Mutex
	beeps  int
	toasts []Toast
	os     []string
}

func (r *sinkRecorder) Beep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beeps++
}

func (r *sinkRecorder) Toast(t Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

func (r *sinkRecorder) Notify(title, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.os = append(r.os, title+": "+body)
}

type soundFlag bool

func (s soundFlag) SoundEnabled() bool { return bool(s) }

func chatFrom(role entity.Role, text string) entity.Event {
	return entity.Event{Type: entity.EventChat, RoomID: "r1", SenderID: "x", SenderName: "Agus", SenderType: role, Message: text}
}

func TestDecide(t *testing.T) {
	long := strings.Repeat("a", 60)
	tests := []struct {
		name    string
		role    entity.Role
		ev      entity.Event
		surface Surface
		sound   bool
		want    Decision
	}{
		{
			name: "console own echo",
			role: entity.AdminRole,
			ev:   chatFrom(entity.AdminRole, "hi"),
		},
		{
			name:  "console visible",
			role:  entity.AdminRole,
			ev:    chatFrom(entity.UserRole, "hi"),
			sound: true,
			want:  Decision{Beep: true, Toast: &Toast{Title: "Agus", Body: "hi"}},
		},
		{
			name:    "console hidden muted",
			role:    entity.AdminRole,
			ev:      chatFrom(entity.UserRole, long),
			surface: Surface{Hidden: true},
			want:    Decision{Toast: &Toast{Title: "Agus", Body: strings.Repeat("a", 50) + "..."}, OS: true},
		},
		{
			name:  "console ignores join",
			role:  entity.AdminRole,
			ev:    entity.Event{Type: entity.EventJoin, SenderType: entity.UserRole},
			sound: true,
		},
		{
			name:  "widget expanded",
			role:  entity.UserRole,
			ev:    chatFrom(entity.AdminRole, "hi"),
			sound: true,
			want:  Decision{Beep: true},
		},
		{
			name:    "widget minimized",
			role:    entity.UserRole,
			ev:      chatFrom(entity.AdminRole, "hi"),
			surface: Surface{Minimized: true},
			want:    Decision{Toast: &Toast{Title: "Agus", Body: "hi"}, Unread: true},
		},
		{
			name:  "widget join",
			role:  entity.UserRole,
			ev:    entity.Event{Type: entity.EventJoin, SenderName: "Agus", SenderType: entity.AdminRole},
			sound: true,
			want:  Decision{Beep: true, Toast: &Toast{Title: "Support", Body: "Agus joined the chat"}},
		},
		{
			name: "widget own echo",
			role: entity.UserRole,
			ev:   chatFrom(entity.UserRole, "hi"),
		},
		{
			name:  "widget ignores typing",
			role:  entity.UserRole,
			ev:    entity.Event{Type: entity.EventTyping, SenderType: entity.AdminRole},
			sound: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.role, tt.ev, tt.surface, tt.sound, 50)
			if got.Beep != tt.want.Beep || got.OS != tt.want.OS || got.Unread != tt.want.Unread {
				t.Fatalf("decision = %+v, want %+v", got, tt.want)
			}
			if (got.Toast == nil) != (tt.want.Toast == nil) {
				t.Fatalf("toast = %v, want %v", got.Toast, tt.want.Toast)
			}
			if got.Toast != nil && *got.Toast != *tt.want.Toast {
				t.Errorf("toast = %+v, want %+v", *got.Toast, *tt.want.Toast)
			}
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := Truncate("héllo wörld", 5); got != "héllo..." {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("short", 50); got != "short" {
		t.Errorf("Truncate = %q", got)
	}
}

func TestWidgetUnreadCounter(t *testing.T) {
	rec := &sinkRecorder{}
	d := NewDispatcher(logger.Discard(), entity.UserRole, soundFlag(true), Sinks{Beeper: rec, Toaster: rec}, 50)
	d.Opened()

	d.SetMinimized(true)
	d.Dispatch(chatFrom(entity.AdminRole, "one"))
	d.Dispatch(chatFrom(entity.AdminRole, "two"))
	if d.Unread() != 2 {
		t.Fatalf("unread = %d, want 2", d.Unread())
	}

	d.SetMinimized(false)
	if d.Unread() != 0 {
		t.Fatalf("unread after expand = %d", d.Unread())
	}
	d.Dispatch(chatFrom(entity.AdminRole, "three"))
	if d.Unread() != 0 || rec.beeps != 3 || len(rec.toasts) != 2 {
		t.Errorf("unread=%d beeps=%d toasts=%d", d.Unread(), rec.beeps, len(rec.toasts))
	}
}

func TestFirstOpenResetsUnread(t *testing.T) {
	d := NewDispatcher(logger.Discard(), entity.UserRole, nil, Sinks{}, 50)
	d.SetMinimized(true)
	d.Dispatch(chatFrom(entity.AdminRole, "while closed"))
	d.Opened()
	if d.Unread() != 0 {
		t.Errorf("unread = %d", d.Unread())
	}
}

func TestConsoleOSNotificationOnlyWhenHidden(t *testing.T) {
	rec := &sinkRecorder{}
	d := NewDispatcher(logger.Discard(), entity.AdminRole, soundFlag(false), Sinks{Beeper: rec, Toaster: rec, Notifier: rec}, 50)

	d.Dispatch(chatFrom(entity.UserRole, "visible"))
	d.SetHidden(true)
	d.Dispatch(chatFrom(entity.UserRole, "hidden"))

	if rec.beeps != 0 {
		t.Errorf("beeped while muted")
	}
	if len(rec.toasts) != 2 || len(rec.os) != 1 || rec.os[0] != "Agus: hidden" {
		t.Errorf("toasts=%v os=%v", rec.toasts, rec.os)
	}
}

func TestBell(t *testing.T) {
	var buf bytes.Buffer
	NewBell(&buf).Beep()
	if buf.String() != "\a" {
		t.Errorf("bell wrote %q", buf.String())
	}
}

type fakeSender struct {
	mu    sync.Mutex
	texts []string
	modes []string
	fail  bool
}

func (f *fakeSender) SendMessage(_ int64, text string, opts *tgbotapi.SendMessageOpts) (*tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	f.modes = append(f.modes, opts.ParseMode)
	if f.fail && opts.ParseMode != "" {
		return nil, errTest
	}
	return &tgbotapi.Message{}, nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.texts)
}

type testError string

func (e testError) Error() string { return string(e) }

const errTest = testError("bad markdown")

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}

func TestTelegramEscapesMarkdown(t *testing.T) {
	api := &fakeSender{}
	tg := newTelegram(api, 42, logger.Discard())
	defer tg.Close()

	tg.Notify("Budi", "price 1.5 (ok)!")
	if !waitFor(func() bool { return api.count() == 1 }) {
		t.Fatal("message not sent")
	}
	if api.texts[0] != "*Budi*\nprice 1\\.5 \\(ok\\)\\!" || api.modes[0] != "MarkdownV2" {
		t.Errorf("sent %q mode %q", api.texts[0], api.modes[0])
	}
}

func TestTelegramFallsBackToPlainText(t *testing.T) {
	api := &fakeSender{fail: true}
	tg := newTelegram(api, 42, logger.Discard())
	defer tg.Close()

	tg.Notify("Budi", "hi")
	if !waitFor(func() bool { return api.count() == 2 }) {
		t.Fatalf("sends = %d, want 2", api.count())
	}
	if api.modes[1] != "" {
		t.Errorf("fallback used parse mode %q", api.modes[1])
	}
}
