package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	conf, err := Defaults()
	if err != nil {
		t.Fatalf("Defaults: %v", err)
	}
	if conf.Console.PollInterval != 5*time.Second {
		t.Errorf("poll interval = %v, want 5s", conf.Console.PollInterval)
	}
	if conf.Chat.TypingTimeout != 3*time.Second {
		t.Errorf("typing timeout = %v, want 3s", conf.Chat.TypingTimeout)
	}
	if conf.Chat.ToastLength != 50 {
		t.Errorf("toast length = %d, want 50", conf.Chat.ToastLength)
	}
	if conf.Socket.ReconnectAttempts != 0 {
		t.Errorf("reconnect attempts = %d, want 0", conf.Socket.ReconnectAttempts)
	}
}
