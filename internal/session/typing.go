package session

import (
	"sync"
	"time"
)

// Stopper is the part of *time.Timer the typing indicator needs.
type Stopper interface {
	Stop() bool
}

// AfterFunc schedules f after d. Tests swap in a manual clock.
type AfterFunc func(d time.Duration, f func()) Stopper

func realAfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// Typing is the counterpart's typing flag. The protocol has no "stopped typing" event,
// so the flag clears itself timeout after the last Touch.
type Typing struct {
	mu       sync.Mutex
	timeout  time.Duration
	after    AfterFunc
	active   bool
	timer    Stopper
	gen      uint64
	onChange func(active bool)
}

func NewTyping(timeout time.Duration, after AfterFunc, onChange func(bool)) *Typing {
	if after == nil {
		after = realAfterFunc
	}
	if onChange == nil {
		onChange = func(bool) {}
	}
	return &Typing{
		timeout:  timeout,
		after:    after,
		onChange: onChange,
	}
}

// Touch sets the flag and restarts the countdown.
func (t *Typing) Touch() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	changed := !t.active
	t.active = true
	t.timer = t.after(t.timeout, func() { t.expire(gen) })
	t.mu.Unlock()

	if changed {
		t.onChange(true)
	}
}

func (t *Typing) expire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || !t.active {
		t.mu.Unlock()
		return
	}
	t.active = false
	t.timer = nil
	t.mu.Unlock()

	t.onChange(false)
}

// Clear drops the flag and any pending countdown.
func (t *Typing) Clear() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
	changed := t.active
	t.active = false
	t.mu.Unlock()

	if changed {
		t.onChange(false)
	}
}

func (t *Typing) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}
