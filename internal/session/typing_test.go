package session

import (
	"testing"
	"time"
)

func TestTypingStaysOnWhileTouched(t *testing.T) {
	clock := newManualClock()
	var changes []bool
	typing := NewTyping(3*time.Second, clock.AfterFunc, func(v bool) { changes = append(changes, v) })

	typing.Touch()
	clock.Advance(time.Second)
	typing.Touch()
	clock.Advance(time.Second)
	typing.Touch()

	clock.Advance(2900 * time.Millisecond)
	if !typing.Active() {
		t.Fatal("flag cleared before 3s of silence")
	}
	clock.Advance(200 * time.Millisecond)
	if typing.Active() {
		t.Fatal("flag still set after 3s of silence")
	}
	if len(changes) != 2 || !changes[0] || changes[1] {
		t.Errorf("changes = %v, want [true false]", changes)
	}
}

func TestTypingClear(t *testing.T) {
	clock := newManualClock()
	typing := NewTyping(3*time.Second, clock.AfterFunc, nil)
	typing.Touch()
	typing.Clear()
	if typing.Active() {
		t.Fatal("active after Clear")
	}
	typing.Touch()
	clock.Advance(3 * time.Second)
	if typing.Active() {
		t.Fatal("active after timeout")
	}
}
