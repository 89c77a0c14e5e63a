package session

import (
	"time"

	"LiveDesk/entity"
)

type State string

const (
	StateNone    State = "none"
	StateWaiting State = "waiting"
	StateActive  State = "active"
	StateClosed  State = "closed"
)

func stateOf(status entity.RoomStatus) State {
	switch status {
	case entity.RoomWaiting:
		return StateWaiting
	case entity.RoomActive:
		return StateActive
	case entity.RoomClosed:
		return StateClosed
	}
	return StateNone
}

func rank(status entity.RoomStatus) int {
	switch status {
	case entity.RoomActive:
		return 1
	case entity.RoomClosed:
		return 2
	}
	return 0
}

// Transition records a status move; From == To means nothing moved.
type Transition struct {
	From State
	To   State
}

func (t Transition) Changed() bool {
	return t.From != t.To
}

// Machine tracks the lifecycle of the current room.
// Status only moves forward and the claiming admin is recorded once.
type Machine struct {
	room *entity.Room
}

func (m *Machine) State() State {
	if m.room == nil {
		return StateNone
	}
	return stateOf(m.room.Status)
}

// Room returns a copy of the current room.
func (m *Machine) Room() (entity.Room, bool) {
	if m.room == nil {
		return entity.Room{}, false
	}
	return *m.room, true
}

// SocketWanted reports whether a socket should be open for the current state.
func (m *Machine) SocketWanted() bool {
	s := m.State()
	return s == StateWaiting || s == StateActive
}

// Hydrate adopts a room reported by the directory. A different room replaces the current one;
// the same room only advances.
func (m *Machine) Hydrate(room entity.Room) Transition {
	from := m.State()
	if m.room == nil || m.room.ID != room.ID {
		r := room
		if r.Status == "" {
			r.Status = entity.RoomWaiting
		}
		m.room = &r
		return Transition{From: from, To: m.State()}
	}
	m.advance(room.Status, room.AdminID, room.AdminName)
	if room.ClosedAt != nil && m.room.ClosedAt == nil && m.room.Status == entity.RoomClosed {
		m.room.ClosedAt = room.ClosedAt
	}
	return Transition{From: from, To: m.State()}
}

// Apply folds an inbound protocol event into the room.
func (m *Machine) Apply(ev entity.Event) Transition {
	from := m.State()
	if m.room == nil || (ev.RoomID != "" && ev.RoomID != m.room.ID) {
		return Transition{From: from, To: from}
	}

	switch ev.Type {
	case entity.EventChat:
		if m.room.Status != entity.RoomClosed {
			at := entity.Timestamp(ev.Timestamp)
			m.room.LastMessage = ev.Message
			m.room.LastMessageAt = &at
		}
	case entity.EventJoin:
		if m.room.Status == entity.RoomWaiting {
			m.advance(entity.RoomActive, ev.SenderID, ev.SenderName)
		}
	case entity.EventRoomUpdate:
		if ev.Data != nil {
			if ev.Data.Status == entity.RoomClosed {
				m.close(entity.Timestamp(ev.Timestamp))
			} else {
				m.advance(ev.Data.Status, "", "")
			}
		}
	}
	return Transition{From: from, To: m.State()}
}

// Close marks the room closed after a successful directory close.
func (m *Machine) Close(at time.Time) Transition {
	from := m.State()
	if m.room != nil {
		m.close(at)
	}
	return Transition{From: from, To: m.State()}
}

// Discard drops a closed room, returning to none. Open rooms cannot be discarded.
func (m *Machine) Discard() Transition {
	from := m.State()
	if from == StateClosed {
		m.room = nil
	}
	return Transition{From: from, To: m.State()}
}

// Reset forgets the room regardless of its state; used when a controller lets go of it.
func (m *Machine) Reset() {
	m.room = nil
}

func (m *Machine) close(at time.Time) {
	if m.room.Status == entity.RoomClosed {
		return
	}
	m.room.Status = entity.RoomClosed
	if at.IsZero() || at.Unix() == 0 {
		at = time.Now()
	}
	m.room.ClosedAt = &at
}

func (m *Machine) advance(status entity.RoomStatus, adminID, adminName string) {
	if rank(status) <= rank(m.room.Status) {
		return
	}
	if status == entity.RoomClosed {
		m.close(time.Now())
		return
	}
	m.room.Status = status
	if status == entity.RoomActive && m.room.AdminID == "" {
		m.room.AdminID = adminID
		if adminName != "" {
			m.room.AdminName = adminName
		}
	}
}
