package session

import (
	"testing"
	"time"

	"LiveDesk/entity"
)

func waitingRoom() entity.Room {
	return entity.Room{ID: "r1", TenantID: "t1", UserID: "u1", UserName: "Budi", Status: entity.RoomWaiting}
}

func TestMachineJoinActivatesWaitingRoom(t *testing.T) {
	var m Machine
	m.Hydrate(waitingRoom())

	tr := m.Apply(entity.Event{Type: entity.EventJoin, RoomID: "r1", SenderID: "a9", SenderName: "Agus", SenderType: entity.AdminRole})
	if tr.From != StateWaiting || tr.To != StateActive {
		t.Fatalf("transition = %+v", tr)
	}
	room, _ := m.Room()
	if room.AdminName != "Agus" || room.AdminID != "a9" {
		t.Errorf("admin = %q/%q", room.AdminID, room.AdminName)
	}
}

func TestMachineRepeatedJoinIsNoop(t *testing.T) {
	var m Machine
	m.Hydrate(waitingRoom())
	m.Apply(entity.Event{Type: entity.EventJoin, SenderID: "a9", SenderName: "Agus"})

	tr := m.Apply(entity.Event{Type: entity.EventJoin, SenderID: "a7", SenderName: "Sari"})
	if tr.Changed() {
		t.Errorf("repeated join changed state: %+v", tr)
	}
	room, _ := m.Room()
	if room.AdminID != "a9" || room.AdminName != "Agus" {
		t.Errorf("admin changed to %q/%q", room.AdminID, room.AdminName)
	}
}

func TestMachineClosedIsTerminal(t *testing.T) {
	var m Machine
	m.Hydrate(waitingRoom())
	m.Apply(entity.Event{Type: entity.EventRoomUpdate, Data: &entity.EventData{Status: entity.RoomClosed}, Timestamp: 1700000100})
	if m.State() != StateClosed {
		t.Fatalf("state = %s", m.State())
	}

	events := []entity.Event{
		{Type: entity.EventChat, Message: "hello"},
		{Type: entity.EventJoin, SenderID: "a1"},
		{Type: entity.EventTyping},
		{Type: entity.EventRoomUpdate, Data: &entity.EventData{Status: entity.RoomActive}},
	}
	for _, ev := range events {
		if tr := m.Apply(ev); tr.Changed() || m.State() != StateClosed {
			t.Errorf("%s moved closed room to %s", ev.Type, m.State())
		}
	}
	m.Hydrate(entity.Room{ID: "r1", Status: entity.RoomActive})
	if m.State() != StateClosed {
		t.Errorf("hydrate reopened room: %s", m.State())
	}
	if m.SocketWanted() {
		t.Error("socket wanted for closed room")
	}
}

func TestMachineIgnoresOtherRooms(t *testing.T) {
	var m Machine
	m.Hydrate(waitingRoom())
	if tr := m.Apply(entity.Event{Type: entity.EventJoin, RoomID: "r2", SenderID: "a1"}); tr.Changed() {
		t.Error("event for another room applied")
	}
}

func TestMachineDiscardOnlyFromClosed(t *testing.T) {
	var m Machine
	m.Hydrate(waitingRoom())
	if m.Discard().Changed() {
		t.Error("discarded an open room")
	}
	m.Close(time.Now())
	if tr := m.Discard(); tr.To != StateNone {
		t.Errorf("discard = %+v", tr)
	}
	if m.SocketWanted() {
		t.Error("socket wanted with no room")
	}
}

func TestMachineChatUpdatesSummary(t *testing.T) {
	var m Machine
	m.Hydrate(waitingRoom())
	m.Apply(entity.Event{Type: entity.EventChat, Message: "Halo", Timestamp: 1700000000})
	room, _ := m.Room()
	if room.LastMessage != "Halo" || room.LastMessageAt == nil || room.LastMessageAt.Unix() != 1700000000 {
		t.Errorf("summary = %q %v", room.LastMessage, room.LastMessageAt)
	}
	if room.Status != entity.RoomWaiting {
		t.Errorf("chat changed status to %s", room.Status)
	}
}
