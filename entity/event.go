package entity

import (
	"fmt"
	"strings"
	"time"

	"LiveDesk/internal/lib/validate"
)

type EventType string

const (
	EventChat       EventType = "chat"
	EventTyping     EventType = "typing"
	EventJoin       EventType = "join"
	EventRoomUpdate EventType = "room_update"
)

// Event is the JSON text frame exchanged over the room socket, in both directions.
type Event struct {
	Type       EventType  `json:"type" validate:"required,oneof=chat typing join room_update"`
	RoomID     string     `json:"room_id"`
	SenderID   string     `json:"sender_id"`
	SenderName string     `json:"sender_name"`
	SenderType Role       `json:"sender_type" validate:"omitempty,oneof=user admin"`
	Message    string     `json:"message,omitempty"`
	Data       *EventData `json:"data,omitempty"`
	Timestamp  float64    `json:"timestamp"`
}

type EventData struct {
	Status RoomStatus `json:"status,omitempty"`
}

// Validate checks the frame shape; chat frames must carry a non-blank message.
func (e *Event) Validate() error {
	if err := validate.Struct(e); err != nil {
		return err
	}
	if e.Type == EventChat && strings.TrimSpace(e.Message) == "" {
		return fmt.Errorf("chat event without message")
	}
	return nil
}

// Key is the ledger identity of a chat event.
func (e *Event) Key() string {
	return MessageKey(e.Timestamp, e.SenderID)
}

// ToMessage converts a chat event to a ledger entry.
func (e *Event) ToMessage() Message {
	return Message{
		ID:         e.Key(),
		RoomID:     e.RoomID,
		SenderID:   e.SenderID,
		SenderName: e.SenderName,
		SenderType: e.SenderType,
		Message:    e.Message,
		CreatedAt:  Timestamp(e.Timestamp),
	}
}

// Now returns the current time as fractional epoch seconds.
func Now() float64 {
	return Epoch(time.Now())
}

func NewChatEvent(roomID string, from Identity, text string, ts float64) Event {
	return Event{
		Type:       EventChat,
		RoomID:     roomID,
		SenderID:   from.ID,
		SenderName: from.Name,
		SenderType: from.Role,
		Message:    text,
		Timestamp:  ts,
	}
}

func NewTypingEvent(roomID string, from Identity, ts float64) Event {
	return Event{
		Type:       EventTyping,
		RoomID:     roomID,
		SenderID:   from.ID,
		SenderName: from.Name,
		SenderType: from.Role,
		Timestamp:  ts,
	}
}

func NewJoinEvent(room Room, ts float64) Event {
	return Event{
		Type:       EventJoin,
		RoomID:     room.ID,
		SenderID:   room.AdminID,
		SenderName: room.AdminName,
		SenderType: AdminRole,
		Timestamp:  ts,
	}
}

func NewRoomUpdateEvent(roomID string, from Identity, status RoomStatus, ts float64) Event {
	return Event{
		Type:       EventRoomUpdate,
		RoomID:     roomID,
		SenderID:   from.ID,
		SenderName: from.Name,
		SenderType: from.Role,
		Data:       &EventData{Status: status},
		Timestamp:  ts,
	}
}
