package entity

import (
	"LiveDesk/internal/lib/validate"
	"net/http"
	"time"
)

type RoomStatus string

const (
	RoomWaiting RoomStatus = "waiting"
	RoomActive  RoomStatus = "active"
	RoomClosed  RoomStatus = "closed"
)

// Room pairs one customer with at most one staff member.
// Status only moves waiting -> active -> closed; AdminID is set once, on claim.
type Room struct {
	ID            string     `json:"id" bson:"_id"`
	TenantID      string     `json:"tenant_id" bson:"tenant_id"`
	UserID        string     `json:"user_id" bson:"user_id"`
	UserName      string     `json:"user_name" bson:"user_name"`
	UserEmail     string     `json:"user_email" bson:"user_email"`
	AdminID       string     `json:"admin_id,omitempty" bson:"admin_id,omitempty"`
	AdminName     string     `json:"admin_name,omitempty" bson:"admin_name,omitempty"`
	Status        RoomStatus `json:"status" bson:"status"`
	Subject       string     `json:"subject,omitempty" bson:"subject,omitempty"`
	LastMessage   string     `json:"last_message,omitempty" bson:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty" bson:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty" bson:"closed_at,omitempty"`
}

func (r *Room) IsOpen() bool {
	return r.Status == RoomWaiting || r.Status == RoomActive
}

// StartRequest is the body of POST /chat/start.
type StartRequest struct {
	Subject  string `json:"subject" validate:"required"`
	UserName string `json:"user_name" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
}

func (s *StartRequest) Bind(_ *http.Request) error {
	return validate.Struct(s)
}
