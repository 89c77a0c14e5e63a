package entity

import (
	"math"
	"strconv"
	"time"
)

// Message is one chat line of a room. ID is the client-side key "<timestamp>-<sender_id>".
type Message struct {
	ID         string    `json:"id" bson:"key"`
	RoomID     string    `json:"room_id" bson:"room_id"`
	SenderID   string    `json:"sender_id" bson:"sender_id"`
	SenderName string    `json:"sender_name" bson:"sender_name"`
	SenderType Role      `json:"sender_type" bson:"sender_type"`
	Message    string    `json:"message" bson:"message"`
	IsRead     bool      `json:"is_read" bson:"is_read"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

// MessageKey formats the dedup key the same way the browser client does:
// the shortest decimal form of the timestamp, a dash, the sender id.
func MessageKey(timestamp float64, senderID string) string {
	return strconv.FormatFloat(timestamp, 'f', -1, 64) + "-" + senderID
}

// Timestamp converts fractional epoch seconds to time.Time.
func Timestamp(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(math.Round(frac*1e6))*int64(time.Microsecond))
}

// Epoch converts t to fractional epoch seconds with microsecond precision.
func Epoch(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}

// Key returns the ledger identity of m: ID when set, otherwise derived from CreatedAt.
func (m *Message) Key() string {
	if m.ID != "" {
		return m.ID
	}
	return MessageKey(Epoch(m.CreatedAt), m.SenderID)
}
