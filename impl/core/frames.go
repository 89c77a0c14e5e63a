package core

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"LiveDesk/entity"
	"LiveDesk/internal/lib/sl"
	"LiveDesk/internal/storage"
	"LiveDesk/internal/ws"
)

const frameTimeout = 5 * time.Second

// HandleFrame relays a participant frame. Sender fields are taken from the authenticated peer,
// never from the frame; the client timestamp is kept so the sender can match its own echo.
func (c *Core) HandleFrame(peer *ws.Peer, ev entity.Event) {
	user := peer.User()
	roomID := peer.RoomID()

	ev.RoomID = roomID
	ev.SenderID = user.ID
	ev.SenderName = peer.Name()
	ev.SenderType = user.Role
	if ev.Timestamp <= 0 {
		ev.Timestamp = c.timestamp()
	}

	log := c.log.With(
		slog.String("room_id", roomID),
		slog.String("type", string(ev.Type)),
		slog.String("sender", user.ID),
	)

	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()

	switch ev.Type {
	case entity.EventChat:
		msg := ev.ToMessage()
		if err := c.repo.SaveMessage(ctx, msg); err != nil {
			if errors.Is(err, storage.ErrRoomClosed) {
				log.Debug("chat on closed room dropped")
			} else {
				log.Error("save message", sl.Err(err))
			}
			return
		}
		if c.hub != nil {
			c.hub.Broadcast(roomID, ev)
		}

	case entity.EventTyping:
		if c.hub != nil {
			c.hub.BroadcastExcept(roomID, peer, ev)
		}

	case entity.EventRoomUpdate:
		if ev.Data == nil || ev.Data.Status != entity.RoomClosed {
			log.Debug("room update ignored")
			return
		}
		if err := c.closeRoom(ctx, &user, roomID); err != nil && !errors.Is(err, storage.ErrRoomClosed) {
			log.Error("close room", sl.Err(err))
		}

	default:
		log.Debug("frame ignored")
	}
}
