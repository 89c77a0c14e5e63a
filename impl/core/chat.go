package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"LiveDesk/entity"
	"LiveDesk/internal/lib/sl"
	"LiveDesk/internal/storage"
)

// StartChat opens a waiting room for the customer. A customer with an open room gets it back.
func (c *Core) StartChat(ctx context.Context, user *entity.UserAuth, req *entity.StartRequest) (*entity.Room, error) {
	existing, err := c.repo.FindOpenRoom(ctx, user.TenantID, user.ID)
	if err != nil {
		return nil, fmt.Errorf("find open room: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	room := &entity.Room{
		TenantID:  user.TenantID,
		UserID:    user.ID,
		UserName:  req.UserName,
		UserEmail: req.Email,
		Status:    entity.RoomWaiting,
		Subject:   req.Subject,
		CreatedAt: c.now(),
	}
	if err = c.repo.CreateRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	c.log.With(
		slog.String("room_id", room.ID),
		slog.String("user", user.ID),
	).Info("chat started")
	return room, nil
}

// ActiveChat returns the caller's waiting or active room, or nil.
func (c *Core) ActiveChat(ctx context.Context, user *entity.UserAuth) (*entity.Room, error) {
	return c.repo.FindOpenRoom(ctx, user.TenantID, user.ID)
}

// JoinChat claims a waiting room for a staff member and announces it to the room.
func (c *Core) JoinChat(ctx context.Context, user *entity.UserAuth, roomID string) (*entity.Room, error) {
	if !user.IsAdmin() {
		return nil, ErrForbidden
	}
	if _, err := c.room(ctx, user, roomID); err != nil {
		return nil, err
	}

	room, err := c.repo.ClaimRoom(ctx, roomID, user.ID, user.Name)
	if err != nil {
		return nil, err
	}
	c.log.With(
		slog.String("room_id", roomID),
		slog.String("admin", user.ID),
	).Info("chat joined")

	if c.hub != nil {
		c.hub.Broadcast(roomID, entity.NewJoinEvent(*room, c.timestamp()))
	}
	return room, nil
}

// CloseChat closes the room and tells both participants.
func (c *Core) CloseChat(ctx context.Context, user *entity.UserAuth, roomID string) error {
	if _, err := c.room(ctx, user, roomID); err != nil {
		return err
	}
	return c.closeRoom(ctx, user, roomID)
}

func (c *Core) closeRoom(ctx context.Context, user *entity.UserAuth, roomID string) error {
	ts := c.timestamp()
	if _, err := c.repo.CloseRoom(ctx, roomID, entity.Timestamp(ts)); err != nil {
		return err
	}
	c.log.With(
		slog.String("room_id", roomID),
		slog.String("by", user.ID),
	).Info("chat closed")

	if c.hub != nil {
		c.hub.Broadcast(roomID, entity.NewRoomUpdateEvent(roomID, user.Identity(), entity.RoomClosed, ts))
	}
	return nil
}

func (c *Core) Messages(ctx context.Context, user *entity.UserAuth, roomID string) ([]entity.Message, error) {
	if _, err := c.room(ctx, user, roomID); err != nil {
		return nil, err
	}
	return c.repo.GetMessages(ctx, roomID)
}

func (c *Core) WaitingChats(ctx context.Context, user *entity.UserAuth) ([]entity.Room, error) {
	if !user.IsAdmin() {
		return nil, ErrForbidden
	}
	return c.repo.ListRooms(ctx, user.TenantID, entity.RoomWaiting)
}

func (c *Core) ActiveChats(ctx context.Context, user *entity.UserAuth) ([]entity.Room, error) {
	if !user.IsAdmin() {
		return nil, ErrForbidden
	}
	return c.repo.ListRooms(ctx, user.TenantID, entity.RoomActive)
}

// room loads roomID if user may see it: staff see every room of their tenant, customers their own.
// Rooms of other tenants are reported as missing.
func (c *Core) room(ctx context.Context, user *entity.UserAuth, roomID string) (*entity.Room, error) {
	room, err := c.repo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.TenantID != user.TenantID {
		return nil, storage.ErrNotFound
	}
	if !user.IsAdmin() && room.UserID != user.ID {
		return nil, ErrForbidden
	}
	return room, nil
}

// CanAttach reports whether user may open a socket on an open room.
func (c *Core) CanAttach(user *entity.UserAuth, roomID string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()

	room, err := c.room(ctx, user, roomID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) && !errors.Is(err, ErrForbidden) {
			c.log.With(slog.String("room_id", roomID)).Error("load room", sl.Err(err))
		}
		return false
	}
	return room.IsOpen()
}
