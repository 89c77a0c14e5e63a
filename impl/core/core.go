// Package core is the reference Room Directory: room lifecycle, exclusive staff claim and the
// relay of socket frames between the two participants of a room.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"LiveDesk/entity"
	"LiveDesk/internal/config"
	"LiveDesk/internal/lib/sl"
	"LiveDesk/internal/lib/validate"
	"LiveDesk/internal/ws"
)

var ErrForbidden = errors.New("forbidden")

type Repository interface {
	CreateRoom(ctx context.Context, room *entity.Room) error
	GetRoom(ctx context.Context, id string) (*entity.Room, error)
	FindOpenRoom(ctx context.Context, tenantID, userID string) (*entity.Room, error)
	ClaimRoom(ctx context.Context, id, adminID, adminName string) (*entity.Room, error)
	CloseRoom(ctx context.Context, id string, at time.Time) (*entity.Room, error)
	ListRooms(ctx context.Context, tenantID string, status entity.RoomStatus) ([]entity.Room, error)

	SaveMessage(ctx context.Context, msg entity.Message) error
	GetMessages(ctx context.Context, roomID string) ([]entity.Message, error)
}

// Broadcaster fans events out to the sockets of a room.
type Broadcaster interface {
	Broadcast(roomID string, ev entity.Event)
	BroadcastExcept(roomID string, except *ws.Peer, ev entity.Event)
}

type Core struct {
	repo  Repository
	hub   Broadcaster
	mu    sync.RWMutex
	users map[string]entity.UserAuth
	now   func() time.Time
	log   *slog.Logger
}

func New(log *slog.Logger) *Core {
	return &Core{
		log:   log.With(sl.Module("core")),
		users: make(map[string]entity.UserAuth),
		now:   time.Now,
	}
}

func (c *Core) SetRepository(repo Repository) {
	c.repo = repo
}

func (c *Core) SetHub(hub Broadcaster) {
	c.hub = hub
}

// SetUsers replaces the static token table. Invalid entries are skipped.
func (c *Core) SetUsers(users []config.User) {
	table := make(map[string]entity.UserAuth, len(users))
	for _, u := range users {
		user := entity.UserAuth{
			ID:       u.ID,
			Name:     u.Name,
			Email:    u.Email,
			TenantID: u.TenantID,
			Role:     entity.Role(u.Role),
			Token:    u.Token,
		}
		if err := validate.Struct(&user); err != nil {
			c.log.With(
				slog.String("user", u.ID),
				sl.Secret("token", u.Token),
			).Warn("skipping invalid user", sl.Err(err))
			continue
		}
		table[u.Token] = user
	}

	c.mu.Lock()
	c.users = table
	c.mu.Unlock()
	c.log.With(slog.Int("count", len(table))).Info("users loaded")
}

func (c *Core) AuthenticateByToken(token string) (*entity.UserAuth, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	user, ok := c.users[token]
	if !ok {
		return nil, fmt.Errorf("token not found")
	}
	return &user, nil
}

func (c *Core) timestamp() float64 {
	return entity.Epoch(c.now())
}
