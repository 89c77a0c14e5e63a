// Package memory is a process-local room store for tests and local runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"LiveDesk/entity"
	"LiveDesk/internal/storage"
)

type Store struct {
	mu       sync.RWMutex
	rooms    map[string]*entity.Room
	order    []string
	messages map[string][]entity.Message
}

func New() *Store {
	return &Store{
		rooms:    make(map[string]*entity.Room),
		messages: make(map[string][]entity.Message),
	}
}

// CreateRoom stores room, assigning an id when it has none.
func (s *Store) CreateRoom(_ context.Context, room *entity.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	r := *room
	s.rooms[r.ID] = &r
	s.order = append(s.order, r.ID)
	return nil
}

func (s *Store) GetRoom(_ context.Context, id string) (*entity.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *r
	return &out, nil
}

// FindOpenRoom returns the newest waiting or active room of the user, or nil.
func (s *Store) FindOpenRoom(_ context.Context, tenantID, userID string) (*entity.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		r := s.rooms[s.order[i]]
		if r.TenantID == tenantID && r.UserID == userID && r.IsOpen() {
			out := *r
			return &out, nil
		}
	}
	return nil, nil
}

// ClaimRoom assigns the admin to a waiting room. Exactly one concurrent caller wins.
func (s *Store) ClaimRoom(_ context.Context, id, adminID, adminName string) (*entity.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	switch r.Status {
	case entity.RoomClosed:
		return nil, storage.ErrRoomClosed
	case entity.RoomActive:
		return nil, storage.ErrAlreadyClaimed
	}
	r.Status = entity.RoomActive
	r.AdminID = adminID
	r.AdminName = adminName
	out := *r
	return &out, nil
}

func (s *Store) CloseRoom(_ context.Context, id string, at time.Time) (*entity.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if r.Status == entity.RoomClosed {
		return nil, storage.ErrRoomClosed
	}
	r.Status = entity.RoomClosed
	r.ClosedAt = &at
	out := *r
	return &out, nil
}

// ListRooms returns the tenant's rooms with status, oldest first.
func (s *Store) ListRooms(_ context.Context, tenantID string, status entity.RoomStatus) ([]entity.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make([]entity.Room, 0)
	for _, id := range s.order {
		r := s.rooms[id]
		if r.TenantID == tenantID && r.Status == status {
			rooms = append(rooms, *r)
		}
	}
	sort.SliceStable(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	return rooms, nil
}

// SaveMessage appends msg to its room and updates the room summary.
func (s *Store) SaveMessage(_ context.Context, msg entity.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[msg.RoomID]
	if !ok {
		return storage.ErrNotFound
	}
	if r.Status == entity.RoomClosed {
		return storage.ErrRoomClosed
	}
	s.messages[msg.RoomID] = append(s.messages[msg.RoomID], msg)
	at := msg.CreatedAt
	r.LastMessage = msg.Message
	r.LastMessageAt = &at
	return nil
}

func (s *Store) GetMessages(_ context.Context, roomID string) ([]entity.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.rooms[roomID]; !ok {
		return nil, storage.ErrNotFound
	}
	return append(make([]entity.Message, 0, len(s.messages[roomID])), s.messages[roomID]...), nil
}
