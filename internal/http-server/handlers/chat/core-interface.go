package chat

import (
	"context"

	"LiveDesk/entity"
)

type Core interface {
	StartChat(ctx context.Context, user *entity.UserAuth, req *entity.StartRequest) (*entity.Room, error)
	ActiveChat(ctx context.Context, user *entity.UserAuth) (*entity.Room, error)
	JoinChat(ctx context.Context, user *entity.UserAuth, roomID string) (*entity.Room, error)
	CloseChat(ctx context.Context, user *entity.UserAuth, roomID string) error
	Messages(ctx context.Context, user *entity.UserAuth, roomID string) ([]entity.Message, error)
	WaitingChats(ctx context.Context, user *entity.UserAuth) ([]entity.Room, error)
	ActiveChats(ctx context.Context, user *entity.UserAuth) ([]entity.Room, error)
}
