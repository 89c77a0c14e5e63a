// Package storage holds the errors shared by the room stores.
package storage

import "errors"

var (
	ErrNotFound       = errors.New("room not found")
	ErrAlreadyClaimed = errors.New("room already claimed")
	ErrRoomClosed     = errors.New("room is closed")
)
