//go:generate go run go.uber.org/mock/mockgen -source=directory.go -destination=mocks/mock_directory.go -package=mocks
package relay

import (
	"context"

	"github.com/cwrk-planet/room-relay/internal/domain"
)

// RoomDirectory is the persisted side of rooms: existence, capacity and the
// mirrored participant count.
type RoomDirectory interface {
	// Exists reports whether the room exists and is active.
	Exists(ctx context.Context, roomID string) (bool, error)
	// Capacity returns the room's participant limit (0 = unlimited) and its
	// persisted count.
	Capacity(ctx context.Context, roomID string) (max, current int, err error)
	IncrementParticipants(ctx context.Context, roomID string) (int, error)
	// DecrementParticipants never goes below zero.
	DecrementParticipants(ctx context.Context, roomID string) (int, error)
}

// ChatArchive stores relayed chat lines.
type ChatArchive interface {
	Save(ctx context.Context, msg domain.ChatMessage) error
}
