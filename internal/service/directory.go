package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cwrk-planet/room-relay/internal/domain"
	"github.com/cwrk-planet/room-relay/internal/relay"
)

// Directory is the relay's view of persisted rooms.
type Directory struct {
	*RoomService
	*MemberService
}

var _ relay.RoomDirectory = (*Directory)(nil)

func NewDirectory(roomRepo RoomRepository) *Directory {
	return &Directory{
		RoomService:   NewRoomService(roomRepo),
		MemberService: NewMemberService(roomRepo),
	}
}

// RoomCreator is implemented by the embedded backends.
type RoomCreator interface {
	Create(ctx context.Context, room *domain.Room) error
}

// Seed creates active rooms with the given ids. Rooms that already exist are
// left untouched.
func Seed(ctx context.Context, repo RoomCreator, ids []string, capacity int) error {
	for _, id := range ids {
		err := repo.Create(ctx, &domain.Room{
			ID:              id,
			Name:            id,
			MaxParticipants: capacity,
			IsActive:        true,
		})
		switch {
		case errors.Is(err, domain.ErrRoomExists):
			slog.Debug("seed room exists", "room_id", id)
		case err != nil:
			return err
		default:
			slog.Info("seed room created", "room_id", id, "max_participants", capacity)
		}
	}
	return nil
}
