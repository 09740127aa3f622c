package service

import (
	"context"
	"errors"

	"github.com/cwrk-planet/room-relay/internal/domain"
)

// RoomRepository is implemented by postgres, badgerstore and memstore.
type RoomRepository interface {
	Get(ctx context.Context, id string) (*domain.Room, error)
	AdjustParticipants(ctx context.Context, id string, delta int) (int, error)
}

type RoomService struct {
	roomRepo RoomRepository
}

func NewRoomService(roomRepo RoomRepository) *RoomService {
	return &RoomService{roomRepo: roomRepo}
}

func (s *RoomService) GetRoom(ctx context.Context, id string) (*domain.Room, error) {
	return s.roomRepo.Get(ctx, id)
}

// CheckActive returns domain.ErrRoomNotFound or domain.ErrRoomInactive when
// the room cannot take connections.
func (s *RoomService) CheckActive(ctx context.Context, id string) error {
	room, err := s.roomRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !room.IsActive {
		return domain.ErrRoomInactive
	}
	return nil
}

// Exists reports false without an error for unknown and inactive rooms.
func (s *RoomService) Exists(ctx context.Context, id string) (bool, error) {
	err := s.CheckActive(ctx, id)
	if errors.Is(err, domain.ErrRoomNotFound) || errors.Is(err, domain.ErrRoomInactive) {
		return false, nil
	}
	return err == nil, err
}

func (s *RoomService) Capacity(ctx context.Context, id string) (int, int, error) {
	room, err := s.roomRepo.Get(ctx, id)
	if err != nil {
		return 0, 0, err
	}
	return room.MaxParticipants, room.ParticipantCount, nil
}
