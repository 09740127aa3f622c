package service

import (
	"context"
)

// MemberService mirrors live membership into the room's persisted count.
type MemberService struct {
	roomRepo RoomRepository
}

func NewMemberService(roomRepo RoomRepository) *MemberService {
	return &MemberService{roomRepo: roomRepo}
}

func (s *MemberService) IncrementParticipants(ctx context.Context, roomID string) (int, error) {
	return s.roomRepo.AdjustParticipants(ctx, roomID, 1)
}

// DecrementParticipants relies on the repository flooring the count at zero.
func (s *MemberService) DecrementParticipants(ctx context.Context, roomID string) (int, error) {
	return s.roomRepo.AdjustParticipants(ctx, roomID, -1)
}
