// Package memstore keeps rooms in process memory. It backs local
// development and tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/cwrk-planet/room-relay/internal/domain"
)

type RoomRepository struct {
	mu    sync.Mutex
	rooms map[string]domain.Room
}

func NewRoomRepository() *RoomRepository {
	return &RoomRepository{rooms: make(map[string]domain.Room)}
}

func (r *RoomRepository) Create(_ context.Context, room *domain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[room.ID]; ok {
		return domain.ErrRoomExists
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}
	r.rooms[room.ID] = *room
	return nil
}

func (r *RoomRepository) Get(_ context.Context, id string) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return &room, nil
}

// AdjustParticipants adds delta to the room's count, never going below zero.
func (r *RoomRepository) AdjustParticipants(_ context.Context, id string, delta int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if !ok {
		return 0, domain.ErrRoomNotFound
	}
	room.ParticipantCount = max(room.ParticipantCount+delta, 0)
	r.rooms[id] = room
	return room.ParticipantCount, nil
}

func (r *RoomRepository) SetActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if !ok {
		return domain.ErrRoomNotFound
	}
	room.IsActive = active
	r.rooms[id] = room
	return nil
}
