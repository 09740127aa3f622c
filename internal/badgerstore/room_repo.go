package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cwrk-planet/room-relay/internal/domain"

	"github.com/dgraph-io/badger/v4"
)

const (
	roomPrefix = "room:"
	maxRetries = 16
)

type RoomRepository struct {
	db *badger.DB
	// serializes count updates; badger is owned by a single process
	adjustMu sync.Mutex
}

func NewRoomRepository(db *badger.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

func roomKey(id string) []byte { return []byte(roomPrefix + id) }

func (r *RoomRepository) Create(_ context.Context, room *domain.Room) error {
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(roomKey(room.ID)); err == nil {
			return domain.ErrRoomExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(roomKey(room.ID), data)
	})
}

func (r *RoomRepository) Get(_ context.Context, id string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		return getRoom(txn, id, &room)
	})
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// AdjustParticipants adds delta to the room's count, never going below zero.
// Conflicting transactions are retried.
func (r *RoomRepository) AdjustParticipants(ctx context.Context, id string, delta int) (int, error) {
	r.adjustMu.Lock()
	defer r.adjustMu.Unlock()

	var n int
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := r.db.Update(func(txn *badger.Txn) error {
			var room domain.Room
			if err := getRoom(txn, id, &room); err != nil {
				return err
			}
			room.ParticipantCount = max(room.ParticipantCount+delta, 0)
			data, err := json.Marshal(room)
			if err != nil {
				return err
			}
			n = room.ParticipantCount
			return txn.Set(roomKey(id), data)
		})
		if !errors.Is(err, badger.ErrConflict) {
			return n, err
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
	}
	return 0, fmt.Errorf("adjust participants of %s: %w", id, badger.ErrConflict)
}

func getRoom(txn *badger.Txn, id string, dst *domain.Room) error {
	item, err := txn.Get(roomKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.ErrRoomNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dst)
	})
}
