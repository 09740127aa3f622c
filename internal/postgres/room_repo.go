package postgres

import (
	"context"
	"errors"

	"github.com/cwrk-planet/room-relay/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// invalid_text_representation, returned for ids that are not UUIDs
const pgInvalidText = "22P02"

type RoomRepository struct {
	db *pgxpool.Pool
}

func NewRoomRepository(db *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) Get(ctx context.Context, id string) (*domain.Room, error) {
	var rm domain.Room
	err := r.db.QueryRow(ctx, queryGetRoom, id).
		Scan(&rm.ID, &rm.Name, &rm.MaxParticipants, &rm.ParticipantCount, &rm.IsActive, &rm.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &rm, nil
}

// AdjustParticipants adds delta to the room's count, never going below zero.
func (r *RoomRepository) AdjustParticipants(ctx context.Context, id string, delta int) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, queryAdjustParticipants, id, delta).Scan(&n); err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrRoomNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgInvalidText {
		return domain.ErrRoomNotFound
	}
	return err
}
