package postgres

import (
	"context"

	"github.com/cwrk-planet/room-relay/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ChatRepository struct {
	db *pgxpool.Pool
}

func NewChatRepository(db *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Save(ctx context.Context, msg domain.ChatMessage) error {
	var id string
	return r.db.QueryRow(ctx, querySaveMessage,
		msg.RoomID, msg.ParticipantID, msg.Username, msg.Text, msg.CreatedAt,
	).Scan(&id)
}

// History returns up to limit of the newest messages of a room, oldest first.
func (r *ChatRepository) History(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, queryHistory, roomID, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.RoomID, &m.ParticipantID, &m.Username, &m.Text, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
