package badgerstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cwrk-planet/room-relay/internal/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// ChatRepository stores chat lines under msg:{room}:{unix nanos}:{id}, so a
// prefix scan returns a room's history in order.
type ChatRepository struct {
	db  *badger.DB
	ttl time.Duration
}

// NewChatRepository keeps messages for ttl; zero keeps them forever.
func NewChatRepository(db *badger.DB, ttl time.Duration) *ChatRepository {
	return &ChatRepository{db: db, ttl: ttl}
}

func chatPrefix(roomID string) []byte { return []byte("msg:" + roomID + ":") }

func (r *ChatRepository) Save(_ context.Context, msg domain.ChatMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal chat message: %w", err)
	}
	key := fmt.Appendf(chatPrefix(msg.RoomID), "%019d:%s", msg.CreatedAt.UnixNano(), msg.ID)

	return r.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key, data)
		if r.ttl > 0 {
			e = e.WithTTL(r.ttl)
		}
		return txn.SetEntry(e)
	})
}

// History returns up to limit of the newest messages of a room, oldest first.
func (r *ChatRepository) History(_ context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	prefix := chatPrefix(roomID)

	var out []domain.ChatMessage
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// reverse iteration starts from the largest key with this prefix
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(out) < limit; it.Next() {
			var m domain.ChatMessage
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return err
			}
			out = append(out, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
