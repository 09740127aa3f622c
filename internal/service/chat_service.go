package service

import (
	"context"
	"errors"
	"strings"

	"github.com/cwrk-planet/room-relay/internal/domain"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

var ErrEmptyMessage = errors.New("empty message")

// ChatStore is implemented by the postgres and badger chat repositories.
type ChatStore interface {
	Save(ctx context.Context, msg domain.ChatMessage) error
	History(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error)
}

type ChatService struct {
	store ChatStore
}

func NewChatService(store ChatStore) *ChatService {
	return &ChatService{store: store}
}

// Save archives one relayed chat line. Blank lines are refused.
func (s *ChatService) Save(ctx context.Context, msg domain.ChatMessage) error {
	if strings.TrimSpace(msg.Text) == "" {
		return ErrEmptyMessage
	}
	return s.store.Save(ctx, msg)
}

// History returns the newest archived lines of a room, oldest first.
func (s *ChatService) History(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	msgs, err := s.store.History(ctx, roomID, limit)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	return msgs, nil
}
