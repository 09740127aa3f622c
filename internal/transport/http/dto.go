package http

import "time"

type ErrorResponse struct {
	Error string `json:"error"`
}

type RoomItem struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	MaxParticipants  int       `json:"max_participants"`
	ParticipantCount int       `json:"participant_count"`
	LiveHere         int       `json:"live_here"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
}

type ChatMessageItem struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Text      string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatHistoryResponse struct {
	Items []ChatMessageItem `json:"items"`
}

type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
