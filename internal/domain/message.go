package domain

import "time"

// ChatMessage is an archived chat line.
type ChatMessage struct {
	ID            string    `db:"id" json:"id"`
	RoomID        string    `db:"room_id" json:"room_id"`
	ParticipantID string    `db:"participant_id" json:"participant_id"`
	Username      string    `db:"username" json:"username"`
	Text          string    `db:"text" json:"text"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
