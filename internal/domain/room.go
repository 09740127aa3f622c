package domain

import "time"

// Room is the directory's view of a room. Rooms are created elsewhere;
// the relay only reads them and mirrors the live participant count.
type Room struct {
	ID               string    `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	MaxParticipants  int       `db:"max_participants" json:"max_participants"`
	ParticipantCount int       `db:"participant_count" json:"participant_count"`
	IsActive         bool      `db:"is_active" json:"is_active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// Admits reports whether a room with live members can take one more.
// A zero limit means unlimited.
func (r Room) Admits(live int) bool {
	return r.MaxParticipants <= 0 || live < r.MaxParticipants
}
