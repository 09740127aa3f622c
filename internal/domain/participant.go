package domain

import "time"

const displayNamePrefix = "User_"

// Participant is one admitted connection. The id is generated per connection
// and never derived from the account behind it.
type Participant struct {
	ID       string
	RoomID   string
	JoinedAt time.Time
}

// DisplayName is the name announced to the room when the participant joins.
func (p Participant) DisplayName() string {
	id := p.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return displayNamePrefix + id
}
