package postgres

const (
	queryGetRoom = `
		SELECT id, name, max_participants, participant_count, is_active, created_at
		FROM rooms
		WHERE id = $1`

	// single statement, so concurrent joins and leaves cannot lose updates
	queryAdjustParticipants = `
		UPDATE rooms
		SET participant_count = GREATEST(participant_count + $2, 0)
		WHERE id = $1
		RETURNING participant_count`

	querySaveMessage = `
		INSERT INTO room_messages (room_id, participant_id, username, text, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	queryHistory = `
		SELECT id, room_id, participant_id, username, text, created_at
		FROM (
			SELECT id, room_id, participant_id, username, text, created_at
			FROM room_messages
			WHERE room_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) newest
		ORDER BY created_at ASC, id ASC`
)
