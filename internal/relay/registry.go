package relay

import (
	"sort"
	"sync"

	"github.com/cwrk-planet/room-relay/internal/domain"
)

// Member is anything the registry can hold for a participant.
type Member interface {
	ParticipantID() string
}

type entry struct {
	member Member
	seq    uint64
}

// Registry is the in-memory membership of every room served by this process.
// A participant is in at most one room.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]entry // roomID -> participantID -> entry
	where map[string]string           // participantID -> roomID
	seq   uint64
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[string]entry),
		where: make(map[string]string),
	}
}

// Register adds m to roomID. With limit > 0 the room must have fewer than
// limit members, otherwise domain.ErrRoomFull is returned.
func (r *Registry) Register(roomID string, m Member, limit int) error {
	id := m.ParticipantID()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.where[id]; ok {
		return ErrAlreadyRegistered
	}
	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]entry)
		r.rooms[roomID] = members
	}
	if limit > 0 && len(members) >= limit {
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
		return domain.ErrRoomFull
	}

	r.seq++
	members[id] = entry{member: m, seq: r.seq}
	r.where[id] = roomID
	return nil
}

// Unregister removes participantID from roomID and reports whether it was there.
func (r *Registry) Unregister(roomID, participantID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := members[participantID]; !ok {
		return false
	}
	delete(members, participantID)
	delete(r.where, participantID)
	if len(members) == 0 {
		delete(r.rooms, roomID)
	}
	return true
}

// MembersOf returns a snapshot of the room's participant ids in join order.
func (r *Registry) MembersOf(roomID string) []string {
	r.mu.RLock()
	members := r.rooms[roomID]
	entries := make([]entry, 0, len(members))
	for _, e := range members {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.member.ParticipantID()
	}
	return ids
}

func (r *Registry) Count(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}

// Lookup finds the room and member of a participant.
func (r *Registry) Lookup(participantID string) (string, Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roomID, ok := r.where[participantID]
	if !ok {
		return "", nil, false
	}
	return roomID, r.rooms[roomID][participantID].member, true
}

// Stats returns the number of non-empty rooms and of participants.
func (r *Registry) Stats() (rooms, participants int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms), len(r.where)
}
