package hub

import (
	"sync"
	"time"
)

// Registry owns both maps of the core: user -> live sessions and
// room -> member users. One lock spans both because the consistency
// invariant does: a session's room set and the rooms' member sets must
// agree, and every mutation keeps them agreeing inside one critical
// section. Raw maps are never handed out.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]*Session // userID -> connID -> session
	rooms  map[string]map[string]struct{} // room -> set of userIDs

	maxPerUser  int
	evictOldest bool
}

func NewRegistry(maxPerUser int, evictOldest bool) *Registry {
	return &Registry{
		byUser:      make(map[string]map[string]*Session),
		rooms:       make(map[string]map[string]struct{}),
		maxPerUser:  maxPerUser,
		evictOldest: evictOldest,
	}
}

// Register adds the session under its user. A user's sessions share one
// room set, so a second device inherits the rooms the user already
// joined. When the per-user cap is hit and evictOldest is on, the
// oldest session is unlinked and returned for the caller to close; with
// eviction off the new session is rejected (ok == false).
func (r *Registry) Register(s *Session) (evicted *Session, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mm := r.byUser[s.UserID]
	if mm == nil {
		mm = make(map[string]*Session)
		r.byUser[s.UserID] = mm
	}

	if r.maxPerUser > 0 && len(mm) >= r.maxPerUser {
		if !r.evictOldest {
			return nil, false
		}
		var oldest *Session
		var oldestAt time.Time
		for _, w := range mm {
			if oldest == nil || w.createdAt.Before(oldestAt) {
				oldest, oldestAt = w, w.createdAt
			}
		}
		if oldest != nil {
			delete(mm, oldest.ConnID)
			evicted = oldest
		}
	}

	mm[s.ConnID] = s

	// Inherit the user's current rooms so every session of a user sees
	// the same member sets.
	for room, members := range r.rooms {
		if _, in := members[s.UserID]; in {
			s.rooms[room] = struct{}{}
		}
	}
	return evicted, true
}

// Remove unlinks the session and, when it was the user's last one,
// drops the user identity entirely: the user leaves every room the
// session had joined, deleting rooms that become empty.
// Returns whether the user is now fully gone.
func (r *Registry) Remove(s *Session) (lastSession bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mm := r.byUser[s.UserID]
	if mm == nil {
		return false
	}
	if _, present := mm[s.ConnID]; !present {
		return false
	}
	delete(mm, s.ConnID)
	if len(mm) > 0 {
		return false
	}
	delete(r.byUser, s.UserID)

	for room := range s.rooms {
		r.dropMemberLocked(room, s.UserID)
	}
	return true
}

// Join adds the user to a room, creating the room on first join.
// Idempotent: re-joining reports changed == false. Every session of the
// user records the room.
func (r *Registry) Join(userID, room string) (changed bool) {
	if room == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[room]
	if members == nil {
		members = make(map[string]struct{})
		r.rooms[room] = members
	}
	_, already := members[userID]
	members[userID] = struct{}{}

	for _, s := range r.byUser[userID] {
		s.rooms[room] = struct{}{}
	}
	return !already
}

// Leave removes the user from a room; an emptied room is deleted so
// churn cannot grow the map.
func (r *Registry) Leave(userID, room string) (changed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[room]
	if members == nil {
		return false
	}
	if _, in := members[userID]; !in {
		return false
	}
	r.dropMemberLocked(room, userID)

	for _, s := range r.byUser[userID] {
		delete(s.rooms, room)
	}
	return true
}

func (r *Registry) dropMemberLocked(room, userID string) {
	members := r.rooms[room]
	if members == nil {
		return
	}
	delete(members, userID)
	if len(members) == 0 {
		delete(r.rooms, room)
	}
}

// MembersOf returns a copy of the room's member user ids.
func (r *Registry) MembersOf(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[room]
	if len(members) == 0 {
		return nil
	}
	out := make([]string, 0, len(members))
	for u := range members {
		out = append(out, u)
	}
	return out
}

// SessionsFor returns a snapshot of the user's live sessions.
func (r *Registry) SessionsFor(userID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mm := r.byUser[userID]
	if len(mm) == 0 {
		return nil
	}
	out := make([]*Session, 0, len(mm))
	for _, s := range mm {
		out = append(out, s)
	}
	return out
}

// SessionsInRoom snapshots every session whose user is a room member.
// Fan-out iterates the snapshot outside the lock, so a concurrent
// leave only means a harmless push to an already-closed session.
func (r *Registry) SessionsInRoom(room string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[room]
	if len(members) == 0 {
		return nil
	}
	var out []*Session
	for u := range members {
		for _, s := range r.byUser[u] {
			out = append(out, s)
		}
	}
	return out
}

// AllSessions snapshots every live session.
func (r *Registry) AllSessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Session
	for _, mm := range r.byUser {
		for _, s := range mm {
			out = append(out, s)
		}
	}
	return out
}

// RoomsOf returns a copy of the rooms the user is currently in.
func (r *Registry) RoomsOf(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for room, members := range r.rooms {
		if _, in := members[userID]; in {
			out = append(out, room)
		}
	}
	return out
}

// Counts reports live connections, distinct users and rooms.
func (r *Registry) Counts() (connections, users, rooms int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, mm := range r.byUser {
		connections += len(mm)
	}
	return connections, len(r.byUser), len(r.rooms)
}
