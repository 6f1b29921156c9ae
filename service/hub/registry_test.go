package hub

import (
	"sort"
	"testing"
	"time"
)

func newTestSession(connID, userID string) *Session {
	return NewSession(connID, userID, nil, 16)
}

func TestJoinIdempotent(t *testing.T) {
	r := NewRegistry(0, false)
	s := newTestSession("c1", "u1")
	r.Register(s)

	if changed := r.Join("u1", "news:sports"); !changed {
		t.Fatalf("first join should report changed")
	}
	if changed := r.Join("u1", "news:sports"); changed {
		t.Errorf("second join should be a no-op")
	}
	if got := len(r.MembersOf("news:sports")); got != 1 {
		t.Fatalf("members = %d, want 1", got)
	}
}

func TestLeaveDeletesEmptyRoom(t *testing.T) {
	r := NewRegistry(0, false)
	s := newTestSession("c1", "u1")
	r.Register(s)
	r.Join("u1", "news:politics")

	r.Leave("u1", "news:politics")

	if members := r.MembersOf("news:politics"); members != nil {
		t.Fatalf("room should be gone, got members %v", members)
	}
	_, _, rooms := r.Counts()
	if rooms != 0 {
		t.Fatalf("rooms = %d, want 0", rooms)
	}
}

func TestRemoveLastSessionCleansRooms(t *testing.T) {
	r := NewRegistry(0, false)
	s := newTestSession("c1", "u1")
	r.Register(s)
	r.Join("u1", "news:sports")
	r.Join("u1", "user:u1")

	if last := r.Remove(s); !last {
		t.Fatalf("removing the only session should report last")
	}
	if got := r.SessionsFor("u1"); got != nil {
		t.Errorf("sessions should be gone, got %v", got)
	}
	if m := r.MembersOf("news:sports"); m != nil {
		t.Errorf("news:sports should be gone, got %v", m)
	}
	_, users, rooms := r.Counts()
	if users != 0 || rooms != 0 {
		t.Fatalf("users=%d rooms=%d, want 0/0", users, rooms)
	}
}

func TestRemoveKeepsRoomsWhileOtherSessionsLive(t *testing.T) {
	r := NewRegistry(0, false)
	a := newTestSession("c1", "u1")
	b := newTestSession("c2", "u1")
	r.Register(a)
	r.Register(b)
	r.Join("u1", "news:sports")

	if last := r.Remove(a); last {
		t.Fatalf("u1 still has a session, remove must not report last")
	}
	members := r.MembersOf("news:sports")
	if len(members) != 1 || members[0] != "u1" {
		t.Fatalf("membership should survive, got %v", members)
	}
}

func TestSecondSessionInheritsRooms(t *testing.T) {
	r := NewRegistry(0, false)
	a := newTestSession("c1", "u1")
	r.Register(a)
	r.Join("u1", "news:sports")

	b := newTestSession("c2", "u1")
	r.Register(b)

	if _, in := b.rooms["news:sports"]; !in {
		t.Fatalf("second session should inherit the user's rooms, got %v", b.rooms)
	}
}

// Bidirectional consistency: a session's local room set must equal the
// set of rooms whose member list contains its user.
func TestRoomConsistency(t *testing.T) {
	r := NewRegistry(0, false)
	s := newTestSession("c1", "u1")
	r.Register(s)
	r.Join("u1", "news:sports")
	r.Join("u1", "news:tech")
	r.Leave("u1", "news:sports")

	var fromRooms []string
	for _, room := range []string{"news:sports", "news:tech"} {
		for _, m := range r.MembersOf(room) {
			if m == "u1" {
				fromRooms = append(fromRooms, room)
			}
		}
	}
	var fromSession []string
	for room := range s.rooms {
		fromSession = append(fromSession, room)
	}
	sort.Strings(fromRooms)
	sort.Strings(fromSession)

	if len(fromRooms) != 1 || len(fromSession) != 1 || fromRooms[0] != fromSession[0] {
		t.Fatalf("registry view %v != session view %v", fromRooms, fromSession)
	}
}

func TestMaxPerUserEvictOldest(t *testing.T) {
	r := NewRegistry(2, true)
	a := newTestSession("c1", "u1")
	a.createdAt = time.Now().Add(-2 * time.Minute)
	b := newTestSession("c2", "u1")
	b.createdAt = time.Now().Add(-time.Minute)
	r.Register(a)
	r.Register(b)

	c := newTestSession("c3", "u1")
	evicted, ok := r.Register(c)
	if !ok {
		t.Fatalf("register with eviction enabled should succeed")
	}
	if evicted == nil || evicted.ConnID != "c1" {
		t.Fatalf("oldest session should be evicted, got %+v", evicted)
	}
	if got := len(r.SessionsFor("u1")); got != 2 {
		t.Fatalf("sessions = %d, want 2", got)
	}
}

func TestMaxPerUserRejectWithoutEviction(t *testing.T) {
	r := NewRegistry(1, false)
	r.Register(newTestSession("c1", "u1"))

	if _, ok := r.Register(newTestSession("c2", "u1")); ok {
		t.Fatalf("register over the cap should be rejected")
	}
}
