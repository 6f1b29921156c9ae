package hub

import (
	"testing"
)

// Room targeting: A and B joined news:sports, C did not. The room
// delivery reaches A and B only.
func TestDeliverRoomTargeting(t *testing.T) {
	h := newTestHub()
	a := newTestSession("c1", "A")
	b := newTestSession("c2", "B")
	c := newTestSession("c3", "C")
	for _, s := range []*Session{a, b, c} {
		h.reg.Register(s)
	}
	h.reg.Join("A", "news:sports")
	h.reg.Join("B", "news:sports")

	err := h.Deliver(&Delivery{
		Event: EvNewArticle,
		Data:  map[string]any{"category": "sports", "id": 1},
		Kind:  TargetRoom,
		Room:  "news:sports",
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}

	for _, s := range []*Session{a, b} {
		f := readFrame(t, s)
		if f.Event != EvNewArticle {
			t.Fatalf("user %s got %q, want new_article", s.UserID, f.Event)
		}
	}
	assertNoFrame(t, c)
}

func TestDeliverUserReachesAllSessions(t *testing.T) {
	h := newTestHub()
	phone := newTestSession("c1", "u1")
	laptop := newTestSession("c2", "u1")
	other := newTestSession("c3", "u2")
	for _, s := range []*Session{phone, laptop, other} {
		h.reg.Register(s)
	}

	err := h.Deliver(&Delivery{
		Event:  EvNotification,
		Data:   map[string]any{"text": "hi"},
		Kind:   TargetUser,
		UserID: "u1",
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}

	for _, s := range []*Session{phone, laptop} {
		if f := readFrame(t, s); f.Event != EvNotification {
			t.Fatalf("got %q, want notification", f.Event)
		}
	}
	assertNoFrame(t, other)
}

func TestDeliverAll(t *testing.T) {
	h := newTestHub()
	sessions := []*Session{
		newTestSession("c1", "u1"),
		newTestSession("c2", "u2"),
		newTestSession("c3", "u3"),
	}
	for _, s := range sessions {
		h.reg.Register(s)
	}
	h.reg.Join("u1", "news:sports")

	err := h.Deliver(&Delivery{
		Event: EvSystemMessage,
		Data:  map[string]any{"text": "maintenance"},
		Kind:  TargetAll,
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	for _, s := range sessions {
		if f := readFrame(t, s); f.Event != EvSystemMessage {
			t.Fatalf("got %q, want system_message", f.Event)
		}
	}
}

// A target with no live sessions is a silent no-op, not an error.
func TestDeliverMissingTargetIsNoop(t *testing.T) {
	h := newTestHub()
	if err := h.Deliver(&Delivery{Event: EvNotification, Kind: TargetUser, UserID: "ghost"}); err != nil {
		t.Fatalf("missing user should be a no-op, got %v", err)
	}
	if err := h.Deliver(&Delivery{Event: EvNewArticle, Kind: TargetRoom, Room: "news:none"}); err != nil {
		t.Fatalf("missing room should be a no-op, got %v", err)
	}
}

func TestEvictRemovesEverywhere(t *testing.T) {
	h := newTestHub()
	s := newTestSession("c1", "u1")
	h.reg.Register(s)
	h.reg.Join("u1", "news:sports")

	h.Evict(s)

	if got := h.reg.SessionsFor("u1"); got != nil {
		t.Fatalf("sessions = %v, want none", got)
	}
	if got := h.reg.MembersOf("news:sports"); got != nil {
		t.Fatalf("members = %v, want none", got)
	}
	if s.Push([]byte("x")) {
		t.Fatalf("evicted session must not accept frames")
	}
}
