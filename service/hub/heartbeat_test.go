package hub

import (
	"testing"
	"time"
)

func newTestMonitor(h *Hub) (*Monitor, *int) {
	m := NewMonitor(h, time.Hour)
	probes := 0
	m.probe = func(*Session) error { probes++; return nil }
	return m, &probes
}

func TestSilentSessionEvictedAfterTwoCycles(t *testing.T) {
	h := newTestHub()
	s := newTestSession("c1", "u1")
	h.reg.Register(s)
	h.reg.Join("u1", "news:sports")
	m, probes := newTestMonitor(h)

	// first cycle: still alive, gets probed and flagged
	m.Cycle()
	if *probes != 1 {
		t.Fatalf("probes = %d, want 1", *probes)
	}
	if len(h.reg.SessionsFor("u1")) != 1 {
		t.Fatalf("session should survive the first cycle")
	}

	// second cycle with no pong: evicted everywhere
	m.Cycle()
	if got := h.reg.SessionsFor("u1"); got != nil {
		t.Fatalf("session should be evicted, got %v", got)
	}
	if got := h.reg.MembersOf("news:sports"); got != nil {
		t.Fatalf("room membership should be cleaned, got %v", got)
	}
}

func TestPongKeepsSessionAlive(t *testing.T) {
	h := newTestHub()
	s := newTestSession("c1", "u1")
	h.reg.Register(s)
	m, _ := newTestMonitor(h)

	for i := 0; i < 3; i++ {
		m.Cycle()
		s.MarkAlive() // simulated pong between probes
	}
	if len(h.reg.SessionsFor("u1")) != 1 {
		t.Fatalf("responsive session should never be evicted")
	}
}

func TestProbeFailureEvicts(t *testing.T) {
	h := newTestHub()
	s := newTestSession("c1", "u1")
	h.reg.Register(s)
	m := NewMonitor(h, time.Hour)
	m.probe = func(*Session) error { return errTest }

	m.Cycle()
	if got := h.reg.SessionsFor(s.UserID); got != nil {
		t.Fatalf("session with a dead handle should be evicted, got %v", got)
	}
}

type testErr string

func (e testErr) Error() string { return string(e) }

const errTest = testErr("probe write failed")

func TestSlowConsumerMarkedDead(t *testing.T) {
	h := newTestHub()
	s := NewSession("c1", "u1", nil, 1)
	h.reg.Register(s)

	if !s.Push([]byte("a")) {
		t.Fatalf("first push should fit the buffer")
	}
	if s.Push([]byte("b")) {
		t.Fatalf("second push should be dropped")
	}
	if s.Alive() {
		t.Fatalf("a full buffer must clear the alive flag")
	}

	m, _ := newTestMonitor(h)
	m.Cycle()
	if got := h.reg.SessionsFor("u1"); got != nil {
		t.Fatalf("slow consumer should be evicted on the next cycle, got %v", got)
	}
}

func TestPushAfterCloseIsSafe(t *testing.T) {
	s := newTestSession("c1", "u1")
	s.Close()
	s.Close() // double close must not panic
	if s.Push([]byte("x")) {
		t.Fatalf("push after close should report failure")
	}
}
