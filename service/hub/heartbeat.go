package hub

import (
	"sync"
	"time"

	"RTHub/logger"
)

// Monitor drives the per-session liveness state machine:
//
//	ALIVE -> (probe sent) -> AWAITING_PONG -> ALIVE   on pong
//	AWAITING_PONG -> DEAD -> evicted                  on a second silent cycle
//
// It is the only detector for silently-dead peers; eviction here is
// routine reclamation, not an error, so it logs at debug.
type Monitor struct {
	hub   *Hub
	every time.Duration

	// injectable for tests
	probe func(*Session) error

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewMonitor(h *Hub, every time.Duration) *Monitor {
	if every <= 0 {
		every = 30 * time.Second
	}
	return &Monitor{
		hub:    h,
		every:  every,
		probe:  func(s *Session) error { return s.probe() },
		stopCh: make(chan struct{}),
	}
}

func (m *Monitor) Run() {
	t := time.NewTicker(m.every)
	defer t.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-t.C:
			m.Cycle()
		}
	}
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// Cycle evicts every session that stayed silent since the previous
// probe, then clears the flag on survivors and probes them again.
func (m *Monitor) Cycle() {
	for _, s := range m.hub.reg.AllSessions() {
		if !s.Alive() {
			logger.Debugf("[heartbeat] no pong, evicting conn=%s user=%s", s.ConnID, s.UserID)
			m.hub.Evict(s)
			continue
		}
		s.markAwaitingPong()
		if err := m.probe(s); err != nil {
			logger.Debugf("[heartbeat] probe failed, evicting conn=%s user=%s err=%v", s.ConnID, s.UserID, err)
			m.hub.Evict(s)
		}
	}
}
