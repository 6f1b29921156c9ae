package hub

import (
	"sync"
	"sync/atomic"
	"time"

	"RTHub/logger"

	"github.com/gorilla/websocket"
)

const writeDeadline = 5 * time.Second

// Session is one accepted, authenticated connection. A user may hold
// several sessions (devices), each with its own outbound queue drained
// by a single writer goroutine (gorilla: one writer per conn).
type Session struct {
	ConnID string
	UserID string
	WS     *websocket.Conn

	send      chan []byte
	mu        sync.Mutex // guards closed + send close
	closed    bool
	alive     atomic.Bool
	createdAt time.Time

	// joined room names; guarded by the owning Registry's lock so the
	// room set and the registry's member sets mutate in one critical
	// section.
	rooms map[string]struct{}
}

func NewSession(connID, userID string, ws *websocket.Conn, queueSize int) *Session {
	s := &Session{
		ConnID:    connID,
		UserID:    userID,
		WS:        ws,
		send:      make(chan []byte, queueSize),
		createdAt: time.Now(),
		rooms:     make(map[string]struct{}),
	}
	s.alive.Store(true)
	return s
}

// MarkAlive records that the peer responded since the last probe.
func (s *Session) MarkAlive() { s.alive.Store(true) }

// Alive reports and clears happen via the heartbeat monitor only.
func (s *Session) Alive() bool { return s.alive.Load() }

func (s *Session) markAwaitingPong() { s.alive.Store(false) }

// Push enqueues pre-serialized bytes without blocking. A full buffer
// means a slow consumer: the frame is dropped and the session loses its
// alive flag so the next heartbeat cycle evicts it.
func (s *Session) Push(payload []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- payload:
		return true
	default:
		s.alive.Store(false)
		logger.Debugf("[session] send buffer full, dropping frame conn=%s user=%s", s.ConnID, s.UserID)
		return false
	}
}

// Close shuts the outbound queue; the write pump then sends a close
// frame and closes the socket. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.send)
	s.mu.Unlock()
}

// writePump drains the send queue onto the socket. Runs as the only
// writer for this connection; exits when Close is called or a write
// fails.
func (s *Session) writePump() {
	defer func() {
		_ = s.WS.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeDeadline))
		_ = s.WS.Close()
	}()

	for payload := range s.send {
		_ = s.WS.SetWriteDeadline(time.Now().Add(writeDeadline))
		if err := s.WS.WriteMessage(websocket.TextMessage, payload); err != nil {
			logger.Debugf("[session] write failed conn=%s user=%s err=%v", s.ConnID, s.UserID, err)
			return
		}
	}
}

// probe sends a websocket ping control frame; the peer's pong (or a
// client-level ping frame) re-arms the alive flag.
func (s *Session) probe() error {
	return s.WS.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline))
}
