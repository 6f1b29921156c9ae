package hub

import (
	"context"
	"net"
	"net/http"
	"time"

	"RTHub/logger"
	"RTHub/service/storage"
	"RTHub/tools/ids"
	"RTHub/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Options configures a Hub node.
type Options struct {
	NodeID         string
	Verifier       TokenVerifier
	Prefs          storage.PrefStore
	SendQueueSize  int
	FanoutWorkers  int
	FanoutQueue    int
	MaxPerUser     int
	EvictOldest    bool
	HeartbeatEvery time.Duration
	PresenceTTL    time.Duration // 0 disables the redis presence mirror
}

// Hub ties the registry, the fan-out pool, the dispatcher and the
// heartbeat monitor into one node.
type Hub struct {
	nodeID    string
	reg       *Registry
	fan       *Fanout
	disp      *Dispatcher
	verifier  TokenVerifier
	prefs     storage.PrefStore
	monitor   *Monitor
	queueSize int

	presenceTTL time.Duration
	start       time.Time
}

func New(o Options) *Hub {
	if o.SendQueueSize <= 0 {
		o.SendQueueSize = 256
	}
	if o.FanoutWorkers <= 0 {
		o.FanoutWorkers = 4
	}
	if o.FanoutQueue <= 0 {
		o.FanoutQueue = 1024
	}
	if o.Prefs == nil {
		o.Prefs = storage.NopPrefStore{}
	}
	h := &Hub{
		nodeID:      o.NodeID,
		reg:         NewRegistry(o.MaxPerUser, o.EvictOldest),
		fan:         NewFanout(o.FanoutWorkers, o.FanoutQueue),
		disp:        NewDispatcher(),
		verifier:    o.Verifier,
		prefs:       o.Prefs,
		queueSize:   o.SendQueueSize,
		presenceTTL: o.PresenceTTL,
		start:       time.Now(),
	}
	registerDefaultHandlers(h.disp)
	h.monitor = NewMonitor(h, o.HeartbeatEvery)
	return h
}

func (h *Hub) Registry() *Registry { return h.reg }
func (h *Hub) Monitor() *Monitor   { return h.monitor }
func (h *Hub) NodeID() string      { return h.nodeID }

func (h *Hub) Uptime() time.Duration { return time.Since(h.start) }

// Start launches the heartbeat loop.
func (h *Hub) Start() {
	safe.Go("heartbeat", h.monitor.Run)
}

// HandleWS is the gin endpoint: upgrade, authenticate, register, then
// run the read loop until the peer goes away.
func (h *Hub) HandleWS(c *gin.Context) {
	token := ExtractToken(c.Request)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade failed: %v", err)
		return
	}

	// Authentication gate: reject before any registry mutation.
	if token == "" {
		rejectHandshake(ws, "Authenticated required")
		return
	}
	userID, err := h.verifier.Verify(token)
	if err != nil {
		logger.Debugf("[ws] token rejected: %v", err)
		rejectHandshake(ws, "Invalid token")
		return
	}

	s := NewSession(ids.GenerateString(), userID, ws, h.queueSize)
	evicted, ok := h.reg.Register(s)
	if !ok {
		rejectHandshake(ws, "Too many sessions")
		return
	}
	if evicted != nil {
		logger.Infof("[ws] session cap hit, evicting oldest conn=%s user=%s", evicted.ConnID, evicted.UserID)
		evicted.Close()
	}

	ws.SetPongHandler(func(string) error {
		s.MarkAlive()
		return nil
	})

	go s.writePump()

	h.autoJoin(c.Request.Context(), s)
	h.presenceUp(s.UserID)

	s.Push(MarshalFrame(EvConnected, map[string]any{
		"userId": s.UserID,
		"connId": s.ConnID,
		"node":   h.nodeID,
		"ts":     nowMilli(),
	}))
	logger.Infof("[ws] connected user=%s conn=%s", s.UserID, s.ConnID)

	h.readLoop(s)

	last := h.reg.Remove(s)
	s.Close()
	if last {
		h.presenceDown(s.UserID)
	}
	logger.Infof("[ws] disconnected user=%s conn=%s", s.UserID, s.ConnID)
}

// autoJoin puts the session's user into the personal room plus the
// preference store's default categories. The store call runs before
// any lock is taken.
func (h *Hub) autoJoin(ctx context.Context, s *Session) {
	cats, err := h.prefs.DefaultCategories(ctx, s.UserID)
	if err != nil {
		logger.Warnf("[ws] preference lookup failed user=%s err=%v", s.UserID, err)
	}
	h.reg.Join(s.UserID, RoomForUser(s.UserID))
	for _, cat := range cats {
		h.reg.Join(s.UserID, RoomForCategory(cat))
	}
}

func (h *Hub) readLoop(s *Session) {
	for {
		mt, data, err := s.WS.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Debugf("[ws] peer closed conn=%s err=%v", s.ConnID, err)
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Debugf("[ws] read timeout conn=%s err=%v", s.ConnID, err)
			} else {
				logger.Debugf("[ws] read err conn=%s err=%v", s.ConnID, err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		f, perr := ParseFrame(data)
		if perr != nil {
			s.Push(MarshalFrame(EvError, "malformed frame"))
			continue
		}
		// Any valid inbound frame proves the peer is alive.
		s.MarkAlive()
		_ = h.disp.Dispatch(h, s, f)
	}
}

// rejectHandshake sends the error frame and the policy-violation close
// code, then drops the socket. No registry state exists yet.
func rejectHandshake(ws *websocket.Conn, reason string) {
	deadline := time.Now().Add(writeDeadline)
	_ = ws.SetWriteDeadline(deadline)
	_ = ws.WriteMessage(websocket.TextMessage, MarshalFrame(EvError, reason))
	_ = ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), deadline)
	_ = ws.Close()
}

// Deliver serializes the delivery once and fans it out to the sessions
// its target selects. A target with no live sessions is a no-op.
func (h *Hub) Deliver(d *Delivery) error {
	payload, err := d.Encode()
	if err != nil {
		return err
	}

	var sessions []*Session
	switch d.Kind {
	case TargetUser:
		sessions = h.reg.SessionsFor(d.UserID)
	case TargetRoom:
		sessions = h.reg.SessionsInRoom(d.Room)
	default:
		sessions = h.reg.AllSessions()
	}
	if len(sessions) == 0 {
		logger.Debugf("[deliver] no live sessions event=%s kind=%d", d.Event, d.Kind)
		return nil
	}
	h.fan.Broadcast(sessions, payload)
	return nil
}

// Evict removes a dead session: registry cleanup first (so no further
// fan-out selects it), then the handle is closed via the write pump.
func (h *Hub) Evict(s *Session) {
	last := h.reg.Remove(s)
	s.Close()
	if last {
		h.presenceDown(s.UserID)
	}
}

func (h *Hub) snapshotFor(room, typ string) map[string]any {
	return map[string]any{
		"room":    room,
		"type":    typ,
		"members": len(h.reg.MembersOf(room)),
		"ts":      nowMilli(),
	}
}

// Stats feeds the health endpoint.
func (h *Hub) Stats() (connections, rooms int, uptime time.Duration) {
	conns, _, nRooms := h.reg.Counts()
	return conns, nRooms, h.Uptime()
}

// Shutdown broadcasts the shutdown notice and closes every session.
// Best effort: in-flight deliveries may complete or be dropped.
func (h *Hub) Shutdown(ctx context.Context) {
	h.monitor.Stop()

	notice := MarshalFrame(EvServerShutdown, map[string]any{"ts": nowMilli()})
	for _, s := range h.reg.AllSessions() {
		s.Push(notice)
	}

	// Give write pumps a moment to flush before the handles close.
	select {
	case <-time.After(200 * time.Millisecond):
	case <-ctx.Done():
	}

	for _, s := range h.reg.AllSessions() {
		h.Evict(s)
	}
}

// presence mirror: advisory, failures only log.

func (h *Hub) presenceUp(userID string) {
	if h.presenceTTL <= 0 || storage.GetRedis() == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := storage.PresenceOnline(ctx, userID, h.nodeID, h.presenceTTL); err != nil {
		logger.Warnf("[presence] online failed user=%s err=%v", userID, err)
	}
}

func (h *Hub) presenceDown(userID string) {
	if h.presenceTTL <= 0 || storage.GetRedis() == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := storage.PresenceOffline(ctx, userID); err != nil {
		logger.Warnf("[presence] offline failed user=%s err=%v", userID, err)
	}
}
