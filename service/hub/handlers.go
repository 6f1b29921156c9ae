package hub

import (
	"RTHub/tools/decode"
	"RTHub/tools/errs"
)

// Typed payloads for the inbound event union.

type SubscribePayload struct {
	Type    string            `json:"type"`
	Filters map[string]string `json:"filters"`
}

type RoomPayload struct {
	Room string `json:"room"`
}

// ---- subscribe / unsubscribe ----

type subscribeHandler struct{}

func (subscribeHandler) Event() string { return EvSubscribe }

// Handle joins the computed room and immediately pushes a snapshot to
// the requesting session, so the client cannot miss the first event
// between joining and the next bus delivery.
func (subscribeHandler) Handle(h *Hub, s *Session, data map[string]any) error {
	p, err := decode.DecodeMap[SubscribePayload](data)
	if err != nil || p.Type == "" {
		s.Push(MarshalFrame(EvError, "bad subscribe payload"))
		return errs.ErrUnknownEvent.WithDetail("bad subscribe payload")
	}
	room := RoomForSubscription(p.Type, p.Filters)
	h.reg.Join(s.UserID, room)

	s.Push(MarshalFrame(EvSubscribed, h.snapshotFor(room, p.Type)))
	return nil
}

type unsubscribeHandler struct{}

func (unsubscribeHandler) Event() string { return EvUnsubscribe }

func (unsubscribeHandler) Handle(h *Hub, s *Session, data map[string]any) error {
	p, err := decode.DecodeMap[SubscribePayload](data)
	if err != nil || p.Type == "" {
		s.Push(MarshalFrame(EvError, "bad unsubscribe payload"))
		return errs.ErrUnknownEvent.WithDetail("bad unsubscribe payload")
	}
	room := RoomForSubscription(p.Type, p.Filters)
	h.reg.Leave(s.UserID, room)
	s.Push(MarshalFrame(EvUnsubscribed, map[string]any{"room": room, "ts": nowMilli()}))
	return nil
}

// ---- join_room / leave_room ----

type joinRoomHandler struct{}

func (joinRoomHandler) Event() string { return EvJoinRoom }

func (joinRoomHandler) Handle(h *Hub, s *Session, data map[string]any) error {
	p, err := decode.DecodeMap[RoomPayload](data)
	if err != nil || p.Room == "" {
		s.Push(MarshalFrame(EvError, "bad join_room payload"))
		return errs.ErrUnknownEvent.WithDetail("bad join_room payload")
	}
	h.reg.Join(s.UserID, p.Room)
	s.Push(MarshalFrame(EvJoinedRoom, map[string]any{"room": p.Room, "ts": nowMilli()}))
	return nil
}

type leaveRoomHandler struct{}

func (leaveRoomHandler) Event() string { return EvLeaveRoom }

func (leaveRoomHandler) Handle(h *Hub, s *Session, data map[string]any) error {
	p, err := decode.DecodeMap[RoomPayload](data)
	if err != nil || p.Room == "" {
		s.Push(MarshalFrame(EvError, "bad leave_room payload"))
		return errs.ErrUnknownEvent.WithDetail("bad leave_room payload")
	}
	h.reg.Leave(s.UserID, p.Room)
	s.Push(MarshalFrame(EvLeftRoom, map[string]any{"room": p.Room, "ts": nowMilli()}))
	return nil
}

// ---- get_stats / ping ----

type getStatsHandler struct{}

func (getStatsHandler) Event() string { return EvGetStats }

func (getStatsHandler) Handle(h *Hub, s *Session, _ map[string]any) error {
	conns, users, rooms := h.reg.Counts()
	s.Push(MarshalFrame(EvStats, map[string]any{
		"connections": conns,
		"users":       users,
		"rooms":       rooms,
		"your_rooms":  h.reg.RoomsOf(s.UserID),
		"uptime_sec":  int64(h.Uptime().Seconds()),
	}))
	return nil
}

type pingHandler struct{}

func (pingHandler) Event() string { return EvPing }

// A client-level ping counts as liveness, same as a transport pong.
func (pingHandler) Handle(_ *Hub, s *Session, _ map[string]any) error {
	s.MarkAlive()
	s.Push(MarshalFrame(EvPong, map[string]any{"ts": nowMilli()}))
	return nil
}

func registerDefaultHandlers(d *Dispatcher) {
	d.Register(subscribeHandler{})
	d.Register(unsubscribeHandler{})
	d.Register(joinRoomHandler{})
	d.Register(leaveRoomHandler{})
	d.Register(getStatsHandler{})
	d.Register(pingHandler{})
}
