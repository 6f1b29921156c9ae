package hub

import (
	"RTHub/logger"
	"RTHub/tools/errs"
)

// Handler processes one inbound event kind. Payload decoding happens
// inside the handler (tools/decode), so dispatch itself stays a pure
// table lookup over event names decided at deserialization time.
type Handler interface {
	Event() string
	Handle(h *Hub, s *Session, data map[string]any) error
}

type Dispatcher struct {
	handlers map[string]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

func (d *Dispatcher) Register(h Handler) { d.handlers[h.Event()] = h }

// Dispatch routes a parsed frame. An unknown event is answered with an
// error frame to the originating session only and is otherwise a no-op.
func (d *Dispatcher) Dispatch(h *Hub, s *Session, f *InboundFrame) error {
	hd, ok := d.handlers[f.Event]
	if !ok {
		s.Push(MarshalFrame(EvError, "unknown event: "+f.Event))
		return errs.ErrUnknownEvent.WithDetail(f.Event)
	}
	if err := hd.Handle(h, s, f.Data); err != nil {
		// handler errors stay session-local, the read loop survives
		logger.Debugf("[dispatch] event=%s conn=%s err=%v", f.Event, s.ConnID, err)
		return err
	}
	return nil
}
