package hub

import (
	"encoding/json"
	"fmt"
	"time"
)

// Client -> server event names.
const (
	EvSubscribe   = "subscribe"
	EvUnsubscribe = "unsubscribe"
	EvJoinRoom    = "join_room"
	EvLeaveRoom   = "leave_room"
	EvGetStats    = "get_stats"
	EvPing        = "ping"
)

// Server -> client event names.
const (
	EvConnected      = "connected"
	EvJoinedRoom     = "joined_room"
	EvLeftRoom       = "left_room"
	EvSubscribed     = "subscribed"
	EvUnsubscribed   = "unsubscribed"
	EvError          = "error"
	EvPong           = "pong"
	EvStats          = "stats"
	EvNewArticle     = "new_article"
	EvNotification   = "notification"
	EvSystemMessage  = "system_message"
	EvServerShutdown = "server_shutdown"
)

// Frame is the wire shape in both directions: {"event": ..., "data": ...}.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// InboundFrame keeps the payload generic; handlers decode it into
// their typed payload via tools/decode.
type InboundFrame struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

func ParseFrame(raw []byte) (*InboundFrame, error) {
	f := &InboundFrame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, fmt.Errorf("unmarshal frame: %w", err)
	}
	if f.Event == "" {
		return nil, fmt.Errorf("frame missing event")
	}
	return f, nil
}

// MarshalFrame serializes an outbound frame. Marshal failures can only
// come from unsupported Data types, which is a programming error, so
// callers get a plain error frame instead of nothing.
func MarshalFrame(event string, data any) []byte {
	b, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		b, _ = json.Marshal(Frame{Event: EvError, Data: "internal encode error"})
	}
	return b
}

// TargetKind says who a Delivery goes to: exactly one of user, room, all.
type TargetKind int

const (
	TargetAll TargetKind = iota
	TargetUser
	TargetRoom
)

// Delivery is one outbound event plus its routing. It is encoded once
// and the same bytes are pushed to every matching session.
type Delivery struct {
	Event  string
	Data   any
	Kind   TargetKind
	UserID string // set when Kind == TargetUser
	Room   string // set when Kind == TargetRoom
}

func (d *Delivery) Encode() ([]byte, error) {
	b, err := json.Marshal(Frame{Event: d.Event, Data: d.Data})
	if err != nil {
		return nil, fmt.Errorf("encode delivery %q: %w", d.Event, err)
	}
	return b, nil
}

func nowMilli() int64 { return time.Now().UnixMilli() }
