package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"RTHub/logger"
	"RTHub/service/hub"
	"RTHub/tools/errs"
)

// Deliverer is the bridge's downstream: the hub's fan-out entry point.
type Deliverer interface {
	Deliver(d *hub.Delivery) error
}

// TargetSelector derives the delivery target from a decoded payload.
type TargetSelector func(payload map[string]any) (kind hub.TargetKind, room, userID string, err error)

// Route declares how one bus channel translates into deliveries:
// which outbound event it becomes and who receives it. The bridge is
// nothing but this table applied to inbound messages.
type Route struct {
	Channel string
	Event   string
	Target  TargetSelector
}

// Channels names the external channels a node subscribes to.
type Channels struct {
	Articles      string
	Notifications string
	System        string
}

// DefaultRoutes builds the standard table:
//   - articles channel      -> room news:<category> as new_article
//   - notifications channel -> user <user_id>       as notification
//   - system channel        -> everyone             as system_message
func DefaultRoutes(ch Channels) []Route {
	return []Route{
		{
			Channel: ch.Articles,
			Event:   hub.EvNewArticle,
			Target:  RoomByCategory("category"),
		},
		{
			Channel: ch.Notifications,
			Event:   hub.EvNotification,
			Target:  UserByField("user_id"),
		},
		{
			Channel: ch.System,
			Event:   hub.EvSystemMessage,
			Target:  ToAll(),
		},
	}
}

// RoomByCategory selects the interest room named by a payload field.
func RoomByCategory(field string) TargetSelector {
	return func(payload map[string]any) (hub.TargetKind, string, string, error) {
		cat, ok := payload[field].(string)
		if !ok || cat == "" {
			return 0, "", "", fmt.Errorf("missing %q field", field)
		}
		return hub.TargetRoom, hub.RoomForCategory(cat), "", nil
	}
}

// UserByField selects the user identity embedded in the payload.
func UserByField(field string) TargetSelector {
	return func(payload map[string]any) (hub.TargetKind, string, string, error) {
		switch v := payload[field].(type) {
		case string:
			if v == "" {
				return 0, "", "", fmt.Errorf("empty %q field", field)
			}
			return hub.TargetUser, "", v, nil
		case float64:
			return hub.TargetUser, "", fmt.Sprintf("%.0f", v), nil
		default:
			return 0, "", "", fmt.Errorf("missing %q field", field)
		}
	}
}

// ToAll selects every connected session.
func ToAll() TargetSelector {
	return func(map[string]any) (hub.TargetKind, string, string, error) {
		return hub.TargetAll, "", "", nil
	}
}

// Bridge subscribes the route table on a Subscriber and translates
// each inbound message into a Delivery. Decode and routing failures are
// logged and the message dropped; the subscription loops never die.
type Bridge struct {
	sub    Subscriber
	sink   Deliverer
	routes []Route
}

func NewBridge(sub Subscriber, sink Deliverer, routes []Route) *Bridge {
	return &Bridge{sub: sub, sink: sink, routes: routes}
}

// Start subscribes every route. Fails fast: a node that cannot hear
// its channels is not serving its purpose.
func (b *Bridge) Start() error {
	for _, r := range b.routes {
		route := r
		if route.Channel == "" {
			continue
		}
		if err := b.sub.Subscribe(route.Channel, func(ctx context.Context, m Message) error {
			return b.handle(route, m)
		}); err != nil {
			return errs.Wrap(err, "bridge subscribe "+route.Channel)
		}
		logger.Infof("[bridge] subscribed channel=%s event=%s", route.Channel, route.Event)
	}
	return nil
}

func (b *Bridge) Close() error { return b.sub.Close() }

// handle is the whole translation: decode JSON, pick the target, hand
// the delivery to the hub. Every failure path returns after a log line.
func (b *Bridge) handle(r Route, m Message) error {
	var payload map[string]any
	if err := json.Unmarshal(m.Data, &payload); err != nil {
		logger.Warnf("[bridge] drop malformed payload channel=%s err=%v", m.Channel, err)
		return errs.ErrBridgeDecode.WithDetail(err.Error())
	}

	kind, room, userID, err := r.Target(payload)
	if err != nil {
		logger.Warnf("[bridge] drop unroutable payload channel=%s err=%v", m.Channel, err)
		return errs.ErrBridgeDecode.WithDetail(err.Error())
	}

	return b.sink.Deliver(&hub.Delivery{
		Event:  r.Event,
		Data:   payload,
		Kind:   kind,
		Room:   room,
		UserID: userID,
	})
}
