package bus

import (
	"context"
	"testing"

	"RTHub/service/hub"
)

// fakeSub lets tests publish into registered handlers directly.
type fakeSub struct {
	handlers map[string]Handler
}

func newFakeSub() *fakeSub { return &fakeSub{handlers: make(map[string]Handler)} }

func (f *fakeSub) Subscribe(channel string, h Handler) error {
	f.handlers[channel] = h
	return nil
}

func (f *fakeSub) Close() error { return nil }

func (f *fakeSub) publish(t *testing.T, channel string, data []byte) error {
	t.Helper()
	h, ok := f.handlers[channel]
	if !ok {
		t.Fatalf("no subscription for %s", channel)
	}
	return h(context.Background(), Message{Channel: channel, Data: data})
}

// fakeSink records deliveries instead of fanning out.
type fakeSink struct {
	got []*hub.Delivery
}

func (f *fakeSink) Deliver(d *hub.Delivery) error {
	f.got = append(f.got, d)
	return nil
}

var testChannels = Channels{
	Articles:      "articles.new",
	Notifications: "notifications.user",
	System:        "system.broadcast",
}

func newTestBridge(t *testing.T) (*fakeSub, *fakeSink) {
	t.Helper()
	sub := newFakeSub()
	sink := &fakeSink{}
	b := NewBridge(sub, sink, DefaultRoutes(testChannels))
	if err := b.Start(); err != nil {
		t.Fatalf("bridge start: %v", err)
	}
	return sub, sink
}

func TestBridgeRoutesByCategory(t *testing.T) {
	sub, sink := newTestBridge(t)

	if err := sub.publish(t, "articles.new", []byte(`{"category":"sports","id":1}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(sink.got) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(sink.got))
	}
	d := sink.got[0]
	if d.Kind != hub.TargetRoom || d.Room != "news:sports" {
		t.Fatalf("target = kind %d room %q, want room news:sports", d.Kind, d.Room)
	}
	if d.Event != hub.EvNewArticle {
		t.Fatalf("event = %q, want new_article", d.Event)
	}
}

func TestBridgeRoutesToUser(t *testing.T) {
	sub, sink := newTestBridge(t)

	if err := sub.publish(t, "notifications.user", []byte(`{"user_id":"42","text":"hi"}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	d := sink.got[0]
	if d.Kind != hub.TargetUser || d.UserID != "42" {
		t.Fatalf("target = kind %d user %q, want user 42", d.Kind, d.UserID)
	}

	// numeric ids are normalized to their string form
	if err := sub.publish(t, "notifications.user", []byte(`{"user_id":7}`)); err != nil {
		t.Fatalf("publish numeric: %v", err)
	}
	if d := sink.got[1]; d.UserID != "7" {
		t.Fatalf("numeric user id = %q, want 7", d.UserID)
	}
}

func TestBridgeRoutesSystemToAll(t *testing.T) {
	sub, sink := newTestBridge(t)

	if err := sub.publish(t, "system.broadcast", []byte(`{"text":"maintenance"}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	d := sink.got[0]
	if d.Kind != hub.TargetAll {
		t.Fatalf("kind = %d, want all", d.Kind)
	}
	if d.Event != hub.EvSystemMessage {
		t.Fatalf("event = %q, want system_message", d.Event)
	}
}

func TestBridgeDropsMalformedPayload(t *testing.T) {
	sub, sink := newTestBridge(t)

	if err := sub.publish(t, "articles.new", []byte(`{{not json`)); err == nil {
		t.Fatalf("malformed payload should error")
	}
	if err := sub.publish(t, "articles.new", []byte(`{"id":1}`)); err == nil {
		t.Fatalf("payload without category should error")
	}
	if len(sink.got) != 0 {
		t.Fatalf("nothing should be delivered, got %d", len(sink.got))
	}

	// the subscription stays usable after drops
	if err := sub.publish(t, "articles.new", []byte(`{"category":"tech"}`)); err != nil {
		t.Fatalf("publish after drops: %v", err)
	}
	if len(sink.got) != 1 {
		t.Fatalf("good payload should still deliver")
	}
}
