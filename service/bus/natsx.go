package bus

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"RTHub/logger"
)

// NatsConfig configures the NATS subscriber.
type NatsConfig struct {
	Servers       []string
	Name          string
	Queue         string // queue group; empty means plain subscribe
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// NatsSubscriber wraps a core-NATS connection behind the Subscriber
// interface. Reconnects are unbounded; the library redelivers nothing,
// which matches the no-replay contract of this core.
type NatsSubscriber struct {
	nc    *nats.Conn
	queue string

	mu   sync.Mutex
	subs []*nats.Subscription
}

func NewNatsSubscriber(cfg NatsConfig) (*NatsSubscriber, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("nats servers missing")
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warnf("[nats] disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("[nats] reconnected to %s", nc.ConnectedUrl())
		}),
	}
	nc, err := nats.Connect(strings.Join(cfg.Servers, ","), opts...)
	if err != nil {
		return nil, errors.Wrap(err, "nats connect")
	}
	return &NatsSubscriber{nc: nc, queue: cfg.Queue}, nil
}

func (s *NatsSubscriber) Subscribe(channel string, h Handler) error {
	cb := func(m *nats.Msg) {
		msg := Message{
			Channel: m.Subject,
			Data:    append([]byte(nil), m.Data...),
		}
		if err := h(context.Background(), msg); err != nil {
			logger.Warnf("[nats] handler failed subject=%s err=%v", m.Subject, err)
		}
	}

	var (
		sub *nats.Subscription
		err error
	)
	if s.queue == "" {
		sub, err = s.nc.Subscribe(channel, cb)
	} else {
		sub, err = s.nc.QueueSubscribe(channel, s.queue, cb)
	}
	if err != nil {
		return errors.Wrapf(err, "subscribe %s", channel)
	}
	_ = sub.SetPendingLimits(1_000_000, 64*1024*1024)

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
	return nil
}

func (s *NatsSubscriber) Close() error {
	s.mu.Lock()
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.subs = nil
	s.mu.Unlock()
	return s.nc.Drain()
}
