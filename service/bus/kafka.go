package bus

import (
	"context"
	"sync"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"

	"RTHub/logger"
	"RTHub/tools/safe"
)

// KafkaConfig configures the Kafka-backed subscriber.
type KafkaConfig struct {
	Brokers []string
	GroupID string
	Version sarama.KafkaVersion // zero value -> V2_1_0_0
}

// KafkaSubscriber consumes topics through one consumer group. Each
// Subscribe registers a handler; the group session is (re)started with
// the union of subscribed topics.
type KafkaSubscriber struct {
	group sarama.ConsumerGroup

	mu       sync.Mutex
	handlers map[string]Handler
	topics   []string
	cancel   context.CancelFunc
	started  bool
}

func NewKafkaSubscriber(cfg KafkaConfig) (*KafkaSubscriber, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers missing")
	}
	version := cfg.Version
	if version == (sarama.KafkaVersion{}) {
		version = sarama.V2_1_0_0
	}

	sc := sarama.NewConfig()
	sc.Version = version
	sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	sc.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, sc)
	if err != nil {
		return nil, errors.Wrap(err, "kafka consumer group")
	}

	s := &KafkaSubscriber{
		group:    group,
		handlers: make(map[string]Handler),
	}

	safe.Go("kafka-errors", func() {
		for err := range group.Errors() {
			logger.Warnf("[kafka] consumer group error: %v", err)
		}
	})
	return s, nil
}

// Subscribe records the handler and restarts the group session so the
// new topic joins the claim set.
func (s *KafkaSubscriber) Subscribe(channel string, h Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.handlers[channel]; dup {
		return errors.Errorf("already subscribed to %s", channel)
	}
	s.handlers[channel] = h
	s.topics = append(s.topics, channel)

	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	topics := append([]string(nil), s.topics...)

	safe.Go("kafka-consume", func() {
		for {
			if err := s.group.Consume(ctx, topics, &groupHandler{sub: s}); err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warnf("[kafka] consume error: %v", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	})
	s.started = true
	return nil
}

func (s *KafkaSubscriber) Close() error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	return s.group.Close()
}

func (s *KafkaSubscriber) handlerFor(topic string) Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handlers[topic]
}

type groupHandler struct {
	sub *KafkaSubscriber
}

func (g *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (g *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (g *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		h := g.sub.handlerFor(msg.Topic)
		if h != nil {
			m := Message{
				Channel: msg.Topic,
				Data:    append([]byte(nil), msg.Value...),
			}
			if err := h(session.Context(), m); err != nil {
				logger.Warnf("[kafka] handler failed topic=%s err=%v", msg.Topic, err)
			}
		}
		// Mark regardless: this core has no replay semantics.
		session.MarkMessage(msg, "")
	}
	return nil
}
