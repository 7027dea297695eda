package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mvcampos/gelateria/go/internal/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// FeedConsumerConfig holds configuration for the JetStream change feed.
type FeedConsumerConfig struct {
	URL           string
	StreamName    string
	ConsumerName  string
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultFeedConsumerConfig returns default change feed configuration.
func DefaultFeedConsumerConfig(consumerName string) FeedConsumerConfig {
	return FeedConsumerConfig{
		URL:           nats.DefaultURL,
		StreamName:    "GELATERIA_EVENTS",
		ConsumerName:  consumerName,
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// topicFilters maps a logical subscription topic to the feed subjects
// it covers.
var topicFilters = map[string][]string{
	TableRounds: {
		"gelateria.events." + events.TypeRoundCreated,
		"gelateria.events." + events.TypeRoundStarted,
		"gelateria.events." + events.TypeRoundPaused,
		"gelateria.events." + events.TypeRoundResumed,
		"gelateria.events." + events.TypeRoundFinished,
		"gelateria.events." + events.TypeRoundExtended,
	},
	TableItems: {
		"gelateria.events." + events.TypeItemSubmitted,
		"gelateria.events." + events.TypeItemEvaluated,
		"gelateria.events." + events.TypeItemsAutoRejected,
	},
}

// FeedConsumer subscribes to the JetStream change feed. It implements
// Opener for the subscription manager.
type FeedConsumer struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config FeedConsumerConfig
}

// NewFeedConsumer connects to NATS and prepares the JetStream context.
func NewFeedConsumer(config FeedConsumerConfig) (*FeedConsumer, error) {
	opts := []nats.Option{
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	return &FeedConsumer{nc: nc, js: js, config: config}, nil
}

// Open establishes a durable consumer filtered to the topic's subjects
// and delivers decoded envelopes to the handler. A handler error NAKs
// the message so the feed redelivers it. The returned stop function may
// be called more than once.
func (fc *FeedConsumer) Open(ctx context.Context, topic string, handler func(events.Envelope) error) (func(), error) {
	filters, ok := topicFilters[topic]
	if !ok {
		filters = []string{"gelateria.events.>"}
	}

	stream, err := fc.js.Stream(ctx, fc.config.StreamName)
	if err != nil {
		return nil, fmt.Errorf("get stream: %w", err)
	}

	consumerName := fc.config.ConsumerName + "-" + topic
	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:           consumerName,
		Durable:        consumerName,
		Description:    "change feed consumer for " + topic,
		FilterSubjects: filters,
		DeliverPolicy:  jetstream.DeliverNewPolicy,
		AckPolicy:      jetstream.AckExplicitPolicy,
		MaxDeliver:     fc.config.MaxDeliver,
		AckWait:        fc.config.AckWait,
		MaxAckPending:  fc.config.MaxAckPending,
		ReplayPolicy:   jetstream.ReplayInstantPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer: %w", err)
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		var env events.Envelope
		if err := json.Unmarshal(msg.Data(), &env); err != nil {
			log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to unmarshal event envelope")
			msg.Term()
			return
		}
		if err := handler(env); err != nil {
			log.Error().
				Err(err).
				Str("event_id", env.EventID).
				Str("event_type", env.EventType).
				Msg("handler failed, requesting redelivery")
			if nakErr := msg.Nak(); nakErr != nil {
				log.Error().Err(nakErr).Msg("failed to NAK message")
			}
			return
		}
		if err := msg.Ack(); err != nil {
			log.Error().Err(err).Msg("failed to ACK message")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("start consumer: %w", err)
	}

	log.Info().
		Str("consumer", consumerName).
		Str("stream", fc.config.StreamName).
		Str("topic", topic).
		Msg("change feed subscription established")

	var once sync.Once
	return func() {
		once.Do(consumeCtx.Stop)
	}, nil
}

// Close shuts down the NATS connection.
func (fc *FeedConsumer) Close() {
	if fc.nc != nil {
		fc.nc.Close()
	}
}
