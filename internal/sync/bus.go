package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	watermillmetrics "github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Topic carries every ReviewEvent.
const Topic = "reviews"

// Bus decouples board writes from feed delivery. Writers publish and return;
// Forward drains the topic into a Hub.
type Bus struct {
	pubsub    *gochannel.GoChannel
	publisher message.Publisher
	log       *zap.Logger
}

// NewBus creates an in-process bus. When reg is non-nil publish timings are
// recorded in it.
func NewBus(logger *zap.Logger, reg *prometheus.Registry) (*Bus, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, NewWatermillLogger(logger))

	var publisher message.Publisher = pubsub
	if reg != nil {
		decorated, err := watermillmetrics.NewPrometheusMetricsBuilder(reg, "classreviews", "feed").DecoratePublisher(pubsub)
		if err != nil {
			return nil, fmt.Errorf("decorate publisher: %w", err)
		}
		publisher = decorated
	}
	return &Bus{pubsub: pubsub, publisher: publisher, log: logger}, nil
}

func (b *Bus) Publish(ctx context.Context, ev ReviewEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	if err := b.publisher.Publish(Topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// Subscribe returns the decoded event stream. It ends when ctx is done or the
// bus is closed.
func (b *Bus) Subscribe(ctx context.Context) (<-chan ReviewEvent, error) {
	msgs, err := b.pubsub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", Topic, err)
	}

	out := make(chan ReviewEvent)
	go func() {
		defer close(out)
		for msg := range msgs {
			var ev ReviewEvent
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				b.log.Warn("drop undecodable event", zap.String("uuid", msg.UUID), zap.Error(err))
				msg.Ack()
				continue
			}
			select {
			case out <- ev:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

// Forward broadcasts every event to hub until ctx is done.
func (b *Bus) Forward(ctx context.Context, hub *Hub) error {
	events, err := b.Subscribe(ctx)
	if err != nil {
		return err
	}
	for ev := range events {
		hub.BroadcastJSON(ev)
	}
	return nil
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}

type watermillLogger struct {
	log *zap.Logger
}

// NewWatermillLogger routes watermill's logging through zap. Trace maps to
// Debug.
func NewWatermillLogger(l *zap.Logger) watermill.LoggerAdapter {
	return watermillLogger{log: l.With(zap.String("component", "bus"))}
}

func (w watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	w.log.Error(msg, append(zapFields(fields), zap.Error(err))...)
}

func (w watermillLogger) Info(msg string, fields watermill.LogFields) {
	w.log.Info(msg, zapFields(fields)...)
}

func (w watermillLogger) Debug(msg string, fields watermill.LogFields) {
	w.log.Debug(msg, zapFields(fields)...)
}

func (w watermillLogger) Trace(msg string, fields watermill.LogFields) {
	w.log.Debug(msg, zapFields(fields)...)
}

func (w watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return watermillLogger{log: w.log.With(zapFields(fields)...)}
}

func zapFields(fields watermill.LogFields) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+1)
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}
