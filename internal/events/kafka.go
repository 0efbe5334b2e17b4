package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/resell/internal/telemetry"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	DefaultTopic = "resell.cart.events"

	headerEventType     = "event_type"
	headerSchemaVersion = "schema_version"

	flushTimeout = 5 * time.Second

	defaultMaxBuffered     = 1000
	defaultDeliveryTimeout = 30 * time.Second
)

// KafkaConfig configures a KafkaPublisher.
type KafkaConfig struct {
	Brokers           []string
	Topic             string
	ClientID          string
	Partitions        int32
	ReplicationFactor int16

	// MaxBufferedRecords caps records waiting for a broker. Past it,
	// events are dropped rather than blocking the request.
	MaxBufferedRecords int

	// DeliveryTimeout expires records the brokers never accepted.
	DeliveryTimeout time.Duration
}

// KafkaPublisher produces events to a Kafka topic keyed by session, so every
// event for one cart lands on the same partition in order.
type KafkaPublisher struct {
	client  *kgo.Client
	topic   string
	cfg     KafkaConfig
	logger  *slog.Logger
	metrics *telemetry.BusinessMetrics
}

// NewKafkaPublisher connects to cfg.Brokers. The connection is lazy; broker
// errors surface on the first produce.
func NewKafkaPublisher(cfg KafkaConfig, logger *slog.Logger, metrics *telemetry.BusinessMetrics) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("events: at least one broker is required")
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "resell"
	}
	if cfg.Partitions <= 0 {
		cfg.Partitions = 3
	}
	if cfg.ReplicationFactor <= 0 {
		cfg.ReplicationFactor = 1
	}
	if cfg.MaxBufferedRecords <= 0 {
		cfg.MaxBufferedRecords = defaultMaxBuffered
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = defaultDeliveryTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProducerLinger(50*time.Millisecond),
		kgo.MaxBufferedRecords(cfg.MaxBufferedRecords),
		kgo.RecordDeliveryTimeout(cfg.DeliveryTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	return &KafkaPublisher{
		client:  client,
		topic:   cfg.Topic,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "cart_events"), slog.String("topic", cfg.Topic)),
		metrics: metrics,
	}, nil
}

// EnsureTopic creates the events topic if it does not exist.
func (p *KafkaPublisher) EnsureTopic(ctx context.Context) error {
	adm := kadm.NewClient(p.client)

	resp, err := adm.CreateTopics(ctx, p.cfg.Partitions, p.cfg.ReplicationFactor, nil, p.topic)
	if err != nil {
		return fmt.Errorf("failed to create topic %s: %w", p.topic, err)
	}
	for _, detail := range resp {
		if detail.Err != nil && !errors.Is(detail.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("failed to create topic %s: %w", detail.Topic, detail.Err)
		}
	}

	p.logger.Info("events topic ensured")
	return nil
}

// Publish buffers e for delivery and returns immediately, even when the
// buffer is full and the event is dropped. Delivery failures are logged and
// counted.
func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	record, err := newRecord(p.topic, e)
	if err != nil {
		p.metrics.RecordEvent(string(e.Type), "error")
		return err
	}

	// The record outlives the request that produced it. TryProduce never
	// waits for buffer space.
	p.client.TryProduce(context.WithoutCancel(ctx), record, func(r *kgo.Record, err error) {
		if errors.Is(err, kgo.ErrMaxBuffered) {
			p.metrics.RecordEvent(string(e.Type), "error")
			p.logger.Warn("cart event buffer full, dropping event",
				slog.String("type", string(e.Type)),
				slog.String("session_id", e.SessionID),
			)
			return
		}
		if err != nil {
			p.metrics.RecordEvent(string(e.Type), "error")
			p.logger.Warn("failed to publish cart event",
				slog.String("type", string(e.Type)),
				slog.String("session_id", e.SessionID),
				slog.Any("error", err),
			)
			return
		}
		p.metrics.RecordEvent(string(e.Type), "ok")
	})
	return nil
}

// Close flushes buffered records and closes the client.
func (p *KafkaPublisher) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := p.client.Flush(ctx); err != nil {
		p.logger.Warn("failed to flush cart events", slog.Any("error", err))
		telemetry.CaptureError(err, map[string]interface{}{"topic": p.topic})
	}
	p.client.Close()
}

func newRecord(topic string, e Event) (*kgo.Record, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cart event: %w", err)
	}

	return &kgo.Record{
		Topic: topic,
		Key:   []byte(e.SessionID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: headerEventType, Value: []byte(e.Type)},
			{Key: headerSchemaVersion, Value: []byte(fmt.Sprint(e.SchemaVersion))},
		},
	}, nil
}
