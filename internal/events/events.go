// Package events publishes debate activity to the audit stream.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"rostrum/internal/observability"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/attribute"
)

// Event types carried on the stream.
const (
	TypeVoteCast        = "vote_cast"
	TypeLeaderChanged   = "leader_changed"
	TypeResponseCreated = "response_created"
	TypeDebateCreated   = "debate_created"
)

// DebateEvent is one change to a debate. The same payload goes to Kafka and to
// live subscribers.
type DebateEvent struct {
	Type       string    `json:"type"`
	DebateID   uint      `json:"debate_id"`
	ResponseID uint      `json:"response_id,omitempty"`
	ActorID    uint      `json:"actor_id,omitempty"`
	Action     string    `json:"action,omitempty"`
	Agree      int64     `json:"agree"`
	Disagree   int64     `json:"disagree"`
	Difference int64     `json:"difference"`
	LeaderID   *uint     `json:"leader_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers debate events after the owning transaction commits.
type Publisher interface {
	Publish(ctx context.Context, event DebateEvent) error
	Close() error
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, DebateEvent) error { return nil }
func (NopPublisher) Close() error                               { return nil }

// NewProducerConfig returns the sarama settings for the audit producer.
func NewProducerConfig(clientID string) *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Producer.MaxMessageBytes = 1000000
	config.Version = sarama.V2_0_0_0
	config.ClientID = clientID
	return config
}

// KafkaPublisher writes events keyed by debate id so one debate's events stay
// ordered within a partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaPublisher dials the brokers with a synchronous producer.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewProducerConfig("rostrum-api"))
	if err != nil {
		return nil, err
	}
	return NewKafkaPublisherWithProducer(producer, topic), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer.
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event DebateEvent) error {
	_, span := observability.StartClientSpan(ctx, "kafka", "SendMessage")
	defer span.End()

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(uint64(event.DebateID), 10)),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
		},
	})
	if err != nil {
		span.RecordError(err)
		observability.EventPublishFailures.WithLabelValues("kafka").Inc()
		return err
	}
	span.SetAttributes(
		attribute.String("messaging.destination", p.topic),
		attribute.Int("messaging.kafka.partition", int(partition)),
		attribute.Int64("messaging.kafka.offset", offset),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
