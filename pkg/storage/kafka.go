package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/dhima/usage-log/pkg/logging"
	"github.com/dhima/usage-log/pkg/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// SnapshotIDHeader carries a unique id per published snapshot so consumers
// can drop redeliveries.
const SnapshotIDHeader = "usage-snapshot-id"

// KafkaWriter is the subset of kafka.Writer the publisher needs.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher emits full usage state snapshots, keyed by slot, to a topic.
type KafkaPublisher struct {
	writer KafkaWriter
	logger logging.Logger
}

// NewKafkaPublisher builds a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, logger logging.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
	}
	return NewKafkaPublisherWithWriter(writer, logging.OrNoOp(logger).With(zap.String("topic", topic)))
}

// NewKafkaPublisherWithWriter allows injecting a test writer.
func NewKafkaPublisherWithWriter(writer KafkaWriter, logger logging.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		logger: logging.OrNoOp(logger).With(zap.String("component", "kafka_publisher")),
	}
}

// Publish writes one snapshot message keyed by slot.
func (p *KafkaPublisher) Publish(ctx context.Context, slot string, state models.State) error {
	data, err := EncodeState(state)
	if err != nil {
		return err
	}

	snapshotID := uuid.New().String()
	msg := kafka.Message{
		Key:   []byte(slot),
		Value: data,
		Headers: []kafka.Header{
			{Key: SnapshotIDHeader, Value: []byte(snapshotID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish usage snapshot",
			zap.String("slot", slot),
			zap.String("snapshot_id", snapshotID),
			zap.Error(err))
		return fmt.Errorf("failed to publish usage snapshot: %w", err)
	}

	p.logger.Debug("usage snapshot published",
		zap.String("slot", slot),
		zap.String("snapshot_id", snapshotID),
		zap.Int("events", len(state.Events)))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
