package event

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/store"
)

type KafkaPublisher struct {
	writer *kafka.Writer
}

/*
All events go to a single partition key so the topic keeps them in
dispatch order; the replayer folds them with the same reducer and a
reordering would produce a different state.

RequiredAcks: kafka.RequireAll waits for every in-sync replica. The mirror
is written off the hot path, so latency matters less than not losing an
event if the leader goes down.

Compression: kafka.Snappy. Events are small JSON documents that compress
well.
*/
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  5,
		Compression:  kafka.Snappy,
	}

	return &KafkaPublisher{writer: w}, nil
}

// PartitionKey is the key of every mirrored message.
const PartitionKey = "dashboard"

func (kp *KafkaPublisher) Publish(ctx context.Context, ev store.Event) error {
	msg, err := newMessage(ev)
	if err != nil {
		return err
	}

	if err := kp.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

func newMessage(ev store.Event) (kafka.Message, error) {
	b, err := store.EncodeEvent(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode %s event: %w", ev.Name(), err)
	}
	return kafka.Message{
		Key:     []byte(PartitionKey),
		Value:   b,
		Headers: []kafka.Header{{Key: "event", Value: []byte(ev.Name())}},
	}, nil
}

func (kp *KafkaPublisher) Close() error {
	if err := kp.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}
	return nil
}
