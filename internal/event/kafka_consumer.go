package event

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/logging"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/store"
)

type KafkaConsumer struct {
	reader *kafka.Reader
}

func NewKafkaConsumer(brokers []string, topic, groupID string) (*KafkaConsumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}

	rCfg := kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10mb
		MaxWait:  1 * time.Second,
		// A new group replays the topic from the start: the state is a
		// fold over every event, not just the recent ones.
		StartOffset: kafka.FirstOffset,
	}
	r := kafka.NewReader(rCfg)

	return &KafkaConsumer{reader: r}, nil
}

// ErrUndecodable wraps messages that are not store events. They are
// committed and skipped.
var ErrUndecodable = errors.New("undecodable message")

func (kc *KafkaConsumer) ReadEvent(ctx context.Context) (store.Event, error) {
	// blocks until a message arrives or ctx is canceled
	msg, err := kc.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
			return nil, err
		}
		logging.Log.Errorf("error reading message from Kafka: %v", err)
		return nil, err
	}

	return decodeMessage(msg)
}

func decodeMessage(msg kafka.Message) (store.Event, error) {
	ev, err := store.DecodeEvent(msg.Value)
	if err != nil {
		logging.Log.Warnf("skipping message at offset %d: %v", msg.Offset, err)
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return ev, nil
}

func (kc *KafkaConsumer) Close() error {
	if err := kc.reader.Close(); err != nil {
		return fmt.Errorf("failed to close kafka reader: %w", err)
	}
	return nil
}
