package event

import (
	"context"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/store"
)

// StorePublisher mirrors dispatched store events to an external sink.
type StorePublisher interface {
	Publish(ctx context.Context, ev store.Event) error
	Close() error
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, store.Event) error { return nil }
func (NopPublisher) Close() error                               { return nil }
