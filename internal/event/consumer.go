package event

import (
	"context"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/store"
)

type StoreConsumer interface {
	ReadEvent(ctx context.Context) (store.Event, error)
	Close() error
}
