package processing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/event"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/metrics"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/model"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/store"
)

type item struct {
	ev  store.Event
	err error
}

type sliceConsumer struct {
	mu    sync.Mutex
	items []item
}

func (c *sliceConsumer) ReadEvent(ctx context.Context) (store.Event, error) {
	c.mu.Lock()
	if len(c.items) > 0 {
		it := c.items[0]
		c.items = c.items[1:]
		c.mu.Unlock()
		return it.ev, it.err
	}
	c.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (c *sliceConsumer) Close() error { return nil }

func TestReplayProcessorRebuildsState(t *testing.T) {
	live := store.New()
	events := []store.Event{
		store.ConnectionChanged{Connected: true},
		store.VotesReceived{Votes: model.VoteTally{PartyA: 1, Total: 1}},
		store.ReferendumReceived{Referendum: model.ReferendumTally{Yes: 2}},
		store.VotesReceived{Votes: model.VoteTally{PartyA: 120, PartyB: 95, Total: 215}},
	}

	c := &sliceConsumer{}
	for i, ev := range events {
		live.Dispatch(ev)
		c.items = append(c.items, item{ev: ev})
		if i == 1 {
			c.items = append(c.items, item{err: errors.Join(event.ErrUndecodable, errors.New("bad json"))})
		}
	}

	m := metrics.NewReplayMetrics(prometheus.NewRegistry(), "test", "replay")
	rp := NewReplayProcessor(c, m)
	rp.interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rp.Run(ctx) }()

	assert.Eventually(t, func() bool {
		_, n := rp.State()
		return n == len(events)
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	got, _ := rp.State()
	assert.Equal(t, live.State(), got)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsApplied.WithLabelValues("votes")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsRejected))
}
