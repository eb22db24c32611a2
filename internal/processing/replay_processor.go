package processing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/display"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/event"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/logging"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/metrics"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/store"
)

// ReplayProcessor rebuilds the dashboard state from mirrored store events
// with the same reducer the live client uses.
type ReplayProcessor struct {
	consumer event.StoreConsumer
	metrics  *metrics.ReplayMetrics
	interval time.Duration

	mu      sync.RWMutex
	state   store.State
	applied int
}

func NewReplayProcessor(c event.StoreConsumer, m *metrics.ReplayMetrics) *ReplayProcessor {
	return &ReplayProcessor{
		consumer: c,
		metrics:  m,
		interval: 5 * time.Second,
	}
}

func (rp *ReplayProcessor) Run(ctx context.Context) error {
	events := make(chan store.Event)
	go rp.read(ctx, events)

	rTicker := time.NewTicker(rp.interval)
	defer rTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Log.Info("Replay processor receiving signal to stop.")
			rp.printResults()
			return nil

		case <-rTicker.C:
			rp.printResults()

		case ev := <-events:
			rp.apply(ev)
		}
	}
}

func (rp *ReplayProcessor) read(ctx context.Context, out chan<- store.Event) {
	for {
		ev, err := rp.consumer.ReadEvent(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, event.ErrUndecodable) {
				rp.metrics.EventsRejected.Inc()
				continue
			}
			logging.Log.Errorf("Error reading event: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (rp *ReplayProcessor) apply(ev store.Event) {
	start := time.Now()
	defer func() {
		rp.metrics.ApplyTime.Observe(time.Since(start).Seconds())
	}()

	rp.mu.Lock()
	defer rp.mu.Unlock()

	rp.state = store.Reduce(rp.state, ev)
	rp.applied++
	rp.metrics.EventsApplied.WithLabelValues(ev.Name()).Inc()
	logging.Log.Debugf("[REPLAY] applied %s event #%d", ev.Name(), rp.applied)
}

// State returns the rebuilt state and the number of events folded into it.
func (rp *ReplayProcessor) State() (store.State, int) {
	rp.mu.RLock()
	defer rp.mu.RUnlock()
	return rp.state, rp.applied
}

func (rp *ReplayProcessor) printResults() {
	s, n := rp.State()
	v := display.Votes(s.Votes)
	r := display.Referendum(s.Referendum)

	logging.Log.Info("--- CURRENT SCORE ---")
	if n == 0 {
		logging.Log.Info("No events replayed yet")
	}
	logging.Log.Infof(" -> %s: %d (%s%%)", v.PartyA.Label, v.PartyA.Count, display.FormatPercent(v.PartyA.Percent))
	logging.Log.Infof(" -> %s: %d (%s%%)", v.PartyB.Label, v.PartyB.Count, display.FormatPercent(v.PartyB.Percent))
	logging.Log.Infof(" -> Referendum yes %d / no %d", r.Yes.Count, r.No.Count)
	logging.Log.Infof(" -> Events replayed: %d", n)
	logging.Log.Info("--------------------")
}
