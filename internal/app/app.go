// Package app wires the dashboard client together: cache, REST client,
// store, push channel, event mirror and the local countdown.
package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/api"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/cache"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/camera"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/config"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/countdown"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/display"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/event"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/logging"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/metrics"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/model"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/realtime"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/store"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/workflow"
)

const mirrorBuffer = 256

type App struct {
	Registry *prometheus.Registry
	Metrics  *metrics.ClientMetrics
	Cache    *cache.Cache
	API      *api.Client
	Store    *store.Store
	Realtime *realtime.Client

	target    time.Time
	publisher event.StorePublisher
	mirror    chan store.Event
	stopWatch []func()

	mu    sync.Mutex
	local model.CountdownValue

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option overrides a collaborator, mostly for tests.
type Option func(*App)

func WithPublisher(p event.StorePublisher) Option {
	return func(a *App) { a.publisher = p }
}

func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	reg := prometheus.NewRegistry()
	m := metrics.NewClientMetrics(reg, "election", "dashboard")

	a := &App{
		Registry: reg,
		Metrics:  m,
		Store:    store.New(),
		target:   cfg.Election.Target,
		mirror:   make(chan store.Event, mirrorBuffer),
		local:    countdown.Until(cfg.Election.Target, time.Now()),
	}
	for _, o := range opts {
		o(a)
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	var backend cache.Backend = cache.NewMemoryBackend()
	if cfg.Cache.RedisURL != "" {
		rb, err := cache.NewRedisBackend(ctx, cfg.Cache.RedisURL, cfg.Cache.Retention)
		if err != nil {
			a.cancel()
			return nil, fmt.Errorf("failed to set up cache: %w", err)
		}
		backend = rb
	}
	a.Cache = cache.New(backend, cfg.Cache.TTL, m)
	a.API = api.NewClient(cfg.API.URL, a.Cache, m, api.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}))

	if a.publisher == nil {
		a.publisher = event.NopPublisher{}
		if len(cfg.Kafka.Brokers) > 0 {
			kp, err := event.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
			if err != nil {
				a.cancel()
				return nil, multierr.Append(fmt.Errorf("failed to set up event mirror: %w", err), a.Cache.Close())
			}
			a.publisher = kp
		}
	}

	rc := realtime.Config{
		URL:               cfg.Socket.URL,
		ReconnectDelay:    cfg.Socket.ReconnectDelay,
		ReconnectAttempts: cfg.Socket.ReconnectAttempts,
		DialTimeout:       cfg.API.Timeout,
		InitialDataGrace:  cfg.Socket.InitialDataGrace,
	}
	if cfg.Socket.ResyncOnReconnect {
		rc.OnResync = a.Resync
	}
	a.Realtime = realtime.New(rc, realtime.NewStoreHandler(a.Store), m)

	a.watch()
	return a, nil
}

// watch feeds refetches caused by mutations into the store.
func (a *App) watch() {
	a.stopWatch = append(a.stopWatch,
		a.Cache.Watch(a.API.VotesQuery(), func(data []byte, err error) {
			if v, err := cache.Decode[model.VoteTally](data, err); err == nil {
				a.Store.Dispatch(store.VotesReceived{Votes: v})
			}
		}),
		a.Cache.Watch(a.API.ReferendumQuery(), func(data []byte, err error) {
			if r, err := cache.Decode[model.ReferendumTally](data, err); err == nil {
				a.Store.Dispatch(store.ReferendumReceived{Referendum: r})
			}
		}),
	)
}

// Start connects the push channel, mirrors store events and runs the
// local countdown until Close.
func (a *App) Start() {
	a.stopWatch = append(a.stopWatch, a.Store.Subscribe(func(_ store.State, ev store.Event) {
		select {
		case a.mirror <- ev:
		default:
			logging.Log.Warnf("APP: mirror buffer full, dropping %s event", ev.Name())
		}
	}))

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		a.runMirror()
	}()
	go func() {
		defer a.wg.Done()
		countdown.NewTicker(a.target).Run(a.ctx, func(v model.CountdownValue) {
			a.mu.Lock()
			a.local = v
			a.mu.Unlock()
		})
	}()

	a.Realtime.Start(a.ctx)
}

func (a *App) runMirror() {
	for {
		select {
		case <-a.ctx.Done():
			return
		case ev := <-a.mirror:
			ctx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
			if err := a.publisher.Publish(ctx, ev); err != nil {
				logging.Log.Warnf("APP: failed to mirror %s event: %v", ev.Name(), err)
			}
			cancel()
		}
	}
}

// Resync refetches the live slices over REST, bypassing cache freshness,
// and dispatches whatever arrived.
func (a *App) Resync(ctx context.Context) {
	if v, err := cache.Reload[model.VoteTally](ctx, a.Cache, a.API.VotesQuery()); err == nil {
		a.Store.Dispatch(store.VotesReceived{Votes: v})
	} else {
		logging.Log.Warnf("APP: resync of votes failed: %v", err)
	}
	if r, err := cache.Reload[model.ReferendumTally](ctx, a.Cache, a.API.ReferendumQuery()); err == nil {
		a.Store.Dispatch(store.ReferendumReceived{Referendum: r})
	} else {
		logging.Log.Warnf("APP: resync of referendum failed: %v", err)
	}
	if c, err := cache.Reload[model.CountdownValue](ctx, a.Cache, a.API.CountdownQuery()); err == nil {
		a.Store.Dispatch(store.CountdownReceived{Countdown: countdown.Normalize(c)})
	} else {
		logging.Log.Warnf("APP: resync of countdown failed: %v", err)
	}
}

// CastVote records a vote and applies the returned tally to the store.
func (a *App) CastVote(ctx context.Context, opt model.Option) (model.VoteTally, error) {
	tally, err := a.API.CastVote(ctx, opt)
	if err != nil {
		return tally, err
	}
	a.Store.Dispatch(store.VotesReceived{Votes: tally})
	return tally, nil
}

func (a *App) CastReferendumVote(ctx context.Context, c model.Choice) (model.ReferendumTally, error) {
	tally, err := a.API.CastReferendumVote(ctx, c)
	if err != nil {
		return tally, err
	}
	a.Store.Dispatch(store.ReferendumReceived{Referendum: tally})
	return tally, nil
}

// NewWorkflow returns a voting workflow that verifies through the REST
// client and casts through the app.
func (a *App) NewWorkflow(dev camera.Device, onNotice func(workflow.Notice), onChange func(workflow.Step)) *workflow.Workflow {
	return workflow.New(workflow.Config{
		Verifier: a.API,
		Caster:   a,
		Camera:   dev,
		Metrics:  a.Metrics,
		OnNotice: onNotice,
		OnChange: onChange,
	})
}

// LocalCountdown is the countdown to the configured election target.
func (a *App) LocalCountdown() model.CountdownValue {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.local
}

func (a *App) Dashboard() display.Dashboard {
	return display.Build(a.Store.State(), a.LocalCountdown())
}

func (a *App) Close() error {
	err := a.Realtime.Close()
	a.cancel()
	a.wg.Wait()
	for _, stop := range a.stopWatch {
		stop()
	}
	return multierr.Combine(err, a.publisher.Close(), a.Cache.Close())
}
