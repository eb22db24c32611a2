package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/metrics"
)

type tally struct {
	PartyA int `json:"partyA"`
}

func newTestCache(t *testing.T, b Backend) (*Cache, *metrics.ClientMetrics) {
	t.Helper()
	m := metrics.NewClientMetrics(prometheus.NewRegistry(), "test", "cache")
	c := New(b, time.Minute, m)
	t.Cleanup(func() { _ = c.Close() })
	return c, m
}

func countingQuery(key string, calls *atomic.Int32, body string, tags ...Tag) Query {
	return Query{
		Key:  key,
		Tags: tags,
		Fetch: func(ctx context.Context) ([]byte, error) {
			calls.Inc()
			return []byte(body), nil
		},
	}
}

func backends(t *testing.T) map[string]func() Backend {
	return map[string]func() Backend{
		"memory": func() Backend { return NewMemoryBackend() },
		"redis": func() Backend {
			mr := miniredis.RunT(t)
			b, err := NewRedisBackend(context.Background(), "redis://"+mr.Addr(), time.Hour)
			require.NoError(t, err)
			return b
		},
	}
}

func TestQueryFreshness(t *testing.T) {
	for name, mk := range backends(t) {
		t.Run(name, func(t *testing.T) {
			c, m := newTestCache(t, mk())
			now := time.Now()
			c.now = func() time.Time { return now }

			calls := atomic.NewInt32(0)
			q := countingQuery("votes", calls, `{"partyA":1}`, TagVotes)

			got, err := Load[tally](context.Background(), c, q)
			require.NoError(t, err)
			assert.Equal(t, 1, got.PartyA)

			_, err = c.Query(context.Background(), q)
			require.NoError(t, err)
			assert.Equal(t, int32(1), calls.Load())

			now = now.Add(61 * time.Second)
			_, err = c.Query(context.Background(), q)
			require.NoError(t, err)
			assert.Equal(t, int32(2), calls.Load())

			assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("Votes", "hit")))
			assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("Votes", "miss")))
			assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("Votes", "stale")))

			f := c.Facets("votes")
			assert.True(t, f.HasData)
			assert.False(t, f.Loading)
			assert.NoError(t, f.Err)
		})
	}
}

func TestQueryDeduplicatesInFlightRequests(t *testing.T) {
	c, _ := newTestCache(t, NewMemoryBackend())

	release := make(chan struct{})
	calls := atomic.NewInt32(0)
	q := Query{
		Key:  "candidates",
		Tags: []Tag{TagCandidates},
		Fetch: func(ctx context.Context) ([]byte, error) {
			calls.Inc()
			<-release
			return []byte(`[]`), nil
		},
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Query(context.Background(), q)
			assert.NoError(t, err)
		}()
	}

	assert.Eventually(t, func() bool { return c.Facets("candidates").Loading }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestQueryFailureReturnsStaleData(t *testing.T) {
	c, _ := newTestCache(t, NewMemoryBackend())
	now := time.Now()
	c.now = func() time.Time { return now }

	fail := false
	q := Query{
		Key:  "insights",
		Tags: []Tag{TagInsights},
		Fetch: func(ctx context.Context) ([]byte, error) {
			if fail {
				return nil, errors.New("backend down")
			}
			return []byte(`{"partyA":7}`), nil
		},
	}

	_, err := c.Query(context.Background(), q)
	require.NoError(t, err)

	fail = true
	now = now.Add(2 * time.Minute)
	got, err := Load[tally](context.Background(), c, q)
	assert.EqualError(t, err, "backend down")
	assert.Equal(t, 7, got.PartyA)

	f := c.Facets("insights")
	assert.EqualError(t, f.Err, "backend down")
	assert.True(t, f.HasData)
}

func TestQueryFailureWithoutData(t *testing.T) {
	c, _ := newTestCache(t, NewMemoryBackend())
	q := Query{
		Key: "countdown",
		Fetch: func(ctx context.Context) ([]byte, error) {
			return nil, errors.New("refused")
		},
	}

	got, err := Load[tally](context.Background(), c, q)
	assert.Error(t, err)
	assert.Zero(t, got)
	assert.False(t, c.Facets("countdown").HasData)
}

func TestMutateInvalidatesAndRefetchesWatchers(t *testing.T) {
	for name, mk := range backends(t) {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestCache(t, mk())

			votes := atomic.NewInt32(0)
			insights := atomic.NewInt32(0)
			vq := countingQuery("votes", votes, `{"partyA":3}`, TagVotes)
			iq := countingQuery("insights", insights, `[]`, TagInsights)

			_, err := c.Query(context.Background(), vq)
			require.NoError(t, err)
			_, err = c.Query(context.Background(), iq)
			require.NoError(t, err)

			refetched := make(chan tally, 1)
			stop := c.Watch(vq, func(data []byte, err error) {
				v, derr := Decode[tally](data, err)
				assert.NoError(t, derr)
				refetched <- v
			})
			defer stop()

			_, err = c.Mutate(context.Background(), []Tag{TagVotes, TagReferendum}, func(ctx context.Context) ([]byte, error) {
				return []byte(`{}`), nil
			})
			require.NoError(t, err)

			select {
			case v := <-refetched:
				assert.Equal(t, 3, v.PartyA)
			case <-time.After(2 * time.Second):
				t.Fatal("watcher was not refetched")
			}
			assert.Equal(t, int32(2), votes.Load())

			// The untouched tag is still fresh.
			_, err = c.Query(context.Background(), iq)
			require.NoError(t, err)
			assert.Equal(t, int32(1), insights.Load())
		})
	}
}

func TestInvalidationDuringFetchRefetchesNewData(t *testing.T) {
	for name, mk := range backends(t) {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestCache(t, mk())

			server := atomic.NewInt32(1)
			calls := atomic.NewInt32(0)
			started := make(chan struct{})
			release := make(chan struct{})
			q := Query{
				Key:  "votes",
				Tags: []Tag{TagVotes},
				Fetch: func(ctx context.Context) ([]byte, error) {
					v := server.Load()
					if calls.Inc() == 1 {
						close(started)
						<-release
					}
					return []byte(fmt.Sprintf(`{"partyA":%d}`, v)), nil
				},
			}

			refetched := make(chan tally, 1)
			stop := c.Watch(q, func(data []byte, err error) {
				v, derr := Decode[tally](data, err)
				assert.NoError(t, derr)
				refetched <- v
			})
			defer stop()

			first := make(chan tally, 1)
			go func() {
				v, _ := Load[tally](context.Background(), c, q)
				first <- v
			}()
			<-started

			server.Store(2)
			_, err := c.Mutate(context.Background(), []Tag{TagVotes}, func(ctx context.Context) ([]byte, error) {
				return []byte(`{}`), nil
			})
			require.NoError(t, err)

			select {
			case v := <-refetched:
				assert.Equal(t, 2, v.PartyA)
			case <-time.After(2 * time.Second):
				t.Fatal("watcher was not refetched")
			}

			close(release)
			assert.Equal(t, 1, (<-first).PartyA)

			got, err := Load[tally](context.Background(), c, q)
			require.NoError(t, err)
			assert.Equal(t, 2, got.PartyA)
			assert.Equal(t, int32(2), calls.Load())
		})
	}
}

func TestMutateFailureDoesNotInvalidate(t *testing.T) {
	c, _ := newTestCache(t, NewMemoryBackend())

	calls := atomic.NewInt32(0)
	q := countingQuery("votes", calls, `{}`, TagVotes)
	_, err := c.Query(context.Background(), q)
	require.NoError(t, err)

	_, err = c.Mutate(context.Background(), []Tag{TagVotes}, func(ctx context.Context) ([]byte, error) {
		return nil, errors.New("rejected")
	})
	assert.EqualError(t, err, "rejected")

	_, err = c.Query(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRefetchBypassesFreshness(t *testing.T) {
	c, _ := newTestCache(t, NewMemoryBackend())
	calls := atomic.NewInt32(0)
	q := countingQuery("referendum", calls, `{}`, TagReferendum)

	_, err := c.Query(context.Background(), q)
	require.NoError(t, err)
	_, err = c.Refetch(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRedisBackendInvalidation(t *testing.T) {
	mr := miniredis.RunT(t)
	b, err := NewRedisBackend(context.Background(), "redis://"+mr.Addr(), time.Hour)
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	require.NoError(t, b.Set(ctx, "votes", Entry{Data: []byte(`1`), FetchedAt: time.Now()}, []Tag{TagVotes}))
	require.NoError(t, b.Set(ctx, "referendum", Entry{Data: []byte(`2`)}, []Tag{TagReferendum}))

	keys, err := b.Invalidate(ctx, TagVotes)
	require.NoError(t, err)
	assert.Equal(t, []string{"votes"}, keys)

	e, ok, err := b.Get(ctx, "votes")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, e.Invalidated)
	assert.Equal(t, []byte(`1`), e.Data)

	e, ok, err = b.Get(ctx, "referendum")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, e.Invalidated)

	_, ok, err = b.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, mr.Exists("cache:tag:Votes"))
}

func TestNewRedisBackendUnreachable(t *testing.T) {
	_, err := NewRedisBackend(context.Background(), "redis://127.0.0.1:1", time.Minute)
	assert.Error(t, err)

	_, err = NewRedisBackend(context.Background(), "not a url", time.Minute)
	assert.ErrorContains(t, err, "parsing redis URL")
}
