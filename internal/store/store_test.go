package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/model"
)

func TestReduce(t *testing.T) {
	base := State{
		Votes:      model.VoteTally{PartyA: 5, PartyB: 5, Total: 10},
		Referendum: model.ReferendumTally{Yes: 1, No: 2},
		Countdown:  model.CountdownValue{Days: 3},
	}

	t.Run("Happy path - connection toggles only the flag", func(t *testing.T) {
		got := Reduce(base, ConnectionChanged{Connected: true})
		assert.True(t, got.Connected)
		assert.Equal(t, base.Votes, got.Votes)
	})

	t.Run("Happy path - votes replace wholesale", func(t *testing.T) {
		got := Reduce(base, VotesReceived{Votes: model.VoteTally{PartyA: 1, Total: 1}})
		assert.Equal(t, model.VoteTally{PartyA: 1, Total: 1}, got.Votes)
		assert.Equal(t, base.Referendum, got.Referendum)
	})

	t.Run("Happy path - partial snapshot keeps missing slices", func(t *testing.T) {
		ref := model.ReferendumTally{Yes: 9}
		got := Reduce(base, SnapshotReceived{Snapshot: model.Snapshot{Referendum: &ref}})
		assert.Equal(t, ref, got.Referendum)
		assert.Equal(t, base.Votes, got.Votes)
		assert.Equal(t, base.Countdown, got.Countdown)
	})

	t.Run("Happy path - full snapshot", func(t *testing.T) {
		v := model.VoteTally{PartyA: 120, PartyB: 95, Total: 215}
		r := model.ReferendumTally{Yes: 7, No: 3}
		c := model.CountdownValue{ElectionDay: true}
		got := Reduce(State{}, SnapshotReceived{Snapshot: model.Snapshot{Votes: &v, Referendum: &r, Countdown: &c}})
		assert.Equal(t, State{Votes: v, Referendum: r, Countdown: c}, got)
	})

	t.Run("Happy path - input state is not modified", func(t *testing.T) {
		before := base
		_ = Reduce(base, CountdownReceived{Countdown: model.CountdownValue{Seconds: 1}})
		assert.Equal(t, before, base)
	})
}

func TestStoreDispatchAndSubscribe(t *testing.T) {
	s := New()

	var got []string
	unsubscribe := s.Subscribe(func(st State, ev Event) {
		got = append(got, ev.Name())
	})

	s.Dispatch(ConnectionChanged{Connected: true})
	s.Dispatch(VotesReceived{Votes: model.VoteTally{PartyA: 2, Total: 2}})
	unsubscribe()
	s.Dispatch(CountdownReceived{})

	assert.Equal(t, []string{"connection", "votes"}, got)
	assert.True(t, s.State().Connected)
	assert.Equal(t, 2, s.State().Votes.PartyA)
}

func TestStoreConcurrentDispatchKeepsListenerOrder(t *testing.T) {
	s := New()

	var seen []int
	s.Subscribe(func(st State, ev Event) {
		seen = append(seen, st.Votes.Total)
	})

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Dispatch(VotesReceived{Votes: model.VoteTally{Total: n}})
		}(i)
	}
	wg.Wait()

	require.Len(t, seen, 50)
	assert.Equal(t, seen[len(seen)-1], s.State().Votes.Total)
}

func TestEventRoundTrip(t *testing.T) {
	v := model.VoteTally{PartyA: 1, PartyB: 2, Total: 3}
	events := []Event{
		ConnectionChanged{Connected: true},
		VotesReceived{Votes: v},
		ReferendumReceived{Referendum: model.ReferendumTally{Yes: 4}},
		CountdownReceived{Countdown: model.CountdownValue{Hours: 5}},
		SnapshotReceived{Snapshot: model.Snapshot{Votes: &v}},
	}
	for _, ev := range events {
		t.Run(ev.Name(), func(t *testing.T) {
			b, err := EncodeEvent(ev)
			require.NoError(t, err)
			got, err := DecodeEvent(b)
			require.NoError(t, err)
			assert.Equal(t, ev, got)
		})
	}

	t.Run("Unhappy path - unknown type", func(t *testing.T) {
		_, err := DecodeEvent([]byte(`{"type":"weather","payload":{}}`))
		assert.ErrorContains(t, err, "unknown event type")
	})
}
