package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/model"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/store"
)

func TestStoreHandler(t *testing.T) {
	s := store.New()
	h := NewStoreHandler(s)

	h.HandleEvent(EventConnect, nil)
	assert.True(t, s.State().Connected)

	h.HandleEvent(EventInitialData, json.RawMessage(`{
		"votes":{"partyA":120,"partyB":95,"totalVotes":215},
		"referendum":{"yes":10,"no":5},
		"countdown":{"days":3,"hours":-1,"minutes":2,"seconds":1,"isElectionDay":false}}`))
	assert.Equal(t, store.State{
		Connected:  true,
		Votes:      model.VoteTally{PartyA: 120, PartyB: 95, Total: 215},
		Referendum: model.ReferendumTally{Yes: 10, No: 5},
		Countdown:  model.CountdownValue{Days: 3, Minutes: 2, Seconds: 1},
	}, s.State())

	h.HandleEvent("vote-update", json.RawMessage(`{"referendum":{"yes":11,"no":5}}`))
	assert.Equal(t, model.ReferendumTally{Yes: 11, No: 5}, s.State().Referendum)
	assert.Equal(t, 215, s.State().Votes.Total)

	h.HandleEvent("vote-update", json.RawMessage(`{"votes":{"partyA":121,"partyB":95,"total":216}}`))
	assert.Equal(t, model.VoteTally{PartyA: 121, PartyB: 95, Total: 216}, s.State().Votes)

	h.HandleEvent("votes", json.RawMessage(`{"partyA":1,"partyB":0,"totalVotes":1}`))
	assert.Equal(t, 1, s.State().Votes.Total)

	h.HandleEvent("countdown-update", json.RawMessage(`{"days":0,"hours":0,"minutes":0,"seconds":0,"isElectionDay":true}`))
	assert.True(t, s.State().Countdown.ElectionDay)

	h.HandleEvent("countdown", json.RawMessage(`{"days":1}`))
	assert.Equal(t, model.CountdownValue{Days: 1}, s.State().Countdown)

	// Malformed and unknown events leave the state alone.
	before := s.State()
	h.HandleEvent("votes", json.RawMessage(`"nope"`))
	h.HandleEvent("votes", nil)
	h.HandleEvent("weather", json.RawMessage(`{}`))
	assert.Equal(t, before, s.State())

	h.HandleEvent(EventConnectError, nil)
	assert.False(t, s.State().Connected)
	h.HandleEvent(EventConnect, nil)
	h.HandleEvent(EventDisconnect, nil)
	assert.False(t, s.State().Connected)
}
