package devserver

import (
	"sync"
	"time"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/countdown"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/model"
)

// Election holds the mock backend's running tallies.
type Election struct {
	mu         sync.Mutex
	votes      model.VoteTally
	referendum model.ReferendumTally
	target     time.Time
	now        func() time.Time
}

func NewElection(s *Seed, target time.Time) *Election {
	return &Election{
		votes: model.VoteTally{
			PartyA: s.Votes.PartyA,
			PartyB: s.Votes.PartyB,
			Total:  s.Votes.PartyA + s.Votes.PartyB,
		},
		referendum: model.ReferendumTally{Yes: s.Referendum.Yes, No: s.Referendum.No},
		target:     target,
		now:        time.Now,
	}
}

func (e *Election) CastVote(opt model.Option) model.VoteTally {
	e.mu.Lock()
	defer e.mu.Unlock()

	if opt == model.OptionScale {
		e.votes.PartyB++
	} else {
		e.votes.PartyA++
	}
	e.votes.Total++
	return e.votes
}

func (e *Election) CastReferendum(c model.Choice) model.ReferendumTally {
	e.mu.Lock()
	defer e.mu.Unlock()

	if c == model.ChoiceYes {
		e.referendum.Yes++
	} else {
		e.referendum.No++
	}
	return e.referendum
}

func (e *Election) Votes() model.VoteTally {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.votes
}

func (e *Election) Referendum() model.ReferendumTally {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.referendum
}

func (e *Election) Countdown() model.CountdownValue {
	return countdown.Until(e.target, e.now())
}

func (e *Election) Snapshot() model.Snapshot {
	v, r, c := e.Votes(), e.Referendum(), e.Countdown()
	return model.Snapshot{Votes: &v, Referendum: &r, Countdown: &c}
}
