package simulation

import (
	"context"
	"math/rand"
	"time"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/logging"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/model"
)

// Ballot is where simulated votes are recorded.
type Ballot interface {
	CastVote(opt model.Option) model.VoteTally
	CastReferendum(c model.Choice) model.ReferendumTally
}

// Announcer pushes an event to connected clients.
type Announcer interface {
	Emit(event string, data any) bool
}

type Simulator struct {
	ballot    Ballot
	announcer Announcer
	interval  time.Duration
	rng       *rand.Rand
}

func New(b Ballot, a Announcer, interval time.Duration) *Simulator {
	return &Simulator{
		ballot:    b,
		announcer: a,
		interval:  interval,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Simulator) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// every third vote also answers the referendum
	const referendumFrequency = 3
	var counter int

	for {
		select {
		case <-ctx.Done():
			logging.Log.Info("Simulator received shutdown signal")
			return nil

		case <-ticker.C:
			counter++
			update := s.step(counter%referendumFrequency == 0)
			if !s.announcer.Emit("vote-update", update) {
				return nil
			}
		}
	}
}

// step records one simulated vote, slightly favouring option A and "yes".
func (s *Simulator) step(withReferendum bool) model.Snapshot {
	opt := model.OptionScale
	if s.rng.Intn(100) < 55 {
		opt = model.OptionRice
	}
	tally := s.ballot.CastVote(opt)
	logging.Log.Debugf("Generating vote: option=%s total=%d", opt, tally.Total)

	update := model.Snapshot{Votes: &tally}
	if withReferendum {
		choice := model.ChoiceNo
		if s.rng.Intn(100) < 60 {
			choice = model.ChoiceYes
		}
		ref := s.ballot.CastReferendum(choice)
		update.Referendum = &ref
	}
	return update
}
