package store

import "github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/model"

type State struct {
	Votes      model.VoteTally       `json:"votes"`
	Referendum model.ReferendumTally `json:"referendum"`
	Countdown  model.CountdownValue  `json:"countdown"`
	Connected  bool                  `json:"isConnected"`
}

// Reduce returns the state after ev. Every payload replaces its slice
// wholesale; nothing is merged or accumulated.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case ConnectionChanged:
		s.Connected = e.Connected
	case VotesReceived:
		s.Votes = e.Votes
	case ReferendumReceived:
		s.Referendum = e.Referendum
	case CountdownReceived:
		s.Countdown = e.Countdown
	case SnapshotReceived:
		if e.Snapshot.Votes != nil {
			s.Votes = *e.Snapshot.Votes
		}
		if e.Snapshot.Referendum != nil {
			s.Referendum = *e.Snapshot.Referendum
		}
		if e.Snapshot.Countdown != nil {
			s.Countdown = *e.Snapshot.Countdown
		}
	}
	return s
}
