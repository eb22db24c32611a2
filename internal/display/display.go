// Package display turns store state into view values and prints them.
package display

import (
	"fmt"
	"math"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/model"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/store"
)

// Percent is count/total*100, or 0 when total is not positive.
func Percent(count, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

// FormatPercent renders p with one decimal.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.1f", p)
}

type Bar struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

type VoteView struct {
	PartyA Bar `json:"partyA"`
	PartyB Bar `json:"partyB"`
	Total  int `json:"totalVotes"`
}

type ReferendumView struct {
	Yes   Bar `json:"yes"`
	No    Bar `json:"no"`
	Total int `json:"total"`
}

type Dashboard struct {
	Live       bool                 `json:"live"`
	Votes      VoteView             `json:"votes"`
	Referendum ReferendumView       `json:"referendum"`
	Countdown  model.CountdownValue `json:"countdown"`
}

func round1(p float64) float64 {
	return math.Round(p*10) / 10
}

func Votes(v model.VoteTally) VoteView {
	return VoteView{
		PartyA: Bar{Label: "Rice (BNP)", Count: v.PartyA, Percent: round1(Percent(v.PartyA, v.Total))},
		PartyB: Bar{Label: "Scale (Jamaat)", Count: v.PartyB, Percent: round1(Percent(v.PartyB, v.Total))},
		Total:  v.Total,
	}
}

// Referendum uses yes+no as the total.
func Referendum(r model.ReferendumTally) ReferendumView {
	total := r.Total()
	return ReferendumView{
		Yes:   Bar{Label: "Yes", Count: r.Yes, Percent: round1(Percent(r.Yes, total))},
		No:    Bar{Label: "No", Count: r.No, Percent: round1(Percent(r.No, total))},
		Total: total,
	}
}

// Build derives the dashboard from a store snapshot. local replaces the
// countdown while none has been pushed.
func Build(s store.State, local model.CountdownValue) Dashboard {
	cd := s.Countdown
	if cd.IsZero() {
		cd = local
	}
	return Dashboard{
		Live:       s.Connected,
		Votes:      Votes(s.Votes),
		Referendum: Referendum(s.Referendum),
		Countdown:  cd,
	}
}
