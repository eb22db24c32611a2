package model

import "encoding/json"

// Option is one of the two ballot options. The wire value is the party
// symbol: rice is option A, scale is option B.
type Option string

const (
	OptionRice  Option = "rice"
	OptionScale Option = "scale"
)

func (o Option) Valid() bool {
	return o == OptionRice || o == OptionScale
}

// Choice is a referendum answer.
type Choice string

const (
	ChoiceYes Choice = "yes"
	ChoiceNo  Choice = "no"
)

func (c Choice) Valid() bool {
	return c == ChoiceYes || c == ChoiceNo
}

type VoteTally struct {
	PartyA int `json:"partyA"`
	PartyB int `json:"partyB"`
	Total  int `json:"totalVotes"`
}

// UnmarshalJSON accepts both `totalVotes` and the older `total` field.
func (v *VoteTally) UnmarshalJSON(b []byte) error {
	var raw struct {
		PartyA     int  `json:"partyA"`
		PartyB     int  `json:"partyB"`
		TotalVotes *int `json:"totalVotes"`
		Total      *int `json:"total"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	v.PartyA = raw.PartyA
	v.PartyB = raw.PartyB
	switch {
	case raw.TotalVotes != nil:
		v.Total = *raw.TotalVotes
	case raw.Total != nil:
		v.Total = *raw.Total
	default:
		v.Total = 0
	}
	return nil
}

// Count returns the tally for one option.
func (v VoteTally) Count(o Option) int {
	if o == OptionScale {
		return v.PartyB
	}
	return v.PartyA
}

type ReferendumTally struct {
	Yes int `json:"yes"`
	No  int `json:"no"`
}

func (r ReferendumTally) Total() int {
	return r.Yes + r.No
}

type CountdownValue struct {
	Days        int  `json:"days"`
	Hours       int  `json:"hours"`
	Minutes     int  `json:"minutes"`
	Seconds     int  `json:"seconds"`
	ElectionDay bool `json:"isElectionDay"`
}

// IsZero reports whether no countdown has been received or computed yet.
func (c CountdownValue) IsZero() bool {
	return c == CountdownValue{}
}

// Snapshot is the payload of `initial-data` and `vote-update` pushes.
// Missing slices stay nil.
type Snapshot struct {
	Votes      *VoteTally       `json:"votes,omitempty"`
	Referendum *ReferendumTally `json:"referendum,omitempty"`
	Countdown  *CountdownValue  `json:"countdown,omitempty"`
}
