package store

import (
	"encoding/json"
	"fmt"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/model"
)

// Event is one of the store actions. The set is closed: only the types in
// this file implement it.
type Event interface {
	Name() string
	isEvent()
}

type ConnectionChanged struct {
	Connected bool `json:"connected"`
}

type VotesReceived struct {
	Votes model.VoteTally `json:"votes"`
}

type ReferendumReceived struct {
	Referendum model.ReferendumTally `json:"referendum"`
}

type CountdownReceived struct {
	Countdown model.CountdownValue `json:"countdown"`
}

// SnapshotReceived replaces every slice present in the snapshot.
type SnapshotReceived struct {
	Snapshot model.Snapshot `json:"snapshot"`
}

func (ConnectionChanged) Name() string  { return "connection" }
func (VotesReceived) Name() string      { return "votes" }
func (ReferendumReceived) Name() string { return "referendum" }
func (CountdownReceived) Name() string  { return "countdown" }
func (SnapshotReceived) Name() string   { return "snapshot" }

func (ConnectionChanged) isEvent()  {}
func (VotesReceived) isEvent()      {}
func (ReferendumReceived) isEvent() {}
func (CountdownReceived) isEvent()  {}
func (SnapshotReceived) isEvent()   {}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeEvent serializes an event with its name so it can be mirrored and
// replayed elsewhere.
func EncodeEvent(ev Event) ([]byte, error) {
	p, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", ev.Name(), err)
	}
	return json.Marshal(envelope{Type: ev.Name(), Payload: p})
}

func DecodeEvent(b []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}

	var ev Event
	var err error
	switch env.Type {
	case "connection":
		var e ConnectionChanged
		err = json.Unmarshal(env.Payload, &e)
		ev = e
	case "votes":
		var e VotesReceived
		err = json.Unmarshal(env.Payload, &e)
		ev = e
	case "referendum":
		var e ReferendumReceived
		err = json.Unmarshal(env.Payload, &e)
		ev = e
	case "countdown":
		var e CountdownReceived
		err = json.Unmarshal(env.Payload, &e)
		ev = e
	case "snapshot":
		var e SnapshotReceived
		err = json.Unmarshal(env.Payload, &e)
		ev = e
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s payload: %w", env.Type, err)
	}
	return ev, nil
}
