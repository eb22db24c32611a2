package realtime

import (
	"encoding/json"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/countdown"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/logging"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/model"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/store"
)

// Dispatcher is any store-like sink of events.
type Dispatcher interface {
	Dispatch(ev store.Event) store.State
}

// StoreHandler maps channel events onto store events.
type StoreHandler struct {
	store Dispatcher
}

func NewStoreHandler(d Dispatcher) *StoreHandler {
	return &StoreHandler{store: d}
}

func (h *StoreHandler) HandleEvent(name string, data json.RawMessage) {
	switch name {
	case EventConnect:
		h.store.Dispatch(store.ConnectionChanged{Connected: true})

	case EventDisconnect, EventConnectError:
		h.store.Dispatch(store.ConnectionChanged{Connected: false})

	case EventInitialData:
		var s model.Snapshot
		if !decode(name, data, &s) {
			return
		}
		if s.Countdown != nil {
			cd := countdown.Normalize(*s.Countdown)
			s.Countdown = &cd
		}
		h.store.Dispatch(store.SnapshotReceived{Snapshot: s})

	case "votes":
		var v model.VoteTally
		if decode(name, data, &v) {
			h.store.Dispatch(store.VotesReceived{Votes: v})
		}

	case "vote-update":
		var s model.Snapshot
		if !decode(name, data, &s) {
			return
		}
		if s.Votes != nil {
			h.store.Dispatch(store.VotesReceived{Votes: *s.Votes})
		}
		if s.Referendum != nil {
			h.store.Dispatch(store.ReferendumReceived{Referendum: *s.Referendum})
		}

	case "countdown", "countdown-update":
		var c model.CountdownValue
		if decode(name, data, &c) {
			h.store.Dispatch(store.CountdownReceived{Countdown: countdown.Normalize(c)})
		}

	default:
		logging.Log.Debugf("REALTIME: ignoring event %q", name)
	}
}

func decode(name string, data json.RawMessage, v any) bool {
	if len(data) == 0 {
		logging.Log.Warnf("REALTIME: %s event without payload", name)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		logging.Log.Warnf("REALTIME: bad %s payload: %v", name, err)
		return false
	}
	return true
}
