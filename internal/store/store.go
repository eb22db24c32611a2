package store

import "sync"

// Listener is called after each dispatch with the new state and the event
// that produced it.
type Listener func(State, Event)

// Store is the single owner of the dashboard state. It is created once at
// startup and handed to every component that reads or dispatches.
type Store struct {
	dispatchMu sync.Mutex // serializes dispatch and notification order

	mu        sync.RWMutex
	state     State
	listeners map[int]Listener
	nextID    int
}

func New() *Store {
	return &Store{listeners: make(map[int]Listener)}
}

func (s *Store) Dispatch(ev Event) State {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	s.state = Reduce(s.state, ev)
	next := s.state
	ls := make([]Listener, 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if l, ok := s.listeners[id]; ok {
			ls = append(ls, l)
		}
	}
	s.mu.Unlock()

	for _, l := range ls {
		l(next, ev)
	}
	return next
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers l and returns a function that removes it. Listeners
// must not call Dispatch.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = l

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}
