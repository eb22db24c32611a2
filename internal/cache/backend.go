package cache

import (
	"context"
	"sync"
	"time"
)

type Tag string

const (
	TagVotes      Tag = "Votes"
	TagReferendum Tag = "Referendum"
	TagCountdown  Tag = "Countdown"
	TagInsights   Tag = "Insights"
	TagCandidates Tag = "Candidates"
	TagNID        Tag = "NID"
)

// Entry is an unwrapped response body and the time it was fetched.
// Invalidated entries are kept so callers can fall back to them when a
// refetch fails.
type Entry struct {
	Data        []byte    `json:"data"`
	FetchedAt   time.Time `json:"fetchedAt"`
	Invalidated bool      `json:"-"`
}

type Backend interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry, tags []Tag) error
	// Invalidate marks every entry carrying one of tags as stale and
	// returns the affected keys.
	Invalidate(ctx context.Context, tags ...Tag) ([]string, error)
	Close() error
}

type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]Entry
	tags    map[Tag]map[string]struct{}
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]Entry),
		tags:    make(map[Tag]map[string]struct{}),
	}
}

func (m *MemoryBackend) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, e Entry, tags []Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.Invalidated = false
	m.entries[key] = e
	for _, t := range tags {
		keys := m.tags[t]
		if keys == nil {
			keys = make(map[string]struct{})
			m.tags[t] = keys
		}
		keys[key] = struct{}{}
	}
	return nil
}

func (m *MemoryBackend) Invalidate(_ context.Context, tags ...Tag) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]struct{})
	var keys []string
	for _, t := range tags {
		for k := range m.tags[t] {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
			if e, ok := m.entries[k]; ok {
				e.Invalidated = true
				m.entries[k] = e
			}
		}
	}
	return keys, nil
}

func (m *MemoryBackend) Close() error {
	return nil
}
