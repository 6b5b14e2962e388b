package session

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps sessions in a map. The table lock guards membership;
// each entry has its own lock so concurrent requests on one session
// serialize their updates without blocking other sessions.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memoryEntry
}

type memoryEntry struct {
	mu sync.Mutex
	s  *Session
}

var (
	_ Store   = (*MemoryStore)(nil)
	_ Evicter = (*MemoryStore)(nil)
)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*memoryEntry)}
}

func (m *MemoryStore) Put(_ context.Context, s *Session, _ time.Duration) error {
	m.mu.Lock()
	m.sessions[s.Token] = &memoryEntry{s: s.clone()}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, token string) (*Session, error) {
	e := m.entry(token)
	if e == nil {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.clone(), nil
}

func (m *MemoryStore) Touch(_ context.Context, token string, now time.Time, _ time.Duration) (*Session, error) {
	e := m.entry(token)
	if e == nil {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if now.After(e.s.LastSeenAt) {
		e.s.LastSeenAt = now
	}
	return e.s.clone(), nil
}

func (m *MemoryStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
	return nil
}

// Expire holds the entry lock across the check and the removal, so a
// concurrent Touch either lands first and keeps the session or finds it
// gone.
func (m *MemoryStore) Expire(_ context.Context, token string, cutoff time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[token]
	if !ok {
		return false, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.s.LastSeenAt.Before(cutoff) {
		return false, nil
	}
	delete(m.sessions, token)
	return true, nil
}

func (m *MemoryStore) EvictOldest(_ context.Context, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	type seen struct {
		token string
		at    time.Time
	}
	all := make([]seen, 0, len(m.sessions))
	for token, e := range m.sessions {
		e.mu.Lock()
		all = append(all, seen{token: token, at: e.s.LastSeenAt})
		e.mu.Unlock()
	}
	slices.SortFunc(all, func(a, b seen) int { return a.at.Compare(b.at) })

	n = min(n, len(all))
	for _, s := range all[:n] {
		delete(m.sessions, s.token)
	}
	return n, nil
}

func (m *MemoryStore) DeleteIdle(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for token, e := range m.sessions {
		e.mu.Lock()
		idle := e.s.LastSeenAt.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(m.sessions, token)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStore) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions), nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	clear(m.sessions)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) entry(token string) *memoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[token]
}
