// apps/go-server/internal/store/memory.go
//
// In-memory session table for live matches.
// The process is the single authority for match state; nothing here survives
// a restart. Finished sessions stay readable until the match manager evicts
// them after the retention window.
//
// Characteristics:
//   - Stores *game.Session values keyed by match ID.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Remove only evicts the exact instance it was given, so a stale eviction
//     timer never drops a match that was re-created under the same ID.

package store

import (
	"context"
	"errors"
	"sync"

	"github.com/robalobadob/zhuyin-battle/apps/go-server/internal/game"
)

// ErrNotFound is returned by Get for unknown match IDs.
var ErrNotFound = errors.New("match not found")

// Store defines the session table used by the match manager.
type Store interface {
	// Save inserts or replaces the session under its ID.
	Save(ctx context.Context, s *game.Session) error

	// Get retrieves a session by match ID.
	Get(ctx context.Context, id string) (*game.Session, error)

	// Remove deletes id if it still maps to expected. Passing a nil expected
	// removes whatever is stored. Reports whether an entry was removed.
	Remove(ctx context.Context, id string, expected *game.Session) bool

	// List returns every stored session in no particular order.
	List(ctx context.Context) []*game.Session
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.RWMutex
	sessions map[string]*game.Session
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]*game.Session)}
}

func (m *memory) Save(ctx context.Context, s *game.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID()] = s
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*game.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, ErrNotFound
}

func (m *memory) Remove(ctx context.Context, id string, expected *game.Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[id]
	if !ok || (expected != nil && cur != expected) {
		return false
	}
	delete(m.sessions, id)
	return true
}

// List snapshots the table so callers can work on sessions without holding mu.
func (m *memory) List(ctx context.Context) []*game.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*game.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}
