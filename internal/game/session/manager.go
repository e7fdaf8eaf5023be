// Package session hosts concurrent matches. Each match owns its own bus,
// roster, engine, scheduler and scripted opponents.
package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/content"
)

var (
	// ErrMatchExists is returned by Create for a duplicate match ID.
	ErrMatchExists = errors.New("session: match already exists")
	// ErrMatchNotFound is returned when no match has the given ID.
	ErrMatchNotFound = errors.New("session: match not found")
)

// Manager tracks all active matches.
// All methods are safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	matches map[string]*Match // matchID → match
	deps    Deps
}

// NewManager creates an empty Manager whose matches share deps.
//
// Precondition: deps.Conditions must be non-nil.
func NewManager(deps Deps) *Manager {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Manager{
		matches: make(map[string]*Match),
		deps:    deps,
	}
}

// Create builds and starts a match for enc. An empty id is replaced by a
// generated UUID.
//
// Postcondition: returns ErrMatchExists if id is already in use.
func (m *Manager) Create(id string, enc *content.Encounter) (*Match, error) {
	if id == "" {
		id = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.matches[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrMatchExists, id)
	}
	match, err := newMatch(id, enc, m.deps)
	if err != nil {
		return nil, fmt.Errorf("creating match %s: %w", id, err)
	}
	if err := match.Start(); err != nil {
		match.Close()
		return nil, err
	}
	m.matches[id] = match
	m.deps.Logger.Info("match created", zap.String("match", id), zap.String("encounter", enc.ID))
	return match, nil
}

// Get returns the match with id.
func (m *Manager) Get(id string) (*Match, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	match, ok := m.matches[id]
	return match, ok
}

// Remove closes and forgets the match with id.
//
// Postcondition: returns ErrMatchNotFound if no such match exists.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	match, ok := m.matches[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	delete(m.matches, id)
	m.mu.Unlock()

	match.Close()
	return nil
}

// Count returns the number of active matches.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.matches)
}

// IDs returns the active match IDs in sorted order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.matches))
	for id := range m.matches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close closes every match.
func (m *Manager) Close() {
	m.mu.Lock()
	matches := m.matches
	m.matches = make(map[string]*Match)
	m.mu.Unlock()

	for _, match := range matches {
		match.Close()
	}
}
