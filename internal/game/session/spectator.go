package session

import (
	"fmt"
	"sync"

	"github.com/cory-johannsen/skirmish/internal/game/event"
)

// Spectator buffers a match's narrated log entries for one reader.
type Spectator struct {
	id      string
	entries chan event.LogEntry
	mu      sync.Mutex
	closed  bool
	dropped int
}

// NewSpectator creates a Spectator with the given buffer size.
//
// Precondition: id must be non-empty.
// Postcondition: Returns a Spectator with an open entries channel.
func NewSpectator(id string, bufferSize int) *Spectator {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Spectator{
		id:      id,
		entries: make(chan event.LogEntry, bufferSize),
	}
}

// ID returns the spectator's identifier.
func (s *Spectator) ID() string {
	return s.id
}

// Push enqueues e without blocking.
//
// Postcondition: e is enqueued, or an error is returned if the spectator is
// closed or its buffer is full. A full buffer counts the entry as dropped.
func (s *Spectator) Push(e event.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("spectator %s is closed", s.id)
	}
	select {
	case s.entries <- e:
		return nil
	default:
		s.dropped++
		return fmt.Errorf("spectator %s buffer full", s.id)
	}
}

// Entries returns the read-only entries channel. It is closed by Close.
func (s *Spectator) Entries() <-chan event.LogEntry {
	return s.entries
}

// Dropped returns how many entries were discarded on a full buffer.
func (s *Spectator) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close marks the spectator as closed and closes the entries channel.
//
// Postcondition: The entries channel is closed. Further Push calls return an error.
func (s *Spectator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.entries)
	}
	return nil
}

// IsClosed reports whether the spectator has been closed.
func (s *Spectator) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
