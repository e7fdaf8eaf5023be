package combat

import (
	"sync"

	"github.com/cory-johannsen/skirmish/internal/game/battlemap"
	"github.com/cory-johannsen/skirmish/internal/game/event"
)

// Observer receives the engine's outbound notifications. Implementations must
// not call back into the engine.
type Observer interface {
	// CharacterUpdated is called once per committed combatant mutation.
	CharacterUpdated(c Combatant)
	// LogEntry is called for every narrated event.
	LogEntry(e event.LogEntry)
	// MapUpdated is called when environmental tiles change.
	MapUpdated(m *battlemap.Map)
}

// ObserverFuncs adapts optional callbacks to Observer. Nil fields are ignored.
type ObserverFuncs struct {
	OnCharacter func(Combatant)
	OnLog       func(event.LogEntry)
	OnMap       func(*battlemap.Map)
}

func (o ObserverFuncs) CharacterUpdated(c Combatant) {
	if o.OnCharacter != nil {
		o.OnCharacter(c)
	}
}

func (o ObserverFuncs) LogEntry(e event.LogEntry) {
	if o.OnLog != nil {
		o.OnLog(e)
	}
}

func (o ObserverFuncs) MapUpdated(m *battlemap.Map) {
	if o.OnMap != nil {
		o.OnMap(m)
	}
}

// Recorder is an Observer that keeps every log entry and counts updates.
// It is safe for concurrent use.
type Recorder struct {
	mu         sync.Mutex
	entries    []event.LogEntry
	updates    map[string]int
	mapUpdates int
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{updates: make(map[string]int)}
}

func (r *Recorder) CharacterUpdated(c Combatant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates[c.ID]++
}

func (r *Recorder) LogEntry(e event.LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *Recorder) MapUpdated(*battlemap.Map) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mapUpdates++
}

// Entries returns a copy of the recorded log entries.
func (r *Recorder) Entries() []event.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.LogEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Messages returns the message of every recorded entry.
func (r *Recorder) Messages() []string {
	entries := r.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out
}

// Updates returns how many CharacterUpdated calls were seen for id.
func (r *Recorder) Updates(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates[id]
}

// MapUpdates returns how many MapUpdated calls were seen.
func (r *Recorder) MapUpdates() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mapUpdates
}
