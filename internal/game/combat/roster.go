package combat

import "sync"

// Roster is the id-keyed store of combatant snapshots for one encounter.
// Callers pass ids around and fetch fresh snapshots; Put replaces the stored
// snapshot wholesale. Dead combatants stay in the roster.
// All methods are safe for concurrent use.
type Roster struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]Combatant
}

// NewRoster creates an empty Roster.
func NewRoster() *Roster {
	return &Roster{byID: make(map[string]Combatant)}
}

// Put stores a deep copy of c, appending its id on first insertion.
//
// Precondition: c.ID must be non-empty.
func (r *Roster) Put(c Combatant) {
	if c.ID == "" {
		panic("combat: Roster.Put called with empty ID")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[c.ID]; !ok {
		r.order = append(r.order, c.ID)
	}
	r.byID[c.ID] = c.Clone()
}

// Get returns a deep copy of the snapshot for id.
func (r *Roster) Get(id string) (Combatant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return Combatant{}, false
	}
	return c.Clone(), true
}

// All returns copies of every combatant in insertion order.
func (r *Roster) All() []Combatant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Combatant, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].Clone())
	}
	return out
}

// Alive returns copies of combatants with hit points left, in insertion order.
func (r *Roster) Alive() []Combatant {
	var out []Combatant
	for _, c := range r.All() {
		if c.Alive() {
			out = append(out, c)
		}
	}
	return out
}

// TeamsStanding returns the number of teams with at least one living combatant.
func (r *Roster) TeamsStanding() int {
	teams := make(map[Team]struct{})
	for _, c := range r.Alive() {
		teams[c.Team] = struct{}{}
	}
	return len(teams)
}

// Len returns the number of stored combatants.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
