package saves

import "github.com/cory-johannsen/skirmish/internal/game/dice"

// Scope selects how a rider is retired.
type Scope string

const (
	// NextSave riders are consumed by the holder's next saving throw.
	NextSave Scope = "next_save"
	// AllSaves riders apply to every save until their duration elapses.
	AllSaves Scope = "all_saves"
)

// Rider is a penalty attached to a combatant's future saving throws.
//
// Dice is written as a positive magnitude ("1d4") and always subtracts; Flat
// is added as given, so callers supply its sign.
//
// Duration counts the anchor (caster) combatant's completed turns after
// AppliedTurn; zero means the rider never expires by time.
type Rider struct {
	ID          string
	SpellID     string
	CasterID    string
	SourceName  string
	Dice        string
	Flat        int
	Scope       Scope
	Duration    int
	AppliedTurn int
	Elapsed     int
}

// Modifier converts the rider into a save Modifier with negated dice.
func (r Rider) Modifier() Modifier {
	m := Modifier{Source: r.SourceName, Flat: r.Flat}
	if r.Dice != "" {
		m.Dice = dice.Negate(r.Dice)
	}
	return m
}

// Modifiers converts every rider.
func Modifiers(riders []Rider) []Modifier {
	out := make([]Modifier, 0, len(riders))
	for _, r := range riders {
		out = append(out, r.Modifier())
	}
	return out
}

// Register appends r.
func Register(riders []Rider, r Rider) []Rider {
	out := make([]Rider, 0, len(riders)+1)
	out = append(out, riders...)
	return append(out, r)
}

// ConsumeNextSave drops every next_save rider; call it after any save is rolled.
//
// Postcondition: kept contains no NextSave rider.
func ConsumeNextSave(riders []Rider) (kept, consumed []Rider) {
	return partition(riders, func(r Rider) bool { return r.Scope == NextSave })
}

// RemoveBySpell drops every rider created by spellID.
func RemoveBySpell(riders []Rider, spellID string) []Rider {
	kept, _ := partition(riders, func(r Rider) bool { return r.SpellID == spellID })
	return kept
}

// Expire is called when endingID's turn ends; turn is the global turn counter
// of the turn that is ending. Every all_saves rider anchored to endingID and
// applied before this turn counts one elapsed cycle, and those whose elapsed
// cycles reach their duration are dropped. next_save riders are untouched.
//
// Postcondition: kept preserves input order.
func Expire(riders []Rider, endingID string, turn int) (kept, expired []Rider) {
	kept = make([]Rider, 0, len(riders))
	for _, r := range riders {
		if r.Scope == AllSaves && r.CasterID == endingID && turn > r.AppliedTurn {
			r.Elapsed++
			if r.Duration > 0 && r.Elapsed >= r.Duration {
				expired = append(expired, r)
				continue
			}
		}
		kept = append(kept, r)
	}
	return kept, expired
}

func partition(riders []Rider, drop func(Rider) bool) (kept, dropped []Rider) {
	kept = make([]Rider, 0, len(riders))
	for _, r := range riders {
		if drop(r) {
			dropped = append(dropped, r)
			continue
		}
		kept = append(kept, r)
	}
	return kept, dropped
}
