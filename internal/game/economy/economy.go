// Package economy implements the per-turn action-economy ledger: which
// discrete resources a combatant still holds this turn, whether a cost is
// affordable, and the snapshot left after paying it.
//
// Every function is pure; States are values and spell-slot maps are copied
// on write so callers may keep older snapshots.
package economy

import "fmt"

// CostType is the action-economy bucket an action draws from.
type CostType string

const (
	CostAction       CostType = "action"
	CostBonus        CostType = "bonus"
	CostReaction     CostType = "reaction"
	CostFree         CostType = "free"
	CostMovementOnly CostType = "movement-only"
)

// Known reports whether t is one of the recognised cost types.
func (t CostType) Known() bool {
	switch t {
	case CostAction, CostBonus, CostReaction, CostFree, CostMovementOnly:
		return true
	default:
		return false
	}
}

// Cost describes what an action spends.
type Cost struct {
	Type           CostType `yaml:"type"`
	MovementCost   int      `yaml:"movement_cost"`
	SpellSlotLevel int      `yaml:"spell_slot_level"`
}

// Bucket is a once-per-turn resource such as the action or reaction.
type Bucket struct {
	Used      bool
	Remaining int
}

// Available reports whether the bucket can still be spent.
func (b Bucket) Available() bool { return !b.Used && b.Remaining > 0 }

func (b Bucket) spend() Bucket {
	b.Remaining--
	if b.Remaining <= 0 {
		b.Remaining = 0
		b.Used = true
	}
	return b
}

// Movement tracks feet of movement spent against the turn's budget.
type Movement struct {
	Used  int
	Total int
}

// Remaining returns Total - Used, floored at zero.
func (m Movement) Remaining() int {
	return max(m.Total-m.Used, 0)
}

// SlotPool is the slots of one spell level.
type SlotPool struct {
	Current int `yaml:"current"`
	Max     int `yaml:"max"`
}

// State is one combatant's ledger.
type State struct {
	Action      Bucket
	Bonus       Bucket
	Reaction    Bucket
	Movement    Movement
	FreeActions int
	SpellSlots  map[int]SlotPool
}

// Fresh returns a full ledger for a combatant with the given speed and slots.
//
// Postcondition: every bucket is unused with one use remaining; Movement.Total == speed.
func Fresh(speed int, slots map[int]SlotPool) State {
	return ResetForTurn(State{SpellSlots: cloneSlots(slots)}, speed)
}

// CanAfford reports whether s can pay cost.
//
// Postcondition: movement-only costs depend only on remaining movement; a
// spell-slot cost with no pool at that level is unaffordable; unknown cost
// types are checked against movement and slots only.
func CanAfford(s State, cost Cost) bool {
	if cost.MovementCost < 0 || cost.MovementCost > s.Movement.Remaining() {
		return false
	}
	if cost.Type == CostMovementOnly {
		return true
	}
	if cost.SpellSlotLevel > 0 {
		pool, ok := s.SpellSlots[cost.SpellSlotLevel]
		if !ok || pool.Current <= 0 {
			return false
		}
	}
	switch cost.Type {
	case CostAction:
		return s.Action.Available()
	case CostBonus:
		return s.Bonus.Available()
	case CostReaction:
		return s.Reaction.Available()
	case CostFree:
		return s.FreeActions > 0
	default:
		return true
	}
}

// Consume pays cost out of s and returns the new ledger.
//
// Precondition: CanAfford(s, cost).
// Postcondition: Movement.Used grows by exactly cost.MovementCost; the matching
// bucket is marked used; one slot of cost.SpellSlotLevel is spent. An unknown
// cost type spends movement and slots but no bucket.
func Consume(s State, cost Cost) State {
	out := s
	out.Movement.Used += cost.MovementCost
	switch cost.Type {
	case CostAction:
		out.Action = s.Action.spend()
	case CostBonus:
		out.Bonus = s.Bonus.spend()
	case CostReaction:
		out.Reaction = s.Reaction.spend()
	case CostFree:
		out.FreeActions = max(s.FreeActions-1, 0)
	}
	if cost.Type != CostMovementOnly && cost.SpellSlotLevel > 0 {
		if pool, ok := s.SpellSlots[cost.SpellSlotLevel]; ok && pool.Current > 0 {
			out.SpellSlots = cloneSlots(s.SpellSlots)
			pool.Current--
			out.SpellSlots[cost.SpellSlotLevel] = pool
		}
	}
	return out
}

// ResetForTurn restores every per-turn bucket and sets movement to speed.
// Spell slots are not per-turn and carry over unchanged.
func ResetForTurn(s State, speed int) State {
	return State{
		Action:      Bucket{Remaining: 1},
		Bonus:       Bucket{Remaining: 1},
		Reaction:    Bucket{Remaining: 1},
		Movement:    Movement{Total: max(speed, 0)},
		FreeActions: 1,
		SpellSlots:  s.SpellSlots,
	}
}

// UseReaction marks the reaction spent without any other cost.
func UseReaction(s State) State {
	out := s
	out.Reaction = Bucket{Used: true}
	return out
}

// String renders the ledger for diagnostics.
func (s State) String() string {
	return fmt.Sprintf("action=%t bonus=%t reaction=%t move=%d/%d free=%d",
		s.Action.Available(), s.Bonus.Available(), s.Reaction.Available(),
		s.Movement.Used, s.Movement.Total, s.FreeActions)
}

func cloneSlots(in map[int]SlotPool) map[int]SlotPool {
	if in == nil {
		return nil
	}
	out := make(map[int]SlotPool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
