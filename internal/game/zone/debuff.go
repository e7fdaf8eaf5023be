package zone

import (
	"github.com/google/uuid"

	"github.com/cory-johannsen/skirmish/internal/game/effect"
)

// MovementDebuff is a one-shot effect armed on a target that fires the first
// time the target moves before the debuff expires.
type MovementDebuff struct {
	ID             string
	SpellID        string
	CasterID       string
	TargetID       string
	Effects        []effect.Effect
	ExpiresAtRound int
	DC             int
	HasTriggered   bool
}

// NewMovementDebuff arms a debuff on targetID lasting duration rounds from
// round; a non-positive duration defaults to 1.
func NewMovementDebuff(spellID, casterID, targetID string, effects []effect.Effect, round, duration, dc int) MovementDebuff {
	if duration <= 0 {
		duration = 1
	}
	return MovementDebuff{
		ID:             uuid.NewString(),
		SpellID:        spellID,
		CasterID:       casterID,
		TargetID:       targetID,
		Effects:        effects,
		ExpiresAtRound: round + duration,
		DC:             dc,
	}
}

// TriggerMovementDebuffs fires every armed debuff bound to targetID whose
// ExpiresAtRound >= round, disarming each one permanently.
//
// Postcondition: updated has the same length and order as debuffs; the input is not mutated.
func TriggerMovementDebuffs(debuffs []MovementDebuff, targetID string, round int) (updated []MovementDebuff, results []Result) {
	updated = make([]MovementDebuff, len(debuffs))
	copy(updated, debuffs)
	for i, d := range updated {
		if d.TargetID != targetID || d.HasTriggered || d.ExpiresAtRound < round {
			continue
		}
		updated[i].HasTriggered = true
		res := Result{ZoneID: d.ID, SpellID: d.SpellID, CasterID: d.CasterID, Trigger: OnTargetMove, DC: d.DC}
		for _, e := range d.Effects {
			if effect.Materialized(e) {
				res.Effects = append(res.Effects, e)
			}
		}
		if len(res.Effects) > 0 {
			results = append(results, res)
		}
	}
	return updated, results
}

// SweepDebuffs keeps only armed debuffs with ExpiresAtRound > round.
func SweepDebuffs(debuffs []MovementDebuff, round int) []MovementDebuff {
	out := make([]MovementDebuff, 0, len(debuffs))
	for _, d := range debuffs {
		if !d.HasTriggered && d.ExpiresAtRound > round {
			out = append(out, d)
		}
	}
	return out
}
