package combat

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/effect"
)

// ReactiveKind is the event a reactive trigger listens for.
type ReactiveKind string

const (
	// OnTargetAttack fires when the bound target is attacked.
	OnTargetAttack ReactiveKind = "on_target_attack"
	// OnTargetCast fires when the bound target uses an ability.
	OnTargetCast ReactiveKind = "on_target_cast"
	// OnCasterAction fires when the caster sustains the spell.
	OnCasterAction ReactiveKind = "on_caster_action"
)

// ReactiveTrigger applies Effect to TargetID whenever its event occurs,
// until the round sweep passes ExpiresAtRound.
type ReactiveTrigger struct {
	ID             string
	SpellID        string
	CasterID       string
	TargetID       string
	Kind           ReactiveKind
	Effect         effect.Effect
	CreatedRound   int
	ExpiresAtRound int
	DC             int
}

// FireReactive applies every trigger of kind keyed to id: the bound target for
// OnTargetAttack and OnTargetCast, the caster for OnCasterAction. Affected
// combatants are committed; callers must refetch any snapshot they hold.
func (e *Engine) FireReactive(kind ReactiveKind, id string) {
	for _, t := range e.Triggers() {
		if t.Kind != kind {
			continue
		}
		key := t.TargetID
		if kind == OnCasterAction {
			key = t.CasterID
		}
		if key != id || !e.hasTrigger(t.ID) {
			continue
		}
		target, ok := e.roster.Get(t.TargetID)
		if !ok {
			e.logger.Warn("reactive trigger target missing",
				zap.String("trigger", t.ID),
				zap.String("target", t.TargetID),
			)
			continue
		}
		if !target.Alive() {
			continue
		}
		target = e.ApplyEffect(target, t.Effect, Source{
			ActorID: t.CasterID,
			SpellID: t.SpellID,
			DC:      t.DC,
			Name:    e.abilityName(t.CasterID, t.SpellID),
		})
		e.Commit(target)
	}
}

// hasTrigger reports whether the trigger with id is still live. Applying one
// trigger can drop a concentration spell and remove later ones.
func (e *Engine) hasTrigger(id string) bool {
	for _, t := range e.triggers {
		if t.ID == id {
			return true
		}
	}
	return false
}
