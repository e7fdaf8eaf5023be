package action

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
)

// AbilityResolver applies an ability's effects once the executor has paid for
// it and fired its telemetry. Implementations fetch combatants from eng and
// commit every combatant they change.
type AbilityResolver interface {
	Resolve(eng *combat.Engine, actorID string, ab combat.Ability, a combat.Action)
}

// BasicResolver resolves abilities from their declared data:
//
//   - attack-roll abilities roll against each target; a hit deals the first
//     damage effect and applies the remaining effects
//   - other abilities apply every effect to each target, honouring save gates
//   - with no targets and no point, effects apply to the actor
//   - zone templates are placed at the target point; terrain effects with a
//     point and no targets land on the point
//   - debuff, reactive and rider templates attach to each target
//   - concentration abilities replace the actor's previous concentration
type BasicResolver struct{}

func (BasicResolver) Resolve(eng *combat.Engine, actorID string, ab combat.Ability, a combat.Action) {
	actor, ok := eng.Get(actorID)
	if !ok {
		return
	}
	if ab.Concentration && actor.Concentration != nil {
		actor = eng.Commit(eng.DropConcentration(actor, "cast "+ab.Name))
	}
	src := combat.Source{ActorID: actor.ID, Name: ab.Name, SpellID: ab.ID, DC: actor.SpellDC(), Origin: actor.Position}

	targets := a.TargetIDs
	if len(targets) == 0 && a.TargetPosition == nil {
		targets = []string{actor.ID}
	}
	for _, id := range targets {
		t, ok := eng.Get(id)
		if !ok {
			eng.Logger().Warn("ability target missing", zap.String("ability", ab.ID), zap.String("target", id))
			continue
		}
		if !t.Alive() {
			continue
		}
		if ab.AttackRoll {
			var res combat.AttackResult
			attacker, _ := eng.Get(actorID)
			t, res = eng.Attack(attacker, t, ab, dice.Straight)
			if !res.Hit {
				eng.Commit(t)
				continue
			}
			t = applyAll(eng, t, withoutFirstDamage(ab.Effects), src)
		} else {
			t = applyAll(eng, t, ab.Effects, src)
		}
		if ab.Debuff != nil {
			eng.AddMovementDebuff(actorID, ab.ID, t.ID, *ab.Debuff)
		}
		if ab.Reactive != nil {
			eng.AddReactiveTrigger(actorID, ab.ID, t.ID, *ab.Reactive)
		}
		if ab.Rider != nil {
			t = eng.RegisterRider(t, actorID, ab.ID, ab.Name, *ab.Rider)
		}
		eng.Commit(t)
	}

	if p := a.TargetPosition; p != nil {
		if ab.Zone != nil {
			eng.AddZone(actorID, ab.ID, *p, *ab.Zone)
		}
		if len(a.TargetIDs) == 0 {
			for _, eff := range ab.Effects {
				if terrain, ok := eff.(effect.Terrain); ok {
					eng.ApplyTerrain(*p, terrain, src)
				}
			}
		}
	}

	if ab.Concentration {
		concentrate(eng, actorID, ab)
	}
}

func applyAll(eng *combat.Engine, t combat.Combatant, effects []effect.Effect, src combat.Source) combat.Combatant {
	for _, eff := range effects {
		if !t.Alive() {
			break
		}
		t = eng.ApplyEffect(t, eff, src)
	}
	return t
}

func withoutFirstDamage(effects []effect.Effect) []effect.Effect {
	out := make([]effect.Effect, 0, len(effects))
	skipped := false
	for _, eff := range effects {
		if _, ok := eff.(effect.Damage); ok && !skipped {
			skipped = true
			continue
		}
		out = append(out, eff)
	}
	return out
}

// concentrate starts concentration on ab. A spell counts as sustained on the
// turn it is cast.
func concentrate(eng *combat.Engine, actorID string, ab combat.Ability) {
	actor, ok := eng.Get(actorID)
	if !ok || !actor.Alive() {
		return
	}
	actor.Concentration = &combat.Concentration{
		SpellID:           ab.ID,
		SpellName:         ab.Name,
		SpellLevel:        ab.Cost.SpellSlotLevel,
		StartedRound:      eng.Round(),
		Sustain:           ab.Sustain,
		SustainedThisTurn: true,
	}
	eng.Commit(actor)
}
