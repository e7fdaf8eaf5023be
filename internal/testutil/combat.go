package testutil

import (
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/skirmish/internal/game/battlemap"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/economy"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/event"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
	"github.com/cory-johannsen/skirmish/internal/game/stats"
)

// Fixture is a combat engine wired to an in-memory roster, a 20x20 open map
// and a Recorder observer.
type Fixture struct {
	Engine   *combat.Engine
	Roster   *combat.Roster
	Bus      *event.Bus
	Recorder *combat.Recorder
}

// NewFixture builds a Fixture rolling dice from src and logging to t.
func NewFixture(t *testing.T, src dice.Source) *Fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	roster := combat.NewRoster()
	bus := event.NewBus(logger)
	rec := combat.NewRecorder()
	eng := combat.NewEngine(
		combat.Config{CellFeet: 5},
		roster,
		dice.NewLoggedRoller(src, logger),
		bus,
		battlemap.New(20, 20),
		rec,
		logger,
	)
	eng.SetTurn(1, 1)
	return &Fixture{Engine: eng, Roster: roster, Bus: bus, Recorder: rec}
}

// Add stores every combatant in the roster.
func (f *Fixture) Add(cs ...combat.Combatant) {
	for _, c := range cs {
		f.Roster.Put(c)
	}
}

// MustGet returns the stored combatant or fails the test.
func (f *Fixture) MustGet(t *testing.T, id string) combat.Combatant {
	t.Helper()
	c, ok := f.Roster.Get(id)
	if !ok {
		t.Fatalf("combatant %q not in roster", id)
	}
	return c
}

// Fighter returns a level-1 combatant with all scores 10, 20 HP, AC 12,
// speed 30 and a fresh economy.
func Fighter(id string, team combat.Team, pos grid.Position) combat.Combatant {
	scores := stats.Scores{Strength: 10, Dexterity: 10, Constitution: 10, Intelligence: 10, Wisdom: 10, Charisma: 10}
	return combat.Combatant{
		ID:        id,
		Name:      id,
		Team:      team,
		Position:  pos,
		CurrentHP: 20,
		MaxHP:     20,
		AC:        12,
		Level:     1,
		Scores:    scores,
		Speed:     30,
		Size:      stats.Medium,
		Economy:   economy.Fresh(30, nil),
	}
}

// Sword is a proficient melee weapon attack dealing 1d8 slashing.
func Sword() combat.Ability {
	return combat.Ability{
		ID:         "sword",
		Name:       "Sword",
		Kind:       combat.KindAttack,
		Cost:       economy.Cost{Type: economy.CostAction},
		Range:      1,
		Weapon:     &combat.Weapon{},
		Proficient: true,
		AttackRoll: true,
		Effects:    []effect.Effect{effect.Damage{Dice: "1d8", DamageType: "slashing"}},
	}
}
