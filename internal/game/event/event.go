// Package event carries the engine's two outbound streams: typed telemetry
// published on a per-session Bus, and narrated LogEntry records.
package event

import (
	"time"

	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

// Type tags a telemetry event.
type Type string

const (
	TypeUnitMove      Type = "unit_move"
	TypeUnitAttack    Type = "unit_attack"
	TypeUnitCast      Type = "unit_cast"
	TypeUnitSustain   Type = "unit_sustain"
	TypeUnitEnterArea Type = "unit_enter_area"
	TypeUnitExitArea  Type = "unit_exit_area"
)

// Event is one telemetry notification. Subscribers must not feed back into engine state.
type Event interface {
	Type() Type
}

// UnitMove is published after a voluntary or forced move.
type UnitMove struct {
	UnitID string
	From   grid.Position
	To     grid.Position
	Cost   int
	Forced bool
}

// UnitAttack is published once per attacked target.
type UnitAttack struct {
	AttackerID string
	TargetID   string
	AbilityID  string
	Reaction   bool
}

// UnitCast is published when an ability is used.
type UnitCast struct {
	CasterID  string
	AbilityID string
	TargetIDs []string
	Target    *grid.Position
}

// UnitSustain is published when concentration is sustained.
type UnitSustain struct {
	UnitID  string
	SpellID string
}

// UnitEnterArea is published whenever a creature crosses into a zone.
type UnitEnterArea struct {
	UnitID   string
	ZoneID   string
	SpellID  string
	Position grid.Position
}

// UnitExitArea is published whenever a creature leaves a zone.
type UnitExitArea struct {
	UnitID   string
	ZoneID   string
	SpellID  string
	Position grid.Position
}

func (UnitMove) Type() Type      { return TypeUnitMove }
func (UnitAttack) Type() Type    { return TypeUnitAttack }
func (UnitCast) Type() Type      { return TypeUnitCast }
func (UnitSustain) Type() Type   { return TypeUnitSustain }
func (UnitEnterArea) Type() Type { return TypeUnitEnterArea }
func (UnitExitArea) Type() Type  { return TypeUnitExitArea }

// LogType is the stable tag on a narrated log entry.
type LogType string

const (
	LogAction    LogType = "action"
	LogDamage    LogType = "damage"
	LogHeal      LogType = "heal"
	LogStatus    LogType = "status"
	LogTurnStart LogType = "turn_start"
	LogTurnEnd   LogType = "turn_end"
	LogSystem    LogType = "system"
)

// LogEntry is one human-readable narration line with optional structured data.
type LogEntry struct {
	ID          string
	Timestamp   time.Time
	Type        LogType
	Message     string
	CharacterID string
	TargetIDs   []string
	Data        map[string]any
}
