// Package stats holds the static stat-block vocabulary shared by every
// rules component: ability scores, modifiers, proficiency and creature size.
package stats

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Ability names one of the six ability scores.
type Ability string

const (
	Strength     Ability = "strength"
	Dexterity    Ability = "dexterity"
	Constitution Ability = "constitution"
	Intelligence Ability = "intelligence"
	Wisdom       Ability = "wisdom"
	Charisma     Ability = "charisma"
)

// Abilities lists every Ability in stat-block order.
var Abilities = []Ability{Strength, Dexterity, Constitution, Intelligence, Wisdom, Charisma}

// ParseAbility accepts full names ("wisdom") and three-letter abbreviations ("WIS").
//
// Postcondition: returns an error for any unrecognised name.
func ParseAbility(s string) (Ability, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strength", "str":
		return Strength, nil
	case "dexterity", "dex":
		return Dexterity, nil
	case "constitution", "con":
		return Constitution, nil
	case "intelligence", "int":
		return Intelligence, nil
	case "wisdom", "wis":
		return Wisdom, nil
	case "charisma", "cha":
		return Charisma, nil
	default:
		return "", fmt.Errorf("stats: unknown ability %q", s)
	}
}

// UnmarshalYAML accepts full names and abbreviations.
func (a *Ability) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseAbility(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Title returns the capitalised ability name used in narration.
func (a Ability) Title() string {
	if a == "" {
		return ""
	}
	return strings.ToUpper(string(a[:1])) + string(a[1:])
}

// Scores is a six-score ability block.
type Scores struct {
	Strength     int `yaml:"str"`
	Dexterity    int `yaml:"dex"`
	Constitution int `yaml:"con"`
	Intelligence int `yaml:"int"`
	Wisdom       int `yaml:"wis"`
	Charisma     int `yaml:"cha"`
}

// Score returns the raw score for a.
//
// Postcondition: unknown abilities score 10 (modifier 0).
func (s Scores) Score(a Ability) int {
	switch a {
	case Strength:
		return s.Strength
	case Dexterity:
		return s.Dexterity
	case Constitution:
		return s.Constitution
	case Intelligence:
		return s.Intelligence
	case Wisdom:
		return s.Wisdom
	case Charisma:
		return s.Charisma
	default:
		return 10
	}
}

// Mod returns the modifier for a.
func (s Scores) Mod(a Ability) int {
	return Modifier(s.Score(a))
}

// Modifier computes floor((score - 10) / 2).
//
// Postcondition: Modifier(10) == 0; Modifier(9) == -1.
func Modifier(score int) int {
	diff := score - 10
	if diff < 0 {
		return (diff - 1) / 2
	}
	return diff / 2
}

// ProficiencyBonus returns 2 + (level-1)/4 for level >= 1.
//
// Postcondition: Returns >= 2.
func ProficiencyBonus(level int) int {
	if level < 1 {
		level = 1
	}
	return 2 + (level-1)/4
}

// Size is a creature size category.
type Size string

const (
	Tiny       Size = "tiny"
	Small      Size = "small"
	Medium     Size = "medium"
	Large      Size = "large"
	Huge       Size = "huge"
	Gargantuan Size = "gargantuan"
)
