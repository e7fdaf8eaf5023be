package condition

// ACBonus returns the net AC modifier from stat_modifier effects targeting "ac".
func ACBonus(list []StatusEffect) int {
	return statTotal(list, "ac")
}

// AttackBonus returns the net attack modifier from stat_modifier effects targeting "attack".
func AttackBonus(list []StatusEffect) int {
	return statTotal(list, "attack")
}

// SkipsTurn reports whether any effect forfeits the holder's turn.
func SkipsTurn(list []StatusEffect) bool {
	for _, s := range list {
		if s.Tick == SkipTurn {
			return true
		}
	}
	return false
}

func statTotal(list []StatusEffect, stat string) int {
	total := 0
	for _, s := range list {
		if s.Tick == StatModifier && s.Stat == stat {
			total += s.Value
		}
	}
	return total
}

// Resists reports whether any effect grants resistance to damageType.
func Resists(list []StatusEffect, damageType string) bool {
	for _, s := range list {
		for _, r := range s.Resist {
			if r == damageType {
				return true
			}
		}
	}
	return false
}
