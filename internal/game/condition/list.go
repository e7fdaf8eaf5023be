package condition

// Effects returned by these functions never share a backing array with their input.

// Add appends effect to list.
func Add(list []StatusEffect, effect StatusEffect) []StatusEffect {
	out := make([]StatusEffect, 0, len(list)+1)
	out = append(out, list...)
	return append(out, effect)
}

// Without returns list minus the effect with id. Missing ids are a no-op.
func Without(list []StatusEffect, id string) []StatusEffect {
	out := make([]StatusEffect, 0, len(list))
	for _, s := range list {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}

// Find returns the effect with id.
func Find(list []StatusEffect, id string) (StatusEffect, bool) {
	for _, s := range list {
		if s.ID == id {
			return s, true
		}
	}
	return StatusEffect{}, false
}

// HasName reports whether any effect in list is called name.
func HasName(list []StatusEffect, name string) bool {
	for _, s := range list {
		if s.Name == name {
			return true
		}
	}
	return false
}

// Tick decrements every non-permanent duration by one and drops the effects
// that reach zero.
//
// Postcondition: every kept effect has Duration == old Duration - 1 > 0 or is
// permanent; expired holds the dropped effects in list order.
func Tick(list []StatusEffect) (kept, expired []StatusEffect) {
	kept = make([]StatusEffect, 0, len(list))
	for _, s := range list {
		if !s.Permanent {
			s.Duration--
		}
		if s.Expired() {
			expired = append(expired, s)
			continue
		}
		kept = append(kept, s)
	}
	return kept, expired
}

// Purge drops effects that are already expired without ticking the rest.
func Purge(list []StatusEffect) (kept, expired []StatusEffect) {
	kept = make([]StatusEffect, 0, len(list))
	for _, s := range list {
		if s.Expired() {
			expired = append(expired, s)
			continue
		}
		kept = append(kept, s)
	}
	return kept, expired
}

// WithRepeatSave returns the effects whose repeat save fires at timing.
// For OnAction, only the effect with effectID qualifies.
func WithRepeatSave(list []StatusEffect, timing SaveTiming, effectID string) []StatusEffect {
	var out []StatusEffect
	for _, s := range list {
		if s.RepeatSave == nil || s.RepeatSave.Timing != timing {
			continue
		}
		if timing == OnAction && s.ID != effectID {
			continue
		}
		out = append(out, s)
	}
	return out
}
