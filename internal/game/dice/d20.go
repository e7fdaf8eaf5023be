package dice

// Mode selects how a d20 test is rolled.
type Mode int

const (
	Straight Mode = iota
	Advantage
	Disadvantage
)

// String returns the mode label used in narration.
func (m Mode) String() string {
	switch m {
	case Advantage:
		return "advantage"
	case Disadvantage:
		return "disadvantage"
	default:
		return "straight"
	}
}

// Combine resolves advantage and disadvantage flags; having both cancels.
func Combine(advantage, disadvantage bool) Mode {
	switch {
	case advantage && !disadvantage:
		return Advantage
	case disadvantage && !advantage:
		return Disadvantage
	default:
		return Straight
	}
}

// D20Result is one d20 test. Rolls holds every die thrown; Natural is the kept die.
type D20Result struct {
	Mode    Mode
	Rolls   []int
	Natural int
}

// RollD20 throws one d20, or two under advantage/disadvantage and keeps the
// higher/lower.
//
// Postcondition: 1 <= Natural <= 20; len(Rolls) is 1 for Straight, else 2.
func RollD20(src Source, mode Mode) D20Result {
	first := src.Intn(20) + 1
	if mode == Straight {
		return D20Result{Mode: mode, Rolls: []int{first}, Natural: first}
	}
	second := src.Intn(20) + 1
	kept := first
	if (mode == Advantage && second > first) || (mode == Disadvantage && second < first) {
		kept = second
	}
	return D20Result{Mode: mode, Rolls: []int{first, second}, Natural: kept}
}
