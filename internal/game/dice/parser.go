package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Expression represents a parsed dice expression ready to be rolled.
// Precondition: Count >= 1, Sides >= 2 after successful Parse.
type Expression struct {
	Raw         string // original input string
	Count       int    // number of dice
	Sides       int    // faces per die
	Modifier    int    // flat modifier (may be negative)
	KeepHighest int    // if > 0, keep only the N highest dice (e.g. 4d6kh3)
	Negative    bool   // leading '-': dice subtract from the total
}

// Parse parses a dice expression string into an Expression.
// Supported forms: "d20", "2d6", "2d6+3", "4d8-2", "4d6kh3", "-1d4", "+1d6"
// Precondition: expr must be a non-empty string.
// Postcondition: Returns a non-nil Expression or a descriptive error.
func Parse(expr string) (Expression, error) {
	raw := expr
	s := strings.ToLower(strings.TrimSpace(expr))
	if s == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}

	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	dIdx := strings.Index(s, "d")
	if dIdx < 0 {
		return Expression{}, fmt.Errorf("dice: missing 'd' in expression %q", raw)
	}

	// Parse count (the part before 'd'); defaults to 1 when omitted.
	var count int
	countStr := s[:dIdx]
	if countStr == "" {
		count = 1
	} else {
		var err error
		count, err = strconv.Atoi(countStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: %w", raw, err)
		}
		if count <= 0 {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: must be >= 1", raw)
		}
	}

	rest := s[dIdx+1:]

	keepHighest := 0
	if khIdx := strings.Index(rest, "kh"); khIdx >= 0 {
		khPart := rest[khIdx+2:]
		rest = rest[:khIdx]

		modOffset := signOffset(khPart)
		var khStr string
		if modOffset >= 0 {
			khStr = khPart[:modOffset]
			rest = rest + khPart[modOffset:]
		} else {
			khStr = khPart
		}

		kh, err := strconv.Atoi(khStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid kh value in %q: %w", raw, err)
		}
		if kh <= 0 || kh >= count {
			return Expression{}, fmt.Errorf("dice: kh value %d must be > 0 and < count %d in %q", kh, count, raw)
		}
		keepHighest = kh
	}

	var sidesStr, modStr string
	if modOffset := signOffset(rest); modOffset >= 0 {
		sidesStr = rest[:modOffset]
		modStr = rest[modOffset:]
	} else {
		sidesStr = rest
	}

	sides, err := strconv.Atoi(sidesStr)
	if err != nil {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: %w", raw, err)
	}
	if sides < 2 {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: must be >= 2", raw)
	}

	modifier := 0
	if modStr != "" {
		modifier, err = strconv.Atoi(modStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid modifier in %q: %w", raw, err)
		}
	}
	if negative {
		modifier = -modifier
	}

	return Expression{
		Raw:         raw,
		Count:       count,
		Sides:       sides,
		Modifier:    modifier,
		KeepHighest: keepHighest,
		Negative:    negative,
	}, nil
}

// Negate returns the expression string with its sign flipped: "1d4" becomes
// "-1d4" and "-1d4" becomes "1d4".
//
// Precondition: expr is non-empty.
func Negate(expr string) string {
	s := strings.TrimSpace(expr)
	switch {
	case strings.HasPrefix(s, "-"):
		return s[1:]
	case strings.HasPrefix(s, "+"):
		return "-" + s[1:]
	default:
		return "-" + s
	}
}

// signOffset finds the first '+' or '-' after position 0, or -1.
func signOffset(s string) int {
	for i := 1; i < len(s); i++ {
		if s[i] == '+' || s[i] == '-' {
			return i
		}
	}
	return -1
}
