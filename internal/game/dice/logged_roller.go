package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger to provide logged dice rolling.
// All rolls are logged at debug level with expression, dice values, modifier, and total.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src must be non-nil. A nil logger is replaced with a no-op logger.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roller{src: src, logger: logger}
}

// Source returns the underlying randomness provider.
func (r *Roller) Source() Source { return r.src }

// Roll evaluates expr and logs the result at debug level.
//
// Precondition: expr must come from Parse.
// Postcondition: result logged; returns RollResult or error.
func (r *Roller) Roll(expr Expression) (RollResult, error) {
	result, err := Roll(expr, r.src)
	if err != nil {
		return RollResult{}, err
	}
	r.logger.Debug("dice roll",
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice),
		zap.Ints("dropped", result.Dropped),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total()),
	)
	return result, nil
}

// RollExpr parses expr and rolls it, logging the result.
//
// Precondition: expr must be a valid dice expression string.
// Postcondition: Returns a RollResult or a parse/roll error.
func (r *Roller) RollExpr(expr string) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	return r.Roll(e)
}

// D20 throws a d20 test under mode and logs every die.
func (r *Roller) D20(mode Mode) D20Result {
	res := RollD20(r.src, mode)
	r.logger.Debug("d20 roll",
		zap.Stringer("mode", res.Mode),
		zap.Ints("rolls", res.Rolls),
		zap.Int("natural", res.Natural),
	)
	return res
}
