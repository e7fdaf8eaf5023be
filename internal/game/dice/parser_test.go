package dice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// fixedSrc always returns val, so every die shows val+1.
type fixedSrc struct{ val int }

func (f fixedSrc) Intn(n int) int {
	if f.val >= n {
		return n - 1
	}
	return f.val
}

// sequenceSrc returns its values in order, repeating the last one.
type sequenceSrc struct {
	vals []int
	i    int
}

func (s *sequenceSrc) Intn(n int) int {
	v := s.vals[len(s.vals)-1]
	if s.i < len(s.vals) {
		v = s.vals[s.i]
		s.i++
	}
	return v % n
}

func TestParse_Forms(t *testing.T) {
	cases := []struct {
		in       string
		count    int
		sides    int
		mod      int
		kh       int
		negative bool
	}{
		{"d20", 1, 20, 0, 0, false},
		{"2d6+3", 2, 6, 3, 0, false},
		{"4d8-2", 4, 8, -2, 0, false},
		{"4d6kh3", 4, 6, 0, 3, false},
		{"-1d4", 1, 4, 0, 0, true},
		{"+1d6", 1, 6, 0, 0, false},
		{"-2d4+1", 2, 4, -1, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			e, err := dice.Parse(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.count, e.Count)
			assert.Equal(t, tc.sides, e.Sides)
			assert.Equal(t, tc.mod, e.Modifier)
			assert.Equal(t, tc.kh, e.KeepHighest)
			assert.Equal(t, tc.negative, e.Negative)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, in := range []string{"", "20", "0d6", "2d1", "2dx", "4d6kh4", "-"} {
		_, err := dice.Parse(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestRoll_NegativeExpressionSubtracts(t *testing.T) {
	res, err := dice.RollExpr("-1d4", fixedSrc{val: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{-3}, res.Dice)
	assert.Equal(t, -3, res.Total())
}

func TestNegate(t *testing.T) {
	assert.Equal(t, "-1d4", dice.Negate("1d4"))
	assert.Equal(t, "1d4", dice.Negate("-1d4"))
	assert.Equal(t, "-1d6", dice.Negate("+1d6"))
}

func TestRollD20_AdvantageKeepsHigher(t *testing.T) {
	res := dice.RollD20(&sequenceSrc{vals: []int{3, 16}}, dice.Advantage)
	assert.Equal(t, []int{4, 17}, res.Rolls)
	assert.Equal(t, 17, res.Natural)
}

func TestRollD20_DisadvantageKeepsLower(t *testing.T) {
	res := dice.RollD20(&sequenceSrc{vals: []int{3, 16}}, dice.Disadvantage)
	assert.Equal(t, 4, res.Natural)
}

func TestRollD20_StraightRollsOnce(t *testing.T) {
	res := dice.RollD20(fixedSrc{val: 9}, dice.Straight)
	assert.Equal(t, []int{10}, res.Rolls)
	assert.Equal(t, 10, res.Natural)
}

func TestCombine(t *testing.T) {
	assert.Equal(t, dice.Straight, dice.Combine(true, true))
	assert.Equal(t, dice.Advantage, dice.Combine(true, false))
	assert.Equal(t, dice.Disadvantage, dice.Combine(false, true))
	assert.Equal(t, dice.Straight, dice.Combine(false, false))
}

func TestSeededSource_Replays(t *testing.T) {
	a := dice.NewSeededSource(42)
	b := dice.NewSeededSource(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Intn(20), b.Intn(20))
	}
}

func TestRoll_TotalInRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 10).Draw(rt, "count")
		sides := rapid.IntRange(2, 20).Draw(rt, "sides")
		seed := rapid.Uint64().Draw(rt, "seed")
		e := dice.Expression{Raw: "x", Count: count, Sides: sides}
		res, err := dice.Roll(e, dice.NewSeededSource(seed))
		require.NoError(rt, err)
		assert.GreaterOrEqual(rt, res.Total(), count)
		assert.LessOrEqual(rt, res.Total(), count*sides)
	})
}

func TestRollD20_NaturalInRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		mode := dice.Mode(rapid.IntRange(0, 2).Draw(rt, "mode"))
		res := dice.RollD20(dice.NewSeededSource(rapid.Uint64().Draw(rt, "seed")), mode)
		assert.GreaterOrEqual(rt, res.Natural, 1)
		assert.LessOrEqual(rt, res.Natural, 20)
		assert.Contains(rt, res.Rolls, res.Natural)
	})
}
