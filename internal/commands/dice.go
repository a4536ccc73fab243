package commands

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
)

// Safety caps for dice expressions.
const (
	MaxDiceCount   = 100  // dice per expression
	MaxDiceSides   = 1000 // sides per die
	MaxExpressions = 10   // expressions handled per message
)

var diceExprRE = regexp.MustCompile(`\[\s*(\d+)[dD](\d+)(?:\s*([+-]\s*\d+))?\s*\]`)

// DiceExpr is one parsed [NdM+/-K] expression.
type DiceExpr struct {
	N   int
	M   int
	Mod int
}

// ParseDice extracts every well-formed [NdM(+/-K)] expression from text,
// e.g. [3d6], [1D10+2], [4d5 - 1].
func ParseDice(text string) []DiceExpr {
	var out []DiceExpr
	for _, m := range diceExprRE.FindAllStringSubmatch(text, -1) {
		n, _ := strconv.Atoi(m[1])
		sides, _ := strconv.Atoi(m[2])
		mod := 0
		if m[3] != "" {
			mod, _ = strconv.Atoi(strings.ReplaceAll(m[3], " ", ""))
		}
		out = append(out, DiceExpr{N: n, M: sides, Mod: mod})
	}
	return out
}

// RollResult holds one evaluated expression, post-clamp.
type RollResult struct {
	Expr     DiceExpr // clamped values actually rolled
	Rolls    []int
	Subtotal int
	Total    int
}

// Roll evaluates e with independent uniform rolls in [1, M].
// N is clamped to [1, MaxDiceCount] and M to [2, MaxDiceSides].
func Roll(rng *rand.Rand, e DiceExpr) RollResult {
	e.N = clamp(e.N, 1, MaxDiceCount)
	e.M = clamp(e.M, 2, MaxDiceSides)

	rolls := make([]int, e.N)
	subtotal := 0
	for i := range rolls {
		rolls[i] = rng.Intn(e.M) + 1
		subtotal += rolls[i]
	}
	return RollResult{
		Expr:     e,
		Rolls:    rolls,
		Subtotal: subtotal,
		Total:    subtotal + e.Mod,
	}
}

// RenderRoll formats one result, e.g.
//
//	[3d6+2] → 2,5,4 = 11 / +2 ⇒ 총 13
//	[2d10] → 7,3 = 총 10
func RenderRoll(r RollResult) string {
	modStr := ""
	if r.Expr.Mod != 0 {
		modStr = fmt.Sprintf("%+d", r.Expr.Mod)
	}
	head := fmt.Sprintf("[%dd%d%s]", r.Expr.N, r.Expr.M, modStr)

	parts := make([]string, len(r.Rolls))
	for i, v := range r.Rolls {
		parts[i] = strconv.Itoa(v)
	}
	rolls := strings.Join(parts, ",")

	if r.Expr.Mod != 0 {
		return fmt.Sprintf("%s → %s = %d / %+d ⇒ 총 %d", head, rolls, r.Subtotal, r.Expr.Mod, r.Total)
	}
	return fmt.Sprintf("%s → %s = 총 %d", head, rolls, r.Total)
}

// Dice evaluates every dice expression in text (up to MaxExpressions) and
// returns one rendered line per expression. Nil when text has none.
func Dice(text string, rng *rand.Rand) []string {
	exprs := ParseDice(text)
	if len(exprs) == 0 {
		return nil
	}
	if len(exprs) > MaxExpressions {
		exprs = exprs[:MaxExpressions]
	}
	out := make([]string, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, RenderRoll(Roll(rng, e)))
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
