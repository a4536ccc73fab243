package commands

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"
)

func TestParseDice(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []DiceExpr
	}{
		{"plain", "[3d6]", []DiceExpr{{N: 3, M: 6}}},
		{"upper D with mod", "[1D10+2]", []DiceExpr{{N: 1, M: 10, Mod: 2}}},
		{"spaced negative mod", "[4d5 - 1]", []DiceExpr{{N: 4, M: 5, Mod: -1}}},
		{"inner spaces", "[ 2d8 ]", []DiceExpr{{N: 2, M: 8}}},
		{"multiple", "roll [1d6] and [2d4+1]", []DiceExpr{{N: 1, M: 6}, {N: 2, M: 4, Mod: 1}}},
		{"none", "[출석] hello", nil},
		{"not dice", "[d6] [3d] [3x6]", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseDice(tc.text)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ParseDice(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestRenderRoll(t *testing.T) {
	withMod := RollResult{
		Expr:     DiceExpr{N: 3, M: 6, Mod: 2},
		Rolls:    []int{2, 5, 4},
		Subtotal: 11,
		Total:    13,
	}
	if got, want := RenderRoll(withMod), "[3d6+2] → 2,5,4 = 11 / +2 ⇒ 총 13"; got != want {
		t.Fatalf("RenderRoll = %q, want %q", got, want)
	}

	negMod := RollResult{
		Expr:     DiceExpr{N: 2, M: 6, Mod: -1},
		Rolls:    []int{3, 3},
		Subtotal: 6,
		Total:    5,
	}
	if got, want := RenderRoll(negMod), "[2d6-1] → 3,3 = 6 / -1 ⇒ 총 5"; got != want {
		t.Fatalf("RenderRoll = %q, want %q", got, want)
	}

	noMod := RollResult{
		Expr:     DiceExpr{N: 2, M: 10},
		Rolls:    []int{7, 3},
		Subtotal: 10,
		Total:    10,
	}
	if got, want := RenderRoll(noMod), "[2d10] → 7,3 = 총 10"; got != want {
		t.Fatalf("RenderRoll = %q, want %q", got, want)
	}
}

func TestRollClampsAndBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	r := Roll(rng, DiceExpr{N: 0, M: 1})
	if r.Expr.N != 1 || r.Expr.M != 2 {
		t.Fatalf("expected clamp to 1d2, got %dd%d", r.Expr.N, r.Expr.M)
	}

	r = Roll(rng, DiceExpr{N: 100000, M: 100000})
	if r.Expr.N != MaxDiceCount || r.Expr.M != MaxDiceSides {
		t.Fatalf("expected clamp to %dd%d, got %dd%d", MaxDiceCount, MaxDiceSides, r.Expr.N, r.Expr.M)
	}
	if len(r.Rolls) != MaxDiceCount {
		t.Fatalf("expected %d rolls, got %d", MaxDiceCount, len(r.Rolls))
	}

	sum := 0
	for _, v := range r.Rolls {
		if v < 1 || v > MaxDiceSides {
			t.Fatalf("roll %d out of [1,%d]", v, MaxDiceSides)
		}
		sum += v
	}
	if r.Subtotal != sum || r.Total != sum {
		t.Fatalf("totals inconsistent: subtotal=%d total=%d sum=%d", r.Subtotal, r.Total, sum)
	}
}

func TestDiceCapsExpressions(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	text := strings.Repeat("[1d6] ", MaxExpressions+5)
	lines := Dice(text, rng)
	if len(lines) != MaxExpressions {
		t.Fatalf("expected %d lines, got %d", MaxExpressions, len(lines))
	}
	for _, ln := range lines {
		if !strings.HasPrefix(ln, "[1d6] → ") || !strings.Contains(ln, "총 ") {
			t.Fatalf("unexpected line %q", ln)
		}
	}
}

func TestDiceNoExpressions(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if lines := Dice("no dice here", rng); lines != nil {
		t.Fatalf("expected nil, got %v", lines)
	}
}
