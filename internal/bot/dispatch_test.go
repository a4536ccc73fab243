package bot

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		text string
		kind cmdKind
		arg  string
	}{
		{"dice anywhere", "please roll [3d6+2] for me", cmdDice, "please roll [3d6+2] for me"},
		{"dice beats later vocab", "[2d10] and [출석]", cmdDice, "[2d10] and [출석]"},
		{"yn bracketed", "[YN]", cmdOracle, ""},
		{"yn lowercase bare", "will it rain yn", cmdOracle, ""},
		{"yn inside brackets spaced", "[ yn ]", cmdOracle, ""},
		{"attendance", "[출석]", cmdAttend, ""},
		{"confirm", "[참여 확인]", cmdConfirm, ""},
		{"explore", "[탐색/숲/동굴]", cmdExplore, "숲/동굴"},
		{"explore root", "[탐색/루트]", cmdExplore, "루트"},
		{"dice token via vocab path", "[1D10+2]", cmdDice, "[1D10+2]"},
		{"unknown token", "[도움말]", cmdNone, ""},
		{"no brackets", "hello there", cmdNone, ""},
		{"first token wins", "[도움말] [출석]", cmdNone, ""},
		{"explore without slash is unknown", "[탐색]", cmdNone, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind, arg := classify(tc.text)
			if kind != tc.kind || arg != tc.arg {
				t.Fatalf("classify(%q) = (%v, %q), want (%v, %q)", tc.text, kind, arg, tc.kind, tc.arg)
			}
		})
	}
}
