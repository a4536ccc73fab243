package bot

import (
	"regexp"
	"strings"
)

// Command classification for one mention.
type cmdKind int

const (
	cmdNone cmdKind = iota
	cmdDice
	cmdOracle
	cmdAttend
	cmdExplore
	cmdConfirm
)

var (
	cmdRE       = regexp.MustCompile(`\[(.*?)\]`)
	diceAnyRE   = regexp.MustCompile(`\[\s*\d+[dD]\d+(?:\s*[+-]\s*\d+)?\s*\]`)
	ynAnyRE     = regexp.MustCompile(`(?i)\[\s*YN\s*\]|\bYN\b`)
	diceTokenRE = regexp.MustCompile(`^\d+[dD]\d+(?:\s*[+-]\s*\d+)?$`)
)

// classify decides which handler owns a mention's plain text.
//
// Order matters: any NdM expression anywhere wins, then a YN trigger
// (bracketed or bare, case-insensitive), then the first bracketed token is
// matched against the fixed vocabulary. Unknown tokens get no reply.
func classify(text string) (cmdKind, string) {
	if diceAnyRE.MatchString(text) {
		return cmdDice, text
	}
	if ynAnyRE.MatchString(text) {
		return cmdOracle, ""
	}

	m := cmdRE.FindStringSubmatch(text)
	if m == nil {
		return cmdNone, ""
	}
	tok := strings.TrimSpace(m[1])
	switch {
	case diceTokenRE.MatchString(tok):
		return cmdDice, "[" + tok + "]"
	case strings.EqualFold(tok, "yn"):
		return cmdOracle, ""
	case tok == "출석":
		return cmdAttend, ""
	case strings.HasPrefix(tok, "탐색/"):
		return cmdExplore, strings.TrimSpace(tok[len("탐색/"):])
	case tok == "참여 확인":
		return cmdConfirm, ""
	}
	return cmdNone, ""
}
