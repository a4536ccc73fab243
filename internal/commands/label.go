package commands

import "strings"

// BuildUserLabel renders how a runner is addressed in replies.
//
// mode: hidden or replace (nickname, falling back to handle), parens
// (nickname with the handle in parentheses).
func BuildUserLabel(handle, nickname, mode string) string {
	nn := strings.TrimSpace(nickname)
	switch mode {
	case "parens":
		if nn != "" {
			return nn + "(@" + handle + ")"
		}
		return "@" + handle
	default: // hidden, replace
		if nn != "" {
			return nn
		}
		return handle
	}
}

func lower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
