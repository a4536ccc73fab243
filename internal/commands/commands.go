// Package commands implements the bot's command handlers: dice rolls, the
// yes/no oracle, daily attendance, event participation confirmation, and
// area exploration.
//
// Handlers return the reply text for the user; the caller prepends the
// mention prefix and hands the reply to the pacing scheduler. Handlers that
// mutate per-user state take that user's lock from the repository for the
// whole read-modify-write sequence.
package commands

import (
	"context"

	"marchbot/internal/store"
	logx "marchbot/pkg/logx"
)

// Env carries the dependencies every handler needs.
type Env struct {
	Repo *store.Repo
	Log  logx.Logger
}

// displayMode reads the 아이디_표기 policy (hidden | parens | replace).
func (e Env) displayMode(ctx context.Context) string {
	return lower(e.Repo.Conf.Str(ctx, "아이디_표기", "hidden"))
}
