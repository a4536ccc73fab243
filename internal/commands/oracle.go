package commands

import (
	"context"
	"fmt"
	"math/rand"
)

// Oracle answers a yes/no question with a uniform coin flip, addressed with
// the caller's display label. Read-only apart from the runner upsert the
// worker already performed.
func (e Env) Oracle(ctx context.Context, handle string, rng *rand.Rand) (string, error) {
	_, runner, err := e.Repo.GetRunner(ctx, handle)
	if err != nil {
		return "", fmt.Errorf("oracle: runner lookup: %w", err)
	}

	result := "No"
	if rng.Intn(2) == 1 {
		result = "Yes"
	}

	label := BuildUserLabel(handle, runner.Nickname, e.displayMode(ctx))
	return fmt.Sprintf("%s의 결과는 %s 입니다.", label, result), nil
}
