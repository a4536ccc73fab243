package commands

import (
	"context"
	"fmt"

	logx "marchbot/pkg/logx"
)

// Attendance grants the daily check-in reward. allowed reflects the
// allowed-reply window decision made by the caller. At most one grant per
// handle per calendar day; the date check and both writes run under the
// handle's lock.
func (e Env) Attendance(ctx context.Context, handle string, allowed bool) (string, error) {
	if !allowed {
		return "출석은 지정된 공지에 대한 답글로만 인정됩니다.", nil
	}

	today := e.Repo.TodayYMD()
	hp := e.Repo.Conf.Int(ctx, "출석_기숙사점수", 1)
	coins := e.Repo.Conf.Int(ctx, "출석_통화", 0)

	mu := e.Repo.LockFor(handle)
	mu.Lock()
	rowIdx, runner, err := e.Repo.GetRunner(ctx, handle)
	if err != nil {
		mu.Unlock()
		return "", fmt.Errorf("attendance: runner lookup: %w", err)
	}
	if runner.LastAttendDate == today {
		mu.Unlock()
		return "이미 오늘 출석했습니다.", nil
	}
	if err := e.Repo.UpdateRunnerPoints(ctx, rowIdx, runner.HousePoints+hp); err != nil {
		mu.Unlock()
		return "", fmt.Errorf("attendance: points: %w", err)
	}
	if err := e.Repo.UpdateRunnerLastAttend(ctx, rowIdx, today); err != nil {
		mu.Unlock()
		return "", fmt.Errorf("attendance: last date: %w", err)
	}
	if coins != 0 {
		if err := e.Repo.AddCurrency(ctx, handle, coins); err != nil {
			// Points are already granted; report the partial failure and move on.
			e.Log.Warn("attendance currency grant failed",
				logx.String("handle", handle), logx.Err(err))
		}
	}
	mu.Unlock()

	label := BuildUserLabel(handle, runner.Nickname, e.displayMode(ctx))
	tail := ""
	if coins != 0 {
		k := e.Repo.Conf.Str(ctx, "통화키", "갈레온")
		tail = fmt.Sprintf(" / %s +%d", k, coins)
	}
	return fmt.Sprintf("%s의 출석이 완료되었습니다. 기숙사 점수 +%d%s", label, hp, tail), nil
}
