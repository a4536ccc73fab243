package commands

import (
	"context"
	"fmt"

	logx "marchbot/pkg/logx"
)

// participationType is the event-type recorded in the 참여기록 sheet.
const participationType = "확인"

// Confirm grants the event-participation reward once per (notice, handle).
// The dedup check, the grant, and the participation record all run under
// the handle's lock.
func (e Env) Confirm(ctx context.Context, handle string, allowed bool, noticeID string) (string, error) {
	if !allowed {
		return "참여 확인은 지정된 공지에 대한 답글로만 인정됩니다.", nil
	}

	hp := e.Repo.Conf.Int(ctx, "확인_기숙사점수", 1)
	coins := e.Repo.Conf.Int(ctx, "확인_통화", 0)

	mu := e.Repo.LockFor(handle)
	mu.Lock()
	if noticeID != "" {
		dup, err := e.Repo.HasParticipation(ctx, participationType, noticeID, handle)
		if err != nil {
			mu.Unlock()
			return "", fmt.Errorf("confirm: participation lookup: %w", err)
		}
		if dup {
			mu.Unlock()
			return "이미 해당 이벤트의 참여 확인이 되었습니다.", nil
		}
	}
	rowIdx, runner, err := e.Repo.GetRunner(ctx, handle)
	if err != nil {
		mu.Unlock()
		return "", fmt.Errorf("confirm: runner lookup: %w", err)
	}
	if err := e.Repo.UpdateRunnerPoints(ctx, rowIdx, runner.HousePoints+hp); err != nil {
		mu.Unlock()
		return "", fmt.Errorf("confirm: points: %w", err)
	}
	if err := e.Repo.UpdateRunnerLastConfirm(ctx, rowIdx, e.Repo.TodayYMD()); err != nil {
		mu.Unlock()
		return "", fmt.Errorf("confirm: last date: %w", err)
	}
	if coins != 0 {
		if err := e.Repo.AddCurrency(ctx, handle, coins); err != nil {
			e.Log.Warn("confirm currency grant failed",
				logx.String("handle", handle), logx.Err(err))
		}
	}
	if err := e.Repo.AppendParticipation(ctx, participationType, noticeID, handle); err != nil {
		mu.Unlock()
		return "", fmt.Errorf("confirm: participation record: %w", err)
	}
	mu.Unlock()

	label := BuildUserLabel(handle, runner.Nickname, e.displayMode(ctx))
	tail := ""
	if coins != 0 {
		k := e.Repo.Conf.Str(ctx, "통화키", "갈레온")
		tail = fmt.Sprintf(" / %s +%d", k, coins)
	}
	return fmt.Sprintf("%s의 이벤트 참여 확인이 완료되었습니다. 기숙사 점수 +%d%s", label, hp, tail), nil
}
