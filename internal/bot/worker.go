package bot

import (
	"context"
	"fmt"
	"math/rand"
	"runtime/debug"
	"strings"
	"time"

	"marchbot/internal/commands"
	"marchbot/internal/storage"
	"marchbot/internal/transport"
	logx "marchbot/pkg/logx"
)

// seenTTL bounds how long a handled status id is remembered for reconnect
// dedup.
const seenTTL = 24 * time.Hour

func (s *Service) worker(ctx context.Context, stopCh <-chan struct{}, events <-chan transport.Event, rng *rand.Rand, idx int) {
	for {
		// Fast-exit check so a closed stopCh wins over queued work.
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case ev := <-events:
			s.handleOne(ctx, ev, rng, idx)
		}
	}
}

func (s *Service) handleOne(ctx context.Context, ev transport.Event, rng *rand.Rand, idx int) {
	if ev.Type != transport.EventMention || ev.Status == nil {
		return
	}
	st := ev.Status
	acct := st.Account.Acct
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in worker",
				logx.Int("worker", idx),
				logx.String("acct", acct),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())))
			if st.ID != "" {
				s.pacer.Enqueue(acct, st.ID, s.prefixed(acct, fmt.Sprintf("오류: %v", r)))
			}
		}
	}()

	// Skip mentions already handled before a stream reconnect.
	if s.store != nil {
		if seen, err := s.store.Seen(ctx, st.ID); err == nil && seen {
			s.log.Debug("skipping already-handled mention",
				logx.String("acct", acct), logx.String("status", st.ID))
			return
		}
	}

	// Runner upsert and nickname refresh happen on every mention, command
	// or not, under the user lock since a row may be appended.
	s.refreshRunner(ctx, st)

	text := transport.StripHTML(st.Content)
	kind, arg := classify(text)
	if kind == cmdNone {
		s.markHandled(ctx, st.ID)
		return
	}

	msg, err := s.dispatch(ctx, st, kind, arg, rng)
	queued := false
	if err != nil {
		s.log.Error("handler failed",
			logx.String("acct", acct),
			logx.String("command", kindName(kind)),
			logx.Err(err))
		msg = "오류: 처리 중 문제가 발생했습니다. 잠시 후 다시 시도해주세요."
	}
	if msg != "" && st.ID != "" {
		s.pacer.Enqueue(acct, st.ID, s.prefixed(acct, msg))
		queued = true
	}

	s.markHandled(ctx, st.ID)
	s.audit(ctx, storage.AuditEntry{
		At:          start,
		Handle:      acct,
		Command:     kindName(kind),
		StatusID:    st.ID,
		ReplyQueued: queued,
		OK:          err == nil,
		Error:       errString(err),
		TookMS:      time.Since(start).Milliseconds(),
	})
}

func (s *Service) dispatch(ctx context.Context, st *transport.Status, kind cmdKind, arg string, rng *rand.Rand) (string, error) {
	acct := st.Account.Acct
	switch kind {
	case cmdDice:
		return strings.Join(commands.Dice(arg, rng), "\n"), nil
	case cmdOracle:
		return s.env.Oracle(ctx, acct, rng)
	case cmdAttend:
		allowed, _ := s.allowedReply(ctx, st, "출석")
		return s.env.Attendance(ctx, acct, allowed)
	case cmdExplore:
		return s.env.Explore(ctx, acct, arg, rng)
	case cmdConfirm:
		allowed, root := s.allowedReply(ctx, st, "확인")
		return s.env.Confirm(ctx, acct, allowed, root.ID)
	}
	return "", nil
}

// refreshRunner upserts the runner row and applies the nickname policy
// (닉네임_업데이트: always | missing | never).
func (s *Service) refreshRunner(ctx context.Context, st *transport.Status) {
	acct := st.Account.Acct
	if acct == "" {
		return
	}
	policy := strings.ToLower(strings.TrimSpace(s.repo.Conf.Str(ctx, "닉네임_업데이트", "missing")))
	display := strings.TrimSpace(st.Account.DisplayName)

	mu := s.repo.LockFor(acct)
	mu.Lock()
	defer mu.Unlock()

	rowIdx, runner, err := s.repo.GetRunner(ctx, acct)
	if err != nil {
		s.log.Warn("runner upsert failed", logx.String("acct", acct), logx.Err(err))
		return
	}
	if display == "" {
		return
	}
	update := policy == "always" || (policy == "missing" && strings.TrimSpace(runner.Nickname) == "")
	if !update {
		return
	}
	if err := s.repo.UpdateRunnerNickname(ctx, rowIdx, display); err != nil {
		s.log.Warn("nickname update failed", logx.String("acct", acct), logx.Err(err))
	}
}

func (s *Service) prefixed(acct, msg string) string {
	if acct == "" {
		return msg
	}
	return "@" + acct + " " + msg
}

func (s *Service) markHandled(ctx context.Context, statusID string) {
	if s.store == nil || statusID == "" {
		return
	}
	if err := s.store.MarkSeen(ctx, statusID, time.Now().Add(seenTTL)); err != nil {
		s.log.Debug("mark seen failed", logx.String("status", statusID), logx.Err(err))
	}
}

func (s *Service) audit(ctx context.Context, e storage.AuditEntry) {
	if s.store == nil {
		return
	}
	if err := s.store.AppendAudit(ctx, e); err != nil {
		s.log.Debug("audit append failed", logx.Err(err))
	}
}

func kindName(k cmdKind) string {
	switch k {
	case cmdDice:
		return "dice"
	case cmdOracle:
		return "oracle"
	case cmdAttend:
		return "attendance"
	case cmdExplore:
		return "explore"
	case cmdConfirm:
		return "confirm"
	}
	return "none"
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
