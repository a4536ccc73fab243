package bot

import (
	"context"
	"strings"

	"marchbot/internal/transport"
)

// threadRoot follows the reply chain upward until a non-reply status or the
// hop limit. Lookup failures stop the walk and keep the furthest status
// reached.
func (s *Service) threadRoot(ctx context.Context, st *transport.Status) *transport.Status {
	root := st
	for hops := 0; root.InReplyToID != "" && hops < s.cfg.ThreadHopLimit; hops++ {
		parent, err := s.adapter.GetStatus(ctx, root.InReplyToID)
		if err != nil {
			break
		}
		root = parent
	}
	return root
}

// allowedReply gates attendance and confirmation to replies inside a
// designated announcement thread. purpose is "출석" or "확인".
//
// The action is allowed when the status is a direct reply to the explicitly
// configured notice id, when nothing is configured at all, or when the
// thread root passes the sender allow-list and the required keyword (both
// must hold when both are set).
func (s *Service) allowedReply(ctx context.Context, st *transport.Status, purpose string) (bool, *transport.Status) {
	root := s.threadRoot(ctx, st)

	explicitID := strings.TrimSpace(s.repo.Conf.Str(ctx, purpose+"_허용_상태ID", ""))
	if explicitID != "" && explicitID != "0" && st.InReplyToID == explicitID {
		return true, root
	}

	var senders []string
	for _, a := range strings.Split(s.repo.Conf.Str(ctx, "공지_발신자_허용", ""), ",") {
		if a = strings.TrimSpace(a); a != "" {
			senders = append(senders, a)
		}
	}
	kw := strings.TrimSpace(s.repo.Conf.Str(ctx, purpose+"_공지_키워드", ""))

	if len(senders) == 0 && kw == "" && (explicitID == "" || explicitID == "0") {
		return true, root
	}

	acctOK := len(senders) == 0
	for _, a := range senders {
		if a == root.Account.Acct {
			acctOK = true
			break
		}
	}
	kwOK := kw == "" || strings.Contains(transport.StripHTML(root.Content), kw)

	return acctOK && kwOK, root
}
