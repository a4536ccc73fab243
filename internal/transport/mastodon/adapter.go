package mastodon

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mast "github.com/mattn/go-mastodon"
	"golang.org/x/time/rate"

	"marchbot/internal/transport"
	logx "marchbot/pkg/logx"
)

type Config struct {
	Server      string
	AccessToken string

	// RatePerSec bounds REST calls (status fetches, posts). Streaming is not
	// counted against it.
	RatePerSec int
}

var ErrStreamClosed = errors.New("mastodon: event stream closed")

// Adapter implements transport.Adapter on top of the Mastodon REST and
// streaming APIs.
type Adapter struct {
	cfg     Config
	log     logx.Logger
	client  *mast.Client
	limiter *rate.Limiter
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Server) == "" {
		return nil, errors.New("mastodon server is empty")
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errors.New("mastodon access token is empty")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 2
	}
	c := mast.NewClient(&mast.Config{
		Server:      cfg.Server,
		AccessToken: cfg.AccessToken,
	})
	return &Adapter{
		cfg:     cfg,
		log:     log,
		client:  c,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

func (a *Adapter) Me(ctx context.Context) (transport.Account, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return transport.Account{}, err
	}
	acct, err := a.client.GetAccountCurrentUser(ctx)
	if err != nil {
		return transport.Account{}, fmt.Errorf("verify credentials: %w", err)
	}
	return convAccount(acct), nil
}

func (a *Adapter) GetStatus(ctx context.Context, id string) (*transport.Status, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	st, err := a.client.GetStatus(ctx, mast.ID(id))
	if err != nil {
		return nil, err
	}
	return convStatus(st), nil
}

func (a *Adapter) PostReply(ctx context.Context, inReplyTo, visibility, text string) (string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return "", err
	}
	toot := &mast.Toot{
		Status:     text,
		Visibility: visibility,
	}
	if inReplyTo != "" {
		toot.InReplyToID = mast.ID(inReplyTo)
	}
	st, err := a.client.PostStatus(ctx, toot)
	if err != nil {
		return "", err
	}
	return string(st.ID), nil
}

// Stream forwards user-stream notifications to out. It blocks until ctx is
// canceled or the underlying event channel closes; a close is reported as
// ErrStreamClosed so the supervisor restarts the stream with backoff.
func (a *Adapter) Stream(ctx context.Context, out chan<- transport.Event) error {
	ch, err := a.client.StreamingUser(ctx)
	if err != nil {
		return fmt.Errorf("open user stream: %w", err)
	}
	a.log.Info("user stream opened", logx.String("server", a.cfg.Server))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return ErrStreamClosed
			}
			switch e := ev.(type) {
			case *mast.NotificationEvent:
				if e.Notification == nil {
					continue
				}
				te := transport.Event{Type: e.Notification.Type}
				if e.Notification.Status != nil {
					te.Status = convStatus(e.Notification.Status)
				}
				select {
				case out <- te:
				case <-ctx.Done():
					return ctx.Err()
				}
			case *mast.ErrorEvent:
				// The client retries internally; surface the error for operators.
				a.log.Warn("stream error event", logx.String("err", e.Error()))
			default:
				// UpdateEvent / DeleteEvent etc. are not our input.
			}
		}
	}
}

func convAccount(a *mast.Account) transport.Account {
	if a == nil {
		return transport.Account{}
	}
	return transport.Account{
		ID:          string(a.ID),
		Acct:        a.Acct,
		DisplayName: a.DisplayName,
	}
}

func convStatus(s *mast.Status) *transport.Status {
	if s == nil {
		return nil
	}
	return &transport.Status{
		ID:          string(s.ID),
		InReplyToID: idString(s.InReplyToID),
		Account:     convAccount(&s.Account),
		Content:     s.Content,
		Visibility:  s.Visibility,
	}
}

// idString normalizes the loosely typed in_reply_to_id field
// (string, number, or null depending on server and decoder).
func idString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case mast.ID:
		return string(x)
	case float64:
		return fmt.Sprintf("%.0f", x)
	case int64:
		return fmt.Sprintf("%d", x)
	default:
		s := fmt.Sprint(x)
		if s == "<nil>" {
			return ""
		}
		return s
	}
}

// interface guard
var _ transport.Adapter = (*Adapter)(nil)
