package bot

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"marchbot/internal/commands"
	"marchbot/internal/runtime/supervisor"
	"marchbot/internal/storage"
	"marchbot/internal/store"
	"marchbot/internal/transport"
	logx "marchbot/pkg/logx"
)

// Service owns the pipeline: stream intake → mailbox → worker pool →
// pacer → message sink.
type Service struct {
	cfg     Config
	adapter transport.Adapter
	repo    *store.Repo
	env     commands.Env
	store   storage.Store
	log     logx.Logger

	mu          sync.Mutex
	started     bool
	inbox       *mailbox
	pacer       *Pacer
	sup         *supervisor.Supervisor
	stopWorkers func()
	me          transport.Account
}

func New(cfg Config, adapter transport.Adapter, repo *store.Repo, st storage.Store, log logx.Logger) *Service {
	cfg.normalize()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:     cfg,
		adapter: adapter,
		repo:    repo,
		env:     commands.Env{Repo: repo, Log: log.With(logx.String("component", "commands"))},
		store:   st,
		log:     log,
	}
}

// Start verifies credentials, then brings up the pacer, the worker pool,
// and the stream intake loop under a restarting supervisor.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("bot: already started")
	}

	me, err := s.adapter.Me(ctx)
	if err != nil {
		return err
	}
	s.me = me
	s.log.Info("bot login", logx.String("acct", me.Acct))

	s.inbox = newMailbox(s.cfg.InboxSize, s.cfg.SubmitTimeout)
	s.pacer = NewPacer(s.cfg.GapGlobal, s.cfg.GapPerUser, s.cfg.ResendOnce,
		func(ctx context.Context, inReplyTo, text string) error {
			_, err := s.adapter.PostReply(ctx, inReplyTo, s.cfg.Visibility, text)
			return err
		},
		s.log.With(logx.String("component", "pacer")))

	s.sup = supervisor.New(ctx, supervisor.WithLogger(s.log))

	s.sup.Go("pacer", s.pacer.Run)

	stopCh := make(chan struct{})
	events := s.inbox.Chan()
	for i := 0; i < s.cfg.Workers; i++ {
		idx := i
		rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(idx)))
		s.sup.Go0("worker", func(ctx context.Context) {
			s.worker(ctx, stopCh, events, rng, idx)
		})
	}
	s.stopWorkers = func() { close(stopCh) }

	s.sup.GoRestart("stream", s.streamLoop,
		supervisor.WithRestartBackoff(time.Second, time.Minute),
		supervisor.WithStopOnCleanExit(false))

	s.started = true
	return nil
}

// streamLoop feeds the mailbox from the notification stream. The
// supervisor restarts it with backoff when the stream drops.
func (s *Service) streamLoop(ctx context.Context) error {
	out := make(chan transport.Event, 64)
	sub := supervisor.New(ctx, supervisor.WithCancelOnError(true))
	sub.Go("stream-read", func(ctx context.Context) error {
		return s.adapter.Stream(ctx, out)
	})
	defer sub.Cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sub.Context().Done():
			if err := sub.Err(); err != nil {
				return err
			}
			return errors.New("bot: stream closed")
		case ev := <-out:
			if err := s.inbox.Submit(ev); err != nil {
				acct := ""
				if ev.Status != nil {
					acct = ev.Status.Account.Acct
				}
				s.log.Warn("dropping mention",
					logx.String("acct", acct), logx.Err(err))
			}
		}
	}
}

// Stop shuts the pipeline down: intake first, then workers, then the pacer.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.inbox.Close()
	if s.stopWorkers != nil {
		s.stopWorkers()
		s.stopWorkers = nil
	}
	s.sup.Cancel()
	err := s.sup.Wait(ctx)
	s.started = false
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// PendingReplies reports the pacer backlog, for operator diagnostics.
func (s *Service) PendingReplies() int {
	s.mu.Lock()
	p := s.pacer
	s.mu.Unlock()
	if p == nil {
		return 0
	}
	return p.Pending()
}
