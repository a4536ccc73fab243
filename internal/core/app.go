// Package core wires the process together: config manager, logging
// service, transport adapter, spreadsheet repository, local storage, the
// bot pipeline, and the periodic jobs.
package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"marchbot/internal/bot"
	"marchbot/internal/config"
	"marchbot/internal/runtime/supervisor"
	"marchbot/internal/storage"
	"marchbot/internal/store"
	"marchbot/internal/transport/mastodon"
	logx "marchbot/pkg/logx"
)

type App struct {
	cfgm *config.Manager

	log  logx.Logger
	logs *logx.Service

	adapter *mastodon.Adapter
	sheets  *store.SheetsClient
	conf    *store.ConfigCache
	repo    *store.Repo
	store   storage.Store
	bot     *bot.Service
	jobs    *cron.Cron

	retainDays int

	sup   *supervisor.Supervisor
	cfgCh chan *config.Config
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	ad, err := mastodon.New(mastodon.Config{
		Server:      cfg.Mastodon.Server,
		AccessToken: cfg.Mastodon.AccessToken,
		RatePerSec:  cfg.Mastodon.RatePerSec,
	}, log.With(logx.String("comp", "mastodon")))
	if err != nil {
		return nil, err
	}

	cacheTTL, err := config.ParseDurationOrDefault("sheets.cache_ttl", cfg.Sheets.CacheTTL, 3*time.Second)
	if err != nil {
		return nil, err
	}
	configTTL, err := config.ParseDurationOrDefault("sheets.config_ttl", cfg.Sheets.ConfigTTL, 30*time.Minute)
	if err != nil {
		return nil, err
	}
	retryBase, err := config.ParseDurationOrDefault("sheets.retry_base", cfg.Sheets.RetryBase, 500*time.Millisecond)
	if err != nil {
		return nil, err
	}

	sheets, err := store.NewSheetsClient(context.Background(), store.SheetsConfig{
		SpreadsheetID:    cfg.Sheets.Spreadsheet,
		BagSpreadsheetID: cfg.Sheets.BagSpreadsheet,
		BagWorksheet:     cfg.Sheets.Worksheets.Bag,
		CredentialsFile:  cfg.Sheets.CredentialsFile,
		CacheTTL:         cacheTTL,
		Retry:            store.BackoffPolicy{Attempts: cfg.Sheets.RetryMax, Base: retryBase},
	}, log.With(logx.String("comp", "sheets")))
	if err != nil {
		return nil, err
	}

	conf := store.NewConfigCache(sheets, cfg.Sheets.Worksheets.Config, configTTL)

	tz, err := time.LoadLocation(cfg.Bot.Timezone)
	if err != nil {
		return nil, fmt.Errorf("bot.timezone: invalid %q: %w", cfg.Bot.Timezone, err)
	}

	repo := store.NewRepo(sheets, conf, store.Worksheets{
		Runner:        cfg.Sheets.Worksheets.Runner,
		Limits:        cfg.Sheets.Worksheets.Limits,
		Explore:       cfg.Sheets.Worksheets.Explore,
		Session:       cfg.Sheets.Worksheets.Session,
		Participation: cfg.Sheets.Worksheets.Participation,
		Config:        cfg.Sheets.Worksheets.Config,
		Bag:           cfg.Sheets.Worksheets.Bag,
	}, cfg.Sheets.UserColumnStyle, cfg.Sheets.BagSpreadsheet != "", tz)

	// Storage (optional)
	var st storage.Store
	retainDays := 0
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err = storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		retainDays = sc.RetainDays
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	botCfg, err := mapBotConfig(cfg)
	if err != nil {
		return nil, err
	}
	botSvc := bot.New(botCfg, ad, repo, st, log.With(logx.String("comp", "bot")))

	return &App{
		cfgm:       cfgm,
		log:        log,
		logs:       logSvc,
		adapter:    ad,
		sheets:     sheets,
		conf:       conf,
		repo:       repo,
		store:      st,
		bot:        botSvc,
		jobs:       cron.New(cron.WithLocation(tz)),
		retainDays: retainDays,
	}, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(validateConfig)

	// Hot-reload only touches what is safe to change live: log level/sinks.
	// Transport credentials and pool sizes need a restart.
	a.cfgCh = a.cfgm.Subscribe(4)
	a.sup.Go0("config-apply", func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case cfg, ok := <-a.cfgCh:
				if !ok {
					return
				}
				a.logs.Apply(logx.Config{
					Level:   cfg.Logging.Level,
					Console: cfg.Logging.Console,
					File: logx.FileConfig{
						Enabled: cfg.Logging.File.Enabled,
						Path:    cfg.Logging.File.Path,
					},
				})
				a.log.Info("config applied", logx.String("level", cfg.Logging.Level))
			}
		}
	})

	a.sup.GoRestart("config-watch", a.cfgm.Watch)

	if err := a.bot.Start(a.sup.Context()); err != nil {
		return err
	}

	cfg := a.cfgm.Get()
	if spec := strings.TrimSpace(cfg.Sheets.ConfigReload); spec != "" {
		if _, err := a.jobs.AddFunc(spec, func() {
			a.conf.Invalidate()
			a.log.Info("sheet config cache invalidated (periodic)")
		}); err != nil {
			return fmt.Errorf("sheets.config_reload: %w", err)
		}
	}
	if a.store != nil && a.retainDays > 0 {
		if _, err := a.jobs.AddFunc("@daily", func() {
			cutoff := time.Now().AddDate(0, 0, -a.retainDays)
			pctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := a.store.Prune(pctx, cutoff); err != nil {
				a.log.Warn("audit prune failed", logx.Err(err))
			}
		}); err != nil {
			return err
		}
	}
	a.jobs.Start()

	a.log.Info("app started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.jobs != nil {
		stopped := a.jobs.Stop()
		select {
		case <-stopped.Done():
		case <-ctx.Done():
		}
	}
	if a.bot != nil {
		if err := a.bot.Stop(ctx); err != nil {
			a.log.Warn("bot stop", logx.Err(err))
		}
	}
	if a.sup != nil {
		a.sup.Cancel()
		_ = a.sup.Wait(ctx)
	}
	if a.cfgCh != nil {
		a.cfgm.Unsubscribe(a.cfgCh)
		a.cfgCh = nil
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

func mapBotConfig(cfg *config.Config) (bot.Config, error) {
	submit, err := config.ParseDurationOrDefault("bot.submit_timeout", cfg.Bot.SubmitTimeout, time.Second)
	if err != nil {
		return bot.Config{}, err
	}
	gapGlobal, err := config.ParseDurationOrDefault("bot.gap_global", cfg.Bot.GapGlobal, 8*time.Second)
	if err != nil {
		return bot.Config{}, err
	}
	gapPerUser, err := config.ParseDurationOrDefault("bot.gap_per_user", cfg.Bot.GapPerUser, 8*time.Second)
	if err != nil {
		return bot.Config{}, err
	}
	return bot.Config{
		Workers:        cfg.Bot.Workers,
		InboxSize:      cfg.Bot.InboxSize,
		SubmitTimeout:  submit,
		GapGlobal:      gapGlobal,
		GapPerUser:     gapPerUser,
		ResendOnce:     cfg.Bot.ResendOnce,
		ThreadHopLimit: cfg.Bot.ThreadHopLimit,
		Visibility:     cfg.Mastodon.Visibility,
	}, nil
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 0)
	if err != nil {
		return storage.Config{}, false, err
	}
	if cfg.Storage.RetainDays < 0 {
		return storage.Config{}, false, fmt.Errorf("storage.retain_days must be >= 0")
	}
	return storage.Config{
		Driver:      driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
		RetainDays:  cfg.Storage.RetainDays,
	}, true, nil
}

func validateConfig(_ context.Context, cfg *config.Config) error {
	if strings.TrimSpace(cfg.Mastodon.Server) == "" {
		return fmt.Errorf("mastodon.server is required")
	}
	if strings.TrimSpace(cfg.Mastodon.AccessToken) == "" {
		return fmt.Errorf("mastodon.access_token is required")
	}
	if strings.TrimSpace(cfg.Sheets.Spreadsheet) == "" {
		return fmt.Errorf("sheets.spreadsheet is required")
	}

	for _, d := range []struct{ path, raw string }{
		{"sheets.cache_ttl", cfg.Sheets.CacheTTL},
		{"sheets.config_ttl", cfg.Sheets.ConfigTTL},
		{"sheets.retry_base", cfg.Sheets.RetryBase},
		{"bot.submit_timeout", cfg.Bot.SubmitTimeout},
		{"bot.gap_global", cfg.Bot.GapGlobal},
		{"bot.gap_per_user", cfg.Bot.GapPerUser},
	} {
		if _, err := config.ParseDurationField(d.path, d.raw); err != nil {
			return err
		}
	}

	if spec := strings.TrimSpace(cfg.Sheets.ConfigReload); spec != "" {
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("sheets.config_reload: invalid spec %q: %w", spec, err)
		}
	}
	if tz := strings.TrimSpace(cfg.Bot.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("bot.timezone: invalid %q: %w", tz, err)
		}
	}
	if _, _, err := mapStorageConfig(cfg); err != nil {
		return err
	}
	return nil
}
