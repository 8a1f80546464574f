package main

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/zulandar/outreach/internal/config"
	"github.com/zulandar/outreach/internal/db"
	"github.com/zulandar/outreach/internal/dispatch"
	"github.com/zulandar/outreach/internal/logx"
	"github.com/zulandar/outreach/internal/notify"
	"github.com/zulandar/outreach/internal/progress"
	"github.com/zulandar/outreach/internal/runner"
	"github.com/zulandar/outreach/internal/schedule"
	"github.com/zulandar/outreach/internal/store"
	"gorm.io/gorm"
)

func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s database: %w", cfg.Database.Driver, err)
	}
	return cfg, gormDB, nil
}

// app is the wired scheduler: one store, hub, registry and coordinator.
type app struct {
	cfg   *config.Config
	store *store.Store
	hub   *progress.Hub
	coord *runner.Coordinator
	log   zerolog.Logger
}

func newApp(cfg *config.Config, gormDB *gorm.DB, logOut io.Writer) (*app, error) {
	log := logx.New(cfg.Log, logOut)

	start, end, err := cfg.WindowBounds()
	if err != nil {
		return nil, fmt.Errorf("window: %w", err)
	}
	notifier, err := buildNotifier(cfg.Notify)
	if err != nil {
		return nil, err
	}

	st := store.New(gormDB)
	hub := progress.NewHub(progress.HubOpts{
		BufferSize: cfg.Progress.BufferSize,
		Logger:     log.With().Str("component", "progress").Logger(),
	})
	gateway := dispatch.NewGateway(dispatch.GatewayOpts{
		Timeout: time.Duration(cfg.Dispatch.TimeoutSec) * time.Second,
	})

	opts := runner.Options{
		Store:             st,
		Hub:               hub,
		Registry:          runner.NewRegistry(cfg.PollInterval()),
		Dispatcher:        dispatch.RateLimited(gateway, cfg.Dispatch.RatePerSec, 1),
		Window:            schedule.Window{Start: start, End: end},
		DefaultDailyLimit: cfg.Scheduler.DefaultDailyLimit,
		BatchSize:         cfg.Scheduler.BatchSize,
		Logger:            log.With().Str("component", "runner").Logger(),
	}
	// An empty Multi in the interface would still be a non-nil Notifier.
	if len(notifier) > 0 {
		opts.Notifier = notifier
	}

	return &app{
		cfg:   cfg,
		store: st,
		hub:   hub,
		coord: runner.New(opts),
		log:   log,
	}, nil
}

// buildNotifier returns the enabled summary sinks, or nil when none are.
func buildNotifier(cfg config.NotifyConfig) (notify.Multi, error) {
	var sinks notify.Multi
	if cfg.Slack.Enabled {
		s, err := notify.NewSlack(notify.SlackOpts{BotToken: cfg.Slack.BotToken, ChannelID: cfg.Slack.ChannelID})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.Discord.Enabled {
		d, err := notify.NewDiscord(notify.DiscordOpts{BotToken: cfg.Discord.BotToken, ChannelID: cfg.Discord.ChannelID})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, d)
	}
	return sinks, nil
}
