// Package app wires the bot together: config, logging, storage, upstream
// client, schedule service, delivery and the telegram transport.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"raspbot/internal/broadcast"
	"raspbot/internal/config"
	"raspbot/internal/metrics"
	"raspbot/internal/notify"
	"raspbot/internal/raspyx"
	"raspbot/internal/schedcache"
	"raspbot/internal/schedule"
	"raspbot/internal/storage"
	telegram "raspbot/internal/transport/telegram"
	logx "raspbot/pkg/logx"
)

type App struct {
	cfgPath string
	cfg     *config.Config

	logSvc *logx.Service
	log    logx.Logger

	store   *storage.Store
	sched   *schedule.Service
	adapter *telegram.Adapter
	out     *broadcast.Service
	cron    *notify.Service
	metSrv  *metrics.Server

	stopWatch context.CancelFunc
}

func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.ConsoleEnabled(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	a := &App{cfgPath: cfgPath, cfg: cfg, logSvc: logSvc, log: log}
	if err := a.build(); err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build() error {
	cfg := a.cfg

	store, err := storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: durOrZero(cfg.Storage.BusyTimeout),
	}, a.log.With(logx.String("comp", "storage")))
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	a.store = store
	if store == nil {
		a.log.Warn("storage disabled, registrations and notifications will not persist")
	}

	api, err := raspyx.New(raspyx.Config{
		BaseURL:  cfg.Raspyx.BaseURL,
		Username: cfg.Raspyx.Username,
		Password: cfg.Raspyx.Password,
		Timeout:  cfg.RaspyxTimeout(),
	}, a.log.With(logx.String("comp", "raspyx")))
	if err != nil {
		return fmt.Errorf("raspyx: %w", err)
	}

	var met *metrics.Metrics
	if cfg.Metrics.Enabled {
		met = metrics.New()
		a.metSrv = metrics.NewServer(cfg.MetricsAddr(), met, a.log.With(logx.String("comp", "metrics")))
	}

	a.sched = schedule.New(api, schedcache.New(), store, met, schedule.Config{
		MaxPeriodDays: cfg.MaxPeriodDays(),
	}, a.log.With(logx.String("comp", "schedule")))

	adapter, err := telegram.New(telegram.Config{
		Token:        cfg.Telegram.Token,
		AdminUserIDs: cfg.Telegram.AdminUserIDs,
		PollTimeout:  cfg.PollTimeout(),
		RateMessages: cfg.RateLimitMessages(),
		RateWindow:   cfg.RateLimitWindow(),
		BanDuration:  cfg.BanDuration(),
	}, a.sched, store, met, a.log.With(logx.String("comp", "telegram")))
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	a.adapter = adapter

	a.out = broadcast.New(broadcast.Config{
		RatePerSec: cfg.BroadcastRate(),
		RetryMax:   cfg.BroadcastRetryMax(),
	}, adapter, met, a.log.With(logx.String("comp", "broadcast")))
	adapter.SetBroadcaster(a.out)

	a.cron = notify.New(notify.Config{
		Enabled:     cfg.Notify.Enabled,
		DefaultTime: cfg.NotifyDefaultTime(),
		Timezone:    cfg.NotifyTimezone(),
	}, a.sched, store, a.out, a.log.With(logx.String("comp", "notify")))

	return nil
}

func (a *App) Start(ctx context.Context) error {
	if a.metSrv != nil {
		a.metSrv.Start()
	}
	a.out.Start(ctx)
	if err := a.cron.Start(ctx); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	if err := a.adapter.Start(ctx); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	wctx, cancel := context.WithCancel(ctx)
	a.stopWatch = cancel
	if err := config.Watch(wctx, a.cfgPath, a.log, a.onConfigChange); err != nil {
		a.log.Warn("config watch unavailable", logx.Err(err))
	}

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn("sd_notify failed", logx.Err(err))
	} else if sent {
		a.log.Debug("systemd readiness notified")
	}

	a.log.Info("bot started")
	return nil
}

// onConfigChange applies the hot-swappable part of a config reload. Anything
// needing a reconnect (token, storage path) takes a restart.
func (a *App) onConfigChange(cfg *config.Config) {
	a.logSvc.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.ConsoleEnabled(),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	a.log.Info("logging config reloaded", logx.String("level", cfg.Logging.Level))
}

func (a *App) Stop(ctx context.Context) error {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		a.log.Debug("sd_notify stopping failed", logx.Err(err))
	}
	if a.stopWatch != nil {
		a.stopWatch()
	}

	err := a.adapter.Stop(ctx)
	a.cron.Stop()
	a.out.Stop()
	if a.metSrv != nil {
		sctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_ = a.metSrv.Stop(sctx)
		cancel()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	a.log.Info("bot stopped")
	_ = a.logSvc.Close()
	return err
}

func durOrZero(raw string) time.Duration {
	d, err := config.ParseDurationOrDefault("storage.busy_timeout", raw, 0)
	if err != nil {
		return 0
	}
	return d
}
