// Package notify runs the bot's background clock: per-minute delivery of
// daily schedule messages, the nightly cache wipe and ban pruning.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"

	"raspbot/internal/broadcast"
	"raspbot/internal/render"
	"raspbot/internal/schedule"
	"raspbot/internal/storage"
	logx "raspbot/pkg/logx"
)

type Config struct {
	Enabled     bool
	DefaultTime string // "HH:MM"
	Timezone    string // IANA name
}

type Service struct {
	cfg   Config
	sched *schedule.Service
	store *storage.Store
	out   *broadcast.Service
	log   logx.Logger

	loc *time.Location
	c   *cron.Cron
}

func New(cfg Config, sched *schedule.Service, store *storage.Store, out *broadcast.Service, log logx.Logger) *Service {
	if cfg.DefaultTime == "" {
		cfg.DefaultTime = "08:00"
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil || cfg.Timezone == "" {
		if cfg.Timezone != "" {
			log.Warn("unknown timezone, using UTC", logx.String("tz", cfg.Timezone), logx.Err(err))
		}
		loc = time.UTC
	}
	return &Service{cfg: cfg, sched: sched, store: store, out: out, log: log, loc: loc}
}

// Start registers the cron jobs and launches the scheduler. The notify sweep
// only runs when enabled; maintenance jobs always run.
func (s *Service) Start(ctx context.Context) error {
	if s.c != nil {
		return nil
	}
	s.c = cron.New(cron.WithLocation(s.loc))

	// Just past midnight so date-keyed cache entries never straddle days.
	if _, err := s.c.AddFunc("1 0 * * *", func() { s.sched.ClearCache() }); err != nil {
		return err
	}
	if _, err := s.c.AddFunc("0 3 * * *", func() { s.pruneBans(ctx) }); err != nil {
		return err
	}
	if s.cfg.Enabled {
		if _, err := s.c.AddFunc("* * * * *", func() { s.sweep(ctx) }); err != nil {
			return err
		}
	}

	s.c.Start()
	s.log.Info("notify scheduler started",
		logx.Bool("daily_notify", s.cfg.Enabled), logx.String("tz", s.loc.String()))
	return nil
}

func (s *Service) Stop() {
	if s.c == nil {
		return
	}
	<-s.c.Stop().Done()
	s.c = nil
	s.log.Info("notify scheduler stopped")
}

func (s *Service) pruneBans(ctx context.Context) {
	n, err := s.store.PruneBans(ctx, time.Now())
	if err != nil && !errors.Is(err, storage.ErrDisabled) {
		s.log.Warn("ban prune failed", logx.Err(err))
		return
	}
	if n > 0 {
		s.log.Info("expired bans pruned", logx.Int64("count", n))
	}
}

// sweep sends the daily schedule to every user whose notification time
// matches the current minute.
func (s *Service) sweep(ctx context.Context) {
	now := time.Now().In(s.loc)
	s.sweepAt(ctx, now)
}

func (s *Service) sweepAt(ctx context.Context, now time.Time) {
	users, err := s.store.NotifiableUsers(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrDisabled) {
			s.log.Warn("notifiable user list failed", logx.Err(err))
		}
		return
	}

	clock := now.Format("15:04")
	for _, u := range users {
		at := u.NotifyTime
		if at == "" {
			at = s.cfg.DefaultTime
		}
		if at != clock {
			continue
		}
		s.deliver(ctx, u, now)
	}
}

func (s *Service) deliver(ctx context.Context, u storage.User, now time.Time) {
	ref := schedule.EntityRef{Kind: schedule.KindGroup, ID: u.Group}
	day, err := s.sched.Day(ctx, ref, now, false)
	if err != nil {
		s.log.Warn("daily notification skipped, schedule unavailable",
			logx.Int64("user_id", u.UserID), logx.String("group", u.Group), logx.Err(err))
		return
	}
	text := "🔔 Расписание на сегодня\n\n" + render.Day(day)
	if err := s.out.Send(ctx, u.UserID, text); err != nil {
		s.log.Warn("daily notification send failed", logx.Int64("user_id", u.UserID), logx.Err(err))
		return
	}
	s.log.Debug("daily notification sent", logx.Int64("user_id", u.UserID), logx.String("group", u.Group))
}
