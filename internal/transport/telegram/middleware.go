package telegram

import (
	"context"
	"errors"
	"runtime/debug"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"raspbot/internal/storage"
	logx "raspbot/pkg/logx"
)

func (a *Adapter) recoverMW(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				a.log.Error("panic in handler",
					logx.Any("panic", r),
					logx.String("stack", string(debug.Stack())),
				)
				err = nil
			}
		}()
		return next(c)
	}
}

// floodMW drops updates from banned users and converts sustained flooding
// into a storage-backed temp ban.
func (a *Adapter) floodMW(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		sender := c.Sender()
		if sender == nil {
			return next(c)
		}
		ctx := context.Background()

		until, banned, err := a.store.GetBan(ctx, sender.ID)
		if err != nil && !errors.Is(err, storage.ErrDisabled) {
			a.log.Warn("ban lookup failed", logx.Err(err))
		}
		if banned && time.Now().Before(until) {
			return nil // silently ignore while the ban lasts
		}

		if !a.guard.Allow(sender.ID) {
			until := time.Now().Add(a.cfg.BanDuration)
			if err := a.store.PutBan(ctx, sender.ID, until); err != nil && !errors.Is(err, storage.ErrDisabled) {
				a.log.Warn("ban store failed", logx.Err(err))
			}
			a.log.Info("user rate-limited",
				logx.Int64("user_id", sender.ID), logx.Time("until", until))
			return c.Send("⛔ Слишком много запросов. Попробуй позже.")
		}
		return next(c)
	}
}

func (a *Adapter) logMW(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		start := time.Now()
		a.met.Update("message")

		err := next(c)
		d := time.Since(start)

		cmd := c.Text()
		if i := strings.IndexByte(cmd, ' '); i > 0 {
			cmd = cmd[:i]
		}
		fields := []logx.Field{
			logx.String("cmd", cmd),
			logx.Int64("chat_id", c.Chat().ID),
			logx.Duration("dur", d),
		}
		if s := c.Sender(); s != nil {
			fields = append(fields, logx.Int64("from_id", s.ID))
		}
		if err != nil {
			a.log.Warn("request failed", append(fields, logx.Err(err))...)
		} else if d >= 750*time.Millisecond {
			a.log.Info("request ok", fields...)
		} else {
			a.log.Debug("request ok", fields...)
		}
		return err
	}
}
