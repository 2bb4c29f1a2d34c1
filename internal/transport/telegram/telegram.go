// Package telegram is the bot's inbound surface: a telebot long-polling
// adapter, the command handlers and the per-user flood guard.
package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"raspbot/internal/broadcast"
	"raspbot/internal/metrics"
	"raspbot/internal/schedule"
	"raspbot/internal/storage"
	logx "raspbot/pkg/logx"
	"raspbot/pkg/tgtext"
)

type Config struct {
	Token        string
	AdminUserIDs []int64
	PollTimeout  time.Duration
	RateMessages int
	RateWindow   time.Duration
	BanDuration  time.Duration
}

type Adapter struct {
	cfg   Config
	log   logx.Logger
	bot   *tele.Bot
	sched *schedule.Service
	store *storage.Store
	met   *metrics.Metrics
	guard *floodGuard

	// set after construction: the broadcaster needs the adapter as its sender.
	out *broadcast.Service

	runMu     sync.Mutex
	running   bool
	runCancel context.CancelFunc
	runWG     sync.WaitGroup
}

func New(cfg Config, sched *schedule.Service, store *storage.Store, met *metrics.Metrics, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	ban := cfg.BanDuration
	if ban <= 0 {
		ban = 5 * time.Minute
	}
	cfg.BanDuration = ban
	return &Adapter{
		cfg:   cfg,
		log:   log,
		bot:   b,
		sched: sched,
		store: store,
		met:   met,
		guard: newFloodGuard(cfg.RateMessages, cfg.RateWindow),
	}, nil
}

// SetBroadcaster attaches the outbound queue once it exists. Must be called
// before Start; the adapter itself is the queue's sender.
func (a *Adapter) SetBroadcaster(out *broadcast.Service) { a.out = out }

// SendText implements broadcast.Sender.
func (a *Adapter) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := a.bot.Send(&tele.Chat{ID: chatID}, text, &tele.SendOptions{DisableWebPagePreview: true})
	return err
}

func (a *Adapter) Start(ctx context.Context) error {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return nil
	}
	a.running = true
	rctx, cancel := context.WithCancel(ctx)
	a.runCancel = cancel
	a.runWG.Add(1)
	a.runMu.Unlock()

	a.bot.Use(a.recoverMW, a.floodMW, a.logMW)
	a.register()

	go func() {
		defer a.runWG.Done()
		go func() {
			<-rctx.Done()
			a.bot.Stop()
		}()
		a.log.Info("polling started")
		a.bot.Start() // blocks until Stop
	}()
	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	cancel := a.runCancel
	a.runCancel = nil
	wasRunning := a.running
	a.running = false
	a.runMu.Unlock()
	if !wasRunning {
		return nil
	}
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		a.runWG.Wait()
		close(done)
	}()

	// Never block shutdown on a pending long-poll.
	grace := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem > 0 && rem < grace {
			grace = rem
		}
	}
	t := time.NewTimer(grace)
	defer t.Stop()

	select {
	case <-done:
		a.log.Info("polling stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		a.log.Warn("telegram stop grace elapsed, continuing shutdown")
		return nil
	}
}

// reply sends handler output, splitting texts over Telegram's message limit.
func (a *Adapter) reply(c tele.Context, text string) error {
	for _, chunk := range tgtext.Split(text, tgtext.MaxMessageLen) {
		if err := c.Send(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) isAdmin(userID int64) bool {
	for _, id := range a.cfg.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
