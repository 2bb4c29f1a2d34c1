// Package broadcast queues outbound fan-out messages and drains them through
// a rate limiter, so admin announcements and daily notifications never trip
// Telegram's flood control.
package broadcast

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"raspbot/internal/metrics"
	logx "raspbot/pkg/logx"
)

// Sender delivers one message to one chat. Implemented by the telegram
// adapter; narrowed so tests can fake it.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

type Config struct {
	Workers    int // default 4
	RatePerSec int // default 20
	RetryMax   int // default 2
}

type job struct {
	id      string
	name    string
	targets []int64
	text    string
}

// JobStatus is a snapshot of one fan-out job's progress.
type JobStatus struct {
	ID        string
	Name      string
	Total     int
	Done      int
	Failed    int
	Failures  []int64
	StartedAt time.Time
	DoneAt    time.Time
	Running   bool
}

type Service struct {
	mu sync.Mutex

	cfg    Config
	sender Sender
	met    *metrics.Metrics
	log    logx.Logger

	limiter *rate.Limiter
	queue   chan job
	stopCh  chan struct{}

	statusMu sync.RWMutex
	status   map[string]*JobStatus
}

func New(cfg Config, sender Sender, met *metrics.Metrics, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:    cfg,
		sender: sender,
		met:    met,
		log:    log,
		status: map[string]*JobStatus{},
	}
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.stopCh != nil {
		s.mu.Unlock()
		return
	}
	workers := s.cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	rps := s.cfg.RatePerSec
	if rps <= 0 {
		rps = 20
	}
	s.limiter = rate.NewLimiter(rate.Limit(rps), rps)

	s.queue = make(chan job, 64)
	s.stopCh = make(chan struct{})
	queue, stopCh := s.queue, s.stopCh
	s.mu.Unlock()

	// Workers hold their own channel references so Stop can rebind the
	// fields without racing the select below.
	for i := 0; i < workers; i++ {
		go s.worker(ctx, queue, stopCh)
	}
	s.log.Info("broadcaster started", logx.Int("workers", workers), logx.Int("rps", rps))
}

func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh == nil {
		return
	}
	close(s.stopCh)
	s.stopCh = nil
	s.queue = nil
	s.log.Info("broadcaster stopped")
}

// Enqueue registers a fan-out job and queues it for delivery. The returned id
// can be polled with Status. Returns false when the service is not running.
func (s *Service) Enqueue(name string, targets []int64, text string) (string, bool) {
	id := fmt.Sprintf("bc:%d", time.Now().UnixNano())
	st := &JobStatus{ID: id, Name: name, Total: len(targets)}
	s.statusMu.Lock()
	s.status[id] = st
	s.statusMu.Unlock()

	s.mu.Lock()
	queue, stopCh := s.queue, s.stopCh
	s.mu.Unlock()
	if queue == nil {
		return id, false
	}
	// Send outside the lock: a full queue must not block the workers, which
	// take the same mutex while draining it.
	select {
	case queue <- job{id: id, name: name, targets: targets, text: text}:
		return id, true
	case <-stopCh:
		return id, false
	}
}

// Send delivers one message through the shared limiter, bypassing the queue.
// Used for time-sensitive single sends like daily notifications.
func (s *Service) Send(ctx context.Context, chatID int64, text string) error {
	return s.sendOne(ctx, chatID, text)
}

func (s *Service) Status(jobID string) (JobStatus, bool) {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	st, ok := s.status[jobID]
	if !ok {
		return JobStatus{}, false
	}
	cp := *st
	cp.Failures = append([]int64(nil), st.Failures...)
	return cp, true
}

func (s *Service) worker(ctx context.Context, queue <-chan job, stopCh <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case j := <-queue:
			s.execJob(ctx, j)
		}
	}
}

func (s *Service) execJob(ctx context.Context, j job) {
	s.setRunning(j.id)
	for _, chatID := range j.targets {
		if err := s.sendOne(ctx, chatID, j.text); err != nil {
			s.markFail(j.id, chatID)
			s.log.Warn("broadcast send failed",
				logx.String("job", j.name), logx.Int64("chat_id", chatID), logx.Err(err))
		}
		s.markDone(j.id)
	}
	s.finish(j.id)
	s.log.Info("broadcast job finished", logx.String("job", j.name), logx.Int("total", len(j.targets)))
}

func (s *Service) sendOne(ctx context.Context, chatID int64, text string) error {
	s.mu.Lock()
	limiter := s.limiter
	retry := s.cfg.RetryMax
	s.mu.Unlock()
	if retry < 0 {
		retry = 0
	}
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var last error
	for i := 0; i <= retry; i++ {
		if err := s.sender.SendText(ctx, chatID, text); err != nil {
			last = err
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(200+100*i) * time.Millisecond):
			}
			continue
		}
		s.met.Send("ok")
		return nil
	}
	s.met.Send("error")
	return last
}

func (s *Service) setRunning(id string) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if st := s.status[id]; st != nil {
		st.StartedAt = time.Now()
		st.Running = true
	}
}

func (s *Service) markDone(id string) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if st := s.status[id]; st != nil {
		st.Done++
	}
}

func (s *Service) markFail(id string, chatID int64) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if st := s.status[id]; st != nil {
		st.Failed++
		if len(st.Failures) < 200 {
			st.Failures = append(st.Failures, chatID)
		}
	}
}

func (s *Service) finish(id string) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if st := s.status[id]; st != nil {
		st.DoneAt = time.Now()
		st.Running = false
	}
}
