package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	logx "raspbot/pkg/logx"
)

type fakeSender struct {
	mu    sync.Mutex
	sent  []int64
	fails map[int64]int // remaining failures per chat
}

func (f *fakeSender) SendText(ctx context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails[chatID] > 0 {
		f.fails[chatID]--
		return errors.New("telegram: 429")
	}
	f.sent = append(f.sent, chatID)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func waitStatus(t *testing.T, s *Service, id string, pred func(JobStatus) bool) JobStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st, ok := s.Status(id)
		if ok && pred(st) {
			return st
		}
		time.Sleep(10 * time.Millisecond)
	}
	st, _ := s.Status(id)
	t.Fatalf("status condition not reached, last: %+v", st)
	return JobStatus{}
}

func TestEnqueueDeliversToAllTargets(t *testing.T) {
	f := &fakeSender{}
	s := New(Config{Workers: 2, RatePerSec: 1000}, f, nil, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	id, ok := s.Enqueue("test", []int64{1, 2, 3}, "hello")
	if !ok {
		t.Fatalf("enqueue refused while running")
	}
	st := waitStatus(t, s, id, func(st JobStatus) bool { return !st.Running && st.Done == 3 })
	if st.Failed != 0 || f.count() != 3 {
		t.Fatalf("unexpected status %+v, sent %d", st, f.count())
	}
}

func TestRetryThenFailureRecorded(t *testing.T) {
	// chat 7 fails more times than RetryMax allows; chat 8 recovers on retry.
	f := &fakeSender{fails: map[int64]int{7: 10, 8: 1}}
	s := New(Config{Workers: 1, RatePerSec: 1000, RetryMax: 1}, f, nil, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	id, _ := s.Enqueue("test", []int64{7, 8}, "hi")
	st := waitStatus(t, s, id, func(st JobStatus) bool { return !st.Running && st.Done == 2 })
	if st.Failed != 1 || len(st.Failures) != 1 || st.Failures[0] != 7 {
		t.Fatalf("unexpected failure accounting: %+v", st)
	}
	if f.count() != 1 {
		t.Fatalf("expected one delivered message, got %d", f.count())
	}
}

func TestEnqueueSurvivesFullQueue(t *testing.T) {
	// More jobs than the queue buffers, drained by a single worker whose
	// sends go through the shared mutex. Enqueue must never block a worker
	// out of the lock it needs to drain the backlog.
	f := &fakeSender{}
	s := New(Config{Workers: 1, RatePerSec: 100000}, f, nil, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	const jobs = 100
	ids := make([]string, 0, jobs)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < jobs; i++ {
			id, ok := s.Enqueue("bulk", []int64{int64(i)}, "x")
			if ok {
				ids = append(ids, id)
			}
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("enqueue of %d jobs blocked", jobs)
	}
	for _, id := range ids {
		waitStatus(t, s, id, func(st JobStatus) bool { return !st.Running && st.Done == 1 })
	}
	if f.count() != jobs {
		t.Fatalf("delivered %d, want %d", f.count(), jobs)
	}
}

func TestEnqueueAfterStop(t *testing.T) {
	s := New(Config{}, &fakeSender{}, nil, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	s.Stop()
	if _, ok := s.Enqueue("test", []int64{1}, "x"); ok {
		t.Fatalf("enqueue accepted after Stop")
	}
}

func TestEnqueueBeforeStart(t *testing.T) {
	s := New(Config{}, &fakeSender{}, nil, logx.Nop())
	if _, ok := s.Enqueue("test", []int64{1}, "x"); ok {
		t.Fatalf("enqueue accepted before Start")
	}
}

func TestSendBypassesQueue(t *testing.T) {
	f := &fakeSender{}
	s := New(Config{RatePerSec: 1000}, f, nil, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	if err := s.Send(ctx, 42, "ping"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if f.count() != 1 {
		t.Fatalf("expected direct send, got %d", f.count())
	}
}
