package notify

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"raspbot/internal/broadcast"
	"raspbot/internal/raspyx"
	"raspbot/internal/schedcache"
	"raspbot/internal/schedule"
	"raspbot/internal/storage"
	"raspbot/internal/timetable"
	logx "raspbot/pkg/logx"
)

type fakeFetcher struct{}

func (fakeFetcher) GroupSchedule(ctx context.Context, group string, session bool) (timetable.Week, error) {
	return timetable.Week{}, nil
}
func (fakeFetcher) TeacherSchedule(ctx context.Context, fullName string, session bool) (timetable.Week, error) {
	return timetable.Week{}, nil
}
func (fakeFetcher) Groups(ctx context.Context) ([]raspyx.GroupInfo, error)     { return nil, nil }
func (fakeFetcher) Teachers(ctx context.Context) ([]raspyx.TeacherInfo, error) { return nil, nil }

type recordingSender struct {
	mu    sync.Mutex
	chats []int64
	texts []string
}

func (r *recordingSender) SendText(ctx context.Context, chatID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats = append(r.chats, chatID)
	r.texts = append(r.texts, text)
	return nil
}

func newFixture(t *testing.T) (*Service, *storage.Store, *recordingSender) {
	t.Helper()
	ctx := context.Background()

	store, err := storage.Open(storage.Config{Path: filepath.Join(t.TempDir(), "bot.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	sched := schedule.New(fakeFetcher{}, schedcache.New(), store, nil, schedule.Config{}, logx.Nop())

	sender := &recordingSender{}
	out := broadcast.New(broadcast.Config{RatePerSec: 1000}, sender, nil, logx.Nop())
	out.Start(ctx)
	t.Cleanup(out.Stop)

	svc := New(Config{Enabled: true, DefaultTime: "08:00", Timezone: "UTC"}, sched, store, out, logx.Nop())
	return svc, store, sender
}

func TestSweepMatchesNotifyTime(t *testing.T) {
	svc, store, sender := newFixture(t)
	ctx := context.Background()

	users := []storage.User{
		{UserID: 1, Group: "2501", DailyNotify: true, NotifyTime: "08:30"},
		{UserID: 2, Group: "2502", DailyNotify: true}, // config default 08:00
		{UserID: 3, Group: "2503", DailyNotify: false},
	}
	for _, u := range users {
		if err := store.UpsertUser(ctx, u); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	at := time.Date(2025, 9, 2, 8, 30, 0, 0, time.UTC)
	svc.sweepAt(ctx, at)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.chats) != 1 || sender.chats[0] != 1 {
		t.Fatalf("expected exactly user 1 notified at 08:30, got %v", sender.chats)
	}
	if !strings.Contains(sender.texts[0], "🔔 Расписание на сегодня") {
		t.Fatalf("unexpected message: %q", sender.texts[0])
	}
}

func TestSweepDefaultTime(t *testing.T) {
	svc, store, sender := newFixture(t)
	ctx := context.Background()

	if err := store.UpsertUser(ctx, storage.User{UserID: 5, Group: "2501", DailyNotify: true}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	svc.sweepAt(ctx, time.Date(2025, 9, 2, 8, 0, 0, 0, time.UTC))
	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.chats) != 1 || sender.chats[0] != 5 {
		t.Fatalf("default-time user not notified: %v", sender.chats)
	}
}

func TestSweepWithoutStorage(t *testing.T) {
	sched := schedule.New(fakeFetcher{}, schedcache.New(), nil, nil, schedule.Config{}, logx.Nop())
	sender := &recordingSender{}
	out := broadcast.New(broadcast.Config{}, sender, nil, logx.Nop())
	svc := New(Config{Enabled: true}, sched, nil, out, logx.Nop())

	// Disabled storage degrades to a no-op sweep.
	svc.sweepAt(context.Background(), time.Now())
	if len(sender.chats) != 0 {
		t.Fatalf("no sends expected without storage, got %v", sender.chats)
	}
}

func TestUnknownTimezoneFallsBackToUTC(t *testing.T) {
	svc := New(Config{Timezone: "Not/AZone"}, nil, nil, nil, logx.Nop())
	if svc.loc != time.UTC {
		t.Fatalf("expected UTC fallback, got %v", svc.loc)
	}
}
