// Package schedule orchestrates the timetable engine: cache-fronted fetching,
// per-date schedule views and free-window comparisons.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"raspbot/internal/metrics"
	"raspbot/internal/raspyx"
	"raspbot/internal/schedcache"
	"raspbot/internal/storage"
	"raspbot/internal/timetable"
	logx "raspbot/pkg/logx"
)

// EntityKind says what an EntityRef points at.
type EntityKind int

const (
	KindGroup EntityKind = iota
	KindTeacher
)

// EntityRef identifies one compared side: a student group number or a
// teacher's full name. The engine itself is entity-agnostic.
type EntityRef struct {
	Kind EntityKind
	ID   string
}

func (r EntityRef) String() string {
	if r.Kind == KindTeacher {
		return "преп. " + r.ID
	}
	return "группа " + r.ID
}

// UnavailableError reports that one compared entity's schedule could not be
// fetched. A comparison with a missing side is meaningless, so the whole run
// is aborted rather than producing partial results.
type UnavailableError struct {
	Entity EntityRef
	Err    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("schedule unavailable for %s: %v", e.Entity, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Fetcher is the upstream API surface the service needs. Implemented by
// *raspyx.Client; narrowed to an interface so tests can fake it.
type Fetcher interface {
	GroupSchedule(ctx context.Context, group string, session bool) (timetable.Week, error)
	TeacherSchedule(ctx context.Context, fullName string, session bool) (timetable.Week, error)
	Groups(ctx context.Context) ([]raspyx.GroupInfo, error)
	Teachers(ctx context.Context) ([]raspyx.TeacherInfo, error)
}

type Config struct {
	Variant       timetable.Variant
	MaxPeriodDays int
}

type Service struct {
	api     Fetcher
	cache   *schedcache.Cache
	store   *storage.Store
	met     *metrics.Metrics
	log     logx.Logger
	variant timetable.Variant
	maxDays int
}

func New(api Fetcher, cache *schedcache.Cache, store *storage.Store, met *metrics.Metrics, cfg Config, log logx.Logger) *Service {
	variant := cfg.Variant
	if variant == "" {
		variant = timetable.VariantFallback
	}
	maxDays := cfg.MaxPeriodDays
	if maxDays <= 0 {
		maxDays = 14
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		api:     api,
		cache:   cache,
		store:   store,
		met:     met,
		log:     log,
		variant: variant,
		maxDays: maxDays,
	}
}

// MaxPeriodDays reports the configured period-comparison cap.
func (s *Service) MaxPeriodDays() int { return s.maxDays }

// ClearCache wipes the schedule cache. Called by the daily maintenance job.
func (s *Service) ClearCache() {
	s.cache.Clear()
	s.log.Info("schedule cache cleared")
}

func cacheKey(ref EntityRef, session bool) string {
	kind := "group"
	if ref.Kind == KindTeacher {
		kind = "teacher"
	}
	return fmt.Sprintf("schedule:%s:%s:%t", kind, ref.ID, session)
}

// Week returns the entity's weekly table, from cache when fresh. A cached
// value of the wrong shape is treated as a miss and re-fetched.
func (s *Service) Week(ctx context.Context, ref EntityRef, session bool) (timetable.Week, error) {
	key := cacheKey(ref, session)
	if v, ok := s.cache.Get(key); ok {
		if w, ok := v.(timetable.Week); ok {
			s.met.CacheHit()
			return w, nil
		}
		s.log.Warn("corrupted cache entry, forcing re-fetch", logx.String("key", key))
		s.cache.Delete(key)
	}
	s.met.CacheMiss()

	var (
		w   timetable.Week
		err error
	)
	switch ref.Kind {
	case KindTeacher:
		w, err = s.api.TeacherSchedule(ctx, ref.ID, session)
	default:
		w, err = s.api.GroupSchedule(ctx, ref.ID, session)
	}
	if err != nil {
		s.met.FetchError()
		return nil, &UnavailableError{Entity: ref, Err: err}
	}
	s.cache.Set(key, w, schedcache.ScheduleTTL)
	return w, nil
}

// Groups returns the group directory, cached for a week.
func (s *Service) Groups(ctx context.Context) ([]raspyx.GroupInfo, error) {
	if v, ok := s.cache.Get("groups:all"); ok {
		if gs, ok := v.([]raspyx.GroupInfo); ok {
			s.met.CacheHit()
			return gs, nil
		}
		s.cache.Delete("groups:all")
	}
	s.met.CacheMiss()
	gs, err := s.api.Groups(ctx)
	if err != nil {
		s.met.FetchError()
		return nil, err
	}
	s.cache.Set("groups:all", gs, schedcache.DirectoryTTL)
	return gs, nil
}

// Teachers returns the teacher directory, cached for a week.
func (s *Service) Teachers(ctx context.Context) ([]raspyx.TeacherInfo, error) {
	if v, ok := s.cache.Get("teachers:all"); ok {
		if ts, ok := v.([]raspyx.TeacherInfo); ok {
			s.met.CacheHit()
			return ts, nil
		}
		s.cache.Delete("teachers:all")
	}
	s.met.CacheMiss()
	ts, err := s.api.Teachers(ctx)
	if err != nil {
		s.met.FetchError()
		return nil, err
	}
	s.cache.Set("teachers:all", ts, schedcache.DirectoryTTL)
	return ts, nil
}

// KnownGroup reports whether the group number exists in the directory.
// Directory failures degrade to "assume known" so schedule lookups still work.
func (s *Service) KnownGroup(ctx context.Context, group string) bool {
	gs, err := s.Groups(ctx)
	if err != nil {
		s.log.Warn("group directory unavailable, skipping validation", logx.Err(err))
		return true
	}
	for _, g := range gs {
		if g.Number == group {
			return true
		}
	}
	return false
}

// ResolvedLesson pairs a lesson with its clock range. TimeKnown is false when
// the slot has no mapping in the bell grid (the lesson still shows in day
// views but is excluded from busy computation).
type ResolvedLesson struct {
	timetable.Lesson
	Time      timetable.ClockRange
	TimeKnown bool
}

// DaySchedule is one entity's day: either a holiday notice or the lesson list.
type DaySchedule struct {
	Ref     EntityRef
	Date    time.Time
	Holiday string // non-empty means no classes: holiday kind
	Lessons []ResolvedLesson
}

// Day builds the schedule view for one date, consulting holidays first.
func (s *Service) Day(ctx context.Context, ref EntityRef, date time.Time, session bool) (*DaySchedule, error) {
	out := &DaySchedule{Ref: ref, Date: date}

	if s.store != nil && ref.Kind == KindGroup {
		kind, ok, err := s.store.HolidayOn(ctx, ref.ID, date.Format("2006-01-02"))
		if err != nil && !errors.Is(err, storage.ErrDisabled) {
			s.log.Warn("holiday lookup failed", logx.Err(err))
		}
		if ok {
			out.Holiday = kind
			return out, nil
		}
	}

	week, err := s.Week(ctx, ref, session)
	if err != nil {
		return nil, err
	}
	for _, l := range timetable.LessonsOn(week, date, s.log) {
		r, ok := timetable.SlotTime(s.variant, l.Slot)
		out.Lessons = append(out.Lessons, ResolvedLesson{Lesson: l, Time: r, TimeKnown: ok})
	}
	return out, nil
}

// Current finds the lesson covering now, if any. The bool reports whether the
// entity has any lessons today at all.
func (s *Service) Current(ctx context.Context, ref EntityRef, now time.Time, session bool) (*ResolvedLesson, bool, error) {
	day, err := s.Day(ctx, ref, now, session)
	if err != nil {
		return nil, false, err
	}
	if day.Holiday != "" || len(day.Lessons) == 0 {
		return nil, false, nil
	}
	minute := now.Hour()*60 + now.Minute()
	for _, l := range day.Lessons {
		if l.TimeKnown && l.Time.Start <= minute && minute < l.Time.End {
			return &l, true, nil
		}
	}
	return nil, true, nil
}
