package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"raspbot/internal/timetable"
)

// ErrPeriodTooLong rejects period comparisons above the configured span cap.
var ErrPeriodTooLong = errors.New("schedule: comparison period too long")

// ErrPeriodInverted rejects period comparisons whose end precedes the start.
var ErrPeriodInverted = errors.New("schedule: period end before start")

// Window is a presentation-ready free window.
type Window struct {
	StartClock  string
	EndClock    string
	DurationMin int
	Label       timetable.Label
}

func toWindows(ws []timetable.FreeWindow) []Window {
	out := make([]Window, 0, len(ws))
	for _, w := range ws {
		out = append(out, Window{
			StartClock:  timetable.Clock(w.Start),
			EndClock:    timetable.Clock(w.End),
			DurationMin: w.Duration(),
			Label:       w.Label,
		})
	}
	return out
}

// EntityDay is one entity's lesson list inside a comparison result.
type EntityDay struct {
	Ref     EntityRef
	Lessons []ResolvedLesson
}

// Comparison is the single-date result: the shared windows plus each entity's
// schedule for context.
type Comparison struct {
	Date        time.Time
	MinDuration int
	Windows     []Window
	Entities    []EntityDay
}

// DayComparison is one date of a period comparison.
type DayComparison struct {
	Date    time.Time
	Windows []Window
}

// PeriodComparison is the bounded-period result; dates without windows are
// omitted.
type PeriodComparison struct {
	From, To    time.Time
	MinDuration int
	Refs        []EntityRef
	Days        []DayComparison
}

// fetchWeeks loads every entity's week, aborting on the first failure: a
// comparison must never mix available and unavailable sides.
func (s *Service) fetchWeeks(ctx context.Context, refs []EntityRef, session bool) ([]timetable.Week, error) {
	weeks := make([]timetable.Week, 0, len(refs))
	for _, ref := range refs {
		w, err := s.Week(ctx, ref, session)
		if err != nil {
			return nil, err
		}
		weeks = append(weeks, w)
	}
	return weeks, nil
}

func refNames(refs []EntityRef) []string {
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.ID
	}
	return names
}

// Compare finds shared free windows for one date. At least two entities are
// required; that is checked before any fetch happens.
func (s *Service) Compare(ctx context.Context, refs []EntityRef, date time.Time, minDuration int, session bool) (*Comparison, error) {
	if len(refs) < 2 {
		return nil, timetable.ErrNeedTwoEntities
	}
	start := time.Now()

	weeks, err := s.fetchWeeks(ctx, refs, session)
	if err != nil {
		return nil, err
	}

	windows, err := timetable.WindowsOn(weeks, refNames(refs), date, s.variant, minDuration, s.log)
	if err != nil {
		return nil, err
	}

	out := &Comparison{Date: date, MinDuration: minDuration, Windows: toWindows(windows)}
	for i, ref := range refs {
		ed := EntityDay{Ref: ref}
		for _, l := range timetable.LessonsOn(weeks[i], date, s.log) {
			r, ok := timetable.SlotTime(s.variant, l.Slot)
			ed.Lessons = append(ed.Lessons, ResolvedLesson{Lesson: l, Time: r, TimeKnown: ok})
		}
		out.Entities = append(out.Entities, ed)
	}

	s.met.CompareRun(time.Since(start))
	return out, nil
}

// ComparePeriod runs the single-date pipeline once per date over [from, to].
// The span is capped by config; the cap is caller policy, not an engine limit.
func (s *Service) ComparePeriod(ctx context.Context, refs []EntityRef, from, to time.Time, minDuration int, session bool) (*PeriodComparison, error) {
	if len(refs) < 2 {
		return nil, timetable.ErrNeedTwoEntities
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: %s < %s", ErrPeriodInverted,
			to.Format("2006-01-02"), from.Format("2006-01-02"))
	}
	if days := int(to.Sub(from).Hours()/24) + 1; days > s.maxDays {
		return nil, fmt.Errorf("%w: %d days, max %d", ErrPeriodTooLong, days, s.maxDays)
	}
	start := time.Now()

	weeks, err := s.fetchWeeks(ctx, refs, session)
	if err != nil {
		return nil, err
	}

	period, err := timetable.PeriodWindows(weeks, refNames(refs), from, to, s.variant, minDuration, s.log)
	if err != nil {
		return nil, err
	}

	out := &PeriodComparison{From: from, To: to, MinDuration: minDuration, Refs: refs}
	for _, day := range period {
		out.Days = append(out.Days, DayComparison{Date: day.Date, Windows: toWindows(day.Windows)})
	}

	s.met.CompareRun(time.Since(start))
	return out, nil
}
