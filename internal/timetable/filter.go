package timetable

import (
	"time"

	logx "raspbot/pkg/logx"
)

var weekdayNames = map[time.Weekday]string{
	time.Monday:    "monday",
	time.Tuesday:   "tuesday",
	time.Wednesday: "wednesday",
	time.Thursday:  "thursday",
	time.Friday:    "friday",
	time.Saturday:  "saturday",
	time.Sunday:    "sunday",
}

const dateLayout = "2006-01-02"

// LessonsOn selects the lessons valid on the given calendar date: the date's
// weekday table, filtered by each occurrence's validity window. Output is
// ascending by slot; occurrences sharing a slot are all retained (parallel
// sub-group lessons are not deduplicated).
func LessonsOn(w Week, date time.Time, log logx.Logger) []Lesson {
	if w == nil {
		return nil
	}
	day, ok := w[weekdayNames[date.Weekday()]]
	if !ok {
		return nil
	}

	var out []Lesson
	for _, slot := range day.Slots() {
		for _, l := range day[slot] {
			if lessonOnDate(l, date, log) {
				out = append(out, l)
			}
		}
	}
	return out
}

// lessonOnDate reports whether the occurrence's validity window contains the
// date. Missing bounds mean always valid. Unparsable bounds degrade to always
// valid with a warning; a bad date string must never sink the whole request.
func lessonOnDate(l Lesson, date time.Time, log logx.Logger) bool {
	if l.StartDate == "" || l.EndDate == "" {
		return true
	}
	start, err := time.Parse(dateLayout, l.StartDate)
	if err != nil {
		log.Warn("bad lesson start_date, treating lesson as always valid",
			logx.String("subject", l.Subject), logx.String("start_date", l.StartDate), logx.Err(err))
		return true
	}
	end, err := time.Parse(dateLayout, l.EndDate)
	if err != nil {
		log.Warn("bad lesson end_date, treating lesson as always valid",
			logx.String("subject", l.Subject), logx.String("end_date", l.EndDate), logx.Err(err))
		return true
	}

	// Calendar-date comparison, inclusive on both ends.
	d := truncateDate(date)
	return !d.Before(truncateDate(start)) && !d.After(truncateDate(end))
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
