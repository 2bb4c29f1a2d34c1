package timetable

import (
	"time"

	logx "raspbot/pkg/logx"
)

// WindowsOn runs the full single-day pipeline for one date: filter each week
// to the date, build busy intervals and timelines, intersect.
func WindowsOn(weeks []Week, names []string, date time.Time, v Variant, minDuration int, log logx.Logger) ([]FreeWindow, error) {
	entities := make([]Entity, 0, len(weeks))
	for i, w := range weeks {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		lessons := LessonsOn(w, date, log)
		entities = append(entities, NewEntity(name, BuildBusy(lessons, v, log)))
	}
	return FreeWindows(entities, minDuration)
}

// DayWindows pairs a date with the windows found on it.
type DayWindows struct {
	Date    time.Time
	Windows []FreeWindow
}

// PeriodWindows applies the single-day pipeline once per date over the
// inclusive range [from, to], carrying no state between dates. Dates with no
// accepted windows are omitted. Range span validation (an upper bound on the
// number of days) is the caller's job.
func PeriodWindows(weeks []Week, names []string, from, to time.Time, v Variant, minDuration int, log logx.Logger) ([]DayWindows, error) {
	if len(weeks) < 2 {
		return nil, ErrNeedTwoEntities
	}

	var out []DayWindows
	for d := truncateDate(from); !d.After(truncateDate(to)); d = d.AddDate(0, 0, 1) {
		windows, err := WindowsOn(weeks, names, d, v, minDuration, log)
		if err != nil {
			return nil, err
		}
		if len(windows) > 0 {
			out = append(out, DayWindows{Date: d, Windows: windows})
		}
	}
	return out, nil
}
