package timetable

import "fmt"

// The working day for meeting search. Minutes of day, end exclusive.
const (
	DayStart = 9 * 60  // 09:00
	DayEnd   = 21 * 60 // 21:00
)

// ClockRange is a clock interval in minutes of day, end exclusive.
type ClockRange struct {
	Start int
	End   int
}

// Clock renders minutes of day as "HH:MM".
func Clock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// String renders the range as "HH:MM-HH:MM".
func (r ClockRange) String() string {
	return Clock(r.Start) + "-" + Clock(r.End)
}
