package timetable

import (
	"sort"

	logx "raspbot/pkg/logx"
)

// BusyInterval is a continuous period during which an entity has a lesson,
// tagged with the lesson's location label ("" when the schedule does not
// record one). End is exclusive and always > Start.
type BusyInterval struct {
	Start    int
	End      int
	Location string
}

// BuildBusy converts filtered lessons into merged busy intervals. Lessons
// whose slot has no mapping in the grid are dropped with a warning. Slot
// times are clipped to [DayStart, DayEnd): the shifted and evening bell
// tables run their last slots past 21:00, but the comparison day does not
// extend with them. Two intervals merge only when they touch or overlap AND
// their locations are exactly equal; "" equals "" but never a named location.
func BuildBusy(lessons []Lesson, v Variant, log logx.Logger) []BusyInterval {
	intervals := make([]BusyInterval, 0, len(lessons))
	for _, l := range lessons {
		r, ok := SlotTime(v, l.Slot)
		if !ok {
			log.Warn("no slot time for lesson, dropping from busy computation",
				logx.String("subject", l.Subject), logx.Int("slot", l.Slot), logx.String("variant", string(v)))
			continue
		}
		start, end := r.Start, r.End
		if start < DayStart {
			start = DayStart
		}
		if end > DayEnd {
			end = DayEnd
		}
		if end <= start {
			continue
		}
		intervals = append(intervals, BusyInterval{Start: start, End: end, Location: l.Location})
	}
	if len(intervals) == 0 {
		return nil
	}

	sort.SliceStable(intervals, func(i, j int) bool {
		if intervals[i].Start != intervals[j].Start {
			return intervals[i].Start < intervals[j].Start
		}
		if intervals[i].End != intervals[j].End {
			return intervals[i].End < intervals[j].End
		}
		return intervals[i].Location < intervals[j].Location
	})

	merged := intervals[:1]
	for _, cur := range intervals[1:] {
		last := &merged[len(merged)-1]
		if cur.Start <= last.End && cur.Location == last.Location {
			if cur.End > last.End {
				last.End = cur.End
			}
			continue
		}
		merged = append(merged, cur)
	}
	return merged
}
