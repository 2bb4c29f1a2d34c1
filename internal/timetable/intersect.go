package timetable

import (
	"errors"
	"sort"
)

// ErrNeedTwoEntities is returned when a comparison is attempted with fewer
// than two schedules.
var ErrNeedTwoEntities = errors.New("timetable: at least two entities required for comparison")

// Entity is one side of a comparison: its genuine busy intervals plus the
// derived location timeline.
type Entity struct {
	Name     string
	Busy     []BusyInterval
	Timeline Timeline
}

// NewEntity builds an Entity from merged busy intervals.
func NewEntity(name string, busy []BusyInterval) Entity {
	return Entity{Name: name, Busy: busy, Timeline: BuildTimeline(busy)}
}

// FreeWindow is a time range during which every compared entity is out of
// class and provably co-located. Label is Unconstrained ("any location works")
// only when no compared entity has lessons at all.
type FreeWindow struct {
	Start        int
	End          int
	Label        Label
	Participants int
}

// Duration returns the window length in minutes.
func (w FreeWindow) Duration() int { return w.End - w.Start }

// FreeWindows intersects the entities' timelines into shared free windows of
// at least minDuration minutes.
//
// The day is sliced at every timeline boundary. A slice survives only if it is
// long enough, overlaps no entity's actual lesson, crosses no transit segment,
// and every entity carries the same label (all Unconstrained, or all the same
// location value). Any disagreement rejects the slice: a mix of "no lessons"
// and a concrete location is not provable co-location and is never merged
// optimistically. Slices separated by a rejected gap are reported as separate
// windows.
func FreeWindows(entities []Entity, minDuration int) ([]FreeWindow, error) {
	if len(entities) < 2 {
		return nil, ErrNeedTwoEntities
	}

	bounds := sliceBounds(entities)

	var out []FreeWindow
	for i := 0; i+1 < len(bounds); i++ {
		start, end := bounds[i], bounds[i+1]
		if end-start < minDuration {
			continue
		}

		lab, ok := sliceLabel(entities, start, end)
		if !ok {
			continue
		}

		// Extend the previous window only across a shared boundary with an
		// identical label; never stitch across a rejected gap.
		if n := len(out); n > 0 && out[n-1].End == start && out[n-1].Label == lab {
			out[n-1].End = end
			continue
		}
		out = append(out, FreeWindow{Start: start, End: end, Label: lab, Participants: len(entities)})
	}
	return out, nil
}

// sliceBounds collects the deduplicated, sorted boundary set: every segment
// edge of every timeline plus the day bounds.
func sliceBounds(entities []Entity) []int {
	set := map[int]struct{}{DayStart: {}, DayEnd: {}}
	for _, e := range entities {
		for _, s := range e.Timeline {
			set[s.Start] = struct{}{}
			set[s.End] = struct{}{}
		}
	}
	bounds := make([]int, 0, len(set))
	for t := range set {
		if t >= DayStart && t <= DayEnd {
			bounds = append(bounds, t)
		}
	}
	sort.Ints(bounds)
	return bounds
}

// sliceLabel decides whether [start, end) is acceptable for every entity and,
// if so, under which shared label.
func sliceLabel(entities []Entity, start, end int) (Label, bool) {
	// A real lesson excludes the slice outright, whatever the labels say.
	for _, e := range entities {
		for _, b := range e.Busy {
			if b.Start < end && b.End > start {
				return Label{}, false
			}
		}
	}

	labels := make([]Label, 0, len(entities))
	for _, e := range entities {
		lab, ok := e.Timeline.at(start, end)
		if !ok {
			// No covering segment: the timeline invariant is broken for this
			// entity, treat the slice as unprovable.
			return Label{}, false
		}
		if lab.Kind == Transit {
			return Label{}, false
		}
		labels = append(labels, lab)
	}

	first := labels[0]
	for _, lab := range labels[1:] {
		if lab != first {
			return Label{}, false
		}
	}
	// All equal: either everyone is unconstrained ("any"), or everyone shares
	// the same (possibly unknown) location value.
	return first, true
}
