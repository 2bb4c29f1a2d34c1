package timetable

import "fmt"

// LabelKind tags a timeline segment.
type LabelKind int

const (
	// Unconstrained: the entity has no lessons all day and can meet anywhere.
	Unconstrained LabelKind = iota
	// LocationKnown: the entity is at (or positioned for) a named location.
	LocationKnown
	// LocationUnknown: the entity follows a lesson schedule that records no
	// location. Distinct from Unconstrained: the entity is bound to an
	// unknown place, not free to pick one.
	LocationUnknown
	// Transit: the entity is relocating between two differing locations and
	// cannot meet anyone.
	Transit
)

// Label is a tagged location value. Compare with ==; LocationKnown("") is
// normalized to LocationUnknown at construction so string equality stays
// meaningful.
type Label struct {
	Kind LabelKind
	Loc  string // LocationKnown only
	From string // Transit only
	To   string // Transit only
}

func LabelUnconstrained() Label { return Label{Kind: Unconstrained} }

func LabelAt(loc string) Label {
	if loc == "" {
		return Label{Kind: LocationUnknown}
	}
	return Label{Kind: LocationKnown, Loc: loc}
}

func LabelTransit(from, to string) Label {
	return Label{Kind: Transit, From: from, To: to}
}

func (l Label) String() string {
	switch l.Kind {
	case Unconstrained:
		return "any"
	case LocationUnknown:
		return "unknown"
	case Transit:
		return fmt.Sprintf("transit(%s->%s)", l.From, l.To)
	default:
		return l.Loc
	}
}

// Segment is one span of a timeline.
type Segment struct {
	Start int
	End   int
	Label Label
}

// Timeline is a full-day, gap-free location cover for one entity: contiguous,
// non-overlapping segments tiling exactly [DayStart, DayEnd).
type Timeline []Segment

// BuildTimeline expands merged busy intervals into a day timeline.
//
// Rules, in priority order:
//  1. no intervals: one Unconstrained segment;
//  2. intervals exist but none carries a location: one LocationUnknown segment;
//  3. otherwise a gap-free cover where the entity is presumed positioned for
//     its next lesson before it, stays put between same-location lessons, and
//     is in Transit between differing ones.
//
// Intervals must be sorted ascending by start and lie within
// [DayStart, DayEnd); BuildBusy guarantees both by clipping slot times to the
// day window before merging.
func BuildTimeline(busy []BusyInterval) Timeline {
	if len(busy) == 0 {
		return Timeline{{Start: DayStart, End: DayEnd, Label: LabelUnconstrained()}}
	}

	anyLocated := false
	for _, b := range busy {
		if b.Location != "" {
			anyLocated = true
			break
		}
	}
	if !anyLocated {
		return Timeline{{Start: DayStart, End: DayEnd, Label: Label{Kind: LocationUnknown}}}
	}

	tl := make(Timeline, 0, 2*len(busy)+1)
	append_ := func(start, end int, lab Label) {
		if end > start {
			tl = append(tl, Segment{Start: start, End: end, Label: lab})
		}
	}

	append_(DayStart, busy[0].Start, LabelAt(busy[0].Location))
	for i, b := range busy {
		append_(b.Start, b.End, LabelAt(b.Location))
		if i+1 < len(busy) {
			next := busy[i+1]
			if next.Location == b.Location {
				append_(b.End, next.Start, LabelAt(b.Location))
			} else {
				append_(b.End, next.Start, LabelTransit(b.Location, next.Location))
			}
		}
	}
	append_(busy[len(busy)-1].End, DayEnd, LabelAt(busy[len(busy)-1].Location))

	return tl
}

// Validate checks the tiling invariant: contiguous, non-overlapping segments
// covering exactly [DayStart, DayEnd).
func (t Timeline) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("timeline: empty")
	}
	if t[0].Start != DayStart {
		return fmt.Errorf("timeline: starts at %d, want %d", t[0].Start, DayStart)
	}
	for i, s := range t {
		if s.End <= s.Start {
			return fmt.Errorf("timeline: segment %d is empty or inverted (%d, %d)", i, s.Start, s.End)
		}
		if i > 0 && s.Start != t[i-1].End {
			return fmt.Errorf("timeline: gap or overlap at segment %d (%d != %d)", i, s.Start, t[i-1].End)
		}
	}
	if last := t[len(t)-1].End; last != DayEnd {
		return fmt.Errorf("timeline: ends at %d, want %d", last, DayEnd)
	}
	return nil
}

// at returns the label of the segment covering [start, end). By the tiling
// invariant exactly one segment covers any in-day slice.
func (t Timeline) at(start, end int) (Label, bool) {
	for _, s := range t {
		if s.Start <= start && s.End >= end {
			return s.Label, true
		}
	}
	return Label{}, false
}
