package timetable

import (
	"reflect"
	"testing"
	"time"

	logx "raspbot/pkg/logx"
)

func TestPeriodWindowsIteratesDates(t *testing.T) {
	// Lessons only on tuesday at a shared location. Over mon-wed, monday and
	// wednesday have no lessons for either entity (both unconstrained, full
	// day accepted); tuesday yields the after-lesson window.
	wa := weekWith("tuesday", Lesson{Subject: "a", Slot: 1, Location: "Campus-1"})
	wb := weekWith("tuesday", Lesson{Subject: "b", Slot: 1, Location: "Campus-1"})

	from := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC) // monday
	to := time.Date(2025, 9, 3, 0, 0, 0, 0, time.UTC)   // wednesday

	got, err := PeriodWindows([]Week{wa, wb}, []string{"a", "b"}, from, to, VariantRegular, 0, logx.Nop())
	if err != nil {
		t.Fatalf("PeriodWindows: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 days with windows, got %d: %v", len(got), got)
	}
	if !got[0].Date.Equal(from) || !got[2].Date.Equal(to) {
		t.Fatalf("dates out of order: %v", got)
	}

	monday := got[0].Windows
	wantMonday := []FreeWindow{{Start: DayStart, End: DayEnd, Label: LabelUnconstrained(), Participants: 2}}
	if !reflect.DeepEqual(monday, wantMonday) {
		t.Fatalf("monday windows = %v, want %v", monday, wantMonday)
	}

	tuesday := got[1].Windows
	wantTuesday := []FreeWindow{{Start: 630, End: DayEnd, Label: LabelAt("Campus-1"), Participants: 2}}
	if !reflect.DeepEqual(tuesday, wantTuesday) {
		t.Fatalf("tuesday windows = %v, want %v", tuesday, wantTuesday)
	}
}

func TestPeriodWindowsOmitsEmptyDates(t *testing.T) {
	// Disagreeing locations on tuesday reject the whole day; the day is
	// omitted from output rather than reported empty.
	wa := weekWith("tuesday", Lesson{Subject: "a", Slot: 3, Location: "Campus-1"})
	wb := weekWith("tuesday", Lesson{Subject: "b", Slot: 3, Location: "Campus-2"})

	day := time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC) // tuesday
	got, err := PeriodWindows([]Week{wa, wb}, nil, day, day, VariantRegular, 0, logx.Nop())
	if err != nil {
		t.Fatalf("PeriodWindows: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no days, got %v", got)
	}
}

func TestPeriodWindowsNeedsTwoEntities(t *testing.T) {
	day := time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC)
	if _, err := PeriodWindows([]Week{{}}, nil, day, day, VariantRegular, 0, logx.Nop()); err != ErrNeedTwoEntities {
		t.Fatalf("expected ErrNeedTwoEntities, got %v", err)
	}
}
