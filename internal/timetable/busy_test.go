package timetable

import (
	"reflect"
	"testing"

	logx "raspbot/pkg/logx"
)

func TestBuildBusyMergesSameLocation(t *testing.T) {
	// Slots 1 and 2 are separated by a 10 minute break; they do not touch, so
	// they stay separate intervals even at the same location.
	lessons := []Lesson{
		{Subject: "a", Slot: 1, Location: "Campus-1"},
		{Subject: "b", Slot: 2, Location: "Campus-1"},
	}
	got := BuildBusy(lessons, VariantRegular, logx.Nop())
	want := []BusyInterval{
		{Start: 540, End: 630, Location: "Campus-1"},
		{Start: 640, End: 730, Location: "Campus-1"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestBuildBusyMergesOverlappingSameLocation(t *testing.T) {
	// Parallel occurrences in the same slot and location collapse into one.
	lessons := []Lesson{
		{Subject: "a", Slot: 3, Location: "Campus-1"},
		{Subject: "b", Slot: 3, Location: "Campus-1"},
	}
	got := BuildBusy(lessons, VariantRegular, logx.Nop())
	if len(got) != 1 {
		t.Fatalf("expected 1 merged interval, got %v", got)
	}
	if got[0] != (BusyInterval{Start: 740, End: 830, Location: "Campus-1"}) {
		t.Fatalf("unexpected merged interval: %v", got[0])
	}
}

func TestBuildBusyNeverMergesDifferentLocations(t *testing.T) {
	// Same slot, conflicting locations. Which location "wins" for the slot is
	// deliberately unspecified; both intervals are kept as-is and it is the
	// intersector that rejects the ambiguity downstream.
	lessons := []Lesson{
		{Subject: "a", Slot: 3, Location: "Campus-1"},
		{Subject: "b", Slot: 3, Location: "Campus-2"},
	}
	got := BuildBusy(lessons, VariantRegular, logx.Nop())
	if len(got) != 2 {
		t.Fatalf("expected 2 intervals for conflicting locations, got %v", got)
	}
}

func TestBuildBusyEmptyLocationEquality(t *testing.T) {
	// "" merges with "" but never with a named location.
	lessons := []Lesson{
		{Subject: "a", Slot: 3},
		{Subject: "b", Slot: 3},
		{Subject: "c", Slot: 4, Location: "Campus-1"},
	}
	got := BuildBusy(lessons, VariantRegular, logx.Nop())
	want := []BusyInterval{
		{Start: 740, End: 830, Location: ""},
		{Start: 870, End: 960, Location: "Campus-1"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestBuildBusyDropsUnknownSlots(t *testing.T) {
	lessons := []Lesson{
		{Subject: "ghost", Slot: 99},
		{Subject: "real", Slot: 1, Location: "Campus-1"},
	}
	got := BuildBusy(lessons, VariantRegular, logx.Nop())
	if len(got) != 1 || got[0].Start != 540 {
		t.Fatalf("expected only the real lesson, got %v", got)
	}
	if BuildBusy([]Lesson{{Subject: "ghost", Slot: 99}}, VariantRegular, logx.Nop()) != nil {
		t.Fatalf("expected nil when every lesson is dropped")
	}
}

func TestBuildBusyClipsEveningSlotsToDay(t *testing.T) {
	// The shifted and evening bell tables run slot 7 past 21:00; busy
	// intervals still end at the day boundary.
	for _, v := range []Variant{VariantShifted, VariantEvening} {
		got := BuildBusy([]Lesson{{Subject: "late", Slot: 7, Location: "Campus-1"}}, v, logx.Nop())
		if len(got) != 1 {
			t.Fatalf("variant %s: expected 1 interval, got %v", v, got)
		}
		if got[0].End != DayEnd {
			t.Fatalf("variant %s: interval ends at %d, want %d", v, got[0].End, DayEnd)
		}
	}
}

func TestBuildBusyInvariants(t *testing.T) {
	lessons := []Lesson{
		{Subject: "d", Slot: 5, Location: "B"},
		{Subject: "a", Slot: 1, Location: "A"},
		{Subject: "c", Slot: 4, Location: "B"},
		{Subject: "b", Slot: 2, Location: "A"},
	}
	got := BuildBusy(lessons, VariantRegular, logx.Nop())
	for i, b := range got {
		if b.End <= b.Start {
			t.Fatalf("interval %d inverted: %v", i, b)
		}
		if i > 0 && b.Start < got[i-1].Start {
			t.Fatalf("intervals not ascending: %v", got)
		}
	}
}
