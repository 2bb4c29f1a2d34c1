package telegram

import (
	"testing"
	"time"

	"raspbot/internal/schedule"
)

var now = time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

func TestParseCompareGroupsOnly(t *testing.T) {
	args, ok := parseCompare("/compare 221-361 221-365", now)
	if !ok {
		t.Fatalf("parse failed")
	}
	if len(args.refs) != 2 || args.refs[0].ID != "221-361" || args.refs[1].ID != "221-365" {
		t.Fatalf("unexpected refs: %+v", args.refs)
	}
	if args.minDuration != 0 || args.hasPeriod || !args.date.Equal(now) {
		t.Fatalf("unexpected extras: %+v", args)
	}
}

func TestParseCompareDurationAndDate(t *testing.T) {
	args, ok := parseCompare("/compare 221-361 221-365 60 15.10.2025", now)
	if !ok {
		t.Fatalf("parse failed")
	}
	if args.minDuration != 60 {
		t.Fatalf("minDuration = %d", args.minDuration)
	}
	want := time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC)
	if !args.date.Equal(want) {
		t.Fatalf("date = %v", args.date)
	}
}

func TestParseCompareShortDateDefaultsYear(t *testing.T) {
	args, ok := parseCompare("/compare 221-361 221-365 15.10", now)
	if !ok || args.date.Year() != 2025 || args.date.Day() != 15 {
		t.Fatalf("short date: %+v ok=%v", args, ok)
	}
}

func TestParseComparePeriod(t *testing.T) {
	args, ok := parseCompare("/compare 221-361 221-365 60 8.10.2025-13.10.2025", now)
	if !ok || !args.hasPeriod {
		t.Fatalf("period not detected: %+v", args)
	}
	if args.from.Day() != 8 || args.to.Day() != 13 || args.minDuration != 60 {
		t.Fatalf("unexpected period: %+v", args)
	}
}

func TestParseCompareTeacher(t *testing.T) {
	args, ok := parseCompare("/compare 221-361 преп:Иванов_И_И", now)
	if !ok {
		t.Fatalf("parse failed")
	}
	if len(args.refs) != 2 {
		t.Fatalf("refs: %+v", args.refs)
	}
	teacher := args.refs[1]
	if teacher.Kind != schedule.KindTeacher || teacher.ID != "Иванов И И" {
		t.Fatalf("teacher ref: %+v", teacher)
	}
}

func TestParseCompareTooFewEntities(t *testing.T) {
	if _, ok := parseCompare("/compare 221-361", now); ok {
		t.Fatalf("single group accepted")
	}
	if _, ok := parseCompare("/compare", now); ok {
		t.Fatalf("no groups accepted")
	}
}

func TestParseUserDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"15.10", true},
		{"15.10.2025", true},
		{"1.1", true},
		{"31.02", false},
		{"32.01", false},
		{"15.13", false},
		{"today", false},
		{"15", false},
	}
	for _, tc := range cases {
		if _, ok := parseUserDate(tc.in, now); ok != tc.ok {
			t.Fatalf("parseUserDate(%q) ok=%v, want %v", tc.in, ok, tc.ok)
		}
	}
}

func TestFloodGuard(t *testing.T) {
	g := newFloodGuard(3, time.Hour)
	for i := 0; i < 3; i++ {
		if !g.Allow(1) {
			t.Fatalf("request %d within burst denied", i)
		}
	}
	if g.Allow(1) {
		t.Fatalf("burst exceeded but allowed")
	}
	// Other users are unaffected.
	if !g.Allow(2) {
		t.Fatalf("independent user denied")
	}
}
