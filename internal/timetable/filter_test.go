package timetable

import (
	"testing"
	"time"

	logx "raspbot/pkg/logx"
)

// tuesday 2025-09-02
var testDate = time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC)

func weekWith(day string, lessons ...Lesson) Week {
	d := make(Day)
	for _, l := range lessons {
		d[l.Slot] = append(d[l.Slot], l)
	}
	return Week{day: d}
}

func TestLessonsOnValidityWindows(t *testing.T) {
	cases := []struct {
		name   string
		lesson Lesson
		want   bool
	}{
		{"no bounds", Lesson{Subject: "math", Slot: 1}, true},
		{"inside window", Lesson{Subject: "math", Slot: 1, StartDate: "2025-09-01", EndDate: "2025-12-20"}, true},
		{"starts on date", Lesson{Subject: "math", Slot: 1, StartDate: "2025-09-02", EndDate: "2025-12-20"}, true},
		{"ends on date", Lesson{Subject: "math", Slot: 1, StartDate: "2025-02-01", EndDate: "2025-09-02"}, true},
		{"before window", Lesson{Subject: "math", Slot: 1, StartDate: "2025-09-03", EndDate: "2025-12-20"}, false},
		{"after window", Lesson{Subject: "math", Slot: 1, StartDate: "2025-02-01", EndDate: "2025-09-01"}, false},
		{"only start bound", Lesson{Subject: "math", Slot: 1, StartDate: "2025-12-01"}, true},
		{"garbage start date", Lesson{Subject: "math", Slot: 1, StartDate: "tomorrow", EndDate: "2025-12-20"}, true},
		{"garbage end date", Lesson{Subject: "math", Slot: 1, StartDate: "2025-09-01", EndDate: "soon"}, true},
	}
	for _, tc := range cases {
		w := weekWith("tuesday", tc.lesson)
		got := LessonsOn(w, testDate, logx.Nop())
		if (len(got) == 1) != tc.want {
			t.Fatalf("%s: got %d lessons, want included=%v", tc.name, len(got), tc.want)
		}
	}
}

func TestLessonsOnWrongWeekday(t *testing.T) {
	w := weekWith("monday", Lesson{Subject: "math", Slot: 1})
	if got := LessonsOn(w, testDate, logx.Nop()); len(got) != 0 {
		t.Fatalf("expected no lessons on tuesday, got %d", len(got))
	}
}

func TestLessonsOnOrderAndTies(t *testing.T) {
	w := weekWith("tuesday",
		Lesson{Subject: "late", Slot: 5},
		Lesson{Subject: "early", Slot: 1},
		Lesson{Subject: "parallel-a", Slot: 3},
		Lesson{Subject: "parallel-b", Slot: 3},
	)
	got := LessonsOn(w, testDate, logx.Nop())
	if len(got) != 4 {
		t.Fatalf("expected 4 lessons, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Slot < got[i-1].Slot {
			t.Fatalf("lessons not ascending by slot: %v", got)
		}
	}
	// Parallel occurrences sharing a slot are both retained.
	if got[1].Slot != 3 || got[2].Slot != 3 {
		t.Fatalf("expected both slot-3 occurrences kept, got %+v", got)
	}
}

func TestLessonsOnNilWeek(t *testing.T) {
	if got := LessonsOn(nil, testDate, logx.Nop()); got != nil {
		t.Fatalf("expected nil for nil week, got %v", got)
	}
}
