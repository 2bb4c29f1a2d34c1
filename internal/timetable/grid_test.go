package timetable

import "testing"

func TestSlotTimeVariants(t *testing.T) {
	cases := []struct {
		variant Variant
		slot    int
		want    string
		ok      bool
	}{
		{VariantRegular, 1, "09:00-10:30", true},
		{VariantRegular, 3, "12:20-13:50", true},
		{VariantRegular, 6, "17:50-19:20", true},
		{VariantRegular, 7, "19:30-21:00", true},
		{VariantShifted, 5, "16:10-17:40", true},
		{VariantShifted, 6, "18:20-19:40", true},
		{VariantShifted, 7, "19:50-21:10", true},
		{VariantEvening, 6, "18:30-20:00", true},
		{VariantEvening, 7, "20:10-21:40", true},
		{VariantRegular, 0, "", false},
		{VariantRegular, 8, "", false},
		{Variant("9"), 1, "", false},
	}
	for _, tc := range cases {
		r, ok := SlotTime(tc.variant, tc.slot)
		if ok != tc.ok {
			t.Fatalf("SlotTime(%q, %d): ok=%v, want %v", tc.variant, tc.slot, ok, tc.ok)
		}
		if ok && r.String() != tc.want {
			t.Fatalf("SlotTime(%q, %d) = %s, want %s", tc.variant, tc.slot, r, tc.want)
		}
	}
}

func TestVariantsShareDaySlots(t *testing.T) {
	// Only evening slots (6-7) differ between variants.
	for slot := 1; slot <= 5; slot++ {
		base, _ := SlotTime(VariantRegular, slot)
		for _, v := range []Variant{VariantShifted, VariantEvening} {
			r, ok := SlotTime(v, slot)
			if !ok || r != base {
				t.Fatalf("slot %d differs for variant %q: %v vs %v", slot, v, r, base)
			}
		}
	}
}

func TestClock(t *testing.T) {
	if got := Clock(540); got != "09:00" {
		t.Fatalf("Clock(540) = %q", got)
	}
	if got := Clock(1260); got != "21:00" {
		t.Fatalf("Clock(1260) = %q", got)
	}
	if got := Clock(635); got != "10:35" {
		t.Fatalf("Clock(635) = %q", got)
	}
}
