package timetable

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Lesson is one occurrence in the weekly table. Several occurrences can share
// a slot (biweekly alternation, parallel sub-groups); validity bounds select
// which of them apply on a concrete date.
//
// Decoded once at the fetch boundary, immutable afterwards.
type Lesson struct {
	Subject   string   `json:"subject"`
	Kind      string   `json:"type,omitempty"`
	Teachers  []string `json:"teachers,omitempty"`
	Rooms     []string `json:"rooms,omitempty"`
	Location  string   `json:"location,omitempty"`
	Link      string   `json:"link,omitempty"`
	StartDate string   `json:"start_date,omitempty"` // YYYY-MM-DD, inclusive
	EndDate   string   `json:"end_date,omitempty"`   // YYYY-MM-DD, inclusive

	// Slot is filled during decoding from the enclosing map key.
	Slot int `json:"-"`
}

// Day maps slot number to the occurrences sharing it.
type Day map[int][]Lesson

// Week is a fetched schedule document: weekday name -> day table.
// Weekday keys are the seven lowercase English names.
type Week map[string]Day

// UnmarshalJSON accepts the upstream shape where slot numbers arrive as string
// keys, and stamps each lesson with its slot.
func (d *Day) UnmarshalJSON(b []byte) error {
	var raw map[string][]Lesson
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Day, len(raw))
	for k, lessons := range raw {
		slot, err := strconv.Atoi(k)
		if err != nil {
			// Non-numeric slot keys carry no schedulable time; skip.
			continue
		}
		for i := range lessons {
			lessons[i].Slot = slot
		}
		out[slot] = lessons
	}
	*d = out
	return nil
}

// Slots returns the day's slot numbers in ascending order.
func (d Day) Slots() []int {
	slots := make([]int, 0, len(d))
	for s := range d {
		slots = append(slots, s)
	}
	sort.Ints(slots)
	return slots
}
