package timetable

// Variant names a bell-schedule table. The university runs three: the regular
// one and two modified calendars that shift the evening slots.
type Variant string

const (
	VariantRegular  Variant = "0"
	VariantShifted  Variant = "1" // evening slots start 18:20
	VariantEvening  Variant = "2" // evening slots start 18:30
	VariantFallback         = VariantRegular
)

// slotGrids maps variant -> slot number -> clock range. The variants differ
// only in slots 6-7.
var slotGrids = map[Variant]map[int]ClockRange{
	VariantRegular: {
		1: {540, 630},   // 09:00-10:30
		2: {640, 730},   // 10:40-12:10
		3: {740, 830},   // 12:20-13:50
		4: {870, 960},   // 14:30-16:00
		5: {970, 1060},  // 16:10-17:40
		6: {1070, 1160}, // 17:50-19:20
		7: {1170, 1260}, // 19:30-21:00
	},
	VariantShifted: {
		1: {540, 630},
		2: {640, 730},
		3: {740, 830},
		4: {870, 960},
		5: {970, 1060},
		6: {1100, 1180}, // 18:20-19:40
		7: {1190, 1270}, // 19:50-21:10
	},
	VariantEvening: {
		1: {540, 630},
		2: {640, 730},
		3: {740, 830},
		4: {870, 960},
		5: {970, 1060},
		6: {1110, 1200}, // 18:30-20:00
		7: {1210, 1300}, // 20:10-21:40
	},
}

// SlotTime resolves (variant, slot) to a clock range. A miss means the lesson
// cannot be placed in time; callers drop such lessons rather than fail.
func SlotTime(v Variant, slot int) (ClockRange, bool) {
	grid, ok := slotGrids[v]
	if !ok {
		return ClockRange{}, false
	}
	r, ok := grid[slot]
	return r, ok
}
