// Package timetable implements the schedule comparison engine: per-date lesson
// selection, busy-interval construction, location timelines and multi-entity
// free-window intersection.
//
// Everything in this package is pure and allocation-only. It performs no I/O,
// holds no shared state and is safe to call concurrently for independent
// inputs. Fetching and caching of schedule documents live elsewhere
// (internal/raspyx, internal/schedcache).
package timetable
