package telegram

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"raspbot/internal/schedule"
)

var (
	groupTokenRe   = regexp.MustCompile(`\b\d{3}-\d{3}\b`)
	teacherTokenRe = regexp.MustCompile(`(?:преп|t):(\S+)`)
	periodRe       = regexp.MustCompile(`\b(\d{1,2}\.\d{1,2}(?:\.\d{4})?)\s*-\s*(\d{1,2}\.\d{1,2}(?:\.\d{4})?)\b`)
	dateTokenRe    = regexp.MustCompile(`\b\d{1,2}\.\d{1,2}(?:\.\d{4})?\b`)
	durationRe     = regexp.MustCompile(`\b\d{1,3}\b`)
)

type compareArgs struct {
	refs        []schedule.EntityRef
	date        time.Time
	from, to    time.Time
	hasPeriod   bool
	minDuration int
}

// parseCompare extracts comparison arguments from free-form command text:
// group numbers (NNN-NNN), teachers ("преп:Фамилия_И_О"), an optional date or
// date period, and an optional minimal window length in minutes. Returns
// ok=false when fewer than two entities are named.
func parseCompare(text string, now time.Time) (compareArgs, bool) {
	out := compareArgs{date: now}

	for _, g := range groupTokenRe.FindAllString(text, -1) {
		out.refs = append(out.refs, schedule.EntityRef{Kind: schedule.KindGroup, ID: g})
	}
	rest := groupTokenRe.ReplaceAllString(text, "")

	for _, m := range teacherTokenRe.FindAllStringSubmatch(rest, -1) {
		name := strings.ReplaceAll(m[1], "_", " ")
		out.refs = append(out.refs, schedule.EntityRef{Kind: schedule.KindTeacher, ID: name})
	}
	rest = teacherTokenRe.ReplaceAllString(rest, "")

	if len(out.refs) < 2 {
		return compareArgs{}, false
	}

	if m := periodRe.FindStringSubmatch(rest); m != nil {
		from, ok1 := parseUserDate(m[1], now)
		to, ok2 := parseUserDate(m[2], now)
		if ok1 && ok2 {
			out.from, out.to = from, to
			out.hasPeriod = true
		}
		rest = periodRe.ReplaceAllString(rest, "")
	}
	if !out.hasPeriod {
		if m := dateTokenRe.FindString(rest); m != "" {
			if d, ok := parseUserDate(m, now); ok {
				out.date = d
			}
		}
	}
	rest = dateTokenRe.ReplaceAllString(rest, "")

	if m := durationRe.FindString(rest); m != "" {
		out.minDuration, _ = strconv.Atoi(m)
	}
	return out, true
}

// parseUserDate reads "DD.MM" or "DD.MM.YYYY"; a missing year means the
// current one.
func parseUserDate(s string, now time.Time) (time.Time, bool) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 2 && len(parts) != 3 {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, false
	}
	year := now.Year()
	if len(parts) == 3 {
		if year, err = strconv.Atoi(parts[2]); err != nil {
			return time.Time{}, false
		}
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
	// Reject normalized overflow like 31.02.
	if d.Day() != day || d.Month() != time.Month(month) {
		return time.Time{}, false
	}
	return d, true
}
