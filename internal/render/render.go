// Package render turns schedule views into Telegram message text. Output is
// plain text with emoji markers; the transport sends it without a parse mode
// so user-supplied subject names need no escaping.
package render

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"raspbot/internal/schedule"
	"raspbot/internal/timetable"
)

var weekdayRu = [...]string{
	time.Sunday:    "Воскресенье",
	time.Monday:    "Понедельник",
	time.Tuesday:   "Вторник",
	time.Wednesday: "Среда",
	time.Thursday:  "Четверг",
	time.Friday:    "Пятница",
	time.Saturday:  "Суббота",
}

const dateRu = "02.01.2006"

func upperFirst(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func Weekday(d time.Time) string { return weekdayRu[d.Weekday()] }

func dateLine(d time.Time) string {
	return fmt.Sprintf("📅 %s (%s)", d.Format(dateRu), Weekday(d))
}

// Lesson renders one lesson block: time, subject with kind, teachers, rooms
// or online link, location.
func Lesson(l schedule.ResolvedLesson) string {
	var b strings.Builder

	if l.TimeKnown {
		fmt.Fprintf(&b, "🕐 %s\n", l.Time)
	} else {
		fmt.Fprintf(&b, "🕐 пара %d\n", l.Slot)
	}

	b.WriteString("📚 " + l.Subject)
	if l.Kind != "" {
		fmt.Fprintf(&b, " (%s)", l.Kind)
	}
	b.WriteString("\n")

	if len(l.Teachers) > 0 {
		fmt.Fprintf(&b, "👨‍🏫 %s\n", strings.Join(l.Teachers, ", "))
	}

	online := strings.HasPrefix(l.Link, "http://") || strings.HasPrefix(l.Link, "https://")
	switch {
	case len(l.Rooms) > 0 && online:
		fmt.Fprintf(&b, "💻 Онлайн: %s\n", l.Link)
	case len(l.Rooms) > 0:
		fmt.Fprintf(&b, "🏛 %s", strings.Join(l.Rooms, ", "))
		if l.Location != "" {
			fmt.Fprintf(&b, " (%s)", l.Location)
		}
		b.WriteString("\n")
	case l.Location != "":
		fmt.Fprintf(&b, "🏛 %s\n", l.Location)
	}
	if online && len(l.Rooms) == 0 {
		fmt.Fprintf(&b, "🔗 %s\n", l.Link)
	}

	return b.String()
}

// Day renders a full-day schedule, including holiday and no-classes cases.
func Day(d *schedule.DaySchedule) string {
	if d.Holiday != "" {
		return fmt.Sprintf("🎉 %s - %s!\nЗанятий нет.", d.Date.Format(dateRu), d.Holiday)
	}
	if len(d.Lessons) == 0 {
		return dateLine(d.Date) + "\n\nЗанятий нет 🎉"
	}

	var b strings.Builder
	b.WriteString(dateLine(d.Date) + "\n")
	fmt.Fprintf(&b, "%s\n\n", upperFirst(d.Ref.String()))
	for _, l := range d.Lessons {
		b.WriteString(Lesson(l) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Current renders the now-playing view.
func Current(l *schedule.ResolvedLesson, hasLessons bool) string {
	if l == nil {
		if !hasLessons {
			return "📚 Сегодня занятий нет"
		}
		return "📚 Сейчас занятий нет"
	}
	return "▶️ Сейчас идет:\n" + Lesson(*l)
}

// windowLabel explains where a shared window can happen. Transit never
// reaches output: the engine rejects those slices.
func windowLabel(lab timetable.Label) string {
	switch lab.Kind {
	case timetable.Unconstrained:
		return "все свободны, можно выбрать любую локацию"
	case timetable.LocationKnown:
		return "все в " + lab.Loc
	case timetable.LocationUnknown:
		return "локация занятий не указана"
	default:
		return lab.String()
	}
}

func windowLine(w schedule.Window) string {
	return fmt.Sprintf("🕐 %s - %s (%d мин) — %s\n",
		w.StartClock, w.EndClock, w.DurationMin, windowLabel(w.Label))
}

func noWindowsLine(minDuration int) string {
	if minDuration > 0 {
		return fmt.Sprintf("❌ Нет общих свободных окон длительностью от %d минут\n", minDuration)
	}
	return "❌ Нет общих свободных окон\n"
}

// Comparison renders a single-date comparison: the shared windows followed by
// each entity's lesson list for context.
func Comparison(c *schedule.Comparison) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 Сравнение расписаний на %s\n", c.Date.Format(dateRu))
	names := make([]string, len(c.Entities))
	for i, e := range c.Entities {
		names[i] = e.Ref.ID
	}
	fmt.Fprintf(&b, "Участники: %s\n", strings.Join(names, ", "))
	if c.MinDuration > 0 {
		fmt.Fprintf(&b, "Минимальная длительность окна: %d мин\n", c.MinDuration)
	}
	b.WriteString("📍 Учитываются локации корпусов\n\n")

	if len(c.Windows) > 0 {
		b.WriteString("✅ Общие свободные окна:\n")
		for _, w := range c.Windows {
			b.WriteString(windowLine(w))
		}
	} else {
		b.WriteString(noWindowsLine(c.MinDuration))
	}

	b.WriteString("\n📚 Расписание участников:\n\n")
	for _, e := range c.Entities {
		fmt.Fprintf(&b, "%s:\n", upperFirst(e.Ref.String()))
		if len(e.Lessons) == 0 {
			b.WriteString("  Занятий нет\n")
		}
		for _, l := range e.Lessons {
			loc := l.Location
			if loc == "" && len(l.Rooms) > 0 {
				loc = l.Rooms[0]
			}
			if loc != "" {
				loc = " [" + loc + "]"
			}
			t := "пара " + fmt.Sprint(l.Slot)
			if l.TimeKnown {
				t = l.Time.String()
			}
			fmt.Fprintf(&b, "  %s: %s%s\n", t, l.Subject, loc)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Period renders a bounded-period comparison; dates without windows are
// already omitted by the service.
func Period(p *schedule.PeriodComparison) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 Сравнение расписаний за период %s - %s\n",
		p.From.Format(dateRu), p.To.Format(dateRu))
	names := make([]string, len(p.Refs))
	for i, r := range p.Refs {
		names[i] = r.ID
	}
	fmt.Fprintf(&b, "Участники: %s\n", strings.Join(names, ", "))
	if p.MinDuration > 0 {
		fmt.Fprintf(&b, "Минимальная длительность окна: %d мин\n", p.MinDuration)
	}
	b.WriteString("📍 Учитываются локации корпусов\n")

	if len(p.Days) == 0 {
		b.WriteString("\n" + noWindowsLine(p.MinDuration))
		return strings.TrimRight(b.String(), "\n")
	}
	for _, day := range p.Days {
		b.WriteString("\n" + dateLine(day.Date) + "\n")
		for _, w := range day.Windows {
			b.WriteString(windowLine(w))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
