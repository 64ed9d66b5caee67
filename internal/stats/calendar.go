package stats

import (
	"fmt"
	"strings"
	"time"
)

// Calendar resolves day, week and month boundaries in one location.
type Calendar struct {
	Location     *time.Location
	FirstWeekday time.Weekday
}

// LocalCalendar uses the process time zone and Sunday-first weeks.
func LocalCalendar() Calendar {
	return Calendar{Location: time.Local, FirstWeekday: time.Sunday}
}

// ParseWeekday accepts full or three letter English weekday names.
func ParseWeekday(raw string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for day := time.Sunday; day <= time.Saturday; day++ {
		full := strings.ToLower(day.String())
		if name == full || name == full[:3] {
			return day, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", raw)
}

func (c Calendar) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// StartOfDay is local midnight of the day containing t.
func (c Calendar) StartOfDay(t time.Time) time.Time {
	loc := c.location()
	year, month, day := t.In(loc).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

func (c Calendar) SameDay(a, b time.Time) bool {
	loc := c.location()
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// StartOfWeek is local midnight of the first weekday on or before t.
func (c Calendar) StartOfWeek(t time.Time) time.Time {
	day := c.StartOfDay(t)
	offset := (int(day.Weekday()) - int(c.FirstWeekday) + 7) % 7
	return day.AddDate(0, 0, -offset)
}

func (c Calendar) SameMonth(a, b time.Time) bool {
	loc := c.location()
	ay, am, _ := a.In(loc).Date()
	by, bm, _ := b.In(loc).Date()
	return ay == by && am == bm
}
