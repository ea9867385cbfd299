package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"

	cal "github.com/rickar/cal/v2"
)

// Calendar answers working-day questions for a fixed holiday set. Weekends are
// always Saturday and Sunday.
type Calendar struct {
	holidays []*cal.Holiday
}

// New builds a calendar over the given holidays. With no holidays only weekends
// are skipped.
func New(holidays ...*cal.Holiday) *Calendar {
	c := &Calendar{}
	c.Add(holidays...)
	return c
}

// Default returns the calendar of the three fixed federal holidays.
func Default() *Calendar {
	return New(Minimal()...)
}

// Add extends the holiday set.
func (c *Calendar) Add(holidays ...*cal.Holiday) {
	for _, h := range holidays {
		if h == nil {
			continue
		}
		c.holidays = append(c.holidays, h)
	}
}

// IsHoliday reports whether t falls on one of the calendar's holidays. Only the
// actual date counts, never a weekend-shifted observance, and the time of day
// is ignored. Every holiday is checked, so one holiday's observance never
// hides another holiday's actual date.
func (c *Calendar) IsHoliday(t time.Time) bool {
	y, m, d := t.Date()
	for _, h := range c.holidays {
		actual, _ := h.Calc(y)
		if actual.IsZero() {
			continue
		}
		if actual.Month() == m && actual.Day() == d {
			return true
		}
	}
	return false
}

// IsWeekend reports whether t is a Saturday or Sunday.
func (c *Calendar) IsWeekend(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	return false
}

func (c *Calendar) IsWorkingDay(t time.Time) bool {
	return !c.IsWeekend(t) && !c.IsHoliday(t)
}

// NextWorkingDay advances at least one calendar day and keeps going until it
// lands on a working day.
func (c *Calendar) NextWorkingDay(t time.Time) time.Time {
	next := AddDays(t, 1)
	for !c.IsWorkingDay(next) {
		next = AddDays(next, 1)
	}
	return next
}

// SpanCalendarDays returns how many calendar days it takes, walking forward
// from the day after start, to cover workingDays working days. Zero or
// negative durations span nothing.
func (c *Calendar) SpanCalendarDays(start time.Time, workingDays int) int {
	if workingDays <= 0 {
		return 0
	}
	day := Truncate(start)
	elapsed, worked := 0, 0
	for worked < workingDays {
		day = AddDays(day, 1)
		elapsed++
		if c.IsWorkingDay(day) {
			worked++
		}
	}
	return elapsed
}

// FinishDate is start advanced by the calendar span of workingDays.
func (c *Calendar) FinishDate(start time.Time, workingDays int) time.Time {
	return AddDays(start, c.SpanCalendarDays(start, workingDays))
}

// Observance is a holiday resolved to a concrete date.
type Observance struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

// Holidays lists the actual holiday dates for a year in calendar order.
func (c *Calendar) Holidays(year int) []Observance {
	var out []Observance
	for _, h := range c.holidays {
		actual, _ := h.Calc(year)
		if actual.IsZero() {
			continue
		}
		out = append(out, Observance{Name: h.Name, Date: Truncate(actual)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// DateLayout is how dates are written everywhere outside the process.
const DateLayout = "2006-01-02"

// ParseDate reads a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must be YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

// Date builds a date-only value at midnight UTC.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate keeps the calendar date of t, in t's own location, and drops the
// time of day. The result is in UTC so day arithmetic never crosses DST.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// AddDays moves a date by n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return Truncate(t).AddDate(0, 0, n)
}

// DaysBetween counts calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Truncate(b).Sub(Truncate(a)).Hours() / 24)
}
