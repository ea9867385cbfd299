package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	cal "github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

const (
	PresetMinimal   = "minimal"
	PresetUSFederal = "us-federal"
	PresetNone      = "none"
	monthDayLayout  = "MM-DD"
)

// Minimal is New Year's Day, Independence Day and Christmas Day.
func Minimal() []*cal.Holiday {
	return []*cal.Holiday{us.NewYear, us.IndependenceDay, us.ChristmasDay}
}

// USFederal is the full list of US federal holidays, including the floating ones.
func USFederal() []*cal.Holiday {
	return []*cal.Holiday{
		us.NewYear,
		us.MlkDay,
		us.PresidentsDay,
		us.MemorialDay,
		us.Juneteenth,
		us.IndependenceDay,
		us.LaborDay,
		us.ColumbusDay,
		us.VeteransDay,
		us.ThanksgivingDay,
		us.ChristmasDay,
	}
}

// Preset resolves a named holiday set.
func Preset(name string) ([]*cal.Holiday, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PresetMinimal:
		return Minimal(), nil
	case PresetUSFederal:
		return USFederal(), nil
	case PresetNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown holiday preset %q", name)
	}
}

// ParseMonthDay turns "MM-DD" (optionally "MM-DD Name") into a holiday that
// recurs on that date every year.
func ParseMonthDay(spec string) (*cal.Holiday, error) {
	spec = strings.TrimSpace(spec)
	datePart, name, _ := strings.Cut(spec, " ")
	parts := strings.Split(datePart, "-")
	if len(parts) != 2 {
		return nil, fmt.Errorf("holiday %q must be %s", spec, monthDayLayout)
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return nil, fmt.Errorf("holiday %q has an invalid month", spec)
	}
	day, err := strconv.Atoi(parts[1])
	if err != nil || day < 1 || day > daysIn(time.Month(month)) {
		return nil, fmt.Errorf("holiday %q has an invalid day", spec)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = datePart
	}
	return &cal.Holiday{
		Name:  name,
		Month: time.Month(month),
		Day:   day,
		Func:  cal.CalcDayOfMonth,
	}, nil
}

// FromConfig builds a calendar from a preset name plus extra MM-DD dates.
func FromConfig(preset string, extra []string) (*Calendar, error) {
	holidays, err := Preset(preset)
	if err != nil {
		return nil, err
	}
	c := New(holidays...)
	for _, spec := range extra {
		h, err := ParseMonthDay(spec)
		if err != nil {
			return nil, err
		}
		c.Add(h)
	}
	return c, nil
}

// daysIn uses a leap year so 02-29 stays expressible.
func daysIn(m time.Month) int {
	return time.Date(2024, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
