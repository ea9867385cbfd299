package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreset(t *testing.T) {
	minimal, err := Preset("")
	require.NoError(t, err)
	assert.Len(t, minimal, 3)

	federal, err := Preset(PresetUSFederal)
	require.NoError(t, err)
	assert.Len(t, federal, 11)

	none, err := Preset(PresetNone)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = Preset("lunar")
	assert.Error(t, err)
}

func TestUSFederal_FloatingHolidays(t *testing.T) {
	c := New(USFederal()...)

	assert.True(t, c.IsHoliday(Date(2024, 11, 28)), "thanksgiving")
	assert.True(t, c.IsHoliday(Date(2024, 1, 15)), "mlk day")
	assert.False(t, c.IsHoliday(Date(2024, 11, 21)))
}

func TestParseMonthDay(t *testing.T) {
	h, err := ParseMonthDay("11-11 Veterans Day")
	require.NoError(t, err)
	assert.Equal(t, "Veterans Day", h.Name)
	assert.Equal(t, time.November, h.Month)
	assert.Equal(t, 11, h.Day)

	h, err = ParseMonthDay("02-29")
	require.NoError(t, err)
	assert.Equal(t, "02-29", h.Name)

	for _, bad := range []string{"", "13-01", "00-10", "04-31", "4/1", "aa-bb", "01-02-03"} {
		_, err := ParseMonthDay(bad)
		assert.Error(t, err, bad)
	}
}

func TestFromConfig(t *testing.T) {
	c, err := FromConfig(PresetMinimal, []string{"12-24 Christmas Eve"})
	require.NoError(t, err)

	assert.True(t, c.IsHoliday(Date(2024, 12, 24)))
	assert.True(t, c.IsHoliday(Date(2024, 12, 25)))
	assert.Equal(t, Date(2024, 12, 26), c.NextWorkingDay(Date(2024, 12, 23)))

	_, err = FromConfig("bogus", nil)
	assert.Error(t, err)

	_, err = FromConfig(PresetMinimal, []string{"99-99"})
	assert.Error(t, err)
}

func TestFromConfig_ExtraHolidayOnAnotherObservance(t *testing.T) {
	c, err := FromConfig(PresetMinimal, []string{"07-03", "12-24"})
	require.NoError(t, err)

	// July 4, 2020 is a Saturday, observed Friday July 3
	assert.True(t, c.IsHoliday(Date(2020, 7, 3)))
	assert.Equal(t, Date(2020, 7, 6), c.NextWorkingDay(Date(2020, 7, 2)))

	// Christmas 2021 is a Saturday, observed Friday December 24
	assert.True(t, c.IsHoliday(Date(2021, 12, 24)))
	assert.True(t, c.IsHoliday(Date(2024, 7, 3)))

	// The built-in observance alone still does not count
	assert.False(t, Default().IsHoliday(Date(2020, 7, 3)))
}
