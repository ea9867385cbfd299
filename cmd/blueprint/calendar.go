package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/blueprint/internal/calendar"
	"github.com/rcliao/blueprint/internal/schedule"
)

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Working-day calculators",
}

var calendarNextCmd = &cobra.Command{
	Use:   "next [date]",
	Short: "Print the next working day after a date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cal, date, err := calendarAndDate(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), cal.NextWorkingDay(date).Format(calendar.DateLayout))
		return nil
	},
}

var calendarSpanCmd = &cobra.Command{
	Use:   "span [start] [working-days]",
	Short: "Print the calendar days and finish date covered by N working days",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cal, start, err := calendarAndDate(args[0])
		if err != nil {
			return err
		}
		duration, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("working days %q must be an integer", args[1])
		}
		if duration < 0 {
			return fmt.Errorf("%w: %d", schedule.ErrNegativeDuration, duration)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d calendar days, finish %s\n",
			cal.SpanCalendarDays(start, duration),
			cal.FinishDate(start, duration).Format(calendar.DateLayout))
		return nil
	},
}

var calendarHolidayCmd = &cobra.Command{
	Use:   "holiday [date]",
	Short: "Classify a date as holiday, weekend or working day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cal, date, err := calendarAndDate(args[0])
		if err != nil {
			return err
		}

		var kinds []string
		if cal.IsHoliday(date) {
			kinds = append(kinds, "holiday")
		}
		if cal.IsWeekend(date) {
			kinds = append(kinds, "weekend")
		}
		if len(kinds) == 0 {
			kinds = append(kinds, "working day")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %s\n",
			date.Format(calendar.DateLayout), date.Weekday(), strings.Join(kinds, ", "))
		return nil
	},
}

var calendarHolidaysCmd = &cobra.Command{
	Use:   "holidays [year]",
	Short: "List the holidays observed in a year",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("year %q must be an integer", args[0])
		}
		cal, err := cfg.BuildCalendar()
		if err != nil {
			return err
		}
		for _, h := range cal.Holidays(year) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", h.Date.Format(calendar.DateLayout), h.Name)
		}
		return nil
	},
}

func init() {
	calendarCmd.AddCommand(calendarNextCmd)
	calendarCmd.AddCommand(calendarSpanCmd)
	calendarCmd.AddCommand(calendarHolidayCmd)
	calendarCmd.AddCommand(calendarHolidaysCmd)
}

func calendarAndDate(arg string) (*calendar.Calendar, time.Time, error) {
	date, err := calendar.ParseDate(arg)
	if err != nil {
		return nil, time.Time{}, err
	}
	cal, err := cfg.BuildCalendar()
	if err != nil {
		return nil, time.Time{}, err
	}
	return cal, date, nil
}
