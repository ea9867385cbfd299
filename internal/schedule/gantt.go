package schedule

import (
	"time"

	"github.com/rcliao/blueprint/internal/calendar"
	"github.com/rcliao/blueprint/internal/domain"
)

// Bar is one task drawn on a Gantt chart. Offset and Length are calendar days;
// Offset counts from the chart start.
type Bar struct {
	ObjectiveOrder string    `json:"objectiveOrder"`
	ObjectiveName  string    `json:"objectiveName"`
	TaskID         string    `json:"taskId"`
	TaskOrder      string    `json:"taskOrder"`
	TaskName       string    `json:"taskName"`
	Start          time.Time `json:"start"`
	Finish         time.Time `json:"finish"`
	Offset         int       `json:"offset"`
	Length         int       `json:"length"`
	WorkingDays    int       `json:"workingDays"`
}

type Chart struct {
	Start     time.Time `json:"start"`
	Finish    time.Time `json:"finish"`
	TotalDays int       `json:"totalDays"`
	Bars      []Bar     `json:"bars"`
}

// Gantt projects scheduled tasks onto a chart. Unscheduled tasks are left out.
func Gantt(objectives []domain.Objective) Chart {
	chart := Chart{Bars: make([]Bar, 0)}

	for _, o := range objectives {
		for _, t := range o.Tasks {
			if !t.Scheduled() {
				continue
			}
			start, finish := calendar.Truncate(*t.Start), calendar.Truncate(*t.Finish)
			if len(chart.Bars) == 0 || start.Before(chart.Start) {
				chart.Start = start
			}
			if finish.After(chart.Finish) {
				chart.Finish = finish
			}
			chart.Bars = append(chart.Bars, Bar{
				ObjectiveOrder: o.Order,
				ObjectiveName:  o.Name,
				TaskID:         t.ID,
				TaskOrder:      t.Order,
				TaskName:       t.Name,
				Start:          start,
				Finish:         finish,
				Length:         calendar.DaysBetween(start, finish),
				WorkingDays:    t.Duration,
			})
		}
	}

	for i := range chart.Bars {
		chart.Bars[i].Offset = calendar.DaysBetween(chart.Start, chart.Bars[i].Start)
	}
	if len(chart.Bars) > 0 {
		chart.TotalDays = calendar.DaysBetween(chart.Start, chart.Finish)
	}
	return chart
}
