package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/blueprint/internal/domain"
	"github.com/rcliao/blueprint/internal/schedule"
)

const (
	displayDate = "Jan 2, 2006"
	// ganttWidth caps the bar area; longer schedules are scaled down.
	ganttWidth = 60
)

// Markdown renders a proposal's schedule as per-objective tables followed by
// a text Gantt chart.
func Markdown(p *domain.Proposal) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# 📐 %s\n\n", p.Name))

	if p.Client != "" {
		sb.WriteString(fmt.Sprintf("**Client:** %s\n", p.Client))
	}
	if p.ContractSignDate != nil {
		sb.WriteString(fmt.Sprintf("**Contract signed:** %s\n", p.ContractSignDate.Format(displayDate)))
	} else {
		sb.WriteString("**Contract signed:** _not set_\n")
	}
	if finish := p.Finish(); finish != nil {
		sb.WriteString(fmt.Sprintf("**Finish:** %s\n", finish.Format(displayDate)))
	}
	sb.WriteString("\n")

	if len(p.Objectives) == 0 {
		sb.WriteString("_No objectives yet._\n")
		return strings.TrimSpace(sb.String())
	}

	for _, o := range p.Objectives {
		sb.WriteString(fmt.Sprintf("## %s. %s\n\n", o.Order, o.Name))
		if len(o.Tasks) == 0 {
			sb.WriteString("_No tasks._\n\n")
			continue
		}

		sb.WriteString("| # | Task | Days | Start | Finish |\n")
		sb.WriteString("|---|------|-----:|-------|--------|\n")
		for _, t := range o.Tasks {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s | %s |\n",
				t.Order, escapeCell(t.Name), t.Duration, formatDate(t.Start), formatDate(t.Finish)))
		}
		sb.WriteString("\n")
	}

	if chart := schedule.Gantt(p.Objectives); len(chart.Bars) > 0 {
		sb.WriteString("## 📊 Gantt\n\n")
		sb.WriteString(GanttText(chart))
	}

	return strings.TrimSpace(sb.String())
}

// GanttText draws one bar per task, one column per calendar day.
func GanttText(chart schedule.Chart) string {
	if len(chart.Bars) == 0 {
		return ""
	}

	days := chart.TotalDays + 1
	scale := 1.0
	if days > ganttWidth {
		scale = float64(ganttWidth) / float64(days)
	}
	width := int(float64(days)*scale + 0.5)

	labels := make([]string, len(chart.Bars))
	labelWidth := 0
	for i, bar := range chart.Bars {
		labels[i] = fmt.Sprintf("%s.%s %s", bar.ObjectiveOrder, bar.TaskOrder, bar.TaskName)
		if len(labels[i]) > labelWidth {
			labelWidth = len(labels[i])
		}
	}

	var sb strings.Builder
	sb.WriteString("```\n")
	sb.WriteString(fmt.Sprintf("%-*s  %s .. %s\n", labelWidth, "", chart.Start.Format(displayDate), chart.Finish.Format(displayDate)))
	for i, bar := range chart.Bars {
		from := int(float64(bar.Offset) * scale)
		to := int(float64(bar.Offset+bar.Length+1)*scale + 0.5)
		if to <= from {
			to = from + 1
		}
		if to > width {
			to = width
		}
		line := strings.Repeat(" ", from) + strings.Repeat("█", to-from) + strings.Repeat(" ", width-to)
		sb.WriteString(fmt.Sprintf("%-*s |%s|\n", labelWidth, labels[i], line))
	}
	sb.WriteString("```\n")
	return sb.String()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(displayDate)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
