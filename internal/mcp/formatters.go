package mcp

import (
	"fmt"
	"strings"

	"github.com/rcliao/blueprint/internal/domain"
	"github.com/rcliao/blueprint/internal/search"
	"github.com/rcliao/blueprint/internal/service"
)

// FormatProposalsAsMarkdown formats a list of proposals as markdown
func FormatProposalsAsMarkdown(proposals []*domain.Proposal) string {
	if len(proposals) == 0 {
		return "📁 **No proposals found**\n\nCreate a new proposal with `blueprint.proposal.create`"
	}

	var sb strings.Builder
	sb.WriteString("# 📁 Proposals\n\n")

	for i, proposal := range proposals {
		sb.WriteString(fmt.Sprintf("## %d. %s", i+1, proposal.Name))
		if len(proposal.ID) > 8 {
			sb.WriteString(fmt.Sprintf(" `[%s]`", proposal.ID[:8]))
		}
		sb.WriteString("\n\n")

		if proposal.Client != "" {
			sb.WriteString(fmt.Sprintf("**Client:** %s\n\n", proposal.Client))
		}

		sb.WriteString(fmt.Sprintf("**Objectives:** %d, **Tasks:** %d\n\n", len(proposal.Objectives), proposal.TaskCount()))

		if proposal.ContractSignDate != nil {
			sb.WriteString(fmt.Sprintf("**Contract signed:** %s", proposal.ContractSignDate.Format("Jan 2, 2006")))
			if finish := proposal.Finish(); finish != nil {
				sb.WriteString(fmt.Sprintf(" → **Finish:** %s", finish.Format("Jan 2, 2006")))
			}
			sb.WriteString("\n\n")
		}

		sb.WriteString(fmt.Sprintf("**Created:** %s\n\n", proposal.CreatedAt.Format("Jan 2, 2006")))
		sb.WriteString("---\n\n")
	}

	return strings.TrimSpace(sb.String())
}

// FormatSummaryAsMarkdown formats a proposal summary as markdown
func FormatSummaryAsMarkdown(summary *service.ProposalSummary) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# 📊 %s\n\n", summary.Proposal.Name))

	sched := summary.Schedule
	sb.WriteString(fmt.Sprintf("**Tasks:** %d (%d scheduled, %d unscheduled, %d milestones)\n",
		sched.TotalTasks, sched.Scheduled, sched.Unscheduled, sched.Placeholders))
	sb.WriteString(fmt.Sprintf("**Working days:** %d\n", sched.WorkingDays))
	if sched.Start != nil && sched.Finish != nil {
		sb.WriteString(fmt.Sprintf("**Window:** %s → %s (%d calendar days)\n",
			sched.Start.Format("Jan 2, 2006"), sched.Finish.Format("Jan 2, 2006"), sched.CalendarDays))
	}

	if len(sched.Objectives) > 0 {
		sb.WriteString("\n## Objectives\n\n")
		for _, o := range sched.Objectives {
			sb.WriteString(fmt.Sprintf("- **%s. %s**: %d tasks, %d working days", o.Order, o.Name, o.Tasks, o.WorkingDays))
			if o.Start != nil && o.Finish != nil {
				sb.WriteString(fmt.Sprintf(" (%s → %s)", o.Start.Format("Jan 2"), o.Finish.Format("Jan 2, 2006")))
			}
			sb.WriteString("\n")
		}
	}

	if len(summary.Insights.HolidaysCrossed) > 0 {
		sb.WriteString("\n## 🎉 Holidays Skipped\n\n")
		for _, h := range summary.Insights.HolidaysCrossed {
			sb.WriteString(fmt.Sprintf("- %s (%s)\n", h.Name, h.Date.Format("Mon Jan 2, 2006")))
		}
	}

	if len(summary.Insights.Recommendations) > 0 {
		sb.WriteString("\n## 💡 Recommendations\n\n")
		for _, r := range summary.Insights.Recommendations {
			sb.WriteString(fmt.Sprintf("- %s\n", r))
		}
	}

	return strings.TrimSpace(sb.String())
}

// FormatSearchResultsAsMarkdown formats ranked search hits as markdown
func FormatSearchResultsAsMarkdown(query string, results []*search.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("🔍 **No tasks match** `%s`", query)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# 🔍 Results for `%s`\n\n", query))

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("%d. **%s.%s %s** in %s (score %.0f, %s)\n",
			i+1, r.ObjectiveOrder, r.Task.Order, r.Task.Name, r.ProposalName, r.Score, r.MatchType))
		if r.Snippet != "" {
			sb.WriteString(fmt.Sprintf("   %s\n", r.Snippet))
		}
	}

	return strings.TrimSpace(sb.String())
}
