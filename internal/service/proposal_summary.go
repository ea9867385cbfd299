package service

import (
	"fmt"
	"time"

	"github.com/rcliao/blueprint/internal/calendar"
	"github.com/rcliao/blueprint/internal/domain"
)

type ProposalSummaryService struct {
	proposalService *ProposalService
}

func NewProposalSummaryService(proposalService *ProposalService) *ProposalSummaryService {
	return &ProposalSummaryService{
		proposalService: proposalService,
	}
}

type ProposalSummary struct {
	Proposal    *domain.Proposal  `json:"proposal"`
	Schedule    *ScheduleSummary  `json:"schedule"`
	Insights    *ProposalInsights `json:"insights"`
	GeneratedAt time.Time         `json:"generatedAt"`
}

type ScheduleSummary struct {
	TotalTasks   int                `json:"totalTasks"`
	Scheduled    int                `json:"scheduled"`
	Unscheduled  int                `json:"unscheduled"`
	Placeholders int                `json:"placeholders"`
	WorkingDays  int                `json:"workingDays"`
	CalendarDays int                `json:"calendarDays"`
	Start        *time.Time         `json:"start,omitempty"`
	Finish       *time.Time         `json:"finish,omitempty"`
	Objectives   []ObjectiveSummary `json:"objectives"`
}

type ObjectiveSummary struct {
	Order       string     `json:"order"`
	Name        string     `json:"name"`
	Tasks       int        `json:"tasks"`
	WorkingDays int        `json:"workingDays"`
	Start       *time.Time `json:"start,omitempty"`
	Finish      *time.Time `json:"finish,omitempty"`
}

type ProposalInsights struct {
	HolidaysCrossed []calendar.Observance `json:"holidaysCrossed"`
	EmptyObjectives []string              `json:"emptyObjectives"`
	Recommendations []string              `json:"recommendations"`
}

func (pss *ProposalSummaryService) GenerateProposalSummary(proposalID string) (*ProposalSummary, error) {
	proposal, err := pss.proposalService.Get(proposalID)
	if err != nil {
		return nil, err
	}

	summary := pss.generateScheduleSummary(proposal)
	insights := pss.generateInsights(proposal, summary)

	return &ProposalSummary{
		Proposal:    proposal,
		Schedule:    summary,
		Insights:    insights,
		GeneratedAt: time.Now(),
	}, nil
}

func (pss *ProposalSummaryService) generateScheduleSummary(p *domain.Proposal) *ScheduleSummary {
	summary := &ScheduleSummary{
		Objectives: make([]ObjectiveSummary, 0, len(p.Objectives)),
	}

	for _, o := range p.Objectives {
		objSummary := ObjectiveSummary{Order: o.Order, Name: o.Name, Tasks: len(o.Tasks)}
		for _, t := range o.Tasks {
			summary.TotalTasks++
			summary.WorkingDays += t.Duration
			objSummary.WorkingDays += t.Duration
			if t.Duration == 0 {
				summary.Placeholders++
			}
			if !t.Scheduled() {
				summary.Unscheduled++
				continue
			}
			summary.Scheduled++
			if objSummary.Start == nil || t.Start.Before(*objSummary.Start) {
				objSummary.Start = t.Start
			}
			if objSummary.Finish == nil || t.Finish.After(*objSummary.Finish) {
				objSummary.Finish = t.Finish
			}
		}
		if objSummary.Start != nil && (summary.Start == nil || objSummary.Start.Before(*summary.Start)) {
			summary.Start = objSummary.Start
		}
		if objSummary.Finish != nil && (summary.Finish == nil || objSummary.Finish.After(*summary.Finish)) {
			summary.Finish = objSummary.Finish
		}
		summary.Objectives = append(summary.Objectives, objSummary)
	}

	if summary.Start != nil && summary.Finish != nil {
		summary.CalendarDays = calendar.DaysBetween(*summary.Start, *summary.Finish) + 1
	}
	return summary
}

func (pss *ProposalSummaryService) generateInsights(p *domain.Proposal, summary *ScheduleSummary) *ProposalInsights {
	insights := &ProposalInsights{
		HolidaysCrossed: make([]calendar.Observance, 0),
		EmptyObjectives: make([]string, 0),
		Recommendations: make([]string, 0),
	}

	for _, o := range p.Objectives {
		if len(o.Tasks) == 0 {
			insights.EmptyObjectives = append(insights.EmptyObjectives, o.Order)
		}
	}

	if summary.Start != nil && summary.Finish != nil {
		insights.HolidaysCrossed = pss.holidaysBetween(*summary.Start, *summary.Finish)
	}

	insights.Recommendations = pss.generateRecommendations(p, summary, insights)
	return insights
}

// holidaysBetween lists weekday holidays inside the schedule window; those are
// the days the schedule skipped beyond weekends.
func (pss *ProposalSummaryService) holidaysBetween(start, finish time.Time) []calendar.Observance {
	cal := pss.proposalService.Scheduler().Calendar()
	crossed := make([]calendar.Observance, 0)
	for year := start.Year(); year <= finish.Year(); year++ {
		for _, h := range cal.Holidays(year) {
			if h.Date.Before(start) || h.Date.After(finish) || cal.IsWeekend(h.Date) {
				continue
			}
			crossed = append(crossed, h)
		}
	}
	return crossed
}

func (pss *ProposalSummaryService) generateRecommendations(p *domain.Proposal, summary *ScheduleSummary, insights *ProposalInsights) []string {
	recommendations := make([]string, 0)

	if p.ContractSignDate == nil && summary.TotalTasks > 0 {
		recommendations = append(recommendations, fmt.Sprintf("Set a contract sign date to schedule %d tasks", summary.TotalTasks))
	}

	if summary.Placeholders > 0 {
		recommendations = append(recommendations, fmt.Sprintf("%d tasks have a zero-day duration - confirm they are milestones", summary.Placeholders))
	}

	if len(insights.EmptyObjectives) > 0 {
		recommendations = append(recommendations, fmt.Sprintf("Add tasks to empty objectives: %v", insights.EmptyObjectives))
	}

	if len(insights.HolidaysCrossed) > 0 {
		recommendations = append(recommendations, fmt.Sprintf("Schedule skips %d holidays - review client availability around them", len(insights.HolidaysCrossed)))
	}

	if len(recommendations) == 0 {
		recommendations = append(recommendations, "Proposal schedule is complete")
	}

	return recommendations
}
