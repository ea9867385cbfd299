package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/blueprint/internal/calendar"
	"github.com/rcliao/blueprint/internal/domain"
	"github.com/rcliao/blueprint/internal/export"
	"github.com/rcliao/blueprint/internal/schedule"
	"github.com/rcliao/blueprint/internal/search"
	"github.com/rcliao/blueprint/internal/service"
)

var (
	ErrUnknownMethod = errors.New("unknown method")
	ErrInvalidParams = errors.New("invalid parameters")
)

type MCPServer struct {
	proposalService *service.ProposalService
	summaryService  *service.ProposalSummaryService
	ganttService    *service.GanttService
	searchService   *service.SearchService
	headers         *service.HeaderGenerator
	logger          *zap.Logger
	now             func() time.Time
}

func NewMCPServer(proposalService *service.ProposalService, searchService *service.SearchService, logger *zap.Logger) *MCPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MCPServer{
		proposalService: proposalService,
		summaryService:  service.NewProposalSummaryService(proposalService),
		ganttService:    service.NewGanttService(proposalService),
		searchService:   searchService,
		headers:         service.NewHeaderGenerator(0),
		logger:          logger,
		now:             time.Now,
	}
}

func (s *MCPServer) HandleCommand(method string, params json.RawMessage) (interface{}, error) {
	s.logger.Debug("handling command", zap.String("method", method))

	switch method {
	// Proposal commands
	case "blueprint.proposal.create":
		return s.handleProposalCreate(params)
	case "blueprint.proposal.sample":
		return s.handleProposalSample(params)
	case "blueprint.proposal.list":
		return s.handleProposalList(params)
	case "blueprint.proposal.get":
		return s.handleProposalGet(params)
	case "blueprint.proposal.current":
		return s.proposalService.GetCurrent()
	case "blueprint.proposal.set_current":
		return s.handleProposalSetCurrent(params)
	case "blueprint.proposal.delete":
		return s.handleProposalDelete(params)
	case "blueprint.proposal.summary":
		return s.handleProposalSummary(params)
	case "blueprint.proposal.import":
		return s.handleProposalImport(params)
	case "blueprint.proposal.save":
		return s.handleProposalSave(params)

	// Objective and task commands
	case "blueprint.objective.add":
		return s.handleObjectiveAdd(params)
	case "blueprint.task.add":
		return s.handleTaskAdd(params)
	case "blueprint.task.remove":
		return s.handleTaskRemove(params)
	case "blueprint.task.set_duration":
		return s.handleTaskSetDuration(params)
	case "blueprint.task.set_start":
		return s.handleTaskSetStart(params)

	// Schedule commands
	case "blueprint.schedule.set_sign_date":
		return s.handleScheduleSetSignDate(params)
	case "blueprint.schedule.recompute":
		return s.handleScheduleRecompute(params)
	case "blueprint.schedule.get":
		return s.handleScheduleGet(params)
	case "blueprint.schedule.gantt":
		return s.handleScheduleGantt(params)
	case "blueprint.schedule.export":
		return s.handleScheduleExport(params)

	case "blueprint.search":
		return s.handleSearch(params)

	// Calendar calculators
	case "blueprint.calendar.is_holiday":
		return s.handleCalendarIsHoliday(params)
	case "blueprint.calendar.next_working_day":
		return s.handleCalendarNextWorkingDay(params)
	case "blueprint.calendar.span":
		return s.handleCalendarSpan(params)
	case "blueprint.calendar.holidays":
		return s.handleCalendarHolidays(params)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
}

// Shutdown is called by the transport before the process exits.
func (s *MCPServer) Shutdown() {
	_ = s.logger.Sync()
}

func decode(params json.RawMessage, v interface{}) error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

func parseDate(field, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", ErrInvalidParams, field)
	}
	d, err := calendar.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %v", ErrInvalidParams, field, err)
	}
	return d, nil
}

// Proposal handlers
type CreateProposalParams struct {
	Name             string `json:"name"`
	Client           string `json:"client"`
	ContractSignDate string `json:"contractSignDate,omitempty"`
}

func (s *MCPServer) handleProposalCreate(params json.RawMessage) (interface{}, error) {
	var p CreateProposalParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}

	proposal := domain.NewProposal(p.Name, p.Client)
	if p.ContractSignDate != "" {
		sign, err := parseDate("contractSignDate", p.ContractSignDate)
		if err != nil {
			return nil, err
		}
		proposal.ContractSignDate = &sign
	}
	if err := s.proposalService.Create(proposal); err != nil {
		return nil, err
	}

	return proposal, nil
}

type SampleProposalParams struct {
	ContractSignDate string `json:"contractSignDate,omitempty"`
	Select           bool   `json:"select,omitempty"`
}

func (s *MCPServer) handleProposalSample(params json.RawMessage) (interface{}, error) {
	var p SampleProposalParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}

	proposal := domain.SampleProposal()
	if p.ContractSignDate != "" {
		sign, err := parseDate("contractSignDate", p.ContractSignDate)
		if err != nil {
			return nil, err
		}
		proposal.ContractSignDate = &sign
	}
	if err := s.proposalService.Create(proposal); err != nil {
		return nil, err
	}
	if p.Select {
		if err := s.proposalService.SetCurrent(proposal.ID); err != nil {
			return nil, err
		}
	}

	return proposal, nil
}

type ListProposalsParams struct {
	Client *string `json:"client,omitempty"`
	Format string  `json:"format,omitempty"`
}

func (s *MCPServer) handleProposalList(params json.RawMessage) (interface{}, error) {
	var p ListProposalsParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}

	proposals, err := s.proposalService.List(domain.ProposalFilter{Client: p.Client})
	if err != nil {
		return nil, err
	}
	if p.Format == export.FormatMarkdown {
		return FormatProposalsAsMarkdown(proposals), nil
	}
	return proposals, nil
}

// ProposalRef names a proposal; an empty ID means the current proposal.
type ProposalRef struct {
	ID string `json:"id,omitempty"`
}

func (s *MCPServer) handleProposalGet(params json.RawMessage) (interface{}, error) {
	var p ProposalRef
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	return s.proposalService.Get(p.ID)
}

func (s *MCPServer) handleProposalSetCurrent(params json.RawMessage) (interface{}, error) {
	var p ProposalRef
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidParams)
	}

	if err := s.proposalService.SetCurrent(p.ID); err != nil {
		return nil, err
	}

	return map[string]string{"status": "success"}, nil
}

func (s *MCPServer) handleProposalDelete(params json.RawMessage) (interface{}, error) {
	var p ProposalRef
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidParams)
	}

	if err := s.proposalService.Delete(p.ID); err != nil {
		return nil, err
	}

	return map[string]string{"status": "success"}, nil
}

type SummaryParams struct {
	ID     string `json:"id,omitempty"`
	Format string `json:"format,omitempty"`
}

func (s *MCPServer) handleProposalSummary(params json.RawMessage) (interface{}, error) {
	var p SummaryParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}

	summary, err := s.summaryService.GenerateProposalSummary(p.ID)
	if err != nil {
		return nil, err
	}
	if p.Format == export.FormatMarkdown {
		return FormatSummaryAsMarkdown(summary), nil
	}
	return summary, nil
}

type FileParams struct {
	ID   string `json:"id,omitempty"`
	Path string `json:"path"`
}

func (s *MCPServer) handleProposalImport(params json.RawMessage) (interface{}, error) {
	var p FileParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if p.Path == "" {
		return nil, fmt.Errorf("%w: path is required", ErrInvalidParams)
	}
	return s.proposalService.Import(p.Path)
}

func (s *MCPServer) handleProposalSave(params json.RawMessage) (interface{}, error) {
	var p FileParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if p.Path == "" {
		return nil, fmt.Errorf("%w: path is required", ErrInvalidParams)
	}
	if err := s.proposalService.Export(p.ID, p.Path); err != nil {
		return nil, err
	}
	return map[string]string{"status": "success", "path": p.Path}, nil
}

// Objective and task handlers
type AddObjectiveParams struct {
	ProposalID string `json:"proposalId,omitempty"`
	Name       string `json:"name"`
}

func (s *MCPServer) handleObjectiveAdd(params json.RawMessage) (interface{}, error) {
	var p AddObjectiveParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	return s.proposalService.AddObjective(p.ProposalID, p.Name)
}

type AddTaskParams struct {
	ProposalID  string `json:"proposalId,omitempty"`
	ObjectiveID string `json:"objectiveId"`
	Name        string `json:"name"`
	Duration    int    `json:"duration"`
	Predecessor string `json:"predecessor,omitempty"`
}

func (s *MCPServer) handleTaskAdd(params json.RawMessage) (interface{}, error) {
	var p AddTaskParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	return s.proposalService.AddTask(p.ProposalID, p.ObjectiveID, service.TaskInput{
		Name:        p.Name,
		Duration:    p.Duration,
		Predecessor: p.Predecessor,
	})
}

type TaskRef struct {
	ProposalID string `json:"proposalId,omitempty"`
	TaskID     string `json:"taskId"`
}

func (s *MCPServer) handleTaskRemove(params json.RawMessage) (interface{}, error) {
	var p TaskRef
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	return s.proposalService.RemoveTask(p.ProposalID, p.TaskID)
}

type SetDurationParams struct {
	ProposalID string `json:"proposalId,omitempty"`
	TaskID     string `json:"taskId"`
	Duration   *int   `json:"duration"`
}

func (s *MCPServer) handleTaskSetDuration(params json.RawMessage) (interface{}, error) {
	var p SetDurationParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if p.Duration == nil {
		return nil, fmt.Errorf("%w: duration is required", ErrInvalidParams)
	}
	return s.proposalService.SetTaskDuration(p.ProposalID, p.TaskID, *p.Duration)
}

type SetStartParams struct {
	ProposalID string `json:"proposalId,omitempty"`
	TaskID     string `json:"taskId"`
	Start      string `json:"start"`
}

func (s *MCPServer) handleTaskSetStart(params json.RawMessage) (interface{}, error) {
	var p SetStartParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	start, err := parseDate("start", p.Start)
	if err != nil {
		return nil, err
	}
	return s.proposalService.SetTaskStart(p.ProposalID, p.TaskID, start)
}

// Schedule handlers
type SetSignDateParams struct {
	ProposalID string `json:"proposalId,omitempty"`
	Date       string `json:"date"`
}

func (s *MCPServer) handleScheduleSetSignDate(params json.RawMessage) (interface{}, error) {
	var p SetSignDateParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	date, err := parseDate("date", p.Date)
	if err != nil {
		return nil, err
	}
	return s.proposalService.SetContractSignDate(p.ProposalID, date)
}

type ScheduleParams struct {
	ProposalID string `json:"proposalId,omitempty"`
	Format     string `json:"format,omitempty"`
}

func (s *MCPServer) handleScheduleRecompute(params json.RawMessage) (interface{}, error) {
	var p ScheduleParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	return s.proposalService.Recompute(p.ProposalID)
}

func (s *MCPServer) handleScheduleGet(params json.RawMessage) (interface{}, error) {
	var p ScheduleParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	proposal, err := s.proposalService.Get(p.ProposalID)
	if err != nil {
		return nil, err
	}
	return export.Rows(proposal), nil
}

func (s *MCPServer) handleScheduleGantt(params json.RawMessage) (interface{}, error) {
	var p ScheduleParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	chart, err := s.ganttService.Chart(p.ProposalID)
	if err != nil {
		return nil, err
	}
	if p.Format == "text" {
		return export.GanttText(*chart), nil
	}
	return chart, nil
}

func (s *MCPServer) handleScheduleExport(params json.RawMessage) (interface{}, error) {
	var p ScheduleParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	proposal, err := s.proposalService.Get(p.ProposalID)
	if err != nil {
		return nil, err
	}
	out, err := export.Render(proposal, p.Format, s.now(), s.headers.Generate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return out, nil
}

type SearchParams struct {
	Query      string  `json:"query"`
	ProposalID *string `json:"proposalId,omitempty"`
	Limit      int     `json:"limit,omitempty"`
	Offset     int     `json:"offset,omitempty"`
	Format     string  `json:"format,omitempty"`
}

func (s *MCPServer) handleSearch(params json.RawMessage) (interface{}, error) {
	var p SearchParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}

	if p.Offset < 0 || p.Limit < 0 {
		return nil, fmt.Errorf("%w: offset and limit must not be negative", ErrInvalidParams)
	}

	opts := search.Options{
		ProposalID: p.ProposalID,
		Limit:      p.Limit,
		Offset:     p.Offset,
	}
	if opts.Limit == 0 {
		opts.Limit = 10
	}

	results, err := s.searchService.Search(p.Query, opts)
	if err != nil {
		return nil, err
	}
	if p.Format == export.FormatMarkdown {
		return FormatSearchResultsAsMarkdown(p.Query, results), nil
	}
	return results, nil
}

// Calendar handlers
type DateParams struct {
	Date string `json:"date"`
}

type DayInfo struct {
	Date       string `json:"date"`
	Holiday    bool   `json:"holiday"`
	Weekend    bool   `json:"weekend"`
	WorkingDay bool   `json:"workingDay"`
}

func (s *MCPServer) handleCalendarIsHoliday(params json.RawMessage) (interface{}, error) {
	var p DateParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	date, err := parseDate("date", p.Date)
	if err != nil {
		return nil, err
	}
	cal := s.proposalService.Scheduler().Calendar()
	return DayInfo{
		Date:       date.Format(calendar.DateLayout),
		Holiday:    cal.IsHoliday(date),
		Weekend:    cal.IsWeekend(date),
		WorkingDay: cal.IsWorkingDay(date),
	}, nil
}

func (s *MCPServer) handleCalendarNextWorkingDay(params json.RawMessage) (interface{}, error) {
	var p DateParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	date, err := parseDate("date", p.Date)
	if err != nil {
		return nil, err
	}
	next := s.proposalService.Scheduler().Calendar().NextWorkingDay(date)
	return map[string]string{
		"date": date.Format(calendar.DateLayout),
		"next": next.Format(calendar.DateLayout),
	}, nil
}

type SpanParams struct {
	Start    string `json:"start"`
	Duration int    `json:"duration"`
}

type SpanResult struct {
	Start        string `json:"start"`
	Duration     int    `json:"duration"`
	CalendarDays int    `json:"calendarDays"`
	Finish       string `json:"finish"`
}

func (s *MCPServer) handleCalendarSpan(params json.RawMessage) (interface{}, error) {
	var p SpanParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	start, err := parseDate("start", p.Start)
	if err != nil {
		return nil, err
	}
	if p.Duration < 0 {
		return nil, fmt.Errorf("%w: duration %d", schedule.ErrNegativeDuration, p.Duration)
	}
	cal := s.proposalService.Scheduler().Calendar()
	return SpanResult{
		Start:        start.Format(calendar.DateLayout),
		Duration:     p.Duration,
		CalendarDays: cal.SpanCalendarDays(start, p.Duration),
		Finish:       cal.FinishDate(start, p.Duration).Format(calendar.DateLayout),
	}, nil
}

type HolidaysParams struct {
	Year int `json:"year"`
}

func (s *MCPServer) handleCalendarHolidays(params json.RawMessage) (interface{}, error) {
	var p HolidaysParams
	if err := decode(params, &p); err != nil {
		return nil, err
	}
	if p.Year == 0 {
		p.Year = s.now().Year()
	}
	return s.proposalService.Scheduler().Calendar().Holidays(p.Year), nil
}
