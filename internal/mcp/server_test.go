package mcp

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/blueprint/internal/calendar"
	"github.com/rcliao/blueprint/internal/domain"
	"github.com/rcliao/blueprint/internal/events"
	"github.com/rcliao/blueprint/internal/export"
	"github.com/rcliao/blueprint/internal/schedule"
	"github.com/rcliao/blueprint/internal/search"
	"github.com/rcliao/blueprint/internal/service"
	"github.com/rcliao/blueprint/internal/storage"
)

func newTestServer(t *testing.T) *MCPServer {
	t.Helper()
	memStorage := storage.NewMemoryStorage()
	proposalService := service.NewProposalService(memStorage, schedule.New(calendar.Default()), events.NewBus(), nil)
	server := NewMCPServer(proposalService, service.NewSearchService(memStorage), nil)
	server.now = func() time.Time { return time.Date(2024, time.January, 2, 12, 0, 0, 0, time.UTC) }
	return server
}

func call(t *testing.T, server *MCPServer, method string, params interface{}) interface{} {
	t.Helper()
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		require.NoError(t, err)
		raw = data
	}
	result, err := server.HandleCommand(method, raw)
	require.NoError(t, err, method)
	return result
}

func TestMCPServer_ProposalCommands(t *testing.T) {
	server := newTestServer(t)

	result := call(t, server, "blueprint.proposal.create", CreateProposalParams{
		Name:             "Library",
		Client:           "City",
		ContractSignDate: "2024-01-05",
	})
	proposal, ok := result.(*domain.Proposal)
	require.True(t, ok)
	require.NotNil(t, proposal.ContractSignDate)
	assert.Equal(t, calendar.Date(2024, time.January, 5), *proposal.ContractSignDate)

	call(t, server, "blueprint.proposal.set_current", ProposalRef{ID: proposal.ID})

	current, ok := call(t, server, "blueprint.proposal.current", nil).(*domain.Proposal)
	require.True(t, ok)
	assert.Equal(t, proposal.ID, current.ID)

	got, ok := call(t, server, "blueprint.proposal.get", nil).(*domain.Proposal)
	require.True(t, ok)
	assert.Equal(t, proposal.ID, got.ID)

	list, ok := call(t, server, "blueprint.proposal.list", nil).([]*domain.Proposal)
	require.True(t, ok)
	assert.Len(t, list, 1)

	md, ok := call(t, server, "blueprint.proposal.list", ListProposalsParams{Format: "markdown"}).(string)
	require.True(t, ok)
	assert.Contains(t, md, "## 1. Library")
	assert.Contains(t, md, "**Client:** City")

	call(t, server, "blueprint.proposal.delete", ProposalRef{ID: proposal.ID})
	_, err := server.HandleCommand("blueprint.proposal.current", nil)
	assert.ErrorIs(t, err, storage.ErrNoCurrent)
}

func TestMCPServer_BuildAndSchedule(t *testing.T) {
	server := newTestServer(t)

	proposal := call(t, server, "blueprint.proposal.create", CreateProposalParams{Name: "Chain"}).(*domain.Proposal)
	call(t, server, "blueprint.proposal.set_current", ProposalRef{ID: proposal.ID})

	a := call(t, server, "blueprint.objective.add", AddObjectiveParams{Name: "Design"}).(*domain.Objective)
	b := call(t, server, "blueprint.objective.add", AddObjectiveParams{Name: "Build"}).(*domain.Objective)
	first := call(t, server, "blueprint.task.add", AddTaskParams{ObjectiveID: a.ID, Name: "Survey", Duration: 3}).(*domain.Task)
	call(t, server, "blueprint.task.add", AddTaskParams{ObjectiveID: a.ID, Name: "Review", Duration: 0, Predecessor: "Survey"})
	call(t, server, "blueprint.task.add", AddTaskParams{ObjectiveID: a.ID, Name: "Drawings", Duration: 2})
	call(t, server, "blueprint.task.add", AddTaskParams{ObjectiveID: b.ID, Name: "Mobilize", Duration: 1})

	call(t, server, "blueprint.schedule.set_sign_date", SetSignDateParams{Date: "2024-01-05"})

	rows := call(t, server, "blueprint.schedule.get", nil).([]*export.Row)
	require.Len(t, rows, 4)
	assert.Equal(t, "2024-01-05", rows[0].Start)
	assert.Equal(t, "2024-01-10", rows[0].Finish)
	assert.Equal(t, "2024-01-17", rows[3].Start)
	assert.Equal(t, "2024-01-18", rows[3].Finish)

	five := 5
	updated := call(t, server, "blueprint.task.set_duration", SetDurationParams{TaskID: first.ID, Duration: &five}).(*domain.Proposal)
	assert.Equal(t, calendar.Date(2024, time.January, 22), *updated.Objectives[1].Tasks[0].Finish)

	updated = call(t, server, "blueprint.task.set_start", SetStartParams{TaskID: first.ID, Start: "2024-01-08"}).(*domain.Proposal)
	assert.Equal(t, calendar.Date(2024, time.January, 15), *updated.Objectives[0].Tasks[0].Finish)

	updated = call(t, server, "blueprint.schedule.recompute", nil).(*domain.Proposal)
	assert.Equal(t, calendar.Date(2024, time.January, 12), *updated.Objectives[0].Tasks[0].Finish)

	chart := call(t, server, "blueprint.schedule.gantt", nil).(*schedule.Chart)
	assert.Len(t, chart.Bars, 4)
	text := call(t, server, "blueprint.schedule.gantt", ScheduleParams{Format: "text"}).(string)
	assert.Contains(t, text, "A.1 Survey")

	ics := call(t, server, "blueprint.schedule.export", ScheduleParams{Format: "ics"}).(string)
	ics = strings.ReplaceAll(ics, "\r\n ", "")
	assert.Contains(t, ics, "DTSTAMP:20240102T120000Z")
	assert.Contains(t, ics, "DESCRIPTION:Part of A. Design. Task 2: Review. Follows: Survey. Milestone.")

	updated = call(t, server, "blueprint.task.remove", TaskRef{TaskID: first.ID}).(*domain.Proposal)
	assert.Len(t, updated.Objectives[0].Tasks, 2)

	summary := call(t, server, "blueprint.proposal.summary", SummaryParams{Format: "markdown"}).(string)
	assert.Contains(t, summary, "# 📊 Chain")
	assert.Contains(t, summary, "**Tasks:** 3 (3 scheduled, 0 unscheduled, 1 milestones)")
}

func TestMCPServer_Sample(t *testing.T) {
	server := newTestServer(t)

	proposal := call(t, server, "blueprint.proposal.sample", SampleProposalParams{ContractSignDate: "2024-01-06", Select: true}).(*domain.Proposal)
	assert.Equal(t, 12, proposal.TaskCount())
	assert.Equal(t, calendar.Date(2024, time.January, 8), *proposal.Objectives[0].Tasks[0].Start)

	results := call(t, server, "blueprint.search", SearchParams{Query: "owner", Format: "markdown"}).(string)
	assert.Contains(t, results, "**A.5 Owner review**")
	assert.Contains(t, results, "**B.4 Owner approval**")

	csv := call(t, server, "blueprint.schedule.export", ScheduleParams{Format: "csv"}).(string)
	assert.Equal(t, 13, len(strings.Split(strings.TrimSpace(csv), "\n")))
}

func TestMCPServer_CalendarCommands(t *testing.T) {
	server := newTestServer(t)

	day := call(t, server, "blueprint.calendar.is_holiday", DateParams{Date: "2024-07-04"}).(DayInfo)
	assert.True(t, day.Holiday)
	assert.False(t, day.Weekend)
	assert.False(t, day.WorkingDay)

	next := call(t, server, "blueprint.calendar.next_working_day", DateParams{Date: "2024-01-05"}).(map[string]string)
	assert.Equal(t, "2024-01-08", next["next"])

	span := call(t, server, "blueprint.calendar.span", SpanParams{Start: "2024-01-05", Duration: 3}).(SpanResult)
	assert.Equal(t, 5, span.CalendarDays)
	assert.Equal(t, "2024-01-10", span.Finish)

	holidays := call(t, server, "blueprint.calendar.holidays", nil).([]calendar.Observance)
	require.Len(t, holidays, 3)
	assert.Equal(t, calendar.Date(2024, time.January, 1), holidays[0].Date)
}

func TestMCPServer_Errors(t *testing.T) {
	server := newTestServer(t)

	_, err := server.HandleCommand("blueprint.unknown", nil)
	assert.ErrorIs(t, err, ErrUnknownMethod)

	_, err = server.HandleCommand("blueprint.calendar.span", json.RawMessage(`{"start":"01/05/2024","duration":3}`))
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = server.HandleCommand("blueprint.calendar.span", json.RawMessage(`{"start":`))
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = server.HandleCommand("blueprint.proposal.set_current", nil)
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = server.HandleCommand("blueprint.task.set_duration", json.RawMessage(`{"taskId":"x"}`))
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = server.HandleCommand("blueprint.proposal.get", json.RawMessage(`{"id":"missing"}`))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = server.HandleCommand("blueprint.schedule.export", json.RawMessage(`{"format":"pdf"}`))
	assert.Error(t, err)

	_, err = server.HandleCommand("blueprint.calendar.span", json.RawMessage(`{"start":"2024-01-05","duration":-1}`))
	assert.ErrorIs(t, err, schedule.ErrNegativeDuration)
}

func TestMCPServer_SearchRejectsNegativePaging(t *testing.T) {
	server := newTestServer(t)
	call(t, server, "blueprint.proposal.sample", SampleProposalParams{Select: true})

	_, err := server.HandleCommand("blueprint.search", json.RawMessage(`{"query":"survey","offset":-1,"limit":5}`))
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = server.HandleCommand("blueprint.search", json.RawMessage(`{"query":"survey","limit":-5}`))
	assert.ErrorIs(t, err, ErrInvalidParams)

	results := call(t, server, "blueprint.search", SearchParams{Query: "survey", Offset: 1, Limit: 5}).([]*search.Result)
	assert.Len(t, results, 1)
}
