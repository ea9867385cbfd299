package service

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/blueprint/internal/calendar"
	"github.com/rcliao/blueprint/internal/domain"
	"github.com/rcliao/blueprint/internal/events"
	"github.com/rcliao/blueprint/internal/schedule"
	"github.com/rcliao/blueprint/internal/storage"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]events.Kind, 0, len(r.events))
	for _, e := range r.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func newTestService(t *testing.T, opts ...schedule.Option) (*ProposalService, *recorder) {
	t.Helper()
	rec := &recorder{}
	bus := events.NewBus()
	bus.Subscribe(rec.handle)
	svc := NewProposalService(storage.NewMemoryStorage(), schedule.New(calendar.Default(), opts...), bus, nil)
	return svc, rec
}

// chainProposal builds objective A with durations 3, 0, 2 and B with 1.
func chainProposal(t *testing.T, svc *ProposalService) *domain.Proposal {
	t.Helper()
	p := domain.NewProposal("Chain", "Client")
	require.NoError(t, svc.Create(p))

	a, err := svc.AddObjective(p.ID, "Design")
	require.NoError(t, err)
	b, err := svc.AddObjective(p.ID, "Build")
	require.NoError(t, err)

	for _, d := range []int{3, 0, 2} {
		_, err := svc.AddTask(p.ID, a.ID, TaskInput{Name: "a", Duration: d})
		require.NoError(t, err)
	}
	_, err = svc.AddTask(p.ID, b.ID, TaskInput{Name: "b", Duration: 1})
	require.NoError(t, err)

	stored, err := svc.Get(p.ID)
	require.NoError(t, err)
	return stored
}

func spans(p *domain.Proposal) []string {
	out := make([]string, 0)
	for _, o := range p.Objectives {
		for _, t := range o.Tasks {
			if !t.Scheduled() {
				out = append(out, "-")
				continue
			}
			out = append(out, t.Start.Format(calendar.DateLayout)+".."+t.Finish.Format(calendar.DateLayout))
		}
	}
	return out
}

func TestProposalService_CreateAndSelect(t *testing.T) {
	svc, rec := newTestService(t)

	p := domain.NewProposal("Library", "City")
	require.NoError(t, svc.Create(p))

	_, err := svc.GetCurrent()
	assert.Error(t, err)

	require.NoError(t, svc.SetCurrent(p.ID))
	current, err := svc.Get("")
	require.NoError(t, err)
	assert.Equal(t, p.ID, current.ID)

	list, err := svc.List(domain.ProposalFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.Equal(t, []events.Kind{events.ProposalCreated, events.ProposalSelected}, rec.kinds())

	err = svc.Create(domain.NewProposal("  ", "City"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestProposalService_CreateSchedulesSignedProposal(t *testing.T) {
	svc, rec := newTestService(t)

	p := domain.SampleProposal()
	sign := calendar.Date(2024, time.January, 5)
	p.ContractSignDate = &sign
	require.NoError(t, svc.Create(p))

	stored, err := svc.Get(p.ID)
	require.NoError(t, err)
	for _, o := range stored.Objectives {
		for _, task := range o.Tasks {
			assert.True(t, task.Scheduled(), task.Name)
		}
	}
	assert.Equal(t, "2024-01-05", stored.Objectives[0].Tasks[0].Start.Format(calendar.DateLayout))
	assert.Equal(t, []events.Kind{events.ProposalCreated, events.ScheduleRecomputed}, rec.kinds())
}

func TestProposalService_SetContractSignDate(t *testing.T) {
	svc, rec := newTestService(t)
	p := chainProposal(t, svc)
	assert.Equal(t, []string{"-", "-", "-", "-"}, spans(p))

	updated, err := svc.SetContractSignDate(p.ID, time.Date(2024, time.January, 5, 15, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, calendar.Date(2024, time.January, 5), *updated.ContractSignDate)
	assert.Equal(t, []string{
		"2024-01-05..2024-01-10",
		"2024-01-11..2024-01-11",
		"2024-01-12..2024-01-16",
		"2024-01-17..2024-01-18",
	}, spans(updated))
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt) || updated.UpdatedAt.Equal(updated.CreatedAt))

	kinds := rec.kinds()
	assert.Equal(t, events.ScheduleRecomputed, kinds[len(kinds)-1])

	_, err = svc.SetContractSignDate(p.ID, time.Time{})
	assert.ErrorIs(t, err, schedule.ErrInvalidDate)
}

func TestProposalService_SetTaskDurationCascades(t *testing.T) {
	svc, rec := newTestService(t)
	p := chainProposal(t, svc)
	_, err := svc.SetContractSignDate(p.ID, calendar.Date(2024, time.January, 5))
	require.NoError(t, err)

	first := p.Objectives[0].Tasks[0]
	updated, err := svc.SetTaskDuration(p.ID, first.ID, 5)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"2024-01-05..2024-01-12",
		"2024-01-15..2024-01-15",
		"2024-01-16..2024-01-18",
		"2024-01-19..2024-01-22",
	}, spans(updated))

	kinds := rec.kinds()
	require.GreaterOrEqual(t, len(kinds), 2)
	assert.Equal(t, []events.Kind{events.TaskEdited, events.ScheduleRecomputed}, kinds[len(kinds)-2:])

	_, err = svc.SetTaskDuration(p.ID, first.ID, -1)
	assert.ErrorIs(t, err, schedule.ErrNegativeDuration)

	_, err = svc.SetTaskDuration(p.ID, "missing", 1)
	assert.ErrorIs(t, err, schedule.ErrTaskNotFound)

	// Rejected edits leave the stored proposal alone
	stored, err := svc.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, spans(updated), spans(stored))
}

func TestProposalService_SetTaskDurationLegacy(t *testing.T) {
	svc, _ := newTestService(t, schedule.WithEdit(schedule.EditLegacy))
	p := chainProposal(t, svc)
	_, err := svc.SetContractSignDate(p.ID, calendar.Date(2024, time.January, 5))
	require.NoError(t, err)

	updated, err := svc.SetTaskDuration(p.ID, p.Objectives[0].Tasks[0].ID, 5)
	require.NoError(t, err)

	// Siblings follow, the next objective keeps its old dates
	assert.Equal(t, []string{
		"2024-01-05..2024-01-12",
		"2024-01-15..2024-01-15",
		"2024-01-16..2024-01-18",
		"2024-01-17..2024-01-18",
	}, spans(updated))
}

func TestProposalService_SetTaskStart(t *testing.T) {
	svc, _ := newTestService(t)
	p := chainProposal(t, svc)
	_, err := svc.SetContractSignDate(p.ID, calendar.Date(2024, time.January, 5))
	require.NoError(t, err)

	task := p.Objectives[0].Tasks[2]
	updated, err := svc.SetTaskStart(p.ID, task.ID, calendar.Date(2024, time.January, 22))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"2024-01-05..2024-01-10",
		"2024-01-11..2024-01-11",
		"2024-01-22..2024-01-24",
		"2024-01-25..2024-01-26",
	}, spans(updated))

	_, err = svc.SetTaskStart(p.ID, task.ID, time.Time{})
	assert.ErrorIs(t, err, schedule.ErrInvalidDate)
}

func TestProposalService_AddAndRemoveTask(t *testing.T) {
	svc, _ := newTestService(t)
	p := chainProposal(t, svc)
	_, err := svc.SetContractSignDate(p.ID, calendar.Date(2024, time.January, 5))
	require.NoError(t, err)

	removed := p.Objectives[0].Tasks[0]
	updated, err := svc.RemoveTask(p.ID, removed.ID)
	require.NoError(t, err)

	require.Len(t, updated.Objectives[0].Tasks, 2)
	assert.Equal(t, "1", updated.Objectives[0].Tasks[0].Order)
	assert.Equal(t, "2", updated.Objectives[0].Tasks[1].Order)
	assert.Equal(t, []string{
		"2024-01-05..2024-01-05",
		"2024-01-08..2024-01-10",
		"2024-01-11..2024-01-12",
	}, spans(updated))

	task, err := svc.AddTask(p.ID, p.Objectives[1].ID, TaskInput{Name: "Punch list", Duration: 2, Predecessor: "b"})
	require.NoError(t, err)
	assert.Equal(t, "2", task.Order)
	assert.Equal(t, "b", task.Predecessor)
	require.True(t, task.Scheduled())
	assert.Equal(t, "2024-01-15", task.Start.Format(calendar.DateLayout))
	assert.Equal(t, "2024-01-17", task.Finish.Format(calendar.DateLayout))

	_, err = svc.AddTask(p.ID, "missing", TaskInput{Name: "x"})
	assert.Error(t, err)
	_, err = svc.AddTask(p.ID, p.Objectives[1].ID, TaskInput{Name: "x", Duration: -2})
	assert.ErrorIs(t, err, schedule.ErrNegativeDuration)
	_, err = svc.RemoveTask(p.ID, removed.ID)
	assert.ErrorIs(t, err, schedule.ErrTaskNotFound)
}

func TestProposalService_Recompute(t *testing.T) {
	svc, _ := newTestService(t)
	p := chainProposal(t, svc)

	_, err := svc.Recompute(p.ID)
	assert.ErrorIs(t, err, schedule.ErrInvalidDate)

	_, err = svc.SetContractSignDate(p.ID, calendar.Date(2024, time.January, 6))
	require.NoError(t, err)
	first, err := svc.Recompute(p.ID)
	require.NoError(t, err)
	second, err := svc.Recompute(p.ID)
	require.NoError(t, err)

	assert.Equal(t, "2024-01-08..2024-01-11", spans(first)[0])
	assert.Equal(t, spans(first), spans(second))
}

func TestProposalService_Delete(t *testing.T) {
	svc, rec := newTestService(t)
	p := domain.NewProposal("Library", "City")
	require.NoError(t, svc.Create(p))
	require.NoError(t, svc.SetCurrent(p.ID))

	require.NoError(t, svc.Delete(p.ID))
	_, err := svc.Get(p.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = svc.GetCurrent()
	assert.Error(t, err)

	assert.ErrorIs(t, svc.Delete(p.ID), storage.ErrNotFound)
	kinds := rec.kinds()
	assert.Equal(t, events.ProposalDeleted, kinds[len(kinds)-1])
}

func TestProposalService_ImportExport(t *testing.T) {
	svc, _ := newTestService(t)
	p := domain.SampleProposal()
	sign := calendar.Date(2024, time.March, 1)
	p.ContractSignDate = &sign
	require.NoError(t, svc.Create(p))

	path := filepath.Join(t.TempDir(), "out", "riverside.yaml")
	require.NoError(t, svc.Export(p.ID, path))

	other, _ := newTestService(t)
	imported, err := other.Import(path)
	require.NoError(t, err)

	original, err := svc.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, original.ID, imported.ID)
	assert.Equal(t, spans(original), spans(imported))

	_, err = other.Import(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestProposalService_ConcurrentEdits(t *testing.T) {
	svc, _ := newTestService(t)
	p := chainProposal(t, svc)
	_, err := svc.SetContractSignDate(p.ID, calendar.Date(2024, time.January, 5))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddTask(p.ID, p.Objectives[1].ID, TaskInput{Name: "parallel", Duration: 1})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := svc.Get(p.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Objectives[1].Tasks, 9)
}
