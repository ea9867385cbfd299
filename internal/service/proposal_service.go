package service

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/blueprint/internal/calendar"
	"github.com/rcliao/blueprint/internal/domain"
	"github.com/rcliao/blueprint/internal/events"
	"github.com/rcliao/blueprint/internal/schedule"
	"github.com/rcliao/blueprint/internal/storage"
)

var ErrInvalidInput = errors.New("invalid input")

type ProposalStorage interface {
	CreateProposal(proposal *domain.Proposal) error
	GetProposal(id string) (*domain.Proposal, error)
	ListProposals(filter domain.ProposalFilter) ([]*domain.Proposal, error)
	UpdateProposal(proposal *domain.Proposal) error
	DeleteProposal(id string) error
	SetCurrentProposal(id string) error
	GetCurrentProposal() (*domain.Proposal, error)
}

// ProposalService applies builder edits to stored proposals and keeps their
// schedules current. Edits are serialized so a read-modify-write never races.
type ProposalService struct {
	mu        sync.Mutex
	storage   ProposalStorage
	scheduler *schedule.Scheduler
	bus       *events.Bus
	logger    *zap.Logger
}

func NewProposalService(storage ProposalStorage, scheduler *schedule.Scheduler, bus *events.Bus, logger *zap.Logger) *ProposalService {
	if scheduler == nil {
		scheduler = schedule.New(nil)
	}
	if bus == nil {
		bus = events.NewBus()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProposalService{
		storage:   storage,
		scheduler: scheduler,
		bus:       bus,
		logger:    logger,
	}
}

func (s *ProposalService) Scheduler() *schedule.Scheduler { return s.scheduler }

func (s *ProposalService) Bus() *events.Bus { return s.bus }

// TaskInput describes a task to append to an objective.
type TaskInput struct {
	Name        string
	Duration    int
	Predecessor string
}

// Create stores a new proposal, scheduling it when it already carries a
// contract sign date.
func (s *ProposalService) Create(proposal *domain.Proposal) error {
	if proposal == nil || strings.TrimSpace(proposal.Name) == "" {
		return fmt.Errorf("proposal name is required: %w", ErrInvalidInput)
	}
	proposal.Normalize()

	scheduled, err := s.scheduler.Schedule(proposal)
	if err != nil {
		return err
	}

	s.mu.Lock()
	err = s.storage.CreateProposal(scheduled)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	*proposal = *scheduled

	s.logger.Info("proposal created",
		zap.String("proposal_id", proposal.ID),
		zap.String("name", proposal.Name),
		zap.Int("tasks", proposal.TaskCount()))
	s.bus.Publish(events.Event{Kind: events.ProposalCreated, ProposalID: proposal.ID})
	if proposal.ContractSignDate != nil {
		s.publishRecomputed(proposal)
	}
	return nil
}

// Import reads a YAML or JSON proposal document and stores it.
func (s *ProposalService) Import(path string) (*domain.Proposal, error) {
	proposal, err := storage.ReadProposalFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to import %s: %w", path, err)
	}
	if err := s.Create(proposal); err != nil {
		return nil, err
	}
	return proposal, nil
}

// Export writes a proposal document; the extension picks YAML or JSON.
func (s *ProposalService) Export(proposalID, path string) error {
	proposal, err := s.Get(proposalID)
	if err != nil {
		return err
	}
	if err := storage.WriteProposalFile(path, proposal); err != nil {
		return fmt.Errorf("failed to export %s: %w", path, err)
	}
	s.logger.Debug("proposal exported", zap.String("proposal_id", proposal.ID), zap.String("path", path))
	return nil
}

// Get returns a proposal by ID; an empty ID means the current proposal.
func (s *ProposalService) Get(id string) (*domain.Proposal, error) {
	if id == "" {
		return s.storage.GetCurrentProposal()
	}
	return s.storage.GetProposal(id)
}

func (s *ProposalService) List(filter domain.ProposalFilter) ([]*domain.Proposal, error) {
	return s.storage.ListProposals(filter)
}

func (s *ProposalService) SetCurrent(id string) error {
	if err := s.storage.SetCurrentProposal(id); err != nil {
		return err
	}
	s.bus.Publish(events.Event{Kind: events.ProposalSelected, ProposalID: id})
	return nil
}

func (s *ProposalService) GetCurrent() (*domain.Proposal, error) {
	return s.storage.GetCurrentProposal()
}

func (s *ProposalService) Delete(id string) error {
	s.mu.Lock()
	err := s.storage.DeleteProposal(id)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.logger.Info("proposal deleted", zap.String("proposal_id", id))
	s.bus.Publish(events.Event{Kind: events.ProposalDeleted, ProposalID: id})
	return nil
}

func (s *ProposalService) AddObjective(proposalID, name string) (*domain.Objective, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("objective name is required: %w", ErrInvalidInput)
	}

	var added domain.Objective
	_, err := s.update(proposalID, false, func(p *domain.Proposal) error {
		p.AddObjective(domain.NewObjective(name))
		added = p.Objectives[len(p.Objectives)-1].Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

// AddTask appends a task to an objective. A scheduled proposal is recomputed
// so the new task and everything after it get dates.
func (s *ProposalService) AddTask(proposalID, objectiveID string, input TaskInput) (*domain.Task, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("task name is required: %w", ErrInvalidInput)
	}
	if input.Duration < 0 {
		return nil, fmt.Errorf("task %s: %w", input.Name, schedule.ErrNegativeDuration)
	}

	var taskID string
	updated, err := s.update(proposalID, true, func(p *domain.Proposal) error {
		oi, err := p.FindObjective(objectiveID)
		if err != nil {
			return err
		}
		task := domain.NewTask(input.Name, input.Duration)
		task.Predecessor = input.Predecessor
		p.Objectives[oi].AddTask(task)
		taskID = task.ID
		return s.recompute(p)
	})
	if err != nil {
		return nil, err
	}

	oi, ti, err := updated.FindTask(taskID)
	if err != nil {
		return nil, err
	}
	task := updated.Objectives[oi].Tasks[ti]
	return &task, nil
}

// RemoveTask drops a task, renumbers its siblings and recomputes the schedule.
func (s *ProposalService) RemoveTask(proposalID, taskID string) (*domain.Proposal, error) {
	return s.update(proposalID, true, func(p *domain.Proposal) error {
		oi, ti, err := p.FindTask(taskID)
		if err != nil {
			return fmt.Errorf("%v: %w", err, schedule.ErrTaskNotFound)
		}
		tasks := p.Objectives[oi].Tasks
		p.Objectives[oi].Tasks = append(tasks[:ti:ti], tasks[ti+1:]...)
		for j := range p.Objectives[oi].Tasks {
			p.Objectives[oi].Tasks[j].Order = domain.TaskOrder(j)
		}
		return s.recompute(p)
	})
}

// SetContractSignDate anchors the proposal and recomputes every task.
func (s *ProposalService) SetContractSignDate(proposalID string, date time.Time) (*domain.Proposal, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("contract sign date: %w", schedule.ErrInvalidDate)
	}
	return s.update(proposalID, true, func(p *domain.Proposal) error {
		sign := calendar.Truncate(date)
		p.ContractSignDate = &sign
		return s.recompute(p)
	})
}

// Recompute re-derives every date from the contract sign date.
func (s *ProposalService) Recompute(proposalID string) (*domain.Proposal, error) {
	return s.update(proposalID, true, func(p *domain.Proposal) error {
		if p.ContractSignDate == nil {
			return fmt.Errorf("proposal %s has no contract sign date: %w", p.ID, schedule.ErrInvalidDate)
		}
		return s.recompute(p)
	})
}

// SetTaskDuration changes a task's working-day duration; downstream tasks
// follow the configured edit policy.
func (s *ProposalService) SetTaskDuration(proposalID, taskID string, duration int) (*domain.Proposal, error) {
	return s.editTask(proposalID, taskID, func(objectives []domain.Objective, oi, ti int) ([]domain.Objective, error) {
		return s.scheduler.SetDuration(objectives, oi, ti, duration)
	})
}

// SetTaskStart overrides a task's start; downstream tasks follow the
// configured edit policy.
func (s *ProposalService) SetTaskStart(proposalID, taskID string, start time.Time) (*domain.Proposal, error) {
	return s.editTask(proposalID, taskID, func(objectives []domain.Objective, oi, ti int) ([]domain.Objective, error) {
		return s.scheduler.SetStart(objectives, oi, ti, start)
	})
}

type taskEdit func(objectives []domain.Objective, oi, ti int) ([]domain.Objective, error)

func (s *ProposalService) editTask(proposalID, taskID string, edit taskEdit) (*domain.Proposal, error) {
	updated, err := s.update(proposalID, false, func(p *domain.Proposal) error {
		oi, ti, err := p.FindTask(taskID)
		if err != nil {
			return fmt.Errorf("%v: %w", err, schedule.ErrTaskNotFound)
		}
		objectives, err := edit(p.Objectives, oi, ti)
		if err != nil {
			return err
		}
		p.Objectives = objectives
		return nil
	})
	if err != nil {
		return nil, err
	}

	oi, ti, _ := updated.FindTask(taskID)
	task := updated.Objectives[oi].Tasks[ti]
	s.logger.Debug("task edited",
		zap.String("proposal_id", updated.ID),
		zap.String("task_id", task.ID),
		zap.Int("duration", task.Duration))
	s.bus.Publish(events.Event{
		Kind:       events.TaskEdited,
		ProposalID: updated.ID,
		TaskID:     task.ID,
		Finish:     task.Finish,
	})
	if task.Scheduled() {
		s.publishRecomputed(updated)
	}
	return updated, nil
}

// recompute is a no-op until the proposal has a contract sign date.
func (s *ProposalService) recompute(p *domain.Proposal) error {
	if p.ContractSignDate == nil {
		return nil
	}
	objectives, err := s.scheduler.Recompute(p.Objectives, *p.ContractSignDate)
	if err != nil {
		return err
	}
	p.Objectives = objectives
	return nil
}

// update loads a proposal, applies fn to it and stores the result. Nothing is
// stored or published when fn fails.
func (s *ProposalService) update(proposalID string, scheduleChange bool, fn func(p *domain.Proposal) error) (*domain.Proposal, error) {
	proposal, err := s.apply(proposalID, fn)
	if err != nil {
		return nil, err
	}
	if scheduleChange && proposal.ContractSignDate != nil {
		s.publishRecomputed(proposal)
	}
	return proposal, nil
}

func (s *ProposalService) apply(proposalID string, fn func(p *domain.Proposal) error) (*domain.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	proposal, err := s.Get(proposalID)
	if err != nil {
		return nil, err
	}

	if err := fn(proposal); err != nil {
		s.logger.Debug("proposal edit rejected", zap.String("proposal_id", proposal.ID), zap.Error(err))
		return nil, err
	}
	proposal.UpdatedAt = time.Now()

	if err := s.storage.UpdateProposal(proposal); err != nil {
		return nil, err
	}
	return proposal, nil
}

func (s *ProposalService) publishRecomputed(p *domain.Proposal) {
	finish := p.Finish()
	fields := []zap.Field{zap.String("proposal_id", p.ID)}
	if finish != nil {
		fields = append(fields, zap.String("finish", finish.Format(calendar.DateLayout)))
	}
	s.logger.Debug("schedule recomputed", fields...)
	s.bus.Publish(events.Event{Kind: events.ScheduleRecomputed, ProposalID: p.ID, Finish: finish})
}
