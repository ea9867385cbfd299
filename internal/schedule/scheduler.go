package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/rcliao/blueprint/internal/calendar"
	"github.com/rcliao/blueprint/internal/domain"
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrNegativeDuration = errors.New("duration must not be negative")
	ErrTaskNotFound     = errors.New("task not found")
)

// Scheduler propagates start and finish dates through the task chain of a
// proposal. All operations are pure: inputs are never modified.
type Scheduler struct {
	cal  *calendar.Calendar
	opts Options
}

func New(cal *calendar.Calendar, opts ...Option) *Scheduler {
	if cal == nil {
		cal = calendar.Default()
	}
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Scheduler{cal: cal, opts: o}
}

func (s *Scheduler) Calendar() *calendar.Calendar { return s.cal }

func (s *Scheduler) Options() Options { return s.opts }

type linkKind int

const (
	linkSignDate linkKind = iota
	linkObjective
	linkSibling
)

// link is the date the next task's start is derived from, and where it came from.
type link struct {
	date time.Time
	kind linkKind
}

// Recompute assigns every task's start and finish from the contract sign date.
func (s *Scheduler) Recompute(objectives []domain.Objective, signDate time.Time) ([]domain.Objective, error) {
	if signDate.IsZero() {
		return nil, fmt.Errorf("contract sign date: %w", ErrInvalidDate)
	}
	if err := Validate(objectives); err != nil {
		return nil, err
	}

	out := domain.CloneObjectives(objectives)
	s.propagate(out, 0, 0, link{date: calendar.Truncate(signDate), kind: linkSignDate}, false)
	return out, nil
}

// SetDuration changes one task's duration and propagates its new finish
// according to the edit policy. An unscheduled task only records the duration.
func (s *Scheduler) SetDuration(objectives []domain.Objective, objIdx, taskIdx, duration int) ([]domain.Objective, error) {
	if err := checkIndex(objectives, objIdx, taskIdx); err != nil {
		return nil, err
	}
	if duration < 0 {
		return nil, fmt.Errorf("task %s: %w", objectives[objIdx].Tasks[taskIdx].Name, ErrNegativeDuration)
	}

	out := domain.CloneObjectives(objectives)
	task := &out[objIdx].Tasks[taskIdx]
	task.Duration = duration
	if task.Start == nil {
		return out, nil
	}

	finish := s.cal.FinishDate(*task.Start, duration)
	task.Finish = &finish
	s.propagate(out, objIdx, taskIdx+1, link{date: finish, kind: linkSibling}, s.opts.Edit == EditLegacy)
	return out, nil
}

// SetStart overrides one task's start date. Its finish is always recomputed;
// later tasks follow only under the cascade edit policy.
func (s *Scheduler) SetStart(objectives []domain.Objective, objIdx, taskIdx int, start time.Time) ([]domain.Objective, error) {
	if err := checkIndex(objectives, objIdx, taskIdx); err != nil {
		return nil, err
	}
	if start.IsZero() {
		return nil, fmt.Errorf("task start: %w", ErrInvalidDate)
	}
	if err := Validate(objectives); err != nil {
		return nil, err
	}

	out := domain.CloneObjectives(objectives)
	task := &out[objIdx].Tasks[taskIdx]
	begin := calendar.Truncate(start)
	finish := s.cal.FinishDate(begin, task.Duration)
	task.Start = &begin
	task.Finish = &finish

	if s.opts.Edit == EditCascade {
		s.propagate(out, objIdx, taskIdx+1, link{date: finish, kind: linkSibling}, false)
	}
	return out, nil
}

// propagate walks the chain from task (oi, ti), deriving each start from in.
// With siblingsOnly it stops at the end of objective oi.
func (s *Scheduler) propagate(objectives []domain.Objective, oi, ti int, in link, siblingsOnly bool) {
	for ; oi < len(objectives); oi, ti = oi+1, 0 {
		tasks := objectives[oi].Tasks
		for ; ti < len(tasks); ti++ {
			start := s.startFrom(in)
			finish := s.cal.FinishDate(start, tasks[ti].Duration)
			tasks[ti].Start = &start
			tasks[ti].Finish = &finish
			in = link{date: finish, kind: linkSibling}
		}
		// Empty objectives pass the anchor through unchanged.
		if len(tasks) > 0 {
			in.kind = linkObjective
		}
		if siblingsOnly {
			return
		}
	}
}

func (s *Scheduler) startFrom(in link) time.Time {
	switch in.kind {
	case linkSibling:
		return s.cal.NextWorkingDay(in.date)
	case linkObjective:
		if s.opts.Handoff == HandoffNextWorkingDay {
			return s.cal.NextWorkingDay(in.date)
		}
	}
	return s.firstStart(in.date)
}

// firstStart is where the first task of an objective begins given its anchor.
func (s *Scheduler) firstStart(anchor time.Time) time.Time {
	moveOff := s.cal.IsWeekend(anchor)
	if s.opts.FirstTask == FirstTaskWorkingDay {
		moveOff = !s.cal.IsWorkingDay(anchor)
	}
	if moveOff {
		return s.cal.NextWorkingDay(anchor)
	}
	return calendar.Truncate(anchor)
}

// Validate checks the inputs the propagator relies on.
func Validate(objectives []domain.Objective) error {
	for _, o := range objectives {
		for _, t := range o.Tasks {
			if t.Duration < 0 {
				return fmt.Errorf("task %s: %w", t.Name, ErrNegativeDuration)
			}
		}
	}
	return nil
}

func checkIndex(objectives []domain.Objective, objIdx, taskIdx int) error {
	if objIdx < 0 || objIdx >= len(objectives) {
		return fmt.Errorf("objective %d: %w", objIdx, ErrTaskNotFound)
	}
	if taskIdx < 0 || taskIdx >= len(objectives[objIdx].Tasks) {
		return fmt.Errorf("objective %d task %d: %w", objIdx, taskIdx, ErrTaskNotFound)
	}
	return nil
}

// Schedule returns a copy of the proposal with every task dated from its
// contract sign date. Without a sign date the copy is returned untouched.
func (s *Scheduler) Schedule(p *domain.Proposal) (*domain.Proposal, error) {
	out := p.Clone()
	if out.ContractSignDate == nil {
		return out, nil
	}
	objectives, err := s.Recompute(out.Objectives, *out.ContractSignDate)
	if err != nil {
		return nil, err
	}
	out.Objectives = objectives
	return out, nil
}
