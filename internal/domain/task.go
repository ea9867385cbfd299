package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Task is a single schedulable unit of work inside an objective. Duration is
// counted in working days; Start and Finish are derived by the scheduler and
// stay nil until the proposal has a contract sign date.
type Task struct {
	ID          string     `json:"id" yaml:"id"`
	Order       string     `json:"order" yaml:"order"`
	Name        string     `json:"name" yaml:"name"`
	Duration    int        `json:"duration" yaml:"duration"`
	Start       *time.Time `json:"start,omitempty" yaml:"start,omitempty"`
	Finish      *time.Time `json:"finish,omitempty" yaml:"finish,omitempty"`
	Predecessor string     `json:"predecessor,omitempty" yaml:"predecessor,omitempty"`
}

func NewTask(name string, duration int) Task {
	return Task{
		ID:       uuid.New().String(),
		Name:     name,
		Duration: duration,
	}
}

// Scheduled reports whether both dates have been computed.
func (t Task) Scheduled() bool {
	return t.Start != nil && t.Finish != nil
}

// Clone copies the task including its date pointers.
func (t Task) Clone() Task {
	out := t
	out.Start = cloneTime(t.Start)
	out.Finish = cloneTime(t.Finish)
	return out
}

// TaskOrder is the display order of the i-th task (zero based) of an objective.
func TaskOrder(i int) string {
	return strconv.Itoa(i + 1)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
