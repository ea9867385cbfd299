package domain

import (
	"time"

	"github.com/google/uuid"
)

// Objective is a named phase of a proposal. Task order defines the chain the
// scheduler walks.
type Objective struct {
	ID    string `json:"id" yaml:"id"`
	Order string `json:"order" yaml:"order"`
	Name  string `json:"name" yaml:"name"`
	Tasks []Task `json:"tasks" yaml:"tasks"`
}

func NewObjective(name string) Objective {
	return Objective{
		ID:    uuid.New().String(),
		Name:  name,
		Tasks: make([]Task, 0),
	}
}

// AddTask appends a task and assigns it the next display order.
func (o *Objective) AddTask(task Task) {
	if task.Order == "" {
		task.Order = TaskOrder(len(o.Tasks))
	}
	o.Tasks = append(o.Tasks, task)
}

// Finish is the finish date of the last task, nil when the objective is empty
// or not yet scheduled.
func (o Objective) Finish() *time.Time {
	if len(o.Tasks) == 0 {
		return nil
	}
	return o.Tasks[len(o.Tasks)-1].Finish
}

func (o Objective) Clone() Objective {
	out := o
	out.Tasks = make([]Task, len(o.Tasks))
	for i, t := range o.Tasks {
		out.Tasks[i] = t.Clone()
	}
	return out
}

// ObjectiveOrder is the letter sequence A…Z, AA, AB… for the i-th objective
// (zero based).
func ObjectiveOrder(i int) string {
	if i < 0 {
		return ""
	}
	var label []byte
	for n := i + 1; n > 0; n = (n - 1) / 26 {
		label = append([]byte{byte('A' + (n-1)%26)}, label...)
	}
	return string(label)
}

// CloneObjectives deep-copies a list of objectives.
func CloneObjectives(objectives []Objective) []Objective {
	if objectives == nil {
		return nil
	}
	out := make([]Objective, len(objectives))
	for i, o := range objectives {
		out[i] = o.Clone()
	}
	return out
}
