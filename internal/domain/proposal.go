package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Proposal is the document a proposal builder edits: a client, a contract
// sign date anchoring the schedule, and the ordered objectives.
type Proposal struct {
	ID               string      `json:"id" yaml:"id"`
	Name             string      `json:"name" yaml:"name"`
	Client           string      `json:"client" yaml:"client"`
	ContractSignDate *time.Time  `json:"contractSignDate,omitempty" yaml:"contract_sign_date,omitempty"`
	Objectives       []Objective `json:"objectives" yaml:"objectives"`
	CreatedAt        time.Time   `json:"createdAt" yaml:"created_at"`
	UpdatedAt        time.Time   `json:"updatedAt" yaml:"updated_at"`
}

func NewProposal(name, client string) *Proposal {
	now := time.Now()
	return &Proposal{
		ID:         uuid.New().String(),
		Name:       name,
		Client:     client,
		Objectives: make([]Objective, 0),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// AddObjective appends an objective and assigns it the next letter.
func (p *Proposal) AddObjective(objective Objective) {
	if objective.Order == "" {
		objective.Order = ObjectiveOrder(len(p.Objectives))
	}
	if objective.Tasks == nil {
		objective.Tasks = make([]Task, 0)
	}
	p.Objectives = append(p.Objectives, objective)
}

// FindObjective returns the index of the objective with the given ID.
func (p *Proposal) FindObjective(objectiveID string) (int, error) {
	for i, o := range p.Objectives {
		if o.ID == objectiveID {
			return i, nil
		}
	}
	return -1, fmt.Errorf("objective with ID %s not found", objectiveID)
}

// FindTask returns the objective and task indices of a task.
func (p *Proposal) FindTask(taskID string) (int, int, error) {
	for i, o := range p.Objectives {
		for j, t := range o.Tasks {
			if t.ID == taskID {
				return i, j, nil
			}
		}
	}
	return -1, -1, fmt.Errorf("task with ID %s not found", taskID)
}

// Finish is the latest scheduled finish date across all tasks.
func (p *Proposal) Finish() *time.Time {
	var latest *time.Time
	for _, o := range p.Objectives {
		for _, t := range o.Tasks {
			if t.Finish != nil && (latest == nil || t.Finish.After(*latest)) {
				latest = t.Finish
			}
		}
	}
	return cloneTime(latest)
}

func (p *Proposal) TaskCount() int {
	n := 0
	for _, o := range p.Objectives {
		n += len(o.Tasks)
	}
	return n
}

// Clone deep-copies the proposal so callers can edit it freely.
func (p *Proposal) Clone() *Proposal {
	if p == nil {
		return nil
	}
	out := *p
	out.ContractSignDate = cloneTime(p.ContractSignDate)
	out.Objectives = CloneObjectives(p.Objectives)
	return &out
}

// Normalize fills what a hand-written document may leave out: identifiers,
// display orders, timestamps and empty task lists.
func (p *Proposal) Normalize() {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	if p.Objectives == nil {
		p.Objectives = make([]Objective, 0)
	}
	for i := range p.Objectives {
		o := &p.Objectives[i]
		if o.ID == "" {
			o.ID = uuid.New().String()
		}
		if o.Order == "" {
			o.Order = ObjectiveOrder(i)
		}
		if o.Tasks == nil {
			o.Tasks = make([]Task, 0)
		}
		for j := range o.Tasks {
			t := &o.Tasks[j]
			if t.ID == "" {
				t.ID = uuid.New().String()
			}
			if t.Order == "" {
				t.Order = TaskOrder(j)
			}
		}
	}
}

// ProposalFilter narrows a proposal listing.
type ProposalFilter struct {
	Client *string
}
