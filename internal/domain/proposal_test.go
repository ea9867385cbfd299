package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProposal(t *testing.T) {
	p := NewProposal("Library", "City")

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Library", p.Name)
	assert.Equal(t, "City", p.Client)
	assert.Nil(t, p.ContractSignDate)
	assert.NotNil(t, p.Objectives)
	assert.NotZero(t, p.CreatedAt)
	assert.NotZero(t, p.UpdatedAt)
}

func TestProposal_AddObjectiveAssignsLetters(t *testing.T) {
	p := NewProposal("Library", "City")
	p.AddObjective(NewObjective("Schematic Design"))
	p.AddObjective(NewObjective("Design Development"))

	custom := NewObjective("Bidding")
	custom.Order = "Z"
	p.AddObjective(custom)

	require.Len(t, p.Objectives, 3)
	assert.Equal(t, "A", p.Objectives[0].Order)
	assert.Equal(t, "B", p.Objectives[1].Order)
	assert.Equal(t, "Z", p.Objectives[2].Order)
}

func TestObjectiveOrder(t *testing.T) {
	cases := map[int]string{0: "A", 1: "B", 25: "Z", 26: "AA", 27: "AB", 701: "ZZ", 702: "AAA", -1: ""}
	for i, want := range cases {
		assert.Equal(t, want, ObjectiveOrder(i), "index %d", i)
	}
}

func TestObjective_AddTaskAssignsOrder(t *testing.T) {
	o := NewObjective("Schematic Design")
	o.AddTask(NewTask("Survey", 3))
	o.AddTask(NewTask("Program", 2))

	assert.Equal(t, "1", o.Tasks[0].Order)
	assert.Equal(t, "2", o.Tasks[1].Order)
	assert.Nil(t, o.Finish())
}

func TestProposal_FindTask(t *testing.T) {
	p := SampleProposal()
	target := p.Objectives[1].Tasks[2]

	oi, ti, err := p.FindTask(target.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, oi)
	assert.Equal(t, 2, ti)

	_, _, err = p.FindTask("missing")
	assert.Error(t, err)

	idx, err := p.FindObjective(p.Objectives[2].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	_, err = p.FindObjective("missing")
	assert.Error(t, err)
}

func TestProposal_CloneIsDeep(t *testing.T) {
	p := SampleProposal()
	sign := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	p.ContractSignDate = &sign
	start := sign
	p.Objectives[0].Tasks[0].Start = &start

	clone := p.Clone()
	clone.Objectives[0].Tasks[0].Name = "changed"
	*clone.Objectives[0].Tasks[0].Start = sign.AddDate(0, 0, 3)
	*clone.ContractSignDate = sign.AddDate(0, 0, 1)

	assert.Equal(t, "Kickoff meeting", p.Objectives[0].Tasks[0].Name)
	assert.Equal(t, sign, *p.Objectives[0].Tasks[0].Start)
	assert.Equal(t, sign, *p.ContractSignDate)
}

func TestProposal_Finish(t *testing.T) {
	p := SampleProposal()
	assert.Nil(t, p.Finish())

	early := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	p.Objectives[0].Tasks[0].Finish = &early
	p.Objectives[2].Tasks[0].Finish = &late

	require.NotNil(t, p.Finish())
	assert.Equal(t, late, *p.Finish())
}

func TestSampleProposal(t *testing.T) {
	p := SampleProposal()

	assert.Len(t, p.Objectives, 3)
	assert.Equal(t, 12, p.TaskCount())
	assert.Equal(t, "Kickoff meeting", p.Objectives[0].Tasks[1].Predecessor)

	zero := 0
	for _, o := range p.Objectives {
		for _, task := range o.Tasks {
			assert.NotEmpty(t, task.ID)
			assert.False(t, task.Scheduled())
			if task.Duration == 0 {
				zero++
			}
		}
	}
	assert.Equal(t, 2, zero, "sample carries zero-duration placeholders")
}

func TestProposal_Normalize(t *testing.T) {
	p := &Proposal{
		Name: "Hand written",
		Objectives: []Objective{
			{Name: "Programming", Tasks: []Task{{Name: "Interviews", Duration: 2}, {Name: "Report", Order: "2b"}}},
			{Name: "Empty"},
		},
	}

	p.Normalize()

	assert.NotEmpty(t, p.ID)
	assert.NotZero(t, p.CreatedAt)
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)
	assert.Equal(t, "A", p.Objectives[0].Order)
	assert.Equal(t, "B", p.Objectives[1].Order)
	assert.NotNil(t, p.Objectives[1].Tasks)
	assert.NotEmpty(t, p.Objectives[0].Tasks[0].ID)
	assert.Equal(t, "1", p.Objectives[0].Tasks[0].Order)
	assert.Equal(t, "2b", p.Objectives[0].Tasks[1].Order)

	id := p.ID
	p.Normalize()
	assert.Equal(t, id, p.ID)
}
