package domain

// SampleProposal returns a typical architecture services proposal. It has no
// sign date, so nothing is scheduled until one is set.
func SampleProposal() *Proposal {
	p := NewProposal("Riverside Library Renovation", "City of Riverside")

	phases := []struct {
		name  string
		tasks []struct {
			name     string
			duration int
		}
	}{
		{"Schematic Design", []struct {
			name     string
			duration int
		}{
			{"Kickoff meeting", 1},
			{"Existing conditions survey", 5},
			{"Program verification", 3},
			{"Schematic design package", 10},
			{"Owner review", 0},
		}},
		{"Design Development", []struct {
			name     string
			duration int
		}{
			{"Consultant coordination", 5},
			{"Design development drawings", 15},
			{"Cost estimate", 4},
			{"Owner approval", 0},
		}},
		{"Construction Documents", []struct {
			name     string
			duration int
		}{
			{"Construction drawings", 20},
			{"Specifications", 8},
			{"Permit submission", 2},
		}},
	}

	for _, phase := range phases {
		objective := NewObjective(phase.name)
		var previous string
		for _, t := range phase.tasks {
			task := NewTask(t.name, t.duration)
			task.Predecessor = previous
			objective.AddTask(task)
			previous = t.name
		}
		p.AddObjective(objective)
	}

	return p
}
