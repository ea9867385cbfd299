package service

import (
	"strings"
	"testing"
	"unicode/utf8"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rcliao/blueprint/internal/calendar"
	"github.com/rcliao/blueprint/internal/domain"
)

func TestHeaderGenerator_Generate(t *testing.T) {
	generator := NewHeaderGenerator(500)

	objective := domain.NewObjective("Schematic Design")
	objective.Order = "A"
	task := domain.NewTask("Program verification", 3)
	task.Order = "3"
	task.Predecessor = "Existing conditions survey"
	start := calendar.Date(2024, time.January, 5)
	finish := calendar.Date(2024, time.January, 10)
	task.Start, task.Finish = &start, &finish

	header := generator.Generate(objective, task)

	assert.Equal(t, "Part of A. Schematic Design. Task 3: Program verification. "+
		"Follows: Existing conditions survey. 3 working days. Scheduled 2024-01-05 to 2024-01-10.", header)
}

func TestHeaderGenerator_GenerateMilestone(t *testing.T) {
	generator := NewHeaderGenerator(0)

	task := domain.NewTask("Owner review", 0)
	task.Order = "5"
	header := generator.Generate(domain.Objective{Order: "A", Name: "Schematic Design"}, task)

	assert.Contains(t, header, "Milestone.")
	assert.Contains(t, header, "Not scheduled.")
	assert.NotContains(t, header, "Follows")
}

func TestHeaderGenerator_Truncate(t *testing.T) {
	generator := NewHeaderGenerator(40)

	task := domain.NewTask(strings.Repeat("long name ", 10), 1)
	header := generator.Generate(domain.Objective{Order: "A", Name: "Design"}, task)

	assert.LessOrEqual(t, len(header), 43)
	assert.True(t, strings.HasSuffix(header, "..."))
}

func TestHeaderGenerator_TruncateKeepsRunesWhole(t *testing.T) {
	generator := NewHeaderGenerator(40)

	// Multi-byte runes with no spaces force a hard cut
	name := strings.Repeat("é", 80)
	cut := generator.truncate(name, 10)
	assert.True(t, utf8.ValidString(cut))
	assert.Equal(t, strings.Repeat("é", 7)+"...", cut)

	task := domain.NewTask(strings.Repeat("Façade détail ", 10), 1)
	header := generator.Generate(domain.Objective{Order: "A", Name: "Conception"}, task)
	assert.True(t, utf8.ValidString(header))
	assert.LessOrEqual(t, utf8.RuneCountInString(header), 43)
}
