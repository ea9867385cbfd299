package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rcliao/blueprint/internal/calendar"
	"github.com/rcliao/blueprint/internal/domain"
)

// HeaderGenerator writes the one-paragraph description attached to a task in
// calendar exports and search listings.
type HeaderGenerator struct {
	maxLength int
}

func NewHeaderGenerator(maxLength int) *HeaderGenerator {
	if maxLength <= 0 {
		maxLength = 200
	}
	return &HeaderGenerator{
		maxLength: maxLength,
	}
}

func (g *HeaderGenerator) Generate(objective domain.Objective, task domain.Task) string {
	var parts []string

	// Add objective context
	if objective.Name != "" {
		parts = append(parts, fmt.Sprintf("Part of %s. %s.", objective.Order, objective.Name))
	}

	if task.Name != "" {
		parts = append(parts, fmt.Sprintf("Task %s: %s.", task.Order, g.truncate(task.Name, 60)))
	}

	if task.Predecessor != "" {
		parts = append(parts, fmt.Sprintf("Follows: %s.", g.truncate(task.Predecessor, 60)))
	}

	switch task.Duration {
	case 0:
		parts = append(parts, "Milestone.")
	case 1:
		parts = append(parts, "1 working day.")
	default:
		parts = append(parts, fmt.Sprintf("%d working days.", task.Duration))
	}

	if task.Scheduled() {
		parts = append(parts, fmt.Sprintf("Scheduled %s to %s.",
			task.Start.Format(calendar.DateLayout), task.Finish.Format(calendar.DateLayout)))
	} else {
		parts = append(parts, "Not scheduled.")
	}

	header := strings.Join(parts, " ")
	return g.truncate(header, g.maxLength)
}

// truncate counts runes, so a cut never splits a UTF-8 sequence.
func (g *HeaderGenerator) truncate(text string, maxLength int) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}

	// Try to truncate at word boundary
	truncated := string(runes[:maxLength])
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace >= 0 && utf8.RuneCountInString(truncated[:lastSpace]) > maxLength/2 {
		return truncated[:lastSpace] + "..."
	}

	return string(runes[:maxLength-3]) + "..."
}
