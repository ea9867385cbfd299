package export

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rcliao/blueprint/internal/calendar"
	"github.com/rcliao/blueprint/internal/domain"
)

const icsDateLayout = "20060102"

// Describer supplies the DESCRIPTION of a task's calendar event.
type Describer func(objective domain.Objective, task domain.Task) string

// ICS builds an iCalendar document with one all-day event per scheduled
// task. DTEND is exclusive, so it is the day after the task finishes.
func ICS(p *domain.Proposal, now time.Time, describe Describer) (string, error) {
	if p.ContractSignDate == nil {
		return "", fmt.Errorf("proposal %s needs a contract sign date for calendar export", p.ID)
	}

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Blueprint//Proposal Schedule//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"X-WR-CALNAME:" + escapeICSText(p.Name),
	}

	stamp := now.UTC().Format("20060102T150405Z")
	for _, o := range p.Objectives {
		for _, t := range o.Tasks {
			if !t.Scheduled() {
				continue
			}
			end := calendar.AddDays(*t.Finish, 1)
			lines = append(lines,
				"BEGIN:VEVENT",
				"UID:"+escapeICSText(fmt.Sprintf("task-%s@blueprint", t.ID)),
				"DTSTAMP:"+stamp,
				"SUMMARY:"+escapeICSText(fmt.Sprintf("%s.%s %s", o.Order, t.Order, t.Name)),
				"DTSTART;VALUE=DATE:"+t.Start.Format(icsDateLayout),
				"DTEND;VALUE=DATE:"+end.Format(icsDateLayout),
			)
			desc := o.Name
			if describe != nil {
				desc = describe(o, t)
			}
			if desc = strings.TrimSpace(desc); desc != "" {
				lines = append(lines, "DESCRIPTION:"+escapeICSText(desc))
			}
			if p.Client != "" {
				lines = append(lines, "CATEGORIES:"+escapeICSText(p.Client))
			}
			lines = append(lines, "END:VEVENT")
		}
	}
	lines = append(lines, "END:VCALENDAR")

	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(foldLine(line))
		sb.WriteString("\r\n")
	}
	return sb.String(), nil
}

// icsLineOctets is the longest content line allowed before folding.
const icsLineOctets = 75

// foldLine splits a content line into CRLF-joined chunks of at most 75 octets.
// Continuation chunks start with a space, which counts toward their length.
// Cuts only fall on rune boundaries.
func foldLine(line string) string {
	if len(line) <= icsLineOctets {
		return line
	}

	var sb strings.Builder
	limit := icsLineOctets
	width := 0
	for _, r := range line {
		size := utf8.RuneLen(r)
		if width+size > limit {
			sb.WriteString("\r\n ")
			limit = icsLineOctets - 1
			width = 0
		}
		sb.WriteRune(r)
		width += size
	}
	return sb.String()
}

func escapeICSText(s string) string {
	repl := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\r\n", "\\n",
		"\n", "\\n",
		"\r", "\\n",
	)
	return repl.Replace(s)
}

func isoDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(calendar.DateLayout)
}
