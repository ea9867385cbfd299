package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/blueprint/internal/domain"
	"github.com/rcliao/blueprint/internal/storage"
)

const (
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
	FormatICS      = "ics"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
)

// Formats lists every rendering Render accepts.
var Formats = []string{FormatMarkdown, FormatCSV, FormatICS, FormatJSON, FormatYAML}

// Render writes a proposal in the named format. An empty format is markdown.
func Render(p *domain.Proposal, format string, now time.Time, describe Describer) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatMarkdown, "md":
		return Markdown(p), nil
	case FormatCSV:
		return CSV(p)
	case FormatICS, "ical":
		return ICS(p, now, describe)
	case FormatJSON:
		return document(p, storage.FormatJSON)
	case FormatYAML, "yml":
		return document(p, storage.FormatYAML)
	default:
		return "", fmt.Errorf("unknown export format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

func document(p *domain.Proposal, format storage.Format) (string, error) {
	var buf bytes.Buffer
	if err := storage.EncodeProposal(&buf, p, format); err != nil {
		return "", err
	}
	return buf.String(), nil
}
