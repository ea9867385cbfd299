package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/blueprint/internal/domain"
)

// Format is the encoding of a proposal document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFor picks the document format from a file extension; anything that
// is not .json is read as YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// DecodeProposal reads one proposal document and normalizes it.
func DecodeProposal(r io.Reader, format Format) (*domain.Proposal, error) {
	var proposal domain.Proposal
	var err error
	switch format {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&proposal)
	default:
		err = yaml.NewDecoder(r).Decode(&proposal)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode proposal: %w", err)
	}

	proposal.Normalize()
	return &proposal, nil
}

func EncodeProposal(w io.Writer, proposal *domain.Proposal, format Format) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(proposal)
	default:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(proposal); err != nil {
			return err
		}
		return encoder.Close()
	}
}

func ReadProposalFile(path string) (*domain.Proposal, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return DecodeProposal(file, FormatFor(path))
}

// WriteProposalFile writes through a temp file and renames it into place so a
// failed write never leaves a truncated document behind.
func WriteProposalFile(path string, proposal *domain.Proposal) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	if err := EncodeProposal(file, proposal, FormatFor(path)); err != nil {
		file.Close()
		os.Remove(tempPath)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}

	return os.Rename(tempPath, path)
}
