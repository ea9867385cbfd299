package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rcliao/blueprint/internal/domain"
)

type HybridSearch struct {
	storage ProposalStorage
}

type ProposalStorage interface {
	ListProposals(filter domain.ProposalFilter) ([]*domain.Proposal, error)
	GetProposal(id string) (*domain.Proposal, error)
}

type Options struct {
	ProposalID *string
	Limit      int
	Offset     int
}

type Result struct {
	ProposalID     string      `json:"proposalId"`
	ProposalName   string      `json:"proposalName"`
	ObjectiveOrder string      `json:"objectiveOrder"`
	ObjectiveName  string      `json:"objectiveName"`
	Task           domain.Task `json:"task"`
	Score          float64     `json:"score"`
	MatchType      string      `json:"matchType"`
	Snippet        string      `json:"snippet"`

	// position keeps ties in schedule order
	position int
}

func NewHybridSearch(storage ProposalStorage) *HybridSearch {
	return &HybridSearch{
		storage: storage,
	}
}

func (hs *HybridSearch) Search(query string, opts Options) ([]*Result, error) {
	var proposals []*domain.Proposal
	if opts.ProposalID != nil {
		p, err := hs.storage.GetProposal(*opts.ProposalID)
		if err != nil {
			return nil, err
		}
		proposals = []*domain.Proposal{p}
	} else {
		all, err := hs.storage.ListProposals(domain.ProposalFilter{})
		if err != nil {
			return nil, err
		}
		proposals = all
	}

	var results []*Result
	queryLower := strings.ToLower(strings.TrimSpace(query))
	if queryLower == "" {
		return []*Result{}, nil
	}

	position := 0
	for _, p := range proposals {
		for _, o := range p.Objectives {
			for _, task := range o.Tasks {
				position++
				base := Result{
					ProposalID:     p.ID,
					ProposalName:   p.Name,
					ObjectiveOrder: o.Order,
					ObjectiveName:  o.Name,
					Task:           task,
					position:       position,
				}

				// Strategy 1: task name
				if score := hs.keywordSearch(task, queryLower); score > 0 {
					r := base
					r.Score, r.MatchType, r.Snippet = score, "keyword", hs.highlightText(task.Name, queryLower)
					results = append(results, &r)
				}

				// Strategy 2: the objective the task belongs to
				if score := hs.objectiveSearch(o, queryLower); score > 0 {
					r := base
					r.Score, r.MatchType, r.Snippet = score, "objective", o.Order+". "+hs.highlightText(o.Name, queryLower)
					results = append(results, &r)
				}

				// Strategy 3: predecessor references
				if score := hs.structuralSearch(task, queryLower); score > 0 {
					r := base
					r.Score, r.MatchType, r.Snippet = score, "structural", "Predecessor: "+hs.highlightText(task.Predecessor, queryLower)
					results = append(results, &r)
				}
			}
		}
	}

	merged := hs.mergeAndRank(results)

	if opts.Offset < 0 {
		opts.Offset = 0
	}
	if opts.Limit > 0 {
		end := opts.Offset + opts.Limit
		if end > len(merged) {
			end = len(merged)
		}
		if opts.Offset < len(merged) {
			merged = merged[opts.Offset:end]
		} else {
			merged = []*Result{}
		}
	}

	return merged, nil
}

func (hs *HybridSearch) keywordSearch(task domain.Task, query string) float64 {
	nameLower := strings.ToLower(task.Name)
	if !strings.Contains(nameLower, query) {
		return 0.0
	}
	score := 10.0
	if nameLower == query {
		score += 5.0 // Exact match bonus
	}
	return score
}

func (hs *HybridSearch) objectiveSearch(o domain.Objective, query string) float64 {
	if strings.Contains(strings.ToLower(o.Name), query) {
		return 4.0
	}
	return 0.0
}

func (hs *HybridSearch) structuralSearch(task domain.Task, query string) float64 {
	if task.Predecessor != "" && strings.Contains(strings.ToLower(task.Predecessor), query) {
		return 6.0
	}
	return 0.0
}

// highlightText compares rune windows with case folding so the cut always
// lands on rune boundaries of the original text.
func (hs *HybridSearch) highlightText(text, query string) string {
	width := utf8.RuneCountInString(query)
	if width == 0 {
		return text
	}

	for start := range text {
		end, n := start, 0
		for n < width && end < len(text) {
			_, size := utf8.DecodeRuneInString(text[end:])
			end += size
			n++
		}
		if n < width {
			break
		}
		if strings.EqualFold(text[start:end], query) {
			return text[:start] + "**" + text[start:end] + "**" + text[end:]
		}
	}
	return text
}

func (hs *HybridSearch) mergeAndRank(results []*Result) []*Result {
	// Group by proposal and task, summing scores
	byTask := make(map[string]*Result)
	best := make(map[string]float64)

	for _, result := range results {
		key := result.ProposalID + "/" + result.Task.ID
		existing, exists := byTask[key]
		if !exists {
			byTask[key] = result
			best[key] = result.Score
			continue
		}
		existing.Score += result.Score
		if result.Score > best[key] {
			best[key] = result.Score
			existing.MatchType = result.MatchType
			existing.Snippet = result.Snippet
		}
	}

	merged := make([]*Result, 0, len(byTask))
	for _, result := range byTask {
		merged = append(merged, result)
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].position < merged[j].position
	})

	return merged
}
