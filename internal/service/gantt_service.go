package service

import (
	"github.com/rcliao/blueprint/internal/schedule"
	"github.com/rcliao/blueprint/internal/search"
)

type GanttService struct {
	proposalService *ProposalService
}

func NewGanttService(proposalService *ProposalService) *GanttService {
	return &GanttService{
		proposalService: proposalService,
	}
}

// Chart projects a proposal's scheduled tasks onto a Gantt chart.
func (gs *GanttService) Chart(proposalID string) (*schedule.Chart, error) {
	proposal, err := gs.proposalService.Get(proposalID)
	if err != nil {
		return nil, err
	}
	chart := schedule.Gantt(proposal.Objectives)
	return &chart, nil
}

type SearchService struct {
	searcher *search.HybridSearch
}

func NewSearchService(storage search.ProposalStorage) *SearchService {
	return &SearchService{
		searcher: search.NewHybridSearch(storage),
	}
}

func (ss *SearchService) Search(query string, opts search.Options) ([]*search.Result, error) {
	return ss.searcher.Search(query, opts)
}
