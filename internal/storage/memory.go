package storage

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rcliao/blueprint/internal/domain"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrNoCurrent     = errors.New("no current proposal set")
)

// MemoryStorage owns the proposals a builder session is editing. Stored values
// are cloned on the way in and out so callers never share state with it.
type MemoryStorage struct {
	mu              sync.RWMutex
	proposals       map[string]*domain.Proposal
	currentProposal *string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		proposals: make(map[string]*domain.Proposal),
	}
}

func (ms *MemoryStorage) CreateProposal(proposal *domain.Proposal) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.proposals[proposal.ID]; exists {
		return fmt.Errorf("proposal with ID %s %w", proposal.ID, ErrAlreadyExists)
	}

	ms.proposals[proposal.ID] = proposal.Clone()
	return nil
}

func (ms *MemoryStorage) GetProposal(id string) (*domain.Proposal, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	proposal, exists := ms.proposals[id]
	if !exists {
		return nil, fmt.Errorf("proposal with ID %s %w", id, ErrNotFound)
	}

	return proposal.Clone(), nil
}

// ListProposals returns proposals oldest first.
func (ms *MemoryStorage) ListProposals(filter domain.ProposalFilter) ([]*domain.Proposal, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	result := make([]*domain.Proposal, 0, len(ms.proposals))
	for _, proposal := range ms.proposals {
		if filter.Client != nil && proposal.Client != *filter.Client {
			continue
		}
		result = append(result, proposal.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// UpdateProposal replaces the stored proposal with the same ID.
func (ms *MemoryStorage) UpdateProposal(proposal *domain.Proposal) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.proposals[proposal.ID]; !exists {
		return fmt.Errorf("proposal with ID %s %w", proposal.ID, ErrNotFound)
	}

	ms.proposals[proposal.ID] = proposal.Clone()
	return nil
}

func (ms *MemoryStorage) DeleteProposal(id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.proposals[id]; !exists {
		return fmt.Errorf("proposal with ID %s %w", id, ErrNotFound)
	}

	delete(ms.proposals, id)
	if ms.currentProposal != nil && *ms.currentProposal == id {
		ms.currentProposal = nil
	}
	return nil
}

func (ms *MemoryStorage) SetCurrentProposal(id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.proposals[id]; !exists {
		return fmt.Errorf("proposal with ID %s %w", id, ErrNotFound)
	}

	ms.currentProposal = &id
	return nil
}

func (ms *MemoryStorage) GetCurrentProposal() (*domain.Proposal, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if ms.currentProposal == nil {
		return nil, ErrNoCurrent
	}

	proposal, exists := ms.proposals[*ms.currentProposal]
	if !exists {
		return nil, fmt.Errorf("current proposal with ID %s %w", *ms.currentProposal, ErrNotFound)
	}

	return proposal.Clone(), nil
}
