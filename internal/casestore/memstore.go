package casestore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/legalpro/caseflow/model"
)

// MemoryStore is an in-memory CaseStore and AdvocateDirectory for testing
// and single-node deployments.
type MemoryStore struct {
	mu        sync.RWMutex
	cases     map[string]model.Case     // key: case ID
	advocates map[string]model.Advocate // key: advocate ID
	sequences map[int]int               // key: year
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cases:     make(map[string]model.Case),
		advocates: make(map[string]model.Advocate),
		sequences: make(map[int]int),
	}
}

// Create persists a new case.
func (s *MemoryStore) Create(_ context.Context, c model.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.cases[c.ID]; exists {
		return model.NewConflictError(
			fmt.Sprintf("case %q already exists", c.ID),
		)
	}

	s.cases[c.ID] = cloneCase(c)
	return nil
}

// Get retrieves a case by ID. The returned case shares no slice state
// with the store, so callers may mutate it freely.
func (s *MemoryStore) Get(_ context.Context, caseID string) (model.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.cases[caseID]
	if !exists {
		return model.Case{}, model.NewNotFoundError(
			fmt.Sprintf("case %q not found", caseID),
		)
	}
	return cloneCase(c), nil
}

// Update persists an updated case with optimistic locking.
func (s *MemoryStore) Update(_ context.Context, c model.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.cases[c.ID]
	if !exists {
		return model.NewNotFoundError(
			fmt.Sprintf("case %q not found", c.ID),
		)
	}

	// Optimistic lock check.
	if existing.Version != c.Version {
		return model.NewConflictError(
			fmt.Sprintf("case %q version conflict (expected %d, got %d)", c.ID, c.Version, existing.Version),
		)
	}

	c.Version++
	c.UpdatedAt = time.Now().UTC()
	s.cases[c.ID] = cloneCase(c)
	return nil
}

// List returns cases matching the filters, newest first.
func (s *MemoryStore) List(_ context.Context, filters model.CaseFilters) ([]model.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Case
	for _, c := range s.cases {
		if filters.Status != "" && c.Status != filters.Status {
			continue
		}
		if filters.Priority != "" && c.Priority != filters.Priority {
			continue
		}
		if filters.AdvocateID != "" && !c.HasAdvocate(filters.AdvocateID) {
			continue
		}
		if filters.ClientID != "" && c.ClientID != filters.ClientID {
			continue
		}
		if filters.Query != "" && !matchesQuery(c, filters.Query) {
			continue
		}
		result = append(result, cloneCase(c))
	}

	// Sort by created_at descending.
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	// Apply offset and limit.
	if filters.Offset > 0 {
		if filters.Offset >= len(result) {
			return []model.Case{}, nil
		}
		result = result[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(result) {
		result = result[:filters.Limit]
	}

	return result, nil
}

// FindByAdvocate returns every case carrying the advocate.
func (s *MemoryStore) FindByAdvocate(_ context.Context, advocateID string) ([]model.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Case
	for _, c := range s.cases {
		if c.HasAdvocate(advocateID) {
			result = append(result, cloneCase(c))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// TouchLastActivity bumps the last_activity timestamp.
func (s *MemoryStore) TouchLastActivity(_ context.Context, caseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.cases[caseID]
	if !exists {
		return model.NewNotFoundError(
			fmt.Sprintf("case %q not found", caseID),
		)
	}

	c.LastActivity = time.Now().UTC()
	s.cases[caseID] = c
	return nil
}

// NextCaseNumber allocates the next case number for the year.
func (s *MemoryStore) NextCaseNumber(_ context.Context, year int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sequences[year]++
	return FormatCaseNumber(s.sequences[year], year), nil
}

// Summary aggregates case counts by status and priority.
func (s *MemoryStore) Summary(_ context.Context) (model.CaseSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := model.CaseSummary{
		ByStatus:   make(map[string]int),
		ByPriority: make(map[string]int),
	}
	for _, c := range s.cases {
		summary.Total++
		summary.ByStatus[c.Status]++
		summary.ByPriority[c.Priority]++
	}
	return summary, nil
}

// GetAdvocate retrieves a directory entry by ID.
func (s *MemoryStore) GetAdvocate(_ context.Context, advocateID string) (model.Advocate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	adv, exists := s.advocates[advocateID]
	if !exists {
		return model.Advocate{}, model.NewNotFoundError(
			fmt.Sprintf("advocate %q not found", advocateID),
		)
	}
	return adv, nil
}

// ListAdvocates returns directory entries sorted by ID.
func (s *MemoryStore) ListAdvocates(_ context.Context, activeOnly bool) ([]model.Advocate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Advocate
	for _, adv := range s.advocates {
		if activeOnly && !adv.Active {
			continue
		}
		result = append(result, adv)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// PutAdvocate creates or replaces a directory entry.
func (s *MemoryStore) PutAdvocate(_ context.Context, adv model.Advocate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.advocates[adv.ID] = adv
	return nil
}

// Len returns the total number of cases. For testing.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cases)
}

// cloneCase copies a case so stored state never shares a backing array
// with caller-held values.
func cloneCase(c model.Case) model.Case {
	if len(c.SecondaryAdvocates) > 0 {
		secondaries := make([]string, len(c.SecondaryAdvocates))
		copy(secondaries, c.SecondaryAdvocates)
		c.SecondaryAdvocates = secondaries
	}
	return c
}

func matchesQuery(c model.Case, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(c.Title), q) ||
		strings.Contains(strings.ToLower(c.CaseNumber), q) ||
		strings.Contains(strings.ToLower(c.Description), q)
}
