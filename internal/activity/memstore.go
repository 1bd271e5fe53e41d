package activity

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/legalpro/caseflow/model"
)

// MemoryStore is an in-memory activity Store for testing and single-node
// deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]model.Activity // key: activity ID
	byCase  map[string][]string       // key: case ID, values: activity IDs
}

// NewMemoryStore creates a new in-memory activity store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]model.Activity),
		byCase:  make(map[string][]string),
	}
}

// Append adds an entry to a case's audit trail.
func (s *MemoryStore) Append(_ context.Context, act model.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[act.ID]; exists {
		return model.NewConflictError(
			fmt.Sprintf("activity %q already exists", act.ID),
		)
	}

	s.entries[act.ID] = act
	s.byCase[act.CaseID] = append(s.byCase[act.CaseID], act.ID)
	return nil
}

// Get retrieves an entry by ID.
func (s *MemoryStore) Get(_ context.Context, activityID string) (model.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	act, exists := s.entries[activityID]
	if !exists {
		return model.Activity{}, model.NewNotFoundError(
			fmt.Sprintf("activity %q not found", activityID),
		)
	}
	return act, nil
}

// Find returns a case's visible entries matching the filters, newest
// first.
func (s *MemoryStore) Find(_ context.Context, caseID string, filters model.ActivityFilters) ([]model.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Activity
	for _, id := range s.byCase[caseID] {
		act := s.entries[id]
		if !act.Visible {
			continue
		}
		if len(filters.Types) > 0 && !containsType(filters.Types, act.Type) {
			continue
		}
		if filters.Category != "" && act.Category != filters.Category {
			continue
		}
		if filters.Priority != "" && act.Priority != filters.Priority {
			continue
		}
		if filters.PerformedBy != "" && act.PerformedBy != filters.PerformedBy {
			continue
		}
		if filters.From != nil && act.PerformedAt.Before(*filters.From) {
			continue
		}
		if filters.To != nil && act.PerformedAt.After(*filters.To) {
			continue
		}
		result = append(result, act)
	}

	// Sort by performed_at descending.
	sort.Slice(result, func(i, j int) bool {
		return result[i].PerformedAt.After(result[j].PerformedAt)
	})

	if filters.Offset > 0 {
		if filters.Offset >= len(result) {
			return []model.Activity{}, nil
		}
		result = result[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(result) {
		result = result[:filters.Limit]
	}

	return result, nil
}

// SetImportant flags or unflags an entry as important.
func (s *MemoryStore) SetImportant(_ context.Context, activityID string, important bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	act, exists := s.entries[activityID]
	if !exists {
		return model.NewNotFoundError(
			fmt.Sprintf("activity %q not found", activityID),
		)
	}
	act.Important = important
	s.entries[activityID] = act
	return nil
}

// SetVisible shows or hides an entry.
func (s *MemoryStore) SetVisible(_ context.Context, activityID string, visible bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	act, exists := s.entries[activityID]
	if !exists {
		return model.NewNotFoundError(
			fmt.Sprintf("activity %q not found", activityID),
		)
	}
	act.Visible = visible
	s.entries[activityID] = act
	return nil
}

// SetNotification records the outcome of a notification attempt.
func (s *MemoryStore) SetNotification(_ context.Context, activityID string, sent bool, notifyErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	act, exists := s.entries[activityID]
	if !exists {
		return model.NewNotFoundError(
			fmt.Sprintf("activity %q not found", activityID),
		)
	}
	act.NotificationSent = sent
	act.NotifyError = notifyErr
	if sent {
		now := time.Now().UTC()
		act.NotifiedAt = &now
	}
	s.entries[activityID] = act
	return nil
}

// SweepVisibility hides stale entries, skipping important and critical
// ones.
func (s *MemoryStore) SweepVisibility(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hidden := 0
	for id, act := range s.entries {
		if !act.Visible {
			continue
		}
		if act.Important || act.Priority == model.ActivityPriorityCritical {
			continue
		}
		if !act.PerformedAt.Before(cutoff) {
			continue
		}
		act.Visible = false
		s.entries[id] = act
		hidden++
	}
	return hidden, nil
}

// Len returns the total number of entries including hidden ones. For
// testing.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func containsType(types []string, t string) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
