// Package casestore persists cases and the advocate directory.
package casestore

import (
	"context"
	"fmt"

	"github.com/legalpro/caseflow/model"
)

// CaseStore persists cases.
type CaseStore interface {
	// Create persists a new case.
	Create(ctx context.Context, c model.Case) error

	// Get retrieves a case by ID. Returns NOT_FOUND if the case doesn't
	// exist.
	Get(ctx context.Context, caseID string) (model.Case, error)

	// Update persists an updated case with optimistic locking. The version
	// must match the current stored version. Returns CONFLICT if the
	// version has changed.
	Update(ctx context.Context, c model.Case) error

	// List returns cases matching the given filters, newest first.
	List(ctx context.Context, filters model.CaseFilters) ([]model.Case, error)

	// FindByAdvocate returns every case on which the advocate is primary
	// or secondary.
	FindByAdvocate(ctx context.Context, advocateID string) ([]model.Case, error)

	// TouchLastActivity bumps a case's last_activity timestamp without
	// changing its version.
	TouchLastActivity(ctx context.Context, caseID string) error

	// NextCaseNumber allocates the next case number for the given year.
	NextCaseNumber(ctx context.Context, year int) (string, error)

	// Summary aggregates case counts by status and priority.
	Summary(ctx context.Context) (model.CaseSummary, error)
}

// AdvocateDirectory looks up users who can be assigned to cases.
type AdvocateDirectory interface {
	// GetAdvocate retrieves an advocate by ID. Returns NOT_FOUND if the
	// advocate doesn't exist.
	GetAdvocate(ctx context.Context, advocateID string) (model.Advocate, error)

	// ListAdvocates returns directory entries, optionally restricted to
	// active advocates, sorted by ID.
	ListAdvocates(ctx context.Context, activeOnly bool) ([]model.Advocate, error)

	// PutAdvocate creates or replaces a directory entry.
	PutAdvocate(ctx context.Context, adv model.Advocate) error
}

// FormatCaseNumber renders a case number from its yearly sequence.
func FormatCaseNumber(seq, year int) string {
	return fmt.Sprintf("LP/%04d/%d", seq, year)
}
