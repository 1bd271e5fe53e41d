// Package activity maintains the append-only audit trail attached to
// cases. Entries are never hard-deleted; retention flips visibility.
package activity

import (
	"context"
	"time"

	"github.com/legalpro/caseflow/model"
)

// Store persists activity entries.
type Store interface {
	// Append adds an entry to a case's audit trail.
	Append(ctx context.Context, act model.Activity) error

	// Get retrieves an entry by ID. Returns NOT_FOUND if it doesn't
	// exist.
	Get(ctx context.Context, activityID string) (model.Activity, error)

	// Find returns a case's entries matching the filters, newest first.
	// Hidden entries are excluded.
	Find(ctx context.Context, caseID string, filters model.ActivityFilters) ([]model.Activity, error)

	// SetImportant flags or unflags an entry as important.
	SetImportant(ctx context.Context, activityID string, important bool) error

	// SetVisible shows or hides an entry.
	SetVisible(ctx context.Context, activityID string, visible bool) error

	// SetNotification records the outcome of a notification attempt.
	SetNotification(ctx context.Context, activityID string, sent bool, notifyErr string) error

	// SweepVisibility hides visible entries performed before the cutoff,
	// skipping important and critical-priority entries. Returns the
	// number of entries hidden.
	SweepVisibility(ctx context.Context, cutoff time.Time) (int, error)
}
