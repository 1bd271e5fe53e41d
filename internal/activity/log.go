package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/legalpro/caseflow/model"
)

// CaseToucher bumps a case's last-activity timestamp when its trail
// grows.
type CaseToucher interface {
	TouchLastActivity(ctx context.Context, caseID string) error
}

// Log is the audit-trail service over an activity Store.
type Log struct {
	store       Store
	cases       CaseToucher
	logger      *zap.Logger
	environment string
}

// NewLog creates an activity log service.
func NewLog(store Store, cases CaseToucher, logger *zap.Logger, environment string) *Log {
	return &Log{
		store:       store,
		cases:       cases,
		logger:      logger,
		environment: environment,
	}
}

// RecordInput describes one audit-trail entry to record.
type RecordInput struct {
	CaseID      string
	Type        string
	Action      string
	Description string
	PerformedBy string
	Priority    string
	Category    string
	Details     map[string]any
	DocumentID  string
	UserID      string
	NoteID      string
	System      bool
	Important   bool
}

// Record validates and appends an audit-trail entry, then bumps the
// parent case's last-activity timestamp.
func (l *Log) Record(ctx context.Context, in RecordInput) (model.Activity, error) {
	var details []model.FieldError
	if in.CaseID == "" {
		details = append(details, model.FieldError{Field: "case_id", Code: "required", Message: "case_id is required"})
	}
	if !model.KnownActivityTypes[in.Type] {
		details = append(details, model.FieldError{Field: "type", Code: "invalid", Message: fmt.Sprintf("unknown activity type %q", in.Type)})
	}
	if in.Action == "" {
		details = append(details, model.FieldError{Field: "action", Code: "required", Message: "action is required"})
	}
	if in.Description == "" {
		details = append(details, model.FieldError{Field: "description", Code: "required", Message: "description is required"})
	}
	if in.PerformedBy == "" {
		details = append(details, model.FieldError{Field: "performed_by", Code: "required", Message: "performed_by is required"})
	}
	if len(details) > 0 {
		return model.Activity{}, model.NewValidationError(details)
	}

	if in.Priority == "" {
		in.Priority = model.ActivityPriorityMedium
	}
	if in.Category == "" {
		in.Category = model.CategoryCaseManagement
	}

	now := time.Now().UTC()
	enriched := make(map[string]any, len(in.Details)+3)
	for k, v := range in.Details {
		enriched[k] = v
	}
	enriched["recorded_at"] = now.Format(time.RFC3339)
	enriched["source"] = "caseflow"
	enriched["environment"] = l.environment

	act := model.Activity{
		ID:              uuid.NewString(),
		CaseID:          in.CaseID,
		Type:            in.Type,
		Action:          in.Action,
		Description:     in.Description,
		PerformedBy:     in.PerformedBy,
		PerformedAt:     now,
		Priority:        in.Priority,
		Category:        in.Category,
		Details:         enriched,
		DocumentID:      in.DocumentID,
		UserID:          in.UserID,
		NoteID:          in.NoteID,
		SystemGenerated: in.System,
		Visible:         true,
		Important:       in.Important,
	}

	if err := l.store.Append(ctx, act); err != nil {
		return model.Activity{}, err
	}

	// The trail entry is the record; a failed touch only leaves the case
	// listing order stale.
	if err := l.cases.TouchLastActivity(ctx, act.CaseID); err != nil {
		l.logger.Warn("failed to touch case last activity",
			zap.String("case_id", act.CaseID),
			zap.Error(err),
		)
	}

	return act, nil
}

// Timeline returns a case's visible entries, newest first.
func (l *Log) Timeline(ctx context.Context, caseID string, filters model.ActivityFilters) ([]model.Activity, error) {
	return l.store.Find(ctx, caseID, filters)
}

// MarkImportant flags or unflags an entry as important. Important
// entries survive retention sweeps.
func (l *Log) MarkImportant(ctx context.Context, activityID string, important bool) (model.Activity, error) {
	if err := l.store.SetImportant(ctx, activityID, important); err != nil {
		return model.Activity{}, err
	}
	return l.store.Get(ctx, activityID)
}

// Hide removes an entry from timelines without deleting it.
func (l *Log) Hide(ctx context.Context, activityID string) error {
	return l.store.SetVisible(ctx, activityID, false)
}

// RecordNotification marks whether an entry's notification was queued.
func (l *Log) RecordNotification(ctx context.Context, activityID string, sent bool, notifyErr string) error {
	return l.store.SetNotification(ctx, activityID, sent, notifyErr)
}

// CleanupOld hides entries older than daysToKeep, skipping important and
// critical entries. Returns the number of entries hidden.
func (l *Log) CleanupOld(ctx context.Context, daysToKeep int) (int, error) {
	if daysToKeep < 1 {
		return 0, model.NewBadRequestError("daysToKeep must be at least 1")
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -daysToKeep)
	hidden, err := l.store.SweepVisibility(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if hidden > 0 {
		l.logger.Info("retention sweep hid stale activities",
			zap.Int("hidden", hidden),
			zap.Time("cutoff", cutoff),
		)
	}
	return hidden, nil
}
