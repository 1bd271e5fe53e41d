// Package cases provides creation, lookup, and metadata editing for
// cases. Status and progress movement belongs to the workflow engine;
// advocate membership belongs to the assignment engine. This service
// touches neither.
package cases

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/legalpro/caseflow/internal/activity"
	"github.com/legalpro/caseflow/internal/casestore"
	"github.com/legalpro/caseflow/model"
)

type Service struct {
	store      casestore.CaseStore
	activities *activity.Log
	logger     *zap.Logger
}

func NewService(store casestore.CaseStore, activities *activity.Log, logger *zap.Logger) *Service {
	return &Service{
		store:      store,
		activities: activities,
		logger:     logger,
	}
}

// CreateInput describes a new case. Status, progress, and assignment
// are not accepted here; a new case always starts as a draft.
type CreateInput struct {
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Category           string     `json:"category"`
	Priority           string     `json:"priority"`
	ClientID           string     `json:"client_id"`
	CourtDate          *time.Time `json:"court_date"`
	ExpectedCompletion *time.Time `json:"expected_completion"`
}

// UpdateInput carries mutable case metadata. Nil fields are untouched.
type UpdateInput struct {
	Title              *string    `json:"title"`
	Description        *string    `json:"description"`
	Category           *string    `json:"category"`
	Priority           *string    `json:"priority"`
	Notes              *string    `json:"notes"`
	CourtDate          *time.Time `json:"court_date"`
	ExpectedCompletion *time.Time `json:"expected_completion"`
	// Version is the version the caller last read. A stale version is
	// rejected with CONFLICT.
	Version int `json:"version"`
}

var validPriorities = map[string]bool{
	model.PriorityLow:    true,
	model.PriorityMedium: true,
	model.PriorityHigh:   true,
	model.PriorityUrgent: true,
}

// Create opens a new draft case with a generated case number.
func (s *Service) Create(ctx context.Context, rctx *model.RequestContext, in CreateInput) (model.Case, error) {
	if !rctx.HasAnyRole(model.RoleAdvocate, model.RoleAdmin, model.RoleSuperAdmin) {
		return model.Case{}, model.NewForbiddenError("Only advocates and administrators can create cases")
	}

	var details []model.FieldError
	if in.Title == "" {
		details = append(details, model.FieldError{Field: "title", Code: "required", Message: "title is required"})
	}
	if in.Priority != "" && !validPriorities[in.Priority] {
		details = append(details, model.FieldError{Field: "priority", Code: "invalid", Message: fmt.Sprintf("unknown priority %q", in.Priority)})
	}
	if len(details) > 0 {
		return model.Case{}, model.NewValidationError(details)
	}
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}

	now := time.Now().UTC()
	number, err := s.store.NextCaseNumber(ctx, now.Year())
	if err != nil {
		return model.Case{}, err
	}

	c := model.Case{
		ID:                 uuid.NewString(),
		CaseNumber:         number,
		Title:              in.Title,
		Description:        in.Description,
		Category:           in.Category,
		Status:             model.StatusDraft,
		Priority:           in.Priority,
		ClientID:           in.ClientID,
		CourtDate:          in.CourtDate,
		ExpectedCompletion: in.ExpectedCompletion,
		LastActivity:       now,
		CreatedBy:          rctx.SubjectID,
		UpdatedBy:          rctx.SubjectID,
		CreatedAt:          now,
		UpdatedAt:          now,
		Version:            1,
	}
	if err := s.store.Create(ctx, c); err != nil {
		return model.Case{}, err
	}

	if _, err := s.activities.Record(ctx, activity.RecordInput{
		CaseID:      c.ID,
		Type:        model.ActivityCaseCreated,
		Action:      "Case Created",
		Description: fmt.Sprintf("Case %s created", c.CaseNumber),
		PerformedBy: rctx.SubjectID,
		Details: map[string]any{
			"case_number": c.CaseNumber,
			"priority":    c.Priority,
		},
	}); err != nil {
		s.logger.Warn("failed to record case creation",
			zap.String("case_id", c.ID),
			zap.Error(err),
		)
	}

	return c, nil
}

// Get returns one case by ID.
func (s *Service) Get(ctx context.Context, caseID string) (model.Case, error) {
	return s.store.Get(ctx, caseID)
}

// List returns cases matching the filters, newest first.
func (s *Service) List(ctx context.Context, filters model.CaseFilters) ([]model.Case, error) {
	return s.store.List(ctx, filters)
}

// Update edits mutable metadata on a case. Passing the version the
// caller last read makes lost updates impossible.
func (s *Service) Update(ctx context.Context, rctx *model.RequestContext, caseID string, in UpdateInput) (model.Case, error) {
	if !rctx.HasAnyRole(model.RoleAdvocate, model.RoleAdmin, model.RoleSuperAdmin) {
		return model.Case{}, model.NewForbiddenError("Only advocates and administrators can edit cases")
	}

	c, err := s.store.Get(ctx, caseID)
	if err != nil {
		return model.Case{}, err
	}
	if !rctx.IsAdmin() && !c.HasAdvocate(rctx.SubjectID) {
		return model.Case{}, model.NewForbiddenError("Actor is not assigned to this case")
	}

	var details []model.FieldError
	if in.Title != nil && *in.Title == "" {
		details = append(details, model.FieldError{Field: "title", Code: "required", Message: "title cannot be empty"})
	}
	if in.Priority != nil && !validPriorities[*in.Priority] {
		details = append(details, model.FieldError{Field: "priority", Code: "invalid", Message: fmt.Sprintf("unknown priority %q", *in.Priority)})
	}
	if len(details) > 0 {
		return model.Case{}, model.NewValidationError(details)
	}

	changed := map[string]any{}
	if in.Title != nil && *in.Title != c.Title {
		changed["title"] = *in.Title
		c.Title = *in.Title
	}
	if in.Description != nil && *in.Description != c.Description {
		changed["description"] = *in.Description
		c.Description = *in.Description
	}
	if in.Category != nil && *in.Category != c.Category {
		changed["category"] = *in.Category
		c.Category = *in.Category
	}
	if in.Priority != nil && *in.Priority != c.Priority {
		changed["priority"] = *in.Priority
		c.Priority = *in.Priority
	}
	if in.Notes != nil && *in.Notes != c.Notes {
		changed["notes"] = *in.Notes
		c.Notes = *in.Notes
	}
	if in.CourtDate != nil {
		changed["court_date"] = in.CourtDate.Format(time.RFC3339)
		c.CourtDate = in.CourtDate
	}
	if in.ExpectedCompletion != nil {
		changed["expected_completion"] = in.ExpectedCompletion.Format(time.RFC3339)
		c.ExpectedCompletion = in.ExpectedCompletion
	}
	if len(changed) == 0 {
		return c, nil
	}

	if in.Version > 0 {
		c.Version = in.Version
	}
	c.UpdatedBy = rctx.SubjectID
	c.LastActivity = time.Now().UTC()
	if err := s.store.Update(ctx, c); err != nil {
		return model.Case{}, err
	}
	c.Version++
	c.UpdatedAt = time.Now().UTC()

	if _, err := s.activities.Record(ctx, activity.RecordInput{
		CaseID:      c.ID,
		Type:        model.ActivityCaseUpdated,
		Action:      "Case Updated",
		Description: fmt.Sprintf("Case %s metadata updated", c.CaseNumber),
		PerformedBy: rctx.SubjectID,
		Details:     map[string]any{"changed": changed},
	}); err != nil {
		s.logger.Warn("failed to record case update",
			zap.String("case_id", c.ID),
			zap.Error(err),
		)
	}

	return c, nil
}
