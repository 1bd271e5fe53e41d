package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/legalpro/caseflow/internal/activity"
	"github.com/legalpro/caseflow/internal/casestore"
	"github.com/legalpro/caseflow/internal/notify"
	"github.com/legalpro/caseflow/model"
)

// Engine moves cases through the status lifecycle.
type Engine struct {
	cases      casestore.CaseStore
	activities *activity.Log
	notifier   notify.Dispatcher
	logger     *zap.Logger
	hooks      []Hook
}

// NewEngine creates a workflow engine.
func NewEngine(
	cases casestore.CaseStore,
	activities *activity.Log,
	notifier notify.Dispatcher,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		cases:      cases,
		activities: activities,
		notifier:   notifier,
		logger:     logger,
	}
}

// RegisterHook adds a post-transition hook. Hooks run best-effort after
// the change has been persisted.
func (e *Engine) RegisterHook(h Hook) {
	e.hooks = append(e.hooks, h)
}

// ChangeStatus moves a case to a new status, applying the status's
// entry actions and recording the change in the audit trail.
func (e *Engine) ChangeStatus(
	ctx context.Context,
	rctx *model.RequestContext,
	caseID, newStatus string,
	opts model.StatusChangeOptions,
) (model.StatusChange, error) {
	// 1. Validate target status.
	if !IsKnownStatus(newStatus) {
		return model.StatusChange{}, model.NewBadRequestError(
			fmt.Sprintf("unknown status %q", newStatus),
		)
	}

	// 2. Load case.
	c, err := e.cases.Get(ctx, caseID)
	if err != nil {
		return model.StatusChange{}, err
	}

	// 3. Check the status graph.
	if !CanTransition(c.Status, newStatus) {
		if len(TargetsFrom(c.Status)) == 0 {
			return model.StatusChange{}, model.NewInvalidTransitionError(
				fmt.Sprintf("case %q is %s, a terminal status", caseID, c.Status),
			)
		}
		return model.StatusChange{}, model.NewInvalidTransitionError(
			fmt.Sprintf("cannot move case from %s to %s", c.Status, newStatus),
		)
	}

	// 4. Gate by assignment, then by role. Non-admin actors must be on
	// the case before their role is even considered.
	if !rctx.IsAdmin() && !c.HasAdvocate(rctx.SubjectID) {
		return model.StatusChange{}, model.NewForbiddenError(
			"only advocates assigned to the case may change its status",
		)
	}
	if !roleMayEnter(rctx.Roles, newStatus) {
		return model.StatusChange{}, model.NewForbiddenError(
			fmt.Sprintf("role not permitted to set status %s", newStatus),
		)
	}

	// 5. A draft may not progress without counsel on record. Dismissal
	// is exempt so abandoned drafts can be cleared without an advocate.
	if c.Status == model.StatusDraft && newStatus != model.StatusDismissed && c.PrimaryAdvocate == "" {
		return model.StatusChange{}, model.NewValidationError([]model.FieldError{{
			Field:   "primary_advocate",
			Code:    "required",
			Message: "a primary advocate must be assigned before the case leaves draft",
		}})
	}

	// 6. Enforce the target's required inputs.
	profile := actionProfiles[newStatus]
	if err := checkRequirements(profile, opts); err != nil {
		return model.StatusChange{}, err
	}

	// 7. Apply entry actions.
	now := time.Now().UTC()
	previous := c.Status
	c.Status = newStatus
	if profile.Progress != nil {
		c.Progress = *profile.Progress
	}
	switch profile.AutoSetDate {
	case dateFieldAssigned:
		if c.DateAssigned == nil {
			c.DateAssigned = &now
		}
	case dateFieldCompletion:
		c.ActualCompletion = &now
	}
	if profile.RequiresOutcome {
		c.Outcome = opts.Outcome
	}
	c.UpdatedBy = rctx.SubjectID
	c.LastActivity = now

	// 8. Persist with optimistic locking.
	if err := e.cases.Update(ctx, c); err != nil {
		return model.StatusChange{}, err
	}
	c.Version++
	c.UpdatedAt = now

	// 9. Record the change in the audit trail.
	priority := model.ActivityPriorityMedium
	if newStatus == model.StatusClosed || newStatus == model.StatusDismissed {
		priority = model.ActivityPriorityHigh
	}
	details := map[string]any{
		"previous_status": previous,
		"new_status":      newStatus,
	}
	if opts.Reason != "" {
		details["reason"] = opts.Reason
	}
	if opts.Outcome != "" {
		details["outcome"] = opts.Outcome
	}
	if opts.Notes != "" {
		details["notes"] = opts.Notes
	}

	act, err := e.activities.Record(ctx, activity.RecordInput{
		CaseID:      c.ID,
		Type:        model.ActivityStatusChanged,
		Action:      fmt.Sprintf("Status changed to %s", newStatus),
		Description: fmt.Sprintf("Case %s moved from %s to %s", c.CaseNumber, previous, newStatus),
		PerformedBy: rctx.SubjectID,
		Priority:    priority,
		Category:    model.CategoryCaseManagement,
		Details:     details,
	})
	if err != nil {
		return model.StatusChange{}, err
	}

	change := model.StatusChange{
		Case:           c,
		PreviousStatus: previous,
		NewStatus:      newStatus,
	}

	// 10. Queue the notification, best-effort.
	e.notifyChange(ctx, c, act.ID, profile, previous, newStatus)

	// 11. Run hooks, best-effort.
	for _, h := range e.hooks {
		h(ctx, change)
	}

	return change, nil
}

// AvailableTransitions returns the statuses the actor may move the case
// to, annotated for UI affordances.
func (e *Engine) AvailableTransitions(
	ctx context.Context,
	rctx *model.RequestContext,
	caseID string,
) ([]model.TransitionOption, error) {
	c, err := e.cases.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}

	assigned := rctx.IsAdmin() || c.HasAdvocate(rctx.SubjectID)

	options := make([]model.TransitionOption, 0)
	for _, target := range TargetsFrom(c.Status) {
		if !roleMayEnter(rctx.Roles, target) {
			continue
		}
		if !assigned {
			continue
		}
		profile := actionProfiles[target]
		options = append(options, model.TransitionOption{
			Status:      target,
			Label:       profile.Label,
			Description: profile.Description,
			Requires:    profile.requirements(),
		})
	}
	return options, nil
}

// checkRequirements validates caller-supplied inputs against the
// profile's demands.
func checkRequirements(profile actionProfile, opts model.StatusChangeOptions) error {
	var details []model.FieldError
	if profile.RequiresReason && opts.Reason == "" {
		details = append(details, model.FieldError{
			Field: "reason", Code: "required", Message: "a reason is required for this status",
		})
	}
	if profile.RequiresOutcome && opts.Outcome == "" {
		details = append(details, model.FieldError{
			Field: "outcome", Code: "required", Message: "an outcome is required to close a case",
		})
	}
	if profile.RequiresApproval && !opts.Approved {
		details = append(details, model.FieldError{
			Field: "approved", Code: "required", Message: "explicit approval is required for this status",
		})
	}
	if len(details) > 0 {
		return model.NewValidationError(details)
	}
	return nil
}

// notifyChange queues a status-change notification and records the
// outcome on the audit entry. Failures are logged, never surfaced.
func (e *Engine) notifyChange(
	ctx context.Context,
	c model.Case,
	activityID string,
	profile actionProfile,
	previous, newStatus string,
) {
	recipients := resolveRecipients(c, profile.NotifyRoles)
	if len(recipients) == 0 {
		return
	}

	msg := notify.Message{
		ID:         uuid.NewString(),
		CaseID:     c.ID,
		ActivityID: activityID,
		Recipients: recipients,
		Subject:    fmt.Sprintf("Case %s is now %s", c.CaseNumber, newStatus),
		Body:       fmt.Sprintf("Case %s (%s) moved from %s to %s", c.CaseNumber, c.Title, previous, newStatus),
		Data: map[string]any{
			"previous_status": previous,
			"new_status":      newStatus,
		},
		QueuedAt: time.Now().UTC(),
	}

	if err := e.notifier.Dispatch(ctx, msg); err != nil {
		e.logger.Warn("failed to queue status change notification",
			zap.String("case_id", c.ID),
			zap.Error(err),
		)
		if recordErr := e.activities.RecordNotification(ctx, activityID, false, err.Error()); recordErr != nil {
			e.logger.Warn("failed to record notification outcome",
				zap.String("activity_id", activityID),
				zap.Error(recordErr),
			)
		}
		return
	}

	if err := e.activities.RecordNotification(ctx, activityID, true, ""); err != nil {
		e.logger.Warn("failed to record notification outcome",
			zap.String("activity_id", activityID),
			zap.Error(err),
		)
	}
}

// resolveRecipients expands notification roles into concrete targets
// for the case. Roles without a concrete user on the case become
// role-wide recipients.
func resolveRecipients(c model.Case, roles []string) []notify.Recipient {
	var recipients []notify.Recipient
	for _, role := range roles {
		switch role {
		case model.RoleAdvocate:
			if c.PrimaryAdvocate != "" {
				recipients = append(recipients, notify.Recipient{UserID: c.PrimaryAdvocate, Role: role})
			}
			for _, id := range c.SecondaryAdvocates {
				recipients = append(recipients, notify.Recipient{UserID: id, Role: role})
			}
		case model.RoleClient:
			if c.ClientID != "" {
				recipients = append(recipients, notify.Recipient{UserID: c.ClientID, Role: role})
			}
		default:
			recipients = append(recipients, notify.Recipient{Role: role})
		}
	}
	return recipients
}
