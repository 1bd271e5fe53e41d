package assignment

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/legalpro/caseflow/internal/activity"
	"github.com/legalpro/caseflow/internal/casestore"
	"github.com/legalpro/caseflow/model"
)

// specializationBonus is added to a candidate's score when their
// specialization matches the requested one.
const specializationBonus = 15

// experienceCap caps the experience contribution to a candidate's score.
const experienceCap = 10

// Engine assigns advocates to cases.
type Engine struct {
	cases              casestore.CaseStore
	directory          casestore.AdvocateDirectory
	activities         *activity.Log
	logger             *zap.Logger
	maxActiveCases     int
	defaultMaxWorkload string
}

// NewEngine creates an assignment engine. maxActiveCases is the
// per-advocate active-case ceiling; defaultMaxWorkload is the band
// ceiling for auto-assignment candidates.
func NewEngine(
	cases casestore.CaseStore,
	directory casestore.AdvocateDirectory,
	activities *activity.Log,
	logger *zap.Logger,
	maxActiveCases int,
	defaultMaxWorkload string,
) *Engine {
	return &Engine{
		cases:              cases,
		directory:          directory,
		activities:         activities,
		logger:             logger,
		maxActiveCases:     maxActiveCases,
		defaultMaxWorkload: defaultMaxWorkload,
	}
}

// AssignOptions carries optional inputs to a primary assignment.
type AssignOptions struct {
	Reason string
	// MaxCases overrides the engine's active-case ceiling when positive.
	MaxCases int
}

// AutoAssignCriteria narrows the candidate pool for auto-assignment.
type AutoAssignCriteria struct {
	PreferredSpecialization string `json:"preferred_specialization"`
	// MaxWorkload is the heaviest acceptable band. Empty means the
	// engine default.
	MaxWorkload          string `json:"max_workload"`
	PrioritizeExperience bool   `json:"prioritize_experience"`
}

// AssignPrimary makes the advocate the case's primary assignee.
func (e *Engine) AssignPrimary(
	ctx context.Context,
	rctx *model.RequestContext,
	caseID, advocateID string,
	opts AssignOptions,
) (model.AssignmentResult, error) {
	// 1. Load case and candidate.
	c, err := e.cases.Get(ctx, caseID)
	if err != nil {
		return model.AssignmentResult{}, err
	}
	adv, err := e.directory.GetAdvocate(ctx, advocateID)
	if err != nil {
		return model.AssignmentResult{}, err
	}
	if !adv.CanBeAssigned() {
		return model.AssignmentResult{}, model.NewInvalidRoleError(
			fmt.Sprintf("user %q has role %s and cannot be assigned to cases", advocateID, adv.Role),
		)
	}
	if !adv.Active {
		return model.AssignmentResult{}, model.NewInvalidRoleError(
			fmt.Sprintf("advocate %q is not active", advocateID),
		)
	}
	if c.PrimaryAdvocate == advocateID {
		return model.AssignmentResult{}, model.NewAlreadyAssignedError(
			fmt.Sprintf("advocate %q is already primary on case %q", advocateID, caseID),
		)
	}

	// 2. Enforce the capacity ceiling.
	before, err := e.Workload(ctx, advocateID)
	if err != nil {
		return model.AssignmentResult{}, err
	}
	ceiling := e.maxActiveCases
	if opts.MaxCases > 0 {
		ceiling = opts.MaxCases
	}
	if before.ActiveCases >= ceiling {
		return model.AssignmentResult{}, model.NewCapacityExceededError(
			fmt.Sprintf("advocate %q has %d active cases, at or above the ceiling of %d", advocateID, before.ActiveCases, ceiling),
		)
	}

	// 3. Record the previous primary for the audit trail.
	previous := c.PrimaryAdvocate
	var previousBefore model.Workload
	if previous != "" {
		previousBefore, err = e.Workload(ctx, previous)
		if err != nil {
			return model.AssignmentResult{}, err
		}
	}

	// 4. Mutate and persist. A promoted secondary leaves the secondary
	// set.
	now := time.Now().UTC()
	c.PrimaryAdvocate = advocateID
	c.SecondaryAdvocates = removeID(c.SecondaryAdvocates, advocateID)
	if c.DateAssigned == nil {
		c.DateAssigned = &now
	}
	c.UpdatedBy = rctx.SubjectID
	c.LastActivity = now
	if err := e.cases.Update(ctx, c); err != nil {
		return model.AssignmentResult{}, err
	}
	c.Version++
	c.UpdatedAt = now

	// 5. Audit with before/after workload snapshots.
	after, err := e.Workload(ctx, advocateID)
	if err != nil {
		return model.AssignmentResult{}, err
	}

	details := map[string]any{
		"advocate_id":     advocateID,
		"workload_before": workloadSnapshot(before),
		"workload_after":  workloadSnapshot(after),
	}
	if opts.Reason != "" {
		details["reason"] = opts.Reason
	}
	if _, err := e.activities.Record(ctx, activity.RecordInput{
		CaseID:      c.ID,
		Type:        model.ActivityAdvocateAssigned,
		Action:      "Primary advocate assigned",
		Description: fmt.Sprintf("%s assigned as primary advocate on case %s", adv.Name, c.CaseNumber),
		PerformedBy: rctx.SubjectID,
		Priority:    model.ActivityPriorityHigh,
		Category:    model.CategoryAssignment,
		Details:     details,
		UserID:      advocateID,
	}); err != nil {
		return model.AssignmentResult{}, err
	}

	if previous != "" {
		previousAfter, err := e.Workload(ctx, previous)
		if err != nil {
			return model.AssignmentResult{}, err
		}
		if _, err := e.activities.Record(ctx, activity.RecordInput{
			CaseID:      c.ID,
			Type:        model.ActivityAdvocateRemoved,
			Action:      "Primary advocate replaced",
			Description: fmt.Sprintf("Advocate %s replaced as primary on case %s", previous, c.CaseNumber),
			PerformedBy: rctx.SubjectID,
			Priority:    model.ActivityPriorityMedium,
			Category:    model.CategoryAssignment,
			Details: map[string]any{
				"advocate_id":     previous,
				"workload_before": workloadSnapshot(previousBefore),
				"workload_after":  workloadSnapshot(previousAfter),
			},
			UserID: previous,
		}); err != nil {
			return model.AssignmentResult{}, err
		}
	}

	return model.AssignmentResult{
		Case:             c,
		Advocate:         adv,
		PreviousAdvocate: previous,
	}, nil
}

// AddSecondary adds the advocate to the case's secondary set.
func (e *Engine) AddSecondary(
	ctx context.Context,
	rctx *model.RequestContext,
	caseID, advocateID string,
) (model.Case, error) {
	c, err := e.cases.Get(ctx, caseID)
	if err != nil {
		return model.Case{}, err
	}
	adv, err := e.directory.GetAdvocate(ctx, advocateID)
	if err != nil {
		return model.Case{}, err
	}
	if !adv.CanBeAssigned() {
		return model.Case{}, model.NewInvalidRoleError(
			fmt.Sprintf("user %q has role %s and cannot be assigned to cases", advocateID, adv.Role),
		)
	}
	if c.PrimaryAdvocate == advocateID || c.IsSecondary(advocateID) {
		return model.Case{}, model.NewAlreadyAssignedError(
			fmt.Sprintf("advocate %q is already assigned to case %q", advocateID, caseID),
		)
	}

	now := time.Now().UTC()
	secondaries := make([]string, 0, len(c.SecondaryAdvocates)+1)
	secondaries = append(secondaries, c.SecondaryAdvocates...)
	c.SecondaryAdvocates = append(secondaries, advocateID)
	c.UpdatedBy = rctx.SubjectID
	c.LastActivity = now
	if err := e.cases.Update(ctx, c); err != nil {
		return model.Case{}, err
	}
	c.Version++
	c.UpdatedAt = now

	if _, err := e.activities.Record(ctx, activity.RecordInput{
		CaseID:      c.ID,
		Type:        model.ActivityAdvocateAssigned,
		Action:      "Secondary advocate added",
		Description: fmt.Sprintf("%s added as secondary advocate on case %s", adv.Name, c.CaseNumber),
		PerformedBy: rctx.SubjectID,
		Priority:    model.ActivityPriorityMedium,
		Category:    model.CategoryAssignment,
		Details:     map[string]any{"advocate_id": advocateID, "role": "secondary"},
		UserID:      advocateID,
	}); err != nil {
		return model.Case{}, err
	}

	return c, nil
}

// RemoveAdvocate takes the advocate off the case. Removing the primary
// requires a replacement in the same call; removing a secondary is
// unconditional.
func (e *Engine) RemoveAdvocate(
	ctx context.Context,
	rctx *model.RequestContext,
	caseID, advocateID, replacementID string,
) (model.Case, error) {
	c, err := e.cases.Get(ctx, caseID)
	if err != nil {
		return model.Case{}, err
	}

	if c.PrimaryAdvocate == advocateID {
		if replacementID == "" {
			return model.Case{}, model.NewValidationError([]model.FieldError{{
				Field: "replacement_id", Code: "required",
				Message: "removing the primary advocate requires a replacement",
			}})
		}
		result, err := e.AssignPrimary(ctx, rctx, caseID, replacementID, AssignOptions{
			Reason: fmt.Sprintf("replacing removed advocate %s", advocateID),
		})
		if err != nil {
			return model.Case{}, err
		}
		return result.Case, nil
	}

	if !c.IsSecondary(advocateID) {
		return model.Case{}, model.NewNotAssignedError(
			fmt.Sprintf("advocate %q is not assigned to case %q", advocateID, caseID),
		)
	}

	now := time.Now().UTC()
	c.SecondaryAdvocates = removeID(c.SecondaryAdvocates, advocateID)
	c.UpdatedBy = rctx.SubjectID
	c.LastActivity = now
	if err := e.cases.Update(ctx, c); err != nil {
		return model.Case{}, err
	}
	c.Version++
	c.UpdatedAt = now

	if _, err := e.activities.Record(ctx, activity.RecordInput{
		CaseID:      c.ID,
		Type:        model.ActivityAdvocateRemoved,
		Action:      "Secondary advocate removed",
		Description: fmt.Sprintf("Advocate %s removed from case %s", advocateID, c.CaseNumber),
		PerformedBy: rctx.SubjectID,
		Priority:    model.ActivityPriorityMedium,
		Category:    model.CategoryAssignment,
		Details:     map[string]any{"advocate_id": advocateID, "role": "secondary"},
		UserID:      advocateID,
	}); err != nil {
		return model.Case{}, err
	}

	return c, nil
}

// Workload computes an advocate's current workload.
func (e *Engine) Workload(ctx context.Context, advocateID string) (model.Workload, error) {
	if _, err := e.directory.GetAdvocate(ctx, advocateID); err != nil {
		return model.Workload{}, err
	}
	cases, err := e.cases.FindByAdvocate(ctx, advocateID)
	if err != nil {
		return model.Workload{}, err
	}
	return ComputeWorkload(advocateID, cases), nil
}

// scoredCandidate pairs an advocate with their auto-assignment score.
type scoredCandidate struct {
	advocate model.Advocate
	workload model.Workload
	score    int
}

// AutoAssign selects the best-scoring eligible advocate and assigns
// them as primary. Ties break on ascending advocate ID so repeat runs
// over the same pool pick the same candidate.
func (e *Engine) AutoAssign(
	ctx context.Context,
	rctx *model.RequestContext,
	caseID string,
	criteria AutoAssignCriteria,
) (model.AutoAssignResult, error) {
	// 1. The case must be unassigned.
	c, err := e.cases.Get(ctx, caseID)
	if err != nil {
		return model.AutoAssignResult{}, err
	}
	if c.PrimaryAdvocate != "" {
		return model.AutoAssignResult{}, model.NewAlreadyAssignedError(
			fmt.Sprintf("case %q already has primary advocate %q", caseID, c.PrimaryAdvocate),
		)
	}

	maxBand := criteria.MaxWorkload
	if maxBand == "" {
		maxBand = e.defaultMaxWorkload
	}
	if !model.IsWorkloadBand(maxBand) {
		return model.AutoAssignResult{}, model.NewBadRequestError(
			fmt.Sprintf("unknown workload band %q", maxBand),
		)
	}

	// 2. Build and score the candidate pool.
	advocates, err := e.directory.ListAdvocates(ctx, true)
	if err != nil {
		return model.AutoAssignResult{}, err
	}

	var candidates []scoredCandidate
	for _, adv := range advocates {
		if !adv.CanBeAssigned() {
			continue
		}
		if criteria.PreferredSpecialization != "" && !matchesSpecialization(adv, criteria.PreferredSpecialization) {
			continue
		}

		cases, err := e.cases.FindByAdvocate(ctx, adv.ID)
		if err != nil {
			return model.AutoAssignResult{}, err
		}
		w := ComputeWorkload(adv.ID, cases)
		if !model.WorkloadWithinCeiling(w.Band, maxBand) {
			continue
		}

		score := model.WorkloadScore(w.Band)
		if criteria.PrioritizeExperience {
			score += min(adv.ExperienceYears, experienceCap)
		}
		if criteria.PreferredSpecialization != "" && matchesSpecialization(adv, criteria.PreferredSpecialization) {
			score += specializationBonus
		}

		candidates = append(candidates, scoredCandidate{advocate: adv, workload: w, score: score})
	}

	if len(candidates) == 0 {
		return model.AutoAssignResult{}, model.NewNoCandidatesError(
			"no eligible advocate matches the assignment criteria",
		)
	}

	// 3. Highest score wins; ties break on advocate ID.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].advocate.ID < candidates[j].advocate.ID
	})
	best := candidates[0]

	// 4. Assign through the standard path.
	result, err := e.AssignPrimary(ctx, rctx, caseID, best.advocate.ID, AssignOptions{
		Reason: "auto-assigned by workload scoring",
	})
	if err != nil {
		return model.AutoAssignResult{}, err
	}

	return model.AutoAssignResult{
		Case:          result.Case,
		Advocate:      result.Advocate,
		SelectedFrom:  len(candidates),
		AdvocateScore: best.score,
	}, nil
}

// Transfer moves a case from its current primary to another advocate.
func (e *Engine) Transfer(
	ctx context.Context,
	rctx *model.RequestContext,
	caseID, fromAdvocateID, toAdvocateID string,
	opts AssignOptions,
) (model.AssignmentResult, error) {
	c, err := e.cases.Get(ctx, caseID)
	if err != nil {
		return model.AssignmentResult{}, err
	}
	if c.PrimaryAdvocate != fromAdvocateID {
		return model.AssignmentResult{}, model.NewNotAssignedError(
			fmt.Sprintf("advocate %q is not the primary advocate on case %q", fromAdvocateID, caseID),
		)
	}

	result, err := e.AssignPrimary(ctx, rctx, caseID, toAdvocateID, opts)
	if err != nil {
		return model.AssignmentResult{}, err
	}

	if _, err := e.activities.Record(ctx, activity.RecordInput{
		CaseID:      result.Case.ID,
		Type:        model.ActivityCaseUpdated,
		Action:      "Case Transferred",
		Description: fmt.Sprintf("Case %s transferred from %s to %s", result.Case.CaseNumber, fromAdvocateID, toAdvocateID),
		PerformedBy: rctx.SubjectID,
		Priority:    model.ActivityPriorityHigh,
		Category:    model.CategoryAssignment,
		Details: map[string]any{
			"from_advocate": fromAdvocateID,
			"to_advocate":   toAdvocateID,
		},
	}); err != nil {
		return model.AssignmentResult{}, err
	}

	return result, nil
}

// workloadSnapshot flattens a workload for activity details.
func workloadSnapshot(w model.Workload) map[string]any {
	return map[string]any{
		"active_cases": w.ActiveCases,
		"total_cases":  w.TotalCases,
		"urgent_cases": w.UrgentCases,
		"band":         w.Band,
	}
}

func matchesSpecialization(adv model.Advocate, term string) bool {
	t := strings.ToLower(term)
	for _, s := range adv.Specializations {
		if strings.Contains(strings.ToLower(s), t) {
			return true
		}
	}
	return false
}

// removeID returns a fresh slice so the caller never aliases the
// input's backing array.
func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
