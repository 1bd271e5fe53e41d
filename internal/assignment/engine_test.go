package assignment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/legalpro/caseflow/internal/activity"
	"github.com/legalpro/caseflow/internal/casestore"
	"github.com/legalpro/caseflow/model"
)

type testEnv struct {
	engine     *Engine
	store      *casestore.MemoryStore
	activities *activity.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := casestore.NewMemoryStore()
	actStore := activity.NewMemoryStore()
	log := activity.NewLog(actStore, store, zap.NewNop(), "test")
	engine := NewEngine(store, store, log, zap.NewNop(), 50, model.WorkloadModerate)
	return &testEnv{engine: engine, store: store, activities: actStore}
}

func adminCtx() *model.RequestContext {
	return &model.RequestContext{SubjectID: "admin-1", Roles: []string{model.RoleAdmin}}
}

func (env *testEnv) seedAdvocate(t *testing.T, id string, mutate func(*model.Advocate)) model.Advocate {
	t.Helper()
	adv := model.Advocate{
		ID:        id,
		Name:      "Advocate " + id,
		Role:      model.RoleAdvocate,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if mutate != nil {
		mutate(&adv)
	}
	if err := env.store.PutAdvocate(context.Background(), adv); err != nil {
		t.Fatalf("seed advocate: %v", err)
	}
	return adv
}

func (env *testEnv) seedCase(t *testing.T, id, status string, mutate func(*model.Case)) model.Case {
	t.Helper()
	now := time.Now().UTC()
	c := model.Case{
		ID:         id,
		CaseNumber: "LP/0001/2026",
		Title:      "Tenancy dispute",
		Status:     status,
		Priority:   model.PriorityMedium,
		CreatedBy:  "admin-1",
		UpdatedBy:  "admin-1",
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    1,
	}
	if mutate != nil {
		mutate(&c)
	}
	if err := env.store.Create(context.Background(), c); err != nil {
		t.Fatalf("seed case: %v", err)
	}
	return c
}

// seedCaseload gives an advocate n active cases, u of them urgent.
func (env *testEnv) seedCaseload(t *testing.T, advocateID string, n, u int) {
	t.Helper()
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("load-%s-%d", advocateID, i)
		urgent := i < u
		env.seedCase(t, id, model.StatusOpen, func(c *model.Case) {
			c.PrimaryAdvocate = advocateID
			if urgent {
				c.Priority = model.PriorityUrgent
			}
		})
	}
}

func TestAssignPrimary(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdvocate(t, "adv-1", nil)
	env.seedCase(t, "case-1", model.StatusOpen, nil)
	ctx := context.Background()

	result, err := env.engine.AssignPrimary(ctx, adminCtx(), "case-1", "adv-1", AssignOptions{})
	if err != nil {
		t.Fatalf("AssignPrimary: %v", err)
	}

	if result.Case.PrimaryAdvocate != "adv-1" {
		t.Errorf("PrimaryAdvocate = %q, want adv-1", result.Case.PrimaryAdvocate)
	}
	if result.PreviousAdvocate != "" {
		t.Errorf("PreviousAdvocate = %q, want empty", result.PreviousAdvocate)
	}
	if result.Case.DateAssigned == nil {
		t.Error("expected DateAssigned to be stamped")
	}

	// One advocate_assigned entry with workload snapshots.
	timeline, err := env.activities.Find(ctx, "case-1", model.ActivityFilters{})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(timeline) != 1 {
		t.Fatalf("recorded %d activities, want 1", len(timeline))
	}
	act := timeline[0]
	if act.Type != model.ActivityAdvocateAssigned {
		t.Errorf("activity type = %s, want advocate_assigned", act.Type)
	}
	if act.Priority != model.ActivityPriorityHigh {
		t.Errorf("activity priority = %s, want high", act.Priority)
	}
	before, ok := act.Details["workload_before"].(map[string]any)
	if !ok {
		t.Fatal("expected workload_before snapshot in details")
	}
	after, ok := act.Details["workload_after"].(map[string]any)
	if !ok {
		t.Fatal("expected workload_after snapshot in details")
	}
	if before["active_cases"] != 0 || after["active_cases"] != 1 {
		t.Errorf("snapshots = %v -> %v, want active 0 -> 1", before, after)
	}
}

func TestAssignPrimaryReplacesPrevious(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdvocate(t, "adv-1", nil)
	env.seedAdvocate(t, "adv-2", nil)
	env.seedCase(t, "case-1", model.StatusOpen, func(c *model.Case) {
		c.PrimaryAdvocate = "adv-1"
	})
	ctx := context.Background()

	result, err := env.engine.AssignPrimary(ctx, adminCtx(), "case-1", "adv-2", AssignOptions{})
	if err != nil {
		t.Fatalf("AssignPrimary: %v", err)
	}
	if result.PreviousAdvocate != "adv-1" {
		t.Errorf("PreviousAdvocate = %q, want adv-1", result.PreviousAdvocate)
	}

	timeline, _ := env.activities.Find(ctx, "case-1", model.ActivityFilters{})
	if len(timeline) != 2 {
		t.Fatalf("recorded %d activities, want 2", len(timeline))
	}
	types := map[string]bool{}
	for _, act := range timeline {
		types[act.Type] = true
	}
	if !types[model.ActivityAdvocateAssigned] || !types[model.ActivityAdvocateRemoved] {
		t.Errorf("activity types = %v, want assigned and removed", types)
	}
}

func TestAssignPrimaryErrors(t *testing.T) {
	t.Run("missing advocate", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedCase(t, "case-1", model.StatusOpen, nil)

		_, err := env.engine.AssignPrimary(context.Background(), adminCtx(), "case-1", "adv-404", AssignOptions{})
		envErr, ok := err.(*model.ErrorEnvelope)
		if !ok || envErr.Code != model.ErrNotFound {
			t.Errorf("error = %v, want NOT_FOUND", err)
		}
	})

	t.Run("client role cannot be assigned", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedAdvocate(t, "client-1", func(a *model.Advocate) { a.Role = model.RoleClient })
		env.seedCase(t, "case-1", model.StatusOpen, nil)

		_, err := env.engine.AssignPrimary(context.Background(), adminCtx(), "case-1", "client-1", AssignOptions{})
		envErr, ok := err.(*model.ErrorEnvelope)
		if !ok || envErr.Code != model.ErrInvalidRole {
			t.Errorf("error = %v, want INVALID_ROLE", err)
		}
	})

	t.Run("already primary", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedAdvocate(t, "adv-1", nil)
		env.seedCase(t, "case-1", model.StatusOpen, func(c *model.Case) {
			c.PrimaryAdvocate = "adv-1"
		})

		_, err := env.engine.AssignPrimary(context.Background(), adminCtx(), "case-1", "adv-1", AssignOptions{})
		envErr, ok := err.(*model.ErrorEnvelope)
		if !ok || envErr.Code != model.ErrAlreadyAssigned {
			t.Errorf("error = %v, want ALREADY_ASSIGNED", err)
		}
	})

	t.Run("at capacity", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedAdvocate(t, "adv-1", nil)
		env.seedCaseload(t, "adv-1", 3, 0)
		env.seedCase(t, "case-1", model.StatusOpen, nil)

		_, err := env.engine.AssignPrimary(context.Background(), adminCtx(), "case-1", "adv-1", AssignOptions{MaxCases: 3})
		envErr, ok := err.(*model.ErrorEnvelope)
		if !ok || envErr.Code != model.ErrCapacityExceeded {
			t.Errorf("error = %v, want CAPACITY_EXCEEDED", err)
		}

		// Rejected assignment leaves the case untouched.
		c, _ := env.store.Get(context.Background(), "case-1")
		if c.PrimaryAdvocate != "" || c.Version != 1 {
			t.Errorf("case mutated on rejected assignment: primary=%q version=%d", c.PrimaryAdvocate, c.Version)
		}
	})
}

func TestAssignPrimaryPromotesSecondary(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdvocate(t, "adv-1", nil)
	env.seedCase(t, "case-1", model.StatusOpen, func(c *model.Case) {
		c.SecondaryAdvocates = []string{"adv-1", "adv-2"}
	})

	result, err := env.engine.AssignPrimary(context.Background(), adminCtx(), "case-1", "adv-1", AssignOptions{})
	if err != nil {
		t.Fatalf("AssignPrimary: %v", err)
	}
	if result.Case.IsSecondary("adv-1") {
		t.Error("promoted advocate should leave the secondary set")
	}
	if !result.Case.IsSecondary("adv-2") {
		t.Error("other secondaries should remain")
	}
}

// conflictingCaseStore rejects every Update with a version conflict
// while delegating everything else to the wrapped store.
type conflictingCaseStore struct {
	casestore.CaseStore
}

func (s conflictingCaseStore) Update(context.Context, model.Case) error {
	return model.NewConflictError("concurrent update")
}

func TestAssignPrimaryConflictLeavesCaseUntouched(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdvocate(t, "adv-new", nil)
	env.seedCase(t, "case-1", model.StatusOpen, func(c *model.Case) {
		c.PrimaryAdvocate = "adv-primary"
		c.SecondaryAdvocates = []string{"adv-a", "adv-new"}
	})
	env.seedAdvocate(t, "adv-primary", nil)

	engine := NewEngine(conflictingCaseStore{env.store}, env.store, env.engine.activities, zap.NewNop(), 50, model.WorkloadModerate)
	ctx := context.Background()

	_, err := engine.AssignPrimary(ctx, adminCtx(), "case-1", "adv-new", AssignOptions{})
	envErr, ok := err.(*model.ErrorEnvelope)
	if !ok || envErr.Code != model.ErrConflict {
		t.Fatalf("AssignPrimary error = %v, want CONFLICT", err)
	}

	// The rejected promotion must not leak into persisted state.
	stored, err := env.store.Get(ctx, "case-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.PrimaryAdvocate != "adv-primary" {
		t.Errorf("PrimaryAdvocate = %q, want adv-primary", stored.PrimaryAdvocate)
	}
	want := []string{"adv-a", "adv-new"}
	if len(stored.SecondaryAdvocates) != len(want) {
		t.Fatalf("SecondaryAdvocates = %v, want %v", stored.SecondaryAdvocates, want)
	}
	for i, id := range want {
		if stored.SecondaryAdvocates[i] != id {
			t.Errorf("SecondaryAdvocates[%d] = %q, want %q", i, stored.SecondaryAdvocates[i], id)
		}
	}
	if env.activities.Len() != 0 {
		t.Errorf("rejected assignment recorded %d activities", env.activities.Len())
	}
}

func TestWorkloadCounting(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdvocate(t, "adv-1", nil)
	ctx := context.Background()

	// 3 active (1 urgent), 1 closed, 1 secondary active.
	env.seedCaseload(t, "adv-1", 3, 1)
	env.seedCase(t, "closed-1", model.StatusClosed, func(c *model.Case) {
		c.PrimaryAdvocate = "adv-1"
	})
	env.seedCase(t, "sec-1", model.StatusPending, func(c *model.Case) {
		c.PrimaryAdvocate = "adv-other"
		c.SecondaryAdvocates = []string{"adv-1"}
	})

	w, err := env.engine.Workload(ctx, "adv-1")
	if err != nil {
		t.Fatalf("Workload: %v", err)
	}
	if w.ActiveCases != 4 {
		t.Errorf("ActiveCases = %d, want 4", w.ActiveCases)
	}
	if w.TotalCases != 5 {
		t.Errorf("TotalCases = %d, want 5", w.TotalCases)
	}
	if w.UrgentCases != 1 {
		t.Errorf("UrgentCases = %d, want 1", w.UrgentCases)
	}
	if w.ByStatus[model.StatusClosed] != 1 {
		t.Errorf("ByStatus[closed] = %d, want 1", w.ByStatus[model.StatusClosed])
	}
	if w.Band != model.WorkloadLight {
		t.Errorf("Band = %s, want light", w.Band)
	}
}

func TestAssignPrimaryIncrementsWorkload(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdvocate(t, "adv-1", nil)
	env.seedCase(t, "case-1", model.StatusOpen, nil)
	ctx := context.Background()

	before, _ := env.engine.Workload(ctx, "adv-1")
	if _, err := env.engine.AssignPrimary(ctx, adminCtx(), "case-1", "adv-1", AssignOptions{}); err != nil {
		t.Fatalf("AssignPrimary: %v", err)
	}
	after, _ := env.engine.Workload(ctx, "adv-1")

	if after.ActiveCases != before.ActiveCases+1 {
		t.Errorf("ActiveCases %d -> %d, want +1", before.ActiveCases, after.ActiveCases)
	}
}

func TestAddSecondary(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdvocate(t, "adv-1", nil)
	env.seedAdvocate(t, "adv-2", nil)
	env.seedCase(t, "case-1", model.StatusOpen, func(c *model.Case) {
		c.PrimaryAdvocate = "adv-1"
	})
	ctx := context.Background()

	c, err := env.engine.AddSecondary(ctx, adminCtx(), "case-1", "adv-2")
	if err != nil {
		t.Fatalf("AddSecondary: %v", err)
	}
	if !c.IsSecondary("adv-2") {
		t.Error("expected adv-2 in the secondary set")
	}

	// The primary cannot also become a secondary.
	_, err = env.engine.AddSecondary(ctx, adminCtx(), "case-1", "adv-1")
	envErr, ok := err.(*model.ErrorEnvelope)
	if !ok || envErr.Code != model.ErrAlreadyAssigned {
		t.Errorf("error = %v, want ALREADY_ASSIGNED", err)
	}

	// Neither can an existing secondary.
	_, err = env.engine.AddSecondary(ctx, adminCtx(), "case-1", "adv-2")
	envErr, ok = err.(*model.ErrorEnvelope)
	if !ok || envErr.Code != model.ErrAlreadyAssigned {
		t.Errorf("error = %v, want ALREADY_ASSIGNED", err)
	}
}

func TestRemoveAdvocate(t *testing.T) {
	t.Run("secondary removal is unconditional", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedAdvocate(t, "adv-1", nil)
		env.seedCase(t, "case-1", model.StatusOpen, func(c *model.Case) {
			c.PrimaryAdvocate = "adv-1"
			c.SecondaryAdvocates = []string{"adv-2"}
		})

		c, err := env.engine.RemoveAdvocate(context.Background(), adminCtx(), "case-1", "adv-2", "")
		if err != nil {
			t.Fatalf("RemoveAdvocate: %v", err)
		}
		if c.IsSecondary("adv-2") {
			t.Error("expected adv-2 removed from the secondary set")
		}
	})

	t.Run("primary removal requires replacement", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedAdvocate(t, "adv-1", nil)
		env.seedCase(t, "case-1", model.StatusOpen, func(c *model.Case) {
			c.PrimaryAdvocate = "adv-1"
		})

		_, err := env.engine.RemoveAdvocate(context.Background(), adminCtx(), "case-1", "adv-1", "")
		envErr, ok := err.(*model.ErrorEnvelope)
		if !ok || envErr.Code != model.ErrValidationError {
			t.Errorf("error = %v, want VALIDATION_ERROR", err)
		}
	})

	t.Run("primary removal with replacement delegates", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedAdvocate(t, "adv-1", nil)
		env.seedAdvocate(t, "adv-2", nil)
		env.seedCase(t, "case-1", model.StatusOpen, func(c *model.Case) {
			c.PrimaryAdvocate = "adv-1"
		})

		c, err := env.engine.RemoveAdvocate(context.Background(), adminCtx(), "case-1", "adv-1", "adv-2")
		if err != nil {
			t.Fatalf("RemoveAdvocate: %v", err)
		}
		if c.PrimaryAdvocate != "adv-2" {
			t.Errorf("PrimaryAdvocate = %q, want adv-2", c.PrimaryAdvocate)
		}
	})

	t.Run("unassigned advocate", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedAdvocate(t, "adv-1", nil)
		env.seedCase(t, "case-1", model.StatusOpen, nil)

		_, err := env.engine.RemoveAdvocate(context.Background(), adminCtx(), "case-1", "adv-1", "")
		envErr, ok := err.(*model.ErrorEnvelope)
		if !ok || envErr.Code != model.ErrNotAssigned {
			t.Errorf("error = %v, want NOT_ASSIGNED", err)
		}
	})
}

func TestAutoAssign(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// lighter is idle; heavier carries active cases.
	env.seedAdvocate(t, "adv-heavy", func(a *model.Advocate) { a.ExperienceYears = 20 })
	env.seedAdvocate(t, "adv-idle", func(a *model.Advocate) { a.ExperienceYears = 3 })
	env.seedCaseload(t, "adv-heavy", 12, 0) // moderate band
	env.seedCase(t, "case-1", model.StatusOpen, nil)

	result, err := env.engine.AutoAssign(ctx, adminCtx(), "case-1", AutoAssignCriteria{})
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}

	// Idle advocate scores 10 (none band), moderate scores 6.
	if result.Advocate.ID != "adv-idle" {
		t.Errorf("selected %q, want adv-idle", result.Advocate.ID)
	}
	if result.SelectedFrom != 2 {
		t.Errorf("SelectedFrom = %d, want 2", result.SelectedFrom)
	}
	if result.AdvocateScore != 10 {
		t.Errorf("AdvocateScore = %d, want 10", result.AdvocateScore)
	}
	if result.Case.PrimaryAdvocate != "adv-idle" {
		t.Errorf("case primary = %q, want adv-idle", result.Case.PrimaryAdvocate)
	}
}

func TestAutoAssignExperienceAndSpecialization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedAdvocate(t, "adv-generalist", func(a *model.Advocate) {
		a.ExperienceYears = 15
	})
	env.seedAdvocate(t, "adv-specialist", func(a *model.Advocate) {
		a.ExperienceYears = 2
		a.Specializations = []string{"Family Law", "Property Law"}
	})
	env.seedCase(t, "case-1", model.StatusOpen, nil)

	result, err := env.engine.AutoAssign(ctx, adminCtx(), "case-1", AutoAssignCriteria{
		PreferredSpecialization: "family",
		PrioritizeExperience:    true,
	})
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}

	// The generalist is filtered out entirely; the specialist scores
	// 10 (none) + 2 (experience) + 15 (specialization).
	if result.Advocate.ID != "adv-specialist" {
		t.Errorf("selected %q, want adv-specialist", result.Advocate.ID)
	}
	if result.SelectedFrom != 1 {
		t.Errorf("SelectedFrom = %d, want 1", result.SelectedFrom)
	}
	if result.AdvocateScore != 27 {
		t.Errorf("AdvocateScore = %d, want 27", result.AdvocateScore)
	}
}

func TestAutoAssignExperienceIsCapped(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdvocate(t, "adv-1", func(a *model.Advocate) { a.ExperienceYears = 30 })
	env.seedCase(t, "case-1", model.StatusOpen, nil)

	result, err := env.engine.AutoAssign(context.Background(), adminCtx(), "case-1", AutoAssignCriteria{
		PrioritizeExperience: true,
	})
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}
	// 10 (none band) + 10 (capped experience).
	if result.AdvocateScore != 20 {
		t.Errorf("AdvocateScore = %d, want 20", result.AdvocateScore)
	}
}

func TestAutoAssignTieBreaksOnAdvocateID(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdvocate(t, "adv-b", nil)
	env.seedAdvocate(t, "adv-a", nil)
	env.seedAdvocate(t, "adv-c", nil)
	env.seedCase(t, "case-1", model.StatusOpen, nil)

	result, err := env.engine.AutoAssign(context.Background(), adminCtx(), "case-1", AutoAssignCriteria{})
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}
	if result.Advocate.ID != "adv-a" {
		t.Errorf("selected %q, want adv-a (lowest ID among equal scores)", result.Advocate.ID)
	}
}

func TestAutoAssignNoCandidates(t *testing.T) {
	tests := []struct {
		name  string
		setup func(env *testEnv, t *testing.T)
	}{
		{"empty directory", func(env *testEnv, t *testing.T) {}},
		{"all inactive", func(env *testEnv, t *testing.T) {
			env.seedAdvocate(t, "adv-1", func(a *model.Advocate) { a.Active = false })
		}},
		{"all over the band ceiling", func(env *testEnv, t *testing.T) {
			env.seedAdvocate(t, "adv-1", nil)
			env.seedCaseload(t, "adv-1", 30, 0) // heavy band
		}},
		{"no specialization match", func(env *testEnv, t *testing.T) {
			env.seedAdvocate(t, "adv-1", func(a *model.Advocate) {
				a.Specializations = []string{"Tax Law"}
			})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			tt.setup(env, t)
			env.seedCase(t, "case-1", model.StatusOpen, nil)

			_, err := env.engine.AutoAssign(context.Background(), adminCtx(), "case-1", AutoAssignCriteria{
				PreferredSpecialization: "family",
			})
			envErr, ok := err.(*model.ErrorEnvelope)
			if !ok || envErr.Code != model.ErrNoCandidates {
				t.Errorf("error = %v, want NO_CANDIDATES", err)
			}

			// No candidates means no mutation.
			c, _ := env.store.Get(context.Background(), "case-1")
			if c.PrimaryAdvocate != "" || c.Version != 1 {
				t.Errorf("case mutated: primary=%q version=%d", c.PrimaryAdvocate, c.Version)
			}
		})
	}
}

func TestAutoAssignAlreadyAssigned(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdvocate(t, "adv-1", nil)
	env.seedCase(t, "case-1", model.StatusOpen, func(c *model.Case) {
		c.PrimaryAdvocate = "adv-1"
	})

	_, err := env.engine.AutoAssign(context.Background(), adminCtx(), "case-1", AutoAssignCriteria{})
	envErr, ok := err.(*model.ErrorEnvelope)
	if !ok || envErr.Code != model.ErrAlreadyAssigned {
		t.Errorf("error = %v, want ALREADY_ASSIGNED", err)
	}
}

func TestTransfer(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdvocate(t, "adv-1", nil)
	env.seedAdvocate(t, "adv-2", nil)
	env.seedCase(t, "case-1", model.StatusOpen, func(c *model.Case) {
		c.PrimaryAdvocate = "adv-1"
	})
	ctx := context.Background()

	result, err := env.engine.Transfer(ctx, adminCtx(), "case-1", "adv-1", "adv-2", AssignOptions{Reason: "workload rebalance"})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if result.Case.PrimaryAdvocate != "adv-2" || result.PreviousAdvocate != "adv-1" {
		t.Errorf("transfer result primary=%q previous=%q", result.Case.PrimaryAdvocate, result.PreviousAdvocate)
	}

	// assigned + removed + transfer note.
	timeline, _ := env.activities.Find(ctx, "case-1", model.ActivityFilters{})
	if len(timeline) != 3 {
		t.Fatalf("recorded %d activities, want 3", len(timeline))
	}
	var sawTransfer bool
	for _, act := range timeline {
		if act.Type == model.ActivityCaseUpdated && act.Action == "Case Transferred" {
			sawTransfer = true
			if act.Details["from_advocate"] != "adv-1" || act.Details["to_advocate"] != "adv-2" {
				t.Errorf("transfer details = %v", act.Details)
			}
		}
	}
	if !sawTransfer {
		t.Error("expected a Case Transferred activity")
	}
}

func TestTransferWrongCurrentPrimary(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdvocate(t, "adv-1", nil)
	env.seedAdvocate(t, "adv-2", nil)
	env.seedCase(t, "case-1", model.StatusOpen, func(c *model.Case) {
		c.PrimaryAdvocate = "adv-1"
	})

	_, err := env.engine.Transfer(context.Background(), adminCtx(), "case-1", "adv-2", "adv-1", AssignOptions{})
	envErr, ok := err.(*model.ErrorEnvelope)
	if !ok || envErr.Code != model.ErrNotAssigned {
		t.Errorf("error = %v, want NOT_ASSIGNED", err)
	}
}

func TestComputeWorkloadBands(t *testing.T) {
	mkCases := func(active, urgent int) []model.Case {
		var cases []model.Case
		for i := 0; i < active; i++ {
			priority := model.PriorityMedium
			if i < urgent {
				priority = model.PriorityUrgent
			}
			cases = append(cases, model.Case{
				ID: fmt.Sprintf("c-%d", i), Status: model.StatusOpen, Priority: priority,
			})
		}
		return cases
	}

	tests := []struct {
		active, urgent int
		wantBand       string
	}{
		{0, 0, model.WorkloadNone},
		{10, 2, model.WorkloadLight},
		{11, 2, model.WorkloadModerate},
		{25, 5, model.WorkloadModerate},
		{26, 0, model.WorkloadHeavy},
		{41, 11, model.WorkloadOverloaded},
	}

	for _, tt := range tests {
		w := ComputeWorkload("adv-1", mkCases(tt.active, tt.urgent))
		if w.Band != tt.wantBand {
			t.Errorf("ComputeWorkload(%d active, %d urgent).Band = %s, want %s", tt.active, tt.urgent, w.Band, tt.wantBand)
		}
	}
}
