// Package workflow owns the case status lifecycle: which transitions
// exist, who may perform them, and what each one does to the case.
package workflow

import "github.com/legalpro/caseflow/model"

// transitions is the complete status graph. A status absent from the
// map, or an empty target list, is terminal.
var transitions = map[string][]string{
	model.StatusDraft:     {model.StatusOpen, model.StatusDismissed},
	model.StatusOpen:      {model.StatusInReview, model.StatusOnHold, model.StatusPending, model.StatusClosed, model.StatusDismissed},
	model.StatusInReview:  {model.StatusOpen, model.StatusOnHold, model.StatusPending, model.StatusClosed, model.StatusDismissed},
	model.StatusOnHold:    {model.StatusOpen, model.StatusInReview, model.StatusPending, model.StatusDismissed},
	model.StatusPending:   {model.StatusOpen, model.StatusInReview, model.StatusOnHold, model.StatusClosed, model.StatusDismissed},
	model.StatusClosed:    {model.StatusArchived},
	model.StatusDismissed: {model.StatusArchived},
	model.StatusArchived:  {},
}

// allowedRoles maps each target status to the roles that may move a
// case into it.
var allowedRoles = map[string][]string{
	model.StatusOpen:      {model.RoleAdvocate, model.RoleAdmin, model.RoleSuperAdmin},
	model.StatusInReview:  {model.RoleAdvocate, model.RoleAdmin, model.RoleSuperAdmin},
	model.StatusOnHold:    {model.RoleAdvocate, model.RoleAdmin, model.RoleSuperAdmin},
	model.StatusPending:   {model.RoleAdvocate, model.RoleAdmin, model.RoleSuperAdmin},
	model.StatusClosed:    {model.RoleAdvocate, model.RoleAdmin, model.RoleSuperAdmin},
	model.StatusDismissed: {model.RoleAdvocate, model.RoleAdmin, model.RoleSuperAdmin},
	model.StatusArchived:  {model.RoleAdmin, model.RoleSuperAdmin},
}

// actionProfile describes what entering a status does to the case and
// what it demands from the caller.
type actionProfile struct {
	Label       string
	Description string

	// Progress, when non-nil, overwrites the case progress percentage.
	Progress *int

	// AutoSetDate names the case date field stamped on entry.
	AutoSetDate string

	RequiresReason   bool
	RequiresOutcome  bool
	RequiresApproval bool

	// NotifyRoles are the recipient roles for the change notification.
	NotifyRoles []string
}

// Date field names for actionProfile.AutoSetDate.
const (
	dateFieldAssigned   = "date_assigned"
	dateFieldCompletion = "actual_completion"
)

func intPtr(v int) *int { return &v }

// actionProfiles maps each target status to its entry behavior.
var actionProfiles = map[string]actionProfile{
	model.StatusOpen: {
		Label:       "Open Case",
		Description: "Begin active work on the case",
		Progress:    intPtr(10),
		AutoSetDate: dateFieldAssigned,
		NotifyRoles: []string{model.RoleAdvocate, model.RoleClient},
	},
	model.StatusInReview: {
		Label:       "Send for Review",
		Description: "Case work is complete and awaiting review",
		Progress:    intPtr(75),
		NotifyRoles: []string{model.RoleAdvocate, model.RoleAdmin},
	},
	model.StatusOnHold: {
		Label:          "Put on Hold",
		Description:    "Pause work on the case",
		RequiresReason: true,
		NotifyRoles:    []string{model.RoleAdvocate, model.RoleClient},
	},
	model.StatusPending: {
		Label:          "Mark Pending",
		Description:    "Waiting on an external party",
		RequiresReason: true,
		NotifyRoles:    []string{model.RoleClient},
	},
	model.StatusClosed: {
		Label:           "Close Case",
		Description:     "Resolve the case with an outcome",
		Progress:        intPtr(100),
		AutoSetDate:     dateFieldCompletion,
		RequiresOutcome: true,
		NotifyRoles:     []string{model.RoleAdvocate, model.RoleClient, model.RoleAdmin},
	},
	model.StatusDismissed: {
		Label:          "Dismiss Case",
		Description:    "Drop the case without resolution",
		Progress:       intPtr(0),
		AutoSetDate:    dateFieldCompletion,
		RequiresReason: true,
		NotifyRoles:    []string{model.RoleAdvocate, model.RoleClient, model.RoleAdmin},
	},
	model.StatusArchived: {
		Label:            "Archive Case",
		Description:      "Move the case to long-term storage",
		RequiresApproval: true,
		NotifyRoles:      []string{model.RoleAdmin},
	},
}

// CanTransition reports whether the status graph permits the move.
func CanTransition(from, to string) bool {
	for _, target := range transitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// TargetsFrom returns the statuses reachable from the given status, in
// graph order.
func TargetsFrom(from string) []string {
	targets := transitions[from]
	out := make([]string, len(targets))
	copy(out, targets)
	return out
}

// IsKnownStatus reports whether the status exists in the graph.
func IsKnownStatus(status string) bool {
	_, ok := transitions[status]
	return ok
}

// roleMayEnter reports whether any of the actor's roles may move a case
// into the target status.
func roleMayEnter(roles []string, target string) bool {
	allowed := allowedRoles[target]
	for _, role := range roles {
		for _, a := range allowed {
			if role == a {
				return true
			}
		}
	}
	return false
}

// requirements lists the caller-supplied inputs a profile demands.
func (p actionProfile) requirements() []string {
	var reqs []string
	if p.RequiresReason {
		reqs = append(reqs, "reason")
	}
	if p.RequiresOutcome {
		reqs = append(reqs, "outcome")
	}
	if p.RequiresApproval {
		reqs = append(reqs, "approval")
	}
	return reqs
}
