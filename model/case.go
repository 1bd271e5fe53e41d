// Package model contains the domain types shared by every layer of the
// case lifecycle core: cases, activities, workloads, actors, and the
// error envelope.
package model

import "time"

// Case status constants. The workflow engine owns all movement between
// these values; nothing else writes Case.Status.
const (
	StatusDraft     = "draft"
	StatusOpen      = "open"
	StatusInReview  = "in_review"
	StatusOnHold    = "on_hold"
	StatusPending   = "pending"
	StatusClosed    = "closed"
	StatusDismissed = "dismissed"
	StatusArchived  = "archived"
)

// Case priority constants. Priority is informational and never gates a
// transition, but urgent cases count against workload banding.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// User role constants.
const (
	RoleClient     = "client"
	RoleAdvocate   = "advocate"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// ActiveStatuses are the statuses that count toward an advocate's active
// caseload.
var ActiveStatuses = []string{StatusOpen, StatusInReview, StatusPending}

// IsActiveStatus reports whether a status counts toward active workload.
func IsActiveStatus(status string) bool {
	for _, s := range ActiveStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Case is the unit of legal work tracked through the status lifecycle.
type Case struct {
	ID          string `json:"id"`
	CaseNumber  string `json:"case_number"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`

	Status   string `json:"status"`
	Priority string `json:"priority"`
	// Progress is advanced by workflow actions only, never set directly.
	Progress int `json:"progress"`

	ClientID           string   `json:"client_id,omitempty"`
	PrimaryAdvocate    string   `json:"primary_advocate,omitempty"`
	SecondaryAdvocates []string `json:"secondary_advocates,omitempty"`

	DateAssigned       *time.Time `json:"date_assigned,omitempty"`
	CourtDate          *time.Time `json:"court_date,omitempty"`
	ExpectedCompletion *time.Time `json:"expected_completion,omitempty"`
	ActualCompletion   *time.Time `json:"actual_completion,omitempty"`

	Outcome string `json:"outcome,omitempty"`
	Notes   string `json:"notes,omitempty"`

	LastActivity time.Time `json:"last_activity"`
	CreatedBy    string    `json:"created_by"`
	UpdatedBy    string    `json:"updated_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Version backs the compare-and-swap update in the stores; a stale
	// writer gets CONFLICT instead of silently losing an update.
	Version int `json:"version"`
}

// HasAdvocate reports whether the given advocate is primary or secondary
// on the case.
func (c *Case) HasAdvocate(advocateID string) bool {
	if advocateID == "" {
		return false
	}
	if c.PrimaryAdvocate == advocateID {
		return true
	}
	for _, id := range c.SecondaryAdvocates {
		if id == advocateID {
			return true
		}
	}
	return false
}

// IsSecondary reports whether the given advocate is in the secondary set.
func (c *Case) IsSecondary(advocateID string) bool {
	for _, id := range c.SecondaryAdvocates {
		if id == advocateID {
			return true
		}
	}
	return false
}

// Advocate is a directory entry for a user who can be assigned to cases.
type Advocate struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email,omitempty"`
	Role            string    `json:"role"`
	Specializations []string  `json:"specializations,omitempty"`
	ExperienceYears int       `json:"experience_years"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}

// CanBeAssigned reports whether the user's role allows case assignment.
func (a *Advocate) CanBeAssigned() bool {
	switch a.Role {
	case RoleAdvocate, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// StatusChange is the result of a successful status transition.
type StatusChange struct {
	Case           Case   `json:"case"`
	PreviousStatus string `json:"previous_status"`
	NewStatus      string `json:"new_status"`
}

// StatusChangeOptions carries the caller-supplied inputs to a status
// transition. Which fields are required depends on the target status's
// action profile.
type StatusChangeOptions struct {
	Reason   string `json:"reason,omitempty"`
	Outcome  string `json:"outcome,omitempty"`
	Approved bool   `json:"approved,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// TransitionOption describes one status the actor may move a case to,
// annotated for UI affordances.
type TransitionOption struct {
	Status      string   `json:"status"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Requires    []string `json:"requires,omitempty"`
}

// AssignmentResult is the result of a primary-advocate assignment.
type AssignmentResult struct {
	Case             Case     `json:"case"`
	Advocate         Advocate `json:"advocate"`
	PreviousAdvocate string   `json:"previous_advocate,omitempty"`
}

// AutoAssignResult is the result of an automatic assignment.
type AutoAssignResult struct {
	Case          Case     `json:"case"`
	Advocate      Advocate `json:"advocate"`
	SelectedFrom  int      `json:"selected_from"`
	AdvocateScore int      `json:"advocate_score"`
}

// CaseFilters are optional filters for listing cases.
type CaseFilters struct {
	Status     string
	Priority   string
	AdvocateID string
	ClientID   string
	Query      string
	Limit      int
	Offset     int
}

// CaseSummary is the aggregate view backing the dashboard.
type CaseSummary struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByPriority map[string]int `json:"by_priority"`
}
