package model

import "time"

// Activity type constants. The set is closed; unknown types are rejected
// at record time.
const (
	ActivityCaseCreated      = "case_created"
	ActivityCaseUpdated      = "case_updated"
	ActivityStatusChanged    = "status_changed"
	ActivityAdvocateAssigned = "advocate_assigned"
	ActivityAdvocateRemoved  = "advocate_removed"
	ActivityNoteAdded        = "note_added"
	ActivityDocumentAdded    = "document_added"
)

// Activity priority constants. Critical entries are exempt from
// retention hiding.
const (
	ActivityPriorityLow      = "low"
	ActivityPriorityMedium   = "medium"
	ActivityPriorityHigh     = "high"
	ActivityPriorityCritical = "critical"
)

// Activity category constants.
const (
	CategoryCaseManagement = "case_management"
	CategoryAssignment     = "assignment"
	CategorySystem         = "system"
)

// KnownActivityTypes enumerates every valid activity type.
var KnownActivityTypes = map[string]bool{
	ActivityCaseCreated:      true,
	ActivityCaseUpdated:      true,
	ActivityStatusChanged:    true,
	ActivityAdvocateAssigned: true,
	ActivityAdvocateRemoved:  true,
	ActivityNoteAdded:        true,
	ActivityDocumentAdded:    true,
}

// Activity is one append-only audit-trail entry tied to a case. Entries
// are never hard-deleted; retention flips Visible instead. After
// creation only the importance/visibility flags and notification
// bookkeeping may change.
type Activity struct {
	ID     string `json:"id"`
	CaseID string `json:"case_id"`

	Type        string `json:"type"`
	Action      string `json:"action"`
	Description string `json:"description"`

	PerformedBy string    `json:"performed_by"`
	PerformedAt time.Time `json:"performed_at"`

	Priority string         `json:"priority"`
	Category string         `json:"category"`
	Details  map[string]any `json:"details,omitempty"`

	// Optional references to related entities.
	DocumentID string `json:"document_id,omitempty"`
	UserID     string `json:"user_id,omitempty"`
	NoteID     string `json:"note_id,omitempty"`

	SystemGenerated bool `json:"system_generated"`
	Visible         bool `json:"visible"`
	Important       bool `json:"important"`

	NotificationSent bool       `json:"notification_sent"`
	NotifiedAt       *time.Time `json:"notified_at,omitempty"`
	NotifyError      string     `json:"notify_error,omitempty"`
}

// ActivityFilters are optional filters for timeline queries. Visibility
// is not a filter: the timeline always excludes hidden entries.
type ActivityFilters struct {
	Types       []string
	Category    string
	Priority    string
	PerformedBy string
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}
