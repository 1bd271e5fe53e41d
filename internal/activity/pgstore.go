package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legalpro/caseflow/model"
)

// PgStore is a PostgreSQL-backed activity Store using pgx/v5.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a new PostgreSQL activity store.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// HealthCheck verifies database connectivity. Used by readiness checks.
func (s *PgStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const activityColumns = `id, case_id, type, action, description,
       performed_by, performed_at, priority, category, details,
       document_id, user_id, note_id,
       system_generated, visible, important,
       notification_sent, notified_at, notify_error`

// Append adds an entry to a case's audit trail.
func (s *PgStore) Append(ctx context.Context, act model.Activity) error {
	detailsJSON, err := json.Marshal(act.Details)
	if err != nil {
		return fmt.Errorf("marshal activity details: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO activities (
			id, case_id, type, action, description,
			performed_by, performed_at, priority, category, details,
			document_id, user_id, note_id,
			system_generated, visible, important,
			notification_sent, notified_at, notify_error
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13,
			$14, $15, $16,
			$17, $18, $19
		)`,
		act.ID, act.CaseID, act.Type, act.Action, act.Description,
		act.PerformedBy, act.PerformedAt, act.Priority, act.Category, detailsJSON,
		act.DocumentID, act.UserID, act.NoteID,
		act.SystemGenerated, act.Visible, act.Important,
		act.NotificationSent, act.NotifiedAt, act.NotifyError,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// Get retrieves an entry by ID.
func (s *PgStore) Get(ctx context.Context, activityID string) (model.Activity, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE id = $1`, activityID)

	act, err := scanActivity(row)
	if err == pgx.ErrNoRows {
		return model.Activity{}, model.NewNotFoundError(
			fmt.Sprintf("activity %q not found", activityID),
		)
	}
	if err != nil {
		return model.Activity{}, fmt.Errorf("query activity: %w", err)
	}
	return act, nil
}

// Find returns a case's visible entries matching the filters, newest
// first.
func (s *PgStore) Find(ctx context.Context, caseID string, filters model.ActivityFilters) ([]model.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities
	          WHERE case_id = $1 AND visible`
	args := []any{caseID}
	argIdx := 2

	if len(filters.Types) > 0 {
		query += fmt.Sprintf(" AND type = ANY($%d)", argIdx)
		args = append(args, filters.Types)
		argIdx++
	}
	if filters.Category != "" {
		query += fmt.Sprintf(" AND category = $%d", argIdx)
		args = append(args, filters.Category)
		argIdx++
	}
	if filters.Priority != "" {
		query += fmt.Sprintf(" AND priority = $%d", argIdx)
		args = append(args, filters.Priority)
		argIdx++
	}
	if filters.PerformedBy != "" {
		query += fmt.Sprintf(" AND performed_by = $%d", argIdx)
		args = append(args, filters.PerformedBy)
		argIdx++
	}
	if filters.From != nil {
		query += fmt.Sprintf(" AND performed_at >= $%d", argIdx)
		args = append(args, *filters.From)
		argIdx++
	}
	if filters.To != nil {
		query += fmt.Sprintf(" AND performed_at <= $%d", argIdx)
		args = append(args, *filters.To)
		argIdx++
	}

	query += " ORDER BY performed_at DESC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filters.Limit)
		argIdx++
	}
	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, filters.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	var entries []model.Activity
	for rows.Next() {
		act, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		entries = append(entries, act)
	}
	return entries, rows.Err()
}

// SetImportant flags or unflags an entry as important.
func (s *PgStore) SetImportant(ctx context.Context, activityID string, important bool) error {
	return s.setFlag(ctx, activityID, "important", important)
}

// SetVisible shows or hides an entry.
func (s *PgStore) SetVisible(ctx context.Context, activityID string, visible bool) error {
	return s.setFlag(ctx, activityID, "visible", visible)
}

// SetNotification records the outcome of a notification attempt.
func (s *PgStore) SetNotification(ctx context.Context, activityID string, sent bool, notifyErr string) error {
	var notifiedAt *time.Time
	if sent {
		now := time.Now().UTC()
		notifiedAt = &now
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE activities SET
			notification_sent = $1,
			notified_at = $2,
			notify_error = $3
		WHERE id = $4`,
		sent, notifiedAt, notifyErr, activityID,
	)
	if err != nil {
		return fmt.Errorf("update activity notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFoundError(
			fmt.Sprintf("activity %q not found", activityID),
		)
	}
	return nil
}

// SweepVisibility hides stale entries, skipping important and critical
// ones.
func (s *PgStore) SweepVisibility(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE activities SET visible = false
		WHERE visible
		  AND NOT important
		  AND priority <> $1
		  AND performed_at < $2`,
		model.ActivityPriorityCritical, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("sweep activities: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PgStore) setFlag(ctx context.Context, activityID, column string, value bool) error {
	// column is always a compile-time constant, never user input.
	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE activities SET %s = $1 WHERE id = $2`, column),
		value, activityID,
	)
	if err != nil {
		return fmt.Errorf("update activity %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFoundError(
			fmt.Sprintf("activity %q not found", activityID),
		)
	}
	return nil
}

func scanActivity(row pgx.Row) (model.Activity, error) {
	var act model.Activity
	var detailsJSON []byte

	err := row.Scan(
		&act.ID, &act.CaseID, &act.Type, &act.Action, &act.Description,
		&act.PerformedBy, &act.PerformedAt, &act.Priority, &act.Category, &detailsJSON,
		&act.DocumentID, &act.UserID, &act.NoteID,
		&act.SystemGenerated, &act.Visible, &act.Important,
		&act.NotificationSent, &act.NotifiedAt, &act.NotifyError,
	)
	if err != nil {
		return model.Activity{}, err
	}

	if detailsJSON != nil {
		_ = json.Unmarshal(detailsJSON, &act.Details)
	}
	return act, nil
}
