package casestore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/legalpro/caseflow/model"
)

// PgStore is a PostgreSQL-backed CaseStore and AdvocateDirectory using
// pgx/v5.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a new PostgreSQL store.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// HealthCheck verifies database connectivity. Used by readiness checks.
func (s *PgStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const caseColumns = `id, case_number, title, description, category,
       status, priority, progress,
       client_id, primary_advocate, secondary_advocates,
       date_assigned, court_date, expected_completion, actual_completion,
       outcome, notes, last_activity,
       created_by, updated_by, created_at, updated_at, version`

// Create inserts a new case.
func (s *PgStore) Create(ctx context.Context, c model.Case) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO cases (
			id, case_number, title, description, category,
			status, priority, progress,
			client_id, primary_advocate, secondary_advocates,
			date_assigned, court_date, expected_completion, actual_completion,
			outcome, notes, last_activity,
			created_by, updated_by, created_at, updated_at, version
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11,
			$12, $13, $14, $15,
			$16, $17, $18,
			$19, $20, $21, $22, $23
		)`,
		c.ID, c.CaseNumber, c.Title, c.Description, c.Category,
		c.Status, c.Priority, c.Progress,
		c.ClientID, c.PrimaryAdvocate, c.SecondaryAdvocates,
		c.DateAssigned, c.CourtDate, c.ExpectedCompletion, c.ActualCompletion,
		c.Outcome, c.Notes, c.LastActivity,
		c.CreatedBy, c.UpdatedBy, c.CreatedAt, c.UpdatedAt, c.Version,
	)
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}
	return nil
}

// Get retrieves a case by ID.
func (s *PgStore) Get(ctx context.Context, caseID string) (model.Case, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE id = $1`, caseID)

	c, err := scanCase(row)
	if err == pgx.ErrNoRows {
		return model.Case{}, model.NewNotFoundError(
			fmt.Sprintf("case %q not found", caseID),
		)
	}
	if err != nil {
		return model.Case{}, fmt.Errorf("query case: %w", err)
	}
	return c, nil
}

// Update persists an updated case with optimistic locking.
func (s *PgStore) Update(ctx context.Context, c model.Case) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE cases SET
			title = $1,
			description = $2,
			category = $3,
			status = $4,
			priority = $5,
			progress = $6,
			client_id = $7,
			primary_advocate = $8,
			secondary_advocates = $9,
			date_assigned = $10,
			court_date = $11,
			expected_completion = $12,
			actual_completion = $13,
			outcome = $14,
			notes = $15,
			last_activity = $16,
			updated_by = $17,
			updated_at = $18,
			version = $19
		WHERE id = $20 AND version = $21`,
		c.Title, c.Description, c.Category,
		c.Status, c.Priority, c.Progress,
		c.ClientID, c.PrimaryAdvocate, c.SecondaryAdvocates,
		c.DateAssigned, c.CourtDate, c.ExpectedCompletion, c.ActualCompletion,
		c.Outcome, c.Notes, c.LastActivity,
		c.UpdatedBy, time.Now().UTC(), c.Version+1,
		c.ID, c.Version,
	)
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewConflictError(
			fmt.Sprintf("case %q version conflict (expected %d)", c.ID, c.Version),
		)
	}
	return nil
}

// List returns cases matching the filters, newest first.
func (s *PgStore) List(ctx context.Context, filters model.CaseFilters) ([]model.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE 1=1`
	var args []any
	argIdx := 1

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filters.Status)
		argIdx++
	}
	if filters.Priority != "" {
		query += fmt.Sprintf(" AND priority = $%d", argIdx)
		args = append(args, filters.Priority)
		argIdx++
	}
	if filters.AdvocateID != "" {
		query += fmt.Sprintf(" AND (primary_advocate = $%d OR secondary_advocates @> ARRAY[$%d])", argIdx, argIdx)
		args = append(args, filters.AdvocateID)
		argIdx++
	}
	if filters.ClientID != "" {
		query += fmt.Sprintf(" AND client_id = $%d", argIdx)
		args = append(args, filters.ClientID)
		argIdx++
	}
	if filters.Query != "" {
		query += fmt.Sprintf(" AND (title ILIKE $%d OR case_number ILIKE $%d OR description ILIKE $%d)", argIdx, argIdx, argIdx)
		args = append(args, "%"+filters.Query+"%")
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filters.Limit)
		argIdx++
	}
	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, filters.Offset)
	}

	return s.queryCases(ctx, query, args...)
}

// FindByAdvocate returns every case carrying the advocate.
func (s *PgStore) FindByAdvocate(ctx context.Context, advocateID string) ([]model.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases
	          WHERE primary_advocate = $1 OR secondary_advocates @> ARRAY[$1]
	          ORDER BY created_at DESC`
	return s.queryCases(ctx, query, advocateID)
}

// TouchLastActivity bumps the last_activity timestamp without changing
// the version.
func (s *PgStore) TouchLastActivity(ctx context.Context, caseID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE cases SET last_activity = $1 WHERE id = $2`,
		time.Now().UTC(), caseID,
	)
	if err != nil {
		return fmt.Errorf("touch case: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFoundError(
			fmt.Sprintf("case %q not found", caseID),
		)
	}
	return nil
}

// NextCaseNumber allocates the next case number for the year using a
// per-year counter row.
func (s *PgStore) NextCaseNumber(ctx context.Context, year int) (string, error) {
	var seq int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO case_sequences (year, seq) VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET seq = case_sequences.seq + 1
		RETURNING seq`,
		year,
	).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("allocate case number: %w", err)
	}
	return FormatCaseNumber(seq, year), nil
}

// Summary aggregates case counts by status and priority.
func (s *PgStore) Summary(ctx context.Context) (model.CaseSummary, error) {
	summary := model.CaseSummary{
		ByStatus:   make(map[string]int),
		ByPriority: make(map[string]int),
	}

	rows, err := s.pool.Query(ctx,
		`SELECT status, priority, COUNT(*) FROM cases GROUP BY status, priority`)
	if err != nil {
		return model.CaseSummary{}, fmt.Errorf("query case summary: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status, priority string
		var count int
		if err := rows.Scan(&status, &priority, &count); err != nil {
			return model.CaseSummary{}, fmt.Errorf("scan case summary: %w", err)
		}
		summary.Total += count
		summary.ByStatus[status] += count
		summary.ByPriority[priority] += count
	}
	return summary, rows.Err()
}

// GetAdvocate retrieves a directory entry by ID.
func (s *PgStore) GetAdvocate(ctx context.Context, advocateID string) (model.Advocate, error) {
	var adv model.Advocate
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, email, role, specializations, experience_years, active, created_at
		FROM advocates
		WHERE id = $1`,
		advocateID,
	).Scan(
		&adv.ID, &adv.Name, &adv.Email, &adv.Role,
		&adv.Specializations, &adv.ExperienceYears, &adv.Active, &adv.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return model.Advocate{}, model.NewNotFoundError(
			fmt.Sprintf("advocate %q not found", advocateID),
		)
	}
	if err != nil {
		return model.Advocate{}, fmt.Errorf("query advocate: %w", err)
	}
	return adv, nil
}

// ListAdvocates returns directory entries sorted by ID.
func (s *PgStore) ListAdvocates(ctx context.Context, activeOnly bool) ([]model.Advocate, error) {
	query := `SELECT id, name, email, role, specializations, experience_years, active, created_at
	          FROM advocates`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query advocates: %w", err)
	}
	defer rows.Close()

	var advocates []model.Advocate
	for rows.Next() {
		var adv model.Advocate
		if err := rows.Scan(
			&adv.ID, &adv.Name, &adv.Email, &adv.Role,
			&adv.Specializations, &adv.ExperienceYears, &adv.Active, &adv.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan advocate: %w", err)
		}
		advocates = append(advocates, adv)
	}
	return advocates, rows.Err()
}

// PutAdvocate creates or replaces a directory entry.
func (s *PgStore) PutAdvocate(ctx context.Context, adv model.Advocate) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO advocates (id, name, email, role, specializations, experience_years, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			role = EXCLUDED.role,
			specializations = EXCLUDED.specializations,
			experience_years = EXCLUDED.experience_years,
			active = EXCLUDED.active`,
		adv.ID, adv.Name, adv.Email, adv.Role,
		adv.Specializations, adv.ExperienceYears, adv.Active, adv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert advocate: %w", err)
	}
	return nil
}

// queryCases executes a query and returns cases.
func (s *PgStore) queryCases(ctx context.Context, query string, args ...any) ([]model.Case, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cases: %w", err)
	}
	defer rows.Close()

	var cases []model.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

func scanCase(row pgx.Row) (model.Case, error) {
	var c model.Case
	err := row.Scan(
		&c.ID, &c.CaseNumber, &c.Title, &c.Description, &c.Category,
		&c.Status, &c.Priority, &c.Progress,
		&c.ClientID, &c.PrimaryAdvocate, &c.SecondaryAdvocates,
		&c.DateAssigned, &c.CourtDate, &c.ExpectedCompletion, &c.ActualCompletion,
		&c.Outcome, &c.Notes, &c.LastActivity,
		&c.CreatedBy, &c.UpdatedBy, &c.CreatedAt, &c.UpdatedAt, &c.Version,
	)
	return c, err
}
