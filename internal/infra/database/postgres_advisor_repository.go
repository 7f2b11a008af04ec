package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"financial_digest/internal/domain/advisor"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type PostgresAdvisorRepository struct {
	db *sql.DB
}

func NewPostgresAdvisorRepository(db *sql.DB) *PostgresAdvisorRepository {
	return &PostgresAdvisorRepository{db: db}
}

const advisorColumns = `advisor_id, name, email, telegram_id, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAdvisor(row rowScanner) (*advisor.Advisor, error) {
	a := &advisor.Advisor{}
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.TelegramID, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *PostgresAdvisorRepository) Create(ctx context.Context, a *advisor.Advisor) error {
	query := `INSERT INTO advisors (advisor_id, name, email, telegram_id, is_active)
               VALUES ($1, $2, $3, $4, $5)
               RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, a.ID, a.Name, a.Email, a.TelegramID, a.IsActive).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			if pqErr.Constraint == "advisors_email_key" {
				return advisor.ErrDuplicateEmail
			}
			return fmt.Errorf("advisor %s already exists: %w", a.ID, err)
		}
		return fmt.Errorf("error creating advisor: %w", err)
	}
	return nil
}

func (r *PostgresAdvisorRepository) GetByID(ctx context.Context, id string) (*advisor.Advisor, error) {
	query := `SELECT ` + advisorColumns + ` FROM advisors WHERE advisor_id = $1`
	a, err := scanAdvisor(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, advisor.ErrAdvisorNotFound
		}
		return nil, fmt.Errorf("error getting advisor by ID: %w", err)
	}
	return a, nil
}

// GetByIDs resolves a batch of advisor ids in one round trip.
func (r *PostgresAdvisorRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*advisor.Advisor, error) {
	out := make(map[string]*advisor.Advisor, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query := `SELECT ` + advisorColumns + ` FROM advisors WHERE advisor_id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("error looking up advisors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAdvisor(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning advisor: %w", err)
		}
		out[a.ID] = a
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating advisors: %w", err)
	}
	return out, nil
}

func (r *PostgresAdvisorRepository) Update(ctx context.Context, a *advisor.Advisor) error {
	query := `UPDATE advisors
               SET name = $1, email = $2, telegram_id = $3, is_active = $4, updated_at = NOW()
               WHERE advisor_id = $5
               RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query, a.Name, a.Email, a.TelegramID, a.IsActive, a.ID).Scan(&a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return advisor.ErrAdvisorNotFound
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return advisor.ErrDuplicateEmail
		}
		return fmt.Errorf("error updating advisor: %w", err)
	}
	return nil
}

func (r *PostgresAdvisorRepository) ListActive(ctx context.Context) ([]*advisor.Advisor, error) {
	return r.list(ctx, `SELECT `+advisorColumns+` FROM advisors WHERE is_active = TRUE ORDER BY name, advisor_id`)
}

func (r *PostgresAdvisorRepository) ListAll(ctx context.Context) ([]*advisor.Advisor, error) {
	return r.list(ctx, `SELECT `+advisorColumns+` FROM advisors ORDER BY advisor_id`)
}

func (r *PostgresAdvisorRepository) list(ctx context.Context, query string) ([]*advisor.Advisor, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing advisors: %w", err)
	}
	defer rows.Close()

	advisors := make([]*advisor.Advisor, 0)
	for rows.Next() {
		a, err := scanAdvisor(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning advisor: %w", err)
		}
		advisors = append(advisors, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating advisors: %w", err)
	}
	return advisors, nil
}
