// internal/infra/database/postgres_digest_repository.go
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"financial_digest/internal/domain/digest"
)

// PostgresDigestRepository keeps built digests as JSONB rows keyed by
// (advisor_id, digest_date).
type PostgresDigestRepository struct {
	db *sql.DB
}

func NewPostgresDigestRepository(db *sql.DB) *PostgresDigestRepository {
	return &PostgresDigestRepository{db: db}
}

func (r *PostgresDigestRepository) Get(ctx context.Context, advisorID string, date time.Time) (*digest.Digest, error) {
	query := `SELECT payload FROM digest_history WHERE advisor_id = $1 AND digest_date = $2::date`

	var payload []byte
	err := r.db.QueryRowContext(ctx, query, advisorID, digest.DateKey(date)).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, digest.ErrDigestNotFound
		}
		return nil, fmt.Errorf("error getting digest for advisor %s: %w", advisorID, err)
	}
	return decodeDigest(payload)
}

func (r *PostgresDigestRepository) Put(ctx context.Context, d *digest.Digest) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("error encoding digest for advisor %s: %w", d.AdvisorID, err)
	}

	query := `INSERT INTO digest_history (advisor_id, digest_date, total_notifications, has_urgent, payload)
               VALUES ($1, $2::date, $3, $4, $5)
               ON CONFLICT (advisor_id, digest_date) DO UPDATE
               SET total_notifications = EXCLUDED.total_notifications,
                   has_urgent = EXCLUDED.has_urgent,
                   payload = EXCLUDED.payload,
                   updated_at = NOW()`

	_, err = r.db.ExecContext(ctx, query, d.AdvisorID, digest.DateKey(d.Date),
		d.SummaryStats.TotalNotifications, d.SummaryStats.HasUrgent, payload)
	if err != nil {
		return fmt.Errorf("error storing digest for advisor %s: %w", d.AdvisorID, err)
	}
	return nil
}

// ListByAdvisor returns the advisor's digests dated within [from, to], newest first.
func (r *PostgresDigestRepository) ListByAdvisor(ctx context.Context, advisorID string, from, to time.Time) ([]*digest.Digest, error) {
	query := `SELECT payload FROM digest_history
               WHERE advisor_id = $1 AND digest_date BETWEEN $2::date AND $3::date
               ORDER BY digest_date DESC`

	rows, err := r.db.QueryContext(ctx, query, advisorID, digest.DateKey(from), digest.DateKey(to))
	if err != nil {
		return nil, fmt.Errorf("error listing digests for advisor %s: %w", advisorID, err)
	}
	defer rows.Close()

	digests := make([]*digest.Digest, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("error scanning digest: %w", err)
		}
		d, err := decodeDigest(payload)
		if err != nil {
			return nil, err
		}
		digests = append(digests, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating digests: %w", err)
	}
	return digests, nil
}

func decodeDigest(payload []byte) (*digest.Digest, error) {
	d := &digest.Digest{}
	if err := json.Unmarshal(payload, d); err != nil {
		return nil, fmt.Errorf("error decoding stored digest: %w", err)
	}
	return d, nil
}
