// internal/domain/digest/repository.go
package digest

import (
	"context"
	"errors"
	"time"
)

var ErrDigestNotFound = errors.New("digest not found")

// HistoryRepository stores built digests keyed by advisor and date.
type HistoryRepository interface {
	Get(ctx context.Context, advisorID string, date time.Time) (*Digest, error) // ErrDigestNotFound when absent
	Put(ctx context.Context, d *Digest) error                                   // replaces an existing entry for the same key
	ListByAdvisor(ctx context.Context, advisorID string, from, to time.Time) ([]*Digest, error)
}
