// internal/app/ports.go
package app

import (
	"context"
	"time"

	"financial_digest/internal/domain/digest"
)

// RecordSource yields the raw notification records of a date.
type RecordSource interface {
	Fetch(ctx context.Context, date time.Time) ([]map[string]any, error)
}

// InsightGenerator enriches a digest. It only ever receives the masked
// view of the digest.
type InsightGenerator interface {
	Generate(ctx context.Context, masked map[string]any) (digest.Enrichment, error)
}

// Renderer turns a digest into an e-mail subject and bodies.
type Renderer interface {
	Render(d *digest.Digest) (subject, html, text string, err error)
}

// Mailer delivers one rendered digest.
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// UrgentNotifier tells an advisor on Telegram that their digest carries
// urgent items. Only counts leave the process, never client data.
type UrgentNotifier interface {
	NotifyUrgent(ctx context.Context, chatID int64, d *digest.Digest) error
}

// RunReporter is told about every finished run.
type RunReporter interface {
	Report(ctx context.Context, r *RunReport) error
}
