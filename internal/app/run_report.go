package app

import (
	"time"
)

type AdvisorStatus string

const (
	StatusDelivered AdvisorStatus = "delivered"
	StatusBuilt     AdvisorStatus = "built" // no mailer configured, nothing recorded
	StatusSkipped   AdvisorStatus = "skipped"
	StatusFailed    AdvisorStatus = "failed"
)

// AdvisorResult is the outcome of one advisor's pipeline.
type AdvisorResult struct {
	AdvisorID     string
	Email         string
	Notifications int
	Status        AdvisorStatus
	Stage         string // pipeline stage that failed or skipped, empty on success
	Err           error
	Enriched      bool
	Persisted     bool
	Notified      bool // urgent notice sent on Telegram
}

// RunReport summarizes one digest run.
type RunReport struct {
	RunID      string
	Date       time.Time
	Forced     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Records    int
	Accepted   int
	Rejected   []error
	Advisors   []AdvisorResult
}

// Count returns the number of advisors that ended in status st.
func (r *RunReport) Count(st AdvisorStatus) int {
	n := 0
	for _, a := range r.Advisors {
		if a.Status == st {
			n++
		}
	}
	return n
}

func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
