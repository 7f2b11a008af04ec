// internal/domain/digest/digest.go
package digest

import (
	"time"

	"github.com/shopspring/decimal"

	"financial_digest/internal/domain/notification"
)

// Digest is one advisor's aggregation of notifications for a date. It is
// built in one pass by Build and not modified afterwards; enrichment
// produces a new value via WithInsights.
type Digest struct {
	AdvisorID    string    `json:"advisor_id"`
	AdvisorName  string    `json:"advisor_name"`
	AdvisorEmail string    `json:"advisor_email"`
	Date         time.Time `json:"date"`

	MarginCalls             []notification.MarginCall             `json:"margin_calls"`
	RetirementContributions []notification.RetirementContribution `json:"retirement_contributions"`
	CorporateActions        []notification.CorporateAction        `json:"corporate_actions"`
	OutgoingTransfers       []notification.OutgoingTransfer       `json:"outgoing_transfers"`

	SummaryStats SummaryStats `json:"summary_stats"`

	ExecutiveSummary string    `json:"executive_summary,omitempty"`
	AIInsights       []Insight `json:"ai_insights,omitempty"`
}

// SummaryStats aggregates a digest's buckets.
type SummaryStats struct {
	TotalNotifications      int       `json:"total_notifications"`
	MarginCalls             KindStats `json:"margin_calls"`
	RetirementContributions KindStats `json:"retirement_contributions"`
	CorporateActions        KindStats `json:"corporate_actions"`
	OutgoingTransfers       KindStats `json:"outgoing_transfers"`
	// HasUrgent is set when any item is critical or high tier.
	HasUrgent bool `json:"has_urgent"`
}

// KindStats describes one bucket. TotalAmount is nil for kinds that carry
// no amount.
type KindStats struct {
	Count       int                       `json:"count"`
	TotalAmount *decimal.Decimal          `json:"total_amount,omitempty"`
	ByTier      map[notification.Tier]int `json:"by_tier"`
	// ByType counts corporate actions per action type.
	ByType map[string]int `json:"by_type,omitempty"`
	// ByStatus counts outgoing transfers per status.
	ByStatus map[string]int `json:"by_status,omitempty"`
}

// For returns the stats of kind k.
func (s SummaryStats) For(k notification.Kind) KindStats {
	switch k {
	case notification.KindMarginCall:
		return s.MarginCalls
	case notification.KindRetirementContribution:
		return s.RetirementContributions
	case notification.KindCorporateAction:
		return s.CorporateActions
	case notification.KindOutgoingTransfer:
		return s.OutgoingTransfers
	default:
		return KindStats{}
	}
}

// Insight is one item produced by the enrichment collaborator.
type Insight struct {
	Title          string   `json:"title"`
	Content        string   `json:"content"`
	Recommendation string   `json:"recommendation,omitempty"`
	RelatedClients []string `json:"related_clients,omitempty"`
}

// Enrichment is the payload returned by the enrichment collaborator.
type Enrichment struct {
	ExecutiveSummary string    `json:"executive_summary"`
	Insights         []Insight `json:"insights"`
}

// WithInsights returns a copy of d carrying the enrichment. d is unchanged.
func (d *Digest) WithInsights(e Enrichment) *Digest {
	out := *d
	out.ExecutiveSummary = e.ExecutiveSummary
	out.AIInsights = append([]Insight(nil), e.Insights...)
	return &out
}

// Notifications returns every notification in section order.
func (d *Digest) Notifications() []notification.Notification {
	out := make([]notification.Notification, 0, d.SummaryStats.TotalNotifications)
	for _, n := range d.MarginCalls {
		out = append(out, n)
	}
	for _, n := range d.RetirementContributions {
		out = append(out, n)
	}
	for _, n := range d.CorporateActions {
		out = append(out, n)
	}
	for _, n := range d.OutgoingTransfers {
		out = append(out, n)
	}
	return out
}

// DateKey is the canonical form of a digest date.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
