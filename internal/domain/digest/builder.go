// internal/domain/digest/builder.go
package digest

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"financial_digest/internal/domain/notification"
)

var ErrInvalidNotification = errors.New("invalid notification for digest")

// InvalidNotificationError reports a notification handed to the wrong
// advisor's build.
type InvalidNotificationError struct {
	AdvisorID      string
	NotificationID string
	GotAdvisorID   string
}

func (e *InvalidNotificationError) Error() string {
	return fmt.Sprintf("notification %q belongs to advisor %q, not %q", e.NotificationID, e.GotAdvisorID, e.AdvisorID)
}

func (e *InvalidNotificationError) Unwrap() error { return ErrInvalidNotification }

// Recipient identifies the advisor a digest is addressed to.
type Recipient struct {
	ID    string
	Name  string
	Email string
}

// Build assembles the digest of one advisor. All notifications must belong
// to that advisor; otherwise no digest is returned.
func Build(to Recipient, date time.Time, ns []notification.Notification) (*Digest, error) {
	d := &Digest{
		AdvisorID:               to.ID,
		AdvisorName:             to.Name,
		AdvisorEmail:            to.Email,
		Date:                    Day(date),
		MarginCalls:             []notification.MarginCall{},
		RetirementContributions: []notification.RetirementContribution{},
		CorporateActions:        []notification.CorporateAction{},
		OutgoingTransfers:       []notification.OutgoingTransfer{},
	}

	acc := newStatsAccumulator()
	for _, n := range ns {
		h := n.Common()
		if h.AdvisorID != to.ID {
			return nil, &InvalidNotificationError{AdvisorID: to.ID, NotificationID: h.ID, GotAdvisorID: h.AdvisorID}
		}
		switch v := n.(type) {
		case notification.MarginCall:
			d.MarginCalls = append(d.MarginCalls, v)
		case notification.RetirementContribution:
			d.RetirementContributions = append(d.RetirementContributions, v)
		case notification.CorporateAction:
			d.CorporateActions = append(d.CorporateActions, v)
		case notification.OutgoingTransfer:
			d.OutgoingTransfers = append(d.OutgoingTransfers, v)
		default:
			return nil, &InvalidNotificationError{AdvisorID: to.ID, NotificationID: h.ID, GotAdvisorID: h.AdvisorID}
		}
		acc.add(n)
	}

	slices.SortStableFunc(d.MarginCalls, byPriority[notification.MarginCall])
	slices.SortStableFunc(d.RetirementContributions, byPriority[notification.RetirementContribution])
	slices.SortStableFunc(d.CorporateActions, byPriority[notification.CorporateAction])
	slices.SortStableFunc(d.OutgoingTransfers, byPriority[notification.OutgoingTransfer])

	d.SummaryStats = acc.stats()
	return d, nil
}

func byPriority[T notification.Notification](a, b T) int {
	return a.Common().Priority - b.Common().Priority
}

type statsAccumulator struct {
	kinds  map[notification.Kind]*KindStats
	sums   map[notification.Kind]decimal.Decimal
	urgent bool
}

func newStatsAccumulator() *statsAccumulator {
	acc := &statsAccumulator{
		kinds: make(map[notification.Kind]*KindStats, len(notification.Kinds)),
		sums:  make(map[notification.Kind]decimal.Decimal, len(notification.Kinds)),
	}
	for _, k := range notification.Kinds {
		ks := &KindStats{ByTier: make(map[notification.Tier]int, len(notification.Tiers))}
		for _, t := range notification.Tiers {
			ks.ByTier[t] = 0
		}
		switch k {
		case notification.KindCorporateAction:
			ks.ByType = map[string]int{}
		case notification.KindOutgoingTransfer:
			ks.ByStatus = map[string]int{}
		}
		acc.kinds[k] = ks
		if k.HasAmount() {
			acc.sums[k] = decimal.Zero
		}
	}
	return acc
}

func (a *statsAccumulator) add(n notification.Notification) {
	k := n.Kind()
	ks := a.kinds[k]
	ks.Count++

	tier := notification.TierOf(n)
	ks.ByTier[tier]++
	if tier.IsUrgent() {
		a.urgent = true
	}

	if amount, ok := notification.Amount(n); ok {
		a.sums[k] = a.sums[k].Add(amount)
	}

	switch v := n.(type) {
	case notification.CorporateAction:
		ks.ByType[labelOrUnspecified(v.ActionType)]++
	case notification.OutgoingTransfer:
		ks.ByStatus[labelOrUnspecified(v.Status)]++
	}
}

func (a *statsAccumulator) stats() SummaryStats {
	get := func(k notification.Kind) KindStats {
		ks := *a.kinds[k]
		if sum, ok := a.sums[k]; ok {
			ks.TotalAmount = &sum
		}
		return ks
	}
	s := SummaryStats{
		MarginCalls:             get(notification.KindMarginCall),
		RetirementContributions: get(notification.KindRetirementContribution),
		CorporateActions:        get(notification.KindCorporateAction),
		OutgoingTransfers:       get(notification.KindOutgoingTransfer),
		HasUrgent:               a.urgent,
	}
	s.TotalNotifications = s.MarginCalls.Count + s.RetirementContributions.Count +
		s.CorporateActions.Count + s.OutgoingTransfers.Count
	return s
}

func labelOrUnspecified(s string) string {
	if s == "" {
		return "unspecified"
	}
	return s
}
