// Package render turns digests into e-mail bodies.
package render

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/shopspring/decimal"

	"financial_digest/internal/domain/digest"
	"financial_digest/internal/domain/notification"
)

//go:embed templates/*
var templateFS embed.FS

const dateLayout = "2006-01-02"

// DigestRenderer renders the HTML and plain-text views of a digest.
type DigestRenderer struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

func NewDigestRenderer() (*DigestRenderer, error) {
	html, err := htmltemplate.ParseFS(templateFS, "templates/digest.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing html template: %w", err)
	}
	text, err := texttemplate.ParseFS(templateFS, "templates/digest.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing text template: %w", err)
	}
	return &DigestRenderer{html: html, text: text}, nil
}

func (r *DigestRenderer) Render(d *digest.Digest) (subject, html, text string, err error) {
	v := newView(d)

	var hb, tb bytes.Buffer
	if err := r.html.Execute(&hb, v); err != nil {
		return "", "", "", fmt.Errorf("rendering html digest for %s: %w", d.AdvisorID, err)
	}
	if err := r.text.Execute(&tb, v); err != nil {
		return "", "", "", fmt.Errorf("rendering text digest for %s: %w", d.AdvisorID, err)
	}
	return v.Subject, hb.String(), tb.String(), nil
}

type view struct {
	Subject          string
	AdvisorName      string
	Date             string
	Total            int
	HasUrgent        bool
	ExecutiveSummary string
	Sections         []section
	Insights         []digest.Insight
}

type section struct {
	Title string
	Count int
	Total string // empty for kinds without amounts
	Items []item
}

type item struct {
	TierLabel string
	TierClass string
	Client    string
	Account   string
	Amount    string
	Details   []string
}

func newView(d *digest.Digest) view {
	v := view{
		AdvisorName:      d.AdvisorName,
		Date:             digest.DateKey(d.Date),
		Total:            d.SummaryStats.TotalNotifications,
		HasUrgent:        d.SummaryStats.HasUrgent,
		ExecutiveSummary: d.ExecutiveSummary,
		Insights:         d.AIInsights,
	}
	v.Subject = "Financial Digest for " + v.Date
	if v.HasUrgent {
		v.Subject = "[Action required] " + v.Subject
	}

	byKind := make(map[notification.Kind][]item, len(notification.Kinds))
	for _, n := range d.Notifications() {
		byKind[n.Kind()] = append(byKind[n.Kind()], newItem(n))
	}
	for _, k := range notification.Kinds {
		items := byKind[k]
		if len(items) == 0 {
			continue
		}
		s := section{Title: k.Label(), Count: len(items), Items: items}
		if total := d.SummaryStats.For(k).TotalAmount; total != nil {
			s.Total = money(*total)
		}
		v.Sections = append(v.Sections, s)
	}
	return v
}

func newItem(n notification.Notification) item {
	h := n.Common()
	tier := notification.TierOf(n)
	it := item{
		TierLabel: tier.Label(),
		TierClass: string(tier),
		Client:    h.ClientName,
		Account:   h.AccountNumber,
	}
	if amount, ok := notification.Amount(n); ok {
		it.Amount = money(amount)
	}

	switch v := n.(type) {
	case notification.MarginCall:
		it.Details = append(it.Details, "Due "+v.DueDate.Format(dateLayout))
		if v.CurrentMarginPercentage != 0 || v.RequiredMarginPercentage != 0 {
			it.Details = append(it.Details, fmt.Sprintf("Margin %.1f%% of required %.1f%%", v.CurrentMarginPercentage, v.RequiredMarginPercentage))
		}
	case notification.RetirementContribution:
		it.Details = appendNonEmpty(it.Details, v.ContributionType)
		if v.TaxYear != 0 {
			it.Details = append(it.Details, fmt.Sprintf("Tax year %d", v.TaxYear))
		}
	case notification.CorporateAction:
		it.Details = appendNonEmpty(it.Details, strings.TrimSpace(v.ActionType+" "+v.SecurityName))
		it.Details = append(it.Details, "Deadline "+v.DeadlineDate.Format(dateLayout))
		it.Details = appendNonEmpty(it.Details, v.Description)
	case notification.OutgoingTransfer:
		it.Details = appendNonEmpty(it.Details, strings.TrimSpace(v.TransferType+" "+v.AccountType))
		if !v.GrossAmount.Equal(v.NetAmount) {
			it.Details = append(it.Details, "Gross "+money(v.GrossAmount))
		}
		it.Details = append(it.Details, "Payment "+v.PaymentDate.Format(dateLayout))
		it.Details = appendNonEmpty(it.Details, v.Status)
	}
	return it
}

func appendNonEmpty(list []string, s string) []string {
	if s == "" {
		return list
	}
	return append(list, s)
}

// money formats d as dollars with thousands separators, e.g. $12,500.10.
func money(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
