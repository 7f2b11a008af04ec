// Package insights produces digest enrichments from the masked digest view.
package insights

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"financial_digest/internal/domain/digest"
	"financial_digest/internal/domain/notification"
)

// FallbackGenerator derives a generic executive summary and insights from
// the masked payload alone. It is used when no AI provider is configured.
type FallbackGenerator struct {
	logger *logrus.Entry
}

func NewFallbackGenerator(logger *logrus.Entry) *FallbackGenerator {
	return &FallbackGenerator{logger: logger.WithField("component", "insights")}
}

func (g *FallbackGenerator) Generate(ctx context.Context, masked map[string]any) (digest.Enrichment, error) {
	if err := ctx.Err(); err != nil {
		return digest.Enrichment{}, err
	}

	date := dateOf(masked["date"])
	total := 0
	if stats, ok := masked["summary_stats"].(map[string]any); ok {
		total = intOf(stats["total_notifications"])
	}

	e := digest.Enrichment{
		ExecutiveSummary: fmt.Sprintf("Daily digest for %s with %d notifications requiring your attention.", date, total),
	}

	if calls := items(masked, "margin_calls"); len(calls) > 0 {
		e.Insights = append(e.Insights, digest.Insight{
			Title:          "High Priority Margin Calls",
			Content:        fmt.Sprintf("%d margin calls are open, %d of them urgent.", len(calls), len(urgent(calls))),
			Recommendation: "Contact clients with margin calls due in the next 48 hours.",
			RelatedClients: clientNames(urgent(calls)),
		})
	}
	if contribs := items(masked, "retirement_contributions"); len(contribs) > 0 {
		e.Insights = append(e.Insights, digest.Insight{
			Title:          "Retirement Contribution Summary",
			Content:        "Several clients have made retirement contributions that may have tax implications.",
			Recommendation: "Review retirement planning strategies with these clients.",
			RelatedClients: clientNames(contribs),
		})
	}
	if transfers := items(masked, "outgoing_transfers"); len(transfers) > 0 {
		e.Insights = append(e.Insights, digest.Insight{
			Title:          "Outgoing Transfers",
			Content:        fmt.Sprintf("%d outgoing transfers are in progress.", len(transfers)),
			Recommendation: "Confirm the destination and tax withholding of urgent transfers before payment.",
			RelatedClients: clientNames(urgent(transfers)),
		})
	}

	g.logger.WithField("advisor_id", masked["advisor_id"]).Debugf("Generated %d fallback insights", len(e.Insights))
	return e, nil
}

func items(masked map[string]any, key string) []map[string]any {
	list, _ := masked[key].([]any)
	out := make([]map[string]any, 0, len(list))
	for _, it := range list {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func urgent(list []map[string]any) []map[string]any {
	var out []map[string]any
	for _, it := range list {
		if notification.Classify(intOf(it["priority"])).IsUrgent() {
			out = append(out, it)
		}
	}
	return out
}

// clientNames returns the distinct client names in order of appearance.
func clientNames(list []map[string]any) []string {
	seen := make(map[string]struct{}, len(list))
	var names []string
	for _, it := range list {
		name, _ := it["client_name"].(string)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

func intOf(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	default:
		return 0
	}
}

func dateOf(v any) string {
	s, _ := v.(string)
	if len(s) >= len("2006-01-02") {
		return s[:len("2006-01-02")]
	}
	return s
}
