package masking

import (
	"fmt"
	"path"
	"strings"
)

// Rule binds a field name pattern to a masking strategy. Patterns use
// path.Match syntax and are compared against the lower-cased field name.
type Rule struct {
	Pattern  string
	Strategy Strategy
}

// Rules is an ordered rule table; the first matching rule wins.
type Rules struct {
	rules []Rule
}

// NewRules validates and stores rules in the given order.
func NewRules(rules ...Rule) (*Rules, error) {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Strategy == nil {
			return nil, fmt.Errorf("masking rule %q has no strategy", r.Pattern)
		}
		pattern := strings.ToLower(strings.TrimSpace(r.Pattern))
		if pattern == "" {
			return nil, fmt.Errorf("masking rule with empty pattern")
		}
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("masking rule %q: %w", r.Pattern, err)
		}
		out = append(out, Rule{Pattern: pattern, Strategy: r.Strategy})
	}
	return &Rules{rules: out}, nil
}

// DefaultRules is the rule table applied to digests sent for enrichment.
func DefaultRules() *Rules {
	rules, err := NewRules(
		Rule{Pattern: "account_number", Strategy: MaskAccountNumber},
		Rule{Pattern: "client_id", Strategy: HashClientID},
		Rule{Pattern: "client_name", Strategy: MaskClientName},
		Rule{Pattern: "email", Strategy: MaskEmail},
		Rule{Pattern: "*_email", Strategy: MaskEmail},
	)
	if err != nil {
		panic(err)
	}
	return rules
}

// With returns a copy of r with extra rules appended after the existing ones.
func (r *Rules) With(extra ...Rule) (*Rules, error) {
	combined := make([]Rule, 0, len(r.rules)+len(extra))
	combined = append(combined, r.rules...)
	combined = append(combined, extra...)
	return NewRules(combined...)
}

// Match returns the strategy for a field name, if any rule applies.
func (r *Rules) Match(field string) (Strategy, bool) {
	name := strings.ToLower(field)
	for _, rule := range r.rules {
		if ok, _ := path.Match(rule.Pattern, name); ok {
			return rule.Strategy, true
		}
	}
	return nil, false
}

// Len is the number of rules in the table.
func (r *Rules) Len() int { return len(r.rules) }
