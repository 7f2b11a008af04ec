// internal/domain/notification/shared_types.go
package notification

// Kind is the discriminant of a notification record.
type Kind string

const (
	KindMarginCall             Kind = "margin_call"
	KindRetirementContribution Kind = "retirement_contribution"
	KindCorporateAction        Kind = "corporate_action"
	KindOutgoingTransfer       Kind = "outgoing_transfer"
)

// legacyOutgoingTransfer is the spelling used by older upstream feeds.
const legacyOutgoingTransfer = "outgoing account transfer"

// Kinds lists every notification kind in digest section order.
var Kinds = []Kind{
	KindMarginCall,
	KindRetirementContribution,
	KindCorporateAction,
	KindOutgoingTransfer,
}

// ParseKind resolves a raw discriminant. ok is false for unknown kinds.
func ParseKind(raw string) (Kind, bool) {
	switch raw {
	case string(KindMarginCall):
		return KindMarginCall, true
	case string(KindRetirementContribution):
		return KindRetirementContribution, true
	case string(KindCorporateAction):
		return KindCorporateAction, true
	case string(KindOutgoingTransfer), legacyOutgoingTransfer:
		return KindOutgoingTransfer, true
	default:
		return "", false
	}
}

// Label is the human readable section title for a kind.
func (k Kind) Label() string {
	switch k {
	case KindMarginCall:
		return "Margin Calls"
	case KindRetirementContribution:
		return "Retirement Contributions"
	case KindCorporateAction:
		return "Corporate Actions"
	case KindOutgoingTransfer:
		return "Outgoing Transfers"
	default:
		return string(k)
	}
}

// Tier is the derived urgency classification of a notification.
type Tier string

const (
	TierCritical Tier = "critical"
	TierHigh     Tier = "high"
	TierMedium   Tier = "medium"
)

// Tiers lists the tiers from most to least urgent.
var Tiers = []Tier{TierCritical, TierHigh, TierMedium}

// Label is the display label used by renderers.
func (t Tier) Label() string {
	switch t {
	case TierCritical:
		return "Critical"
	case TierHigh:
		return "High Priority"
	default:
		return "Medium Priority"
	}
}

const (
	MinPriority = 1
	MaxPriority = 5
)
