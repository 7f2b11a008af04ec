package notification

// Classify derives the tier of a numeric priority. Rules are evaluated in
// order and the first match wins: 1 is critical, 4 and above is high,
// anything else is medium.
func Classify(priority int) Tier {
	switch {
	case priority == 1:
		return TierCritical
	case priority >= 4:
		return TierHigh
	default:
		return TierMedium
	}
}

// TierOf classifies a notification by its priority.
func TierOf(n Notification) Tier {
	return Classify(n.Common().Priority)
}

// IsUrgent reports whether a tier needs attention before medium items.
func (t Tier) IsUrgent() bool {
	return t == TierCritical || t == TierHigh
}
