package digest

import (
	"sort"

	"financial_digest/internal/domain/notification"
)

// GroupByAdvisor partitions notifications by advisor id. Each list keeps the
// relative input order. Advisors without notifications do not appear.
func GroupByAdvisor(ns []notification.Notification) map[string][]notification.Notification {
	groups := make(map[string][]notification.Notification)
	for _, n := range ns {
		id := n.Common().AdvisorID
		groups[id] = append(groups[id], n)
	}
	return groups
}

// AdvisorIDs returns the group keys in sorted order.
func AdvisorIDs(groups map[string][]notification.Notification) []string {
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
