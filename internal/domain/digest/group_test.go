package digest

import (
	"testing"

	"financial_digest/internal/domain/notification"
)

func TestGroupByAdvisor(t *testing.T) {
	ns := []notification.Notification{
		marginCall("1", "A001", 1, "1"),
		marginCall("2", "A002", 1, "1"),
		notification.CorporateAction{Header: header("3", "A001", 2)},
		marginCall("4", "A003", 1, "1"),
		marginCall("5", "A001", 5, "1"),
	}
	groups := GroupByAdvisor(ns)

	if len(groups) != 3 {
		t.Fatalf("expected 3 advisors, got %d", len(groups))
	}
	wantA001 := []string{"1", "3", "5"}
	for i, n := range groups["A001"] {
		if n.Common().ID != wantA001[i] {
			t.Errorf("A001[%d]: expected %s, got %s", i, wantA001[i], n.Common().ID)
		}
	}

	// lossless and duplicate free
	seen := map[string]int{}
	total := 0
	for advisor, list := range groups {
		for _, n := range list {
			if n.Common().AdvisorID != advisor {
				t.Errorf("notification %s filed under %s", n.Common().ID, advisor)
			}
			seen[n.Common().ID]++
			total++
		}
	}
	if total != len(ns) {
		t.Errorf("expected %d grouped notifications, got %d", len(ns), total)
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("notification %s appears %d times", id, count)
		}
	}

	ids := AdvisorIDs(groups)
	if len(ids) != 3 || ids[0] != "A001" || ids[2] != "A003" {
		t.Errorf("unexpected advisor order %v", ids)
	}
}

func TestGroupByAdvisorEmpty(t *testing.T) {
	groups := GroupByAdvisor(nil)
	if groups == nil || len(groups) != 0 {
		t.Errorf("expected empty, non-nil mapping, got %v", groups)
	}
	if _, ok := groups["A004"]; ok {
		t.Errorf("advisor without notifications must not appear")
	}
}
