package app

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"financial_digest/internal/domain/advisor"
	"financial_digest/internal/domain/digest"
	"financial_digest/internal/domain/masking"
)

var runDate = time.Date(2025, 4, 17, 0, 0, 0, 0, time.UTC)

func marginCallRecord(id, advisorID, email string, priority int) map[string]any {
	return map[string]any{
		"type":           "margin_call",
		"id":             id,
		"client_name":    "Alice Johnson",
		"client_id":      "CL-1001",
		"account_number": "1234567890",
		"advisor_id":     advisorID,
		"advisor_email":  email,
		"priority":       float64(priority),
		"call_amount":    "2500.00",
		"due_date":       "2025-04-20",
	}
}

func transferRecord(id, advisorID, email string) map[string]any {
	return map[string]any{
		"type":           "outgoing_transfer",
		"id":             id,
		"client_name":    "Bob Stone",
		"client_id":      "CL-2002",
		"account_number": "99887766",
		"advisor_id":     advisorID,
		"advisor_email":  email,
		"priority":       3,
		"net_amount":     1000,
		"entry_date":     "2025-04-16",
		"payment_date":   "2025-04-18",
		"status":         "Pending",
	}
}

type serviceFixture struct {
	source   *fakeSource
	advisors *fakeAdvisorRepo
	history  *fakeHistory
	insights *fakeInsights
	mailer   *fakeMailer
	reporter *fakeReporter
	svc      *DigestService
}

func newServiceFixture(records ...map[string]any) *serviceFixture {
	f := &serviceFixture{
		source: &fakeSource{records: records},
		advisors: newFakeAdvisorRepo(&advisor.Advisor{
			ID: "A001", Name: "John Smith", Email: "john.smith@firm.example", IsActive: true,
		}),
		history:  newFakeHistory(),
		insights: &fakeInsights{result: digest.Enrichment{ExecutiveSummary: "All calm", Insights: []digest.Insight{{Title: "t", Content: "c"}}}},
		mailer:   &fakeMailer{failTo: map[string]bool{}},
		reporter: &fakeReporter{},
	}
	f.svc = NewDigestService(DigestServiceDeps{
		Source:   f.source,
		Advisors: f.advisors,
		History:  f.history,
		Masker:   masking.New(masking.DefaultRules()),
		Insights: f.insights,
		Renderer: fakeRenderer{},
		Mailer:   f.mailer,
		Reporter: f.reporter,
	}, 2, testLogger())
	f.svc.now = func() time.Time { return runDate.Add(7 * time.Hour) }
	return f
}

func resultFor(t *testing.T, r *RunReport, advisorID string) AdvisorResult {
	t.Helper()
	for _, a := range r.Advisors {
		if a.AdvisorID == advisorID {
			return a
		}
	}
	t.Fatalf("no result for advisor %s", advisorID)
	return AdvisorResult{}
}

func TestDigestServiceRun(t *testing.T) {
	bad := marginCallRecord("bad", "A001", "john@firm.example", 1)
	delete(bad, "call_amount")

	f := newServiceFixture(
		marginCallRecord("mc1", "A001", "john@firm.example", 1),
		transferRecord("ot1", "A002", "mary.jones@firm.example"),
		bad,
	)

	report, err := f.svc.Run(context.Background(), RunOptions{Date: runDate})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if report.RunID == "" {
		t.Errorf("expected a run id")
	}
	if report.Records != 3 || report.Accepted != 2 || len(report.Rejected) != 1 {
		t.Errorf("unexpected ingest counts: records=%d accepted=%d rejected=%d", report.Records, report.Accepted, len(report.Rejected))
	}
	if report.Count(StatusDelivered) != 2 {
		t.Fatalf("expected 2 delivered digests, got %+v", report.Advisors)
	}

	// known advisor uses the directory address, unknown falls back to the notification's
	if got := resultFor(t, report, "A001").Email; got != "john.smith@firm.example" {
		t.Errorf("A001 delivered to %s", got)
	}
	if got := resultFor(t, report, "A002").Email; got != "mary.jones@firm.example" {
		t.Errorf("A002 delivered to %s", got)
	}
	if len(f.mailer.sent) != 2 {
		t.Errorf("expected 2 mails, got %d", len(f.mailer.sent))
	}
	if f.history.len() != 2 {
		t.Errorf("expected 2 stored digests, got %d", f.history.len())
	}
	if len(f.reporter.reports) != 1 || f.reporter.reports[0] != report {
		t.Errorf("reporter did not receive the run report")
	}

	stored, err := f.history.Get(context.Background(), "A001", runDate)
	if err != nil {
		t.Fatalf("history Get failed: %v", err)
	}
	if stored.ExecutiveSummary != "All calm" || !resultFor(t, report, "A001").Enriched {
		t.Errorf("expected enriched digest in history")
	}
	if stored.MarginCalls[0].ClientName != "Alice Johnson" {
		t.Errorf("stored digest must keep unmasked data, got %q", stored.MarginCalls[0].ClientName)
	}
}

func TestDigestServiceMasksBeforeInsights(t *testing.T) {
	f := newServiceFixture(marginCallRecord("mc1", "A001", "john@firm.example", 1))

	if _, err := f.svc.Run(context.Background(), RunOptions{Date: runDate}); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if len(f.insights.seen) != 1 {
		t.Fatalf("expected one insight call, got %d", len(f.insights.seen))
	}
	masked := f.insights.seen[0]

	calls, ok := masked["margin_calls"].([]any)
	if !ok || len(calls) != 1 {
		t.Fatalf("unexpected masked margin_calls: %#v", masked["margin_calls"])
	}
	mc := calls[0].(map[string]any)
	if mc["client_name"] != "A. Johnson" {
		t.Errorf("client_name not masked: %v", mc["client_name"])
	}
	if mc["account_number"] != "XXXXXX7890" {
		t.Errorf("account_number not masked: %v", mc["account_number"])
	}
	if mc["client_id"] == "CL-1001" {
		t.Errorf("client_id not masked")
	}
	if email, _ := masked["advisor_email"].(string); !strings.HasPrefix(email, "j") || strings.Contains(email, "john.smith") {
		t.Errorf("advisor_email not masked: %v", masked["advisor_email"])
	}
}

func TestDigestServiceSkipsAlreadySent(t *testing.T) {
	f := newServiceFixture(marginCallRecord("mc1", "A001", "john@firm.example", 1))
	_ = f.history.Put(context.Background(), &digest.Digest{AdvisorID: "A001", Date: runDate})

	report, err := f.svc.Run(context.Background(), RunOptions{Date: runDate})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if res := resultFor(t, report, "A001"); res.Status != StatusSkipped || res.Stage != "already_sent" {
		t.Errorf("expected skip, got %+v", res)
	}
	if len(f.mailer.sent) != 0 {
		t.Errorf("no mail expected for a skipped advisor")
	}

	report, err = f.svc.Run(context.Background(), RunOptions{Date: runDate, Force: true})
	if err != nil {
		t.Fatalf("forced Run() failed: %v", err)
	}
	if res := resultFor(t, report, "A001"); res.Status != StatusDelivered {
		t.Errorf("forced run should deliver, got %+v", res)
	}
}

func TestDigestServiceDegradesWithoutInsights(t *testing.T) {
	f := newServiceFixture(marginCallRecord("mc1", "A001", "john@firm.example", 1))
	f.insights.err = errors.New("provider timeout")

	report, err := f.svc.Run(context.Background(), RunOptions{Date: runDate})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	res := resultFor(t, report, "A001")
	if res.Status != StatusDelivered || res.Enriched {
		t.Errorf("expected unenriched delivery, got %+v", res)
	}
	stored, _ := f.history.Get(context.Background(), "A001", runDate)
	if stored == nil || stored.ExecutiveSummary != "" || stored.AIInsights != nil {
		t.Errorf("digest should carry no enrichment: %+v", stored)
	}
}

func TestDigestServiceDeliveryFailureIsolated(t *testing.T) {
	f := newServiceFixture(
		marginCallRecord("mc1", "A001", "john@firm.example", 1),
		transferRecord("ot1", "A002", "mary.jones@firm.example"),
	)
	f.mailer.failTo["mary.jones@firm.example"] = true

	report, err := f.svc.Run(context.Background(), RunOptions{Date: runDate})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	failed := resultFor(t, report, "A002")
	if failed.Status != StatusFailed || failed.Stage != "deliver" || failed.Err == nil || failed.Persisted {
		t.Errorf("unexpected result for failing advisor: %+v", failed)
	}
	if resultFor(t, report, "A001").Status != StatusDelivered {
		t.Errorf("other advisors must still be delivered")
	}
	if _, err := f.history.Get(context.Background(), "A002", runDate); !errors.Is(err, digest.ErrDigestNotFound) {
		t.Errorf("undelivered digest must not be recorded as sent")
	}
}

func TestDigestServiceInactiveAdvisor(t *testing.T) {
	f := newServiceFixture(marginCallRecord("mc1", "A001", "john@firm.example", 1))
	f.advisors.advisors["A001"].IsActive = false

	report, err := f.svc.Run(context.Background(), RunOptions{Date: runDate})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if res := resultFor(t, report, "A001"); res.Status != StatusSkipped || res.Stage != "inactive" {
		t.Errorf("expected inactive skip, got %+v", res)
	}
}

func TestDigestServiceWithoutOptionalCollaborators(t *testing.T) {
	f := newServiceFixture(marginCallRecord("mc1", "A001", "john@firm.example", 1))
	f.advisors.err = errors.New("connection refused")
	f.svc.deps.Insights = nil
	f.svc.deps.Mailer = nil
	f.svc.deps.Reporter = nil

	report, err := f.svc.Run(context.Background(), RunOptions{Date: runDate})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	res := resultFor(t, report, "A001")
	if res.Status != StatusBuilt || res.Persisted {
		t.Errorf("expected built digest kept out of history, got %+v", res)
	}
	if f.history.len() != 0 {
		t.Errorf("a digest that was not sent must not be recorded")
	}

	// nothing was sent, so a second dry run builds again instead of skipping
	report, err = f.svc.Run(context.Background(), RunOptions{Date: runDate})
	if err != nil {
		t.Fatalf("second Run() failed: %v", err)
	}
	if res := resultFor(t, report, "A001"); res.Status != StatusBuilt || res.Stage != "" {
		t.Errorf("expected a rebuilt digest, got %+v", res)
	}
	if res.Email != "john@firm.example" {
		t.Errorf("directory failure should fall back to the notification email, got %s", res.Email)
	}
	if len(f.insights.seen) != 0 {
		t.Errorf("insights must not be called when disabled")
	}
}

func TestDigestServiceUrgentNotice(t *testing.T) {
	tests := []struct {
		name       string
		telegramID sql.NullInt64
		records    []map[string]any
		notifyErr  error
		wantChats  []int64
	}{
		{
			name:       "urgent digest with linked chat",
			telegramID: sql.NullInt64{Int64: 555, Valid: true},
			records:    []map[string]any{marginCallRecord("mc1", "A001", "john@firm.example", 1)},
			wantChats:  []int64{555},
		},
		{
			name:    "no linked chat",
			records: []map[string]any{marginCallRecord("mc1", "A001", "john@firm.example", 1)},
		},
		{
			name:       "nothing urgent",
			telegramID: sql.NullInt64{Int64: 555, Valid: true},
			records:    []map[string]any{transferRecord("ot1", "A001", "john@firm.example")},
		},
		{
			name:       "notice fails",
			telegramID: sql.NullInt64{Int64: 555, Valid: true},
			records:    []map[string]any{marginCallRecord("mc1", "A001", "john@firm.example", 1)},
			notifyErr:  errors.New("chat not found"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(tt.records...)
			f.advisors.advisors["A001"].TelegramID = tt.telegramID
			notifier := &fakeNotifier{err: tt.notifyErr}
			f.svc.deps.Notifier = notifier

			report, err := f.svc.Run(context.Background(), RunOptions{Date: runDate})
			if err != nil {
				t.Fatalf("Run() failed: %v", err)
			}
			res := resultFor(t, report, "A001")
			if res.Status != StatusDelivered {
				t.Errorf("notice must not affect delivery, got %+v", res)
			}
			if res.Notified != (len(tt.wantChats) > 0) {
				t.Errorf("Notified = %v, want %v", res.Notified, len(tt.wantChats) > 0)
			}
			if len(notifier.chats) != len(tt.wantChats) {
				t.Fatalf("notices sent to %v, want %v", notifier.chats, tt.wantChats)
			}
			for i, chat := range tt.wantChats {
				if notifier.chats[i] != chat {
					t.Errorf("notice %d sent to %d, want %d", i, notifier.chats[i], chat)
				}
			}
		})
	}
}

func TestDigestServiceFetchError(t *testing.T) {
	f := newServiceFixture()
	f.source.err = errors.New("inbox unreadable")

	report, err := f.svc.Run(context.Background(), RunOptions{Date: runDate})
	if err == nil || report != nil {
		t.Fatalf("expected fetch error, got report=%v err=%v", report, err)
	}
}

func TestDigestServiceEmptyRun(t *testing.T) {
	f := newServiceFixture()

	report, err := f.svc.Run(context.Background(), RunOptions{Date: runDate})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if len(report.Advisors) != 0 || len(f.mailer.sent) != 0 {
		t.Errorf("empty input must produce no digests")
	}
}

func TestDigestServiceHistory(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	for _, day := range []int{0, 3, 10} {
		_ = f.history.Put(ctx, &digest.Digest{AdvisorID: "A001", Date: runDate.AddDate(0, 0, -day)})
	}

	tests := []struct {
		name    string
		days    int
		want    int
		wantErr error
	}{
		{name: "today only", days: 1, want: 1},
		{name: "one week", days: 7, want: 2},
		{name: "zero days", days: 0, wantErr: ErrInvalidHistoryWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.History(ctx, "A001", tt.days)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("History() failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("expected %d digests, got %d", tt.want, len(got))
			}
		})
	}
}

func TestRecipientFor(t *testing.T) {
	known := &advisor.Advisor{ID: "A001", Name: "John Smith", Email: "js@firm.example", TelegramID: sql.NullInt64{}}
	if got := recipientFor("A001", known, nil); got.Name != "John Smith" || got.Email != "js@firm.example" {
		t.Errorf("unexpected recipient %+v", got)
	}
	if got := recipientFor("A009", nil, nil); got.Name != "A009" || got.Email != "" {
		t.Errorf("unexpected fallback recipient %+v", got)
	}
}
