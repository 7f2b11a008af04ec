package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"financial_digest/internal/domain/advisor"
	"financial_digest/internal/domain/digest"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type fakeSource struct {
	records []map[string]any
	err     error
}

func (f *fakeSource) Fetch(_ context.Context, _ time.Time) ([]map[string]any, error) {
	return f.records, f.err
}

type fakeAdvisorRepo struct {
	mu       sync.Mutex
	advisors map[string]*advisor.Advisor
	err      error
}

func newFakeAdvisorRepo(as ...*advisor.Advisor) *fakeAdvisorRepo {
	r := &fakeAdvisorRepo{advisors: map[string]*advisor.Advisor{}}
	for _, a := range as {
		r.advisors[a.ID] = a
	}
	return r
}

func (r *fakeAdvisorRepo) Create(_ context.Context, a *advisor.Advisor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.advisors {
		if existing.Email == a.Email {
			return advisor.ErrDuplicateEmail
		}
	}
	cp := *a
	r.advisors[a.ID] = &cp
	return nil
}

func (r *fakeAdvisorRepo) GetByID(_ context.Context, id string) (*advisor.Advisor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.advisors[id]
	if !ok {
		return nil, advisor.ErrAdvisorNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAdvisorRepo) GetByIDs(_ context.Context, ids []string) (map[string]*advisor.Advisor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := map[string]*advisor.Advisor{}
	for _, id := range ids {
		if a, ok := r.advisors[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func (r *fakeAdvisorRepo) Update(_ context.Context, a *advisor.Advisor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.advisors[a.ID]; !ok {
		return advisor.ErrAdvisorNotFound
	}
	cp := *a
	r.advisors[a.ID] = &cp
	return nil
}

func (r *fakeAdvisorRepo) ListActive(ctx context.Context) ([]*advisor.Advisor, error) {
	all, _ := r.ListAll(ctx)
	var out []*advisor.Advisor
	for _, a := range all {
		if a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAdvisorRepo) ListAll(_ context.Context) ([]*advisor.Advisor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*advisor.Advisor, 0, len(r.advisors))
	for _, a := range r.advisors {
		out = append(out, a)
	}
	return out, nil
}

type historyKey struct {
	advisorID string
	date      string
}

type fakeHistory struct {
	mu      sync.Mutex
	digests map[historyKey]*digest.Digest
	putErr  error
	lastTo  time.Time
	lastFr  time.Time
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{digests: map[historyKey]*digest.Digest{}}
}

func (h *fakeHistory) Get(_ context.Context, advisorID string, date time.Time) (*digest.Digest, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	d, ok := h.digests[historyKey{advisorID, digest.DateKey(date)}]
	if !ok {
		return nil, digest.ErrDigestNotFound
	}
	return d, nil
}

func (h *fakeHistory) Put(_ context.Context, d *digest.Digest) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.putErr != nil {
		return h.putErr
	}
	h.digests[historyKey{d.AdvisorID, digest.DateKey(d.Date)}] = d
	return nil
}

func (h *fakeHistory) ListByAdvisor(_ context.Context, advisorID string, from, to time.Time) ([]*digest.Digest, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastFr, h.lastTo = from, to
	var out []*digest.Digest
	for k, d := range h.digests {
		if k.advisorID == advisorID && !d.Date.Before(from) && !d.Date.After(to) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (h *fakeHistory) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.digests)
}

type fakeInsights struct {
	mu     sync.Mutex
	seen   []map[string]any
	err    error
	result digest.Enrichment
}

func (f *fakeInsights) Generate(_ context.Context, masked map[string]any) (digest.Enrichment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, masked)
	if f.err != nil {
		return digest.Enrichment{}, f.err
	}
	return f.result, nil
}

type fakeRenderer struct{}

func (fakeRenderer) Render(d *digest.Digest) (string, string, string, error) {
	return "Digest " + d.AdvisorID, "<p>" + d.ExecutiveSummary + "</p>", d.ExecutiveSummary, nil
}

type sentMail struct {
	to, subject, html, text string
}

type fakeMailer struct {
	mu     sync.Mutex
	sent   []sentMail
	failTo map[string]bool
}

func (m *fakeMailer) Send(_ context.Context, to, subject, html, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTo[to] {
		return errors.New("smtp: 550 mailbox unavailable")
	}
	m.sent = append(m.sent, sentMail{to, subject, html, text})
	return nil
}

type fakeReporter struct {
	reports []*RunReport
}

func (f *fakeReporter) Report(_ context.Context, r *RunReport) error {
	f.reports = append(f.reports, r)
	return nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	chats []int64
	err   error
}

func (f *fakeNotifier) NotifyUrgent(_ context.Context, chatID int64, _ *digest.Digest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.chats = append(f.chats, chatID)
	return nil
}
