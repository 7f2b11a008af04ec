package telegram

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"financial_digest/internal/app"
	"financial_digest/internal/domain/advisor"
	"financial_digest/internal/domain/digest"
)

const testAdminID int64 = 1001

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// fakeContext overrides the parts of telebot.Context the handlers use.
// Calling anything else panics on the nil embedded interface.
type fakeContext struct {
	telebot.Context
	sender *telebot.User
	args   []string
	sent   []string
}

func newFakeContext(senderID int64, args ...string) *fakeContext {
	return &fakeContext{sender: &telebot.User{ID: senderID, FirstName: "Dana"}, args: args}
}

func (c *fakeContext) Sender() *telebot.User { return c.sender }
func (c *fakeContext) Args() []string        { return c.args }

func (c *fakeContext) Send(what interface{}, _ ...interface{}) error {
	if s, ok := what.(string); ok {
		c.sent = append(c.sent, s)
	}
	return nil
}

func (c *fakeContext) lastSent() string {
	if len(c.sent) == 0 {
		return ""
	}
	return c.sent[len(c.sent)-1]
}

type fakeAdvisorRepo struct {
	mu       sync.Mutex
	advisors map[string]*advisor.Advisor
}

func newFakeAdvisorRepo(advisors ...*advisor.Advisor) *fakeAdvisorRepo {
	r := &fakeAdvisorRepo{advisors: map[string]*advisor.Advisor{}}
	for _, a := range advisors {
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
	out := map[string]*advisor.Advisor{}
	for _, id := range ids {
		if a, ok := r.advisors[id]; ok {
			cp := *a
			out[id] = &cp
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
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeOperator struct {
	runs      []app.RunOptions
	report    *app.RunReport
	runErr    error
	history   []*digest.Digest
	histErr   error
	histCalls []int
}

func (f *fakeOperator) Run(_ context.Context, opts app.RunOptions) (*app.RunReport, error) {
	f.runs = append(f.runs, opts)
	if f.runErr != nil {
		return nil, f.runErr
	}
	return f.report, nil
}

func (f *fakeOperator) History(_ context.Context, _ string, days int) ([]*digest.Digest, error) {
	f.histCalls = append(f.histCalls, days)
	if f.histErr != nil {
		return nil, f.histErr
	}
	return f.history, nil
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeClient struct {
	sent []sentMessage
	err  error
}

func (f *fakeClient) SendMessage(chatID int64, text string, _ *telebot.SendOptions) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return nil
}
