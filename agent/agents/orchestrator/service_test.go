package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	contractx "github.com/napat-k/Aftersale-Support-Agent/agent/contract"
	statex "github.com/napat-k/Aftersale-Support-Agent/agent/state"
	toolx "github.com/napat-k/Aftersale-Support-Agent/agent/tool"
	verifyx "github.com/napat-k/Aftersale-Support-Agent/agent/verify"
	crmx "github.com/napat-k/Aftersale-Support-Agent/pkg/crm"
)

// keywordClassifier stands in for the LLM classifier with deterministic
// keyword rules.
type keywordClassifier struct{}

func (keywordClassifier) Classify(_ context.Context, text string) (contractx.Intent, error) {
	switch {
	case strings.Contains(text, "坏了") || strings.Contains(text, "repair"):
		return contractx.IntentRepairRequest, nil
	case strings.Contains(text, "保修期多久") || strings.Contains(text, "policy"):
		return contractx.IntentGeneralQuestion, nil
	case strings.Contains(text, "warranty"):
		return contractx.IntentWarrantyInquiry, nil
	case strings.Contains(text, "purchases"):
		return contractx.IntentPurchaseHistory, nil
	case strings.Contains(text, "邮箱") || strings.Contains(text, "email is"):
		return contractx.IntentIdentityClaim, nil
	default:
		return contractx.IntentUnknown, nil
	}
}

type fakeKnowledge struct {
	passages []contractx.Passage
	err      error
}

func (f fakeKnowledge) Search(context.Context, string) ([]contractx.Passage, error) {
	return f.passages, f.err
}

type fakeMemoryStore struct {
	mu    sync.Mutex
	facts map[string][]contractx.MemoryFact
}

func newFakeMemoryStore() *fakeMemoryStore {
	return &fakeMemoryStore{facts: map[string][]contractx.MemoryFact{}}
}

func (f *fakeMemoryStore) Read(_ context.Context, scope string) ([]contractx.MemoryFact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]contractx.MemoryFact(nil), f.facts[scope]...), nil
}

func (f *fakeMemoryStore) Write(_ context.Context, scope string, fact contractx.MemoryFact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.facts[scope] = append(f.facts[scope], fact)
	return nil
}

type captureNotifier struct {
	mu     sync.Mutex
	events []contractx.Escalation
}

func (c *captureNotifier) Notify(_ context.Context, e contractx.Escalation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *captureNotifier) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

type testHarness struct {
	agent    *Orchestrator
	store    *statex.InMemoryStore
	memory   *fakeMemoryStore
	notifier *captureNotifier
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	store := statex.NewInMemoryStore()
	sessions, err := statex.NewManager(store)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	crm := crmx.NewInMemory(crmx.WithInMemoryNow(func() time.Time {
		return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	}))
	verifier, err := verifyx.New(crm)
	if err != nil {
		t.Fatalf("verify.New() error = %v", err)
	}

	memory := newFakeMemoryStore()
	gateway, err := toolx.NewGateway(toolx.Collaborators{
		CRM: crm,
		Knowledge: fakeKnowledge{passages: []contractx.Passage{{
			ID:      "warranty_policy",
			Content: "Standard warranty plans run 12 to 24 months from the purchase date.",
			Score:   0.92,
		}}},
		Memory: memory,
	})
	if err != nil {
		t.Fatalf("NewGateway() error = %v", err)
	}

	notifier := &captureNotifier{}
	agent, err := New(sessions, keywordClassifier{}, gateway, verifier, memory, notifier, Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return &testHarness{agent: agent, store: store, memory: memory, notifier: notifier}
}

func (h *testHarness) session(t *testing.T, sessionID string) *statex.Session {
	t.Helper()
	sess, err := h.store.Load(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Load(%s) error = %v", sessionID, err)
	}
	return sess
}

func TestAccountBoundQuestionRequiresVerificationFirst(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t)
	reply, err := h.agent.HandleTurn(context.Background(), "s1", "CUST001", "我之前买的一个电视坏了")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}

	if !strings.Contains(reply.Text, "email") {
		t.Fatalf("reply = %q, want a request for the registered email", reply.Text)
	}
	if !reply.RequiresFollowup {
		t.Fatal("RequiresFollowup = false, want true while verification is pending")
	}
	if strings.Contains(reply.Text, "智能电视") || strings.Contains(reply.Text, "SN2024") {
		t.Fatalf("reply = %q leaks CRM data before verification", reply.Text)
	}

	sess := h.session(t, "s1")
	if sess.VerificationState != statex.StatePendingEmail {
		t.Fatalf("state = %q, want %q", sess.VerificationState, statex.StatePendingEmail)
	}
	if sess.PendingIntent != contractx.IntentRepairRequest {
		t.Fatalf("PendingIntent = %q, want repair_request", sess.PendingIntent)
	}
	if len(sess.Turns) != 2 {
		t.Fatalf("len(Turns) = %d, want user + agent", len(sess.Turns))
	}
}

func TestCorrectEmailVerifiesAndAnswersSameTurn(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t)
	ctx := context.Background()

	if _, err := h.agent.HandleTurn(ctx, "s1", "CUST001", "我之前买的一个电视坏了"); err != nil {
		t.Fatalf("turn 1 error = %v", err)
	}
	reply, err := h.agent.HandleTurn(ctx, "s1", "CUST001", "我的邮箱为 zhang.ming@example.com")
	if err != nil {
		t.Fatalf("turn 2 error = %v", err)
	}

	if !strings.Contains(reply.Text, "identity is confirmed") {
		t.Fatalf("reply = %q, want the verification confirmation", reply.Text)
	}
	if !strings.Contains(reply.Text, "智能电视 65寸") {
		t.Fatalf("reply = %q, want the parked warranty answer in the same turn", reply.Text)
	}

	sess := h.session(t, "s1")
	if !sess.Verified() {
		t.Fatalf("state = %q, want VERIFIED", sess.VerificationState)
	}
	if sess.VerifiedCustomerID != "CUST001" {
		t.Fatalf("VerifiedCustomerID = %q, want CUST001", sess.VerifiedCustomerID)
	}
	if sess.PendingIntent != "" {
		t.Fatalf("PendingIntent = %q, want cleared", sess.PendingIntent)
	}

	facts, err := h.memory.Read(ctx, contractx.UserScope("CUST001"))
	if err != nil {
		t.Fatalf("memory Read() error = %v", err)
	}
	found := false
	for _, f := range facts {
		if f.Key == "confirmed_email" && f.Value == "zhang.ming@example.com" {
			found = true
		}
	}
	if !found {
		t.Fatalf("facts = %+v, want the confirmed email recorded", facts)
	}
}

func TestResendingEmailAfterVerificationStaysVerified(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t)
	ctx := context.Background()

	if _, err := h.agent.HandleTurn(ctx, "s1", "CUST001", "我之前买的一个电视坏了"); err != nil {
		t.Fatalf("turn 1 error = %v", err)
	}
	if _, err := h.agent.HandleTurn(ctx, "s1", "CUST001", "我的邮箱为 zhang.ming@example.com"); err != nil {
		t.Fatalf("turn 2 error = %v", err)
	}

	reply, err := h.agent.HandleTurn(ctx, "s1", "CUST001", "我的邮箱为 zhang.ming@example.com")
	if err != nil {
		t.Fatalf("turn 3 error = %v", err)
	}
	if !strings.Contains(reply.Text, "identity is confirmed") {
		t.Fatalf("reply = %q, want an acknowledgement of the confirmed identity", reply.Text)
	}

	sess := h.session(t, "s1")
	if !sess.Verified() {
		t.Fatalf("state = %q, want still VERIFIED", sess.VerificationState)
	}
	if sess.VerifiedCustomerID != "CUST001" {
		t.Fatalf("VerifiedCustomerID = %q, want CUST001", sess.VerifiedCustomerID)
	}
}

func TestRepeatedMismatchesEscalate(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t)
	ctx := context.Background()

	if _, err := h.agent.HandleTurn(ctx, "s1", "CUST001", "我之前买的一个电视坏了"); err != nil {
		t.Fatalf("turn 1 error = %v", err)
	}

	var reply contractx.Reply
	var err error
	for i := 0; i < statex.MaxVerificationAttempts; i++ {
		reply, err = h.agent.HandleTurn(ctx, "s1", "CUST001", "my email is wrong@example.com")
		if err != nil {
			t.Fatalf("mismatch turn %d error = %v", i+1, err)
		}
	}

	if !strings.Contains(reply.Text, "human support agent") {
		t.Fatalf("reply = %q, want the escalation notice", reply.Text)
	}

	sess := h.session(t, "s1")
	if !sess.Escalated() {
		t.Fatalf("state = %q, want ESCALATED", sess.VerificationState)
	}
	if h.notifier.count() != 1 {
		t.Fatalf("notifier called %d times, want 1", h.notifier.count())
	}

	// Later turns stay escalated and do not re-notify.
	reply, err = h.agent.HandleTurn(ctx, "s1", "CUST001", "hello?")
	if err != nil {
		t.Fatalf("post-escalation turn error = %v", err)
	}
	if !strings.Contains(reply.Text, "human support agent") {
		t.Fatalf("reply = %q, want the escalation notice again", reply.Text)
	}
	if h.notifier.count() != 1 {
		t.Fatalf("notifier re-called after escalation: %d", h.notifier.count())
	}
}

func TestKnowledgeQuestionSkipsVerification(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t)
	reply, err := h.agent.HandleTurn(context.Background(), "s1", "CUST001", "保修期多久")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}

	if !strings.Contains(reply.Text, "12 to 24 months") {
		t.Fatalf("reply = %q, want the policy passage", reply.Text)
	}

	sess := h.session(t, "s1")
	if sess.VerificationState != statex.StateUnverified {
		t.Fatalf("state = %q, want %q for a knowledge-only question", sess.VerificationState, statex.StateUnverified)
	}
}

func TestUnknownIntentClarifies(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t)
	reply, err := h.agent.HandleTurn(context.Background(), "s1", "CUST001", "asdf qwerty")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if !reply.RequiresFollowup {
		t.Fatal("RequiresFollowup = false, want a clarifying question")
	}
}

func TestHandleTurnValidatesInput(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t)
	ctx := context.Background()

	if _, err := h.agent.HandleTurn(ctx, "", "CUST001", "hi"); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("empty session error = %v, want ErrInvalidSession", err)
	}
	if _, err := h.agent.HandleTurn(ctx, "s1", "", "hi"); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("empty user error = %v, want ErrInvalidUser", err)
	}
	if _, err := h.agent.HandleTurn(ctx, "s1", "CUST001", "   "); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("empty text error = %v, want ErrInvalidMessage", err)
	}
}

func TestSessionStoreOutageDegradesStatelessly(t *testing.T) {
	t.Parallel()

	sessions, err := statex.NewManager(failingStore{})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	crm := crmx.NewInMemory()
	verifier, err := verifyx.New(crm)
	if err != nil {
		t.Fatalf("verify.New() error = %v", err)
	}
	gateway, err := toolx.NewGateway(toolx.Collaborators{
		CRM:       crm,
		Knowledge: fakeKnowledge{},
		Memory:    newFakeMemoryStore(),
	})
	if err != nil {
		t.Fatalf("NewGateway() error = %v", err)
	}

	agent, err := New(sessions, keywordClassifier{}, gateway, verifier, nil, nil, Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	reply, err := agent.HandleTurn(context.Background(), "s1", "CUST001", "保修期多久")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if !strings.Contains(reply.Text, "can't access your conversation") {
		t.Fatalf("reply = %q, want the stateless apology", reply.Text)
	}
}

func TestTurnDeadlineExpiryReturnsFallbackReply(t *testing.T) {
	t.Parallel()

	store := statex.NewInMemoryStore()
	sessions, err := statex.NewManager(store)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	crm := crmx.NewInMemory()
	verifier, err := verifyx.New(crm)
	if err != nil {
		t.Fatalf("verify.New() error = %v", err)
	}
	gateway, err := toolx.NewGateway(toolx.Collaborators{
		CRM:       crm,
		Knowledge: stalledKnowledge{},
		Memory:    newFakeMemoryStore(),
	})
	if err != nil {
		t.Fatalf("NewGateway() error = %v", err)
	}

	agent, err := New(sessions, keywordClassifier{}, gateway, verifier, nil, nil, Config{
		TurnDeadline: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	reply, err := agent.HandleTurn(context.Background(), "s1", "CUST001", "保修期多久")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if !strings.Contains(reply.Text, "took too long") {
		t.Fatalf("reply = %q, want the deadline fallback", reply.Text)
	}
}

// stalledKnowledge blocks until the caller's context gives out.
type stalledKnowledge struct{}

func (stalledKnowledge) Search(ctx context.Context, _ string) ([]contractx.Passage, error) {
	select {
	case <-time.After(5 * time.Second):
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type failingStore struct{}

func (failingStore) Load(context.Context, string) (*statex.Session, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Save(context.Context, *statex.Session) error {
	return errors.New("connection refused")
}

func (failingStore) Delete(context.Context, string) error { return nil }
