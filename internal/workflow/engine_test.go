package workflow_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/supportflow/support-agent/internal/agent"
	"github.com/supportflow/support-agent/internal/email"
	"github.com/supportflow/support-agent/internal/erp"
	"github.com/supportflow/support-agent/internal/models"
	"github.com/supportflow/support-agent/internal/policy"
	"github.com/supportflow/support-agent/internal/tools"
	"github.com/supportflow/support-agent/internal/workflow"
)

// memStore is an in-memory workflow.Store that deep-copies checkpoints, so
// tests observe exactly what a durable store would have persisted.
type memStore struct {
	mu      sync.Mutex
	tickets map[string]*models.Ticket
	cps     map[string]*workflow.Checkpoint
	audits  []*models.AuditEvent
	retries map[string]bool

	saveErr error // when set, SaveCheckpoint fails
}

func newMemStore() *memStore {
	return &memStore{
		tickets: make(map[string]*models.Ticket),
		cps:     make(map[string]*workflow.Checkpoint),
		retries: make(map[string]bool),
	}
}

func cloneCheckpoint(cp *workflow.Checkpoint) *workflow.Checkpoint {
	data, err := json.Marshal(cp)
	if err != nil {
		panic(err)
	}
	var out workflow.Checkpoint
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return &out
}

func (s *memStore) CreateTicket(ctx context.Context, t *models.Ticket, cp *workflow.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[t.ID] = t
	s.cps[t.ID] = cloneCheckpoint(cp)
	return nil
}

func (s *memStore) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickets[id], nil
}

func (s *memStore) LoadCheckpoint(ctx context.Context, id string) (*workflow.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.cps[id]
	if !ok {
		return nil, nil
	}
	return cloneCheckpoint(cp), nil
}

func (s *memStore) SaveCheckpoint(ctx context.Context, id string, cp *workflow.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.cps[id] = cloneCheckpoint(cp)
	if t, ok := s.tickets[id]; ok {
		t.Status = string(cp.Status)
	}
	return nil
}

func (s *memStore) MarkNeedsRetry(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retries[id] = true
	return nil
}

func (s *memStore) AppendAudit(ctx context.Context, id string, event *models.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, event)
	return nil
}

func (s *memStore) checkpoint(id string) *workflow.Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCheckpoint(s.cps[id])
}

// scriptedClassifier answers each taxonomy with a fixed result, keyed off
// the label set it is asked about.
type scriptedClassifier struct {
	isTicket bool
	tier     string
	kind     string
	problems []string

	err error // when set, every call fails
}

func (c *scriptedClassifier) Classify(ctx context.Context, text, contextInfo string, labels []string) (workflow.ClassifyResult, error) {
	if c.err != nil {
		return workflow.ClassifyResult{}, c.err
	}
	switch labels[0] {
	case "support-ticket":
		if c.isTicket {
			return workflow.ClassifyResult{Label: "support-ticket", Reasoning: "customer reports an order problem"}, nil
		}
		return workflow.ClassifyResult{Label: "not-support-ticket", Reasoning: "unrelated outreach"}, nil
	case "L1":
		return workflow.ClassifyResult{Label: c.tier, Reasoning: "tier rubric applied"}, nil
	case "query":
		return workflow.ClassifyResult{Label: c.kind, Reasoning: "read from the message"}, nil
	}
	return workflow.ClassifyResult{}, fmt.Errorf("unexpected label set %v", labels)
}

func (c *scriptedClassifier) ClassifyMulti(ctx context.Context, text, contextInfo string, labels []string) (workflow.MultiClassifyResult, error) {
	if c.err != nil {
		return workflow.MultiClassifyResult{}, c.err
	}
	return workflow.MultiClassifyResult{Labels: c.problems, Reasoning: "problem taxonomy applied"}, nil
}

// queueResolver replays a fixed sequence of decisions.
type queueResolver struct {
	decisions []workflow.Decision
	calls     int
}

func (r *queueResolver) Decide(ctx context.Context, messages []agent.Message, task workflow.ResolutionTask) (workflow.Decision, error) {
	if r.calls >= len(r.decisions) {
		return workflow.Decision{}, fmt.Errorf("resolver queue exhausted after %d calls", r.calls)
	}
	d := r.decisions[r.calls]
	r.calls++
	return d, nil
}

func toolCall(name string, args map[string]interface{}) workflow.Decision {
	return workflow.Decision{
		Kind:     workflow.DecisionToolCall,
		ToolCall: &workflow.ToolCallRequest{Name: name, Args: args},
	}
}

func finalDecision(action, reason string) workflow.Decision {
	return workflow.Decision{
		Kind:  workflow.DecisionFinal,
		Final: &workflow.Resolution{ActionTaken: action, Reason: reason},
	}
}

type testEnv struct {
	engine *workflow.Engine
	store  *memStore
	erp    *erp.Service
}

func newTestEnv(t *testing.T, cls workflow.Classifier, res workflow.Resolver) *testEnv {
	t.Helper()

	logger := zap.NewNop()
	store := newMemStore()
	erpSvc := erp.NewService(logger)
	registry := tools.NewRegistry(erpSvc, logger)
	catalog := policy.DefaultCatalog()
	matcher := policy.NewMatcher(catalog, policy.DiceScorer{}, 0.4, logger)
	composer := email.NewComposer("")

	engine := workflow.NewEngine(
		store, cls, res, registry, matcher, erpSvc, composer,
		workflow.Config{MaxToolIterations: 5, PoliciesContext: policy.FormatContext(catalog)},
		logger,
	)

	return &testEnv{engine: engine, store: store, erp: erpSvc}
}

func TestNonTicketTerminatesImmediately(t *testing.T) {
	env := newTestEnv(t, &scriptedClassifier{isTicket: false}, &queueResolver{})

	id, outcome, err := env.engine.Start(context.Background(), "Partner with us for great SEO results!", workflow.Metadata{})
	require.NoError(t, err)

	assert.Equal(t, workflow.OutcomeTerminal, outcome.Status)
	assert.Equal(t, workflow.StateNonTicket, outcome.Terminal)

	st, err := env.engine.CurrentState(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, st.IsSupportTicket)
	assert.Equal(t, "Not a support ticket", st.ActionTaken)
	assert.Empty(t, st.EmailReply)
}

func TestQueryAnsweredWithoutTools(t *testing.T) {
	cls := &scriptedClassifier{isTicket: true, tier: "L1", kind: "query"}
	env := newTestEnv(t, cls, &queueResolver{})

	id, outcome, err := env.engine.Start(context.Background(),
		"Hi, what is your return policy for order ORD12345?", workflow.Metadata{})
	require.NoError(t, err)

	assert.Equal(t, workflow.OutcomeTerminal, outcome.Status)
	assert.Equal(t, workflow.StateResolved, outcome.Terminal)

	st, err := env.engine.CurrentState(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "query", st.QueryOrIssue)
	assert.Equal(t, "Policy Info", st.ActionTaken)
	assert.Contains(t, st.EmailReply, "Support policies")
	assert.True(t, st.HasOrderID)
	assert.Equal(t, "ORD12345", st.OrderID)
	assert.Empty(t, st.ProblemTypes, "queries skip problem classification")
}

func TestIssueResolvedWithApprovedResend(t *testing.T) {
	cls := &scriptedClassifier{isTicket: true, tier: "L2", kind: "issue", problems: []string{"damaged"}}
	res := &queueResolver{decisions: []workflow.Decision{
		toolCall("check_stock", map[string]interface{}{"product_id": "P1001"}),
		toolCall("resend_item", map[string]interface{}{"order_id": "ORD12345", "product_id": "P1001"}),
		finalDecision("Resend item", "Replacement shipped under the damaged item policy"),
	}}
	env := newTestEnv(t, cls, res)
	ctx := context.Background()

	id, outcome, err := env.engine.Start(ctx,
		"My earbuds from order ORD12345 arrived with a cracked case.", workflow.Metadata{})
	require.NoError(t, err)

	// The critical tool suspends the ticket before anything executes.
	require.Equal(t, workflow.OutcomeSuspended, outcome.Status)
	assert.Equal(t, workflow.InterruptResendApproval, outcome.Interrupt)

	cp := env.store.checkpoint(id)
	assert.Equal(t, workflow.StateAwaitingResendOK, cp.Status)
	require.NotNil(t, cp.Interrupt)
	require.NotNil(t, cp.Interrupt.ToolCall)
	assert.Equal(t, "resend_item", cp.Interrupt.ToolCall.Name)
	assert.NotNil(t, cp.Interrupt.Snapshot)
	assert.Equal(t, agent.ApprovalPending, cp.State.Approved)

	// The approval token is minted at suspension time and bound to the
	// pending call; the approved execution must present exactly this token.
	assert.NotEmpty(t, cp.Interrupt.ApprovalToken)
	assert.Equal(t, cp.Interrupt.ApprovalToken, cp.Interrupt.ToolCall.ApprovalToken)

	stockBefore := env.erp.GetProduct("P1001").Stock

	outcome, err = env.engine.Resume(ctx, id, workflow.InterruptResponse{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, workflow.OutcomeTerminal, outcome.Status)
	assert.Equal(t, workflow.StateResolved, outcome.Terminal)

	st, err := env.engine.CurrentState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, agent.ApprovalApproved, st.Approved)
	assert.Equal(t, "Resend item", st.ActionTaken)
	assert.NotEmpty(t, st.EmailReply)

	_, executed := st.ExecutedAction("resend_item")
	assert.True(t, executed)
	assert.Equal(t, stockBefore-1, env.erp.GetProduct("P1001").Stock)
	assert.NotEmpty(t, st.ReasoningFor("resolve"))

	// The tool result is appended and correlated to the request.
	pending := st.PendingToolRequest()
	assert.Nil(t, pending, "every tool request must have a result")
}

func TestRefundRejectionTerminatesWithoutEmail(t *testing.T) {
	cls := &scriptedClassifier{isTicket: true, tier: "L2", kind: "issue", problems: []string{"damaged"}}
	res := &queueResolver{decisions: []workflow.Decision{
		toolCall("refund_customer", map[string]interface{}{"order_id": "ORD12345"}),
	}}
	env := newTestEnv(t, cls, res)
	ctx := context.Background()

	id, outcome, err := env.engine.Start(ctx,
		"Order ORD12345 arrived shattered, I want my money back.", workflow.Metadata{})
	require.NoError(t, err)
	require.Equal(t, workflow.OutcomeSuspended, outcome.Status)
	assert.Equal(t, workflow.InterruptRefundApproval, outcome.Interrupt)

	outcome, err = env.engine.Resume(ctx, id, workflow.InterruptResponse{Approve: false, Comment: "amount too high"})
	require.NoError(t, err)
	assert.Equal(t, workflow.OutcomeTerminal, outcome.Status)
	assert.Equal(t, workflow.StateRejected, outcome.Terminal)

	st, err := env.engine.CurrentState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Action Denied", st.ActionTaken)
	assert.Empty(t, st.EmailReply, "no email goes out for a denied action")
	assert.True(t, st.RequiresHumanReview)
	assert.Equal(t, agent.ApprovalRejected, st.Approved)
	assert.NotEmpty(t, st.ReasoningFor("resolve"))

	// The refund never committed.
	assert.Equal(t, erp.OrderStatusDelivered, env.erp.GetOrder("ORD12345").Status)
}

func TestCriticalToolFailureKeepsSuspension(t *testing.T) {
	cls := &scriptedClassifier{isTicket: true, tier: "L2", kind: "issue", problems: []string{"missing"}}
	// P1003 is out of stock, so the approved resend fails.
	res := &queueResolver{decisions: []workflow.Decision{
		toolCall("resend_item", map[string]interface{}{"order_id": "ORD67890", "product_id": "P1003"}),
	}}
	env := newTestEnv(t, cls, res)
	ctx := context.Background()

	id, outcome, err := env.engine.Start(ctx,
		"The laptop stand from order ORD67890 was missing from the box.", workflow.Metadata{})
	require.NoError(t, err)
	require.Equal(t, workflow.OutcomeSuspended, outcome.Status)

	outcome, err = env.engine.Resume(ctx, id, workflow.InterruptResponse{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, workflow.OutcomeFailed, outcome.Status)
	assert.Equal(t, workflow.FailureTool, outcome.Failure)

	// The interrupt is not consumed by a failed execution; the ticket can
	// be answered again.
	cp := env.store.checkpoint(id)
	assert.Equal(t, workflow.StateAwaitingResendOK, cp.Status)
	require.NotNil(t, cp.Interrupt)

	outcome, err = env.engine.Resume(ctx, id, workflow.InterruptResponse{Approve: false})
	require.NoError(t, err)
	assert.Equal(t, workflow.StateRejected, outcome.Terminal)
}

func TestTierL3RequiresApproval(t *testing.T) {
	cls := &scriptedClassifier{isTicket: true, tier: "L3", kind: "query"}
	env := newTestEnv(t, cls, &queueResolver{})
	ctx := context.Background()

	id, outcome, err := env.engine.Start(ctx,
		"Order ORD12345: refund me or my lawyer will be in touch.", workflow.Metadata{})
	require.NoError(t, err)

	require.Equal(t, workflow.OutcomeSuspended, outcome.Status)
	assert.Equal(t, workflow.InterruptTierApproval, outcome.Interrupt)

	cp := env.store.checkpoint(id)
	require.NotNil(t, cp.Interrupt)
	assert.Nil(t, cp.Interrupt.ToolCall)
	assert.Equal(t, agent.ApprovalPending, cp.State.Approved)

	outcome, err = env.engine.Resume(ctx, id, workflow.InterruptResponse{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, workflow.OutcomeTerminal, outcome.Status)
	assert.Equal(t, workflow.StateResolved, outcome.Terminal)

	st, err := env.engine.CurrentState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, agent.TierL3, st.Tier)
	assert.Equal(t, agent.ApprovalApproved, st.Approved)
}

func TestTierL3RejectionTerminates(t *testing.T) {
	cls := &scriptedClassifier{isTicket: true, tier: "L3", kind: "issue"}
	env := newTestEnv(t, cls, &queueResolver{})
	ctx := context.Background()

	id, outcome, err := env.engine.Start(ctx,
		"Order ORD12345 is a disaster, this is my final warning.", workflow.Metadata{})
	require.NoError(t, err)
	require.Equal(t, workflow.OutcomeSuspended, outcome.Status)

	outcome, err = env.engine.Resume(ctx, id, workflow.InterruptResponse{Approve: false})
	require.NoError(t, err)
	assert.Equal(t, workflow.StateRejected, outcome.Terminal)

	st, err := env.engine.CurrentState(ctx, id)
	require.NoError(t, err)
	assert.True(t, st.RequiresHumanReview)
	assert.Equal(t, agent.ApprovalRejected, st.Approved)
}

func TestMissingOrderIDAsksOnce(t *testing.T) {
	cls := &scriptedClassifier{isTicket: true, tier: "L1", kind: "query"}
	env := newTestEnv(t, cls, &queueResolver{})
	ctx := context.Background()

	id, outcome, err := env.engine.Start(ctx,
		"My package arrived damaged, please help.", workflow.Metadata{})
	require.NoError(t, err)

	require.Equal(t, workflow.OutcomeAwaitingClarification, outcome.Status)
	cp := env.store.checkpoint(id)
	assert.Equal(t, workflow.StateAwaitingCustomer, cp.Status)
	assert.Equal(t, workflow.StateValidating, cp.ResumeTo)

	// Resuming without customer text is rejected outright.
	_, err = env.engine.Resume(ctx, id, workflow.InterruptResponse{})
	assert.ErrorIs(t, err, workflow.ErrClarificationRequired)

	outcome, err = env.engine.Resume(ctx, id, workflow.InterruptResponse{Message: "Sure, it is ORD12345"})
	require.NoError(t, err)
	assert.Equal(t, workflow.OutcomeTerminal, outcome.Status)

	st, err := env.engine.CurrentState(ctx, id)
	require.NoError(t, err)
	assert.True(t, st.HasOrderID)
	assert.Equal(t, "ORD12345", st.OrderID)
	assert.Equal(t, "Sure, it is ORD12345", st.LastHumanMessage())
}

func TestUnresolvableOrderIDProceedsWithoutOrder(t *testing.T) {
	cls := &scriptedClassifier{isTicket: true, tier: "L1", kind: "query"}
	env := newTestEnv(t, cls, &queueResolver{})
	ctx := context.Background()

	id, outcome, err := env.engine.Start(ctx, "Where is my stuff?", workflow.Metadata{})
	require.NoError(t, err)
	require.Equal(t, workflow.OutcomeAwaitingClarification, outcome.Status)

	// The reply still has no usable order id; the workflow continues
	// instead of asking forever.
	outcome, err = env.engine.Resume(ctx, id, workflow.InterruptResponse{Message: "I lost the confirmation email"})
	require.NoError(t, err)
	assert.Equal(t, workflow.OutcomeTerminal, outcome.Status)

	st, err := env.engine.CurrentState(ctx, id)
	require.NoError(t, err)
	assert.False(t, st.HasOrderID)
}

func TestNoPolicyMatchEscalates(t *testing.T) {
	cls := &scriptedClassifier{isTicket: true, tier: "L2", kind: "issue", problems: []string{"other"}}
	env := newTestEnv(t, cls, &queueResolver{})
	ctx := context.Background()

	id, outcome, err := env.engine.Start(ctx,
		"Order ORD12345: the box sings to me at night.", workflow.Metadata{})
	require.NoError(t, err)

	assert.Equal(t, workflow.OutcomeTerminal, outcome.Status)
	assert.Equal(t, workflow.StateEscalated, outcome.Terminal)

	st, err := env.engine.CurrentState(ctx, id)
	require.NoError(t, err)
	assert.True(t, st.RequiresHumanReview)
	assert.Nil(t, st.Policy)
}

func TestClassifierFailureMarksRetryAndKeepsCheckpoint(t *testing.T) {
	cls := &scriptedClassifier{err: fmt.Errorf("rate limited")}
	env := newTestEnv(t, cls, &queueResolver{})
	ctx := context.Background()

	id, outcome, err := env.engine.Start(ctx, "Order ORD12345 arrived broken.", workflow.Metadata{})
	require.NoError(t, err)

	assert.Equal(t, workflow.OutcomeFailed, outcome.Status)
	assert.Equal(t, workflow.FailureClassification, outcome.Failure)
	assert.True(t, env.store.retries[id], "ticket must be flagged for retry")

	// The durable checkpoint stays at the failed stage boundary.
	cp := env.store.checkpoint(id)
	assert.Equal(t, workflow.StateValidating, cp.Status)

	// Once the classifier recovers, Retry finishes the ticket.
	cls.err = nil
	cls.isTicket = true
	cls.tier = "L1"
	cls.kind = "query"

	outcome, err = env.engine.Retry(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, workflow.OutcomeTerminal, outcome.Status)
	assert.Equal(t, workflow.StateResolved, outcome.Terminal)
}

func TestResolveClarificationPause(t *testing.T) {
	cls := &scriptedClassifier{isTicket: true, tier: "L2", kind: "issue", problems: []string{"missing"}}
	res := &queueResolver{decisions: []workflow.Decision{
		{Kind: workflow.DecisionClarify, Question: "Which item was missing from the box?"},
		finalDecision("Refund issued", "Customer confirmed the hub was missing"),
	}}
	env := newTestEnv(t, cls, res)
	ctx := context.Background()

	id, outcome, err := env.engine.Start(ctx,
		"Something is missing from order ORD67890.", workflow.Metadata{})
	require.NoError(t, err)

	require.Equal(t, workflow.OutcomeAwaitingClarification, outcome.Status)
	cp := env.store.checkpoint(id)
	assert.Equal(t, workflow.StateResolving, cp.ResumeTo)

	outcome, err = env.engine.Resume(ctx, id, workflow.InterruptResponse{Message: "The USB-C hub never arrived"})
	require.NoError(t, err)
	assert.Equal(t, workflow.OutcomeTerminal, outcome.Status)
	assert.Equal(t, workflow.StateResolved, outcome.Terminal)

	st, err := env.engine.CurrentState(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, st.Messages[len(st.Messages)-2].Content, "USB-C hub")
}

func TestToolBudgetExhaustionEscalates(t *testing.T) {
	cls := &scriptedClassifier{isTicket: true, tier: "L2", kind: "issue", problems: []string{"damaged"}}

	var loops []workflow.Decision
	for i := 0; i < 10; i++ {
		loops = append(loops, toolCall("check_stock", map[string]interface{}{"product_id": "P1001"}))
	}
	env := newTestEnv(t, cls, &queueResolver{decisions: loops})
	ctx := context.Background()

	id, outcome, err := env.engine.Start(ctx,
		"Order ORD12345 arrived damaged.", workflow.Metadata{})
	require.NoError(t, err)

	assert.Equal(t, workflow.OutcomeTerminal, outcome.Status)
	assert.Equal(t, workflow.StateEscalated, outcome.Terminal)

	st, err := env.engine.CurrentState(ctx, id)
	require.NoError(t, err)
	assert.True(t, st.RequiresHumanReview)
	assert.NotEmpty(t, st.ReasoningFor("resolve"))
}

func TestDuplicateCriticalToolIsNotReexecuted(t *testing.T) {
	cls := &scriptedClassifier{isTicket: true, tier: "L2", kind: "issue", problems: []string{"damaged"}}
	res := &queueResolver{decisions: []workflow.Decision{
		toolCall("resend_item", map[string]interface{}{"order_id": "ORD12345", "product_id": "P1001"}),
		// After the approved execution the resolver asks again; the
		// engine must refuse without a second interrupt.
		toolCall("resend_item", map[string]interface{}{"order_id": "ORD12345", "product_id": "P1001"}),
		finalDecision("Resend item", "Replacement already on its way"),
	}}
	env := newTestEnv(t, cls, res)
	ctx := context.Background()

	id, outcome, err := env.engine.Start(ctx,
		"My order ORD12345 arrived crushed.", workflow.Metadata{})
	require.NoError(t, err)
	require.Equal(t, workflow.OutcomeSuspended, outcome.Status)

	stockBefore := env.erp.GetProduct("P1001").Stock

	outcome, err = env.engine.Resume(ctx, id, workflow.InterruptResponse{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, workflow.OutcomeTerminal, outcome.Status)
	assert.Equal(t, workflow.StateResolved, outcome.Terminal)

	// Exactly one resend happened.
	assert.Equal(t, stockBefore-1, env.erp.GetProduct("P1001").Stock)

	// The refused duplicate is recorded as a request/result pair, so every
	// tool result in the transcript correlates to a request that precedes it.
	st, err := env.engine.CurrentState(ctx, id)
	require.NoError(t, err)
	requested := make(map[string]bool)
	for _, m := range st.Messages {
		if m.IsToolRequest() {
			requested[m.ToolCallID] = true
		}
		if m.Kind == agent.MessageToolResult {
			assert.True(t, requested[m.ToolCallID],
				"tool result for call %s has no preceding request", m.ToolCallID)
		}
	}
	assert.Nil(t, st.PendingToolRequest())
}

func TestResumeErrors(t *testing.T) {
	cls := &scriptedClassifier{isTicket: true, tier: "L1", kind: "query"}
	env := newTestEnv(t, cls, &queueResolver{})
	ctx := context.Background()

	t.Run("unknown ticket", func(t *testing.T) {
		_, err := env.engine.Resume(ctx, "no-such-ticket", workflow.InterruptResponse{Approve: true})
		assert.ErrorIs(t, err, workflow.ErrTicketNotFound)
	})

	t.Run("terminal ticket is not suspended", func(t *testing.T) {
		id, outcome, err := env.engine.Start(ctx, "Question about ORD12345 policies", workflow.Metadata{})
		require.NoError(t, err)
		require.Equal(t, workflow.OutcomeTerminal, outcome.Status)

		_, err = env.engine.Resume(ctx, id, workflow.InterruptResponse{Approve: true})
		assert.ErrorIs(t, err, workflow.ErrNotSuspended)
	})
}

func TestStoreFailureAborts(t *testing.T) {
	cls := &scriptedClassifier{isTicket: true, tier: "L1", kind: "query"}
	env := newTestEnv(t, cls, &queueResolver{})
	env.store.saveErr = fmt.Errorf("disk full")

	_, outcome, err := env.engine.Start(context.Background(),
		"Question about ORD12345", workflow.Metadata{})
	require.NoError(t, err)

	assert.Equal(t, workflow.OutcomeFailed, outcome.Status)
	assert.Equal(t, workflow.FailureStore, outcome.Failure)
}

func TestAuditTrailRecordsInterrupts(t *testing.T) {
	cls := &scriptedClassifier{isTicket: true, tier: "L3", kind: "query"}
	env := newTestEnv(t, cls, &queueResolver{})
	ctx := context.Background()

	_, outcome, err := env.engine.Start(ctx, "ORD12345 issue, escalate me", workflow.Metadata{})
	require.NoError(t, err)
	require.Equal(t, workflow.OutcomeSuspended, outcome.Status)

	var kinds []string
	for _, e := range env.store.audits {
		kinds = append(kinds, e.Kind)
	}
	assert.Contains(t, kinds, models.AuditInterrupt)
}
