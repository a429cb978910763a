package workflow

import (
	"context"
	"time"

	"github.com/supportflow/support-agent/internal/agent"
	"github.com/supportflow/support-agent/internal/models"
)

// ClassifyResult is a single-label classification with its reasoning.
type ClassifyResult struct {
	Label     string
	Reasoning string
}

// MultiClassifyResult is a multi-label classification with its reasoning.
type MultiClassifyResult struct {
	Labels    []string
	Reasoning string
}

// Classifier is the Classification Service contract: the returned label(s)
// must come from the supplied label set and the reasoning must be non-empty.
type Classifier interface {
	Classify(ctx context.Context, text, contextInfo string, labels []string) (ClassifyResult, error)
	ClassifyMulti(ctx context.Context, text, contextInfo string, labels []string) (MultiClassifyResult, error)
}

// ToolCallRequest identifies one tool invocation within a ticket. For
// critical tools ApprovalToken is minted when the call suspends for review;
// it never appears on resolver-issued requests.
type ToolCallRequest struct {
	ID            string                 `json:"id"`
	TicketID      string                 `json:"ticket_id"`
	Name          string                 `json:"name"`
	Args          map[string]interface{} `json:"args"`
	ApprovalToken string                 `json:"approval_token,omitempty"`
}

// ToolSpec describes a tool for the resolution decision LLM.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// ToolSet is the Resolution Tool Set contract. Critical tools require the
// approval token minted for the suspended call, proving that exact
// interrupt was approved.
type ToolSet interface {
	Specs() []ToolSpec
	IsCritical(name string) bool
	Execute(ctx context.Context, call ToolCallRequest, approvalToken string) (string, error)
}

// DecisionKind discriminates the resolver's per-iteration decision.
type DecisionKind string

const (
	DecisionToolCall DecisionKind = "tool_call"
	DecisionClarify  DecisionKind = "clarify"
	DecisionFinal    DecisionKind = "final"
	DecisionEscalate DecisionKind = "escalate"
)

// Resolution is the final outcome emitted by the resolver.
type Resolution struct {
	ActionTaken string
	Reason      string
	EmailBody   string
}

// Decision is one step of the tool-loop: exactly one of ToolCall, Question,
// or Final is populated according to Kind.
type Decision struct {
	Kind      DecisionKind
	ToolCall  *ToolCallRequest
	Question  string
	Final     *Resolution
	Reasoning string
}

// ResolutionTask carries the accumulated context the resolver decides on.
type ResolutionTask struct {
	IssueText       string
	ProblemTypes    []string
	Policy          agent.PolicySelection
	ProductsContext string
	HasOrderID      bool
	OrderID         string
}

// Resolver decides the next tool-loop action from the conversation so far.
type Resolver interface {
	Decide(ctx context.Context, messages []agent.Message, task ResolutionTask) (Decision, error)
}

// PolicyMatch is a selected policy with the matcher's confidence.
type PolicyMatch struct {
	Selection  agent.PolicySelection
	Confidence float64
}

// PolicyMatcher maps identified problem types to a ranked policy from the
// fixed catalog. Returns ErrNoPolicyMatch when nothing clears the threshold.
type PolicyMatcher interface {
	Match(ctx context.Context, problemTypes []string, issueText string) (PolicyMatch, error)
}

// OrderDirectory is the read-only catalog/ERP view the validation stage uses.
type OrderDirectory interface {
	OrderExists(orderID string) bool
	ProductsContext() string
	OrderContext(orderID string) string
}

// Composer produces the customer-facing reply as a pure function of final
// state.
type Composer interface {
	ComposeResolution(st *agent.TicketState) string
	ComposeInquiry(st *agent.TicketState, policiesContext string) string
}

// InterruptRequest exists only between pause and resume; it is consumed on
// resume. ApprovalToken is minted at suspension time for critical-tool
// interrupts and is the only token the tool set will accept for the call.
type InterruptRequest struct {
	TicketID      string             `json:"ticket_id"`
	Kind          InterruptKind      `json:"kind"`
	Description   string             `json:"description"`
	Snapshot      *agent.TicketState `json:"snapshot"`
	ToolCall      *ToolCallRequest   `json:"tool_call,omitempty"`
	ApprovalToken string             `json:"approval_token,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// Checkpoint is the durable per-ticket record: current status, the full
// state record, the resume target for customer pauses, and any pending
// interrupt.
type Checkpoint struct {
	Status    State
	ResumeTo  State
	State     *agent.TicketState
	Interrupt *InterruptRequest
}

// Store is the Ticket State Store contract. SaveCheckpoint must be atomic
// per ticket; a checkpoint for ticket T must be durable before any
// interrupt response for T is accepted.
type Store interface {
	CreateTicket(ctx context.Context, t *models.Ticket, cp *Checkpoint) error
	GetTicket(ctx context.Context, id string) (*models.Ticket, error)
	LoadCheckpoint(ctx context.Context, id string) (*Checkpoint, error)
	SaveCheckpoint(ctx context.Context, id string, cp *Checkpoint) error
	MarkNeedsRetry(ctx context.Context, id string) error
	AppendAudit(ctx context.Context, id string, event *models.AuditEvent) error
}

// OutcomeStatus classifies what a stage run ended with.
type OutcomeStatus string

const (
	OutcomeSuspended             OutcomeStatus = "suspended"
	OutcomeAwaitingClarification OutcomeStatus = "awaiting_clarification"
	OutcomeTerminal              OutcomeStatus = "terminal"
	OutcomeFailed                OutcomeStatus = "failed"
)

// StageOutcome reports how far the engine drove a ticket.
type StageOutcome struct {
	TicketID  string
	Status    OutcomeStatus
	Interrupt InterruptKind // set when Status == OutcomeSuspended
	Terminal  State         // set when Status == OutcomeTerminal
	Failure   FailureKind   // set when Status == OutcomeFailed
	Err       error         // set when Status == OutcomeFailed
}

// InterruptResponse is the external input consumed on resume: an
// approval/rejection for interrupt suspensions, or customer text for an
// awaiting-customer pause. Rejection and silence are indistinguishable to
// the engine; only Approve=true takes the approval path.
type InterruptResponse struct {
	Approve bool
	Comment string
	Message string
}

// Metadata carries ticket ingestion context.
type Metadata struct {
	CustomerID string
	Source     string
	ReceivedAt time.Time
}
