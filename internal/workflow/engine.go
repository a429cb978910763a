package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/supportflow/support-agent/internal/agent"
	"github.com/supportflow/support-agent/internal/models"
)

// Config holds engine tuning knobs.
type Config struct {
	// MaxToolIterations bounds one resolve pass. A ticket that exhausts the
	// budget is escalated for human review instead of looping on the LLM.
	MaxToolIterations int

	// PoliciesContext is the formatted policy catalog used for inquiry
	// replies.
	PoliciesContext string
}

// Engine drives a ticket through the resolution workflow: one stage mutates
// the state record at a time, every stage boundary and every interrupt is
// checkpointed, and suspended tickets resume exactly from their checkpoint.
type Engine struct {
	store      Store
	classifier Classifier
	resolver   Resolver
	tools      ToolSet
	matcher    PolicyMatcher
	orders     OrderDirectory
	composer   Composer
	graph      StateMachineBuilder
	cfg        Config
	logger     *zap.Logger
}

// NewEngine creates a workflow engine.
func NewEngine(
	store Store,
	classifier Classifier,
	resolver Resolver,
	tools ToolSet,
	matcher PolicyMatcher,
	orders OrderDirectory,
	composer Composer,
	cfg Config,
	logger *zap.Logger,
) *Engine {
	if cfg.MaxToolIterations <= 0 {
		cfg.MaxToolIterations = 8
	}

	return &Engine{
		store:      store,
		classifier: classifier,
		resolver:   resolver,
		tools:      tools,
		matcher:    matcher,
		orders:     orders,
		composer:   composer,
		graph:      NewTicketGraph(),
		cfg:        cfg,
		logger:     logger,
	}
}

// Start ingests a new ticket and drives it until it suspends, pauses, or
// reaches a terminal state.
func (e *Engine) Start(ctx context.Context, text string, meta Metadata) (string, StageOutcome, error) {
	id := uuid.NewString()

	receivedAt := meta.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}
	source := meta.Source
	if source == "" {
		source = models.SourceAPI
	}

	ticket := &models.Ticket{
		ID:          id,
		CustomerID:  meta.CustomerID,
		Description: text,
		Source:      source,
		Status:      string(StateCreated),
		ReceivedAt:  receivedAt,
	}
	cp := &Checkpoint{
		Status: StateCreated,
		State:  agent.NewTicketState(text),
	}

	if err := e.store.CreateTicket(ctx, ticket, cp); err != nil {
		return "", StageOutcome{}, fmt.Errorf("%w: create ticket: %v", ErrStore, err)
	}

	e.logger.Info("Ticket ingested",
		zap.String("ticket_id", id),
		zap.String("source", source))

	machine := e.graph.Build(cp.Status)
	if err := e.advance(ctx, machine, id, cp, TriggerIngest); err != nil {
		return id, e.failStage(ctx, id, cp, err), nil
	}

	return id, e.run(ctx, id, cp, machine), nil
}

// Resume applies an external response to a suspended or paused ticket and
// continues driving it. The checkpoint written at suspension time is the
// only state the resume observes.
func (e *Engine) Resume(ctx context.Context, ticketID string, resp InterruptResponse) (StageOutcome, error) {
	cp, err := e.store.LoadCheckpoint(ctx, ticketID)
	if err != nil {
		return StageOutcome{}, fmt.Errorf("%w: load checkpoint: %v", ErrStore, err)
	}
	if cp == nil {
		return StageOutcome{}, ErrTicketNotFound
	}

	machine := e.graph.Build(cp.Status)

	switch cp.Status {
	case StateAwaitingTierApproval:
		if err := e.resumeTierApproval(ctx, machine, ticketID, cp, resp); err != nil {
			return e.failStage(ctx, ticketID, cp, err), nil
		}

	case StateAwaitingRefundOK, StateAwaitingResendOK:
		outcome, done, err := e.resumeCriticalTool(ctx, machine, ticketID, cp, resp)
		if err != nil {
			return e.failStage(ctx, ticketID, cp, err), nil
		}
		if done {
			return outcome, nil
		}

	case StateAwaitingCustomer:
		if err := e.resumeClarification(ctx, machine, ticketID, cp, resp); err != nil {
			if errors.Is(err, ErrClarificationRequired) {
				return StageOutcome{}, err
			}
			return e.failStage(ctx, ticketID, cp, err), nil
		}

	default:
		return StageOutcome{}, fmt.Errorf("%w: ticket %s is in state %s", ErrNotSuspended, ticketID, cp.Status)
	}

	return e.run(ctx, ticketID, cp, machine), nil
}

// Retry re-drives a ticket from its durable checkpoint after a service
// failure. Tickets that are terminal or waiting for external input are not
// retryable.
func (e *Engine) Retry(ctx context.Context, ticketID string) (StageOutcome, error) {
	cp, err := e.store.LoadCheckpoint(ctx, ticketID)
	if err != nil {
		return StageOutcome{}, fmt.Errorf("%w: load checkpoint: %v", ErrStore, err)
	}
	if cp == nil {
		return StageOutcome{}, ErrTicketNotFound
	}

	if cp.Status.IsTerminal() {
		return StageOutcome{}, fmt.Errorf("ticket %s is terminal in state %s", ticketID, cp.Status)
	}
	if _, suspended := cp.Status.InterruptKind(); suspended || cp.Status == StateAwaitingCustomer {
		return StageOutcome{}, fmt.Errorf("ticket %s is waiting for external input in state %s", ticketID, cp.Status)
	}

	machine := e.graph.Build(cp.Status)
	return e.run(ctx, ticketID, cp, machine), nil
}

// CurrentState returns the checkpointed state record for a ticket.
func (e *Engine) CurrentState(ctx context.Context, ticketID string) (*agent.TicketState, error) {
	cp, err := e.store.LoadCheckpoint(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("%w: load checkpoint: %v", ErrStore, err)
	}
	if cp == nil {
		return nil, ErrTicketNotFound
	}
	return cp.State, nil
}

// PendingInterrupt returns the interrupt a suspended ticket is waiting on,
// or nil when the ticket is not suspended.
func (e *Engine) PendingInterrupt(ctx context.Context, ticketID string) (*InterruptRequest, error) {
	cp, err := e.store.LoadCheckpoint(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("%w: load checkpoint: %v", ErrStore, err)
	}
	if cp == nil {
		return nil, ErrTicketNotFound
	}
	return cp.Interrupt, nil
}

// run drives the ticket stage by stage until it yields control.
func (e *Engine) run(ctx context.Context, id string, cp *Checkpoint, machine StateMachine) StageOutcome {
	for {
		if cp.Status.IsTerminal() {
			return StageOutcome{TicketID: id, Status: OutcomeTerminal, Terminal: cp.Status}
		}
		if kind, ok := cp.Status.InterruptKind(); ok {
			return StageOutcome{TicketID: id, Status: OutcomeSuspended, Interrupt: kind}
		}
		if cp.Status == StateAwaitingCustomer {
			return StageOutcome{TicketID: id, Status: OutcomeAwaitingClarification}
		}

		var trig Trigger
		var err error

		switch cp.Status {
		case StateValidating:
			trig, err = e.validate(ctx, id, cp)
		case StateTierClassification:
			trig, err = e.classifyTier(ctx, id, cp)
		case StateQueryClassification:
			trig, err = e.classifyQueryIssue(ctx, id, cp)
		case StateProblemClassification:
			trig, err = e.classifyProblems(ctx, id, cp)
		case StatePolicySelection:
			trig, err = e.selectPolicy(ctx, id, cp)
		case StateResolving:
			trig, err = e.resolve(ctx, id, cp)
		case StateComposingEmail:
			trig, err = e.composeEmail(ctx, id, cp)
		default:
			err = fmt.Errorf("no stage handler for state %s", cp.Status)
		}

		if err != nil {
			return e.failStage(ctx, id, cp, err)
		}

		if err := e.advance(ctx, machine, id, cp, trig); err != nil {
			return e.failStage(ctx, id, cp, err)
		}
	}
}

// advance fires the trigger and writes the stage-boundary checkpoint. The
// workflow never proceeds past a boundary without a confirmed checkpoint.
func (e *Engine) advance(ctx context.Context, machine StateMachine, id string, cp *Checkpoint, trig Trigger) error {
	from := cp.Status

	if err := machine.Fire(ctx, trig); err != nil {
		return err
	}
	cp.Status = machine.State()

	if err := e.store.SaveCheckpoint(ctx, id, cp); err != nil {
		// Roll the in-memory status back so a retry resumes from the
		// durable checkpoint, not a phantom one.
		cp.Status = from
		return fmt.Errorf("%w: checkpoint %s -> %s: %v", ErrStore, from, machine.State(), err)
	}

	e.logger.Debug("Stage transition",
		zap.String("ticket_id", id),
		zap.String("from", from.String()),
		zap.String("to", cp.Status.String()),
		zap.String("trigger", trig.String()))

	return nil
}

// saveProgress checkpoints mid-stage mutations (tool-loop appends) without
// a state transition.
func (e *Engine) saveProgress(ctx context.Context, id string, cp *Checkpoint) error {
	if err := e.store.SaveCheckpoint(ctx, id, cp); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}

// failStage reports a stage failure without dropping the ticket into an
// undefined state: the last durable checkpoint remains authoritative.
func (e *Engine) failStage(ctx context.Context, id string, cp *Checkpoint, err error) StageOutcome {
	kind := FailureInternal
	switch {
	case errors.Is(err, ErrStore):
		kind = FailureStore
	case errors.Is(err, ErrClassification):
		kind = FailureClassification
	case errors.Is(err, ErrTool):
		kind = FailureTool
	}

	if kind == FailureClassification {
		if retryErr := e.store.MarkNeedsRetry(ctx, id); retryErr != nil {
			e.logger.Error("Failed to mark ticket for retry",
				zap.String("ticket_id", id),
				zap.Error(retryErr))
		}
	}

	e.appendAudit(ctx, id, &models.AuditEvent{
		TicketID:   id,
		Kind:       models.AuditError,
		FromStatus: cp.Status.String(),
		ToStatus:   cp.Status.String(),
		Detail:     err.Error(),
	})

	e.logger.Error("Stage failed",
		zap.String("ticket_id", id),
		zap.String("state", cp.Status.String()),
		zap.String("kind", string(kind)),
		zap.Error(err))

	return StageOutcome{TicketID: id, Status: OutcomeFailed, Failure: kind, Err: err}
}

// appendAudit writes an audit event; audit failures are logged, never fatal.
func (e *Engine) appendAudit(ctx context.Context, id string, event *models.AuditEvent) {
	if err := e.store.AppendAudit(ctx, id, event); err != nil {
		e.logger.Warn("Failed to append audit event",
			zap.String("ticket_id", id),
			zap.String("kind", event.Kind),
			zap.Error(err))
	}
}

// resumeTierApproval applies the human decision on an L3 classification.
func (e *Engine) resumeTierApproval(ctx context.Context, machine StateMachine, id string, cp *Checkpoint, resp InterruptResponse) error {
	st := cp.State
	from := cp.Status
	cp.Interrupt = nil // consumed either way

	if resp.Approve {
		st.Approved = agent.ApprovalApproved
		st.Append(agent.NewAgentMessage("L3 classification approved by supervisor."))
		e.appendAudit(ctx, id, &models.AuditEvent{
			TicketID: id, Kind: models.AuditResume,
			FromStatus: from.String(), ToStatus: StateQueryClassification.String(),
			Detail: "tier L3 approved",
		})
		return e.advance(ctx, machine, id, cp, TriggerApprove)
	}

	st.Approved = agent.ApprovalRejected
	st.RequiresHumanReview = true
	st.Reason = "L3 classification denied by supervisor"
	if resp.Comment != "" {
		st.Reason = fmt.Sprintf("%s: %s", st.Reason, resp.Comment)
	}
	st.Append(agent.NewAgentMessage("L3 classification denied by supervisor."))
	e.appendAudit(ctx, id, &models.AuditEvent{
		TicketID: id, Kind: models.AuditResume,
		FromStatus: from.String(), ToStatus: StateRejected.String(),
		Detail: "tier L3 denied",
	})
	return e.advance(ctx, machine, id, cp, TriggerReject)
}

// resumeCriticalTool applies the human decision on a pending refund/resend.
// On approval the tool executes under an approval token before the loop
// continues; on rejection the ticket terminates flagged for human review,
// with no rollback of messages already appended or read-only tools already
// executed. A tool failure leaves the suspension intact.
func (e *Engine) resumeCriticalTool(ctx context.Context, machine StateMachine, id string, cp *Checkpoint, resp InterruptResponse) (StageOutcome, bool, error) {
	st := cp.State
	from := cp.Status

	if cp.Interrupt == nil || cp.Interrupt.ToolCall == nil {
		return StageOutcome{}, false, fmt.Errorf("checkpoint for ticket %s has no pending tool call", id)
	}
	call := *cp.Interrupt.ToolCall

	if !resp.Approve {
		cp.Interrupt = nil
		st.Approved = agent.ApprovalRejected
		st.RequiresHumanReview = true
		st.ActionTaken = "Action Denied"
		st.Reason = fmt.Sprintf("%s action denied by supervisor", call.Name)
		st.EmailReply = ""
		st.AddThought("resolve",
			fmt.Sprintf("Critical action %s denied", call.Name),
			"stopping execution, ticket requires human review")
		if err := recordResolveReasoning(st, st.Reason); err != nil {
			return StageOutcome{}, false, err
		}
		e.appendAudit(ctx, id, &models.AuditEvent{
			TicketID: id, Kind: models.AuditResume,
			FromStatus: from.String(), ToStatus: StateRejected.String(),
			Detail: fmt.Sprintf("%s denied", call.Name),
		})
		if err := e.advance(ctx, machine, id, cp, TriggerReject); err != nil {
			return StageOutcome{}, false, err
		}
		return StageOutcome{TicketID: id, Status: OutcomeTerminal, Terminal: cp.Status}, true, nil
	}

	// The token minted at suspension time proves to the tool set that this
	// exact interrupt was answered; the registry accepts no other.
	output, err := e.tools.Execute(ctx, call, cp.Interrupt.ApprovalToken)
	if err != nil {
		// The action did not commit, so the interrupt is not consumed and
		// the ticket stays suspended on the durable checkpoint.
		return StageOutcome{}, false, fmt.Errorf("%w: %s: %v", ErrTool, call.Name, err)
	}

	cp.Interrupt = nil
	st.Approved = agent.ApprovalApproved
	st.Append(agent.NewToolResult(call.ID, call.Name, output))
	st.RecordExecutedAction(call.Name, call.ID)
	e.appendAudit(ctx, id, &models.AuditEvent{
		TicketID: id, Kind: models.AuditTool,
		FromStatus: from.String(), ToStatus: StateResolving.String(),
		Detail: fmt.Sprintf("%s approved and executed", call.Name),
	})

	if err := e.advance(ctx, machine, id, cp, TriggerApprove); err != nil {
		return StageOutcome{}, false, err
	}
	return StageOutcome{}, false, nil
}

// resumeClarification appends the customer's reply and re-enters the stage
// that asked for it.
func (e *Engine) resumeClarification(ctx context.Context, machine StateMachine, id string, cp *Checkpoint, resp InterruptResponse) error {
	if resp.Message == "" {
		return ErrClarificationRequired
	}

	from := cp.Status
	resumeTo := cp.ResumeTo
	if resumeTo == "" {
		resumeTo = StateValidating
	}

	cp.State.Append(agent.NewHumanMessage(resp.Message))
	cp.ResumeTo = ""

	trig := TriggerResumeValidation
	if resumeTo == StateResolving {
		trig = TriggerResumeResolution
	}

	e.appendAudit(ctx, id, &models.AuditEvent{
		TicketID: id, Kind: models.AuditResume,
		FromStatus: from.String(), ToStatus: resumeTo.String(),
		Detail: "customer clarification received",
	})

	return e.advance(ctx, machine, id, cp, trig)
}
