package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/supportflow/support-agent/internal/agent"
	"github.com/supportflow/support-agent/internal/models"
)

// Critical tool names. A request for either suspends the ticket on a human
// approval interrupt; everything else executes inline.
const (
	ToolRefund = "refund_customer"
	ToolResend = "resend_item"
)

// resolve runs the tool loop: the resolver inspects the conversation and
// either calls a tool, asks the customer something, escalates, or settles on
// a final resolution. Read-only tools execute inline with their output (or
// error text) appended; critical tools suspend for approval. Every append is
// checkpointed before the next decision.
func (e *Engine) resolve(ctx context.Context, id string, cp *Checkpoint) (Trigger, error) {
	st := cp.State

	task := ResolutionTask{
		IssueText:       st.FirstHumanMessage(),
		ProblemTypes:    st.ProblemTypes,
		ProductsContext: st.ProductsCache,
		HasOrderID:      st.HasOrderID,
		OrderID:         st.OrderID,
	}
	if st.Policy != nil {
		task.Policy = *st.Policy
	}

	for iter := 0; iter < e.cfg.MaxToolIterations; iter++ {
		dec, err := e.resolver.Decide(ctx, st.Messages, task)
		if err != nil {
			return "", fmt.Errorf("%w: resolve decision: %v", ErrClassification, err)
		}
		if dec.Reasoning != "" {
			st.AddThought("resolve", dec.Reasoning, string(dec.Kind))
		}

		switch dec.Kind {
		case DecisionToolCall:
			if dec.ToolCall == nil {
				return "", fmt.Errorf("%w: resolve decision: tool_call decision without a call", ErrClassification)
			}
			call := *dec.ToolCall
			if call.ID == "" {
				call.ID = uuid.NewString()
			}
			call.TicketID = id

			if e.tools.IsCritical(call.Name) {
				if prevID, done := st.ExecutedAction(call.Name); done {
					// At most one refund/resend per ticket. Surface the
					// earlier execution to the resolver instead of
					// re-requesting approval. The request is appended too
					// so the result stays correlated in the transcript.
					st.Append(
						agent.NewToolRequest(call.ID, call.Name, call.Args),
						agent.NewToolResult(call.ID, call.Name,
							fmt.Sprintf("%s was already executed for this ticket (call %s). Do not repeat it.", call.Name, prevID)))
					if err := e.saveProgress(ctx, id, cp); err != nil {
						return "", err
					}
					continue
				}
				return e.suspendForApproval(ctx, id, cp, call)
			}

			st.Append(agent.NewToolRequest(call.ID, call.Name, call.Args))
			output, execErr := e.tools.Execute(ctx, call, "")
			if execErr != nil {
				// Read-only tool failures feed back into the loop as
				// result text; the resolver decides what to do next.
				output = fmt.Sprintf("ERROR: %v", execErr)
			}
			st.Append(agent.NewToolResult(call.ID, call.Name, output))

			e.appendAudit(ctx, id, &models.AuditEvent{
				TicketID: id, Kind: models.AuditTool,
				FromStatus: cp.Status.String(), ToStatus: cp.Status.String(),
				Detail: fmt.Sprintf("%s executed", call.Name),
			})
			if err := e.saveProgress(ctx, id, cp); err != nil {
				return "", err
			}

		case DecisionClarify:
			if dec.Question == "" {
				return "", fmt.Errorf("%w: resolve decision: clarify without a question", ErrClassification)
			}
			st.Append(agent.NewAgentMessage(dec.Question))
			cp.ResumeTo = StateResolving

			e.appendAudit(ctx, id, &models.AuditEvent{
				TicketID: id, Kind: models.AuditInterrupt,
				FromStatus: cp.Status.String(), ToStatus: StateAwaitingCustomer.String(),
				Detail: "clarification requested during resolution",
			})
			return TriggerNeedClarification, nil

		case DecisionFinal:
			if dec.Final == nil {
				return "", fmt.Errorf("%w: resolve decision: final without a resolution", ErrClassification)
			}
			st.ActionTaken = dec.Final.ActionTaken
			st.Reason = dec.Final.Reason
			if dec.Final.EmailBody != "" {
				st.EmailReply = dec.Final.EmailBody
			}
			if err := recordResolveReasoning(st, dec.Reasoning, dec.Final.Reason); err != nil {
				return "", err
			}
			return TriggerResolutionReached, nil

		case DecisionEscalate:
			st.RequiresHumanReview = true
			st.ActionTaken = "Escalated"
			st.Reason = dec.Reasoning
			if st.Reason == "" {
				st.Reason = "Resolver escalated the ticket"
			}
			if err := recordResolveReasoning(st, st.Reason); err != nil {
				return "", err
			}
			return TriggerEscalate, nil

		default:
			return "", fmt.Errorf("%w: resolve decision: unknown kind %q", ErrClassification, dec.Kind)
		}
	}

	// The loop did not converge within budget; hand the ticket to a human
	// rather than burning more tool calls.
	st.RequiresHumanReview = true
	st.ActionTaken = "Escalated"
	st.Reason = fmt.Sprintf("Resolution did not converge within %d tool iterations", e.cfg.MaxToolIterations)
	st.AddThought("resolve", "iteration budget exhausted", "escalating to human review")
	if err := recordResolveReasoning(st, st.Reason); err != nil {
		return "", err
	}
	return TriggerEscalate, nil
}

// recordResolveReasoning writes the resolve stage's reasoning entry once.
// The stage re-enters after approval interrupts and clarifications, so the
// entry may already exist; only the first terminal pass records it.
func recordResolveReasoning(st *agent.TicketState, candidates ...string) error {
	if st.ReasoningFor("resolve") != "" {
		return nil
	}
	reason := "resolution stage completed"
	for _, c := range candidates {
		if c != "" {
			reason = c
			break
		}
	}
	return st.SetReasoning("resolve", reason)
}

// suspendForApproval records the pending critical call and raises the
// matching interrupt. The tool-call request message is appended now so the
// approved execution's result correlates to it.
func (e *Engine) suspendForApproval(ctx context.Context, id string, cp *Checkpoint, call ToolCallRequest) (Trigger, error) {
	st := cp.State

	kind := InterruptRefundApproval
	trig := TriggerRequestRefund
	target := StateAwaitingRefundOK
	if call.Name == ToolResend {
		kind = InterruptResendApproval
		trig = TriggerRequestResend
		target = StateAwaitingResendOK
	}

	st.Append(agent.NewToolRequest(call.ID, call.Name, call.Args))
	st.Approved = agent.ApprovalPending

	// The token binds an eventual approval to this exact interrupt: it is
	// minted here, persisted with the checkpoint, and the tool set accepts
	// no other token for the call.
	callCopy := call
	callCopy.ApprovalToken = uuid.NewString()
	cp.Interrupt = &InterruptRequest{
		TicketID:      id,
		Kind:          kind,
		Description:   fmt.Sprintf("Agent wants to execute %s with args %v. Approve to proceed.", call.Name, call.Args),
		Snapshot:      st.Clone(),
		ToolCall:      &callCopy,
		ApprovalToken: callCopy.ApprovalToken,
		CreatedAt:     time.Now(),
	}

	e.appendAudit(ctx, id, &models.AuditEvent{
		TicketID: id, Kind: models.AuditInterrupt,
		FromStatus: cp.Status.String(), ToStatus: target.String(),
		Detail: fmt.Sprintf("%s requires approval", call.Name),
	})
	return trig, nil
}
