package workflow

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/supportflow/support-agent/internal/agent"
	"github.com/supportflow/support-agent/internal/models"
)

// Classification taxonomies. Labels returned outside these sets are rejected
// by the classifier implementation, never silently accepted.
var (
	ticketLabels  = []string{"support-ticket", "not-support-ticket"}
	tierLabels    = []string{"L1", "L2", "L3"}
	queryLabels   = []string{"query", "issue"}
	problemLabels = []string{"damaged", "missing", "wrong-item", "late-delivery", "defective", "other"}
)

const tierRubric = `L1: routine requests - order status, simple product questions, minor complaints.
L2: elevated issues - damaged or missing items, refund or resend requests within policy.
L3: high-risk cases - legal threats, chargebacks, repeated failures, high-value disputes.
When the severity is ambiguous between two tiers, assign the higher tier.`

var orderIDPattern = regexp.MustCompile(`(?i)\bORD\d{5}\b`)

// validate decides whether the text is a support ticket, extracts and checks
// the order id, and caches product context. Re-entered after a customer
// clarification; the ticket classification runs only once.
func (e *Engine) validate(ctx context.Context, id string, cp *Checkpoint) (Trigger, error) {
	st := cp.State

	if st.ReasoningFor("validate") == "" {
		res, err := e.classifier.Classify(ctx, st.FirstHumanMessage(),
			"Decide whether this message is a customer support ticket about an order or product, or unrelated correspondence (marketing, spam, partnership requests).",
			ticketLabels)
		if err != nil {
			return "", fmt.Errorf("%w: validate: %v", ErrClassification, err)
		}

		if err := st.SetReasoning("validate", res.Reasoning); err != nil {
			return "", err
		}

		if res.Label != "support-ticket" {
			st.IsSupportTicket = false
			st.ActionTaken = "Not a support ticket"
			st.Reason = res.Reasoning
			st.AddThought("validate", res.Reasoning, "not a support ticket")
			return TriggerNonTicket, nil
		}
		st.IsSupportTicket = true
		st.AddThought("validate", res.Reasoning, "confirmed support ticket")
	}

	// Scan every customer message so an order id supplied in a
	// clarification reply is picked up.
	var orderID string
	for _, m := range st.Messages {
		if m.Kind != agent.MessageHuman {
			continue
		}
		if match := orderIDPattern.FindString(m.Content); match != "" {
			orderID = strings.ToUpper(match)
		}
	}

	if orderID != "" && e.orders.OrderExists(orderID) {
		st.OrderID = orderID
		st.HasOrderID = true
		st.ProductsCache = e.orders.ProductsContext()
		st.AddThought("validate_order", fmt.Sprintf("Order %s found in ERP", orderID), "order verified")
		return TriggerValidated, nil
	}

	// Ask for the order number once; if the customer's reply still has no
	// usable id, proceed without order context rather than looping.
	if st.ReasoningFor("validate_order") == "" {
		question := "Could you share your order number (it looks like ORD followed by five digits)? That helps us pull up your purchase."
		if orderID != "" {
			question = fmt.Sprintf("We could not find order %s in our system. Could you double-check the order number?", orderID)
		}

		if err := st.SetReasoning("validate_order", "order id missing or not found, asking customer"); err != nil {
			return "", err
		}
		st.Append(agent.NewAgentMessage(question))
		cp.ResumeTo = StateValidating

		e.appendAudit(ctx, id, &models.AuditEvent{
			TicketID: id, Kind: models.AuditInterrupt,
			FromStatus: cp.Status.String(), ToStatus: StateAwaitingCustomer.String(),
			Detail: "order id clarification requested",
		})
		return TriggerNeedOrderInfo, nil
	}

	st.HasOrderID = false
	st.ProductsCache = e.orders.ProductsContext()
	st.AddThought("validate_order", "no verifiable order id after clarification", "continuing without order context")
	return TriggerValidated, nil
}

// classifyTier assigns the escalation tier. L3 suspends the ticket on a
// human approval interrupt before any further processing.
func (e *Engine) classifyTier(ctx context.Context, id string, cp *Checkpoint) (Trigger, error) {
	st := cp.State

	res, err := e.classifier.Classify(ctx, st.FirstHumanMessage(), tierRubric, tierLabels)
	if err != nil {
		return "", fmt.Errorf("%w: tier: %v", ErrClassification, err)
	}

	st.Tier = agent.Tier(res.Label)
	if err := st.SetReasoning("tier", res.Reasoning); err != nil {
		return "", err
	}
	st.AddThought("tier", res.Reasoning, fmt.Sprintf("classified as %s", res.Label))

	if st.Tier != agent.TierL3 {
		return TriggerTierAssigned, nil
	}

	st.Approved = agent.ApprovalPending
	cp.Interrupt = &InterruptRequest{
		TicketID:    id,
		Kind:        InterruptTierApproval,
		Description: fmt.Sprintf("Ticket classified as L3: %s. Approve to continue automated handling.", res.Reasoning),
		Snapshot:    st.Clone(),
		CreatedAt:   time.Now(),
	}

	e.appendAudit(ctx, id, &models.AuditEvent{
		TicketID: id, Kind: models.AuditInterrupt,
		FromStatus: cp.Status.String(), ToStatus: StateAwaitingTierApproval.String(),
		Detail: "L3 classification requires approval",
	})
	return TriggerTierEscalate, nil
}

// classifyQueryIssue splits policy questions from actual order issues.
// Queries skip straight to email composition with the policy catalog.
func (e *Engine) classifyQueryIssue(ctx context.Context, id string, cp *Checkpoint) (Trigger, error) {
	st := cp.State

	res, err := e.classifier.Classify(ctx, st.FirstHumanMessage(),
		"Decide whether the customer is asking a general question about policies or products (query), or reporting a concrete problem with an order (issue).",
		queryLabels)
	if err != nil {
		return "", fmt.Errorf("%w: query/issue: %v", ErrClassification, err)
	}

	st.QueryOrIssue = res.Label
	if err := st.SetReasoning("query_issue", res.Reasoning); err != nil {
		return "", err
	}
	st.AddThought("query_issue", res.Reasoning, res.Label)

	if res.Label == "query" {
		st.ActionTaken = "Policy Info"
		st.Reason = res.Reasoning
		return TriggerInquiry, nil
	}
	return TriggerIssueConfirmed, nil
}

// classifyProblems tags the issue with one or more problem types from the
// fixed taxonomy. An empty result is a classification failure, not a valid
// outcome.
func (e *Engine) classifyProblems(ctx context.Context, id string, cp *Checkpoint) (Trigger, error) {
	st := cp.State

	res, err := e.classifier.ClassifyMulti(ctx, st.FirstHumanMessage(),
		"Identify every problem type the customer describes.", problemLabels)
	if err != nil {
		return "", fmt.Errorf("%w: problems: %v", ErrClassification, err)
	}
	if len(res.Labels) == 0 {
		return "", fmt.Errorf("%w: problems: classifier returned no labels", ErrClassification)
	}

	st.ProblemTypes = res.Labels
	if err := st.SetReasoning("problems", res.Reasoning); err != nil {
		return "", err
	}
	st.AddThought("problems", res.Reasoning, strings.Join(res.Labels, ", "))

	return TriggerProblemsFound, nil
}

// selectPolicy picks the applicable policy for the identified problems. No
// match above the confidence threshold escalates the ticket to a human.
func (e *Engine) selectPolicy(ctx context.Context, id string, cp *Checkpoint) (Trigger, error) {
	st := cp.State

	match, err := e.matcher.Match(ctx, st.ProblemTypes, st.FirstHumanMessage())
	if err != nil {
		if errors.Is(err, ErrNoPolicyMatch) {
			st.RequiresHumanReview = true
			st.ActionTaken = "Escalated"
			st.Reason = "No policy covers the identified problems"
			st.AddThought("policy", "no policy cleared the confidence threshold", "escalating to human review")

			e.appendAudit(ctx, id, &models.AuditEvent{
				TicketID: id, Kind: models.AuditTransition,
				FromStatus: cp.Status.String(), ToStatus: StateEscalated.String(),
				Detail: "no policy match",
			})
			return TriggerEscalate, nil
		}
		return "", err
	}

	sel := match.Selection
	st.Policy = &sel
	if err := st.SetReasoning("policy", sel.Rationale); err != nil {
		return "", err
	}
	st.AddThought("policy", sel.Rationale,
		fmt.Sprintf("selected %q (confidence %.2f)", sel.Name, match.Confidence))

	return TriggerPolicySelected, nil
}

// composeEmail writes the customer-facing reply and finishes the ticket.
func (e *Engine) composeEmail(ctx context.Context, id string, cp *Checkpoint) (Trigger, error) {
	st := cp.State

	if st.QueryOrIssue == "query" {
		st.EmailReply = e.composer.ComposeInquiry(st, e.cfg.PoliciesContext)
	} else {
		st.EmailReply = e.composer.ComposeResolution(st)
	}
	st.Append(agent.NewAgentMessage(st.EmailReply))

	return TriggerEmailComposed, nil
}
