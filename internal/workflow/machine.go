package workflow

import "context"

// StateMachine tracks the current workflow state and validates transitions.
type StateMachine interface {
	// State returns the current state.
	State() State

	// CanFire returns true if the trigger is permitted in the current state.
	CanFire(trigger Trigger) bool

	// Fire attempts to execute the trigger, transitioning to the new state
	// if allowed.
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns all triggers valid in the current state.
	PermittedTriggers() []Trigger
}

// NewTicketGraph builds the transition table for the ticket resolution
// workflow. The engine instantiates one machine per ticket from this
// builder, seeded with the ticket's checkpointed state.
func NewTicketGraph() StateMachineBuilder {
	b := NewBuilder()

	b.Configure(StateCreated).
		Permit(TriggerIngest, StateValidating)

	b.Configure(StateValidating).
		Permit(TriggerNonTicket, StateNonTicket).
		Permit(TriggerNeedOrderInfo, StateAwaitingCustomer).
		Permit(TriggerValidated, StateTierClassification)

	b.Configure(StateTierClassification).
		Permit(TriggerTierAssigned, StateQueryClassification).
		Permit(TriggerTierEscalate, StateAwaitingTierApproval)

	b.Configure(StateAwaitingTierApproval).
		Permit(TriggerApprove, StateQueryClassification).
		Permit(TriggerReject, StateRejected)

	b.Configure(StateQueryClassification).
		Permit(TriggerInquiry, StateComposingEmail).
		Permit(TriggerIssueConfirmed, StateProblemClassification)

	b.Configure(StateProblemClassification).
		Permit(TriggerProblemsFound, StatePolicySelection)

	b.Configure(StatePolicySelection).
		Permit(TriggerPolicySelected, StateResolving).
		Permit(TriggerEscalate, StateEscalated)

	b.Configure(StateResolving).
		Permit(TriggerRequestRefund, StateAwaitingRefundOK).
		Permit(TriggerRequestResend, StateAwaitingResendOK).
		Permit(TriggerNeedClarification, StateAwaitingCustomer).
		Permit(TriggerResolutionReached, StateComposingEmail).
		Permit(TriggerEscalate, StateEscalated)

	b.Configure(StateAwaitingRefundOK).
		Permit(TriggerApprove, StateResolving).
		Permit(TriggerReject, StateRejected)

	b.Configure(StateAwaitingResendOK).
		Permit(TriggerApprove, StateResolving).
		Permit(TriggerReject, StateRejected)

	b.Configure(StateAwaitingCustomer).
		Permit(TriggerResumeValidation, StateValidating).
		Permit(TriggerResumeResolution, StateResolving)

	b.Configure(StateComposingEmail).
		Permit(TriggerEmailComposed, StateResolved)

	return b
}
