package workflow

// State represents a workflow state in the ticket resolution lifecycle.
type State string

const (
	StateCreated               State = "CREATED"
	StateValidating            State = "VALIDATING"
	StateTierClassification    State = "TIER_CLASSIFICATION"
	StateAwaitingTierApproval  State = "AWAITING_TIER_APPROVAL"
	StateQueryClassification   State = "QUERY_CLASSIFICATION"
	StateProblemClassification State = "PROBLEM_CLASSIFICATION"
	StatePolicySelection       State = "POLICY_SELECTION"
	StateResolving             State = "RESOLVING"
	StateAwaitingRefundOK      State = "AWAITING_REFUND_APPROVAL"
	StateAwaitingResendOK      State = "AWAITING_RESEND_APPROVAL"
	StateAwaitingCustomer      State = "AWAITING_CUSTOMER"
	StateComposingEmail        State = "COMPOSING_EMAIL"
	StateResolved              State = "RESOLVED"
	StateRejected              State = "REJECTED"
	StateEscalated             State = "ESCALATED"
	StateNonTicket             State = "NON_TICKET"
)

var validStates = map[State]bool{
	StateCreated:               true,
	StateValidating:            true,
	StateTierClassification:    true,
	StateAwaitingTierApproval:  true,
	StateQueryClassification:   true,
	StateProblemClassification: true,
	StatePolicySelection:       true,
	StateResolving:             true,
	StateAwaitingRefundOK:      true,
	StateAwaitingResendOK:      true,
	StateAwaitingCustomer:      true,
	StateComposingEmail:        true,
	StateResolved:              true,
	StateRejected:              true,
	StateEscalated:             true,
	StateNonTicket:             true,
}

var terminalStates = map[State]bool{
	StateResolved:  true,
	StateRejected:  true,
	StateEscalated: true,
	StateNonTicket: true,
}

// interruptStates maps each suspended state to the interrupt kind that put
// the workflow there. StateAwaitingCustomer is a pause, not an interrupt,
// and is deliberately absent.
var interruptStates = map[State]InterruptKind{
	StateAwaitingTierApproval: InterruptTierApproval,
	StateAwaitingRefundOK:     InterruptRefundApproval,
	StateAwaitingResendOK:     InterruptResendApproval,
}

// IsTerminal returns true if the state is terminal (no further transitions).
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsValid returns true if the state is a valid workflow state.
func (s State) IsValid() bool {
	return validStates[s]
}

// InterruptKind returns the interrupt kind for a suspended state, or empty
// and false if the state is not an interrupt suspension.
func (s State) InterruptKind() (InterruptKind, bool) {
	k, ok := interruptStates[s]
	return k, ok
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// InterruptKind identifies which human decision a suspension is waiting on.
type InterruptKind string

const (
	InterruptTierApproval   InterruptKind = "tier-L3-approval"
	InterruptRefundApproval InterruptKind = "refund-approval"
	InterruptResendApproval InterruptKind = "resend-approval"
)
