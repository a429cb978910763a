package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a state transition is not allowed.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed is returned when a guard condition fails.
	ErrGuardFailed = errors.New("guard condition failed")

	// ErrTicketNotFound is returned when a ticket id is unknown to the store.
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrNotSuspended is returned on resume when the ticket is not waiting
	// for external input.
	ErrNotSuspended = errors.New("ticket is not suspended")

	// ErrClassification wraps Classification Service failures, including
	// out-of-taxonomy labels.
	ErrClassification = errors.New("classification failed")

	// ErrTool wraps resolution tool failures.
	ErrTool = errors.New("tool call failed")

	// ErrStore wraps checkpoint persistence failures. A stage must not
	// proceed past a suspension point without a confirmed checkpoint.
	ErrStore = errors.New("state store failure")

	// ErrNoPolicyMatch signals that no policy cleared the confidence
	// threshold. It is an escalation trigger, not a fault.
	ErrNoPolicyMatch = errors.New("no policy matched")

	// ErrClarificationRequired is returned on resume of an awaiting-customer
	// pause without customer text.
	ErrClarificationRequired = errors.New("clarification text required")

	// ErrApprovalRequired is returned when a critical tool is executed
	// without an approval token.
	ErrApprovalRequired = errors.New("approval token required for critical tool")
)

// FailureKind labels a StageOutcome failure with its taxonomy bucket.
type FailureKind string

const (
	FailureClassification FailureKind = "classification"
	FailureTool           FailureKind = "tool"
	FailureStore          FailureKind = "store"
	FailureInternal       FailureKind = "internal"
)
