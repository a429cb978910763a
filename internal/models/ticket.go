// Package models holds the database row types.
package models

import "time"

// Ticket status values mirror the workflow state strings; NeedsRetry flags
// a ticket whose last stage failed on a service error and is resumable once
// the dependency recovers.
type Ticket struct {
	ID          string
	CustomerID  string
	Description string
	Source      string
	Status      string
	NeedsRetry  bool
	ReceivedAt  time.Time
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Ticket sources.
const (
	SourceAPI   = "api"
	SourceGmail = "gmail"
)

// AuditEvent is one append-only entry in a ticket's decision trail.
type AuditEvent struct {
	ID         int64
	TicketID   string
	Kind       string
	FromStatus string
	ToStatus   string
	Detail     string
	CreatedAt  time.Time
}

// Audit event kinds.
const (
	AuditTransition = "transition"
	AuditInterrupt  = "interrupt"
	AuditResume     = "resume"
	AuditTool       = "tool"
	AuditError      = "error"
)

// GmailMessage tracks a claimed inbound Gmail message so one message id is
// processed at most once.
type GmailMessage struct {
	ID            int64
	GmailMsgID    string
	GmailThreadID string
	Sender        string
	Subject       string
	Status        string
	TicketID      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Gmail message statuses.
const (
	GmailStatusProcessing = "processing"
	GmailStatusDone       = "done"
	GmailStatusFailed     = "failed"
)
