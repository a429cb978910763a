package repository

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/supportflow/support-agent/internal/models"
	"github.com/supportflow/support-agent/internal/workflow"
	"github.com/supportflow/support-agent/pkg/database"
)

// TicketStore implements workflow.Store over the sqlite repositories. Every
// checkpoint write couples the ticket status row and the state row in one
// transaction so the two can never disagree.
type TicketStore struct {
	db      *database.DB
	tickets *TicketRepository
	states  *StateRepository
	audits  *AuditRepository
	logger  *zap.Logger
}

// NewTicketStore creates the durable ticket store.
func NewTicketStore(
	db *database.DB,
	tickets *TicketRepository,
	states *StateRepository,
	audits *AuditRepository,
	logger *zap.Logger,
) *TicketStore {
	return &TicketStore{
		db:      db,
		tickets: tickets,
		states:  states,
		audits:  audits,
		logger:  logger,
	}
}

// CreateTicket inserts the ticket row and its initial checkpoint atomically.
func (s *TicketStore) CreateTicket(ctx context.Context, t *models.Ticket, cp *workflow.Checkpoint) error {
	return s.db.WithTransaction(func(tx *sql.Tx) error {
		if err := s.tickets.Create(tx, t); err != nil {
			return err
		}
		return s.states.Save(tx, t.ID, cp)
	})
}

// GetTicket returns the ticket row, or nil when unknown.
func (s *TicketStore) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	return s.tickets.GetByID(id)
}

// LoadCheckpoint returns the durable checkpoint, or nil when unknown.
func (s *TicketStore) LoadCheckpoint(ctx context.Context, id string) (*workflow.Checkpoint, error) {
	return s.states.Load(id)
}

// SaveCheckpoint persists the checkpoint and mirrors the status onto the
// ticket row, with a transition audit entry, in one transaction.
func (s *TicketStore) SaveCheckpoint(ctx context.Context, id string, cp *workflow.Checkpoint) error {
	return s.db.WithTransaction(func(tx *sql.Tx) error {
		if err := s.states.Save(tx, id, cp); err != nil {
			return err
		}
		if err := s.tickets.UpdateStatus(tx, id, string(cp.Status), cp.Status.IsTerminal()); err != nil {
			return err
		}
		return s.audits.Append(tx, &models.AuditEvent{
			TicketID: id,
			Kind:     models.AuditTransition,
			ToStatus: cp.Status.String(),
			Detail:   "checkpoint",
		})
	})
}

// ListTickets returns recent tickets, optionally filtered by status.
func (s *TicketStore) ListTickets(ctx context.Context, status string, limit int) ([]*models.Ticket, error) {
	return s.tickets.List(status, limit)
}

// MarkNeedsRetry flags the ticket for retry after a service failure.
func (s *TicketStore) MarkNeedsRetry(ctx context.Context, id string) error {
	return s.tickets.SetNeedsRetry(nil, id, true)
}

// AppendAudit appends one audit event outside any transaction.
func (s *TicketStore) AppendAudit(ctx context.Context, id string, event *models.AuditEvent) error {
	return s.audits.Append(nil, event)
}
