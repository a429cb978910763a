package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/supportflow/support-agent/internal/models"
)

// AuditRepository appends to and reads a ticket's decision trail. Events are
// insert-only; there is no update path.
type AuditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db *sql.DB, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Append inserts one audit event.
func (r *AuditRepository) Append(tx *sql.Tx, event *models.AuditEvent) error {
	query := `
		INSERT INTO audit_events (ticket_id, kind, from_status, to_status, detail)
		VALUES (?, ?, ?, ?, ?)
	`

	var result sql.Result
	var err error

	if tx != nil {
		result, err = tx.Exec(query, event.TicketID, event.Kind, event.FromStatus, event.ToStatus, event.Detail)
	} else {
		result, err = r.db.Exec(query, event.TicketID, event.Kind, event.FromStatus, event.ToStatus, event.Detail)
	}

	if err != nil {
		r.logger.Error("Failed to append audit event", zap.String("ticket_id", event.TicketID), zap.Error(err))
		return fmt.Errorf("failed to append audit event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	event.ID = id
	return nil
}

// ListByTicket returns a ticket's audit trail in insertion order.
func (r *AuditRepository) ListByTicket(ticketID string) ([]*models.AuditEvent, error) {
	query := `
		SELECT id, ticket_id, kind, from_status, to_status, detail, created_at
		FROM audit_events
		WHERE ticket_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.Query(query, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []*models.AuditEvent
	for rows.Next() {
		var e models.AuditEvent
		if err := rows.Scan(&e.ID, &e.TicketID, &e.Kind, &e.FromStatus, &e.ToStatus, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
