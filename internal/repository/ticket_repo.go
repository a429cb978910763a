package repository

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/supportflow/support-agent/internal/models"
)

// TicketRepository handles ticket row operations.
type TicketRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTicketRepository creates a new ticket repository.
func NewTicketRepository(db *sql.DB, logger *zap.Logger) *TicketRepository {
	return &TicketRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new ticket.
func (r *TicketRepository) Create(tx *sql.Tx, t *models.Ticket) error {
	query := `
		INSERT INTO tickets (
			id, customer_id, description, source, status, needs_retry, received_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var err error
	if tx != nil {
		_, err = tx.Exec(query, t.ID, t.CustomerID, t.Description, t.Source, t.Status, t.NeedsRetry, t.ReceivedAt)
	} else {
		_, err = r.db.Exec(query, t.ID, t.CustomerID, t.Description, t.Source, t.Status, t.NeedsRetry, t.ReceivedAt)
	}

	if err != nil {
		r.logger.Error("Failed to create ticket", zap.String("ticket_id", t.ID), zap.Error(err))
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

// GetByID retrieves a ticket by id. Returns nil, nil when not found.
func (r *TicketRepository) GetByID(id string) (*models.Ticket, error) {
	query := `
		SELECT id, customer_id, description, source, status, needs_retry,
			received_at, processed_at, created_at, updated_at
		FROM tickets
		WHERE id = ?
	`

	var t models.Ticket
	var processedAt sql.NullTime

	err := r.db.QueryRow(query, id).Scan(
		&t.ID,
		&t.CustomerID,
		&t.Description,
		&t.Source,
		&t.Status,
		&t.NeedsRetry,
		&t.ReceivedAt,
		&processedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	if processedAt.Valid {
		t.ProcessedAt = &processedAt.Time
	}
	return &t, nil
}

// UpdateStatus updates the ticket status. Terminal statuses also stamp
// processed_at.
func (r *TicketRepository) UpdateStatus(tx *sql.Tx, id, status string, terminal bool) error {
	query := `UPDATE tickets SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	args := []interface{}{status, id}
	if terminal {
		query = `UPDATE tickets SET status = ?, processed_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
		args = []interface{}{status, time.Now(), id}
	}

	var err error
	if tx != nil {
		_, err = tx.Exec(query, args...)
	} else {
		_, err = r.db.Exec(query, args...)
	}

	if err != nil {
		r.logger.Error("Failed to update ticket status", zap.String("ticket_id", id), zap.Error(err))
		return fmt.Errorf("failed to update ticket status: %w", err)
	}
	return nil
}

// SetNeedsRetry flags a ticket whose last stage failed on a service error.
func (r *TicketRepository) SetNeedsRetry(tx *sql.Tx, id string, needsRetry bool) error {
	query := `UPDATE tickets SET needs_retry = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	var err error
	if tx != nil {
		_, err = tx.Exec(query, needsRetry, id)
	} else {
		_, err = r.db.Exec(query, needsRetry, id)
	}

	if err != nil {
		return fmt.Errorf("failed to set needs_retry: %w", err)
	}
	return nil
}

// List returns the most recent tickets, optionally filtered by status.
func (r *TicketRepository) List(status string, limit int) ([]*models.Ticket, error) {
	if status != "" {
		return r.ListByStatus(status, limit)
	}

	query := `
		SELECT id, customer_id, description, source, status, needs_retry,
			received_at, processed_at, created_at, updated_at
		FROM tickets
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	return scanTickets(rows)
}

// ListByStatus returns tickets in a given status, newest first.
func (r *TicketRepository) ListByStatus(status string, limit int) ([]*models.Ticket, error) {
	query := `
		SELECT id, customer_id, description, source, status, needs_retry,
			received_at, processed_at, created_at, updated_at
		FROM tickets
		WHERE status = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	return scanTickets(rows)
}

// ListNeedingRetry returns tickets flagged for retry, oldest first.
func (r *TicketRepository) ListNeedingRetry(limit int) ([]*models.Ticket, error) {
	query := `
		SELECT id, customer_id, description, source, status, needs_retry,
			received_at, processed_at, created_at, updated_at
		FROM tickets
		WHERE needs_retry = 1
		ORDER BY created_at ASC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list retry tickets: %w", err)
	}
	defer rows.Close()

	return scanTickets(rows)
}

func scanTickets(rows *sql.Rows) ([]*models.Ticket, error) {
	var tickets []*models.Ticket
	for rows.Next() {
		var t models.Ticket
		var processedAt sql.NullTime

		if err := rows.Scan(
			&t.ID,
			&t.CustomerID,
			&t.Description,
			&t.Source,
			&t.Status,
			&t.NeedsRetry,
			&t.ReceivedAt,
			&processedAt,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		if processedAt.Valid {
			t.ProcessedAt = &processedAt.Time
		}
		tickets = append(tickets, &t)
	}
	return tickets, rows.Err()
}
