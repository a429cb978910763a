package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/supportflow/support-agent/internal/models"
)

// GmailRepository tracks claimed inbound Gmail messages. The unique index on
// gmail_msg_id makes the claim atomic: whoever inserts the row owns the
// message.
type GmailRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewGmailRepository creates a new Gmail message repository.
func NewGmailRepository(db *sql.DB, logger *zap.Logger) *GmailRepository {
	return &GmailRepository{
		db:     db,
		logger: logger,
	}
}

// Claim inserts a processing row for the message id. Returns false when the
// message was already claimed.
func (r *GmailRepository) Claim(msg *models.GmailMessage) (bool, error) {
	query := `
		INSERT INTO gmail_messages (gmail_msg_id, gmail_thread_id, sender, subject, status)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query, msg.GmailMsgID, msg.GmailThreadID, msg.Sender, msg.Subject, models.GmailStatusProcessing)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			r.logger.Debug("Gmail message already claimed", zap.String("gmail_msg_id", msg.GmailMsgID))
			return false, nil
		}
		return false, fmt.Errorf("failed to claim gmail message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("failed to get last insert id: %w", err)
	}
	msg.ID = id
	msg.Status = models.GmailStatusProcessing
	return true, nil
}

// Complete marks a claimed message done and links the ticket it produced.
func (r *GmailRepository) Complete(gmailMsgID, ticketID string) error {
	query := `
		UPDATE gmail_messages
		SET status = ?, ticket_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE gmail_msg_id = ?
	`

	if _, err := r.db.Exec(query, models.GmailStatusDone, ticketID, gmailMsgID); err != nil {
		return fmt.Errorf("failed to complete gmail message: %w", err)
	}
	return nil
}

// Fail marks a claimed message failed so it shows up in triage. The claim is
// not released; redelivery of the same message id stays a no-op.
func (r *GmailRepository) Fail(gmailMsgID string) error {
	query := `
		UPDATE gmail_messages
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE gmail_msg_id = ?
	`

	if _, err := r.db.Exec(query, models.GmailStatusFailed, gmailMsgID); err != nil {
		return fmt.Errorf("failed to mark gmail message failed: %w", err)
	}
	return nil
}

// GetByMsgID retrieves a claimed message. Returns nil, nil when unknown.
func (r *GmailRepository) GetByMsgID(gmailMsgID string) (*models.GmailMessage, error) {
	query := `
		SELECT id, gmail_msg_id, gmail_thread_id, sender, subject, status,
			COALESCE(ticket_id, ''), created_at, updated_at
		FROM gmail_messages
		WHERE gmail_msg_id = ?
	`

	var m models.GmailMessage
	err := r.db.QueryRow(query, gmailMsgID).Scan(
		&m.ID,
		&m.GmailMsgID,
		&m.GmailThreadID,
		&m.Sender,
		&m.Subject,
		&m.Status,
		&m.TicketID,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gmail message: %w", err)
	}
	return &m, nil
}
