package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/supportflow/support-agent/internal/agent"
	"github.com/supportflow/support-agent/internal/workflow"
)

// StateRepository persists ticket checkpoints: the workflow status, the
// serialized state record, the clarification resume target, and any pending
// interrupt.
type StateRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStateRepository creates a new state repository.
func NewStateRepository(db *sql.DB, logger *zap.Logger) *StateRepository {
	return &StateRepository{
		db:     db,
		logger: logger,
	}
}

// Save upserts the checkpoint for a ticket.
func (r *StateRepository) Save(tx *sql.Tx, ticketID string, cp *workflow.Checkpoint) error {
	stateJSON, err := json.Marshal(cp.State)
	if err != nil {
		return fmt.Errorf("failed to marshal ticket state: %w", err)
	}

	var interruptJSON sql.NullString
	if cp.Interrupt != nil {
		data, err := json.Marshal(cp.Interrupt)
		if err != nil {
			return fmt.Errorf("failed to marshal interrupt: %w", err)
		}
		interruptJSON = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO ticket_states (ticket_id, status, resume_to, state_json, interrupt_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(ticket_id) DO UPDATE SET
			status = excluded.status,
			resume_to = excluded.resume_to,
			state_json = excluded.state_json,
			interrupt_json = excluded.interrupt_json,
			updated_at = CURRENT_TIMESTAMP
	`

	if tx != nil {
		_, err = tx.Exec(query, ticketID, string(cp.Status), string(cp.ResumeTo), string(stateJSON), interruptJSON)
	} else {
		_, err = r.db.Exec(query, ticketID, string(cp.Status), string(cp.ResumeTo), string(stateJSON), interruptJSON)
	}

	if err != nil {
		r.logger.Error("Failed to save checkpoint", zap.String("ticket_id", ticketID), zap.Error(err))
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load retrieves the checkpoint for a ticket. Returns nil, nil when the
// ticket has no checkpoint.
func (r *StateRepository) Load(ticketID string) (*workflow.Checkpoint, error) {
	query := `
		SELECT status, resume_to, state_json, interrupt_json
		FROM ticket_states
		WHERE ticket_id = ?
	`

	var status, resumeTo, stateJSON string
	var interruptJSON sql.NullString

	err := r.db.QueryRow(query, ticketID).Scan(&status, &resumeTo, &stateJSON, &interruptJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	var state agent.TicketState
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ticket state: %w", err)
	}

	cp := &workflow.Checkpoint{
		Status:   workflow.State(status),
		ResumeTo: workflow.State(resumeTo),
		State:    &state,
	}

	if interruptJSON.Valid && interruptJSON.String != "" {
		var interrupt workflow.InterruptRequest
		if err := json.Unmarshal([]byte(interruptJSON.String), &interrupt); err != nil {
			return nil, fmt.Errorf("failed to unmarshal interrupt: %w", err)
		}
		cp.Interrupt = &interrupt
	}

	return cp, nil
}
