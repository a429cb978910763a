package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/supportflow/support-agent/internal/models"
	"github.com/supportflow/support-agent/internal/repository"
	"github.com/supportflow/support-agent/internal/workflow"
	"github.com/supportflow/support-agent/pkg/utils"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	engine *workflow.Engine
	store  *repository.TicketStore
	audits *repository.AuditRepository
	gmail  *repository.GmailRepository
	logger Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	engine *workflow.Engine,
	store *repository.TicketStore,
	audits *repository.AuditRepository,
	gmail *repository.GmailRepository,
	logger Logger,
) *Handlers {
	return &Handlers{
		engine: engine,
		store:  store,
		audits: audits,
		gmail:  gmail,
		logger: logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CreateTicketRequest is the body of POST /api/tickets
type CreateTicketRequest struct {
	Description string `json:"description" binding:"required"`
	CustomerID  string `json:"customer_id"`
}

// ResumeTicketRequest is the body of POST /api/tickets/:id/resume
type ResumeTicketRequest struct {
	Approve bool   `json:"approve"`
	Comment string `json:"comment"`
	Message string `json:"message"`
}

// GmailPushRequest is the body of POST /api/gmail/push
type GmailPushRequest struct {
	MessageID string `json:"message_id" binding:"required"`
	ThreadID  string `json:"thread_id"`
	Sender    string `json:"sender"`
	Subject   string `json:"subject"`
	Body      string `json:"body" binding:"required"`
}

// OutcomeResponse reports how far the engine drove a ticket.
type OutcomeResponse struct {
	TicketID  string `json:"ticket_id"`
	Status    string `json:"status"`
	Interrupt string `json:"interrupt,omitempty"`
	Terminal  string `json:"terminal,omitempty"`
	Failure   string `json:"failure,omitempty"`
}

func outcomeResponse(o workflow.StageOutcome) OutcomeResponse {
	return OutcomeResponse{
		TicketID:  o.TicketID,
		Status:    string(o.Status),
		Interrupt: string(o.Interrupt),
		Terminal:  o.Terminal.String(),
		Failure:   string(o.Failure),
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// CreateTicket handles POST /api/tickets
func (h *Handlers) CreateTicket(c *gin.Context) {
	var req CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "description is required",
		})
		return
	}

	_, outcome, err := h.engine.Start(c.Request.Context(), req.Description, workflow.Metadata{
		CustomerID: req.CustomerID,
		Source:     models.SourceAPI,
	})
	if err != nil {
		h.logger.Error("Failed to start ticket", "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to create ticket",
		})
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: outcome.Status != workflow.OutcomeFailed,
		Data:    outcomeResponse(outcome),
	})
}

// ListTickets handles GET /api/tickets
func (h *Handlers) ListTickets(c *gin.Context) {
	status := c.Query("status")

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "limit must be a positive integer"})
			return
		}
		if parsed > 200 {
			parsed = 200
		}
		limit = parsed
	}

	tickets, err := h.store.ListTickets(c.Request.Context(), status, limit)
	if err != nil {
		h.logger.Error("Failed to list tickets", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to list tickets"})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    gin.H{"tickets": tickets, "count": len(tickets)},
	})
}

// GetTicket handles GET /api/tickets/:id
func (h *Handlers) GetTicket(c *gin.Context) {
	id := c.Param("id")

	ticket, err := h.store.GetTicket(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load ticket", "ticket_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to load ticket"})
		return
	}
	if ticket == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "ticket not found"})
		return
	}

	state, err := h.engine.CurrentState(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load ticket state", "ticket_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to load ticket state"})
		return
	}

	interrupt, err := h.engine.PendingInterrupt(c.Request.Context(), id)
	if err != nil {
		interrupt = nil
	}

	events, err := h.audits.ListByTicket(id)
	if err != nil {
		h.logger.Error("Failed to load audit trail", "ticket_id", id, "error", err)
		events = nil
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"ticket":    ticket,
			"state":     state,
			"interrupt": interrupt,
			"audit":     events,
		},
	})
}

// ResumeTicket handles POST /api/tickets/:id/resume
func (h *Handlers) ResumeTicket(c *gin.Context) {
	id := c.Param("id")

	var req ResumeTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	outcome, err := h.engine.Resume(c.Request.Context(), id, workflow.InterruptResponse{
		Approve: req.Approve,
		Comment: req.Comment,
		Message: req.Message,
	})
	if err != nil {
		switch {
		case errors.Is(err, workflow.ErrTicketNotFound):
			c.JSON(http.StatusNotFound, Response{Success: false, Error: "ticket not found"})
		case errors.Is(err, workflow.ErrNotSuspended):
			c.JSON(http.StatusConflict, Response{Success: false, Error: "ticket is not waiting for input"})
		case errors.Is(err, workflow.ErrClarificationRequired):
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "message text is required to resume this ticket"})
		default:
			h.logger.Error("Failed to resume ticket", "ticket_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to resume ticket"})
		}
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: outcome.Status != workflow.OutcomeFailed,
		Data:    outcomeResponse(outcome),
	})
}

// GmailPush handles POST /api/gmail/push. A message id is processed at most
// once: redeliveries of a claimed id are acknowledged without a new ticket.
func (h *Handlers) GmailPush(c *gin.Context) {
	var req GmailPushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "message_id and body are required"})
		return
	}
	if req.Sender != "" {
		if err := utils.ValidateEmail(req.Sender); err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid sender address"})
			return
		}
	}
	req.Subject = utils.SanitizeString(req.Subject)

	msg := &models.GmailMessage{
		GmailMsgID:    req.MessageID,
		GmailThreadID: req.ThreadID,
		Sender:        req.Sender,
		Subject:       req.Subject,
	}

	claimed, err := h.gmail.Claim(msg)
	if err != nil {
		h.logger.Error("Failed to claim gmail message", "gmail_msg_id", req.MessageID, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to claim message"})
		return
	}
	if !claimed {
		c.JSON(http.StatusOK, Response{
			Success: true,
			Data:    gin.H{"duplicate": true},
		})
		return
	}

	text := req.Body
	if req.Subject != "" {
		text = req.Subject + "\n\n" + req.Body
	}

	ticketID, outcome, err := h.engine.Start(c.Request.Context(), text, workflow.Metadata{
		CustomerID: req.Sender,
		Source:     models.SourceGmail,
	})
	if err != nil {
		h.logger.Error("Failed to start ticket from gmail", "gmail_msg_id", req.MessageID, "error", err)
		if failErr := h.gmail.Fail(req.MessageID); failErr != nil {
			h.logger.Error("Failed to mark gmail message failed", "gmail_msg_id", req.MessageID, "error", failErr)
		}
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to process message"})
		return
	}

	if err := h.gmail.Complete(req.MessageID, ticketID); err != nil {
		h.logger.Error("Failed to complete gmail message", "gmail_msg_id", req.MessageID, "error", err)
	}

	c.JSON(http.StatusCreated, Response{
		Success: outcome.Status != workflow.OutcomeFailed,
		Data:    outcomeResponse(outcome),
	})
}
