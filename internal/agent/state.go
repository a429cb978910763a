// Package agent defines the conversational state record threaded through the
// ticket workflow. The record is mutated by exactly one workflow stage at a
// time and checkpointed at every stage boundary; messages are append-only.
package agent

import (
	"encoding/json"
	"fmt"
)

// MessageKind discriminates the message union.
type MessageKind string

const (
	MessageHuman      MessageKind = "human"
	MessageAgent      MessageKind = "agent"
	MessageToolResult MessageKind = "tool_result"
)

// Message is one entry in the ticket conversation. A MessageAgent entry with
// a non-empty ToolName is a tool-call request; the correlated MessageToolResult
// entry carries the same ToolCallID.
type Message struct {
	Kind       MessageKind            `json:"kind"`
	Content    string                 `json:"content"`
	ToolCallID string                 `json:"tool_call_id,omitempty"`
	ToolName   string                 `json:"tool_name,omitempty"`
	ToolArgs   map[string]interface{} `json:"tool_args,omitempty"`
}

// NewHumanMessage creates a customer message entry.
func NewHumanMessage(content string) Message {
	return Message{Kind: MessageHuman, Content: content}
}

// NewAgentMessage creates a plain agent reasoning entry.
func NewAgentMessage(content string) Message {
	return Message{Kind: MessageAgent, Content: content}
}

// NewToolRequest creates an agent entry requesting a tool call.
func NewToolRequest(callID, name string, args map[string]interface{}) Message {
	return Message{
		Kind:       MessageAgent,
		Content:    fmt.Sprintf("Calling %s", name),
		ToolCallID: callID,
		ToolName:   name,
		ToolArgs:   args,
	}
}

// NewToolResult creates the result entry correlated to a tool-call request.
func NewToolResult(callID, name, output string) Message {
	return Message{
		Kind:       MessageToolResult,
		Content:    output,
		ToolCallID: callID,
		ToolName:   name,
	}
}

// IsToolRequest reports whether the message is an agent tool-call request.
func (m Message) IsToolRequest() bool {
	return m.Kind == MessageAgent && m.ToolName != ""
}

// Approval is the tri-state outcome of a human interrupt. The zero value
// means no interrupt has been raised for the ticket.
type Approval string

const (
	ApprovalNone     Approval = ""
	ApprovalPending  Approval = "pending"
	ApprovalApproved Approval = "approved"
	ApprovalRejected Approval = "rejected"
)

// Tier is the support escalation level.
type Tier string

const (
	TierNone Tier = ""
	TierL1   Tier = "L1"
	TierL2   Tier = "L2"
	TierL3   Tier = "L3"
)

// PolicySelection is the policy chosen for a ticket, with the matcher's
// applicability rationale. Immutable once set.
type PolicySelection struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Rationale   string `json:"rationale"`
}

// StageReasoning is one entry of the insertion-ordered stage reasoning log.
type StageReasoning struct {
	Stage string `json:"stage"`
	Text  string `json:"text"`
}

// ThoughtStep is one free-text decision note.
type ThoughtStep struct {
	Step      string `json:"step"`
	Reasoning string `json:"reasoning"`
	Output    string `json:"output"`
}

// TicketState is the single mutable record carried through the workflow.
type TicketState struct {
	Messages []Message `json:"messages"`

	IsSupportTicket bool   `json:"is_support_ticket"`
	QueryOrIssue    string `json:"query_or_issue,omitempty"` // "query" or "issue"

	OrderID       string `json:"order_id,omitempty"`
	HasOrderID    bool   `json:"has_order_id"`
	ProductsCache string `json:"products_cache,omitempty"`

	Tier     Tier     `json:"tier,omitempty"`
	Approved Approval `json:"approved,omitempty"`

	ProblemTypes []string         `json:"problem_types,omitempty"`
	Policy       *PolicySelection `json:"policy,omitempty"`

	ActionTaken         string `json:"action_taken,omitempty"`
	Reason              string `json:"reason,omitempty"`
	EmailReply          string `json:"email_reply,omitempty"`
	RequiresHumanReview bool   `json:"requires_human_review"`

	Reasoning      []StageReasoning `json:"reasoning,omitempty"`
	ThoughtProcess []ThoughtStep    `json:"thought_process,omitempty"`

	// ExecutedActions maps a critical tool name to the tool-call id of its
	// already-approved execution. Guards against re-issuing refund/resend.
	ExecutedActions map[string]string `json:"executed_actions,omitempty"`
}

// NewTicketState creates the initial state for an ingested ticket.
func NewTicketState(description string) *TicketState {
	return &TicketState{
		Messages: []Message{NewHumanMessage(description)},
	}
}

// Append adds messages to the conversation. Entries are never reordered or
// removed after this point.
func (s *TicketState) Append(msgs ...Message) {
	s.Messages = append(s.Messages, msgs...)
}

// FirstHumanMessage returns the original ticket text, or empty if none.
func (s *TicketState) FirstHumanMessage() string {
	for _, m := range s.Messages {
		if m.Kind == MessageHuman {
			return m.Content
		}
	}
	return ""
}

// LastHumanMessage returns the most recent customer message, or empty.
func (s *TicketState) LastHumanMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Kind == MessageHuman {
			return s.Messages[i].Content
		}
	}
	return ""
}

// SetReasoning appends the reasoning produced by a stage. Each stage records
// its reasoning exactly once; a second write for the same stage is an error.
func (s *TicketState) SetReasoning(stage, text string) error {
	for _, r := range s.Reasoning {
		if r.Stage == stage {
			return fmt.Errorf("reasoning for stage %q already recorded", stage)
		}
	}
	s.Reasoning = append(s.Reasoning, StageReasoning{Stage: stage, Text: text})
	return nil
}

// ReasoningFor returns the reasoning recorded for a stage, or empty.
func (s *TicketState) ReasoningFor(stage string) string {
	for _, r := range s.Reasoning {
		if r.Stage == stage {
			return r.Text
		}
	}
	return ""
}

// AddThought appends a decision note to the thought process.
func (s *TicketState) AddThought(step, reasoning, output string) {
	s.ThoughtProcess = append(s.ThoughtProcess, ThoughtStep{
		Step:      step,
		Reasoning: reasoning,
		Output:    output,
	})
}

// RecordExecutedAction marks a critical tool as executed for this ticket.
func (s *TicketState) RecordExecutedAction(toolName, callID string) {
	if s.ExecutedActions == nil {
		s.ExecutedActions = make(map[string]string)
	}
	s.ExecutedActions[toolName] = callID
}

// ExecutedAction returns the call id of an already-executed critical tool.
func (s *TicketState) ExecutedAction(toolName string) (string, bool) {
	id, ok := s.ExecutedActions[toolName]
	return id, ok
}

// PendingToolRequest returns the most recent tool-call request that has no
// correlated result yet, or nil if the conversation is balanced.
func (s *TicketState) PendingToolRequest() *Message {
	answered := make(map[string]bool)
	for _, m := range s.Messages {
		if m.Kind == MessageToolResult && m.ToolCallID != "" {
			answered[m.ToolCallID] = true
		}
	}
	for i := len(s.Messages) - 1; i >= 0; i-- {
		m := s.Messages[i]
		if m.IsToolRequest() && !answered[m.ToolCallID] {
			req := m
			return &req
		}
	}
	return nil
}

// Clone returns a deep copy of the state. Used for interrupt snapshots so a
// suspended checkpoint cannot be mutated by later stage code.
func (s *TicketState) Clone() *TicketState {
	data, err := json.Marshal(s)
	if err != nil {
		// The state is composed of plain JSON-serializable values; a
		// marshal failure here means a programming error.
		panic(fmt.Sprintf("agent: clone ticket state: %v", err))
	}
	var out TicketState
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("agent: clone ticket state: %v", err))
	}
	return &out
}
