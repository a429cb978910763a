package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/supportflow/support-agent/internal/agent"
	"github.com/supportflow/support-agent/internal/workflow"
)

// Resolver drives the tool-loop decisions via the chat API with function
// calling. Tool requests come back as native tool calls; everything else is
// a JSON decision envelope.
type Resolver struct {
	client *openai.Client
	model  string
	temp   float32
	specs  []workflow.ToolSpec
	logger *zap.Logger
}

// NewResolver creates an LLM resolver over the given tool specs.
func NewResolver(client *openai.Client, model string, temperature float32, specs []workflow.ToolSpec, logger *zap.Logger) *Resolver {
	return &Resolver{
		client: client,
		model:  model,
		temp:   temperature,
		specs:  specs,
		logger: logger,
	}
}

// decisionEnvelope is the non-tool-call response format.
type decisionEnvelope struct {
	Type        string `json:"type"` // "final", "clarify", or "escalate"
	ActionTaken string `json:"action_taken,omitempty"`
	Reason      string `json:"reason,omitempty"`
	EmailBody   string `json:"email_body,omitempty"`
	Question    string `json:"question,omitempty"`
	Reasoning   string `json:"reasoning,omitempty"`
}

// Decide implements workflow.Resolver.
func (r *Resolver) Decide(ctx context.Context, messages []agent.Message, task workflow.ResolutionTask) (workflow.Decision, error) {
	req := openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: r.temp,
		Messages:    r.buildMessages(messages, task),
		Tools:       r.buildTools(),
	}

	resp, err := r.client.CreateChatCompletion(ctx, req)
	if err != nil {
		r.logger.Error("OpenAI API call failed", zap.Error(err))
		return workflow.Decision{}, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return workflow.Decision{}, fmt.Errorf("no response from OpenAI")
	}

	msg := resp.Choices[0].Message

	if len(msg.ToolCalls) > 0 {
		tc := msg.ToolCalls[0]

		var args map[string]interface{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return workflow.Decision{}, fmt.Errorf("parse tool arguments for %s: %w", tc.Function.Name, err)
			}
		}

		return workflow.Decision{
			Kind: workflow.DecisionToolCall,
			ToolCall: &workflow.ToolCallRequest{
				ID:   tc.ID,
				Name: tc.Function.Name,
				Args: args,
			},
			Reasoning: msg.Content,
		}, nil
	}

	return r.parseEnvelope(msg.Content)
}

func (r *Resolver) parseEnvelope(content string) (workflow.Decision, error) {
	var env decisionEnvelope

	raw := content
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		extracted, ok := extractJSON(content)
		if !ok || json.Unmarshal([]byte(extracted), &env) != nil {
			// The model answered in prose. Treat it as a final resolution
			// and infer the action from the text.
			r.logger.Warn("Resolver response was not a decision envelope, treating as final",
				zap.String("content", content))
			action := "Resend item"
			if strings.Contains(strings.ToLower(content), "refund") {
				action = "Refund issued"
			}
			return workflow.Decision{
				Kind:  workflow.DecisionFinal,
				Final: &workflow.Resolution{ActionTaken: action, Reason: strings.TrimSpace(content)},
			}, nil
		}
	}

	switch env.Type {
	case "clarify":
		if env.Question == "" {
			return workflow.Decision{}, fmt.Errorf("clarify decision without a question")
		}
		return workflow.Decision{
			Kind:      workflow.DecisionClarify,
			Question:  env.Question,
			Reasoning: env.Reasoning,
		}, nil

	case "escalate":
		return workflow.Decision{
			Kind:      workflow.DecisionEscalate,
			Reasoning: firstNonEmpty(env.Reasoning, env.Reason),
		}, nil

	case "final":
		if env.ActionTaken == "" {
			return workflow.Decision{}, fmt.Errorf("final decision without action_taken")
		}
		return workflow.Decision{
			Kind: workflow.DecisionFinal,
			Final: &workflow.Resolution{
				ActionTaken: env.ActionTaken,
				Reason:      env.Reason,
				EmailBody:   env.EmailBody,
			},
			Reasoning: env.Reasoning,
		}, nil

	default:
		return workflow.Decision{}, fmt.Errorf("unknown decision type %q", env.Type)
	}
}

func (r *Resolver) buildMessages(messages []agent.Message, task workflow.ResolutionTask) []openai.ChatCompletionMessage {
	out := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: r.buildSystemPrompt(task),
		},
	}

	for _, m := range messages {
		switch {
		case m.Kind == agent.MessageHuman:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: m.Content,
			})

		case m.IsToolRequest():
			args, _ := json.Marshal(m.ToolArgs)
			out = append(out, openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{
					{
						ID:   m.ToolCallID,
						Type: openai.ToolTypeFunction,
						Function: openai.FunctionCall{
							Name:      m.ToolName,
							Arguments: string(args),
						},
					},
				},
			})

		case m.Kind == agent.MessageToolResult:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})

		default:
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: m.Content,
			})
		}
	}

	return out
}

func (r *Resolver) buildSystemPrompt(task workflow.ResolutionTask) string {
	var b strings.Builder

	b.WriteString("You are a customer support resolution agent. Resolve the ticket by applying the selected policy through the available tools.\n\n")

	fmt.Fprintf(&b, "Selected policy: %s\n%s\n\n", task.Policy.Name, task.Policy.Description)
	if len(task.ProblemTypes) > 0 {
		fmt.Fprintf(&b, "Identified problems: %s\n\n", strings.Join(task.ProblemTypes, ", "))
	}
	if task.ProductsContext != "" {
		b.WriteString(task.ProductsContext)
		b.WriteString("\n")
	}
	if task.HasOrderID {
		fmt.Fprintf(&b, "Verified order id: %s\n\n", task.OrderID)
	} else {
		b.WriteString("No verified order id is available; ask the customer for any order details you need.\n\n")
	}

	b.WriteString(`Rules:
- Before resending an item, check its stock. Resend when in stock; refund when it is not.
- refund_customer and resend_item require human approval and may each run at most once per ticket. Never request one that already executed.
- When you have enough information, respond with ONLY a JSON object:
  {"type": "final", "action_taken": string, "reason": string, "email_body": string}
- To ask the customer a question: {"type": "clarify", "question": string}
- To hand the ticket to a human: {"type": "escalate", "reasoning": string}`)

	return b.String()
}

func (r *Resolver) buildTools() []openai.Tool {
	tools := make([]openai.Tool, 0, len(r.specs))
	for _, spec := range r.specs {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  spec.Parameters,
			},
		})
	}
	return tools
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
