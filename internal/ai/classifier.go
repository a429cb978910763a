// Package ai implements the LLM-backed classification and resolution
// services on top of the OpenAI chat completions API.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/supportflow/support-agent/internal/workflow"
)

// Classifier labels text against a fixed label set via the chat API.
// Labels outside the supplied set are rejected, never passed through.
type Classifier struct {
	client *openai.Client
	model  string
	temp   float32
	logger *zap.Logger
}

// NewClassifier creates an LLM classifier.
func NewClassifier(client *openai.Client, model string, temperature float32, logger *zap.Logger) *Classifier {
	return &Classifier{
		client: client,
		model:  model,
		temp:   temperature,
		logger: logger,
	}
}

type classifyResponse struct {
	Label     string `json:"label"`
	Reasoning string `json:"reasoning"`
}

type classifyMultiResponse struct {
	Labels    []string `json:"labels"`
	Reasoning string   `json:"reasoning"`
}

// Classify implements workflow.Classifier.
func (c *Classifier) Classify(ctx context.Context, text, contextInfo string, labels []string) (workflow.ClassifyResult, error) {
	prompt := fmt.Sprintf(`%s

Text to classify:
%s

Respond with ONLY a valid JSON object (no markdown, no explanation):
{
  "label": one of [%s],
  "reasoning": string explaining the classification
}`, contextInfo, text, quoteLabels(labels))

	content, err := c.complete(ctx, prompt)
	if err != nil {
		return workflow.ClassifyResult{}, err
	}

	var parsed classifyResponse
	if err := c.parseJSON(content, &parsed); err != nil {
		// Last resort: scan the raw content for exactly one known label.
		if label, ok := scanForLabel(content, labels); ok {
			c.logger.Warn("Classifier response was not JSON, recovered label by scan",
				zap.String("label", label))
			return workflow.ClassifyResult{Label: label, Reasoning: strings.TrimSpace(content)}, nil
		}
		return workflow.ClassifyResult{}, fmt.Errorf("parse classification: %w", err)
	}

	if !containsLabel(labels, parsed.Label) {
		return workflow.ClassifyResult{}, fmt.Errorf("classifier returned label %q outside the allowed set", parsed.Label)
	}
	if parsed.Reasoning == "" {
		return workflow.ClassifyResult{}, fmt.Errorf("classifier returned no reasoning for label %q", parsed.Label)
	}

	return workflow.ClassifyResult{Label: parsed.Label, Reasoning: parsed.Reasoning}, nil
}

// ClassifyMulti implements workflow.Classifier.
func (c *Classifier) ClassifyMulti(ctx context.Context, text, contextInfo string, labels []string) (workflow.MultiClassifyResult, error) {
	prompt := fmt.Sprintf(`%s

Text to classify:
%s

Respond with ONLY a valid JSON object (no markdown, no explanation):
{
  "labels": array with one or more of [%s],
  "reasoning": string explaining the classification
}`, contextInfo, text, quoteLabels(labels))

	content, err := c.complete(ctx, prompt)
	if err != nil {
		return workflow.MultiClassifyResult{}, err
	}

	var parsed classifyMultiResponse
	if err := c.parseJSON(content, &parsed); err != nil {
		return workflow.MultiClassifyResult{}, fmt.Errorf("parse multi classification: %w", err)
	}

	for _, label := range parsed.Labels {
		if !containsLabel(labels, label) {
			return workflow.MultiClassifyResult{}, fmt.Errorf("classifier returned label %q outside the allowed set", label)
		}
	}
	if parsed.Reasoning == "" {
		return workflow.MultiClassifyResult{}, fmt.Errorf("classifier returned no reasoning")
	}

	return workflow.MultiClassifyResult{Labels: parsed.Labels, Reasoning: parsed.Reasoning}, nil
}

func (c *Classifier) complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temp,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a precise classifier for a customer support system. Always respond with valid JSON only.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Error("OpenAI API call failed", zap.Error(err))
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}

// parseJSON tries direct unmarshalling first, then falls back to extracting
// a JSON object from markdown or prose.
func (c *Classifier) parseJSON(content string, out interface{}) error {
	if err := json.Unmarshal([]byte(content), out); err == nil {
		return nil
	}

	extracted, ok := extractJSON(content)
	if !ok {
		return fmt.Errorf("no JSON object in response")
	}
	if err := json.Unmarshal([]byte(extracted), out); err != nil {
		return fmt.Errorf("extracted JSON did not parse: %w", err)
	}

	c.logger.Debug("Extracted JSON from non-JSON response")
	return nil
}

func quoteLabels(labels []string) string {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = fmt.Sprintf("%q", l)
	}
	return strings.Join(quoted, ", ")
}

func containsLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

// scanForLabel returns the label if exactly one allowed label appears in the
// content.
func scanForLabel(content string, labels []string) (string, bool) {
	lower := strings.ToLower(content)
	var found []string
	for _, l := range labels {
		if strings.Contains(lower, strings.ToLower(l)) {
			found = append(found, l)
		}
	}
	if len(found) == 1 {
		return found[0], true
	}
	return "", false
}
