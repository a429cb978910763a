package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		ok      bool
	}{
		{
			name:    "bare object",
			content: `{"label": "issue"}`,
			want:    `{"label": "issue"}`,
			ok:      true,
		},
		{
			name:    "markdown fenced",
			content: "```json\n{\"label\": \"query\"}\n```",
			want:    `{"label": "query"}`,
			ok:      true,
		},
		{
			name:    "surrounded by prose",
			content: `Sure, here is the result: {"label": "issue", "reasoning": "broken item"} hope that helps`,
			want:    `{"label": "issue", "reasoning": "broken item"}`,
			ok:      true,
		},
		{
			name:    "nested objects",
			content: `{"a": {"b": {"c": 1}}}`,
			want:    `{"a": {"b": {"c": 1}}}`,
			ok:      true,
		},
		{
			name:    "braces inside strings",
			content: `{"text": "use {curly} braces"}`,
			want:    `{"text": "use {curly} braces"}`,
			ok:      true,
		},
		{
			name:    "escaped quotes inside strings",
			content: `{"text": "she said \"hi\" to me"}`,
			want:    `{"text": "she said \"hi\" to me"}`,
			ok:      true,
		},
		{
			name:    "no object at all",
			content: "plain prose answer",
			ok:      false,
		},
		{
			name:    "unterminated object",
			content: `{"label": "issue"`,
			ok:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractJSON(tt.content)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestScanForLabel(t *testing.T) {
	labels := []string{"query", "issue"}

	label, ok := scanForLabel("this is clearly an ISSUE with the order", labels)
	require.True(t, ok)
	assert.Equal(t, "issue", label)

	// Ambiguous content matches nothing.
	_, ok = scanForLabel("could be a query or an issue", labels)
	assert.False(t, ok)

	_, ok = scanForLabel("no labels here", labels)
	assert.False(t, ok)
}

func TestQuoteLabels(t *testing.T) {
	assert.Equal(t, `"L1", "L2", "L3"`, quoteLabels([]string{"L1", "L2", "L3"}))
}
