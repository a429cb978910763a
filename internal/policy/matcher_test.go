package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/supportflow/support-agent/internal/workflow"
)

func TestDiceScorer(t *testing.T) {
	s := DiceScorer{}

	assert.Equal(t, 1.0, s.Score("night", "night"))
	assert.Equal(t, 0.0, s.Score("abc", "xyz"))
	assert.Equal(t, 0.0, s.Score("", "anything"))

	// Classic Dice example: "night" vs "nacht" share one bigram of four each.
	assert.InDelta(t, 0.25, s.Score("night", "nacht"), 0.001)

	// Case insensitive.
	assert.Equal(t, 1.0, s.Score("Night", "night"))
}

func TestMatcherSelectsByProblemOverlap(t *testing.T) {
	m := NewMatcher(DefaultCatalog(), DiceScorer{}, 0.4, zap.NewNop())

	tests := []struct {
		name     string
		problems []string
		issue    string
		want     string
	}{
		{
			name:     "damaged maps to damaged policy",
			problems: []string{"damaged"},
			issue:    "my earbuds arrived with a cracked case",
			want:     "Damaged or Defective Item Policy",
		},
		{
			name:     "missing maps to missing policy",
			problems: []string{"missing"},
			issue:    "the hub was not in the box",
			want:     "Missing Item Policy",
		},
		{
			name:     "wrong item maps to wrong item policy",
			problems: []string{"wrong-item"},
			issue:    "I ordered a keyboard and got a watch",
			want:     "Wrong Item Shipped Policy",
		},
		{
			name:     "late delivery maps to late policy",
			problems: []string{"late-delivery"},
			issue:    "my order is two weeks late",
			want:     "Late Delivery Policy",
		},
		{
			name:     "defective rides with damaged",
			problems: []string{"defective"},
			issue:    "the watch stopped working after a day",
			want:     "Damaged or Defective Item Policy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, err := m.Match(context.Background(), tt.problems, tt.issue)
			require.NoError(t, err)
			assert.Equal(t, tt.want, match.Selection.Name)
			assert.GreaterOrEqual(t, match.Confidence, 0.4)
			assert.NotEmpty(t, match.Selection.Rationale)
		})
	}
}

func TestMatcherNoMatchBelowThreshold(t *testing.T) {
	m := NewMatcher(DefaultCatalog(), DiceScorer{}, 0.4, zap.NewNop())

	_, err := m.Match(context.Background(), []string{"other"}, "the box sings to me at night")
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrNoPolicyMatch)
}

func TestMatcherEmptyCatalog(t *testing.T) {
	m := NewMatcher(nil, DiceScorer{}, 0.4, zap.NewNop())

	_, err := m.Match(context.Background(), []string{"damaged"}, "broken item")
	assert.ErrorIs(t, err, workflow.ErrNoPolicyMatch)
}

func TestMatcherMultipleProblemsPicksBestCoverage(t *testing.T) {
	m := NewMatcher(DefaultCatalog(), DiceScorer{}, 0.3, zap.NewNop())

	// Both problems belong to the same policy; it must win outright.
	match, err := m.Match(context.Background(), []string{"damaged", "defective"},
		"the keyboard arrived cracked and half the keys do not register")
	require.NoError(t, err)
	assert.Equal(t, "Damaged or Defective Item Policy", match.Selection.Name)
}

func TestFormatContextListsEveryPolicy(t *testing.T) {
	out := FormatContext(DefaultCatalog())
	for _, p := range DefaultCatalog() {
		assert.Contains(t, out, p.Name)
	}
}
