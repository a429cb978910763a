package workflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierRubricPrefersHigherTierOnAmbiguity(t *testing.T) {
	// The rubric handed to the classifier must define all three tiers and
	// instruct it to escalate, not downgrade, when a case sits between two.
	for _, tier := range tierLabels {
		assert.Contains(t, tierRubric, tier+":")
	}
	assert.Contains(t, strings.ToLower(tierRubric), "higher tier")
	assert.Contains(t, strings.ToLower(tierRubric), "ambiguous")
}

func TestOrderIDPattern(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"My order ORD12345 arrived broken", "ORD12345"},
		{"order ord67890, please help", "ord67890"},
		{"ORD123 is too short", ""},
		{"WORD12345 is not an order id", ""},
		{"no order mentioned", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, orderIDPattern.FindString(tt.text), "input: %s", tt.text)
	}
}
