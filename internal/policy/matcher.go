package policy

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/supportflow/support-agent/internal/agent"
	"github.com/supportflow/support-agent/internal/workflow"
)

// Scorer rates the similarity of two strings in [0,1].
type Scorer interface {
	Score(a, b string) float64
}

// DiceScorer scores by the Sørensen–Dice coefficient over character bigrams.
type DiceScorer struct{}

// Score implements Scorer.
func (DiceScorer) Score(a, b string) float64 {
	ba := bigrams(strings.ToLower(a))
	bb := bigrams(strings.ToLower(b))
	if len(ba) == 0 || len(bb) == 0 {
		return 0
	}

	overlap := 0
	for gram, count := range ba {
		if other, ok := bb[gram]; ok {
			if other < count {
				count = other
			}
			overlap += count
		}
	}

	totalA, totalB := 0, 0
	for _, c := range ba {
		totalA += c
	}
	for _, c := range bb {
		totalB += c
	}
	return 2 * float64(overlap) / float64(totalA+totalB)
}

func bigrams(s string) map[string]int {
	runes := []rune(s)
	grams := make(map[string]int)
	for i := 0; i+1 < len(runes); i++ {
		grams[string(runes[i:i+2])]++
	}
	return grams
}

// Matcher implements workflow.PolicyMatcher against a fixed catalog. The
// score is dominated by problem-type overlap with the policy's applicable
// problems, refined by text similarity between the issue and the policy
// description. Nothing above the threshold means escalation, not a fault.
type Matcher struct {
	catalog   []Policy
	scorer    Scorer
	threshold float64
	logger    *zap.Logger
}

// NewMatcher creates a policy matcher. A non-positive threshold falls back
// to 0.4.
func NewMatcher(catalog []Policy, scorer Scorer, threshold float64, logger *zap.Logger) *Matcher {
	if threshold <= 0 {
		threshold = 0.4
	}
	if scorer == nil {
		scorer = DiceScorer{}
	}
	return &Matcher{
		catalog:   catalog,
		scorer:    scorer,
		threshold: threshold,
		logger:    logger,
	}
}

// Match implements workflow.PolicyMatcher.
func (m *Matcher) Match(ctx context.Context, problemTypes []string, issueText string) (workflow.PolicyMatch, error) {
	var (
		best      *Policy
		bestScore float64
	)

	for i := range m.catalog {
		p := &m.catalog[i]
		score := m.score(p, problemTypes, issueText)
		if score > bestScore {
			best = p
			bestScore = score
		}
	}

	if best == nil || bestScore < m.threshold {
		m.logger.Info("No policy cleared the threshold",
			zap.Strings("problem_types", problemTypes),
			zap.Float64("best_score", bestScore),
			zap.Float64("threshold", m.threshold))
		return workflow.PolicyMatch{}, workflow.ErrNoPolicyMatch
	}

	rationale := fmt.Sprintf("%q covers problem type(s) %s",
		best.Name, strings.Join(intersect(problemTypes, best.ApplicableProblems), ", "))
	if len(intersect(problemTypes, best.ApplicableProblems)) == 0 {
		rationale = fmt.Sprintf("%q selected by issue text similarity", best.Name)
	}

	m.logger.Debug("Policy matched",
		zap.String("policy", best.Name),
		zap.Float64("score", bestScore))

	return workflow.PolicyMatch{
		Selection: agent.PolicySelection{
			Name:        best.Name,
			Description: best.Description,
			Rationale:   rationale,
		},
		Confidence: bestScore,
	}, nil
}

// score blends problem-type overlap (weight 0.7) with issue-text similarity
// (weight 0.3).
func (m *Matcher) score(p *Policy, problemTypes []string, issueText string) float64 {
	var overlapScore float64
	if len(problemTypes) > 0 {
		overlapScore = float64(len(intersect(problemTypes, p.ApplicableProblems))) / float64(len(problemTypes))
	}

	textScore := m.scorer.Score(issueText, p.Description+" "+p.WhenToUse)

	return 0.7*overlapScore + 0.3*textScore
}

func intersect(a, b []string) []string {
	set := make(map[string]bool, len(b))
	for _, s := range b {
		set[s] = true
	}
	var out []string
	for _, s := range a {
		if set[s] {
			out = append(out, s)
		}
	}
	return out
}
