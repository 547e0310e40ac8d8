package model

import (
	"fmt"
	"math"
	"time"
)

// Verdict is the policy outcome of an aggregated evaluation.
type Verdict string

const (
	// VerdictPublish means the content cleared the publish threshold.
	VerdictPublish Verdict = "publish"
	// VerdictAskUser means the content is acceptable but a human should decide.
	VerdictAskUser Verdict = "ask_user"
	// VerdictRecommendOptimize means the content scored below the ask threshold.
	VerdictRecommendOptimize Verdict = "recommend_optimize"
	// VerdictMustOptimize means the compliance gate failed; scores are irrelevant.
	VerdictMustOptimize Verdict = "must_optimize"
)

// ReviewMode selects which optional dimensions run during an evaluation.
type ReviewMode string

const (
	// ModeFull runs every configured dimension, including engagement.
	ModeFull ReviewMode = "full"
	// ModeFast skips the engagement dimension to save a model round-trip.
	ModeFast ReviewMode = "fast"
)

// DimensionWeight pairs an evaluation dimension with its share of the
// overall score. Aggregation iterates weights in slice order, which keeps
// suggestion collection deterministic.
type DimensionWeight struct {
	Dimension string  `json:"dimension"`
	Weight    float64 `json:"weight"`
}

// ValidateWeights checks that weights name distinct dimensions, stay within
// (0, 1], and sum to 1 within a small tolerance.
func ValidateWeights(weights []DimensionWeight) error {
	if len(weights) == 0 {
		return fmt.Errorf("no dimensions configured")
	}
	seen := make(map[string]bool, len(weights))
	var sum float64
	for _, dw := range weights {
		if dw.Dimension == "" {
			return fmt.Errorf("empty dimension name")
		}
		if seen[dw.Dimension] {
			return fmt.Errorf("dimension %q listed twice", dw.Dimension)
		}
		seen[dw.Dimension] = true
		if dw.Weight <= 0 || dw.Weight > 1 {
			return fmt.Errorf("dimension %q weight %v outside (0, 1]", dw.Dimension, dw.Weight)
		}
		sum += dw.Weight
	}
	if math.Abs(sum-1.0) > 0.001 {
		return fmt.Errorf("weights sum to %.3f, want 1.0", sum)
	}
	return nil
}

// AggregateDecision is the combined outcome across all evaluated dimensions.
// It is the unit stored in the result cache and in the evaluation history.
type AggregateDecision struct {
	Verdict      Verdict                    `json:"verdict"`
	OverallScore float64                    `json:"overall_score"`
	Dimensions   map[string]EvaluationScore `json:"dimensions"`

	// CompliancePassed is false when the gate dimension reported a failure
	// or when the gate check never produced a result.
	CompliancePassed bool `json:"compliance_passed"`

	// Suggestions are unioned across dimensions, deduplicated in first-seen
	// order, and capped.
	Suggestions []string `json:"suggestions,omitempty"`

	Mode        ReviewMode `json:"mode,omitempty"`
	FromCache   bool       `json:"from_cache"`
	ElapsedMS   int64      `json:"elapsed_ms"`
	EvaluatedAt time.Time  `json:"evaluated_at"`
}
