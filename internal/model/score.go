package model

// Score bounds and confidence bounds enforced by Normalized.
const (
	ScoreMin = 0.0
	ScoreMax = 10.0
)

// RiskLevel classifies compliance findings.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// validRiskLevels defines the allowed values for risk classification.
var validRiskLevels = map[RiskLevel]bool{RiskLow: true, RiskMedium: true, RiskHigh: true}

// EvaluationScore is one dimension's verdict on a piece of content.
// Evaluators normalize their records at the boundary (Normalized) so the
// aggregator can rely on Score being in [0,10] and Confidence in [0,1].
type EvaluationScore struct {
	Dimension   string   `json:"dimension"`
	Score       float64  `json:"score"`
	Strengths   []string `json:"strengths,omitempty"`
	Weaknesses  []string `json:"weaknesses,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Confidence  float64  `json:"confidence"`

	// Gate fields, set only by the compliance dimension.
	Passed    *bool     `json:"passed,omitempty"`
	RiskLevel RiskLevel `json:"risk_level,omitempty"`
}

// Normalized returns a copy with Score clamped to [0,10], Confidence clamped
// to [0,1], and an unrecognized RiskLevel dropped rather than propagated.
func (s EvaluationScore) Normalized() EvaluationScore {
	s.Score = Clamp(s.Score, ScoreMin, ScoreMax)
	s.Confidence = Clamp(s.Confidence, 0, 1)
	if s.RiskLevel != "" && !validRiskLevels[s.RiskLevel] {
		s.RiskLevel = ""
	}
	return s
}

// GatePassed reports whether the gate passed. Scores without gate semantics
// (nil Passed) pass trivially; the aggregator decides separately whether a
// gate was required at all.
func (s EvaluationScore) GatePassed() bool {
	return s.Passed == nil || *s.Passed
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// BoolPtr returns a pointer to b. Convenience for building gate scores.
func BoolPtr(b bool) *bool { return &b }
