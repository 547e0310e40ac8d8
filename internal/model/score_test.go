package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizedClampsScore(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"above max", 14.2, 10},
		{"below min", -3, 0},
		{"in range", 7.5, 7.5},
		{"at max", 10, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := EvaluationScore{Dimension: "quality", Score: tt.in}.Normalized()
			assert.Equal(t, tt.want, s.Score)
		})
	}
}

func TestNormalizedClampsConfidence(t *testing.T) {
	s := EvaluationScore{Score: 5, Confidence: 1.7}.Normalized()
	assert.Equal(t, 1.0, s.Confidence)

	s = EvaluationScore{Score: 5, Confidence: -0.2}.Normalized()
	assert.Equal(t, 0.0, s.Confidence)
}

func TestNormalizedDropsUnknownRiskLevel(t *testing.T) {
	s := EvaluationScore{Score: 5, RiskLevel: "catastrophic"}.Normalized()
	assert.Empty(t, s.RiskLevel)

	s = EvaluationScore{Score: 5, RiskLevel: RiskHigh}.Normalized()
	assert.Equal(t, RiskHigh, s.RiskLevel)
}

func TestGatePassed(t *testing.T) {
	// No gate flag: treated as passing (non-gate dimensions).
	assert.True(t, EvaluationScore{Score: 3}.GatePassed())

	assert.True(t, EvaluationScore{Score: 9, Passed: BoolPtr(true)}.GatePassed())
	assert.False(t, EvaluationScore{Score: 9, Passed: BoolPtr(false)}.GatePassed())
}

func TestContentEmpty(t *testing.T) {
	assert.True(t, Content{}.Empty())
	assert.True(t, Content{Title: "  ", Body: "\n"}.Empty())
	assert.False(t, Content{Title: "a"}.Empty())
	assert.False(t, Content{Body: "b"}.Empty())
}
