package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinsa-ai/shinsa/internal/model"
	"github.com/shinsa-ai/shinsa/internal/testutil"
)

func defaultWeights() []model.DimensionWeight {
	return []model.DimensionWeight{
		{Dimension: "quality", Weight: 0.35},
		{Dimension: "engagement", Weight: 0.40},
		{Dimension: "compliance", Weight: 0.25},
	}
}

func newTestAggregator(t *testing.T) *Aggregator {
	t.Helper()
	a, err := New(Options{Weights: defaultWeights(), Logger: testutil.TestLogger()})
	require.NoError(t, err)
	return a
}

func uniformScores(score float64, passed bool) map[string]model.EvaluationScore {
	return map[string]model.EvaluationScore{
		"quality":    {Dimension: "quality", Score: score},
		"engagement": {Dimension: "engagement", Score: score},
		"compliance": {Dimension: "compliance", Score: score, Passed: model.BoolPtr(passed)},
	}
}

func TestAggregator_PublishAtThreshold(t *testing.T) {
	a := newTestAggregator(t)

	d := a.Aggregate(uniformScores(8.0, true))
	assert.Equal(t, model.VerdictPublish, d.Verdict)
	assert.Equal(t, 8.0, d.OverallScore)
	assert.True(t, d.CompliancePassed)
	assert.False(t, d.EvaluatedAt.IsZero())
}

func TestAggregator_AskUserAtThreshold(t *testing.T) {
	a := newTestAggregator(t)

	d := a.Aggregate(uniformScores(6.0, true))
	assert.Equal(t, model.VerdictAskUser, d.Verdict)
	assert.Equal(t, 6.0, d.OverallScore)
}

func TestAggregator_RecommendOptimizeBelowAsk(t *testing.T) {
	a := newTestAggregator(t)

	d := a.Aggregate(uniformScores(5.0, true))
	assert.Equal(t, model.VerdictRecommendOptimize, d.Verdict)
	assert.InDelta(t, 5.0, d.OverallScore, 0.01)
}

func TestAggregator_GateVetoOverridesHighScores(t *testing.T) {
	a := newTestAggregator(t)

	d := a.Aggregate(uniformScores(10.0, false))
	assert.Equal(t, model.VerdictMustOptimize, d.Verdict)
	assert.False(t, d.CompliancePassed)
	// The weighted score is still computed and reported for diagnostics.
	assert.Equal(t, 10.0, d.OverallScore)
}

func TestAggregator_MissingGateFailsClosed(t *testing.T) {
	a := newTestAggregator(t)

	d := a.Aggregate(map[string]model.EvaluationScore{
		"quality":    {Dimension: "quality", Score: 9.0},
		"engagement": {Dimension: "engagement", Score: 9.0},
	})
	assert.Equal(t, model.VerdictMustOptimize, d.Verdict)
	assert.False(t, d.CompliancePassed)
}

func TestAggregator_MissingDimensionScoresZero(t *testing.T) {
	a := newTestAggregator(t)

	d := a.Aggregate(map[string]model.EvaluationScore{
		"quality":    {Dimension: "quality", Score: 10.0},
		"compliance": {Dimension: "compliance", Score: 10.0, Passed: model.BoolPtr(true)},
	})
	// engagement counts as zero at its full 0.40 weight.
	assert.Equal(t, 6.0, d.OverallScore)
	assert.Equal(t, model.VerdictAskUser, d.Verdict)
}

func TestAggregator_ClampsRawScores(t *testing.T) {
	a := newTestAggregator(t)

	d := a.Aggregate(map[string]model.EvaluationScore{
		"quality":    {Dimension: "quality", Score: 14.0},
		"engagement": {Dimension: "engagement", Score: -2.0},
		"compliance": {Dimension: "compliance", Score: 8.0, Passed: model.BoolPtr(true)},
	})
	assert.Equal(t, 10.0, d.Dimensions["quality"].Score)
	assert.Equal(t, 0.0, d.Dimensions["engagement"].Score)
	assert.Equal(t, 5.5, d.OverallScore)
	assert.Equal(t, model.VerdictRecommendOptimize, d.Verdict)
}

func TestAggregator_SuggestionsFollowWeightOrder(t *testing.T) {
	a := newTestAggregator(t)

	scores := uniformScores(7.0, true)
	q := scores["quality"]
	q.Suggestions = []string{"tighten the intro", "add a hook"}
	e := scores["engagement"]
	e.Suggestions = []string{"add a hook", "end with a question", "shorten paragraphs"}
	c := scores["compliance"]
	c.Suggestions = []string{"soften the claim", "drop the superlative"}
	scores["quality"], scores["engagement"], scores["compliance"] = q, e, c

	d := a.Aggregate(scores)
	assert.Equal(t, []string{
		"tighten the intro",
		"add a hook",
		"end with a question",
		"shorten paragraphs",
		"soften the claim",
	}, d.Suggestions, "weight order, first-seen dedup, capped at five")
}

func TestAggregator_SuggestionsSkipEmpty(t *testing.T) {
	a := newTestAggregator(t)

	scores := uniformScores(7.0, true)
	q := scores["quality"]
	q.Suggestions = []string{"", "add specifics"}
	scores["quality"] = q

	d := a.Aggregate(scores)
	assert.Equal(t, []string{"add specifics"}, d.Suggestions)
}

func TestNew_RejectsBadWeightSum(t *testing.T) {
	_, err := New(Options{Weights: []model.DimensionWeight{
		{Dimension: "quality", Weight: 0.5},
		{Dimension: "engagement", Weight: 0.4},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum")
}

func TestNew_RejectsInvertedThresholds(t *testing.T) {
	_, err := New(Options{
		Weights:          defaultWeights(),
		PublishThreshold: 7.0,
		AskThreshold:     9.0,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ask threshold")
}

func TestNew_DefaultThresholds(t *testing.T) {
	a, err := New(Options{Weights: defaultWeights(), Logger: testutil.TestLogger()})
	require.NoError(t, err)

	d := a.Aggregate(uniformScores(7.0, true))
	assert.Equal(t, model.VerdictAskUser, d.Verdict)
}
