package shinsa_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinsa-ai/shinsa"
)

// newTestApp builds an App against temp directories so tests never touch the
// real .shinsa state or a host OTEL collector.
func newTestApp(t *testing.T, opts ...shinsa.Option) *shinsa.App {
	t.Helper()
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	base := []shinsa.Option{
		shinsa.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		shinsa.WithCacheDir(t.TempDir()),
		shinsa.WithHistoryPath(filepath.Join(t.TempDir(), "history.db")),
	}
	app, err := shinsa.New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Shutdown(context.Background()) })
	return app
}

// draft scores 6.0 quality (title, closing period), 5.0 engagement, and a
// clean 10 compliance under the heuristic evaluators, for a weighted 6.6.
func draft() shinsa.Content {
	return shinsa.Content{
		Title: "Launch recap",
		Body:  "A clean body.",
	}
}

func TestApp_Evaluate(t *testing.T) {
	app := newTestApp(t)

	d, err := app.Evaluate(context.Background(), draft(), shinsa.ModeFull, true)
	require.NoError(t, err)

	assert.Equal(t, shinsa.VerdictAskUser, d.Verdict)
	assert.InDelta(t, 6.6, d.OverallScore, 1e-9)
	assert.True(t, d.CompliancePassed)
	assert.Equal(t, shinsa.ModeFull, d.Mode)
	assert.False(t, d.FromCache)
	assert.False(t, d.EvaluatedAt.IsZero())

	assert.Len(t, d.Dimensions, 3)
	for _, dim := range []string{"quality", "engagement", "compliance"} {
		assert.Contains(t, d.Dimensions, dim)
	}
}

func TestApp_Evaluate_FastMode(t *testing.T) {
	app := newTestApp(t)

	d, err := app.Evaluate(context.Background(), draft(), shinsa.ModeFast, true)
	require.NoError(t, err)

	// Without engagement only 60% of the weight is reachable, so fast mode
	// lands below the ask bar here.
	assert.Equal(t, shinsa.VerdictRecommendOptimize, d.Verdict)
	assert.InDelta(t, 4.6, d.OverallScore, 1e-9)
	assert.NotContains(t, d.Dimensions, "engagement")
}

func TestApp_Evaluate_SecondCallIsCached(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	first, err := app.Evaluate(ctx, draft(), shinsa.ModeFull, true)
	require.NoError(t, err)
	require.False(t, first.FromCache)

	second, err := app.Evaluate(ctx, draft(), shinsa.ModeFull, true)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Verdict, second.Verdict)
	assert.Equal(t, first.OverallScore, second.OverallScore)

	stats := app.CacheStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
}

func TestApp_Evaluate_EmptyContent(t *testing.T) {
	app := newTestApp(t)

	_, err := app.Evaluate(context.Background(), shinsa.Content{Topic: "ai"}, shinsa.ModeFull, true)
	assert.ErrorIs(t, err, shinsa.ErrEmptyContent)
}

// brandVoice is a custom dimension registered through WithEvaluator.
type brandVoice struct {
	score float64
}

func (b brandVoice) Dimension() string { return "brand_voice" }

func (b brandVoice) Evaluate(_ context.Context, _ shinsa.Content) (shinsa.Score, error) {
	return shinsa.Score{Dimension: "brand_voice", Score: b.score, Confidence: 1}, nil
}

func TestApp_CustomEvaluator(t *testing.T) {
	t.Run("unweighted dimension is reported but not scored", func(t *testing.T) {
		app := newTestApp(t, shinsa.WithEvaluator(brandVoice{score: 8}))

		d, err := app.Evaluate(context.Background(), draft(), shinsa.ModeFull, true)
		require.NoError(t, err)

		assert.Contains(t, d.Dimensions, "brand_voice")
		assert.InDelta(t, 8.0, d.Dimensions["brand_voice"].Score, 1e-9)
		assert.InDelta(t, 6.6, d.OverallScore, 1e-9)
	})

	t.Run("weighted dimension moves the overall score", func(t *testing.T) {
		t.Setenv("SHINSA_REVIEW_WEIGHTS", "quality=0.30,engagement=0.30,compliance=0.20,brand_voice=0.20")
		app := newTestApp(t, shinsa.WithEvaluator(brandVoice{score: 8}))

		d, err := app.Evaluate(context.Background(), draft(), shinsa.ModeFull, true)
		require.NoError(t, err)

		// 0.30*6.0 + 0.30*5.0 + 0.20*10 + 0.20*8.0
		assert.InDelta(t, 6.9, d.OverallScore, 1e-9)
		assert.Equal(t, shinsa.VerdictAskUser, d.Verdict)
	})
}

func TestApp_History(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	_, err := app.Evaluate(ctx, draft(), shinsa.ModeFull, true)
	require.NoError(t, err)
	_, err = app.Evaluate(ctx, draft(), shinsa.ModeFull, true)
	require.NoError(t, err)

	entries, err := app.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	fp := app.Fingerprint(draft())
	cached := 0
	for _, e := range entries {
		assert.Equal(t, fp, e.Fingerprint)
		assert.Equal(t, shinsa.VerdictAskUser, e.Verdict)
		if e.FromCache {
			cached++
		}
	}
	assert.Equal(t, 1, cached)
}

func TestApp_History_Disabled(t *testing.T) {
	app := newTestApp(t, shinsa.WithoutHistory())

	_, err := app.Evaluate(context.Background(), draft(), shinsa.ModeFull, true)
	require.NoError(t, err)

	_, err = app.History(context.Background(), 10)
	assert.ErrorIs(t, err, shinsa.ErrHistoryDisabled)
}

func TestApp_Fingerprint(t *testing.T) {
	app := newTestApp(t)

	same := app.Fingerprint(draft())
	assert.Equal(t, same, app.Fingerprint(draft()))
	assert.Len(t, same, 16)

	other := draft()
	other.Body = "A different body."
	assert.NotEqual(t, same, app.Fingerprint(other))

	// Topic is advisory and excluded from identity.
	retagged := draft()
	retagged.Topic = "launch"
	assert.Equal(t, same, app.Fingerprint(retagged))
}
