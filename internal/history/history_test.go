package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinsa-ai/shinsa/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RecordAndRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	entries := []Entry{
		{Fingerprint: "aaa", Mode: model.ModeFull, Verdict: model.VerdictPublish,
			OverallScore: 8.7, CompliancePassed: true, ElapsedMS: 1200, CreatedAt: base},
		{Fingerprint: "bbb", Mode: model.ModeFast, Verdict: model.VerdictMustOptimize,
			OverallScore: 9.1, CompliancePassed: false, ElapsedMS: 430, CreatedAt: base.Add(time.Second)},
		{Fingerprint: "aaa", Mode: model.ModeFull, Verdict: model.VerdictPublish,
			OverallScore: 8.7, CompliancePassed: true, FromCache: true, ElapsedMS: 2, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		require.NoError(t, s.Record(ctx, e))
	}

	got, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "aaa", got[0].Fingerprint)
	assert.True(t, got[0].FromCache)
	assert.Equal(t, int64(2), got[0].ElapsedMS)
	assert.WithinDuration(t, base.Add(2*time.Second), got[0].CreatedAt, time.Second)

	assert.Equal(t, model.VerdictMustOptimize, got[1].Verdict)
	assert.Equal(t, 9.1, got[1].OverallScore)
	assert.False(t, got[1].CompliancePassed)
	assert.Equal(t, model.ModeFast, got[1].Mode)
}

func TestStore_RecordGeneratesID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, Entry{Fingerprint: "x", Verdict: model.VerdictAskUser}))
	require.NoError(t, s.Record(ctx, Entry{Fingerprint: "y", Verdict: model.VerdictAskUser}))

	got, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.NotEmpty(t, got[0].ID)
	assert.NotEmpty(t, got[1].ID)
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestStore_ByFingerprint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	for i, fp := range []string{"aaa", "bbb", "aaa"} {
		require.NoError(t, s.Record(ctx, Entry{
			Fingerprint: fp, Mode: model.ModeFull, Verdict: model.VerdictAskUser,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	got, err := s.ByFingerprint(ctx, "aaa", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.WithinDuration(t, base.Add(2*time.Second), got[0].CreatedAt, time.Second)
	assert.WithinDuration(t, base, got[1].CreatedAt, time.Second)

	got, err = s.ByFingerprint(ctx, "zzz", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_Summary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, v := range []model.Verdict{
		model.VerdictPublish, model.VerdictPublish, model.VerdictMustOptimize,
	} {
		require.NoError(t, s.Record(ctx, Entry{Fingerprint: "f", Verdict: v}))
	}

	counts, err := s.Summary(ctx)
	require.NoError(t, err)
	require.Len(t, counts, 2)

	// Grouped output is ordered by verdict name.
	assert.Equal(t, model.VerdictMustOptimize, counts[0].Verdict)
	assert.Equal(t, int64(1), counts[0].Count)
	assert.Equal(t, model.VerdictPublish, counts[1].Verdict)
	assert.Equal(t, int64(2), counts[1].Count)
}

func TestStore_RecentEmpty(t *testing.T) {
	s := newTestStore(t)

	got, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, Entry{Fingerprint: "f", Verdict: model.VerdictPublish}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "f", got[0].Fingerprint)
}
