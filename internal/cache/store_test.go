package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinsa-ai/shinsa/internal/testutil"
)

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = testutil.TestLogger()
	}
	s, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestStore_SetGetRoundTrip(t *testing.T) {
	s := newTestStore(t, Options{Dir: t.TempDir()})

	type payload struct {
		Verdict string  `json:"verdict"`
		Score   float64 `json:"score"`
	}
	require.NoError(t, s.Set("review:abc", payload{Verdict: "publish", Score: 8.4}, time.Minute))

	var got payload
	require.True(t, s.GetJSON("review:abc", &got))
	assert.Equal(t, "publish", got.Verdict)
	assert.Equal(t, 8.4, got.Score)
}

func TestStore_MissOnUnknownKey(t *testing.T) {
	s := newTestStore(t, Options{Dir: t.TempDir()})

	_, ok := s.Get("never-set")
	assert.False(t, ok)
	assert.Equal(t, int64(1), s.Stats().Misses)
}

func TestStore_ExpiryPurgesBothTiers(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, Options{Dir: dir})

	require.NoError(t, s.Set("short", "v", 20*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, ok := s.Get("short")
	assert.False(t, ok, "expired entry should miss")
	assert.Equal(t, 0, s.Stats().MemoryItems)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, files, "expired entry file should be removed on access")
}

func TestStore_ZeroTTLNeverExpiresWithoutDefault(t *testing.T) {
	s := newTestStore(t, Options{Dir: t.TempDir()})

	require.NoError(t, s.Set("forever", "v", 0))
	require.NoError(t, s.Set("also-forever", "v", -1))

	assert.Equal(t, 0, s.CleanupExpired(), "entries without expiry are never purged")
	var got string
	assert.True(t, s.GetJSON("forever", &got))
	assert.True(t, s.GetJSON("also-forever", &got))
}

func TestStore_ZeroTTLUsesDefault(t *testing.T) {
	s := newTestStore(t, Options{Dir: t.TempDir(), DefaultTTL: 20 * time.Millisecond})

	require.NoError(t, s.Set("short", "v", 0))
	time.Sleep(30 * time.Millisecond)

	_, ok := s.Get("short")
	assert.False(t, ok, "default TTL should apply to a zero-TTL set")
}

func TestStore_DurablePromotion(t *testing.T) {
	dir := t.TempDir()

	first := newTestStore(t, Options{Dir: dir})
	require.NoError(t, first.Set("persisted", "value", time.Minute))
	first.Close()

	// A fresh store has an empty memory tier but the same durable tier.
	second := newTestStore(t, Options{Dir: dir})
	var got string
	require.True(t, second.GetJSON("persisted", &got), "durable entry should survive a restart")
	assert.Equal(t, "value", got)
	assert.Equal(t, 1, second.Stats().MemoryItems, "durable hit should be promoted into memory")

	// The bumped hit count is persisted back.
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	entry, err := decodeEntryFile(filepath.Join(dir, files[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.HitCount)
}

func TestStore_MemoryEvictionKeepsDurableCopy(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, Options{Dir: dir, MaxMemoryItems: 2})

	require.NoError(t, s.Set("a", 1, time.Minute))
	require.NoError(t, s.Set("b", 2, time.Minute))
	require.NoError(t, s.Set("c", 3, time.Minute))

	assert.Equal(t, 2, s.Stats().MemoryItems, "memory tier should stay bounded")

	// "a" was evicted from memory but must still be readable from disk.
	var got int
	require.True(t, s.GetJSON("a", &got))
	assert.Equal(t, 1, got)
}

func TestStore_EvictionIsLeastRecentlyUsed(t *testing.T) {
	// Memory-only store so an eviction is observable as a miss.
	s := newTestStore(t, Options{MaxMemoryItems: 2})

	require.NoError(t, s.Set("a", 1, time.Minute))
	require.NoError(t, s.Set("b", 2, time.Minute))

	// Touch "a" so "b" becomes the least recently used entry.
	_, ok := s.Get("a")
	require.True(t, ok)

	require.NoError(t, s.Set("c", 3, time.Minute))

	_, ok = s.Get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = s.Get("a")
	assert.True(t, ok, "recently used entry should survive")
}

func TestStore_CleanupExpired(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, Options{Dir: dir})

	require.NoError(t, s.Set("gone1", "v", 10*time.Millisecond))
	require.NoError(t, s.Set("gone2", "v", 10*time.Millisecond))
	require.NoError(t, s.Set("kept", "v", time.Minute))

	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 2, s.CleanupExpired())

	var got string
	assert.True(t, s.GetJSON("kept", &got))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1, "only the live entry file should remain")
}

func TestStore_CleanupRemovesUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, Options{Dir: dir})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.json"), []byte("{not json"), 0o644))

	assert.Equal(t, 0, s.CleanupExpired(), "junk files are removed but not counted as purged keys")

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestStore_Clear(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, Options{Dir: dir})

	require.NoError(t, s.Set("a", 1, time.Minute))
	require.NoError(t, s.Set("b", 2, time.Minute))

	s.Clear()

	assert.Equal(t, 0, s.Stats().MemoryItems)
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestStore_Delete(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, Options{Dir: dir})

	require.NoError(t, s.Set("a", 1, time.Minute))
	assert.True(t, s.Delete("a"))
	assert.False(t, s.Delete("a"), "second delete finds nothing")

	_, ok := s.Get("a")
	assert.False(t, ok)
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestStore_Stats(t *testing.T) {
	s := newTestStore(t, Options{Dir: t.TempDir()})

	assert.Equal(t, float64(0), s.Stats().HitRate, "hit rate is zero before any lookup")

	require.NoError(t, s.Set("k", "v", time.Minute))
	s.Get("k")
	s.Get("absent")

	st := s.Stats()
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, int64(1), st.Sets)
	assert.Equal(t, 0.5, st.HitRate)
}

func TestStore_DegradesWhenDirUnavailable(t *testing.T) {
	// Point the durable tier at an existing regular file so MkdirAll fails.
	blocker := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	s := newTestStore(t, Options{Dir: blocker})

	// The store still works, memory-only.
	require.NoError(t, s.Set("k", "v", time.Minute))
	var got string
	assert.True(t, s.GetJSON("k", &got))
	assert.Equal(t, "v", got)
}

func TestStore_EntryFileShape(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, Options{Dir: dir})

	require.NoError(t, s.Set("shaped", map[string]int{"n": 1}, time.Minute))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(filepath.Join(dir, files[0].Name()))
	require.NoError(t, err)

	var record map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &record))
	for _, field := range []string{"key", "value", "created_at", "expires_at", "hit_count"} {
		assert.Contains(t, record, field)
	}
}
