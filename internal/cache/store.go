// Package cache implements the two-tier result cache: a bounded in-memory
// LRU in front of a durable file-per-key JSON tier. The memory tier absorbs
// repeat lookups within a process lifetime; the durable tier survives
// restarts. Disk failures never propagate to callers: the store logs them
// and degrades to memory-only behavior.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/metric"

	"github.com/shinsa-ai/shinsa/internal/telemetry"
)

// Entry is the persisted form of a cached value. One entry is written per
// key as <sha256(key)>.json under the store directory.
type Entry struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
	HitCount  int64           `json:"hit_count"`
}

// Expired reports whether the entry is past its expiry at the given instant.
// An entry without an expiry never expires.
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Stats is a point-in-time snapshot of store activity since creation.
type Stats struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	Sets        int64   `json:"sets"`
	HitRate     float64 `json:"hit_rate"`
	MemoryItems int     `json:"memory_item_count"`
}

// Options configures a Store.
type Options struct {
	// Dir is the durable tier directory. Empty disables the durable tier.
	Dir string
	// DefaultTTL applies when Set is called with a zero TTL. Non-positive
	// means entries without an explicit TTL never expire.
	DefaultTTL time.Duration
	// MaxMemoryItems bounds the memory tier. Least recently used entries
	// are evicted first; their durable copies remain readable.
	MaxMemoryItems int
	// CleanupInterval is how often the background sweep purges expired
	// entries. Non-positive disables the sweep.
	CleanupInterval time.Duration
	Logger          *slog.Logger
}

// Store is a mutex-guarded two-tier cache. All operations are safe for
// concurrent use.
type Store struct {
	dir        string
	defaultTTL time.Duration
	logger     *slog.Logger

	mu     sync.Mutex
	memory *lru.Cache[string, *Entry]
	hits   int64
	misses int64
	sets   int64

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Store and starts its cleanup goroutine when a positive
// CleanupInterval is configured. Call Close to stop it. A durable directory
// that cannot be created is logged and dropped rather than failing the
// caller; the store then runs memory-only.
func New(opts Options) (*Store, error) {
	if opts.MaxMemoryItems <= 0 {
		opts.MaxMemoryItems = 100
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	memory, err := lru.New[string, *Entry](opts.MaxMemoryItems)
	if err != nil {
		return nil, fmt.Errorf("cache: create memory tier: %w", err)
	}

	dir := opts.Dir
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			opts.Logger.Warn("cache: durable tier unavailable, running memory-only", "dir", dir, "error", err)
			dir = ""
		}
	}

	s := &Store{
		dir:        dir,
		defaultTTL: opts.DefaultTTL,
		logger:     opts.Logger,
		memory:     memory,
		done:       make(chan struct{}),
	}
	s.registerMetrics()

	if opts.CleanupInterval > 0 {
		go s.cleanupLoop(opts.CleanupInterval)
	}
	return s, nil
}

// Get returns the cached value for key and true on a hit. Expired entries
// count as misses and are purged from both tiers. A durable-tier hit is
// promoted into the memory tier.
func (s *Store) Get(key string) (json.RawMessage, bool) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.memory.Get(key); ok {
		if entry.Expired(now) {
			s.memory.Remove(key)
			s.removeFile(key)
			s.misses++
			return nil, false
		}
		entry.HitCount++
		s.hits++
		return entry.Value, true
	}

	entry, ok := s.readEntry(key)
	if !ok {
		s.misses++
		return nil, false
	}
	if entry.Expired(now) {
		s.removeFile(key)
		s.misses++
		return nil, false
	}

	entry.HitCount++
	s.memory.Add(key, entry)
	s.writeEntry(entry) // persist the bumped hit count, best effort
	s.hits++
	return entry.Value, true
}

// GetJSON looks up key and unmarshals the cached value into out. It returns
// false on a miss or when the stored value does not decode into out.
func (s *Store) GetJSON(key string, out any) bool {
	raw, ok := s.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.logger.Warn("cache: cached value does not decode", "key", key, "error", err)
		return false
	}
	return true
}

// Set stores value under key in both tiers. A zero ttl selects the store
// default; a negative ttl (or a store without a default) stores the entry
// without expiry. Only a value that cannot be serialized is an error;
// durable write failures are logged and swallowed.
func (s *Store) Set(key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal value for %q: %w", key, err)
	}
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	now := time.Now()
	entry := &Entry{
		Key:       key,
		Value:     raw,
		CreatedAt: now,
	}
	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.memory.Add(key, entry)
	s.writeEntry(entry)
	s.sets++
	return nil
}

// Delete removes key from both tiers and reports whether it was present in
// either.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	inMemory := s.memory.Remove(key)
	onDisk := s.removeFile(key)
	return inMemory || onDisk
}

// Clear empties the memory tier and removes every entry file from the
// durable tier.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.memory.Purge()
	if s.dir == "" {
		return
	}
	names, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("cache: clear could not list durable tier", "error", err)
		return
	}
	for _, de := range names {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, de.Name())); err != nil {
			s.logger.Warn("cache: clear could not remove entry file", "file", de.Name(), "error", err)
		}
	}
}

// CleanupExpired purges expired entries from both tiers and returns the
// number of distinct keys removed. Entry files that no longer parse are
// removed as well.
func (s *Store) CleanupExpired() int {
	now := time.Now()
	purged := make(map[string]bool)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range s.memory.Keys() {
		entry, ok := s.memory.Peek(key)
		if ok && entry.Expired(now) {
			s.memory.Remove(key)
			purged[key] = true
		}
	}

	if s.dir != "" {
		names, err := os.ReadDir(s.dir)
		if err != nil {
			s.logger.Warn("cache: cleanup could not list durable tier", "error", err)
		} else {
			for _, de := range names {
				if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
					continue
				}
				path := filepath.Join(s.dir, de.Name())
				entry, err := decodeEntryFile(path)
				if err != nil {
					s.logger.Warn("cache: removing unreadable entry file", "file", de.Name(), "error", err)
					_ = os.Remove(path)
					continue
				}
				if entry.Expired(now) {
					if err := os.Remove(path); err != nil {
						s.logger.Warn("cache: cleanup could not remove entry file", "file", de.Name(), "error", err)
						continue
					}
					purged[entry.Key] = true
				}
			}
		}
	}
	return len(purged)
}

// Stats returns a snapshot of hit, miss, and set counts since the store was
// created. HitRate is zero until the first lookup.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Hits:        s.hits,
		Misses:      s.misses,
		Sets:        s.sets,
		MemoryItems: s.memory.Len(),
	}
	if total := st.Hits + st.Misses; total > 0 {
		st.HitRate = float64(st.Hits) / float64(total)
	}
	return st
}

// Close stops the cleanup goroutine. The store remains usable afterwards.
func (s *Store) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Store) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if n := s.CleanupExpired(); n > 0 {
				s.logger.Debug("cache: purged expired entries", "count", n)
			}
		}
	}
}

// registerMetrics registers observable OTEL gauges for cache health.
// No-ops when no meter provider is configured.
func (s *Store) registerMetrics() {
	meter := telemetry.Meter("shinsa/cache")

	_, _ = meter.Int64ObservableGauge("shinsa.cache.memory_items",
		metric.WithDescription("Current number of entries in the memory tier"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			s.mu.Lock()
			n := s.memory.Len()
			s.mu.Unlock()
			o.Observe(int64(n))
			return nil
		}),
	)

	_, _ = meter.Float64ObservableGauge("shinsa.cache.hit_rate",
		metric.WithDescription("Fraction of lookups served from cache since startup"),
		metric.WithFloat64Callback(func(_ context.Context, o metric.Float64Observer) error {
			o.Observe(s.Stats().HitRate)
			return nil
		}),
	)
}

// filePath maps a key to its durable-tier location. Keys are hashed so
// arbitrary key text never reaches the filesystem.
func (s *Store) filePath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".json")
}

// readEntry loads the durable entry for key. Absence and unreadable files
// both report a miss; only the latter is logged.
func (s *Store) readEntry(key string) (*Entry, bool) {
	if s.dir == "" {
		return nil, false
	}
	entry, err := decodeEntryFile(s.filePath(key))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("cache: durable read failed", "key", key, "error", err)
		}
		return nil, false
	}
	return entry, true
}

func (s *Store) writeEntry(entry *Entry) {
	if s.dir == "" {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn("cache: encode entry failed", "key", entry.Key, "error", err)
		return
	}
	if err := os.WriteFile(s.filePath(entry.Key), data, 0o644); err != nil {
		s.logger.Warn("cache: durable write failed", "key", entry.Key, "error", err)
	}
}

// removeFile deletes the durable entry for key, reporting whether a file
// was actually removed.
func (s *Store) removeFile(key string) bool {
	if s.dir == "" {
		return false
	}
	err := os.Remove(s.filePath(key))
	if err == nil {
		return true
	}
	if !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("cache: durable remove failed", "key", key, "error", err)
	}
	return false
}

func decodeEntryFile(path string) (*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &entry, nil
}
