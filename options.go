package shinsa

import "log/slog"

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported — callers use the With* functions.
type resolvedOptions struct {
	logger         *slog.Logger
	version        string
	complete       CompleteFunc
	evaluators     []Evaluator
	cacheDir       string
	historyPath    string
	withoutHistory bool
}

// WithLogger sets the structured logger for the App.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported to MCP clients and in logs.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithCompleteFunc provides the model completion backend. With it, the three
// built-in dimensions are scored by routed LLM calls with retry and fallback;
// without it, the offline heuristic evaluators run instead.
func WithCompleteFunc(fn CompleteFunc) Option {
	return func(o *resolvedOptions) { o.complete = fn }
}

// WithEvaluator registers an additional scoring dimension alongside the
// built-in three. Multiple evaluators may be registered; all run concurrently
// in the same pipeline. Fast mode skips any evaluator whose dimension is
// "engagement", custom or not.
func WithEvaluator(e Evaluator) Option {
	return func(o *resolvedOptions) { o.evaluators = append(o.evaluators, e) }
}

// WithCacheDir overrides the durable cache directory from config
// (SHINSA_CACHE_DIR env var).
func WithCacheDir(dir string) Option {
	return func(o *resolvedOptions) { o.cacheDir = dir }
}

// WithHistoryPath overrides the SQLite history database path from config
// (SHINSA_HISTORY_DB env var).
func WithHistoryPath(path string) Option {
	return func(o *resolvedOptions) { o.historyPath = path }
}

// WithoutHistory disables the evaluation audit trail entirely. Equivalent to
// SHINSA_HISTORY_DISABLE=true.
func WithoutHistory() Option {
	return func(o *resolvedOptions) { o.withoutHistory = true }
}
