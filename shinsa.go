// Package shinsa is the public API for embedding the Shinsa content
// evaluation server.
//
// Pipeline and agent consumers import this package to construct and extend
// the server without forking it:
//
//	app, err := shinsa.New(
//	    shinsa.WithVersion(version),
//	    shinsa.WithLogger(logger),
//	    shinsa.WithCompleteFunc(myModelBackend),
//	    shinsa.WithEvaluator(myBrandVoiceScorer{}),
//	)
//	if err != nil { ... }
//	if err := app.Run(ctx); err != nil { ... }
//
// The import graph enforces a strict no-cycle rule: shinsa (root) imports
// internal/*, but internal/* never imports shinsa (root). Public types
// (Content, Decision, etc.) are standalone structs with no internal imports;
// conversion helpers (toPublicDecision, fromPublicContent) live here because
// this is the only file that sees both sides of the boundary.
package shinsa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/shinsa-ai/shinsa/internal/aggregate"
	"github.com/shinsa-ai/shinsa/internal/cache"
	"github.com/shinsa-ai/shinsa/internal/config"
	"github.com/shinsa-ai/shinsa/internal/evaluator"
	"github.com/shinsa-ai/shinsa/internal/executor"
	"github.com/shinsa-ai/shinsa/internal/history"
	"github.com/shinsa-ai/shinsa/internal/mcp"
	"github.com/shinsa-ai/shinsa/internal/model"
	"github.com/shinsa-ai/shinsa/internal/review"
	"github.com/shinsa-ai/shinsa/internal/router"
	"github.com/shinsa-ai/shinsa/internal/telemetry"
)

var (
	// ErrHistoryDisabled is returned by History when the audit trail is off
	// (SHINSA_HISTORY_DISABLE, WithoutHistory, or an unopenable database).
	ErrHistoryDisabled = errors.New("shinsa: history is disabled")

	// ErrEmptyContent is returned by Evaluate when the content has no title
	// and no body.
	ErrEmptyContent = errors.New("shinsa: content has no title and no body")
)

// App is the Shinsa server lifecycle. Construct with New(), run with Run().
// App has no public fields — use New() options to configure it.
type App struct {
	store        *cache.Store
	hist         *history.Store // nil when history is disabled
	review       *review.Service
	mcpSrv       *mcp.Server
	otelShutdown telemetry.Shutdown
	logger       *slog.Logger
}

// New initialises the Shinsa server. It loads configuration, wires the
// cache, router, evaluators, and review pipeline, and returns a ready-to-run
// App. It does NOT serve any connections — call Run().
func New(opts ...Option) (*App, error) {
	// Apply options.
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	// Load configuration (env vars), then apply option overrides.
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.cacheDir != "" {
		cfg.CacheDir = o.cacheDir
	}
	if o.historyPath != "" {
		cfg.HistoryPath = o.historyPath
	}
	if o.withoutHistory {
		cfg.HistoryDisable = true
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger.Info("shinsa starting", "version", version)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(context.Background(), cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	// Create the result cache. Its janitor goroutine starts here and runs
	// until Shutdown.
	store, err := cache.New(cache.Options{
		Dir:             cfg.CacheDir,
		DefaultTTL:      cfg.CacheTTL,
		MaxMemoryItems:  cfg.MaxMemoryItems,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          logger,
	})
	if err != nil {
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("cache: %w", err)
	}

	// Create the model router: built-in tables merged with env overrides.
	routes, err := router.ParseRoutes(cfg.RouteOverrides)
	if err != nil {
		store.Close()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("route overrides: %w", err)
	}
	fallbacks, err := router.ParseFallbacks(cfg.FallbackOverride)
	if err != nil {
		store.Close()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("fallback overrides: %w", err)
	}
	r := router.New(router.Options{
		Routes:      routes,
		Fallbacks:   fallbacks,
		Credentials: cfg.ProviderCredentials(),
		MaxRetries:  cfg.MaxRetries,
		RetryDelay:  cfg.RetryDelay,
		MaxDepth:    cfg.FallbackMaxDepth,
		Logger:      logger,
	})

	// Assemble the evaluators. A completion backend upgrades the built-in
	// dimensions from offline heuristics to routed model calls; review work
	// rides the balanced tier.
	var evaluators []evaluator.Evaluator
	if o.complete != nil {
		complete := evaluator.CompleteFunc(o.complete)
		evaluators = []evaluator.Evaluator{
			evaluator.NewLLMQuality(r, model.QualityBalanced, complete, logger),
			evaluator.NewLLMEngagement(r, model.QualityBalanced, complete, logger),
			evaluator.NewLLMCompliance(r, model.QualityBalanced, complete, logger),
		}
		logger.Info("evaluators: model-backed")
	} else {
		evaluators = []evaluator.Evaluator{
			evaluator.HeuristicQuality{},
			evaluator.HeuristicEngagement{},
			evaluator.HeuristicCompliance{},
		}
		logger.Info("evaluators: heuristic (no completion backend configured)")
	}
	for _, e := range o.evaluators {
		evaluators = append(evaluators, &evaluatorAdapter{e: e})
	}

	// Create the aggregator from the configured weight table.
	agg, err := aggregate.New(aggregate.Options{
		Weights:          cfg.Weights,
		PublishThreshold: cfg.PublishThreshold,
		AskThreshold:     cfg.AskThreshold,
		MaxSuggestions:   cfg.MaxSuggestions,
		Logger:           logger,
	})
	if err != nil {
		store.Close()
		_ = otelShutdown(context.Background())
		return nil, err
	}

	// Open the evaluation audit trail. Like the cache's durable tier, a
	// database that cannot be opened is logged and dropped rather than
	// failing startup; evaluations then run unrecorded.
	var hist *history.Store
	if !cfg.HistoryDisable && cfg.HistoryPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.HistoryPath), 0o750); err != nil {
			logger.Warn("history: unavailable, evaluations will not be recorded", "path", cfg.HistoryPath, "error", err)
		} else if hist, err = history.Open(cfg.HistoryPath); err != nil {
			logger.Warn("history: unavailable, evaluations will not be recorded", "path", cfg.HistoryPath, "error", err)
			hist = nil
		} else {
			logger.Info("history: enabled", "path", cfg.HistoryPath)
		}
	} else {
		logger.Info("history: disabled")
	}

	// Create the review pipeline.
	reviewSvc, err := review.New(review.Options{
		Cache:        store,
		Evaluators:   evaluators,
		Executor:     executor.New(cfg.MaxWorkers, logger),
		Aggregator:   agg,
		History:      hist,
		TTL:          cfg.ReviewTTL,
		BatchTimeout: cfg.BatchTimeout,
		Logger:       logger,
	})
	if err != nil {
		if hist != nil {
			_ = hist.Close()
		}
		store.Close()
		_ = otelShutdown(context.Background())
		return nil, err
	}

	// Create the MCP server.
	mcpSrv := mcp.New(reviewSvc, r, hist, logger, version)

	return &App{
		store:        store,
		hist:         hist,
		review:       reviewSvc,
		mcpSrv:       mcpSrv,
		otelShutdown: otelShutdown,
		logger:       logger,
	}, nil
}

// Run serves the MCP protocol on stdin/stdout and blocks until ctx is
// cancelled, the client disconnects, or a fatal transport error occurs. On
// return, Shutdown is called automatically — callers should not call
// Shutdown separately.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.mcpSrv.ServeStdio(ctx)
	}()

	a.logger.Info("mcp server listening on stdio")

	// Block until cancellation, clean client disconnect, or transport error.
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			_ = a.Shutdown(context.Background())
			return err
		}
	}

	return a.Shutdown(context.Background())
}

// Shutdown closes the audit trail, stops the cache janitor, and flushes the
// OTEL provider. Safe to call once, after Run returns an error or when the
// App was never run.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shinsa shutting down")

	if a.hist != nil {
		if err := a.hist.Close(); err != nil {
			a.logger.Error("history close error", "error", err)
		}
	}
	a.store.Close()
	_ = a.otelShutdown(ctx)

	a.logger.Info("shinsa stopped")
	return nil
}

// Evaluate scores one piece of content without going through MCP. It shares
// the cache, history, and pipeline with the MCP tools, so an embedding
// pipeline and an attached agent see identical decisions.
func (a *App) Evaluate(ctx context.Context, content Content, mode ReviewMode, useCache bool) (Decision, error) {
	d, err := a.review.Evaluate(ctx, fromPublicContent(content), model.ReviewMode(mode), useCache)
	if err != nil {
		if errors.Is(err, review.ErrEmptyContent) {
			return Decision{}, ErrEmptyContent
		}
		return Decision{}, err
	}
	return toPublicDecision(d), nil
}

// Fingerprint returns the cache identity of content: same fingerprint, same
// cached decision and history lineage.
func (a *App) Fingerprint(content Content) string {
	return review.Fingerprint(fromPublicContent(content))
}

// CacheStats reports evaluation cache counters since startup.
func (a *App) CacheStats() CacheStats {
	return toPublicStats(a.review.CacheStats())
}

// History returns up to limit recent evaluations, newest first.
// Returns ErrHistoryDisabled when the audit trail is off.
func (a *App) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if a.hist == nil {
		return nil, ErrHistoryDisabled
	}
	entries, err := a.hist.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = toPublicEntry(e)
	}
	return out, nil
}

// evaluatorAdapter runs a public Evaluator inside the internal pipeline.
type evaluatorAdapter struct {
	e Evaluator
}

func (a *evaluatorAdapter) Dimension() string { return a.e.Dimension() }

func (a *evaluatorAdapter) Evaluate(ctx context.Context, content model.Content) (model.EvaluationScore, error) {
	s, err := a.e.Evaluate(ctx, toPublicContent(content))
	if err != nil {
		return model.EvaluationScore{}, err
	}
	return fromPublicScore(s), nil
}

// ── Type converters ────────────────────────────────────────────────────────────

func fromPublicContent(c Content) model.Content {
	return model.Content{
		Title:    c.Title,
		Body:     c.Body,
		Topic:    c.Topic,
		Hashtags: c.Hashtags,
	}
}

func toPublicContent(c model.Content) Content {
	return Content{
		Title:    c.Title,
		Body:     c.Body,
		Topic:    c.Topic,
		Hashtags: c.Hashtags,
	}
}

func fromPublicScore(s Score) model.EvaluationScore {
	return model.EvaluationScore{
		Dimension:   s.Dimension,
		Score:       s.Score,
		Strengths:   s.Strengths,
		Weaknesses:  s.Weaknesses,
		Suggestions: s.Suggestions,
		Confidence:  s.Confidence,
		Passed:      s.Passed,
		RiskLevel:   model.RiskLevel(s.RiskLevel),
	}
}

func toPublicScore(s model.EvaluationScore) Score {
	return Score{
		Dimension:   s.Dimension,
		Score:       s.Score,
		Strengths:   s.Strengths,
		Weaknesses:  s.Weaknesses,
		Suggestions: s.Suggestions,
		Confidence:  s.Confidence,
		Passed:      s.Passed,
		RiskLevel:   string(s.RiskLevel),
	}
}

// toPublicDecision converts an internal model.AggregateDecision to the public
// shinsa.Decision. Lives here because this is the only file that imports both
// sides of the boundary.
func toPublicDecision(d model.AggregateDecision) Decision {
	dims := make(map[string]Score, len(d.Dimensions))
	for name, s := range d.Dimensions {
		dims[name] = toPublicScore(s)
	}
	return Decision{
		Verdict:          Verdict(d.Verdict),
		OverallScore:     d.OverallScore,
		Dimensions:       dims,
		CompliancePassed: d.CompliancePassed,
		Suggestions:      d.Suggestions,
		Mode:             ReviewMode(d.Mode),
		FromCache:        d.FromCache,
		ElapsedMS:        d.ElapsedMS,
		EvaluatedAt:      d.EvaluatedAt,
	}
}

func toPublicEntry(e history.Entry) HistoryEntry {
	return HistoryEntry{
		ID:               e.ID,
		Fingerprint:      e.Fingerprint,
		Mode:             ReviewMode(e.Mode),
		Verdict:          Verdict(e.Verdict),
		OverallScore:     e.OverallScore,
		CompliancePassed: e.CompliancePassed,
		FromCache:        e.FromCache,
		ElapsedMS:        e.ElapsedMS,
		CreatedAt:        e.CreatedAt,
	}
}

func toPublicStats(s cache.Stats) CacheStats {
	return CacheStats{
		Hits:        s.Hits,
		Misses:      s.Misses,
		Sets:        s.Sets,
		HitRate:     s.HitRate,
		MemoryItems: s.MemoryItems,
	}
}
