// Package review runs the full evaluation pipeline behind a result cache.
// Identical content in the same mode is evaluated once and the decision is
// memoized; a cache hit returns a previously valid decision for
// byte-identical content, not what a fresh model run would say this instant.
// That latency-for-freshness trade is deliberate.
package review

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/shinsa-ai/shinsa/internal/aggregate"
	"github.com/shinsa-ai/shinsa/internal/cache"
	"github.com/shinsa-ai/shinsa/internal/evaluator"
	"github.com/shinsa-ai/shinsa/internal/executor"
	"github.com/shinsa-ai/shinsa/internal/history"
	"github.com/shinsa-ai/shinsa/internal/model"
	"github.com/shinsa-ai/shinsa/internal/telemetry"
)

var (
	// ErrNoEvaluators reports a service constructed, or a mode resolved,
	// with nothing to run.
	ErrNoEvaluators = errors.New("review: no evaluators configured")

	// ErrEmptyContent reports content with neither title nor body.
	ErrEmptyContent = errors.New("review: content has no title and no body")
)

var tracer = otel.Tracer("shinsa/review")

// Options wires a Service. Cache, Evaluators, Executor, and Aggregator are
// required; History is optional.
type Options struct {
	Cache      *cache.Store
	Evaluators []evaluator.Evaluator
	Executor   *executor.Pool
	Aggregator *aggregate.Aggregator
	History    *history.Store

	// TTL bounds how long a stored decision stays valid. Default one hour.
	TTL time.Duration
	// BatchTimeout bounds how long one evaluation waits for its
	// evaluators. Default two minutes.
	BatchTimeout time.Duration

	Logger *slog.Logger
}

// Service memoizes evaluations. Safe for concurrent use; concurrent requests
// for identical content in the same mode share a single pipeline run.
type Service struct {
	cache        *cache.Store
	evaluators   []evaluator.Evaluator
	pool         *executor.Pool
	agg          *aggregate.Aggregator
	hist         *history.Store
	ttl          time.Duration
	batchTimeout time.Duration
	logger       *slog.Logger

	group singleflight.Group

	duration    metric.Float64Histogram
	evaluations metric.Int64Counter
}

// New validates the wiring and returns a Service.
func New(opts Options) (*Service, error) {
	if opts.Cache == nil {
		return nil, errors.New("review: cache store is required")
	}
	if len(opts.Evaluators) == 0 {
		return nil, ErrNoEvaluators
	}
	if opts.Executor == nil {
		return nil, errors.New("review: executor is required")
	}
	if opts.Aggregator == nil {
		return nil, errors.New("review: aggregator is required")
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = 2 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	meter := telemetry.Meter("shinsa/review")
	dur, _ := meter.Float64Histogram("shinsa.review.duration",
		metric.WithDescription("End-to-end evaluation time (ms)"),
		metric.WithUnit("ms"),
	)
	evals, _ := meter.Int64Counter("shinsa.review.evaluations",
		metric.WithDescription("Evaluations served, by verdict and cache outcome"),
	)

	return &Service{
		cache:        opts.Cache,
		evaluators:   opts.Evaluators,
		pool:         opts.Executor,
		agg:          opts.Aggregator,
		hist:         opts.History,
		ttl:          opts.TTL,
		batchTimeout: opts.BatchTimeout,
		logger:       opts.Logger,
		duration:     dur,
		evaluations:  evals,
	}, nil
}

// Fingerprint returns the stable content hash used in cache keys: the first
// sixteen hex characters of sha256 over title and body, newline-separated so
// the pair ("ab", "c") never collides with ("a", "bc").
func Fingerprint(c model.Content) string {
	sum := sha256.Sum256([]byte(c.Title + "\n" + c.Body))
	return hex.EncodeToString(sum[:])[:16]
}

// Evaluate scores content in the given mode. With useCache true, a stored
// decision for identical content is returned immediately, marked FromCache.
// With useCache false the lookup is bypassed but the fresh decision is still
// stored, so a forced re-evaluation refreshes the cache for later callers.
func (s *Service) Evaluate(ctx context.Context, content model.Content, mode model.ReviewMode, useCache bool) (model.AggregateDecision, error) {
	if content.Empty() {
		return model.AggregateDecision{}, ErrEmptyContent
	}
	switch mode {
	case "":
		mode = model.ModeFull
	case model.ModeFull, model.ModeFast:
	default:
		return model.AggregateDecision{}, fmt.Errorf("review: unknown mode %q", mode)
	}

	fp := Fingerprint(content)
	key := cache.Key([]string{"review", fp}, map[string]string{"mode": string(mode)})

	ctx, span := tracer.Start(ctx, "review.evaluate", trace.WithAttributes(
		attribute.String("shinsa.fingerprint", fp),
		attribute.String("shinsa.mode", string(mode)),
	))
	defer span.End()

	if useCache {
		var cached model.AggregateDecision
		if s.cache.GetJSON(key, &cached) {
			cached.FromCache = true
			s.logger.Debug("review: cache hit", "fingerprint", fp, "mode", mode)
			annotate(span, cached)
			s.record(ctx, fp, cached)
			s.count(ctx, cached)
			return cached, nil
		}
	}

	// Concurrent misses for the same key share one pipeline run.
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.runPipeline(ctx, content, mode, key, fp)
	})
	if err != nil {
		span.RecordError(err)
		return model.AggregateDecision{}, err
	}
	decision := v.(model.AggregateDecision)
	annotate(span, decision)
	s.record(ctx, fp, decision)
	s.count(ctx, decision)
	return decision, nil
}

// runPipeline executes the evaluators for mode concurrently, aggregates
// their scores, and stores the decision. A failed dimension is dropped from
// the score map and counts as zero at aggregation, so evaluator failures
// push the verdict down, never up.
func (s *Service) runPipeline(ctx context.Context, content model.Content, mode model.ReviewMode, key, fp string) (model.AggregateDecision, error) {
	start := time.Now()

	tasks := make([]executor.Task, 0, len(s.evaluators))
	for _, ev := range s.evaluators {
		if mode == model.ModeFast && ev.Dimension() == evaluator.DimensionEngagement {
			continue
		}
		tasks = append(tasks, executor.Task{
			Name: ev.Dimension(),
			Fn: func(ctx context.Context) (any, error) {
				return ev.Evaluate(ctx, content)
			},
		})
	}
	if len(tasks) == 0 {
		return model.AggregateDecision{}, ErrNoEvaluators
	}

	results := s.pool.Execute(ctx, tasks, s.batchTimeout)
	if err := ctx.Err(); err != nil {
		return model.AggregateDecision{}, err
	}

	scores := make(map[string]model.EvaluationScore, len(results))
	for name, res := range results {
		if res.Err != nil {
			s.logger.Warn("review: dimension failed", "dimension", name, "error", res.Err)
			continue
		}
		score, ok := res.Value.(model.EvaluationScore)
		if !ok {
			s.logger.Warn("review: dimension returned unexpected value", "dimension", name)
			continue
		}
		scores[name] = score
	}

	decision := s.agg.Aggregate(scores)
	decision.Mode = mode
	decision.FromCache = false
	decision.ElapsedMS = time.Since(start).Milliseconds()

	if err := s.cache.Set(key, decision, s.ttl); err != nil {
		s.logger.Warn("review: failed to store decision", "fingerprint", fp, "error", err)
	}
	s.duration.Record(ctx, float64(decision.ElapsedMS))

	s.logger.Info("review: evaluation complete",
		"fingerprint", fp, "mode", mode, "verdict", decision.Verdict,
		"overall_score", decision.OverallScore, "elapsed_ms", decision.ElapsedMS)
	return decision, nil
}

// Invalidate drops the stored decision for this content in the given mode.
// An empty mode targets full.
func (s *Service) Invalidate(content model.Content, mode model.ReviewMode) bool {
	if mode == "" {
		mode = model.ModeFull
	}
	key := cache.Key([]string{"review", Fingerprint(content)}, map[string]string{"mode": string(mode)})
	return s.cache.Delete(key)
}

// CacheStats exposes the underlying cache counters.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// record appends the decision to the audit trail. Recording failures are
// logged and swallowed: history must never fail an evaluation.
func (s *Service) record(ctx context.Context, fp string, d model.AggregateDecision) {
	if s.hist == nil {
		return
	}
	err := s.hist.Record(ctx, history.Entry{
		Fingerprint:      fp,
		Mode:             d.Mode,
		Verdict:          d.Verdict,
		OverallScore:     d.OverallScore,
		CompliancePassed: d.CompliancePassed,
		FromCache:        d.FromCache,
		ElapsedMS:        d.ElapsedMS,
	})
	if err != nil {
		s.logger.Warn("review: history record failed", "fingerprint", fp, "error", err)
	}
}

func (s *Service) count(ctx context.Context, d model.AggregateDecision) {
	s.evaluations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("shinsa.verdict", string(d.Verdict)),
		attribute.Bool("shinsa.from_cache", d.FromCache),
	))
}

func annotate(span trace.Span, d model.AggregateDecision) {
	span.SetAttributes(
		attribute.String("shinsa.verdict", string(d.Verdict)),
		attribute.Float64("shinsa.overall_score", d.OverallScore),
		attribute.Bool("shinsa.from_cache", d.FromCache),
	)
}
