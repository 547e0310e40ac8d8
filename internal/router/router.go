// Package router selects backend models for tasks and keeps calls alive
// through retries and fallback chains. Routing is table-driven: a task type
// and quality level resolve to a primary model, and each model knows the
// cheaper model it degrades to when it keeps failing.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/shinsa-ai/shinsa/internal/model"
	"github.com/shinsa-ai/shinsa/internal/telemetry"
)

var (
	// ErrUnknownTaskType reports a task type absent from the routing table.
	// This is a configuration error: retrying cannot fix it.
	ErrUnknownTaskType = errors.New("router: unknown task type")

	// ErrExhausted reports that every model in a fallback chain failed.
	ErrExhausted = errors.New("router: fallback chain exhausted")
)

// probeTimeout is the maximum time for a single availability probe.
// Separate from the caller's context so one dead backend doesn't stall
// availability listings.
const probeTimeout = 5 * time.Second

// ProbeFunc checks that a model backend answers at all. Optional; when nil,
// availability is decided by catalog membership and credentials alone.
type ProbeFunc func(ctx context.Context, modelName string) error

// SleepFunc waits between retry attempts. Injected so tests can run the
// retry loop without real delays. A non-nil error aborts the call.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Options configures a Router. Zero values select the built-in tables and
// production timing.
type Options struct {
	// Catalog overrides the built-in model set entirely when non-nil.
	Catalog map[string]model.ModelDescriptor
	// Routes are applied entry by entry over the built-in routing table.
	Routes map[model.TaskType]map[model.QualityLevel]string
	// Fallbacks are applied over the built-in fallback table. An empty
	// value marks the model terminal.
	Fallbacks map[string]string
	// Credentials maps provider name to credential presence. Nil means no
	// gating: every cataloged model counts as credentialed.
	Credentials map[string]bool
	MaxRetries  int           // attempts per model, default 3
	RetryDelay  time.Duration // fixed delay between attempts, default 2s
	MaxDepth    int           // fallback chain cap, default 5
	Probe       ProbeFunc
	Sleep       SleepFunc
	Logger      *slog.Logger
}

// Router is immutable after construction and safe for concurrent use.
type Router struct {
	catalog     map[string]model.ModelDescriptor
	routes      map[model.TaskType]map[model.QualityLevel]string
	fallbacks   map[string]string
	credentials map[string]bool
	maxRetries  int
	retryDelay  time.Duration
	maxDepth    int
	probe       ProbeFunc
	sleep       SleepFunc
	logger      *slog.Logger

	degradations metric.Int64Counter
	exhaustions  metric.Int64Counter
}

// New builds a Router from the built-in tables with opts applied on top.
func New(opts Options) *Router {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}
	if opts.MaxDepth < 1 {
		opts.MaxDepth = 5
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Sleep == nil {
		opts.Sleep = defaultSleep
	}

	catalog := opts.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}

	routes := DefaultRoutes()
	for task, levels := range opts.Routes {
		if routes[task] == nil {
			routes[task] = make(map[model.QualityLevel]string)
		}
		for quality, name := range levels {
			routes[task][quality] = name
		}
	}

	fallbacks := DefaultFallbacks()
	for name, next := range opts.Fallbacks {
		if next == "" {
			delete(fallbacks, name)
			continue
		}
		fallbacks[name] = next
	}

	meter := telemetry.Meter("shinsa/router")
	degradations, _ := meter.Int64Counter("shinsa.router.degradations",
		metric.WithDescription("Times a call moved down its fallback chain, by abandoned model"),
	)
	exhaustions, _ := meter.Int64Counter("shinsa.router.exhaustions",
		metric.WithDescription("Calls that failed on every model in their fallback chain"),
	)

	return &Router{
		catalog:      catalog,
		routes:       routes,
		fallbacks:    fallbacks,
		credentials:  opts.Credentials,
		maxRetries:   opts.MaxRetries,
		retryDelay:   opts.RetryDelay,
		maxDepth:     opts.MaxDepth,
		probe:        opts.Probe,
		sleep:        opts.Sleep,
		logger:       opts.Logger,
		degradations: degradations,
		exhaustions:  exhaustions,
	}
}

// SelectModel resolves the model for a task at the given quality level. An
// empty quality selects balanced, and a quality level the table does not
// list falls back to the task's balanced entry.
func (r *Router) SelectModel(task model.TaskType, quality model.QualityLevel) (string, error) {
	levels, ok := r.routes[task]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTaskType, task)
	}
	if quality == "" {
		quality = model.QualityBalanced
	}
	if name, ok := levels[quality]; ok {
		return name, nil
	}
	if name, ok := levels[model.QualityBalanced]; ok {
		return name, nil
	}
	return "", fmt.Errorf("router: task %q has no route for quality %q and no balanced route", task, quality)
}

// FallbackModel returns the next model in the degradation order, or false
// when the model is terminal.
func (r *Router) FallbackModel(name string) (string, bool) {
	next, ok := r.fallbacks[name]
	if !ok || next == "" {
		return "", false
	}
	return next, true
}

// FallbackChain returns the degradation order starting at name, the model
// itself included. The chain stops at the first repeated model, so a
// miswired fallback table cannot loop, and never exceeds the configured
// depth.
func (r *Router) FallbackChain(name string) []string {
	chain := make([]string, 0, r.maxDepth)
	seen := make(map[string]bool)
	for name != "" && !seen[name] && len(chain) < r.maxDepth {
		chain = append(chain, name)
		seen[name] = true
		next, ok := r.FallbackModel(name)
		if !ok {
			break
		}
		name = next
	}
	return chain
}

// Describe returns the catalog descriptor for name.
func (r *Router) Describe(name string) (model.ModelDescriptor, bool) {
	desc, ok := r.catalog[name]
	return desc, ok
}

// Models returns every cataloged descriptor sorted by name.
func (r *Router) Models() []model.ModelDescriptor {
	names := make([]string, 0, len(r.catalog))
	for name := range r.catalog {
		names = append(names, name)
	}
	sort.Strings(names)

	models := make([]model.ModelDescriptor, 0, len(names))
	for _, name := range names {
		models = append(models, r.catalog[name])
	}
	return models
}

// CheckAvailability reports whether a model is ready to serve: it must be
// cataloged, its provider must hold a credential, and, when a probe is
// configured, the probe must succeed within probeTimeout. Unknown models
// are never available.
func (r *Router) CheckAvailability(ctx context.Context, name string) bool {
	if !r.credentialed(name) {
		return false
	}
	if r.probe == nil {
		return true
	}
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := r.probe(probeCtx, name); err != nil {
		r.logger.Debug("router: availability probe failed", "model", name, "error", err)
		return false
	}
	return true
}

// credentialed is the cheap half of CheckAvailability: catalog membership
// plus provider credential. Used before every fallback attempt, where a
// network probe would be too expensive.
func (r *Router) credentialed(name string) bool {
	desc, ok := r.catalog[name]
	if !ok {
		return false
	}
	if r.credentials == nil {
		return true
	}
	return r.credentials[desc.Provider]
}

func defaultSleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
