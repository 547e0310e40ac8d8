package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/shinsa-ai/shinsa/internal/history"
	"github.com/shinsa-ai/shinsa/internal/model"
	"github.com/shinsa-ai/shinsa/internal/review"
)

func (s *Server) registerTools() {
	// shinsa_review — evaluate a draft before publishing.
	s.mcpServer.AddTool(
		mcplib.NewTool("shinsa_review",
			mcplib.WithDescription(`Evaluate draft social content before publishing it.

WHEN TO USE: BEFORE publishing any post. This is the most important tool —
it catches compliance problems and weak content while they are still cheap
to fix.

Runs quality, engagement, and compliance evaluations concurrently and
aggregates them into a single verdict. Identical drafts are served from
cache, so re-checking after "no changes" is free.

WHAT YOU GET BACK:
- verdict: publish | ask_user | recommend_optimize | must_optimize
- overall_score: weighted 0-10 score across dimensions
- compliance_passed: whether the content cleared the compliance gate.
  A failed gate forces must_optimize no matter how high the score is.
- dimensions: the per-dimension scores with strengths and weaknesses
- suggestions: concrete edits, most important first

EXAMPLE: Before posting a product announcement, call shinsa_review with
the draft title and content. If the verdict is must_optimize, apply the
suggestions and review again.`),
			mcplib.WithReadOnlyHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(true),
			mcplib.WithString("title",
				mcplib.Description("Post title. At least one of title and content is required."),
			),
			mcplib.WithString("content",
				mcplib.Description("Post body text to evaluate"),
			),
			mcplib.WithString("topic",
				mcplib.Description("Optional topic or category, advisory context for the evaluators"),
			),
			mcplib.WithString("hashtags",
				mcplib.Description("Optional hashtags, comma- or space-separated (e.g. \"#launch, #saas\")"),
			),
			mcplib.WithString("mode",
				mcplib.Description("Evaluation mode: \"full\" runs every dimension, \"fast\" skips engagement to save a model round-trip. Fast mode is strictly more conservative and never auto-publishes."),
				mcplib.Enum("full", "fast"),
			),
			mcplib.WithBoolean("use_cache",
				mcplib.Description("Reuse a cached decision for identical content. Set false to force a fresh evaluation; the result still refreshes the cache."),
			),
		),
		s.handleReview,
	)

	// shinsa_route — resolve which model a task would use.
	s.mcpServer.AddTool(
		mcplib.NewTool("shinsa_route",
			mcplib.WithDescription(`Resolve which model a task routes to, and what it degrades to on failure.

WHEN TO USE: To understand or debug model selection — which backend a
given task type and quality level maps to, and the fallback chain that
will be tried in order if that model keeps failing.

EXAMPLE: shinsa_route with task_type="creation", quality="high" shows the
primary model and every cheaper model the call can degrade to.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("task_type",
				mcplib.Description("What the model call is for: analysis, creation, review, reasoning, or vision"),
				mcplib.Required(),
			),
			mcplib.WithString("quality",
				mcplib.Description("Cost/performance tier: fast, balanced, or high. Defaults to balanced."),
				mcplib.Enum("fast", "balanced", "high"),
			),
		),
		s.handleRoute,
	)

	// shinsa_models — list the model catalog.
	s.mcpServer.AddTool(
		mcplib.NewTool("shinsa_models",
			mcplib.WithDescription(`List every model in the catalog with provider, cost level, and context window.

WHEN TO USE: To see what backends are configured before reasoning about
routing or quality levels. Read-only; returns the full catalog sorted by
model name.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
		),
		s.handleModels,
	)

	// shinsa_cache_stats — result cache counters.
	s.mcpServer.AddTool(
		mcplib.NewTool("shinsa_cache_stats",
			mcplib.WithDescription(`Report result cache counters: hits, misses, sets, and hit rate.

WHEN TO USE: To check whether repeated reviews are actually being served
from cache, or to gauge how much evaluation cost the cache is absorbing.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
		),
		s.handleCacheStats,
	)

	// shinsa_history — recent evaluations and verdict totals.
	s.mcpServer.AddTool(
		mcplib.NewTool("shinsa_history",
			mcplib.WithDescription(`See what was evaluated recently, with verdict totals.

WHEN TO USE: To review past decisions — what was published, what was sent
back for optimization, and how verdicts are distributed overall. Entries
are ordered newest first.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithNumber("limit",
				mcplib.Description("Maximum entries to return"),
				mcplib.Min(1),
				mcplib.Max(100),
				mcplib.DefaultNumber(10),
			),
			mcplib.WithString("fingerprint",
				mcplib.Description("Optional: only show evaluations of one piece of content, identified by the fingerprint from a prior shinsa_review decision"),
			),
		),
		s.handleHistory,
	)
}

func (s *Server) handleReview(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	content := model.Content{
		Title:    request.GetString("title", ""),
		Body:     request.GetString("content", ""),
		Topic:    request.GetString("topic", ""),
		Hashtags: splitHashtags(request.GetString("hashtags", "")),
	}
	if content.Empty() {
		return errorResult("at least one of title and content is required"), nil
	}

	mode := model.ReviewMode(request.GetString("mode", ""))
	useCache := request.GetBool("use_cache", true)

	decision, err := s.review.Evaluate(ctx, content, mode, useCache)
	if err != nil {
		if errors.Is(err, review.ErrEmptyContent) {
			return errorResult("at least one of title and content is required"), nil
		}
		return errorResult(fmt.Sprintf("evaluation failed: %v", err)), nil
	}

	return jsonResult(decision), nil
}

func (s *Server) handleRoute(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	taskType := request.GetString("task_type", "")
	if taskType == "" {
		return errorResult("task_type is required"), nil
	}
	quality := model.QualityLevel(request.GetString("quality", ""))

	selected, err := s.router.SelectModel(model.TaskType(taskType), quality)
	if err != nil {
		return errorResult(fmt.Sprintf("routing failed: %v", err)), nil
	}

	resp := map[string]any{
		"task_type":      taskType,
		"quality":        quality,
		"model":          selected,
		"fallback_chain": s.router.FallbackChain(selected),
		"available":      s.router.CheckAvailability(ctx, selected),
	}
	if quality == "" {
		resp["quality"] = model.QualityBalanced
	}
	if desc, ok := s.router.Describe(selected); ok {
		resp["provider"] = desc.Provider
		resp["context_window"] = desc.ContextWindow
	}

	return jsonResult(resp), nil
}

func (s *Server) handleModels(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	models := s.router.Models()
	return jsonResult(map[string]any{
		"models": models,
		"total":  len(models),
	}), nil
}

func (s *Server) handleCacheStats(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	return jsonResult(s.review.CacheStats()), nil
}

func (s *Server) handleHistory(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	if s.hist == nil {
		return errorResult("evaluation history is disabled"), nil
	}

	limit := request.GetInt("limit", 10)

	var (
		entries []history.Entry
		err     error
	)
	if fp := request.GetString("fingerprint", ""); fp != "" {
		entries, err = s.hist.ByFingerprint(ctx, fp, limit)
	} else {
		entries, err = s.hist.Recent(ctx, limit)
	}
	if err != nil {
		return errorResult(fmt.Sprintf("history query failed: %v", err)), nil
	}

	summary, err := s.hist.Summary(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("history summary failed: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"entries": entries,
		"total":   len(entries),
		"summary": summary,
	}), nil
}

// splitHashtags parses a comma- or space-separated hashtag string.
func splitHashtags(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}
