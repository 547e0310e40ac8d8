package mcp

import (
	"context"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	// before-publish — guides the agent through reviewing a draft first.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("before-publish",
			mcplib.WithPromptDescription("Review draft content before publishing it"),
			mcplib.WithArgument("mode",
				mcplib.ArgumentDescription("Evaluation mode: full (default) or fast"),
			),
		),
		s.handleBeforePublishPrompt,
	)

	// agent-setup — full system prompt snippet explaining the review workflow.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("agent-setup",
			mcplib.WithPromptDescription("System prompt snippet explaining the Shinsa review-before-publish workflow"),
		),
		s.handleAgentSetupPrompt,
	)
}

func (s *Server) handleBeforePublishPrompt(ctx context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	mode := request.Params.Arguments["mode"]
	if mode == "" {
		mode = "full"
	}
	if mode != "full" && mode != "fast" {
		return nil, fmt.Errorf("mcp: mode must be full or fast, got %q", mode)
	}

	return &mcplib.GetPromptResult{
		Description: "Review the draft before publishing",
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Before publishing this draft, follow these steps:

1. CALL shinsa_review with the draft title and content, mode="%s".

2. ACT on the verdict:
   - publish: the content cleared every check. Go ahead.
   - ask_user: acceptable but borderline. Show the user the score and
     suggestions and let them decide.
   - recommend_optimize: apply the suggestions, then review again.
   - must_optimize: the compliance gate failed. Do NOT publish. Fix every
     compliance issue in the suggestions, then review again.

3. ITERATE at most three times. If the verdict still is not publish,
   escalate to the user with the latest decision attached.

Never skip the review, and never publish content whose latest verdict is
must_optimize.`, mode),
				},
			},
		},
	}, nil
}

func (s *Server) handleAgentSetupPrompt(ctx context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	return &mcplib.GetPromptResult{
		Description: "Shinsa review workflow for AI agents",
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: `You have access to Shinsa, an evaluation layer for social content. It scores
drafts on quality, engagement, and compliance, and turns the scores into a
single publish verdict -- so nothing non-compliant or weak ships by accident.

## The Pattern: Review Before Publish

Every draft goes through shinsa_review before it is published:

### Reviewing:
Call shinsa_review with the draft title and content. Use mode="full" for
the complete evaluation; mode="fast" skips the engagement dimension when
you only need a quick compliance and quality check. Fast mode is strictly
more conservative and never returns a publish verdict on its own.

### Acting on the verdict:
- publish: cleared every check, safe to ship
- ask_user: acceptable but borderline -- a human should decide
- recommend_optimize: below the bar, apply the suggestions and re-review
- must_optimize: compliance gate failed, publishing is blocked until fixed

Identical drafts are cached, so re-reviewing unchanged content is free.
Pass use_cache=false only when you need a deliberately fresh opinion.

## Available Tools

- shinsa_review: Evaluate a draft and get a publish verdict (use FIRST)
- shinsa_route: See which model a task type routes to, and its fallbacks
- shinsa_models: List the configured model catalog
- shinsa_cache_stats: Result cache hit/miss counters
- shinsa_history: Recent evaluations and verdict totals

## Reading Scores

Scores are 0-10 per dimension, combined by weight into overall_score.
The compliance dimension is also a hard gate: when it fails, the verdict
is must_optimize regardless of overall_score. Suggestions are ordered
most important first -- apply them top to bottom.`,
				},
			},
		},
	}, nil
}
