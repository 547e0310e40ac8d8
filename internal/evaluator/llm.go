package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shinsa-ai/shinsa/internal/model"
	"github.com/shinsa-ai/shinsa/internal/router"
)

// ErrNoBackend reports an LLM evaluator constructed without a completion
// function.
var ErrNoBackend = errors.New("evaluator: no completion backend configured")

// perCallTimeout is the maximum time for a single model call. Separate from
// the batch timeout so one slow backend doesn't eat the whole evaluation
// budget before the router can degrade to a fallback.
const perCallTimeout = 60 * time.Second

// bodyPreviewLimit caps how much of the body the engagement prompt carries.
// Engagement is judged from the opening anyway, and shorter prompts keep the
// per-call cost of the most expensive dimension down.
const bodyPreviewLimit = 800

// qualityPrompt asks for a structured quality verdict. The reply format is
// line-oriented so a partial or chatty response still parses.
const qualityPrompt = `You are a content quality reviewer for short-form social posts.

Review this post:

TITLE: %s

BODY:
%s

Score the post from 0 to 10 overall across these criteria:
1. Writing mechanics (2 points): spelling, punctuation, grammar.
2. Logical flow (3 points): clear opening, body, and close, with natural transitions.
3. Accuracy (3 points): facts and figures are plausible, sourced, not misleading.
4. Originality (2 points): a fresh angle or first-hand experience, not boilerplate.

Answer in exactly this line format and nothing else:
SCORE: <0-10>
STRENGTHS: <item>; <item>
WEAKNESSES: <item>; <item>
SUGGESTIONS: <item>; <item>
CONFIDENCE: <0-1>`

const engagementPrompt = `You are a social media reviewer judging how likely a post is to earn likes, saves, and comments.

Review this post:

TITLE: %s

BODY:
%s

Score the post from 0 to 10 overall across these criteria:
1. Title appeal (3 points): numbers, questions, emotional words, emphasis.
2. Emotional triggers (3 points): relatability, curiosity, usefulness, a debatable take.
3. Practical value (2 points): concrete information a reader can apply directly.
4. Interaction prompts (2 points): invites readers to comment, save, or answer a question.

Answer in exactly this line format and nothing else:
SCORE: <0-10>
STRENGTHS: <item>; <item>
WEAKNESSES: <item>; <item>
SUGGESTIONS: <item>; <item>
CONFIDENCE: <0-1>`

const compliancePrompt = `You are a compliance reviewer screening social posts before publication.

Review this post:

TITLE: %s

BODY:
%s

Score the post from 0 to 10 overall across these criteria:
1. Prohibited topics (3 points): no gambling, adult content, violence, drugs, or scams.
2. Advertising claims (3 points): no superlatives ("best ever", "number one") and no absolute claims ("100%% effective", "guaranteed", "permanent").
3. Platform rules (2 points): concise title, reasonable length, no off-platform contact solicitation.
4. Truthfulness (2 points): nothing presented as fact that the post cannot back up.

Answer in exactly this line format and nothing else:
SCORE: <0-10>
PASSED: <yes|no>
RISK: <low|medium|high>
STRENGTHS: <item>; <item>
WEAKNESSES: <item>; <item>
SUGGESTIONS: <item>; <item>
CONFIDENCE: <0-1>`

// LLM evaluates one dimension by prompting a model through the router, so
// every evaluation inherits retry and fallback behavior.
type LLM struct {
	dimension   string
	gated       bool
	quality     model.QualityLevel
	router      *router.Router
	complete    CompleteFunc
	logger      *slog.Logger
	buildPrompt func(model.Content) string
}

// NewLLMQuality returns the LLM-backed quality evaluator.
func NewLLMQuality(r *router.Router, quality model.QualityLevel, complete CompleteFunc, logger *slog.Logger) *LLM {
	return newLLM(DimensionQuality, false, r, quality, complete, logger, func(c model.Content) string {
		return fmt.Sprintf(qualityPrompt, c.Title, c.Body)
	})
}

// NewLLMEngagement returns the LLM-backed engagement evaluator. The body is
// truncated to bodyPreviewLimit runes.
func NewLLMEngagement(r *router.Router, quality model.QualityLevel, complete CompleteFunc, logger *slog.Logger) *LLM {
	return newLLM(DimensionEngagement, false, r, quality, complete, logger, func(c model.Content) string {
		return fmt.Sprintf(engagementPrompt, c.Title, preview(c.Body, bodyPreviewLimit))
	})
}

// NewLLMCompliance returns the LLM-backed compliance evaluator, whose reply
// must carry the PASSED gate flag.
func NewLLMCompliance(r *router.Router, quality model.QualityLevel, complete CompleteFunc, logger *slog.Logger) *LLM {
	return newLLM(DimensionCompliance, true, r, quality, complete, logger, func(c model.Content) string {
		return fmt.Sprintf(compliancePrompt, c.Title, c.Body)
	})
}

func newLLM(dimension string, gated bool, r *router.Router, quality model.QualityLevel, complete CompleteFunc, logger *slog.Logger, build func(model.Content) string) *LLM {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLM{
		dimension:   dimension,
		gated:       gated,
		quality:     quality,
		router:      r,
		complete:    complete,
		logger:      logger,
		buildPrompt: build,
	}
}

// Dimension implements Evaluator.
func (e *LLM) Dimension() string { return e.dimension }

// Evaluate prompts a model for this dimension's verdict. Routing, retries,
// and degradation are the router's job; an error here means the whole chain
// failed or the final reply was unusable. Ambiguous replies are errors, not
// guessed scores.
func (e *LLM) Evaluate(ctx context.Context, content model.Content) (model.EvaluationScore, error) {
	if e.complete == nil {
		return model.EvaluationScore{}, ErrNoBackend
	}

	prompt := e.buildPrompt(content)
	res, err := e.router.CallWithFallback(ctx, model.TaskReview, e.quality,
		func(ctx context.Context, name string) (string, error) {
			callCtx, cancel := context.WithTimeout(ctx, perCallTimeout)
			defer cancel()
			return e.complete(callCtx, name, prompt)
		})
	if err != nil {
		return model.EvaluationScore{}, fmt.Errorf("evaluator: %s: %w", e.dimension, err)
	}

	score, err := ParseScoreResponse(res.Output, e.gated)
	if err != nil {
		return model.EvaluationScore{}, fmt.Errorf("evaluator: %s: %w", e.dimension, err)
	}
	score.Dimension = e.dimension

	e.logger.Debug("evaluator: dimension scored",
		"dimension", e.dimension, "score", score.Score, "model", res.Model, "degraded", res.Degraded)
	return score.Normalized(), nil
}

// ParseScoreResponse extracts a score record from a line-oriented model
// reply. A missing or unparsable SCORE line (or, for gated dimensions, a
// missing or unparsable PASSED line) is an error to enforce fail-safe
// behavior: an ambiguous reply becomes a missing dimension, never an
// invented score. Malformed secondary fields are dropped instead: an
// unrecognized RISK is cleared and a bad CONFIDENCE falls back to 0.5.
func ParseScoreResponse(response string, gated bool) (model.EvaluationScore, error) {
	lines := strings.Split(strings.TrimSpace(response), "\n")

	var rec model.EvaluationScore
	var scoreStr, passedStr, riskStr, confStr string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		switch {
		case strings.HasPrefix(lower, "score:"):
			scoreStr = strings.TrimSpace(trimmed[len("score:"):])
		case strings.HasPrefix(lower, "passed:"):
			passedStr = strings.ToLower(strings.TrimSpace(trimmed[len("passed:"):]))
		case strings.HasPrefix(lower, "risk:"):
			riskStr = strings.ToLower(strings.TrimSpace(trimmed[len("risk:"):]))
		case strings.HasPrefix(lower, "strengths:"):
			rec.Strengths = splitList(trimmed[len("strengths:"):])
		case strings.HasPrefix(lower, "weaknesses:"):
			rec.Weaknesses = splitList(trimmed[len("weaknesses:"):])
		case strings.HasPrefix(lower, "suggestions:"):
			rec.Suggestions = splitList(trimmed[len("suggestions:"):])
		case strings.HasPrefix(lower, "confidence:"):
			confStr = strings.TrimSpace(trimmed[len("confidence:"):])
		}
	}

	if scoreStr == "" {
		return model.EvaluationScore{}, fmt.Errorf("no SCORE line found in response")
	}
	// Normalize: strip brackets and a "/10" suffix (e.g. "[8.5/10]" → "8.5").
	scoreStr = strings.TrimSuffix(strings.Trim(scoreStr, "[] "), "/10")
	score, err := strconv.ParseFloat(strings.TrimSpace(scoreStr), 64)
	if err != nil {
		return model.EvaluationScore{}, fmt.Errorf("unparsable SCORE %q", scoreStr)
	}
	rec.Score = score

	if gated {
		switch strings.Trim(passedStr, "[] ") {
		case "yes", "true":
			rec.Passed = model.BoolPtr(true)
		case "no", "false":
			rec.Passed = model.BoolPtr(false)
		case "":
			return model.EvaluationScore{}, fmt.Errorf("no PASSED line found in response")
		default:
			return model.EvaluationScore{}, fmt.Errorf("unparsable PASSED %q", passedStr)
		}
	}

	switch riskStr = strings.Trim(riskStr, "[] "); riskStr {
	case "low", "medium", "high":
		rec.RiskLevel = model.RiskLevel(riskStr)
	}

	rec.Confidence = 0.5
	if confStr != "" {
		if conf, err := strconv.ParseFloat(strings.Trim(confStr, "[] "), 64); err == nil {
			rec.Confidence = conf
		}
	}

	return rec, nil
}

// splitList parses a semicolon-separated list, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(strings.Trim(s, "[] "), ";") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// preview truncates s to limit runes, marking the cut.
func preview(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
