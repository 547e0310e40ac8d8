package evaluator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shinsa-ai/shinsa/internal/model"
)

// Heuristic evaluators run when no completion backend is configured. They
// trade nuance for determinism: the same content always produces the same
// score, which also makes them the reference behavior in tests.

// heuristicConfidence marks rule-based scores as rougher than model-based
// ones. Compliance is the exception: its rules are exact string checks.
const (
	heuristicConfidence  = 0.6
	complianceConfidence = 0.9
)

// Platform limits enforced by the compliance rules.
const (
	titleRuneLimit = 20
	bodyRuneLimit  = 1000
)

// sensitivePhrases flag topics the platform removes outright.
var sensitivePhrases = []string{
	"gambling", "casino", "adult content", "escort", "narcotics",
	"counterfeit", "pyramid scheme", "crypto giveaway",
}

// superlatives are advertising-law violations: claims of absolute rank.
var superlatives = []string{
	"best ever", "number one", "#1", "world's best", "top-rated",
	"unbeatable", "flawless", "the only",
}

// absoluteClaims read as false advertising: effectiveness promises no post
// can back up.
var absoluteClaims = []string{
	"100%", "guaranteed results", "works instantly", "cures",
	"permanent results", "risk-free", "never fails", "clinically proven",
}

// contactSolicitations pull readers off-platform, which the platform bans.
var contactSolicitations = []string{
	"dm me", "whatsapp", "telegram", "wechat", "add me on",
}

var digitPattern = regexp.MustCompile(`\d`)

// howToWords signal practical value in the body.
var howToWords = []string{"how to", "tips", "guide", "steps", "checklist", "tutorial"}

// interactionPrompts signal an explicit ask for reader response.
var interactionPrompts = []string{
	"comment", "let me know", "what do you think", "share your", "tag a",
}

// HeuristicCompliance screens content against the platform rule sets. Each
// finding costs two points; the risk ladder maps the remaining score to a
// level, and only high risk fails the gate.
type HeuristicCompliance struct{}

func (HeuristicCompliance) Dimension() string { return DimensionCompliance }

func (HeuristicCompliance) Evaluate(_ context.Context, c model.Content) (model.EvaluationScore, error) {
	text := strings.ToLower(c.Title + "\n" + c.Body)

	var issues []string
	for _, phrase := range sensitivePhrases {
		if strings.Contains(text, phrase) {
			issues = append(issues, fmt.Sprintf("contains prohibited topic %q", phrase))
		}
	}
	for _, phrase := range superlatives {
		if strings.Contains(text, phrase) {
			issues = append(issues, fmt.Sprintf("advertising superlative %q", phrase))
		}
	}
	for _, phrase := range absoluteClaims {
		if strings.Contains(text, phrase) {
			issues = append(issues, fmt.Sprintf("unverifiable claim %q", phrase))
		}
	}
	if n := utf8.RuneCountInString(c.Title); n > titleRuneLimit {
		issues = append(issues, fmt.Sprintf("title runs %d characters, platform limit is %d", n, titleRuneLimit))
	}
	if n := utf8.RuneCountInString(c.Body); n > bodyRuneLimit {
		issues = append(issues, fmt.Sprintf("body runs %d characters, platform limit is %d", n, bodyRuneLimit))
	}
	for _, phrase := range contactSolicitations {
		if strings.Contains(text, phrase) {
			issues = append(issues, "solicits off-platform contact")
			break
		}
	}

	// Two points per finding.
	score := 10.0 - 2.0*float64(len(issues))
	if score < 0 {
		score = 0
	}

	var risk model.RiskLevel
	switch {
	case score >= 8:
		risk = model.RiskLow
	case score >= 5:
		risk = model.RiskMedium
	default:
		risk = model.RiskHigh
	}

	rec := model.EvaluationScore{
		Dimension:  DimensionCompliance,
		Score:      score,
		Weaknesses: issues,
		Confidence: complianceConfidence,
		Passed:     model.BoolPtr(risk != model.RiskHigh),
		RiskLevel:  risk,
	}
	if len(issues) == 0 {
		rec.Strengths = []string{"no compliance issues found"}
		rec.Suggestions = []string{"content is compliant, no changes needed"}
	} else {
		for _, issue := range issues {
			rec.Suggestions = append(rec.Suggestions, "resolve: "+issue)
		}
	}
	return rec, nil
}

// HeuristicEngagement estimates interaction potential from surface signals.
//
// Scoring factors, on a 5.0 base:
//   - title contains a number: +1.0
//   - title asks a question: +0.5
//   - title carries emphasis (exclamation or emoji): +0.5
//   - body is substantive (>= 300 runes): +1.0
//   - body promises practical value (how-to words): +1.0
//   - body asks readers to respond: +0.5
//   - hashtags present: +0.5
type HeuristicEngagement struct{}

func (HeuristicEngagement) Dimension() string { return DimensionEngagement }

func (HeuristicEngagement) Evaluate(_ context.Context, c model.Content) (model.EvaluationScore, error) {
	rec := model.EvaluationScore{Dimension: DimensionEngagement, Confidence: heuristicConfidence}
	body := strings.ToLower(c.Body)

	score := 5.0

	if digitPattern.MatchString(c.Title) {
		score += 1.0
		rec.Strengths = append(rec.Strengths, "title leads with a number")
	} else {
		rec.Suggestions = append(rec.Suggestions, "add a concrete number to the title")
	}

	if strings.Contains(c.Title, "?") {
		score += 0.5
		rec.Strengths = append(rec.Strengths, "title asks a question")
	}

	if strings.Contains(c.Title, "!") || containsEmoji(c.Title) {
		score += 0.5
		rec.Strengths = append(rec.Strengths, "title carries emphasis")
	}

	if utf8.RuneCountInString(c.Body) >= 300 {
		score += 1.0
		rec.Strengths = append(rec.Strengths, "body is substantive")
	} else {
		rec.Weaknesses = append(rec.Weaknesses, "body may be too thin to save or share")
	}

	if containsAny(body, howToWords) {
		score += 1.0
		rec.Strengths = append(rec.Strengths, "promises practical value")
	} else {
		rec.Suggestions = append(rec.Suggestions, "frame the body as a how-to or checklist")
	}

	if containsAny(body, interactionPrompts) {
		score += 0.5
		rec.Strengths = append(rec.Strengths, "asks readers to respond")
	} else {
		rec.Suggestions = append(rec.Suggestions, "end with a question to invite comments")
	}

	if len(c.Hashtags) > 0 {
		score += 0.5
	} else {
		rec.Suggestions = append(rec.Suggestions, "add a couple of topical hashtags")
	}

	rec.Score = model.Clamp(score, model.ScoreMin, model.ScoreMax)
	return rec, nil
}

// HeuristicQuality scores structural completeness. It cannot judge accuracy
// or originality, so its ceiling is deliberately below a strong model-based
// review.
//
// Scoring factors, on a 5.0 base:
//   - title present: +0.5
//   - body substantive (tiered at 100/40 runes): +1.0 / +0.5
//   - more than one paragraph: +1.0
//   - concrete numbers in the body: +0.5
//   - clean closing punctuation: +0.5
type HeuristicQuality struct{}

func (HeuristicQuality) Dimension() string { return DimensionQuality }

func (HeuristicQuality) Evaluate(_ context.Context, c model.Content) (model.EvaluationScore, error) {
	rec := model.EvaluationScore{Dimension: DimensionQuality, Confidence: heuristicConfidence}

	body := strings.TrimSpace(c.Body)
	if body == "" {
		rec.Weaknesses = []string{"body is empty"}
		rec.Suggestions = []string{"write the post body"}
		return rec, nil
	}

	score := 5.0

	if strings.TrimSpace(c.Title) != "" {
		score += 0.5
	} else {
		rec.Weaknesses = append(rec.Weaknesses, "missing title")
	}

	switch n := utf8.RuneCountInString(body); {
	case n >= 100:
		score += 1.0
		rec.Strengths = append(rec.Strengths, "substantive body")
	case n >= 40:
		score += 0.5
	default:
		rec.Weaknesses = append(rec.Weaknesses, "body too short to carry an argument")
	}

	if len(strings.Split(body, "\n\n")) > 1 {
		score += 1.0
		rec.Strengths = append(rec.Strengths, "structured into paragraphs")
	} else {
		rec.Suggestions = append(rec.Suggestions, "break the body into paragraphs")
	}

	if digitPattern.MatchString(body) {
		score += 0.5
		rec.Strengths = append(rec.Strengths, "cites concrete figures")
	} else {
		rec.Suggestions = append(rec.Suggestions, "back the argument with a number or two")
	}

	if last, _ := utf8.DecodeLastRuneInString(body); strings.ContainsRune(".!?。！？", last) {
		score += 0.5
	} else {
		rec.Weaknesses = append(rec.Weaknesses, "ends mid-thought")
	}

	rec.Score = model.Clamp(score, model.ScoreMin, model.ScoreMax)
	return rec, nil
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// containsEmoji reports whether s carries a rune from the emoji blocks.
func containsEmoji(s string) bool {
	for _, r := range s {
		if r >= 0x1F300 && r <= 0x1FAFF {
			return true
		}
	}
	return false
}
