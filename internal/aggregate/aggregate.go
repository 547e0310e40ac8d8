// Package aggregate folds per-dimension evaluation scores into a single
// publish/hold decision. The compliance gate is a veto: a failed gate forces
// must_optimize no matter how well the content scored elsewhere. Dimensions
// that produced no score count as zero at full weight, so a broken evaluator
// drags the overall score down instead of silently inflating it.
package aggregate

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shinsa-ai/shinsa/internal/model"
)

// GateDimension is the dimension whose Passed flag can veto the verdict.
const GateDimension = "compliance"

// Options configures an Aggregator. Weights are required; everything else
// has production defaults.
type Options struct {
	// Weights define the scored dimensions and their share of the overall
	// score. Slice order fixes suggestion collection order.
	Weights []model.DimensionWeight

	PublishThreshold float64 // default 8.0
	AskThreshold     float64 // default 6.0
	MaxSuggestions   int     // default 5

	// Gate names the veto dimension. Default "compliance".
	Gate string

	Logger *slog.Logger
}

// Aggregator is immutable after construction and safe for concurrent use.
type Aggregator struct {
	weights        []model.DimensionWeight
	publish        float64
	ask            float64
	maxSuggestions int
	gate           string
	logger         *slog.Logger
}

// New validates the weight table and returns an Aggregator.
func New(opts Options) (*Aggregator, error) {
	if err := model.ValidateWeights(opts.Weights); err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	if opts.PublishThreshold == 0 {
		opts.PublishThreshold = 8.0
	}
	if opts.AskThreshold == 0 {
		opts.AskThreshold = 6.0
	}
	if opts.PublishThreshold < model.ScoreMin || opts.PublishThreshold > model.ScoreMax {
		return nil, fmt.Errorf("aggregate: publish threshold %v outside [%v, %v]",
			opts.PublishThreshold, model.ScoreMin, model.ScoreMax)
	}
	if opts.AskThreshold > opts.PublishThreshold {
		return nil, fmt.Errorf("aggregate: ask threshold %v above publish threshold %v",
			opts.AskThreshold, opts.PublishThreshold)
	}
	if opts.MaxSuggestions <= 0 {
		opts.MaxSuggestions = 5
	}
	if opts.Gate == "" {
		opts.Gate = GateDimension
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Aggregator{
		weights:        opts.Weights,
		publish:        opts.PublishThreshold,
		ask:            opts.AskThreshold,
		maxSuggestions: opts.MaxSuggestions,
		gate:           opts.Gate,
		logger:         opts.Logger,
	}, nil
}

// Aggregate combines the given dimension scores into a decision. Scores are
// normalized on the way in, so callers may pass raw evaluator output.
//
// The verdict ladder, highest precedence first: gate failed or gate missing
// means must_optimize, then publish at or above the publish threshold, then
// ask_user at or above the ask threshold, then recommend_optimize. The
// threshold comparison uses the unrounded sum; OverallScore is reported
// rounded to two decimals.
func (a *Aggregator) Aggregate(scores map[string]model.EvaluationScore) model.AggregateDecision {
	dims := make(map[string]model.EvaluationScore, len(scores))
	for name, s := range scores {
		dims[name] = s.Normalized()
	}

	var overall float64
	for _, dw := range a.weights {
		s, ok := dims[dw.Dimension]
		if !ok {
			a.logger.Warn("aggregate: dimension missing, scoring zero", "dimension", dw.Dimension)
			continue
		}
		overall += dw.Weight * s.Score
	}

	gateScore, gateSeen := dims[a.gate]
	compliancePassed := gateSeen && gateScore.GatePassed()

	var verdict model.Verdict
	switch {
	case !compliancePassed:
		verdict = model.VerdictMustOptimize
	case overall >= a.publish:
		verdict = model.VerdictPublish
	case overall >= a.ask:
		verdict = model.VerdictAskUser
	default:
		verdict = model.VerdictRecommendOptimize
	}

	return model.AggregateDecision{
		Verdict:          verdict,
		OverallScore:     math.Round(overall*100) / 100,
		Dimensions:       dims,
		CompliancePassed: compliancePassed,
		Suggestions:      a.collectSuggestions(dims),
		EvaluatedAt:      time.Now().UTC(),
	}
}

// collectSuggestions unions suggestions across dimensions in weight order,
// keeping the first occurrence of each and stopping at the cap.
func (a *Aggregator) collectSuggestions(dims map[string]model.EvaluationScore) []string {
	var out []string
	seen := make(map[string]bool)
	for _, dw := range a.weights {
		for _, sug := range dims[dw.Dimension].Suggestions {
			if sug == "" || seen[sug] {
				continue
			}
			if len(out) == a.maxSuggestions {
				return out
			}
			seen[sug] = true
			out = append(out, sug)
		}
	}
	return out
}
