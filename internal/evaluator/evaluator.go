// Package evaluator scores social content along the quality, engagement,
// and compliance dimensions. Evaluators come in two families: LLM-backed
// ones compose a prompt, route it through the router's fallback chains, and
// parse the model's line-oriented reply; heuristic ones score with
// deterministic rules and never touch the network. Both families return the
// same validated record, so the aggregator does not care which family
// produced a score.
package evaluator

import (
	"context"

	"github.com/shinsa-ai/shinsa/internal/model"
)

// Dimension names shared between evaluators, weights, and the aggregator.
const (
	DimensionQuality    = "quality"
	DimensionEngagement = "engagement"
	DimensionCompliance = "compliance"
)

// CompleteFunc produces a completion from the named model. Implementations
// live outside this module; they must return an error on any failure rather
// than a sentinel string, since the router's retry layer reacts to errors
// only.
type CompleteFunc func(ctx context.Context, modelName, prompt string) (string, error)

// Evaluator scores one dimension of a piece of content.
type Evaluator interface {
	Dimension() string
	Evaluate(ctx context.Context, content model.Content) (model.EvaluationScore, error)
}
