package shinsa

import "context"

// CompleteFunc sends one prompt to the named model and returns its raw text
// response. When provided via WithCompleteFunc, the three built-in dimensions
// (quality, engagement, compliance) are scored by the routed model instead of
// the offline heuristics. The function must honor ctx cancellation; transient
// failures should surface as errors so the router's retry and fallback chain
// can react.
type CompleteFunc func(ctx context.Context, model, prompt string) (string, error)

// Evaluator scores one dimension of a piece of content.
// When provided via WithEvaluator, the dimension joins the built-in three and
// runs in the same evaluation pipeline. Its score appears in every Decision,
// but it moves the overall score only when SHINSA_REVIEW_WEIGHTS assigns the
// dimension a weight.
type Evaluator interface {
	// Dimension names the score this evaluator produces. Must be unique
	// across all registered evaluators.
	Dimension() string
	// Evaluate scores the content. Runs concurrently with other dimensions;
	// implementations must be safe for concurrent use.
	Evaluate(ctx context.Context, content Content) (Score, error)
}
