package router

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/shinsa-ai/shinsa/internal/model"
)

// InvokeFunc performs one model call and returns its output. The router owns
// retries and degradation; implementations should fail fast and respect ctx.
type InvokeFunc func(ctx context.Context, modelName string) (string, error)

// CallResult reports which model finally served a call and how hard the
// router had to work for it.
type CallResult struct {
	Output   string
	Model    string
	Attempts int  // total attempts across the whole chain
	Degraded bool // true when a fallback model served the call
}

// callState is one node in the fallback state machine. The machine makes the
// retry/degrade policy explicit: a model is retried in place until its
// attempt budget runs out, then the call degrades to the next model in the
// chain, and only running off the end of the chain is a failure.
type callState int

const (
	stateAttempting callState = iota
	stateRetrying
	stateDegrading
	stateSucceeded
	stateExhausted
)

// CallWithFallback resolves the model for task and quality, then walks its
// fallback chain: up to MaxRetries attempts per model with a fixed delay
// between them, degrading on persistent failure. The attempt total is
// bounded by chain length times MaxRetries. Chain exhaustion returns
// ErrExhausted wrapping the last attempt's error; context cancellation
// aborts immediately with ctx.Err().
//
// Models whose provider holds no credential are skipped without burning
// retry delays.
func (r *Router) CallWithFallback(ctx context.Context, task model.TaskType, quality model.QualityLevel, invoke InvokeFunc) (CallResult, error) {
	primary, err := r.SelectModel(task, quality)
	if err != nil {
		return CallResult{}, err
	}
	chain := r.FallbackChain(primary)

	var (
		res     CallResult
		lastErr error
		pos     int // index into chain
		tries   int // attempts on the current model
	)

	state := stateAttempting
	for {
		switch state {
		case stateAttempting:
			if err := ctx.Err(); err != nil {
				return CallResult{}, err
			}
			name := chain[pos]
			if !r.credentialed(name) {
				lastErr = fmt.Errorf("router: model %q has no credentialed provider", name)
				state = stateDegrading
				continue
			}
			res.Attempts++
			tries++
			output, err := invoke(ctx, name)
			if err == nil {
				res.Output = output
				res.Model = name
				res.Degraded = pos > 0
				state = stateSucceeded
				continue
			}
			lastErr = err
			r.logger.Warn("router: model call failed",
				"model", name, "attempt", tries, "max_retries", r.maxRetries, "error", err)
			if tries < r.maxRetries {
				state = stateRetrying
			} else {
				state = stateDegrading
			}

		case stateRetrying:
			if err := r.sleep(ctx, r.retryDelay); err != nil {
				return CallResult{}, err
			}
			state = stateAttempting

		case stateDegrading:
			pos++
			tries = 0
			if pos >= len(chain) {
				state = stateExhausted
				continue
			}
			r.logger.Info("router: degrading to fallback model",
				"from", chain[pos-1], "to", chain[pos])
			r.degradations.Add(ctx, 1, metric.WithAttributes(
				attribute.String("shinsa.model", chain[pos-1]),
			))
			state = stateAttempting

		case stateSucceeded:
			return res, nil

		case stateExhausted:
			r.exhaustions.Add(ctx, 1, metric.WithAttributes(
				attribute.String("shinsa.model", chain[0]),
			))
			return CallResult{}, fmt.Errorf("%w: %d attempts across %d models: %w",
				ErrExhausted, res.Attempts, len(chain), lastErr)
		}
	}
}
