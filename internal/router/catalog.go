package router

import (
	"fmt"
	"strings"

	"github.com/shinsa-ai/shinsa/internal/model"
)

// DefaultCatalog returns descriptors for the built-in model set. The catalog
// is what the router knows about each backend; models absent from it are
// treated as unavailable.
func DefaultCatalog() map[string]model.ModelDescriptor {
	return map[string]model.ModelDescriptor{
		"gpt-4o": {
			Name:          "gpt-4o",
			Provider:      "openai",
			CostLevel:     "high",
			ContextWindow: 128000,
			Strengths:     []string{"deep reasoning", "complex problem solving", "strategy"},
			Description:   "OpenAI flagship general model",
		},
		"gpt-4o-mini": {
			Name:          "gpt-4o-mini",
			Provider:      "openai",
			CostLevel:     "low",
			ContextWindow: 128000,
			Strengths:     []string{"fast responses", "low cost", "routine tasks"},
			Description:   "Lightweight GPT-4o variant",
		},
		"claude-3-5-sonnet-20241022": {
			Name:          "claude-3-5-sonnet-20241022",
			Provider:      "anthropic",
			CostLevel:     "high",
			ContextWindow: 200000,
			Strengths:     []string{"creative writing", "long form generation", "natural dialogue", "code generation"},
			Description:   "Claude 3.5 Sonnet (2024-10-22)",
		},
		// Legacy alias kept so older route overrides keep resolving.
		"claude-3.5-sonnet": {
			Name:          "claude-3.5-sonnet",
			Provider:      "anthropic",
			CostLevel:     "high",
			ContextWindow: 200000,
			Strengths:     []string{"creative writing", "long form generation", "natural dialogue"},
			Description:   "Claude 3.5 Sonnet (generic alias)",
		},
		"qwen2.5-vl": {
			Name:          "qwen2.5-vl",
			Provider:      "custom",
			CostLevel:     "medium",
			ContextWindow: 32000,
			Strengths:     []string{"image understanding", "multimodal analysis", "OCR"},
			Description:   "Qwen vision-language model",
		},
		"gpt-4o-vision": {
			Name:          "gpt-4o-vision",
			Provider:      "openai",
			CostLevel:     "high",
			ContextWindow: 128000,
			Strengths:     []string{"image understanding", "visual analysis"},
			Description:   "GPT-4o vision variant",
		},
	}
}

// DefaultRoutes maps every task type and quality level to a model name.
// Every task type must carry a balanced entry: it is the fallback when a
// caller asks for a quality level the table does not list.
func DefaultRoutes() map[model.TaskType]map[model.QualityLevel]string {
	return map[model.TaskType]map[model.QualityLevel]string{
		model.TaskAnalysis: {
			model.QualityFast:     "gpt-4o-mini",
			model.QualityBalanced: "gpt-4o",
			model.QualityHigh:     "gpt-4o",
		},
		model.TaskCreation: {
			model.QualityFast:     "gpt-4o-mini",
			model.QualityBalanced: "claude-3-5-sonnet-20241022",
			model.QualityHigh:     "claude-3-5-sonnet-20241022",
		},
		model.TaskReview: {
			model.QualityFast:     "gpt-4o-mini",
			model.QualityBalanced: "gpt-4o-mini",
			model.QualityHigh:     "gpt-4o",
		},
		model.TaskReasoning: {
			model.QualityFast:     "gpt-4o-mini",
			model.QualityBalanced: "gpt-4o",
			model.QualityHigh:     "gpt-4o",
		},
		model.TaskVision: {
			model.QualityFast:     "gpt-4o-vision",
			model.QualityBalanced: "qwen2.5-vl",
			model.QualityHigh:     "gpt-4o-vision",
		},
	}
}

// DefaultFallbacks maps each model to the cheaper model used when it keeps
// failing. Models without an entry are terminal: exhausting their retries
// exhausts the chain.
func DefaultFallbacks() map[string]string {
	return map[string]string{
		"gpt-4o":                     "gpt-4o-mini",
		"claude-3-5-sonnet-20241022": "gpt-4o",
		"claude-3.5-sonnet":          "gpt-4o",
		"qwen2.5-vl":                 "gpt-4o-vision",
		// gpt-4o-mini is already the cheapest and has nowhere to degrade.
	}
}

// ParseRoutes parses a "task.quality=model,..." override list, as carried in
// SHINSA_ROUTES. Entries are applied over the defaults by New.
func ParseRoutes(s string) (map[model.TaskType]map[model.QualityLevel]string, error) {
	routes := make(map[model.TaskType]map[model.QualityLevel]string)
	for _, part := range splitList(s) {
		spec, name, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf(`router: route %q is not of the form "task.quality=model"`, part)
		}
		task, quality, ok := strings.Cut(strings.TrimSpace(spec), ".")
		if !ok {
			return nil, fmt.Errorf(`router: route %q is not of the form "task.quality=model"`, part)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("router: route %q has an empty model name", part)
		}
		tt := model.TaskType(strings.TrimSpace(task))
		ql := model.QualityLevel(strings.TrimSpace(quality))
		if routes[tt] == nil {
			routes[tt] = make(map[model.QualityLevel]string)
		}
		routes[tt][ql] = name
	}
	return routes, nil
}

// ParseFallbacks parses a "model=next,..." override list, as carried in
// SHINSA_FALLBACKS. An empty right-hand side marks the model terminal.
func ParseFallbacks(s string) (map[string]string, error) {
	fallbacks := make(map[string]string)
	for _, part := range splitList(s) {
		name, next, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf(`router: fallback %q is not of the form "model=next"`, part)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("router: fallback %q has an empty model name", part)
		}
		fallbacks[name] = strings.TrimSpace(next)
	}
	return fallbacks, nil
}

func splitList(s string) []string {
	var parts []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
