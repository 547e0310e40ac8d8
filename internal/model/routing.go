package model

// TaskType classifies what a model call is for. Routing tables map each
// task type to a model per quality level.
type TaskType string

const (
	TaskAnalysis  TaskType = "analysis"
	TaskCreation  TaskType = "creation"
	TaskReview    TaskType = "review"
	TaskReasoning TaskType = "reasoning"
	TaskVision    TaskType = "vision"
)

// QualityLevel is the cost/performance tier used to choose among models
// for the same task type.
type QualityLevel string

const (
	QualityFast     QualityLevel = "fast"
	QualityBalanced QualityLevel = "balanced"
	QualityHigh     QualityLevel = "high"
)

// ModelDescriptor describes one backend model. Descriptors are immutable
// after the router is constructed.
type ModelDescriptor struct {
	Name          string   `json:"name"`
	Provider      string   `json:"provider"`
	CostLevel     string   `json:"cost_level"`
	ContextWindow int      `json:"context_window"`
	Strengths     []string `json:"strengths,omitempty"`
	Description   string   `json:"description,omitempty"`
}
