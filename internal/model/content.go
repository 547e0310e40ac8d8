// Package model defines the core types shared across the evaluation pipeline:
// content under review, per-dimension scores, routing descriptors, and the
// aggregated publish decision.
package model

import "strings"

// Content is one piece of social content submitted for evaluation.
// Title and Body identify the content for caching purposes; Topic and
// Hashtags are advisory context for evaluators.
type Content struct {
	Title    string   `json:"title"`
	Body     string   `json:"content"`
	Topic    string   `json:"topic,omitempty"`
	Hashtags []string `json:"hashtags,omitempty"`
}

// Empty reports whether the content has neither title nor body.
func (c Content) Empty() bool {
	return strings.TrimSpace(c.Title) == "" && strings.TrimSpace(c.Body) == ""
}
