package shinsa

import "time"

// Verdict is the four-way recommendation attached to every evaluation.
type Verdict string

const (
	// VerdictPublish: the content clears the publish bar as-is.
	VerdictPublish Verdict = "publish"
	// VerdictAskUser: decent but not clearly publishable; a human decides.
	VerdictAskUser Verdict = "ask_user"
	// VerdictRecommendOptimize: below the ask bar; revision advised.
	VerdictRecommendOptimize Verdict = "recommend_optimize"
	// VerdictMustOptimize: the compliance gate failed; never auto-publish.
	VerdictMustOptimize Verdict = "must_optimize"
)

// ReviewMode selects how many dimensions an evaluation runs.
type ReviewMode string

const (
	// ModeFull runs every configured dimension.
	ModeFull ReviewMode = "full"
	// ModeFast skips engagement and keeps quality plus the compliance gate.
	ModeFast ReviewMode = "fast"
)

// Content is a piece of social-media content to evaluate.
// It is a curated view of internal/model.Content for use in the embedding API.
// No internal package imports — safe to use from outside the module.
type Content struct {
	Title    string
	Body     string
	Topic    string
	Hashtags []string
}

// Score is one dimension's verdict on a piece of content.
type Score struct {
	Dimension   string
	Score       float64 // [0, 10]
	Strengths   []string
	Weaknesses  []string
	Suggestions []string
	Confidence  float64 // [0, 1]

	// Gate fields, set only by the compliance dimension.
	Passed    *bool
	RiskLevel string // low | medium | high
}

// Decision is the public representation of a completed evaluation.
type Decision struct {
	Verdict      Verdict
	OverallScore float64
	Dimensions   map[string]Score
	// CompliancePassed reports the gate. When false the verdict is
	// must_optimize regardless of the weighted score.
	CompliancePassed bool
	Suggestions      []string
	Mode             ReviewMode
	FromCache        bool
	ElapsedMS        int64
	EvaluatedAt      time.Time
}

// HistoryEntry is one row of the evaluation audit trail.
type HistoryEntry struct {
	ID               string
	Fingerprint      string
	Mode             ReviewMode
	Verdict          Verdict
	OverallScore     float64
	CompliancePassed bool
	FromCache        bool
	ElapsedMS        int64
	CreatedAt        time.Time
}

// CacheStats is a point-in-time snapshot of evaluation cache counters.
type CacheStats struct {
	Hits        int64
	Misses      int64
	Sets        int64
	HitRate     float64
	MemoryItems int
}
