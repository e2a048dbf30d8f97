// Package model defines the domain types used across the application.
package model

import "time"

// PostState tracks how far a post has advanced through the pipeline.
// Transitions are strictly forward; Commented, Skipped and Failed are
// terminal.
type PostState string

// Pipeline states.
const (
	StateDiscovered       PostState = "discovered"
	StateArticleExtracted PostState = "article_extracted"
	StateAnalyzed         PostState = "analyzed"
	StateCommented        PostState = "commented"
	StateSkipped          PostState = "skipped"
	StateFailed           PostState = "failed"
)

// IsTerminal reports whether a post in this state must never be
// processed again.
func (s PostState) IsTerminal() bool {
	switch s {
	case StateCommented, StateSkipped, StateFailed:
		return true
	}
	return false
}

// PostRecord is the persisted processing record for one discovered post.
type PostRecord struct {
	PostID        string
	PageSlug      string
	State         PostState
	FailureReason string
	DiscoveredAt  time.Time
}

// QuotaKind selects which daily counter a consume call targets.
type QuotaKind string

// Daily quota counters.
const (
	QuotaProcessed QuotaKind = "processed"
	QuotaCommented QuotaKind = "commented"
)

// DailyQuota holds both counters for one calendar day.
type DailyQuota struct {
	Date           string
	PostsProcessed int
	CommentsPosted int
}

// AnalysisResult is the parsed reply of the content analyzer for a
// single post/article pair. CommentText is empty when the model
// declined to produce a comment.
type AnalysisResult struct {
	IsClickbait bool
	Summary     string
	CommentText string
}

// Stage names a pipeline step for error reporting.
type Stage string

// Pipeline stages as recorded in run errors.
const (
	StageDiscover Stage = "discover"
	StageExtract  Stage = "extract"
	StageAnalyze  Stage = "analyze"
	StageComment  Stage = "comment"
)

// RunError records one per-post failure inside a run.
type RunError struct {
	PostID string
	Page   string
	Stage  Stage
	Reason string
}

// RunReport summarizes one orchestrator pass. It is built fresh per
// run and is not persisted.
type RunReport struct {
	StartedAt      time.Time
	FinishedAt     time.Time
	PagesVisited   int
	PostsProcessed int
	CommentsPosted int
	Errors         []RunError
}
