// Package pipeline advances one discovered post through its
// processing states: extract article, analyze, optionally comment,
// record. Transitions are strictly forward and each terminal outcome
// is persisted before the pipeline returns.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"clickbait_bot/internal/article"
	"clickbait_bot/internal/browser"
	"clickbait_bot/internal/model"
	"clickbait_bot/internal/quota"
	"clickbait_bot/internal/storage"
)

// ErrQuotaExhausted signals that the daily processed limit is reached.
// The walker must stop issuing posts for the rest of the run; this is
// a control signal, not a failure.
var ErrQuotaExhausted = errors.New("daily processed quota exhausted")

// Analyzer produces a verdict for a post/article pair.
type Analyzer interface {
	Analyze(ctx context.Context, postText, articleText string) (*model.AnalysisResult, error)
}

// ArticleFetcher downloads an article and returns its text.
type ArticleFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Outcome is the result of processing one post.
type Outcome struct {
	Record    model.PostRecord
	Analysis  *model.AnalysisResult
	Commented bool
	// Duplicate is set when the post already had a terminal record and
	// nothing was done (no quota consumed, no analyzer call).
	Duplicate bool
	// RunError is non-nil when the post ended Failed.
	RunError *model.RunError

	// cause is the underlying stage error for Failed outcomes.
	cause error
}

// Pipeline is the per-post state machine.
type Pipeline struct {
	store          storage.Storage
	quota          *quota.Tracker
	analyzer       Analyzer
	articles       ArticleFetcher
	enableComments bool
	log            *slog.Logger
	now            func() time.Time
}

// New creates a Pipeline.
func New(store storage.Storage, tracker *quota.Tracker, an Analyzer, articles ArticleFetcher, enableComments bool, log *slog.Logger) *Pipeline {
	return &Pipeline{
		store:          store,
		quota:          tracker,
		analyzer:       an,
		articles:       articles,
		enableComments: enableComments,
		log:            log,
		now:            time.Now,
	}
}

// Process runs one post through the state machine. A non-nil error is
// either ErrQuotaExhausted, a context cancellation, or a storage
// failure; per-post extraction/analysis/comment failures are absorbed
// into the Outcome and never abort the run.
func (p *Pipeline) Process(ctx context.Context, sess browser.Session, pageSlug string, post browser.PostHandle) (*Outcome, error) {
	// Idempotency guard: a terminal record means the post was fully
	// handled in an earlier run.
	prev, err := p.store.GetPost(ctx, post.ID)
	if err != nil {
		return nil, fmt.Errorf("load post record: %w", err)
	}
	if prev != nil && prev.State.IsTerminal() {
		p.log.Debug("post already processed", "post_id", post.ID, "state", prev.State)
		return &Outcome{Record: *prev, Duplicate: true}, nil
	}

	ok, err := p.quota.TryConsume(ctx, model.QuotaProcessed)
	if err != nil {
		return nil, fmt.Errorf("consume processed quota: %w", err)
	}
	if !ok {
		return nil, ErrQuotaExhausted
	}

	rec := model.PostRecord{
		PostID:       post.ID,
		PageSlug:     pageSlug,
		State:        model.StateDiscovered,
		DiscoveredAt: p.now().UTC(),
	}
	out := &Outcome{}

	p.run(ctx, sess, post, &rec, out)

	// A post interrupted mid-extraction or mid-analysis by shutdown is
	// discarded, not pinned as Failed; the next run retries it from
	// scratch. Comment-stage interruptions are kept: the comment may
	// have landed, so the post must never be retried.
	if out.cause != nil && errors.Is(out.cause, context.Canceled) && out.RunError.Stage != model.StageComment {
		return nil, fmt.Errorf("post %s interrupted: %w", post.ID, out.cause)
	}

	// The terminal record flushes on a detached context so a shutdown
	// signal arriving after the quota was charged cannot drop it and
	// let the next run comment on the same post again.
	if err := p.store.RecordPost(context.WithoutCancel(ctx), &rec); err != nil {
		return nil, fmt.Errorf("record post %s: %w", post.ID, err)
	}
	out.Record = rec
	return out, nil
}

// run drives the forward transitions, mutating rec until it reaches a
// terminal state.
func (p *Pipeline) run(ctx context.Context, sess browser.Session, post browser.PostHandle, rec *model.PostRecord, out *Outcome) {
	// Discovered -> ArticleExtracted | Skipped | Failed
	url, err := p.findArticleURL(ctx, sess, post)
	if err != nil {
		p.fail(rec, out, post, model.StageExtract, err)
		return
	}
	if url == "" {
		p.skip(rec, post, "no article link")
		return
	}

	text, err := p.articles.Fetch(ctx, url)
	if err != nil {
		p.fail(rec, out, post, model.StageExtract, fmt.Errorf("fetch article %s: %w", url, err))
		return
	}
	rec.State = model.StateArticleExtracted

	// ArticleExtracted -> Analyzed | Failed
	analysis, err := p.analyzer.Analyze(ctx, post.Text, text)
	if err != nil {
		p.fail(rec, out, post, model.StageAnalyze, err)
		return
	}
	rec.State = model.StateAnalyzed
	out.Analysis = analysis

	// Analyzed -> Commented | Skipped | Failed
	if !p.enableComments {
		p.skip(rec, post, "comments disabled")
		return
	}
	if analysis.CommentText == "" {
		p.skip(rec, post, "no comment text")
		return
	}

	ok, err := p.quota.TryConsume(ctx, model.QuotaCommented)
	if err != nil {
		p.fail(rec, out, post, model.StageComment, fmt.Errorf("consume comment quota: %w", err))
		return
	}
	if !ok {
		// Comment quota exhausted mid-run is expected; degrade, don't error.
		p.skip(rec, post, "comment quota exhausted")
		return
	}

	if err := sess.PostComment(ctx, post, analysis.CommentText); err != nil {
		// Never retried in-run: the comment may have landed.
		p.fail(rec, out, post, model.StageComment, err)
		return
	}

	rec.State = model.StateCommented
	out.Commented = true
	p.log.Info("commented", "post_id", post.ID, "page", rec.PageSlug, "clickbait", analysis.IsClickbait)
}

// findArticleURL asks the browser for the post's link card and falls
// back to scanning the post text for a bare URL.
func (p *Pipeline) findArticleURL(ctx context.Context, sess browser.Session, post browser.PostHandle) (string, error) {
	url, err := sess.ExtractArticleLink(ctx, post)
	if err == nil {
		return url, nil
	}
	if errors.Is(err, browser.ErrNoArticleLink) {
		return article.FirstURL(post.Text), nil
	}
	return "", err
}

func (p *Pipeline) skip(rec *model.PostRecord, post browser.PostHandle, reason string) {
	rec.State = model.StateSkipped
	rec.FailureReason = reason
	p.log.Info("post skipped", "post_id", post.ID, "page", rec.PageSlug, "reason", reason)
}

func (p *Pipeline) fail(rec *model.PostRecord, out *Outcome, post browser.PostHandle, stage model.Stage, err error) {
	rec.State = model.StateFailed
	rec.FailureReason = err.Error()
	out.cause = err
	out.RunError = &model.RunError{
		PostID: post.ID,
		Page:   rec.PageSlug,
		Stage:  stage,
		Reason: err.Error(),
	}
	p.log.Error("post failed", "post_id", post.ID, "page", rec.PageSlug, "stage", stage, "error", err)
}
