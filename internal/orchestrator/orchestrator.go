// Package orchestrator runs one full pass over the configured pages,
// driving the post pipeline and aggregating a run report.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"clickbait_bot/internal/browser"
	"clickbait_bot/internal/model"
	"clickbait_bot/internal/pipeline"
)

// Listing a page returns a few more posts than the per-page cap so
// that already-processed posts do not eat into the cap.
const discoveryFactor = 3

// Config holds the orchestrator's run parameters.
type Config struct {
	Pages           []string
	MaxPostsPerPage int
	MinDelay        time.Duration
	MaxDelay        time.Duration
	Credentials     browser.Credentials
}

// Orchestrator executes runs.
type Orchestrator struct {
	driver browser.Driver
	pipe   *pipeline.Pipeline
	cfg    Config
	log    *slog.Logger
	now    func() time.Time
}

// New creates an Orchestrator.
func New(driver browser.Driver, pipe *pipeline.Pipeline, cfg Config, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		driver: driver,
		pipe:   pipe,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// RunOnce performs one full walk across all configured pages. A
// non-nil error is an infrastructure failure (login failed, driver
// unreachable) and aborts the run; per-post failures are collected in
// the report and never propagate.
func (o *Orchestrator) RunOnce(ctx context.Context) (*model.RunReport, error) {
	report := &model.RunReport{StartedAt: o.now()}
	defer func() { report.FinishedAt = o.now() }()

	sess, err := o.driver.Login(ctx, o.cfg.Credentials)
	if err != nil {
		return report, fmt.Errorf("login: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			o.log.Warn("close session", "error", err)
		}
	}()

	for i, page := range o.cfg.Pages {
		if ctx.Err() != nil {
			o.log.Info("run interrupted", "page", page)
			return report, nil
		}

		report.PagesVisited++
		exhausted := o.walkPage(ctx, sess, page, report)
		if exhausted {
			o.log.Warn("processed quota exhausted, stopping run early", "pages_visited", report.PagesVisited)
			return report, nil
		}

		if i < len(o.cfg.Pages)-1 {
			// Longer pause between pages than between posts.
			o.waitRandom(ctx, 2*o.cfg.MinDelay, 2*o.cfg.MaxDelay)
		}
	}
	return report, nil
}

// walkPage processes up to MaxPostsPerPage not-yet-terminal posts on
// one page. It reports whether the processed quota ran out.
func (o *Orchestrator) walkPage(ctx context.Context, sess browser.Session, page string, report *model.RunReport) bool {
	o.log.Info("processing page", "page", page)

	posts, err := sess.ListRecentPosts(ctx, page, o.cfg.MaxPostsPerPage*discoveryFactor)
	if err != nil {
		// A page that fails to list is a per-page failure, not a fatal one.
		o.log.Error("list posts", "page", page, "error", err)
		report.Errors = append(report.Errors, model.RunError{
			Page:   page,
			Stage:  model.StageDiscover,
			Reason: err.Error(),
		})
		return false
	}
	if len(posts) == 0 {
		o.log.Warn("no posts found", "page", page)
		return false
	}

	processed := 0
	for _, post := range posts {
		if ctx.Err() != nil {
			return false
		}
		if processed >= o.cfg.MaxPostsPerPage {
			break
		}

		out, err := o.pipe.Process(ctx, sess, page, post)
		if err != nil {
			if errors.Is(err, pipeline.ErrQuotaExhausted) {
				return true
			}
			if ctx.Err() != nil {
				// Interrupted mid-post; not a page failure.
				return false
			}
			o.log.Error("pipeline", "post_id", post.ID, "page", page, "error", err)
			report.Errors = append(report.Errors, model.RunError{
				PostID: post.ID,
				Page:   page,
				Stage:  model.StageDiscover,
				Reason: err.Error(),
			})
			continue
		}
		if out.Duplicate {
			continue
		}

		processed++
		report.PostsProcessed++
		if out.Commented {
			report.CommentsPosted++
		}
		if out.RunError != nil {
			report.Errors = append(report.Errors, *out.RunError)
		}

		o.waitRandom(ctx, o.cfg.MinDelay, o.cfg.MaxDelay)
	}
	return false
}

// waitRandom sleeps for a duration drawn from [min, max] or until the
// context is cancelled. Randomized spacing avoids a fixed-interval
// request signature.
func (o *Orchestrator) waitRandom(ctx context.Context, min, max time.Duration) {
	if max <= 0 {
		return
	}
	d := min
	if span := max - min; span > 0 {
		d += time.Duration(rand.Int63n(int64(span)))
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
