// Package scheduler drives orchestrator runs in single-shot or
// repeating mode.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"clickbait_bot/internal/model"
	"clickbait_bot/internal/notify"
)

// Runner executes one orchestrator pass.
type Runner interface {
	RunOnce(ctx context.Context) (*model.RunReport, error)
}

// Scheduler wraps a Runner with retry, interval looping and operator
// notification.
type Scheduler struct {
	runner     Runner
	notifier   notify.Notifier
	log        *slog.Logger
	interval   time.Duration
	maxRetries int
	retryDelay time.Duration
}

// New creates a Scheduler.
func New(runner Runner, notifier notify.Notifier, log *slog.Logger, interval time.Duration, maxRetries int, retryDelay time.Duration) *Scheduler {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return &Scheduler{
		runner:     runner,
		notifier:   notifier,
		log:        log,
		interval:   interval,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// RunSingle executes exactly one run (with in-cycle retries) and
// returns its fatal error, if any.
func (s *Scheduler) RunSingle(ctx context.Context) error {
	return s.runCycle(ctx)
}

// Run loops forever: run, sleep the configured interval, repeat. A
// fatal run does not terminate the loop but is logged distinctly so
// operators can tell persistent failure from normal idle. Blocks
// until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	if err := s.runCycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Error("run failed, will retry next cycle", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			if err := s.runCycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Error("run failed, will retry next cycle", "error", err)
			}
		}
	}
}

// runCycle executes one run, retrying fatal failures with a constant
// delay up to the configured attempt count.
func (s *Scheduler) runCycle(ctx context.Context) error {
	var report *model.RunReport

	backoff := retry.WithMaxRetries(uint64(s.maxRetries-1), retry.NewConstant(s.retryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var runErr error
		report, runErr = s.runner.RunOnce(ctx)
		if runErr != nil {
			s.log.Error("run attempt failed", "error", runErr)
			return retry.RetryableError(runErr)
		}
		return nil
	})
	if err != nil {
		// A shutdown during the run or a retry sleep is not a failure
		// worth alerting on.
		if !errors.Is(err, context.Canceled) {
			s.notifier.RunFailed(err)
		}
		return err
	}

	s.log.Info("run complete",
		"pages", report.PagesVisited,
		"posts", report.PostsProcessed,
		"comments", report.CommentsPosted,
		"errors", len(report.Errors),
	)
	s.notifier.RunCompleted(report)
	return nil
}
