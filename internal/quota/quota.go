// Package quota enforces the persisted daily action limits.
package quota

import (
	"context"
	"fmt"
	"time"

	"clickbait_bot/internal/model"
	"clickbait_bot/internal/storage"
)

const dateLayout = "2006-01-02"

// Limits holds the configured daily caps.
type Limits struct {
	PostsProcessed int
	CommentsPosted int
}

// Tracker is the single point of mutation for the daily counters.
// Every increment goes through TryConsume, which recomputes the date
// key per call so a run spanning midnight rolls over correctly.
type Tracker struct {
	store  storage.Storage
	limits Limits
	now    func() time.Time
}

// New creates a Tracker over the given store. A nil now defaults to
// time.Now (the local clock defines the date key).
func New(store storage.Storage, limits Limits, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{store: store, limits: limits, now: now}
}

// TryConsume increments today's counter for kind if the configured
// limit has not been reached. It reports whether the action may
// proceed; false means the limit is exhausted and nothing was mutated.
func (t *Tracker) TryConsume(ctx context.Context, kind model.QuotaKind) (bool, error) {
	limit, err := t.limitFor(kind)
	if err != nil {
		return false, err
	}
	if limit <= 0 {
		return false, nil
	}
	return t.store.IncrementQuota(ctx, t.dateKey(), kind, limit)
}

// Today returns the current counters without mutating them.
func (t *Tracker) Today(ctx context.Context) (*model.DailyQuota, error) {
	return t.store.GetQuota(ctx, t.dateKey())
}

func (t *Tracker) dateKey() string {
	return t.now().Format(dateLayout)
}

func (t *Tracker) limitFor(kind model.QuotaKind) (int, error) {
	switch kind {
	case model.QuotaProcessed:
		return t.limits.PostsProcessed, nil
	case model.QuotaCommented:
		return t.limits.CommentsPosted, nil
	}
	return 0, fmt.Errorf("unknown quota kind %q", kind)
}
