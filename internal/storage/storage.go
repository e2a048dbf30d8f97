// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"

	"clickbait_bot/internal/model"
)

// Storage is the interface for all persistence operations.
type Storage interface {
	// RecordPost upserts the processing record for a post. The post's
	// state only ever moves forward, so overwriting is safe.
	RecordPost(ctx context.Context, rec *model.PostRecord) error
	// GetPost returns the record for a post ID, or nil if the post has
	// never been recorded.
	GetPost(ctx context.Context, postID string) (*model.PostRecord, error)
	// ListPosts returns all records for a page, most recent first.
	ListPosts(ctx context.Context, pageSlug string) ([]model.PostRecord, error)

	// IncrementQuota atomically bumps the counter for the given date
	// key if it is still below limit. It reports whether the increment
	// happened.
	IncrementQuota(ctx context.Context, date string, kind model.QuotaKind, limit int) (bool, error)
	// GetQuota returns the counters for a date key. A date with no
	// activity yet yields zero counters.
	GetQuota(ctx context.Context, date string) (*model.DailyQuota, error)

	Close() error
}
