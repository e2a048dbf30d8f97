package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"clickbait_bot/internal/model"
)

var ignoreDiscoveredAt = cmpopts.IgnoreFields(model.PostRecord{}, "DiscoveredAt")

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndGetPost(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	tests := []struct {
		name string
		rec  model.PostRecord
	}{
		{
			name: "commented post",
			rec: model.PostRecord{
				PostID:   "pfbid001",
				PageSlug: "newsroom",
				State:    model.StateCommented,
			},
		},
		{
			name: "failed post with reason",
			rec: model.PostRecord{
				PostID:        "pfbid002",
				PageSlug:      "sports",
				State:         model.StateFailed,
				FailureReason: "analysis timeout",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.rec
			if err := s.RecordPost(ctx, &rec); err != nil {
				t.Fatalf("record: %v", err)
			}
			if rec.DiscoveredAt.IsZero() {
				t.Fatal("expected DiscoveredAt to be populated")
			}

			got, err := s.GetPost(ctx, tt.rec.PostID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got == nil {
				t.Fatal("expected record, got nil")
			}
			if diff := cmp.Diff(tt.rec, *got, ignoreDiscoveredAt); diff != "" {
				t.Errorf("GetPost mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGetPostMissing(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	got, err := s.GetPost(ctx, "never-seen")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown post, got %+v", got)
	}
}

func TestRecordPostUpsertAdvancesState(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	rec := model.PostRecord{PostID: "pfbid003", PageSlug: "newsroom", State: model.StateDiscovered}
	if err := s.RecordPost(ctx, &rec); err != nil {
		t.Fatalf("record discovered: %v", err)
	}
	first := rec.DiscoveredAt

	rec.State = model.StateSkipped
	rec.FailureReason = "no article link"
	if err := s.RecordPost(ctx, &rec); err != nil {
		t.Fatalf("record skipped: %v", err)
	}

	got, err := s.GetPost(ctx, "pfbid003")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := model.PostRecord{
		PostID:        "pfbid003",
		PageSlug:      "newsroom",
		State:         model.StateSkipped,
		FailureReason: "no article link",
	}
	if diff := cmp.Diff(want, *got, ignoreDiscoveredAt); diff != "" {
		t.Errorf("upsert mismatch (-want +got):\n%s", diff)
	}
	// The original discovery time survives the upsert.
	if !got.DiscoveredAt.Equal(first.Truncate(time.Second)) {
		t.Errorf("DiscoveredAt changed on upsert: first %v, got %v", first, got.DiscoveredAt)
	}
}

func TestListPosts(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	recs := []model.PostRecord{
		{PostID: "a", PageSlug: "newsroom", State: model.StateCommented, DiscoveredAt: time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)},
		{PostID: "b", PageSlug: "newsroom", State: model.StateSkipped, DiscoveredAt: time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)},
		{PostID: "c", PageSlug: "sports", State: model.StateFailed, DiscoveredAt: time.Date(2026, 1, 2, 11, 0, 0, 0, time.UTC)},
	}
	for i := range recs {
		if err := s.RecordPost(ctx, &recs[i]); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	got, err := s.ListPosts(ctx, "newsroom")
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	var gotIDs []string
	for _, r := range got {
		gotIDs = append(gotIDs, r.PostID)
	}
	// Most recent first.
	if diff := cmp.Diff([]string{"b", "a"}, gotIDs); diff != "" {
		t.Errorf("ListPosts order mismatch (-want +got):\n%s", diff)
	}
}

func TestIncrementQuota(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	const limit = 3
	for i := 0; i < limit; i++ {
		ok, err := s.IncrementQuota(ctx, "2026-08-29", model.QuotaProcessed, limit)
		if err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("increment %d: expected true below limit", i)
		}
	}

	ok, err := s.IncrementQuota(ctx, "2026-08-29", model.QuotaProcessed, limit)
	if err != nil {
		t.Fatalf("increment at limit: %v", err)
	}
	if ok {
		t.Error("expected false once limit reached")
	}

	q, err := s.GetQuota(ctx, "2026-08-29")
	if err != nil {
		t.Fatalf("get quota: %v", err)
	}
	want := model.DailyQuota{Date: "2026-08-29", PostsProcessed: limit}
	if diff := cmp.Diff(want, *q); diff != "" {
		t.Errorf("quota mismatch (-want +got):\n%s", diff)
	}
}

func TestIncrementQuotaSeparateCounters(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	if _, err := s.IncrementQuota(ctx, "2026-08-29", model.QuotaProcessed, 10); err != nil {
		t.Fatalf("processed: %v", err)
	}
	if _, err := s.IncrementQuota(ctx, "2026-08-29", model.QuotaCommented, 10); err != nil {
		t.Fatalf("commented: %v", err)
	}
	if _, err := s.IncrementQuota(ctx, "2026-08-29", model.QuotaCommented, 10); err != nil {
		t.Fatalf("commented: %v", err)
	}

	q, err := s.GetQuota(ctx, "2026-08-29")
	if err != nil {
		t.Fatalf("get quota: %v", err)
	}
	want := model.DailyQuota{Date: "2026-08-29", PostsProcessed: 1, CommentsPosted: 2}
	if diff := cmp.Diff(want, *q); diff != "" {
		t.Errorf("quota mismatch (-want +got):\n%s", diff)
	}
}

func TestGetQuotaEmptyDay(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	q, err := s.GetQuota(ctx, "2026-01-01")
	if err != nil {
		t.Fatalf("get quota: %v", err)
	}
	want := model.DailyQuota{Date: "2026-01-01"}
	if diff := cmp.Diff(want, *q); diff != "" {
		t.Errorf("expected zero counters (-want +got):\n%s", diff)
	}
}

func TestIncrementQuotaUnknownKind(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	if _, err := s.IncrementQuota(ctx, "2026-08-29", model.QuotaKind("likes"), 5); err == nil {
		t.Fatal("expected error for unknown quota kind")
	}
}

// Ensure the Storage interface is satisfied.
var _ Storage = (*SQLite)(nil)
