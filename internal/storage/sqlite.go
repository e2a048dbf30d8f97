package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"clickbait_bot/internal/model"
	"clickbait_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// RecordPost upserts the processing record for a post.
func (s *SQLite) RecordPost(ctx context.Context, rec *model.PostRecord) error {
	discovered := rec.DiscoveredAt
	if discovered.IsZero() {
		discovered = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO processed_posts (post_id, page_slug, state, failure_reason, discovered_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(post_id) DO UPDATE SET state = excluded.state, failure_reason = excluded.failure_reason`,
		rec.PostID, rec.PageSlug, string(rec.State), rec.FailureReason, discovered.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record post: %w", err)
	}
	rec.DiscoveredAt = discovered
	return nil
}

// GetPost returns the record for a post ID, or nil if none exists.
func (s *SQLite) GetPost(ctx context.Context, postID string) (*model.PostRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT post_id, page_slug, state, failure_reason, discovered_at
		 FROM processed_posts WHERE post_id = ?`, postID,
	)
	rec, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// ListPosts returns all records for a page, most recent first.
func (s *SQLite) ListPosts(ctx context.Context, pageSlug string) ([]model.PostRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT post_id, page_slug, state, failure_reason, discovered_at
		 FROM processed_posts WHERE page_slug = ? ORDER BY discovered_at DESC`, pageSlug,
	)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var recs []model.PostRecord
	for rows.Next() {
		rec, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// IncrementQuota atomically bumps today's counter if it is below limit.
// The check-and-increment runs as a single UPDATE so concurrent
// callers cannot push a counter past its limit.
func (s *SQLite) IncrementQuota(ctx context.Context, date string, kind model.QuotaKind, limit int) (bool, error) {
	col, err := quotaColumn(kind)
	if err != nil {
		return false, err
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_quotas (date) VALUES (?)`, date,
	); err != nil {
		return false, fmt.Errorf("ensure quota row: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE daily_quotas SET %s = %s + 1 WHERE date = ? AND %s < ?`, col, col, col),
		date, limit,
	)
	if err != nil {
		return false, fmt.Errorf("increment quota: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// GetQuota returns the counters for a date key.
func (s *SQLite) GetQuota(ctx context.Context, date string) (*model.DailyQuota, error) {
	q := model.DailyQuota{Date: date}
	err := s.db.QueryRowContext(ctx,
		`SELECT posts_processed, comments_posted FROM daily_quotas WHERE date = ?`, date,
	).Scan(&q.PostsProcessed, &q.CommentsPosted)
	if errors.Is(err, sql.ErrNoRows) {
		return &q, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quota: %w", err)
	}
	return &q, nil
}

func quotaColumn(kind model.QuotaKind) (string, error) {
	switch kind {
	case model.QuotaProcessed:
		return "posts_processed", nil
	case model.QuotaCommented:
		return "comments_posted", nil
	}
	return "", fmt.Errorf("unknown quota kind %q", kind)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPost(row scannable) (*model.PostRecord, error) {
	var rec model.PostRecord
	var state, discovered string
	if err := row.Scan(&rec.PostID, &rec.PageSlug, &state, &rec.FailureReason, &discovered); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}
	rec.State = model.PostState(state)
	rec.DiscoveredAt, _ = time.Parse(timeLayout, discovered)
	return &rec, nil
}
