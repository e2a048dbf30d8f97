// Package browser defines the boundary to the browser automation
// collaborator. The concrete DOM work (selectors, scrolling, cookies)
// lives in the containerized sidecar; this package only models the
// calls the pipeline needs and their failure modes.
package browser

import (
	"context"
	"errors"
	"fmt"
)

// Credentials are the platform login credentials.
type Credentials struct {
	Email    string
	Password string
}

// PostHandle identifies one discovered post. Text is the post body as
// scraped from the page.
type PostHandle struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Text string `json:"text"`
}

// Driver opens authenticated browser sessions.
type Driver interface {
	Login(ctx context.Context, creds Credentials) (Session, error)
}

// Session is one logged-in browser session. All calls are fallible
// network-bound operations with no retry of their own; retry policy
// belongs to the caller.
type Session interface {
	// ListRecentPosts returns up to max most-recent posts on a page.
	ListRecentPosts(ctx context.Context, pageSlug string, max int) ([]PostHandle, error)
	// ExtractArticleLink returns the external article URL linked from a
	// post, or ErrNoArticleLink when the post links nothing.
	ExtractArticleLink(ctx context.Context, post PostHandle) (string, error)
	// PostComment publishes a comment under the post.
	PostComment(ctx context.Context, post PostHandle, text string) error
	Close() error
}

// ErrNoArticleLink is returned when a post has no external link.
var ErrNoArticleLink = errors.New("no article link in post")

// LoginError means authentication to the platform failed. It is fatal
// to the run.
type LoginError struct {
	Reason string
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("login failed: %s", e.Reason)
}

// CommentError means publishing a comment failed. The post must not be
// retried within the same run: the comment may or may not have landed.
type CommentError struct {
	PostID string
	Err    error
}

func (e *CommentError) Error() string {
	return fmt.Sprintf("post comment on %s: %v", e.PostID, e.Err)
}

func (e *CommentError) Unwrap() error { return e.Err }
