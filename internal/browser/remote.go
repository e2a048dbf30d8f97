package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Remote is a Driver backed by the browser automation sidecar's JSON
// API. One sidecar session maps to one logged-in Session here.
type Remote struct {
	baseURL  string
	client   HTTPClient
	headless bool
}

// NewRemote creates a Remote driver talking to the sidecar at baseURL.
func NewRemote(baseURL string, client HTTPClient, headless bool) *Remote {
	if client == nil {
		client = http.DefaultClient
	}
	return &Remote{baseURL: baseURL, client: client, headless: headless}
}

// Login opens a sidecar session and authenticates it. A non-2xx reply
// from the login endpoint is a LoginError; transport failures mean the
// sidecar is unreachable and are returned as-is.
func (r *Remote) Login(ctx context.Context, creds Credentials) (Session, error) {
	body := map[string]any{
		"email":    creds.Email,
		"password": creds.Password,
		"headless": r.headless,
	}
	var reply struct {
		SessionID string `json:"session_id"`
	}
	status, err := r.doJSON(ctx, http.MethodPost, "/session", body, &reply)
	if err != nil {
		return nil, fmt.Errorf("browser sidecar: %w", err)
	}
	if status != http.StatusOK {
		return nil, &LoginError{Reason: fmt.Sprintf("sidecar returned status %d", status)}
	}
	if reply.SessionID == "" {
		return nil, &LoginError{Reason: "sidecar returned empty session id"}
	}
	return &remoteSession{remote: r, id: reply.SessionID}, nil
}

type remoteSession struct {
	remote *Remote
	id     string
}

func (s *remoteSession) ListRecentPosts(ctx context.Context, pageSlug string, max int) ([]PostHandle, error) {
	path := fmt.Sprintf("/session/%s/pages/%s/posts?max=%s",
		s.id, url.PathEscape(pageSlug), strconv.Itoa(max))
	var reply struct {
		Posts []PostHandle `json:"posts"`
	}
	status, err := s.remote.doJSON(ctx, http.MethodGet, path, nil, &reply)
	if err != nil {
		return nil, fmt.Errorf("list posts on %s: %w", pageSlug, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("list posts on %s: status %d", pageSlug, status)
	}
	return reply.Posts, nil
}

func (s *remoteSession) ExtractArticleLink(ctx context.Context, post PostHandle) (string, error) {
	path := fmt.Sprintf("/session/%s/posts/%s/article-link", s.id, url.PathEscape(post.ID))
	var reply struct {
		URL string `json:"url"`
	}
	status, err := s.remote.doJSON(ctx, http.MethodGet, path, nil, &reply)
	if err != nil {
		return "", fmt.Errorf("extract article link for %s: %w", post.ID, err)
	}
	if status == http.StatusNotFound {
		return "", ErrNoArticleLink
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("extract article link for %s: status %d", post.ID, status)
	}
	if reply.URL == "" {
		return "", ErrNoArticleLink
	}
	return reply.URL, nil
}

func (s *remoteSession) PostComment(ctx context.Context, post PostHandle, text string) error {
	path := fmt.Sprintf("/session/%s/posts/%s/comment", s.id, url.PathEscape(post.ID))
	status, err := s.remote.doJSON(ctx, http.MethodPost, path, map[string]string{"text": text}, nil)
	if err != nil {
		return &CommentError{PostID: post.ID, Err: err}
	}
	if status != http.StatusOK {
		return &CommentError{PostID: post.ID, Err: fmt.Errorf("status %d", status)}
	}
	return nil
}

func (s *remoteSession) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	status, err := s.remote.doJSON(ctx, http.MethodDelete, "/session/"+s.id, nil, nil)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return fmt.Errorf("close session: status %d", status)
	}
	return nil
}

const closeTimeout = 10 * time.Second

func (r *Remote) doJSON(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1*1024*1024))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode == http.StatusOK {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
