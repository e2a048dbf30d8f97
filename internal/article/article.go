// Package article handles downloading linked articles and extracting
// their readable text.
package article

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Scraper downloads article pages and extracts their body text.
type Scraper struct {
	client  HTTPClient
	timeout time.Duration
	maxBody int64
}

// NewScraper creates a Scraper with the given HTTP client.
func NewScraper(client HTTPClient) *Scraper {
	if client == nil {
		client = http.DefaultClient
	}
	return &Scraper{
		client:  client,
		timeout: 30 * time.Second,
		maxBody: 5 * 1024 * 1024,
	}
}

// Fetch downloads the article at url and returns its extracted text.
func (s *Scraper) Fetch(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; PageWatchBot/1.0)")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, s.maxBody))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	text := Extract(doc)
	if text == "" {
		return "", fmt.Errorf("no article text found")
	}
	return text, nil
}

// Extract pulls the readable body text out of a parsed page. It
// prefers an <article> element and falls back to all paragraphs.
func Extract(doc *goquery.Document) string {
	doc.Find("script, style, nav, header, footer, aside").Remove()

	root := doc.Selection
	if article := doc.Find("article"); article.Length() > 0 {
		root = article.First()
	}

	var parts []string
	root.Find("p").Each(func(_ int, sel *goquery.Selection) {
		if t := strings.TrimSpace(sel.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return strings.TrimSpace(root.Text())
	}
	return strings.Join(parts, "\n\n")
}

// Post bodies sometimes carry a bare link instead of a link card, so
// the first URL-looking token in the text is treated as the article.
var urlPattern = regexp.MustCompile(`https?://\S+|www\.\S+`)

// FirstURL returns the first URL found in text, or "" when none.
func FirstURL(text string) string {
	match := urlPattern.FindString(text)
	if match == "" {
		return ""
	}
	match = strings.TrimRight(match, ".,;:!?)\"'")
	if strings.HasPrefix(match, "www.") {
		match = "https://" + match
	}
	return match
}
