// Package analyzer asks an LLM whether a post/article pair is
// clickbait and parses its structured reply.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clickbait_bot/internal/model"
)

const defaultAPIURL = "https://openrouter.ai/api/v1/chat/completions"

// ErrorKind classifies an analysis failure. Every kind is recoverable
// by skipping the post; none is fatal to the run.
type ErrorKind string

// Analysis failure kinds.
const (
	KindTimeout           ErrorKind = "timeout"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindProviderError     ErrorKind = "provider_error"
)

// Error is the typed failure of one Analyze call.
type Error struct {
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("analysis %s (status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("analysis %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Analyzer is the OpenRouter chat-completions client.
type Analyzer struct {
	client  HTTPClient
	apiURL  string
	apiKey  string
	modelID string
	prompts *Prompts
	timeout time.Duration
}

// New creates an Analyzer with the given client, API key, model
// identifier and prompt templates.
func New(client HTTPClient, apiKey, modelID string, prompts *Prompts) *Analyzer {
	if client == nil {
		client = http.DefaultClient
	}
	return &Analyzer{
		client:  client,
		apiURL:  defaultAPIURL,
		apiKey:  apiKey,
		modelID: modelID,
		prompts: prompts,
		timeout: 60 * time.Second,
	}
}

// SetAPIURL overrides the provider endpoint (useful for testing).
func (a *Analyzer) SetAPIURL(url string) { a.apiURL = url }

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Analyze renders the prompt pair with the given texts, calls the
// provider and parses the reply. Failures come back as *Error.
func (a *Analyzer) Analyze(ctx context.Context, postText, articleText string) (*model.AnalysisResult, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	payload := chatRequest{
		Model: a.modelID,
		Messages: []chatMessage{
			{Role: "system", Content: a.prompts.SystemPrompt},
			{Role: "user", Content: a.prompts.Render(postText, articleText)},
		},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Kind: KindProviderError, Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiURL, bytes.NewReader(raw))
	if err != nil {
		return nil, &Error{Kind: KindProviderError, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &Error{Kind: KindTimeout, Err: err}
		}
		return nil, &Error{Kind: KindProviderError, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1*1024*1024))
	if err != nil {
		return nil, &Error{Kind: KindProviderError, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Kind: KindProviderError, Status: resp.StatusCode, Err: fmt.Errorf("provider returned status %d", resp.StatusCode)}
	}

	var reply chatResponse
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, &Error{Kind: KindMalformedResponse, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(reply.Choices) == 0 {
		return nil, &Error{Kind: KindMalformedResponse, Err: fmt.Errorf("response has no choices")}
	}

	return parseContent(reply.Choices[0].Message.Content)
}

// parseContent extracts the structured verdict from the model's reply
// text. Models wrap JSON in code fences or prose, so the first JSON
// object in the content is used. A missing comment field means "do
// not comment", not an error.
func parseContent(content string) (*model.AnalysisResult, error) {
	cleaned := stripFences(content)
	if start := strings.Index(cleaned, "{"); start != -1 {
		if end := strings.LastIndex(cleaned, "}"); end > start {
			cleaned = cleaned[start : end+1]
		}
	}

	var out struct {
		IsClickbait bool   `json:"is_clickbait"`
		Summary     string `json:"summary"`
		Comment     string `json:"comment"`
	}
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, &Error{Kind: KindMalformedResponse, Err: fmt.Errorf("parse verdict: %w", err)}
	}

	return &model.AnalysisResult{
		IsClickbait: out.IsClickbait,
		Summary:     strings.TrimSpace(out.Summary),
		CommentText: strings.TrimSpace(out.Comment),
	}, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
