package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"clickbait_bot/internal/model"
)

type mockHTTP struct {
	status  int
	body    string
	err     error
	lastReq *http.Request
	lastRaw []byte
}

func (m *mockHTTP) Do(req *http.Request) (*http.Response, error) {
	m.lastReq = req
	if req.Body != nil {
		m.lastRaw, _ = io.ReadAll(req.Body)
	}
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.status,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func testPrompts() *Prompts {
	return &Prompts{
		SystemPrompt: "You are an analyst.",
		UserPrompt:   "Post: {post_text}\nArticle: {article_text}",
	}
}

func chatReply(t *testing.T, content string) string {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	})
	if err != nil {
		t.Fatalf("marshal reply: %v", err)
	}
	return string(raw)
}

func TestAnalyzeParsesReply(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    model.AnalysisResult
	}{
		{
			name:    "plain json",
			content: `{"is_clickbait": true, "summary": "Ordinary budget update.", "comment": "The article says something milder."}`,
			want: model.AnalysisResult{
				IsClickbait: true,
				Summary:     "Ordinary budget update.",
				CommentText: "The article says something milder.",
			},
		},
		{
			name:    "fenced json",
			content: "```json\n{\"is_clickbait\": false, \"summary\": \"Accurate headline.\", \"comment\": \"\"}\n```",
			want:    model.AnalysisResult{Summary: "Accurate headline."},
		},
		{
			name:    "json wrapped in prose",
			content: "Here is my verdict:\n{\"is_clickbait\": true, \"summary\": \"S\"}\nHope that helps.",
			want:    model.AnalysisResult{IsClickbait: true, Summary: "S"},
		},
		{
			name:    "missing comment means do not comment",
			content: `{"is_clickbait": true, "summary": "S"}`,
			want:    model.AnalysisResult{IsClickbait: true, Summary: "S"},
		},
		{
			name:    "extra fields tolerated",
			content: `{"is_clickbait": false, "summary": "S", "comment": "C", "confidence": 0.9, "model_notes": "x"}`,
			want:    model.AnalysisResult{Summary: "S", CommentText: "C"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockHTTP{status: 200, body: chatReply(t, tt.content)}
			a := New(client, "key", "test-model", testPrompts())

			got, err := a.Analyze(context.Background(), "post text", "article text")
			if err != nil {
				t.Fatalf("analyze: %v", err)
			}
			if diff := cmp.Diff(tt.want, *got); diff != "" {
				t.Errorf("Analyze mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAnalyzeRequestShape(t *testing.T) {
	client := &mockHTTP{status: 200, body: chatReply(t, `{"is_clickbait":false,"summary":"s"}`)}
	a := New(client, "secret-key", "test-model", testPrompts())

	if _, err := a.Analyze(context.Background(), "THE POST", "THE ARTICLE"); err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if got := client.lastReq.Header.Get("Authorization"); got != "Bearer secret-key" {
		t.Errorf("authorization header = %q", got)
	}

	var req chatRequest
	if err := json.Unmarshal(client.lastRaw, &req); err != nil {
		t.Fatalf("unmarshal request: %v", err)
	}
	want := chatRequest{
		Model: "test-model",
		Messages: []chatMessage{
			{Role: "system", Content: "You are an analyst."},
			{Role: "user", Content: "Post: THE POST\nArticle: THE ARTICLE"},
		},
	}
	if diff := cmp.Diff(want, req); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name     string
		client   *mockHTTP
		wantKind ErrorKind
	}{
		{
			name:     "provider status",
			client:   &mockHTTP{status: 429, body: "rate limited"},
			wantKind: KindProviderError,
		},
		{
			name:     "network error",
			client:   &mockHTTP{err: errors.New("connection refused")},
			wantKind: KindProviderError,
		},
		{
			name:     "timeout",
			client:   &mockHTTP{err: context.DeadlineExceeded},
			wantKind: KindTimeout,
		},
		{
			name:     "body not json",
			client:   &mockHTTP{status: 200, body: "<html>gateway error</html>"},
			wantKind: KindMalformedResponse,
		},
		{
			name:     "no choices",
			client:   &mockHTTP{status: 200, body: `{"choices": []}`},
			wantKind: KindMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.client, "key", "test-model", testPrompts())

			_, err := a.Analyze(context.Background(), "p", "a")
			if err == nil {
				t.Fatal("expected error")
			}
			var aerr *Error
			if !errors.As(err, &aerr) {
				t.Fatalf("expected *Error, got %T: %v", err, err)
			}
			if aerr.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", aerr.Kind, tt.wantKind)
			}
		})
	}
}

func TestAnalyzeContentNotParseable(t *testing.T) {
	client := &mockHTTP{status: 200, body: chatReply(t, "I could not decide, sorry.")}
	a := New(client, "key", "test-model", testPrompts())

	_, err := a.Analyze(context.Background(), "p", "a")
	var aerr *Error
	if !errors.As(err, &aerr) || aerr.Kind != KindMalformedResponse {
		t.Fatalf("expected malformed response error, got %v", err)
	}
}

func TestLoadPrompts(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{
			name:    "valid",
			content: `{"system_prompt": "sys", "user_prompt": "p {post_text} a {article_text}"}`,
		},
		{
			name:    "not json",
			content: "system: sys",
			wantErr: true,
		},
		{
			name:    "missing user prompt",
			content: `{"system_prompt": "sys"}`,
			wantErr: true,
		},
		{
			name:    "missing placeholder",
			content: `{"system_prompt": "sys", "user_prompt": "only {post_text}"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "prompts.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("write prompts: %v", err)
			}

			p, err := LoadPrompts(path)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := p.Render("POST", "ART")
			if got != "p POST a ART" {
				t.Errorf("Render() = %q", got)
			}
		})
	}
}

func TestLoadPromptsMissingFile(t *testing.T) {
	if _, err := LoadPrompts(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
