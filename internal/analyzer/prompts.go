package analyzer

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Placeholders substituted into the user prompt template.
const (
	placeholderPost    = "{post_text}"
	placeholderArticle = "{article_text}"
)

// Prompts is the externally configured template pair sent to the
// model. The user prompt must reference both placeholders.
type Prompts struct {
	SystemPrompt string `json:"system_prompt"`
	UserPrompt   string `json:"user_prompt"`
}

// LoadPrompts reads and validates the prompt template file.
func LoadPrompts(path string) (*Prompts, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}
	var p Prompts
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse prompts %s: %w", path, err)
	}
	if p.SystemPrompt == "" || p.UserPrompt == "" {
		return nil, fmt.Errorf("prompts %s: system_prompt and user_prompt are required", path)
	}
	for _, ph := range []string{placeholderPost, placeholderArticle} {
		if !strings.Contains(p.UserPrompt, ph) {
			return nil, fmt.Errorf("prompts %s: user_prompt is missing %s", path, ph)
		}
	}
	return &p, nil
}

// Render substitutes the post and article text into the user prompt.
func (p *Prompts) Render(postText, articleText string) string {
	out := strings.ReplaceAll(p.UserPrompt, placeholderPost, postText)
	return strings.ReplaceAll(out, placeholderArticle, articleText)
}
