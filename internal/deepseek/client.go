// Package deepseek calls the DeepSeek chat-completions API to suggest video
// titles and descriptions.
package deepseek

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
)

const (
	defaultBaseURL = "https://api.deepseek.com"
	defaultModel   = "deepseek-chat"

	defaultSystemPrompt = "You are an assistant that writes concise, engaging video " +
		"titles and descriptions for a video website."

	defaultUserPromptTemplate = "You help write YouTube-style video titles and descriptions.\n\n" +
		"Given this video file name: \"{filename}\",\n" +
		"1. Generate a short, catchy title (max 80 characters).\n" +
		"2. Generate a 2-3 sentence description.\n\n" +
		"Respond ONLY as JSON like:\n" +
		"{\n  \"title\": \"...\",\n  \"description\": \"...\"\n}\n"
)

// ErrService covers every way the collaborator can fail: network, quota,
// non-2xx status, or an unparseable completion. The enrichment job records it
// per item and moves on.
var ErrService = errors.New("deepseek service error")

// Client talks to the DeepSeek chat completions endpoint.
type Client struct {
	baseURL      string
	apiKey       string
	model        string
	systemPrompt string
	userTemplate string
	http         *http.Client
}

// Config configures a Client. Zero values fall back to service defaults.
type Config struct {
	BaseURL            string
	APIKey             string
	Model              string
	SystemPrompt       string
	UserPromptTemplate string
	Timeout            time.Duration
}

// NewClient creates a Client. APIKey is required at call time, not here, so a
// server can boot without one and surface the problem on first use.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	systemPrompt := strings.TrimSpace(cfg.SystemPrompt)
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	userTemplate := strings.TrimSpace(cfg.UserPromptTemplate)
	if userTemplate == "" {
		userTemplate = defaultUserPromptTemplate
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	return &Client{
		baseURL:      baseURL,
		apiKey:       strings.TrimSpace(cfg.APIKey),
		model:        model,
		systemPrompt: systemPrompt,
		userTemplate: userTemplate,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// Context carries what the model gets to see about a video. SystemPrompt and
// UserPromptTemplate, when set, override the client's configured prompts for
// this call; admins edit them at runtime.
type Context struct {
	Filename    string
	Title       string
	Description string

	SystemPrompt       string
	UserPromptTemplate string
}

// Suggestion is the model's proposed metadata.
type Suggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
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

// SuggestMetadata asks the model for a title and description. The user prompt
// is the configured template with only the {filename} placeholder substituted;
// templates are admin-supplied, so no further interpolation is performed.
func (c *Client) SuggestMetadata(ctx context.Context, vctx Context) (Suggestion, error) {
	if c.apiKey == "" {
		return Suggestion{}, fmt.Errorf("%w: API key not configured", ErrService)
	}

	systemPrompt := c.systemPrompt
	if p := strings.TrimSpace(vctx.SystemPrompt); p != "" {
		systemPrompt = p
	}
	template := c.userTemplate
	if p := strings.TrimSpace(vctx.UserPromptTemplate); p != "" {
		template = p
	}

	userPrompt := strings.ReplaceAll(template, "{filename}", vctx.Filename)
	if hint := existingMetadataHint(vctx); hint != "" {
		userPrompt += "\n" + hint
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens: 300,
	})
	if err != nil {
		return Suggestion{}, fmt.Errorf("%w: encode request: %v", ErrService, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Suggestion{}, fmt.Errorf("%w: %v", ErrService, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Suggestion{}, fmt.Errorf("%w: %v", ErrService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
		return Suggestion{}, fmt.Errorf("%w: unexpected status %d: %s",
			ErrService, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Suggestion{}, fmt.Errorf("%w: decode response: %v", ErrService, err)
	}
	if len(out.Choices) == 0 {
		return Suggestion{}, fmt.Errorf("%w: empty completion", ErrService)
	}

	return parseSuggestion(out.Choices[0].Message.Content)
}

// parseSuggestion pulls a Suggestion out of a completion. The model sometimes
// wraps the JSON in ``` fences or surrounds it with prose, so the first
// {...} block is extracted before unmarshalling.
func parseSuggestion(content string) (Suggestion, error) {
	raw := extractJSONBlock(content)
	if raw == "" {
		return Suggestion{}, fmt.Errorf("%w: no JSON object in completion", ErrService)
	}

	var s Suggestion
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Suggestion{}, fmt.Errorf("%w: parse completion: %v", ErrService, err)
	}

	s.Title = strings.TrimSpace(s.Title)
	s.Description = strings.TrimSpace(s.Description)
	if s.Title == "" && s.Description == "" {
		return Suggestion{}, fmt.Errorf("%w: completion carried no usable fields", ErrService)
	}
	return s, nil
}

// extractJSONBlock returns the first {...} object in text, stripping
// ``` fences if present. Returns "" when nothing reasonable is found.
func extractJSONBlock(text string) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return ""
	}

	if strings.HasPrefix(s, "```") {
		lines := strings.Split(s, "\n")
		// Drop the opening fence line (``` or ```json).
		lines = lines[1:]
		if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
			lines = lines[:len(lines)-1]
		}
		s = strings.TrimSpace(strings.Join(lines, "\n"))
	}

	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return s
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return strings.TrimSpace(s[start : end+1])
}

func existingMetadataHint(vctx Context) string {
	var parts []string
	if t := strings.TrimSpace(vctx.Title); t != "" {
		parts = append(parts, "Current title: "+t)
	}
	if d := strings.TrimSpace(vctx.Description); d != "" {
		parts = append(parts, "Current description: "+d)
	}
	return strings.Join(parts, "\n")
}
