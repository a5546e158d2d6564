// Package refine proxies transcript text to an OpenAI-compatible
// chat-completions endpoint for cleanup or summarization.
package refine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Mode selects the refinement instruction applied to a transcript.
type Mode string

const (
	ModeCleanup Mode = "cleanup"
	ModeSummary Mode = "summary"
)

var instructions = map[Mode]string{
	ModeCleanup: "Fix punctuation, casing, and obvious recognition mistakes in the following transcript. Return only the corrected transcript.",
	ModeSummary: "Summarize the following transcript in a few concise paragraphs. Return only the summary.",
}

// Config holds the refinement endpoint settings.
type Config struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// Client is a thin request/response proxy to the language-model API.
type Client struct {
	cfg    Config
	client *http.Client
}

// NewClient creates a refinement client. A nil return means refinement is
// not configured.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		return nil
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

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
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Refine sends the transcript with the mode's instruction and returns the
// model's text.
func (c *Client) Refine(ctx context.Context, text string, mode Mode) (string, error) {
	instruction, ok := instructions[mode]
	if !ok {
		return "", fmt.Errorf("unknown refine mode: %s", mode)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: instruction},
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal refine request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build refine request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("refine request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("refine endpoint returned %d: %s", resp.StatusCode, string(detail))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode refine response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("refine response contained no choices")
	}

	return out.Choices[0].Message.Content, nil
}
