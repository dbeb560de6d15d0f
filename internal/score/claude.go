package score

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dgallion1/docmark/internal/chunker"
)

const (
	DefaultClaudeModel   = "claude-sonnet-4-5-20250929"
	DefaultClaudeBaseURL = "https://api.anthropic.com"
)

// ClaudeScorer calls the Anthropic Messages API.
type ClaudeScorer struct {
	apiKey     string
	model      string
	baseURL    string
	maxTokens  int
	httpClient *http.Client
}

func NewClaudeScorer(apiKey, model, baseURL string, maxTokens int, timeout time.Duration) *ClaudeScorer {
	if model == "" {
		model = DefaultClaudeModel
	}
	if baseURL == "" {
		baseURL = DefaultClaudeBaseURL
	}
	return &ClaudeScorer{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxTokens:  maxTokens,
		httpClient: newHTTPClient(timeout),
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Score sends one batch to Claude.
func (c *ClaudeScorer) Score(ctx context.Context, chunks []chunker.TextChunk, profile, goal string) ([]ScoredChunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	system, user, err := BuildMessages(chunks, profile, goal)
	if err != nil {
		return nil, err
	}

	respBody, err := postJSON(ctx, c.httpClient, "claude", c.baseURL+"/v1/messages", map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": "2023-06-01",
	}, anthropicRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages: []anthropicMessage{
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return nil, err
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("claude error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}

	var sb strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return nil, fmt.Errorf("empty response from claude")
	}

	scores, err := ParseScores(sb.String())
	if err != nil {
		return nil, fmt.Errorf("parse claude scores: %w", err)
	}
	return keepBatch(chunks, scores), nil
}

// Close releases resources.
func (c *ClaudeScorer) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
