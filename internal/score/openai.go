package score

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgallion1/docmark/internal/chunker"
)

const (
	DefaultOpenAIModel   = "gpt-4o-mini"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultAzureVersion  = "2024-05-01-preview"
)

// OpenAIScorer calls an OpenAI-compatible chat completions endpoint. Azure
// deployments use the same body with a deployment URL and api-key header.
type OpenAIScorer struct {
	name       string
	url        string
	model      string // empty for azure, where the deployment names the model
	headers    map[string]string
	maxTokens  int
	httpClient *http.Client
}

func NewOpenAIScorer(apiKey, model, baseURL string, maxTokens int, timeout time.Duration) *OpenAIScorer {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	return &OpenAIScorer{
		name:       "openai",
		url:        strings.TrimRight(baseURL, "/") + "/chat/completions",
		model:      model,
		headers:    map[string]string{"Authorization": "Bearer " + apiKey},
		maxTokens:  maxTokens,
		httpClient: newHTTPClient(timeout),
	}
}

// NewAzureScorer targets {endpoint}/openai/deployments/{deployment}/chat/completions.
func NewAzureScorer(apiKey, deployment, endpoint, apiVersion string, maxTokens int, timeout time.Duration) *OpenAIScorer {
	if deployment == "" {
		deployment = DefaultOpenAIModel
	}
	if apiVersion == "" {
		apiVersion = DefaultAzureVersion
	}
	u := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimRight(endpoint, "/"), url.PathEscape(deployment), url.QueryEscape(apiVersion))
	return &OpenAIScorer{
		name:       "azure openai",
		url:        u,
		headers:    map[string]string{"api-key": apiKey},
		maxTokens:  maxTokens,
		httpClient: newHTTPClient(timeout),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	N           int           `json:"n"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Score sends one batch as a chat completion.
func (c *OpenAIScorer) Score(ctx context.Context, chunks []chunker.TextChunk, profile, goal string) ([]ScoredChunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	system, user, err := BuildMessages(chunks, profile, goal)
	if err != nil {
		return nil, err
	}

	respBody, err := postJSON(ctx, c.httpClient, c.name, c.url, c.headers, chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens: c.maxTokens,
		N:         1,
	})
	if err != nil {
		return nil, err
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("unexpected %s response: no choices (raw: %s)", c.name, truncate(string(respBody), 400))
	}

	scores, err := ParseScores(apiResp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("parse %s scores: %w", c.name, err)
	}
	return keepBatch(chunks, scores), nil
}

// Close releases resources.
func (c *OpenAIScorer) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
