package score

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/dgallion1/docmark/internal/chunker"
)

const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiScorer calls Google's Gemini models through generative-ai-go.
type GeminiScorer struct {
	client    *genai.Client
	model     string
	maxTokens int
}

func NewGeminiScorer(ctx context.Context, apiKey, model, endpoint string, maxTokens int) (*GeminiScorer, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiScorer{client: client, model: model, maxTokens: maxTokens}, nil
}

// Score sends one batch to Gemini.
func (g *GeminiScorer) Score(ctx context.Context, chunks []chunker.TextChunk, profile, goal string) ([]ScoredChunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	system, user, err := BuildMessages(chunks, profile, goal)
	if err != nil {
		return nil, err
	}

	m := g.client.GenerativeModel(g.model)
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	m.SetTemperature(0)
	if g.maxTokens > 0 {
		m.SetMaxOutputTokens(int32(g.maxTokens))
	}
	m.ResponseMIMEType = "application/json"

	resp, err := m.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && isRetryableStatus(apiErr.Code) {
			return nil, &RetryableError{StatusCode: apiErr.Code, Message: apiErr.Message}
		}
		return nil, fmt.Errorf("gemini api: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("empty response from gemini")
	}
	scores, err := ParseScores(text)
	if err != nil {
		return nil, fmt.Errorf("parse gemini scores: %w", err)
	}
	return keepBatch(chunks, scores), nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}

func (g *GeminiScorer) Close() error {
	return g.client.Close()
}
