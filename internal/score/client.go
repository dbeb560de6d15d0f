package score

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/dgallion1/docmark/internal/chunker"
	"github.com/dgallion1/docmark/internal/config"
)

// Client wraps a provider Scorer with request pacing and call statistics.
// It is the Scorer the rest of the service holds.
type Client struct {
	provider string
	inner    Scorer
	limiter  *rate.Limiter
	stats    *LLMStats
}

// NewClient wraps inner. rps <= 0 disables pacing; stats may be nil.
func NewClient(provider string, inner Scorer, rps float64, stats *LLMStats) *Client {
	c := &Client{provider: provider, inner: inner, stats: stats}
	if rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	if stats != nil {
		stats.SetProvider(provider)
	}
	return c
}

// New builds the provider named by cfg.Provider.
func New(ctx context.Context, cfg config.ScorerConfig, stats *LLMStats) (*Client, error) {
	var inner Scorer
	switch cfg.Provider {
	case config.ProviderAnthropic:
		inner = NewClaudeScorer(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens, cfg.Timeout)
	case config.ProviderOpenAI:
		inner = NewOpenAIScorer(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens, cfg.Timeout)
	case config.ProviderAzure:
		inner = NewAzureScorer(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.APIVersion, cfg.MaxTokens, cfg.Timeout)
	case config.ProviderGemini:
		g, err := NewGeminiScorer(ctx, cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
		inner = timeoutScorer{inner: g, timeout: cfg.Timeout}
	default:
		return nil, fmt.Errorf("unknown scorer provider %q", cfg.Provider)
	}
	return NewClient(cfg.Provider, inner, cfg.RequestsPerSecond, stats), nil
}

func (c *Client) Provider() string { return c.provider }

// Score waits for the limiter, forwards to the provider and records the call.
func (c *Client) Score(ctx context.Context, chunks []chunker.TextChunk, profile, goal string) ([]ScoredChunk, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	start := time.Now()
	scores, err := c.inner.Score(ctx, chunks, profile, goal)
	if c.stats != nil {
		c.stats.Record(time.Since(start).Milliseconds(), len(chunks), err)
	}
	return scores, err
}

// Close releases provider resources.
func (c *Client) Close() error {
	if cl, ok := c.inner.(interface{ Close() error }); ok {
		return cl.Close()
	}
	return nil
}

// timeoutScorer bounds each call for providers without an http.Client timeout.
type timeoutScorer struct {
	inner interface {
		Scorer
		Close() error
	}
	timeout time.Duration
}

func (t timeoutScorer) Score(ctx context.Context, chunks []chunker.TextChunk, profile, goal string) ([]ScoredChunk, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	return t.inner.Score(ctx, chunks, profile, goal)
}

func (t timeoutScorer) Close() error { return t.inner.Close() }
