package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/docmark/internal/chunker"
	"github.com/dgallion1/docmark/internal/score"
)

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *score.RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

const MaxRetries = 3

// WithRetry wraps s so that a batch is repeated while s reports a
// RetryableError, up to MaxRetries attempts in total.
func WithRetry(s score.Scorer, log *slog.Logger) score.Scorer {
	return &retryScorer{inner: s, backoff: Backoff, log: log}
}

type retryScorer struct {
	inner   score.Scorer
	backoff func(int) time.Duration
	log     *slog.Logger
}

func (r *retryScorer) Score(ctx context.Context, chunks []chunker.TextChunk, profile, goal string) ([]score.ScoredChunk, error) {
	var lastErr error
	for attempt := range MaxRetries {
		out, err := r.inner.Score(ctx, chunks, profile, goal)
		if err == nil || !IsRetryable(err) {
			return out, err
		}
		lastErr = err
		if attempt == MaxRetries-1 {
			break
		}
		r.log.Warn("retryable scoring error", "first_chunk", chunks[0].ID, "attempt", attempt, "error", err)
		select {
		case <-time.After(r.backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}
