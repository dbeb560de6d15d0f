// Package score talks to the relevance-scoring service: it builds the
// request for a batch of chunks and turns the model's reply into ScoredChunks.
package score

import (
	"context"
	"fmt"

	"github.com/dgallion1/docmark/internal/chunker"
)

// DefaultBatchSize is the number of chunks sent per scoring request.
const DefaultBatchSize = 8

// ScoredChunk is the service's verdict on one chunk.
type ScoredChunk struct {
	ID        int     `json:"id"`
	Relevance float64 `json:"relevance"`
	Rationale string  `json:"rationale"`
	Phrase    string  `json:"phrase,omitempty"` // 1-4 word label; empty when not supplied
}

// Scorer rates one batch of chunks against a reader profile and goal.
// Implementations make a single request per call and do not retry.
type Scorer interface {
	Score(ctx context.Context, chunks []chunker.TextChunk, profile, goal string) ([]ScoredChunk, error)
}

// ScoreAll scores chunks in sequential batches and returns the best-known
// score per chunk id.
func ScoreAll(ctx context.Context, s Scorer, chunks []chunker.TextChunk, profile, goal string, batchSize int) (map[int]ScoredChunk, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	out := make(map[int]ScoredChunk, len(chunks))
	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))
		scores, err := s.Score(ctx, chunks[start:end], profile, goal)
		if err != nil {
			return out, fmt.Errorf("score chunks %d-%d: %w", start, end-1, err)
		}
		for _, sc := range scores {
			out[sc.ID] = sc
		}
	}
	return out, nil
}

// keepBatch drops scores for ids that were not part of the request.
func keepBatch(chunks []chunker.TextChunk, scores []ScoredChunk) []ScoredChunk {
	ids := make(map[int]bool, len(chunks))
	for _, c := range chunks {
		ids[c.ID] = true
	}
	out := scores[:0]
	for _, s := range scores {
		if ids[s.ID] {
			out = append(out, s)
		}
	}
	return out
}
