// Package scoretest provides a deterministic in-memory Scorer for tests.
package scoretest

import (
	"context"
	"sync"

	"github.com/dgallion1/docmark/internal/chunker"
	"github.com/dgallion1/docmark/internal/score"
)

// Fake answers from fixed tables. Ids missing from Relevance are omitted
// from the reply, as a real service might do.
type Fake struct {
	Relevance map[int]float64
	Phrases   map[int]string

	// Errs[i], when non-nil, is returned by call i (0-based).
	Errs []error
	// Before runs at the start of every call with its 0-based index.
	Before func(call int)

	mu    sync.Mutex
	calls [][]int
}

func (f *Fake) Score(ctx context.Context, chunks []chunker.TextChunk, profile, goal string) ([]score.ScoredChunk, error) {
	f.mu.Lock()
	call := len(f.calls)
	ids := make([]int, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	f.calls = append(f.calls, ids)
	f.mu.Unlock()

	if f.Before != nil {
		f.Before(call)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if call < len(f.Errs) && f.Errs[call] != nil {
		return nil, f.Errs[call]
	}

	var out []score.ScoredChunk
	for _, c := range chunks {
		rel, ok := f.Relevance[c.ID]
		if !ok {
			continue
		}
		out = append(out, score.ScoredChunk{
			ID:        c.ID,
			Relevance: rel,
			Rationale: "fake",
			Phrase:    f.Phrases[c.ID],
		})
	}
	return out, nil
}

// Calls returns the chunk ids sent on each call so far.
func (f *Fake) Calls() [][]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]int, len(f.calls))
	copy(out, f.calls)
	return out
}

// Uniform returns relevance r for every id in ids.
func Uniform(r float64, ids ...int) map[int]float64 {
	m := make(map[int]float64, len(ids))
	for _, id := range ids {
		m[id] = r
	}
	return m
}
