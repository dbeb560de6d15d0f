package selector

import (
	"context"
	"fmt"

	"github.com/dgallion1/docmark/internal/annotate"
	"github.com/dgallion1/docmark/internal/chunker"
	"github.com/dgallion1/docmark/internal/score"
)

// Canceller reports whether the caller asked to stop.
type Canceller interface {
	Cancelled() bool
}

// Stream scores chunks batch by batch and emits highlights as soon as the
// partial ranking justifies them. After each batch the ranking is rebuilt
// over every chunk (unscored chunks at 0) and scanned with the same
// threshold, target and soft-cap rules as Select, skipping chunks already
// emitted. cancel is polled before each batch and before each emission;
// once it reports true nothing further is scored or emitted.
//
// A scoring error stops the pass; highlights emitted so far stay emitted and
// the partial Result is returned alongside the error.
func Stream(ctx context.Context, chunks []chunker.TextChunk, s score.Scorer, profile, goal string, p Params, cancel Canceller, emit func(annotate.Highlight)) (Result, error) {
	p = p.withDefaults()
	chunks = FilterPages(chunks, p.Pages)
	res := Result{Chunks: chunks, Scores: make(map[int]score.ScoredChunk)}
	if len(chunks) == 0 {
		res.Reason = "no_chunks_extracted_streaming"
		return res, nil
	}
	res.TotalWords = totalWords(chunks)
	if res.TotalWords == 0 {
		res.Reason = "zero_total_words_streaming"
		return res, nil
	}
	res.TargetWords = targetWords(res.TotalWords, p.Density)

	cancelled := func() bool {
		if cancel != nil && cancel.Cancelled() {
			res.Cancelled = true
			res.Reason = "cancelled"
			return true
		}
		return false
	}
	send := func(c chunker.TextChunk, relevance float64) {
		h := res.add(c, relevance)
		if emit != nil {
			emit(h)
		}
	}

	byID := indexChunks(chunks)
	emitted := make(map[int]bool)

	for start := 0; start < len(chunks); start += p.BatchSize {
		if cancelled() {
			res.Ranking = rank(chunks, res.Scores)
			return res, nil
		}
		if err := ctx.Err(); err != nil {
			res.Ranking = rank(chunks, res.Scores)
			res.Reason = fmt.Sprintf("error_after_%d_chunks: %v", start, err)
			return res, err
		}

		end := min(start+p.BatchSize, len(chunks))
		scores, err := s.Score(ctx, chunks[start:end], profile, goal)
		if err != nil {
			res.Ranking = rank(chunks, res.Scores)
			res.Reason = fmt.Sprintf("error_after_%d_chunks: %v", start, err)
			return res, fmt.Errorf("score chunks %d-%d: %w", start, end-1, err)
		}
		for _, sc := range scores {
			if _, known := byID[sc.ID]; !known {
				continue
			}
			if _, dup := res.Scores[sc.ID]; !dup {
				res.Scores[sc.ID] = sc
			}
		}

		for _, r := range rank(chunks, res.Scores) {
			if emitted[r.ChunkID] {
				continue
			}
			if r.Relevance < p.MinThreshold {
				if res.SelectedWords >= res.TargetWords {
					break
				}
				continue
			}
			if cancelled() {
				res.Ranking = rank(chunks, res.Scores)
				return res, nil
			}
			emitted[r.ChunkID] = true
			send(byID[r.ChunkID], r.Relevance)
			if res.capReached(p.SoftCap) {
				break
			}
		}
		if res.capReached(p.SoftCap) {
			break
		}
	}

	res.Ranking = rank(chunks, res.Scores)
	if len(res.Highlights) == 0 && len(res.Scores) > 0 {
		top := res.Ranking[0]
		if top.Relevance >= p.MinThreshold && !cancelled() {
			send(byID[top.ChunkID], top.Relevance)
			res.FallbackUsed = true
		}
	}

	if !res.Cancelled {
		if len(res.Highlights) > 0 {
			res.Reason = "streaming_ok"
		} else {
			res.Reason = "streaming_no_selection"
		}
	}
	return res, nil
}
