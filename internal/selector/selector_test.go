package selector

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docmark/internal/annotate"
	"github.com/dgallion1/docmark/internal/chunker"
	"github.com/dgallion1/docmark/internal/score"
	"github.com/dgallion1/docmark/internal/score/scoretest"
)

func mkChunk(id, page, words int) chunker.TextChunk {
	return chunker.TextChunk{
		ID:        id,
		PageIndex: page,
		Text:      strings.TrimSpace(strings.Repeat("signal ", words)),
		Rects:     []annotate.Rect{{X1: 10, Y1: 20, X2: 30, Y2: 40}},
	}
}

func evenChunks(n, words int) []chunker.TextChunk {
	out := make([]chunker.TextChunk, n)
	for i := range out {
		out[i] = mkChunk(i, 0, words)
	}
	return out
}

func scoreMap(rel map[int]float64) map[int]score.ScoredChunk {
	m := make(map[int]score.ScoredChunk, len(rel))
	for id, r := range rel {
		m[id] = score.ScoredChunk{ID: id, Relevance: r}
	}
	return m
}

func params(density float64) Params {
	p := DefaultParams()
	p.Density = density
	return p
}

func TestSelect_PageFilter(t *testing.T) {
	chunks := []chunker.TextChunk{mkChunk(0, 0, 20), mkChunk(1, 1, 20)}
	p := params(0.1)
	p.Pages = map[int]bool{1: true}

	res := Select(chunks, scoreMap(map[int]float64{0: 0.9, 1: 0.9}), p)
	require.Len(t, res.Highlights, 1)
	assert.Equal(t, 1, res.Highlights[0].PageIndex)
	assert.Equal(t, 20, res.TotalWords)
}

func TestSelect_ThresholdAndStopRule(t *testing.T) {
	chunks := evenChunks(5, 10)
	scores := scoreMap(map[int]float64{0: 0.9, 1: 0.5, 2: 0.8, 3: 0.3, 4: 0.7})

	for _, density := range []float64{0.5, 0.9} {
		res := Select(chunks, scores, params(density))
		assert.Equal(t, []int{0, 2, 4}, res.Selected, "density %v", density)
		for _, h := range res.Highlights {
			assert.GreaterOrEqual(t, *h.ProfileScore, DefaultMinThreshold)
		}
	}
}

func TestSelect_SoftCap(t *testing.T) {
	chunks := evenChunks(10, 10)
	scores := scoreMap(scoretest.Uniform(0.9, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9))

	res := Select(chunks, scores, params(0.1))
	assert.Equal(t, 10, res.TargetWords)
	assert.Equal(t, []int{0, 1}, res.Selected)
	assert.LessOrEqual(t, res.SelectedWords, 2*res.TargetWords)
}

func TestSelect_TiesKeepChunkOrder(t *testing.T) {
	chunks := evenChunks(4, 10)
	scores := scoreMap(map[int]float64{0: 0.7, 1: 0.8, 2: 0.7, 3: 0.8})

	res := Select(chunks, scores, params(0.5))
	assert.Equal(t, []int{1, 3, 0, 2}, res.Selected)
}

func TestSelect_MissingScoresRankZero(t *testing.T) {
	chunks := evenChunks(3, 10)
	res := Select(chunks, scoreMap(map[int]float64{2: 0.95}), params(0.5))
	assert.Equal(t, []int{2}, res.Selected)
	assert.Equal(t, 0.0, res.Ranking[1].Relevance)
}

func TestSelect_NoteAndHighlightFields(t *testing.T) {
	chunks := []chunker.TextChunk{
		{ID: 0, Text: "AMD data center GPU revenue accelerating.", Rects: []annotate.Rect{{X2: 1, Y2: 1}}},
		{ID: 1, Text: "Instinct accelerator roadmap.", PageIndex: 2},
	}
	scores := map[int]score.ScoredChunk{
		0: {ID: 0, Relevance: 0.9},
		1: {ID: 1, Relevance: 0.8, Phrase: "Roadmap differentiation"},
	}
	res := Select(chunks, scores, params(0.5))
	require.Len(t, res.Highlights, 2)

	h := res.Highlights[0]
	assert.Equal(t, "Amd Data Center Gpu", h.Note)
	assert.True(t, h.AutoGenerated)
	assert.Equal(t, annotate.AutoColor, h.Color)
	assert.Equal(t, chunks[0].Text, h.ExtractedText)
	assert.Equal(t, chunks[0].Rects, h.Rects)
	assert.Empty(t, h.ID)

	assert.Equal(t, "Roadmap differentiation", res.Highlights[1].Note)
	assert.Equal(t, 2, res.Highlights[1].PageIndex)
}

func TestSelect_Deterministic(t *testing.T) {
	chunks := evenChunks(12, 7)
	rel := map[int]float64{}
	for i := range chunks {
		rel[i] = float64((i*37)%10) / 10
	}
	scores := scoreMap(rel)

	a := Select(chunks, scores, params(0.3))
	b := Select(chunks, scores, params(0.3))
	assert.Equal(t, a.Highlights, b.Highlights)
	assert.Equal(t, a.Selected, b.Selected)
}

func TestSelect_NothingAboveThreshold(t *testing.T) {
	res := Select(evenChunks(3, 5), scoreMap(scoretest.Uniform(0.4, 0, 1, 2)), params(0.5))
	assert.Empty(t, res.Highlights)
	assert.False(t, res.FallbackUsed)
	assert.Equal(t, "no_selection", res.Reason)
}

func TestSelect_EmptyInputs(t *testing.T) {
	res := Select(nil, nil, DefaultParams())
	assert.Empty(t, res.Highlights)
	assert.Equal(t, "no_chunks", res.Reason)

	res = Select([]chunker.TextChunk{{ID: 0, Text: ""}}, scoreMap(map[int]float64{0: 1}), DefaultParams())
	assert.Empty(t, res.Highlights)
	assert.Equal(t, "zero_total_words", res.Reason)
}

type flag struct{ atomic.Bool }

func (f *flag) Cancelled() bool { return f.Load() }

func TestStream_EmitsPerBatch(t *testing.T) {
	chunks := evenChunks(5, 10)
	var emitted []annotate.Highlight
	var atCall []int
	fake := &scoretest.Fake{
		Relevance: map[int]float64{0: 0.9, 1: 0.5, 2: 0.8, 3: 0.3, 4: 0.7},
		Before:    func(int) { atCall = append(atCall, len(emitted)) },
	}
	p := params(0.5)
	p.BatchSize = 2

	res, err := Stream(context.Background(), chunks, fake, "profile", "goal", p, nil, func(h annotate.Highlight) {
		emitted = append(emitted, h)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 4}, res.Selected)
	assert.Equal(t, []int{0, 1, 2}, atCall)
	assert.Len(t, emitted, 3)
	assert.Equal(t, "streaming_ok", res.Reason)
	for _, h := range emitted {
		assert.GreaterOrEqual(t, *h.ProfileScore, p.MinThreshold)
	}
}

func TestStream_SoftCapStopsScoring(t *testing.T) {
	fake := &scoretest.Fake{Relevance: scoretest.Uniform(0.9, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9)}
	p := params(0.1)
	p.BatchSize = 2

	res, err := Stream(context.Background(), evenChunks(10, 10), fake, "p", "g", p, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, res.Selected)
	assert.Len(t, fake.Calls(), 1)
}

func TestStream_PageFilter(t *testing.T) {
	chunks := []chunker.TextChunk{mkChunk(0, 0, 20), mkChunk(1, 1, 20)}
	fake := &scoretest.Fake{Relevance: scoretest.Uniform(0.9, 0, 1)}
	p := params(0.1)
	p.Pages = map[int]bool{1: true}

	res, err := Stream(context.Background(), chunks, fake, "p", "g", p, nil, nil)
	require.NoError(t, err)
	require.Len(t, res.Highlights, 1)
	assert.Equal(t, 1, res.Highlights[0].PageIndex)
	assert.Equal(t, [][]int{{1}}, fake.Calls())
}

func TestStream_CancelBeforeFirstBatch(t *testing.T) {
	fake := &scoretest.Fake{Relevance: scoretest.Uniform(0.9, 0, 1)}
	c := &flag{}
	c.Store(true)

	res, err := Stream(context.Background(), evenChunks(2, 5), fake, "p", "g", DefaultParams(), c, nil)
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Equal(t, "cancelled", res.Reason)
	assert.Empty(t, fake.Calls())
	assert.Empty(t, res.Highlights)
}

func TestStream_NoEmissionAfterCancel(t *testing.T) {
	fake := &scoretest.Fake{Relevance: scoretest.Uniform(0.9, 0, 1, 2, 3, 4, 5)}
	c := &flag{}
	emits := 0
	p := params(0.5)
	p.BatchSize = 3

	res, err := Stream(context.Background(), evenChunks(6, 10), fake, "p", "g", p, c, func(annotate.Highlight) {
		emits++
		c.Store(true)
	})
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Equal(t, 1, emits)
	assert.Len(t, res.Highlights, 1)
	assert.Len(t, fake.Calls(), 1)
}

func TestStream_ScoringErrorKeepsEmitted(t *testing.T) {
	boom := errors.New("service unavailable")
	fake := &scoretest.Fake{
		Relevance: scoretest.Uniform(0.9, 0, 1, 2, 3),
		Errs:      []error{nil, boom},
	}
	p := params(0.5)
	p.BatchSize = 2
	var emitted int

	res, err := Stream(context.Background(), evenChunks(4, 10), fake, "p", "g", p, nil, func(annotate.Highlight) { emitted++ })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 2, emitted)
	assert.Len(t, res.Highlights, 2)
	assert.True(t, strings.HasPrefix(res.Reason, "error_after_2_chunks"))
}

func TestStream_IgnoresForeignIDs(t *testing.T) {
	fake := &scoretest.Fake{Relevance: map[int]float64{0: 0.2}}
	other := &foreignScorer{inner: fake}

	res, err := Stream(context.Background(), evenChunks(1, 10), other, "p", "g", DefaultParams(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Highlights)
	assert.NotContains(t, res.Scores, 42)
}

// foreignScorer appends a score for an id that was never sent.
type foreignScorer struct{ inner score.Scorer }

func (f *foreignScorer) Score(ctx context.Context, chunks []chunker.TextChunk, profile, goal string) ([]score.ScoredChunk, error) {
	out, err := f.inner.Score(ctx, chunks, profile, goal)
	return append(out, score.ScoredChunk{ID: 42, Relevance: 1}), err
}
