// Package selector picks which scored chunks become highlights under a word
// budget, either after all scores are known (Select) or batch by batch as
// scores arrive (Stream).
package selector

import (
	"cmp"
	"slices"

	"github.com/dgallion1/docmark/internal/annotate"
	"github.com/dgallion1/docmark/internal/chunker"
	"github.com/dgallion1/docmark/internal/keywords"
	"github.com/dgallion1/docmark/internal/score"
)

const (
	DefaultDensity      = 0.10
	DefaultMinThreshold = 0.60
	DefaultSoftCap      = 2.0

	noteKeywords = 4
)

// Params controls one selection pass.
type Params struct {
	Density      float64      // fraction of total words to aim for
	MinThreshold float64      // nothing below this relevance is selected
	Pages        map[int]bool // 0-based page filter; nil selects every page
	BatchSize    int          // chunks per scoring call (Stream only)
	SoftCap      float64      // stop once selected words reach SoftCap * target
}

func DefaultParams() Params {
	return Params{
		Density:      DefaultDensity,
		MinThreshold: DefaultMinThreshold,
		BatchSize:    score.DefaultBatchSize,
		SoftCap:      DefaultSoftCap,
	}
}

func (p Params) withDefaults() Params {
	if p.Density <= 0 {
		p.Density = DefaultDensity
	}
	if p.BatchSize <= 0 {
		p.BatchSize = score.DefaultBatchSize
	}
	if p.SoftCap <= 0 {
		p.SoftCap = DefaultSoftCap
	}
	return p
}

// Ranked is one entry of the relevance ranking.
type Ranked struct {
	ChunkID   int     `json:"id"`
	PageIndex int     `json:"page"`
	Relevance float64 `json:"relevance"`
}

// Result describes a selection pass.
type Result struct {
	Chunks        []chunker.TextChunk       // chunk set after the page filter
	Scores        map[int]score.ScoredChunk // scores known for that set
	Ranking       []Ranked                  // final relevance order
	Highlights    []annotate.Highlight      // in selection order
	Selected      []int                     // chunk ids, parallel to Highlights
	TotalWords    int
	TargetWords   int
	SelectedWords int
	FallbackUsed  bool
	Cancelled     bool
	Reason        string
}

// FilterPages keeps chunks whose page is in pages. A nil filter keeps all.
func FilterPages(chunks []chunker.TextChunk, pages map[int]bool) []chunker.TextChunk {
	if pages == nil {
		return chunks
	}
	out := make([]chunker.TextChunk, 0, len(chunks))
	for _, c := range chunks {
		if pages[c.PageIndex] {
			out = append(out, c)
		}
	}
	return out
}

// Select runs batch selection over fully scored chunks. Chunks without a
// score rank at relevance 0. The output depends only on its inputs.
func Select(chunks []chunker.TextChunk, scores map[int]score.ScoredChunk, p Params) Result {
	p = p.withDefaults()
	chunks = FilterPages(chunks, p.Pages)
	res := Result{Chunks: chunks, Scores: make(map[int]score.ScoredChunk)}
	for _, c := range chunks {
		if sc, ok := scores[c.ID]; ok {
			res.Scores[c.ID] = sc
		}
	}
	if len(chunks) == 0 {
		res.Reason = "no_chunks"
		return res
	}

	res.TotalWords = totalWords(chunks)
	if res.TotalWords == 0 {
		res.Reason = "zero_total_words"
		return res
	}
	res.TargetWords = targetWords(res.TotalWords, p.Density)

	byID := indexChunks(chunks)
	res.Ranking = rank(chunks, res.Scores)
	for _, r := range res.Ranking {
		if r.Relevance < p.MinThreshold {
			if res.SelectedWords >= res.TargetWords {
				break
			}
			continue
		}
		res.add(byID[r.ChunkID], r.Relevance)
		if res.capReached(p.SoftCap) {
			break
		}
	}

	if len(res.Highlights) == 0 && len(res.Scores) > 0 {
		top := res.Ranking[0]
		if top.Relevance >= p.MinThreshold {
			res.add(byID[top.ChunkID], top.Relevance)
			res.FallbackUsed = true
		}
	}

	switch {
	case res.FallbackUsed:
		res.Reason = "fallback_used"
	case len(res.Highlights) == 0:
		res.Reason = "no_selection"
	default:
		res.Reason = "ok"
	}
	return res
}

func (r *Result) add(c chunker.TextChunk, relevance float64) annotate.Highlight {
	h := buildHighlight(c, relevance, r.Scores[c.ID].Phrase)
	r.Highlights = append(r.Highlights, h)
	r.Selected = append(r.Selected, c.ID)
	r.SelectedWords += c.Words()
	return h
}

func (r *Result) capReached(softCap float64) bool {
	return float64(r.SelectedWords) >= float64(r.TargetWords)*softCap
}

// buildHighlight has no ID or timestamps; the document assigns them on append.
func buildHighlight(c chunker.TextChunk, relevance float64, phrase string) annotate.Highlight {
	note := phrase
	if note == "" {
		note = keywords.Summary(c.Text, noteKeywords)
	}
	rel := relevance
	return annotate.Highlight{
		PageIndex:     c.PageIndex,
		Rects:         append([]annotate.Rect(nil), c.Rects...),
		Color:         annotate.AutoColor,
		Note:          note,
		ProfileScore:  &rel,
		ExtractedText: c.Text,
		AutoGenerated: true,
	}
}

// rank orders chunks by relevance, highest first. Equal relevance keeps
// chunk order.
func rank(chunks []chunker.TextChunk, scores map[int]score.ScoredChunk) []Ranked {
	out := make([]Ranked, len(chunks))
	for i, c := range chunks {
		out[i] = Ranked{ChunkID: c.ID, PageIndex: c.PageIndex, Relevance: scores[c.ID].Relevance}
	}
	slices.SortStableFunc(out, func(a, b Ranked) int {
		return cmp.Compare(b.Relevance, a.Relevance)
	})
	return out
}

func totalWords(chunks []chunker.TextChunk) int {
	n := 0
	for _, c := range chunks {
		n += c.Words()
	}
	return n
}

func targetWords(total int, density float64) int {
	return max(1, int(float64(total)*density))
}

func indexChunks(chunks []chunker.TextChunk) map[int]chunker.TextChunk {
	m := make(map[int]chunker.TextChunk, len(chunks))
	for _, c := range chunks {
		m[c.ID] = c
	}
	return m
}
