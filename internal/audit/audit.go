// Package audit writes one JSON file per highlighting run describing what
// was scored and why each highlight was chosen. Records never carry scorer
// credentials, request headers or the profile text itself.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/docmark/internal/selector"
)

const (
	counterFile = "llm_run_counter.txt"
	filePrefix  = "llm_run_"
	fileSuffix  = ".json"

	chunkPreview     = 500
	rationalePreview = 300
	selectedPreview  = 400
)

// Meta is run context that is not part of the selection result.
type Meta struct {
	RunID      string
	DocumentID string
	Filename   string
	Mode       string // "batch" or "streaming"
	Provider   string
	Profile    string
	Goal       string
	Density    float64
	Threshold  float64
}

type ChunkEntry struct {
	ID          int    `json:"id"`
	PageIndex   int    `json:"page_index"`
	CharCount   int    `json:"char_count"`
	TextPreview string `json:"text_preview"`
}

type ScoreEntry struct {
	ID               int     `json:"id"`
	PageIndex        int     `json:"page_index"`
	Relevance        float64 `json:"relevance"`
	RationalePreview string  `json:"rationale_preview"`
}

type OrderEntry struct {
	ID        int     `json:"id"`
	Relevance float64 `json:"relevance"`
	PageIndex int     `json:"page_index"`
}

type SelectedEntry struct {
	Order       int     `json:"id"`
	ChunkID     int     `json:"chunk_id"`
	PageIndex   int     `json:"page_index"`
	Relevance   float64 `json:"relevance"`
	TextPreview string  `json:"text_preview"`
}

// Record is the on-disk audit document.
type Record struct {
	Timestamp      time.Time `json:"timestamp"`
	RunID          string    `json:"run_id,omitempty"`
	DocumentID     string    `json:"document_id,omitempty"`
	Filename       string    `json:"filename"`
	Mode           string    `json:"mode"`
	Provider       string    `json:"provider,omitempty"`
	Reason         string    `json:"reason"`
	DensityTarget  float64   `json:"density_target"`
	MinThreshold   float64   `json:"min_threshold"`
	ProfilePresent bool      `json:"profile_present"`
	GoalPresent    bool      `json:"document_goal_present"`
	ProfileCharLen int       `json:"profile_char_len"`
	GoalCharLen    int       `json:"goal_char_len"`
	TotalWords     int       `json:"total_words"`
	TargetWords    int       `json:"target_words"`
	FallbackUsed   bool      `json:"fallback_used"`
	Cancelled      bool      `json:"cancelled"`

	Chunks      []ChunkEntry    `json:"chunks"`
	Scores      []ScoreEntry    `json:"scores"`
	ScoredOrder []OrderEntry    `json:"scored_order"`
	Selected    []SelectedEntry `json:"selected"`
}

// FromResult builds a Record. Every chunk appears once in Scores, in
// ranking order, with relevance 0 when it was never scored.
func FromResult(meta Meta, res selector.Result) Record {
	rec := Record{
		Timestamp:      time.Now().UTC(),
		RunID:          meta.RunID,
		DocumentID:     meta.DocumentID,
		Filename:       meta.Filename,
		Mode:           meta.Mode,
		Provider:       meta.Provider,
		Reason:         res.Reason,
		DensityTarget:  meta.Density,
		MinThreshold:   meta.Threshold,
		ProfilePresent: strings.TrimSpace(meta.Profile) != "",
		GoalPresent:    strings.TrimSpace(meta.Goal) != "",
		ProfileCharLen: len([]rune(meta.Profile)),
		GoalCharLen:    len([]rune(meta.Goal)),
		TotalWords:     res.TotalWords,
		TargetWords:    res.TargetWords,
		FallbackUsed:   res.FallbackUsed,
		Cancelled:      res.Cancelled,
		Chunks:         make([]ChunkEntry, 0, len(res.Chunks)),
		Scores:         make([]ScoreEntry, 0, len(res.Ranking)),
		ScoredOrder:    make([]OrderEntry, 0, len(res.Ranking)),
		Selected:       make([]SelectedEntry, 0, len(res.Highlights)),
	}

	for _, c := range res.Chunks {
		rec.Chunks = append(rec.Chunks, ChunkEntry{
			ID:          c.ID,
			PageIndex:   c.PageIndex,
			CharCount:   c.CharCount,
			TextPreview: preview(c.Text, chunkPreview),
		})
	}
	for _, r := range res.Ranking {
		rec.Scores = append(rec.Scores, ScoreEntry{
			ID:               r.ChunkID,
			PageIndex:        r.PageIndex,
			Relevance:        r.Relevance,
			RationalePreview: preview(res.Scores[r.ChunkID].Rationale, rationalePreview),
		})
		rec.ScoredOrder = append(rec.ScoredOrder, OrderEntry{
			ID:        r.ChunkID,
			Relevance: r.Relevance,
			PageIndex: r.PageIndex,
		})
	}
	for i, h := range res.Highlights {
		var rel float64
		if h.ProfileScore != nil {
			rel = *h.ProfileScore
		}
		entry := SelectedEntry{
			Order:       i,
			PageIndex:   h.PageIndex,
			Relevance:   rel,
			TextPreview: preview(h.ExtractedText, selectedPreview),
		}
		if i < len(res.Selected) {
			entry.ChunkID = res.Selected[i]
		}
		rec.Selected = append(rec.Selected, entry)
	}
	return rec
}

// Writer numbers audit files llm_run_<n>.json inside one directory. The
// last number used is kept in llm_run_counter.txt; when that file is missing
// or unreadable the next number is derived from the existing files.
type Writer struct {
	mu  sync.Mutex
	dir string
}

// NewWriter returns nil for an empty dir; a nil Writer discards records.
func NewWriter(dir string) *Writer {
	if dir == "" {
		return nil
	}
	return &Writer{dir: dir}
}

// Write stores rec and returns the file path.
func (w *Writer) Write(rec Record) (string, error) {
	if w == nil {
		return "", nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create audit dir: %w", err)
	}
	n, err := w.nextNumber()
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal audit record: %w", err)
	}
	path := filepath.Join(w.dir, fmt.Sprintf("%s%d%s", filePrefix, n, fileSuffix))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write audit record: %w", err)
	}
	return path, nil
}

func (w *Writer) nextNumber() (int, error) {
	counterPath := filepath.Join(w.dir, counterFile)
	n := -1
	if raw, err := os.ReadFile(counterPath); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(string(raw))); err == nil && v >= 0 {
			n = v
		}
	}
	if n < 0 {
		entries, err := os.ReadDir(w.dir)
		if err != nil {
			return 0, fmt.Errorf("scan audit dir: %w", err)
		}
		n = 0
		for _, e := range entries {
			name := e.Name()
			if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
				continue
			}
			mid := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
			if v, err := strconv.Atoi(mid); err == nil && v > n {
				n = v
			}
		}
	}
	n++
	if err := os.WriteFile(counterPath, []byte(strconv.Itoa(n)), 0o644); err != nil {
		return 0, fmt.Errorf("write audit counter: %w", err)
	}
	return n, nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
