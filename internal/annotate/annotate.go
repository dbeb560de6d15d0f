package annotate

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Rect is a page-local box in PDF points, (x1,y1) to (x2,y2).
type Rect struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Normalize returns a copy with x1<=x2 and y1<=y2.
func (r Rect) Normalize() Rect {
	if r.X1 > r.X2 {
		r.X1, r.X2 = r.X2, r.X1
	}
	if r.Y1 > r.Y2 {
		r.Y1, r.Y2 = r.Y2, r.Y1
	}
	return r
}

// Union returns the smallest normalized rect covering r and o.
func (r Rect) Union(o Rect) Rect {
	r, o = r.Normalize(), o.Normalize()
	return Rect{
		X1: min(r.X1, o.X1),
		Y1: min(r.Y1, o.Y1),
		X2: max(r.X2, o.X2),
		Y2: max(r.Y2, o.Y2),
	}
}

// Color is an RGB triple.
type Color [3]uint8

var (
	// AutoColor tags highlights produced by the selector.
	AutoColor = Color{255, 170, 90}
	// ManualColor is the default for user-drawn highlights.
	ManualColor = Color{255, 255, 0}
)

// Highlight is a highlighted region on one page.
type Highlight struct {
	ID            string    `json:"id"`
	PageIndex     int       `json:"page_index"`
	Rects         []Rect    `json:"rects"`
	Color         Color     `json:"color"`
	Note          string    `json:"note,omitempty"`
	ProfileScore  *float64  `json:"profile_score,omitempty"`
	ExtractedText string    `json:"extracted_text,omitempty"`
	AutoGenerated bool      `json:"auto_generated"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Document is the aggregate a highlighting run appends into.
type Document struct {
	mu sync.RWMutex

	ID       string
	Filename string

	globalProfile string
	documentGoal  string
	density       float64

	highlights []Highlight
	// version starts at 1 and grows on every profile or highlight change.
	version int
}

// DefaultDensity is the highlight density of a fresh document.
const DefaultDensity = 0.10

func NewDocument(filename string) *Document {
	return &Document{
		ID:       uuid.NewString(),
		Filename: filename,
		density:  DefaultDensity,
		version:  1,
	}
}

// ClampDensity bounds a density target to 0.01..0.5.
func ClampDensity(d float64) float64 {
	return max(0.01, min(0.5, d))
}

// SetProfile updates reader profile, document goal and density target.
func (d *Document) SetProfile(profile, goal string, density float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.globalProfile = profile
	d.documentGoal = goal
	d.density = ClampDensity(density)
	d.version++
}

// Profile returns the reader profile, document goal and density target.
func (d *Document) Profile() (profile, goal string, density float64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.globalProfile, d.documentGoal, d.density
}

// AddHighlight appends h, assigning an ID and timestamps when missing.
func (d *Document) AddHighlight(h Highlight) Highlight {
	now := time.Now().UTC()
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now
	}
	h.UpdatedAt = now

	d.mu.Lock()
	defer d.mu.Unlock()
	d.highlights = append(d.highlights, h)
	d.version++
	return h
}

// AddManualHighlight records a user-drawn highlight.
func (d *Document) AddManualHighlight(pageIndex int, rects []Rect, note string) Highlight {
	norm := make([]Rect, len(rects))
	for i, r := range rects {
		norm[i] = r.Normalize()
	}
	return d.AddHighlight(Highlight{
		PageIndex: pageIndex,
		Rects:     norm,
		Color:     ManualColor,
		Note:      note,
	})
}

// Highlights returns a copy of the current highlight list.
func (d *Document) Highlights() []Highlight {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Highlight, len(d.highlights))
	copy(out, d.highlights)
	return out
}

// ClearHighlights removes every highlight.
func (d *Document) ClearHighlights() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.highlights = nil
	d.version++
}

// DocumentSnapshot is a JSON-safe copy of a document.
type DocumentSnapshot struct {
	ID                     string      `json:"id"`
	Filename               string      `json:"filename"`
	GlobalProfile          string      `json:"global_profile,omitempty"`
	DocumentGoal           string      `json:"document_goal,omitempty"`
	HighlightDensityTarget float64     `json:"highlight_density_target"`
	Highlights             []Highlight `json:"highlights"`
	Version                int         `json:"version"`
}

func (d *Document) Snapshot() DocumentSnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	hls := make([]Highlight, len(d.highlights))
	copy(hls, d.highlights)
	return DocumentSnapshot{
		ID:                     d.ID,
		Filename:               d.Filename,
		GlobalProfile:          d.globalProfile,
		DocumentGoal:           d.documentGoal,
		HighlightDensityTarget: d.density,
		Highlights:             hls,
		Version:                d.version,
	}
}
