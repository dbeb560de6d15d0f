package annotate

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRectNormalize(t *testing.T) {
	r := Rect{X1: 10, Y1: 20, X2: 0, Y2: 5}
	n := r.Normalize()
	assert.Equal(t, Rect{X1: 0, Y1: 5, X2: 10, Y2: 20}, n)
	// Original is untouched.
	assert.Equal(t, 10.0, r.X1)
}

func TestRectUnion(t *testing.T) {
	a := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
	b := Rect{X1: 20, Y1: 5, X2: 5, Y2: 30}
	assert.Equal(t, Rect{X1: 0, Y1: 0, X2: 20, Y2: 30}, a.Union(b))
}

func TestDocumentAddAndClearHighlights(t *testing.T) {
	doc := NewDocument("sample.pdf")
	doc.AddManualHighlight(0, []Rect{{X1: 10, Y1: 10, X2: 0, Y2: 0}}, "n1")
	doc.AddManualHighlight(1, []Rect{{X1: 5, Y1: 5, X2: 15, Y2: 15}}, "")

	hls := doc.Highlights()
	require.Len(t, hls, 2)
	assert.NotEmpty(t, hls[0].ID)
	assert.NotEqual(t, hls[0].ID, hls[1].ID)
	assert.Equal(t, Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}, hls[0].Rects[0])
	assert.Equal(t, ManualColor, hls[0].Color)
	assert.False(t, hls[0].AutoGenerated)

	doc.ClearHighlights()
	assert.Empty(t, doc.Highlights())
}

func TestDocumentSetProfileClampsDensity(t *testing.T) {
	doc := NewDocument("a.pdf")
	doc.SetProfile("profile", "goal", 0.9)
	_, _, d := doc.Profile()
	assert.Equal(t, 0.5, d)

	doc.SetProfile("profile", "goal", 0)
	_, _, d = doc.Profile()
	assert.Equal(t, 0.01, d)
}

func TestDocumentConcurrentReadDuringAppend(t *testing.T) {
	doc := NewDocument("a.pdf")
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			doc.AddHighlight(Highlight{PageIndex: i, AutoGenerated: true, Color: AutoColor})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = doc.Snapshot()
		}
	}()
	wg.Wait()
	assert.Len(t, doc.Highlights(), 200)
}

func TestDocumentVersionTracksChanges(t *testing.T) {
	d := NewDocument("a.pdf")
	assert.Equal(t, 1, d.Snapshot().Version)

	d.SetProfile("analyst", "goal", 0.2)
	assert.Equal(t, 2, d.Snapshot().Version)

	d.AddManualHighlight(0, []Rect{{X2: 1, Y2: 1}}, "")
	assert.Equal(t, 3, d.Snapshot().Version)

	d.ClearHighlights()
	assert.Equal(t, 4, d.Snapshot().Version)

	_ = d.Highlights()
	_, _, _ = d.Profile()
	assert.Equal(t, 4, d.Snapshot().Version)
}
