package parser

import (
	"bytes"
	"cmp"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/docmark/internal/annotate"
	"github.com/dgallion1/docmark/internal/layout"
)

// PDFParser handles PDF files. Glyphs are grouped into baseline lines with
// bounding boxes in PDF space so highlights can be drawn over them.
type PDFParser struct{}

func (p *PDFParser) Parse(r io.Reader, filename string) (*layout.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	doc := &layout.Document{Title: titleFor(filename)}
	n := reader.NumPage()
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		lp := layout.Page{Index: i - 1, Width: layout.PageWidth, Height: layout.PageHeight}
		if !page.V.IsNull() {
			lp.Width, lp.Height = pageSize(page)
			lp.Lines = groupLines(pageText(page))
		}
		doc.Pages = append(doc.Pages, lp)
	}
	return doc, nil
}

// pageText returns the glyphs of a page. Content decoding panics on some
// malformed streams; such pages come back empty.
func pageText(page pdflib.Page) (texts []pdflib.Text) {
	defer func() {
		if recover() != nil {
			texts = nil
		}
	}()
	return page.Content().Text
}

// pageSize reads the MediaBox, walking up the page tree when it is inherited.
func pageSize(page pdflib.Page) (float64, float64) {
	for v := page.V; !v.IsNull(); v = v.Key("Parent") {
		box := v.Key("MediaBox")
		if box.IsNull() || box.Len() < 4 {
			continue
		}
		w := box.Index(2).Float64() - box.Index(0).Float64()
		h := box.Index(3).Float64() - box.Index(1).Float64()
		if w > 0 && h > 0 {
			return w, h
		}
	}
	return layout.PageWidth, layout.PageHeight
}

type baselineLine struct {
	layout.Line
	baseline float64
}

// groupLines joins glyphs in content order into lines, then returns them in
// reading order: top to bottom, then left to right. A glyph whose baseline
// differs from the current line by more than half its font size starts a new
// line; a horizontal gap wider than a fifth of the font size inserts a space.
func groupLines(texts []pdflib.Text) []layout.Line {
	var found []baselineLine
	var (
		buf      strings.Builder
		box      annotate.Rect
		baseline float64
		lastEnd  float64
		open     bool
	)
	flush := func() {
		if open {
			if t := strings.Join(strings.Fields(buf.String()), " "); t != "" {
				found = append(found, baselineLine{Line: layout.Line{Text: t, Box: box}, baseline: baseline})
			}
		}
		buf.Reset()
		open = false
	}

	for _, g := range texts {
		if g.S == "" {
			continue
		}
		fs := g.FontSize
		if fs <= 0 {
			fs = layout.FontSize
		}
		if open && (math.Abs(g.Y-baseline) > fs/2 || g.X < lastEnd-2*fs) {
			flush()
		}
		glyph := annotate.Rect{
			X1: g.X,
			Y1: g.Y - 0.25*fs,
			X2: g.X + g.W,
			Y2: g.Y + 0.85*fs,
		}
		if !open {
			open = true
			baseline = g.Y
			box = glyph
		} else {
			if g.X-lastEnd > fs/5 && !strings.HasSuffix(buf.String(), " ") {
				buf.WriteByte(' ')
			}
			box = box.Union(glyph)
		}
		buf.WriteString(g.S)
		lastEnd = g.X + g.W
	}
	flush()
	if len(found) == 0 {
		return nil
	}

	slices.SortStableFunc(found, func(a, b baselineLine) int {
		if c := cmp.Compare(b.baseline, a.baseline); c != 0 {
			return c
		}
		return cmp.Compare(a.Box.X1, b.Box.X1)
	})
	lines := make([]layout.Line, len(found))
	for i, l := range found {
		lines[i] = l.Line
	}
	return lines
}
