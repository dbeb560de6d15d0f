package layout

import (
	"strings"

	"github.com/dgallion1/docmark/internal/annotate"
)

// Document is the page-oriented text of a source file.
type Document struct {
	Title string
	Pages []Page
}

// Page holds text lines in reading order.
type Page struct {
	Index  int // 0-based
	Width  float64
	Height float64
	Lines  []Line
}

// Line is one text line. Box uses PDF space: origin bottom-left, y grows up.
// A line whose text is blank marks a paragraph break.
type Line struct {
	Text string
	Box  annotate.Rect
}

// Synthetic grid used for reflowable sources (US Letter, 12pt text).
const (
	PageWidth   = 612.0
	PageHeight  = 792.0
	Margin      = 72.0
	Leading     = 14.0
	FontSize    = 12.0
	WrapColumns = 90
	charWidth   = 6.0
)

// Flow lays paragraphs of plain text onto synthetic pages so that formats
// without geometry (text, markdown, html, docx) can be chunked like a PDF.
type Flow struct {
	title string
	pages []Page
	y     float64 // baseline of the next line, PDF space
}

func NewFlow(title string) *Flow {
	return &Flow{title: title}
}

// Paragraph appends text as word-wrapped lines followed by a blank line.
func (f *Flow) Paragraph(text string) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return
	}
	for _, line := range wrap(words, WrapColumns) {
		f.line(line)
	}
	f.line("")
}

func (f *Flow) line(text string) {
	if len(f.pages) == 0 || f.y-Leading < Margin {
		f.pages = append(f.pages, Page{
			Index:  len(f.pages),
			Width:  PageWidth,
			Height: PageHeight,
		})
		f.y = PageHeight - Margin
		if text == "" {
			return
		}
	}
	p := &f.pages[len(f.pages)-1]
	width := float64(len([]rune(text))) * charWidth
	p.Lines = append(p.Lines, Line{
		Text: text,
		Box: annotate.Rect{
			X1: Margin,
			Y1: f.y - (Leading - FontSize),
			X2: Margin + width,
			Y2: f.y + FontSize - (Leading - FontSize),
		},
	})
	f.y -= Leading
}

// Document returns the laid-out pages.
func (f *Flow) Document() *Document {
	return &Document{Title: f.title, Pages: f.pages}
}

func wrap(words []string, columns int) []string {
	var lines []string
	var cur strings.Builder
	for _, w := range words {
		if cur.Len() > 0 && len([]rune(cur.String()))+1+len([]rune(w)) > columns {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
