package chunker

import (
	"strings"
	"testing"

	"github.com/dgallion1/docmark/internal/annotate"
	"github.com/dgallion1/docmark/internal/layout"
)

// page builds a 792pt-high page whose lines sit on baselines stepping down by
// 14pt from y=700. An empty string becomes a paragraph break.
func page(index int, texts ...string) layout.Page {
	p := layout.Page{Index: index, Width: 612, Height: 792}
	y := 700.0
	for _, t := range texts {
		p.Lines = append(p.Lines, layout.Line{
			Text: t,
			Box:  annotate.Rect{X1: 72, Y1: y - 2, X2: 72 + float64(len(t))*6, Y2: y + 10},
		})
		y -= 14
	}
	return p
}

func TestExtractChunks_ParagraphsSplitOnBlankLine(t *testing.T) {
	doc := &layout.Document{Pages: []layout.Page{
		page(0, "Revenue grew in the quarter.", "", "Margins fell slightly."),
	}}

	chunks := ExtractChunks(doc, DefaultConfig())
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.ID != i {
			t.Errorf("chunk %d: expected ID %d, got %d", i, i, c.ID)
		}
		if c.PageIndex != 0 {
			t.Errorf("chunk %d: expected page 0, got %d", i, c.PageIndex)
		}
	}
	if chunks[1].Text != "Margins fell slightly." {
		t.Errorf("unexpected text %q", chunks[1].Text)
	}
}

func TestExtractChunks_VerticalGapStartsParagraph(t *testing.T) {
	p := layout.Page{Index: 0, Height: 792, Lines: []layout.Line{
		{Text: "Line one of a paragraph", Box: annotate.Rect{X1: 72, Y1: 698, X2: 300, Y2: 710}},
		{Text: "continues here.", Box: annotate.Rect{X1: 72, Y1: 684, X2: 200, Y2: 696}},
		{Text: "Far below heading text.", Box: annotate.Rect{X1: 72, Y1: 598, X2: 300, Y2: 610}},
	}}
	chunks := ExtractChunks(&layout.Document{Pages: []layout.Page{p}}, DefaultConfig())
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != "Line one of a paragraph continues here." {
		t.Errorf("expected merged lines, got %q", chunks[0].Text)
	}
	if len(chunks[0].Rects) != 2 {
		t.Errorf("expected 2 rects, got %d", len(chunks[0].Rects))
	}
}

func TestExtractChunks_TopLeftCoordinates(t *testing.T) {
	doc := &layout.Document{Pages: []layout.Page{page(0, "Hello world.")}}
	chunks := ExtractChunks(doc, DefaultConfig())
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	r := chunks[0].Rects[0]
	// Baseline 700: PDF box y 698..710 becomes top 82, bottom 94.
	if r.Y1 != 82 || r.Y2 != 94 {
		t.Errorf("expected y 82..94, got %v..%v", r.Y1, r.Y2)
	}
	if r.X1 >= r.X2 || r.Y1 >= r.Y2 {
		t.Errorf("rect not normalized: %+v", r)
	}
}

func TestExtractChunks_RespectsMaxChars(t *testing.T) {
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, "This sentence is about forty characters.")
	}
	doc := &layout.Document{Pages: []layout.Page{page(0, lines...)}}

	cfg := Config{MaxChars: 100, MergeDistance: 18}
	chunks := ExtractChunks(doc, cfg)
	if len(chunks) < 5 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	total := 0
	for _, c := range chunks {
		if c.CharCount > cfg.MaxChars {
			t.Errorf("chunk %d has %d chars, max %d", c.ID, c.CharCount, cfg.MaxChars)
		}
		if !strings.HasSuffix(c.Text, ".") {
			t.Errorf("chunk %d does not end on a sentence: %q", c.ID, c.Text)
		}
		total += strings.Count(c.Text, "forty")
	}
	if total != 20 {
		t.Errorf("expected every sentence exactly once, counted %d", total)
	}
}

func TestExtractChunks_LongSentenceStandsAlone(t *testing.T) {
	long := "Word " + strings.TrimSpace(strings.Repeat("word ", 59)) + "."
	doc := &layout.Document{Pages: []layout.Page{page(0, "Short one.", long, "Tail end.")}}

	chunks := ExtractChunks(doc, Config{MaxChars: 50, MergeDistance: 18})
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[1].Text != long {
		t.Errorf("expected oversized sentence alone, got %q", chunks[1].Text)
	}
	if chunks[1].CharCount <= 50 {
		t.Errorf("expected oversized chunk, got %d chars", chunks[1].CharCount)
	}
}

func TestExtractChunks_RectsFollowSentenceLines(t *testing.T) {
	doc := &layout.Document{Pages: []layout.Page{
		page(0, "First sentence here.", "Second sentence. Third", "sentence ends."),
	}}
	chunks := ExtractChunks(doc, Config{MaxChars: 30, MergeDistance: 18})
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	want := []int{1, 1, 2}
	for i, c := range chunks {
		if len(c.Rects) != want[i] {
			t.Errorf("chunk %d (%q): expected %d rects, got %d", i, c.Text, want[i], len(c.Rects))
		}
	}
	if chunks[2].Text != "Third sentence ends." {
		t.Errorf("unexpected text %q", chunks[2].Text)
	}
}

func TestExtractChunks_IDsSpanPages(t *testing.T) {
	doc := &layout.Document{Pages: []layout.Page{
		page(0, "Page one text."),
		page(1, "Page two text."),
	}}
	chunks := ExtractChunks(doc, DefaultConfig())
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[1].ID != 1 || chunks[1].PageIndex != 1 {
		t.Errorf("expected id 1 on page 1, got id %d page %d", chunks[1].ID, chunks[1].PageIndex)
	}
}

func TestExtractChunks_Empty(t *testing.T) {
	if got := ExtractChunks(nil, DefaultConfig()); len(got) != 0 {
		t.Errorf("expected no chunks for nil document, got %d", len(got))
	}
	doc := &layout.Document{Pages: []layout.Page{page(0, "", "   ", "")}}
	if got := ExtractChunks(doc, DefaultConfig()); len(got) != 0 {
		t.Errorf("expected no chunks for blank page, got %d", len(got))
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"One. Two! Three? Four", []string{"One.", "Two!", "Three?", "Four"}},
		{"Met J. Smith today. He agreed.", []string{"Met J. Smith today.", "He agreed."}},
		{"The U.S. Army moved. 3 units left.", []string{"The U.S. Army moved.", "3 units left."}},
		{"version 2.5 shipped. lower case continues", []string{"version 2.5 shipped. lower case continues"}},
		{"no terminal punctuation", []string{"no terminal punctuation"}},
	}
	for _, tt := range tests {
		rs := []rune(tt.text)
		spans := splitSentences(rs)
		var got []string
		for _, s := range spans {
			got = append(got, string(rs[s.start:s.end]))
		}
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("splitSentences(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestCountWords(t *testing.T) {
	if n := CountWords("  alpha beta\tgamma\n"); n != 3 {
		t.Errorf("expected 3 words, got %d", n)
	}
	if n := CountWords(""); n != 0 {
		t.Errorf("expected 0 words, got %d", n)
	}
}
