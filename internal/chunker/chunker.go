package chunker

import (
	"math"
	"strings"
	"unicode"

	"github.com/dgallion1/docmark/internal/annotate"
	"github.com/dgallion1/docmark/internal/layout"
)

// Config controls chunking behavior.
type Config struct {
	MaxChars      int     // Character budget per chunk; a longer single sentence still forms one chunk.
	MergeDistance float64 // Max vertical distance (points) between line tops within one paragraph.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxChars:      1200,
		MergeDistance: 18,
	}
}

// TextChunk is a run of whole sentences from one paragraph, with the boxes
// of the lines it was built from in top-left-origin page space.
type TextChunk struct {
	ID        int             `json:"id"`
	PageIndex int             `json:"page_index"`
	Text      string          `json:"text"`
	Rects     []annotate.Rect `json:"rects"`
	CharCount int             `json:"char_count"`
}

// Words returns the whitespace word count of the chunk text.
func (c TextChunk) Words() int {
	return CountWords(c.Text)
}

// ExtractChunks walks every page in reading order and returns sentence-bounded
// chunks. IDs are 0-based and assigned in emission order.
func ExtractChunks(doc *layout.Document, cfg Config) []TextChunk {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 1200
	}
	if cfg.MergeDistance <= 0 {
		cfg.MergeDistance = 18
	}
	if doc == nil {
		return nil
	}

	b := &builder{cfg: cfg}
	for _, page := range doc.Pages {
		b.page(page)
	}
	return b.chunks
}

type paraLine struct {
	text  string
	rect  annotate.Rect
	start int // rune offsets into the joined paragraph text
	end   int
}

type span struct {
	start int
	end   int
}

type builder struct {
	cfg    Config
	chunks []TextChunk
}

func (b *builder) page(page layout.Page) {
	var buf []paraLine
	var prevTop float64
	havePrev := false

	flush := func() {
		if len(buf) > 0 {
			b.paragraph(page.Index, buf)
		}
		buf = nil
	}

	for _, line := range page.Lines {
		text := strings.Join(strings.Fields(line.Text), " ")
		if text == "" {
			flush()
			havePrev = false
			continue
		}
		rect := toTopLeft(line.Box, page.Height)
		if havePrev && math.Abs(rect.Y1-prevTop) > b.cfg.MergeDistance {
			flush()
		}
		buf = append(buf, paraLine{text: text, rect: rect})
		prevTop = rect.Y1
		havePrev = true
	}
	flush()
}

// paragraph joins the buffered lines, splits sentences and packs them into
// chunks under the character budget.
func (b *builder) paragraph(pageIndex int, lines []paraLine) {
	var sb strings.Builder
	offset := 0
	for i := range lines {
		if i > 0 {
			sb.WriteByte(' ')
			offset++
		}
		lines[i].start = offset
		sb.WriteString(lines[i].text)
		offset += len([]rune(lines[i].text))
		lines[i].end = offset
	}
	runes := []rune(sb.String())

	var cur []span
	curLen := 0
	for _, s := range splitSentences(runes) {
		n := s.end - s.start
		if len(cur) > 0 && curLen+1+n > b.cfg.MaxChars {
			b.emit(pageIndex, runes, lines, cur)
			cur = nil
			curLen = 0
		}
		if len(cur) > 0 {
			curLen++
		}
		cur = append(cur, s)
		curLen += n
	}
	if len(cur) > 0 {
		b.emit(pageIndex, runes, lines, cur)
	}
}

func (b *builder) emit(pageIndex int, runes []rune, lines []paraLine, sents []span) {
	start, end := sents[0].start, sents[len(sents)-1].end
	text := strings.TrimSpace(string(runes[start:end]))
	if text == "" {
		return
	}

	var rects []annotate.Rect
	seen := make(map[annotate.Rect]bool)
	for _, l := range lines {
		if l.start < end && l.end > start && !seen[l.rect] {
			seen[l.rect] = true
			rects = append(rects, l.rect)
		}
	}

	b.chunks = append(b.chunks, TextChunk{
		ID:        len(b.chunks),
		PageIndex: pageIndex,
		Text:      text,
		Rects:     rects,
		CharCount: len([]rune(text)),
	})
}

// toTopLeft converts a PDF-space box to top-left origin: y' = height - y.
func toTopLeft(r annotate.Rect, height float64) annotate.Rect {
	r = r.Normalize()
	return annotate.Rect{
		X1: r.X1,
		Y1: height - r.Y2,
		X2: r.X2,
		Y2: height - r.Y1,
	}
}

// splitSentences finds conservative sentence boundaries: '.', '!' or '?'
// followed by whitespace and an uppercase letter or digit. A period after a
// lone capital letter ("J. Smith", "U.S. Army") is treated as an initial.
// Text without a boundary is one sentence.
func splitSentences(rs []rune) []span {
	var spans []span
	start := 0
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		j := i + 1
		if j >= len(rs) || !unicode.IsSpace(rs[j]) {
			continue
		}
		for j < len(rs) && unicode.IsSpace(rs[j]) {
			j++
		}
		if j >= len(rs) || !(unicode.IsUpper(rs[j]) || unicode.IsDigit(rs[j])) {
			continue
		}
		if r == '.' && isInitial(rs, i) {
			continue
		}
		spans = append(spans, span{start: start, end: i + 1})
		start = j
	}

	end := len(rs)
	for end > start && unicode.IsSpace(rs[end-1]) {
		end--
	}
	if end > start {
		spans = append(spans, span{start: start, end: end})
	}
	return spans
}

func isInitial(rs []rune, dot int) bool {
	if dot < 1 || !unicode.IsUpper(rs[dot-1]) {
		return false
	}
	return dot < 2 || !unicode.IsLetter(rs[dot-2])
}
