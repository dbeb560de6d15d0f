package parser

import (
	"strings"
	"testing"
)

func TestHTMLParser_BlocksAndTitle(t *testing.T) {
	input := `<html><head><title>Quarterly Notes</title><style>p{}</style></head>
<body>
<nav><p>Home | About</p></nav>
<h1>Results</h1>
<p>Revenue grew<br>strongly.</p>
<div><p>Margins <b>expanded</b>.</p></div>
<ul><li>Data center</li><li>Client</li></ul>
<script>var x = 1;</script>
<footer><p>Copyright</p></footer>
</body></html>`
	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader(input), "notes.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Quarterly Notes" {
		t.Errorf("expected title from <title>, got %q", doc.Title)
	}
	want := []string{"Results", "Revenue grew strongly.", "Margins expanded.", "Data center", "Client"}
	got := paragraphs(doc)
	if len(got) != len(want) {
		t.Fatalf("expected %d paragraphs, got %d: %q", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("paragraph[%d]: expected %q, got %q", i, w, got[i])
		}
	}
}

func TestHTMLParser_FilenameTitle(t *testing.T) {
	doc, err := (&HTMLParser{}).Parse(strings.NewReader("<p>hi</p>"), "page.htm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "page" {
		t.Errorf("expected title %q, got %q", "page", doc.Title)
	}
}
