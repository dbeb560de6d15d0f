package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/docmark/internal/layout"
)

// MarkdownParser handles Markdown files using goldmark. Each heading, block
// and list item becomes its own paragraph.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*layout.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	flow := layout.NewFlow(titleFor(filename))
	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		switch node := n.(type) {
		case *ast.Heading:
			flow.Paragraph(string(node.Text(src)))
		case *ast.List, *ast.Blockquote:
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				walk(c)
			}
		case *ast.ListItem:
			var parts []string
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				if _, nested := c.(*ast.List); nested {
					continue
				}
				if t := extractText(c, src); t != "" {
					parts = append(parts, t)
				}
			}
			flow.Paragraph(strings.Join(parts, " "))
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				if _, nested := c.(*ast.List); nested {
					walk(c)
				}
			}
		case *ast.ThematicBreak, *ast.HTMLBlock:
		default:
			flow.Paragraph(extractText(n, src))
		}
	}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		walk(n)
	}

	return flow.Document(), nil
}

// extractText gets the text content of a goldmark AST node. Raw block lines
// are used only for leaf blocks such as code.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && n.FirstChild() == nil {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else {
			buf.WriteString(extractText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
