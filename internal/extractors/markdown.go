package extractors

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"

	"github.com/parchment-labs/stagechat/internal/core/domain"
)

// Markdown handles Markdown files using goldmark.
type Markdown struct{}

// Kind returns the document kind this extractor handles.
func (*Markdown) Kind() domain.DocumentKind { return domain.KindMarkdown }

// Extract parses the Markdown AST and collects the text content,
// separating block elements with blank lines.
func (*Markdown) Extract(data []byte, _ string) (string, error) {
	md := goldmark.New()
	doc := md.Parser().Parse(gmtext.NewReader(data))

	var buf strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(data))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.Heading, *ast.Paragraph, *ast.ListItem, *ast.Blockquote:
			if buf.Len() > 0 {
				buf.WriteString("\n\n")
			}
		case *ast.FencedCodeBlock:
			if buf.Len() > 0 {
				buf.WriteString("\n\n")
			}
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(data))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(buf.String()), nil
}
