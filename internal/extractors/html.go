package extractors

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"

	"github.com/parchment-labs/stagechat/internal/core/domain"
)

// HTML handles HTML files.
type HTML struct{}

// Kind returns the document kind this extractor handles.
func (*HTML) Kind() domain.DocumentKind { return domain.KindHTML }

// blockTags are elements that terminate a line of running text.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "blockquote": true, "pre": true,
}

// Extract parses the HTML and collects visible text, skipping script
// and style elements.
func (*HTML) Extract(data []byte, _ string) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" || n.Data == "head" {
				return
			}
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				if buf.Len() > 0 && !strings.HasSuffix(buf.String(), "\n") {
					buf.WriteByte(' ')
				}
				buf.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockTags[n.Data] {
			buf.WriteByte('\n')
		}
	}
	walk(doc)

	// Collapse runs of blank lines left by nested block elements.
	lines := strings.Split(buf.String(), "\n")
	var out []string
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n"), nil
}
