package extractors

import (
	"bytes"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/parchment-labs/stagechat/internal/core/domain"
)

// DOCX handles .docx files.
type DOCX struct{}

// Kind returns the document kind this extractor handles.
func (*DOCX) Kind() domain.DocumentKind { return domain.KindDOCX }

// Extract collects paragraph run text, separating paragraphs with
// blank lines.
func (*DOCX) Extract(data []byte, _ string) (string, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := paragraphText(para)
		if text == "" {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
