package extractors

import (
	"bytes"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/parchment-labs/stagechat/internal/core/domain"
)

// PDF handles PDF files.
type PDF struct{}

// Kind returns the document kind this extractor handles.
func (*PDF) Kind() domain.DocumentKind { return domain.KindPDF }

// Extract pulls plain text from every page, separating pages with a
// form feed. Pages that fail to decode are skipped rather than failing
// the whole document.
func (*PDF) Extract(data []byte, _ string) (string, error) {
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\f")
		}
		buf.WriteString(text)
	}
	return strings.TrimSpace(buf.String()), nil
}
