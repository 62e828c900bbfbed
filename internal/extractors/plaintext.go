package extractors

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/parchment-labs/stagechat/internal/core/domain"
)

// PlainText handles text files: the bytes are the text.
type PlainText struct{}

// Kind returns the document kind this extractor handles.
func (*PlainText) Kind() domain.DocumentKind { return domain.KindPlainText }

// Extract validates the bytes are UTF-8 and normalises line endings.
func (*PlainText) Extract(data []byte, name string) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s: not valid UTF-8", name)
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.TrimSpace(text), nil
}
