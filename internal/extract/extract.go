// Package extract converts raw document bytes into plain text.
package extract

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrUnsupportedFormat means the declared file extension has no extractor.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrExtraction means the byte stream could not be parsed as its format.
	ErrExtraction = errors.New("text extraction failed")
)

// Text extracts plain text from content based on the file extension
// (without the dot, case-insensitive). Supported: pdf, doc, docx, txt, md.
func Text(content []byte, extension string) (string, error) {
	switch strings.ToLower(strings.TrimPrefix(extension, ".")) {
	case "pdf":
		return fromPDF(content)
	case "doc", "docx":
		return fromDOCX(content)
	case "txt", "md":
		return fromPlainText(content), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, extension)
	}
}

// fromPlainText decodes UTF-8, falling back to Latin-1 where the bytes are
// not valid UTF-8. Latin-1 maps every byte, so this never fails.
func fromPlainText(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}
	var b strings.Builder
	b.Grow(len(content))
	for _, c := range content {
		b.WriteRune(rune(c))
	}
	return b.String()
}
