package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestTextPlainUTF8(t *testing.T) {
	got, err := Text([]byte("héllo wörld"), "txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "héllo wörld" {
		t.Errorf("got %q", got)
	}
}

func TestTextLatin1Fallback(t *testing.T) {
	// 0xE9 is é in Latin-1 but invalid as a standalone UTF-8 byte.
	got, err := Text([]byte{'c', 'a', 'f', 0xE9}, "md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "café" {
		t.Errorf("got %q, want %q", got, "café")
	}
}

func TestTextExtensionHandling(t *testing.T) {
	if _, err := Text([]byte("x"), "exe"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
	// Case and leading dot are normalized.
	if _, err := Text([]byte("x"), ".TXT"); err != nil {
		t.Errorf("expected .TXT to be accepted, got %v", err)
	}
}

func TestTextCorruptPDF(t *testing.T) {
	_, err := Text([]byte("definitely not a pdf"), "pdf")
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("expected ErrExtraction, got %v", err)
	}
}

func TestTextCorruptDOCX(t *testing.T) {
	_, err := Text([]byte("not a zip"), "docx")
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("expected ErrExtraction, got %v", err)
	}
}

func TestTextDOCXParagraphs(t *testing.T) {
	docXML := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t> </w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`

	got, err := Text(buildDOCX(t, docXML), "docx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "First paragraph.\n\nSecond paragraph."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTextDOCXMissingDocument(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("word/other.xml")
	_, _ = w.Write([]byte("<x/>"))
	_ = zw.Close()

	_, err := Text(buf.Bytes(), "doc")
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("expected ErrExtraction, got %v", err)
	}
}

func TestDocxParagraphsMalformedXML(t *testing.T) {
	_, err := docxParagraphs(strings.NewReader("<w:document><w:p>"))
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("expected ErrExtraction, got %v", err)
	}
}

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
