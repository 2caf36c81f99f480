package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func testExtractor(t *testing.T, maxSize int64) *Extractor {
	t.Helper()
	return New(Config{
		MaxSizeBytes: maxSize,
		Logger:       slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	})
}

func TestSupported(t *testing.T) {
	tests := []struct {
		filename string
		want     bool
	}{
		{"notes.txt", true},
		{"NOTES.TXT", true},
		{"readme.md", true},
		{"paper.pdf", true},
		{"cv.docx", true},
		{"old.doc", true},
		{"image.png", false},
		{"archive.zip", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := Supported(tt.filename); got != tt.want {
			t.Errorf("Supported(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}

func TestNew_DefaultMaxSize(t *testing.T) {
	e := New(Config{})
	if e.MaxSizeBytes() != 10<<20 {
		t.Errorf("expected default 10MB, got %d", e.MaxSizeBytes())
	}
}

func TestExtract_Text(t *testing.T) {
	e := testExtractor(t, 0)
	res, err := e.Extract(context.Background(), "a.txt", strings.NewReader("Hello\nWorld"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != "Hello\nWorld" {
		t.Errorf("content: got %q", res.Content)
	}
	if res.ContentType != "text/plain" {
		t.Errorf("content type: got %q", res.ContentType)
	}
	if res.Size != 11 || res.Degraded {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestExtract_TextWithUTF8BOM(t *testing.T) {
	e := testExtractor(t, 0)
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("café")...)
	res, err := e.Extract(context.Background(), "a.txt", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != "café" {
		t.Errorf("content: got %q", res.Content)
	}
}

func TestExtract_TextUTF16LE(t *testing.T) {
	e := testExtractor(t, 0)
	// BOM + "Hi" in UTF-16LE
	data := []byte{0xFF, 0xFE, 'H', 0x00, 'i', 0x00}
	res, err := e.Extract(context.Background(), "a.txt", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != "Hi" {
		t.Errorf("content: got %q", res.Content)
	}
}

func TestExtract_InvalidUTF8UsesPlaceholder(t *testing.T) {
	e := testExtractor(t, 0)
	res, err := e.Extract(context.Background(), "bad.txt", bytes.NewReader([]byte{0xC3, 0x28, 0xA0, 0xA1}))
	if err != nil {
		t.Fatalf("undecodable text should not fail the upload: %v", err)
	}
	if res.Content != PlaceholderUndecodable || !res.Degraded {
		t.Errorf("expected placeholder, got %+v", res)
	}
}

func TestExtract_Unsupported(t *testing.T) {
	e := testExtractor(t, 0)
	_, err := e.Extract(context.Background(), "photo.png", strings.NewReader("x"))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestExtract_TooLarge(t *testing.T) {
	e := testExtractor(t, 10)
	_, err := e.Extract(context.Background(), "big.txt", strings.NewReader("this is more than ten bytes"))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestExtract_ExactlyMaxSize(t *testing.T) {
	e := testExtractor(t, 5)
	res, err := e.Extract(context.Background(), "ok.txt", strings.NewReader("12345"))
	if err != nil {
		t.Fatalf("file at the limit should be accepted: %v", err)
	}
	if res.Content != "12345" {
		t.Errorf("content: got %q", res.Content)
	}
}

func TestExtract_LegacyDoc(t *testing.T) {
	e := testExtractor(t, 0)
	res, err := e.Extract(context.Background(), "old.doc", strings.NewReader("\xd0\xcf\x11\xe0"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != PlaceholderLegacyDoc || !res.Degraded {
		t.Errorf("expected legacy placeholder, got %+v", res)
	}
}

func TestExtract_BrokenPDFDegrades(t *testing.T) {
	e := testExtractor(t, 0)
	res, err := e.Extract(context.Background(), "broken.pdf", strings.NewReader("not a pdf at all"))
	if err != nil {
		t.Fatalf("broken pdf should not fail the upload: %v", err)
	}
	if !res.Degraded || !strings.HasPrefix(res.Content, "[Could not extract text from PDF") {
		t.Errorf("expected pdf placeholder, got %+v", res)
	}
	if res.ContentType != "application/pdf" {
		t.Errorf("content type: got %q", res.ContentType)
	}
}

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
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

func TestExtract_DOCX(t *testing.T) {
	e := testExtractor(t, 0)
	xmlBody := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Skills:</w:t></w:r><w:r><w:tab/><w:t>Go, Python</w:t></w:r></w:p>
    <w:p><w:r><w:t>Experience: 5 years</w:t></w:r></w:p>
  </w:body>
</w:document>`
	res, err := e.Extract(context.Background(), "cv.docx", bytes.NewReader(buildDOCX(t, xmlBody)))
	if err != nil {
		t.Fatal(err)
	}
	want := "Skills:\tGo, Python\nExperience: 5 years"
	if res.Content != want {
		t.Errorf("content: got %q, want %q", res.Content, want)
	}
	if res.Degraded {
		t.Error("docx should not be degraded")
	}
}

func TestExtract_DOCXNotAZip(t *testing.T) {
	e := testExtractor(t, 0)
	res, err := e.Extract(context.Background(), "cv.docx", strings.NewReader("plain text pretending"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Degraded || !strings.HasPrefix(res.Content, "[Could not extract text from Word document") {
		t.Errorf("expected word placeholder, got %+v", res)
	}
}

func TestExtract_DOCXExpandsTooFar(t *testing.T) {
	e := testExtractor(t, 4096)
	xmlBody := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>` +
		strings.Repeat("a", 200_000) +
		`</w:t></w:r></w:p></w:body></w:document>`
	data := buildDOCX(t, xmlBody)
	if len(data) > 4096 {
		t.Fatalf("test archive unexpectedly large: %d bytes", len(data))
	}
	res, err := e.Extract(context.Background(), "bomb.docx", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Degraded || !strings.Contains(res.Content, "expands beyond") {
		t.Errorf("expected degraded placeholder, got %.120q", res.Content)
	}
}

// buildPDF assembles a one-page PDF that shows each line in Helvetica with
// WinAnsi encoding. Lines are written as PDF literal strings.
func buildPDF(t *testing.T, lines ...string) []byte {
	t.Helper()
	var stream strings.Builder
	stream.WriteString("BT /F1 18 Tf 72 720 Td\n")
	for i, line := range lines {
		if i > 0 {
			stream.WriteString("0 -24 Td\n")
		}
		stream.WriteString("(" + line + ") Tj\n")
	}
	stream.WriteString("ET")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", stream.Len(), stream.String()),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtract_PDF(t *testing.T) {
	e := testExtractor(t, 0)
	data := buildPDF(t, "Hello PDF World", `caf\351 au lait`)
	res, err := e.Extract(context.Background(), "hello.pdf", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if res.Degraded {
		t.Fatalf("pdf should extract cleanly, got %q", res.Content)
	}
	if !strings.Contains(res.Content, "Hello PDF World") {
		t.Errorf("missing first line in %q", res.Content)
	}
	if !strings.Contains(res.Content, "café au lait") {
		t.Errorf("WinAnsi text not decoded in %q", res.Content)
	}
	if res.ContentType != "application/pdf" || res.Size != int64(len(data)) {
		t.Errorf("unexpected metadata: %+v", res)
	}
}

func TestReadable(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"prose", "Hello PDF World", true},
		{"accented", "café au lait", true},
		{"utf16 glyph codes", "\x00+\x00H\x00O\x00O\x00R", false},
		{"invalid utf8", "caf\xe9", false},
		{"private use", "\ue000\ue001\ue002 ok", false},
		{"only spaces", "  \n ", false},
		{"stray control char", "a long enough line of text\x01", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := readable(tt.text); got != tt.want {
				t.Errorf("readable(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
