package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// extractPDF validates data with pdfcpu, then decodes the text of every page
// through its fonts' encodings with ledongthuc/pdf.
func (e *Extractor) extractPDF(ctx context.Context, data []byte) (string, error) {
	pageCount, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	pages, err := pageTexts(ctx, data)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(strings.Join(pages, "\n"))
	if text == "" {
		return "", fmt.Errorf("no extractable text in %d page(s)", pageCount)
	}
	if !readable(text) {
		return "", errors.New("text uses an encoding that cannot be decoded")
	}
	return text, nil
}

// pageTexts returns the plain text of each page in order. The reader panics
// on some malformed files, so panics are turned into errors.
func pageTexts(ctx context.Context, data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("decode pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		for _, name := range p.Fonts() {
			f := p.Font(name)
			fonts[name] = &f
		}
		text, err := p.GetPlainText(fonts)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, strings.TrimSpace(text))
	}
	return pages, nil
}

// readable reports whether text looks like decoded prose rather than raw
// glyph codes: valid UTF-8 with under a tenth control, replacement or
// private-use runes among the non-space ones.
func readable(text string) bool {
	if !utf8.ValidString(text) {
		return false
	}
	var total, bad int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsControl(r) || r == utf8.RuneError || unicode.Is(unicode.Co, r) {
			bad++
		}
	}
	return total > 0 && bad*10 < total
}
