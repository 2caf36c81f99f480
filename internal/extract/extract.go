// Package extract turns uploaded files into plain text.
//
// Plain-text uploads are decoded as UTF-8 (a BOM selects UTF-8 or UTF-16).
// PDF and Word files go through format-specific extractors. Extraction
// problems never fail an upload: the document is stored with a bracketed
// placeholder explaining what went wrong.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
)

const defaultMaxSize = 10 << 20 // 10MB

var (
	// ErrUnsupportedType is returned for file extensions the service does not accept.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrTooLarge is returned when an upload exceeds the configured size.
	ErrTooLarge = errors.New("file too large")
)

// Placeholders stored in place of content that could not be extracted.
const (
	PlaceholderUndecodable = "[Unable to decode file content as UTF-8 text]"
	PlaceholderLegacyDoc   = "[Legacy .doc format is not supported for text extraction]"
)

var contentTypes = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// Supported reports whether filename has an accepted extension.
func Supported(filename string) bool {
	_, ok := contentTypes[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// ContentType returns the MIME type for filename's extension, or "" when unsupported.
func ContentType(filename string) string {
	return contentTypes[strings.ToLower(filepath.Ext(filename))]
}

// Config configures an Extractor.
type Config struct {
	MaxSizeBytes int64 // default: 10MB
	Logger       *slog.Logger
}

// Extractor reads uploads and extracts their text.
type Extractor struct {
	maxSizeBytes int64
	logger       *slog.Logger
}

func New(cfg Config) *Extractor {
	if cfg.MaxSizeBytes <= 0 {
		cfg.MaxSizeBytes = defaultMaxSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Extractor{
		maxSizeBytes: cfg.MaxSizeBytes,
		logger:       cfg.Logger,
	}
}

// MaxSizeBytes returns the upload size cap.
func (e *Extractor) MaxSizeBytes() int64 { return e.maxSizeBytes }

// Result is the outcome of extracting one upload.
type Result struct {
	Content     string
	ContentType string
	Size        int64
	Degraded    bool // Content is a placeholder, not the file's text
}

// Extract reads r fully (up to the size cap) and returns the text of filename.
func (e *Extractor) Extract(ctx context.Context, filename string, r io.Reader) (*Result, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType := ContentType(filename)
	if contentType == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}

	data, err := io.ReadAll(io.LimitReader(r, e.maxSizeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > e.maxSizeBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, e.maxSizeBytes)
	}

	res := &Result{ContentType: contentType, Size: int64(len(data))}

	switch ext {
	case ".txt", ".md":
		text, ok := decodeText(data)
		if !ok {
			e.logger.Warn("upload is not valid UTF-8, storing placeholder", "filename", filename)
			res.Content, res.Degraded = PlaceholderUndecodable, true
			return res, nil
		}
		res.Content = text
	case ".pdf":
		text, err := e.extractPDF(ctx, data)
		if err != nil {
			e.logger.Warn("pdf extraction failed", "filename", filename, "err", err)
			res.Content, res.Degraded = fmt.Sprintf("[Could not extract text from PDF: %v]", err), true
			return res, nil
		}
		res.Content = text
	case ".docx":
		text, err := extractDOCX(data, e.maxSizeBytes*docxExpansion)
		if err != nil {
			e.logger.Warn("docx extraction failed", "filename", filename, "err", err)
			res.Content, res.Degraded = fmt.Sprintf("[Could not extract text from Word document: %v]", err), true
			return res, nil
		}
		res.Content = text
	case ".doc":
		res.Content, res.Degraded = PlaceholderLegacyDoc, true
	}

	e.logger.Debug("document extracted", "filename", filename, "bytes", res.Size, "chars", len(res.Content))
	return res, nil
}
