package domain

import (
	"context"
	"strings"
	"time"
)

// Document is an uploaded unit of text held by the document store.
type Document struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Content     string    `json:"content"`
	Pages       []string  `json:"pages"`
	UploadedAt  time.Time `json:"uploaded_at"`
	IsPrivate   bool      `json:"is_private"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
}

// DocumentSummary is the list-view form of a Document: the page texts are
// replaced by their count.
type DocumentSummary struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Content     string    `json:"content"`
	PageCount   int       `json:"page_count"`
	UploadedAt  time.Time `json:"uploaded_at"`
	IsPrivate   bool      `json:"is_private"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
}

// Summary returns the list-view form of d.
func (d Document) Summary() DocumentSummary {
	return DocumentSummary{
		ID:          d.ID,
		Filename:    d.Filename,
		Content:     d.Content,
		PageCount:   len(d.Pages),
		UploadedAt:  d.UploadedAt,
		IsPrivate:   d.IsPrivate,
		ContentType: d.ContentType,
		Size:        d.Size,
	}
}

// SplitPages splits content on line breaks. An empty content has no pages.
func SplitPages(content string) []string {
	if content == "" {
		return []string{}
	}
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.Split(content, "\n")
}

// Source is one supporting snippet returned with an answer.
type Source struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Snippet    string `json:"snippet"`
	Score      int    `json:"score"`
}

// Answer is the result of asking a question against the stored documents.
type Answer struct {
	Query   string   `json:"query"`
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// StoreStats reports aggregate figures about the stored documents.
type StoreStats struct {
	Documents  int `json:"documents"`
	Pages      int `json:"pages"`
	Characters int `json:"characters"`
}

// DocumentStore is the append-only store of uploaded documents.
// Implementations must return documents in upload order.
type DocumentStore interface {
	// Add appends a document. The caller assigns the ID.
	Add(ctx context.Context, doc Document) error

	// Get returns a document by ID or an error wrapping store.ErrNotFound.
	Get(ctx context.Context, id string) (*Document, error)

	// List returns up to limit documents starting at offset, plus the total count.
	// A limit <= 0 returns everything from offset on.
	List(ctx context.Context, limit, offset int) ([]Document, int, error)

	// All returns every stored document in upload order.
	All(ctx context.Context) ([]Document, error)

	// Stats returns aggregate counts.
	Stats(ctx context.Context) (StoreStats, error)

	// Name identifies the backend ("memory", "sqlite").
	Name() string

	Close() error
}
