// Package store holds the append-only document store backends.
package store

import (
	"errors"
	"fmt"
	"log/slog"

	"knowledgescout/internal/domain"
)

var (
	// ErrNotFound is returned when a document ID is unknown.
	ErrNotFound = errors.New("document not found")

	// ErrFull is returned when the store has reached its configured document limit.
	ErrFull = errors.New("document store is full")

	// ErrDuplicateID is returned when a document ID is already taken.
	ErrDuplicateID = errors.New("duplicate document id")
)

// Config selects and configures a store backend.
type Config struct {
	Backend      string // "memory" (default) | "sqlite"
	MaxDocuments int    // 0 = unlimited
	Logger       *slog.Logger
}

// New creates the store backend named by cfg.Backend.
func New(cfg Config) (domain.DocumentStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(cfg.MaxDocuments), nil
	case "sqlite":
		return NewSQLiteStore(cfg.MaxDocuments, cfg.Logger)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}

// window clamps limit/offset against total and returns the slice bounds.
func window(total, limit, offset int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return offset, end
}
