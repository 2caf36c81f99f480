package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"knowledgescout/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements domain.DocumentStore on an in-memory SQLite database.
// Contents live as long as the process; nothing is written to disk.
type SQLiteStore struct {
	db      *sql.DB
	maxDocs int
	logger  *slog.Logger
}

func NewSQLiteStore(maxDocuments int, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Each connection to ":memory:" is a separate database, so pin the pool to one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{db: db, maxDocs: maxDocuments, logger: logger}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	logger.Debug("sqlite document store ready", "max_documents", maxDocuments)
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		seq          INTEGER PRIMARY KEY AUTOINCREMENT,
		id           TEXT NOT NULL UNIQUE,
		filename     TEXT NOT NULL,
		content      TEXT NOT NULL,
		pages        TEXT NOT NULL,
		page_count   INTEGER NOT NULL DEFAULT 0,
		uploaded_at  DATETIME NOT NULL,
		is_private   INTEGER NOT NULL DEFAULT 0,
		content_type TEXT,
		size         INTEGER NOT NULL DEFAULT 0
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Name() string { return "sqlite" }

// Add checks the document limit and ID uniqueness and inserts doc in one
// transaction, so concurrent uploads cannot overshoot maxDocs.
func (s *SQLiteStore) Add(ctx context.Context, doc domain.Document) error {
	pages, err := json.Marshal(doc.Pages)
	if err != nil {
		return fmt.Errorf("encode pages: %w", err)
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	if s.maxDocs > 0 {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
			return err
		}
		if n >= s.maxDocs {
			return ErrFull
		}
	}

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM documents WHERE id = ?`, doc.ID).Scan(&exists)
	if err == nil {
		return fmt.Errorf("%w: %s", ErrDuplicateID, doc.ID)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, filename, content, pages, page_count, uploaded_at, is_private, content_type, size)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Filename, doc.Content, string(pages), len(doc.Pages), doc.UploadedAt, doc.IsPrivate, doc.ContentType, doc.Size,
	)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	s.logger.Debug("document stored", "backend", "sqlite", "id", doc.ID, "pages", len(doc.Pages))
	return nil
}

const selectDocument = `SELECT id, filename, content, pages, uploaded_at, is_private, content_type, size FROM documents`

func (s *SQLiteStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, selectDocument+` WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]domain.Document, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&total); err != nil {
		return nil, 0, err
	}
	start, end := window(total, limit, offset)
	if start == end {
		return []domain.Document{}, total, nil
	}

	rows, err := s.db.QueryContext(ctx,
		selectDocument+` ORDER BY seq ASC LIMIT ? OFFSET ?`, end-start, start,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	docs := make([]domain.Document, 0, end-start)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, *doc)
	}
	return docs, total, rows.Err()
}

func (s *SQLiteStore) All(ctx context.Context) ([]domain.Document, error) {
	docs, _, err := s.List(ctx, 0, 0)
	return docs, err
}

func (s *SQLiteStore) Stats(ctx context.Context) (domain.StoreStats, error) {
	var stats domain.StoreStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(page_count), 0), COALESCE(SUM(LENGTH(content)), 0) FROM documents`,
	).Scan(&stats.Documents, &stats.Pages, &stats.Characters)
	return stats, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var (
		doc         domain.Document
		pages       string
		contentType sql.NullString
	)
	if err := row.Scan(&doc.ID, &doc.Filename, &doc.Content, &pages,
		&doc.UploadedAt, &doc.IsPrivate, &contentType, &doc.Size); err != nil {
		return nil, err
	}
	doc.ContentType = contentType.String
	if err := json.Unmarshal([]byte(pages), &doc.Pages); err != nil {
		return nil, fmt.Errorf("decode pages for %s: %w", doc.ID, err)
	}
	return &doc, nil
}
