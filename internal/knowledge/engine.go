// Package knowledge answers questions by keyword matching over uploaded documents.
package knowledge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"knowledgescout/internal/cache"
	"knowledgescout/internal/domain"
	"knowledgescout/internal/extract"
	"knowledgescout/internal/metrics"
)

const (
	defaultK = 3
	maxK     = 10
)

// Engine manages the document set: uploading, listing, and answering questions.
type Engine struct {
	store     domain.DocumentStore
	extractor *extract.Extractor
	cache     *cache.ResponseCache
	defaultK  int
	maxK      int
	now       func() time.Time
	logger    *slog.Logger
}

type EngineConfig struct {
	Store     domain.DocumentStore
	Extractor *extract.Extractor
	Cache     *cache.ResponseCache // purged whenever the document set changes; may be nil
	DefaultK  int                  // sources per answer when the caller sends none (default: 3)
	MaxK      int                  // upper bound on sources per answer (default: 10)
	Now       func() time.Time
	Logger    *slog.Logger
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.MaxK <= 0 {
		cfg.MaxK = maxK
	}
	if cfg.DefaultK <= 0 {
		cfg.DefaultK = defaultK
	}
	if cfg.DefaultK > cfg.MaxK {
		cfg.DefaultK = cfg.MaxK
	}
	if cfg.Extractor == nil {
		cfg.Extractor = extract.New(extract.Config{Logger: cfg.Logger})
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		store:     cfg.Store,
		extractor: cfg.Extractor,
		cache:     cfg.Cache,
		defaultK:  cfg.DefaultK,
		maxK:      cfg.MaxK,
		now:       cfg.Now,
		logger:    cfg.Logger,
	}
}

// Backend names the store backend in use.
func (e *Engine) Backend() string { return e.store.Name() }

// MaxUploadBytes returns the upload size cap enforced by the extractor.
func (e *Engine) MaxUploadBytes() int64 { return e.extractor.MaxSizeBytes() }

// ClampK maps a requested source count into [1, maxK]; k <= 0 selects the default.
func (e *Engine) ClampK(k int) int {
	if k <= 0 {
		return e.defaultK
	}
	if k > e.maxK {
		return e.maxK
	}
	return k
}

// Upload extracts the text of an uploaded file and stores it as a new document.
func (e *Engine) Upload(ctx context.Context, filename string, r io.Reader) (*domain.Document, error) {
	res, err := e.extractor.Extract(ctx, filename, r)
	if err != nil {
		return nil, err
	}

	doc := domain.Document{
		ID:          uuid.NewString(),
		Filename:    filename,
		Content:     res.Content,
		Pages:       domain.SplitPages(res.Content),
		UploadedAt:  e.now().UTC(),
		ContentType: res.ContentType,
		Size:        res.Size,
	}
	if err := e.store.Add(ctx, doc); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}
	e.purgeCache()

	metrics.UploadsTotal.Inc()
	if res.Degraded {
		metrics.UploadsDegraded.Inc()
	}
	e.logger.Info("document uploaded",
		"id", doc.ID, "filename", filename, "pages", len(doc.Pages), "bytes", res.Size, "degraded", res.Degraded)

	return &doc, nil
}

// Ask answers question from the stored documents with up to k sources.
func (e *Engine) Ask(ctx context.Context, question string, k int) (*domain.Answer, error) {
	k = e.ClampK(k)

	docs, err := e.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	answer := &domain.Answer{Query: question, Sources: []domain.Source{}}
	if len(docs) == 0 {
		answer.Answer = NoDocumentsAnswer
		return answer, nil
	}

	matches := MatchDocuments(question, docs)
	if len(matches) == 0 {
		answer.Answer = Fallback(question)
		e.logger.Debug("no documents matched", "query", question)
		return answer, nil
	}

	answer.Answer = Synthesize(question, matches[0])
	answer.Sources = Sources(matches, k)
	e.logger.Debug("question answered",
		"query", question, "matches", len(matches), "top_score", matches[0].Score)
	return answer, nil
}

// List returns a page of documents and the total count.
func (e *Engine) List(ctx context.Context, limit, offset int) ([]domain.Document, int, error) {
	return e.store.List(ctx, limit, offset)
}

// Get returns one document by ID.
func (e *Engine) Get(ctx context.Context, id string) (*domain.Document, error) {
	return e.store.Get(ctx, id)
}

// Stats returns aggregate counts over the stored documents.
func (e *Engine) Stats(ctx context.Context) (domain.StoreStats, error) {
	return e.store.Stats(ctx)
}

// Rebuild drops cached answers so the next questions are matched afresh.
// Matching reads the store directly, so there is no index to recompute.
func (e *Engine) Rebuild(ctx context.Context) (int, error) {
	e.purgeCache()
	stats, err := e.store.Stats(ctx)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	e.logger.Info("index rebuilt", "documents", stats.Documents)
	return stats.Documents, nil
}

func (e *Engine) purgeCache() {
	if e.cache != nil {
		e.cache.Purge()
	}
}
