package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"knowledgescout/internal/cache"
	"knowledgescout/internal/domain"
	"knowledgescout/internal/extract"
	"knowledgescout/internal/metrics"
	"knowledgescout/internal/store"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100

	unsupportedTypeMessage = "unsupported file type; allowed: .txt, .md, .pdf, .doc, .docx"
)

func writeJSON(rw http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(rw, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeRaw(rw, status, data)
}

func writeRaw(rw http.ResponseWriter, status int, data []byte) {
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.WriteHeader(status)
	rw.Write(data)
}

func writeError(rw http.ResponseWriter, status int, msg string) {
	writeJSON(rw, status, map[string]string{"error": msg})
}

func (s *Server) handleRoot(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]string{
		"message": serviceName + " API LIVE",
		"status":  "working",
	})
}

func (s *Server) handleHealth(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleMeta(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]string{"name": serviceName, "version": s.version})
}

func (s *Server) handleHackathon(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]any{
		"name":              serviceName,
		"problem_statement": s.problem,
		"team":              s.team,
	})
}

func (s *Server) handleNotFound(rw http.ResponseWriter, r *http.Request) {
	writeError(rw, http.StatusNotFound, "not found")
}

// allow applies the cooldown for endpoint and writes the 429 when it is exceeded.
func (s *Server) allow(rw http.ResponseWriter, r *http.Request, endpoint string) bool {
	key := endpoint
	if s.perClient {
		key = endpoint + ":" + clientIP(r)
	}
	ok, retryAfter := s.limiter.Allow(key)
	if ok {
		return true
	}

	secs := int(math.Ceil(retryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	rw.Header().Set("Retry-After", strconv.Itoa(secs))
	switch endpoint {
	case "ask":
		metrics.RateLimitedAsk.Inc()
	case "upload":
		metrics.RateLimitedUpload.Inc()
	}
	s.logger.Warn("rate limit exceeded", "endpoint", endpoint, "key", key, "retry_after", retryAfter)
	writeError(rw, http.StatusTooManyRequests, "rate limit exceeded")
	return false
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type uploadResponse struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Pages    int    `json:"pages"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

func (s *Server) handleUpload(rw http.ResponseWriter, r *http.Request) {
	if !s.allow(rw, r, "upload") {
		return
	}
	start := time.Now()

	r.Body = http.MaxBytesReader(rw, r.Body, s.engine.MaxUploadBytes()+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(rw, http.StatusRequestEntityTooLarge, fmt.Sprintf("file too large (max %d bytes)", s.engine.MaxUploadBytes()))
			return
		}
		writeError(rw, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	if !extract.Supported(header.Filename) {
		writeError(rw, http.StatusBadRequest, unsupportedTypeMessage)
		return
	}

	doc, err := s.engine.Upload(r.Context(), header.Filename, file)
	switch {
	case err == nil:
	case errors.Is(err, extract.ErrUnsupportedType):
		writeError(rw, http.StatusBadRequest, unsupportedTypeMessage)
		return
	case errors.Is(err, extract.ErrTooLarge):
		writeError(rw, http.StatusRequestEntityTooLarge, fmt.Sprintf("file too large (max %d bytes)", s.engine.MaxUploadBytes()))
		return
	case errors.Is(err, store.ErrFull):
		writeError(rw, http.StatusInsufficientStorage, "document store is full")
		return
	default:
		s.logger.Error("upload failed", "filename", header.Filename, "err", err)
		writeError(rw, http.StatusInternalServerError, "upload failed")
		return
	}

	metrics.DocumentsStored.Inc()
	metrics.UploadLatency.Observe(time.Since(start).Seconds())

	writeJSON(rw, http.StatusCreated, uploadResponse{
		ID:       doc.ID,
		Filename: doc.Filename,
		Pages:    len(doc.Pages),
		Status:   "success",
		Message:  fmt.Sprintf("Document %s uploaded successfully", doc.Filename),
	})
}

type listResponse struct {
	Documents  []domain.DocumentSummary `json:"documents"`
	Total      int                      `json:"total"`
	Limit      int                      `json:"limit"`
	Offset     int                      `json:"offset"`
	NextOffset *int                     `json:"next_offset"`
}

// intParam reads a non-negative integer query parameter.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

func (s *Server) handleListDocuments(rw http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultListLimit)
	if err != nil {
		writeError(rw, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		writeError(rw, http.StatusBadRequest, err.Error())
		return
	}
	if limit == 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	docs, total, err := s.engine.List(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list documents failed", "err", err)
		writeError(rw, http.StatusInternalServerError, "could not list documents")
		return
	}

	resp := listResponse{
		Documents: make([]domain.DocumentSummary, 0, len(docs)),
		Total:     total,
		Limit:     limit,
		Offset:    offset,
	}
	for _, d := range docs {
		resp.Documents = append(resp.Documents, d.Summary())
	}
	if next := offset + len(docs); next < total {
		resp.NextOffset = &next
	}
	writeJSON(rw, http.StatusOK, resp)
}

func (s *Server) handleGetDocument(rw http.ResponseWriter, r *http.Request) {
	doc, err := s.engine.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(rw, http.StatusNotFound, "document not found")
			return
		}
		s.logger.Error("get document failed", "id", r.PathValue("id"), "err", err)
		writeError(rw, http.StatusInternalServerError, "could not load document")
		return
	}
	writeJSON(rw, http.StatusOK, doc)
}

type askRequest struct {
	Question string `json:"question"`
	Query    string `json:"query"`
	K        int    `json:"k"`
}

func (q askRequest) text() string {
	if t := strings.TrimSpace(q.Question); t != "" {
		return t
	}
	return strings.TrimSpace(q.Query)
}

// parseAsk accepts a JSON body or form values (urlencoded or multipart).
func parseAsk(r *http.Request) (askRequest, error) {
	var req askRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" || mediaType == "" {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxAskBodySize))
		if err != nil {
			return req, errors.New("could not read request body")
		}
		if len(strings.TrimSpace(string(body))) == 0 {
			return req, nil
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return req, errors.New("invalid JSON body")
		}
		return req, nil
	}

	if err := r.ParseMultipartForm(maxAskBodySize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return req, errors.New("invalid form body")
	}
	req.Question = r.FormValue("question")
	req.Query = r.FormValue("query")
	if raw := r.FormValue("k"); raw != "" {
		k, err := strconv.Atoi(raw)
		if err != nil {
			return req, errors.New("k must be an integer")
		}
		req.K = k
	}
	return req, nil
}

func (s *Server) handleAsk(rw http.ResponseWriter, r *http.Request) {
	if !s.allow(rw, r, "ask") {
		return
	}

	req, err := parseAsk(r)
	if err != nil {
		writeError(rw, http.StatusBadRequest, err.Error())
		return
	}
	question := req.text()
	if question == "" {
		writeError(rw, http.StatusBadRequest, "question is required")
		return
	}
	metrics.QuestionsTotal.Inc()

	k := s.engine.ClampK(req.K)
	key := cache.Key(question, k)
	if payload, ok := s.cache.Get(key); ok {
		metrics.CacheHits.Inc()
		rw.Header().Set("X-Cache", "HIT")
		writeRaw(rw, http.StatusOK, payload)
		return
	}
	metrics.CacheMisses.Inc()

	start := time.Now()
	answer, err := s.engine.Ask(r.Context(), question, k)
	if err != nil {
		s.logger.Error("ask failed", "query", question, "err", err)
		writeError(rw, http.StatusInternalServerError, "could not answer question")
		return
	}
	metrics.AskLatency.Observe(time.Since(start).Seconds())

	payload, err := json.Marshal(answer)
	if err != nil {
		s.logger.Error("encode answer failed", "err", err)
		writeError(rw, http.StatusInternalServerError, "could not encode answer")
		return
	}
	s.cache.Set(key, payload)

	rw.Header().Set("X-Cache", "MISS")
	writeRaw(rw, http.StatusOK, payload)
}

func (s *Server) handleRebuild(rw http.ResponseWriter, r *http.Request) {
	n, err := s.engine.Rebuild(r.Context())
	if err != nil {
		s.logger.Error("index rebuild failed", "err", err)
		writeError(rw, http.StatusInternalServerError, "index rebuild failed")
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"status": "ok", "documents": n})
}

type statsResponse struct {
	domain.StoreStats
	CacheEntries int    `json:"cache_entries"`
	Backend      string `json:"backend"`
}

func (s *Server) handleStats(rw http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		s.logger.Error("index stats failed", "err", err)
		writeError(rw, http.StatusInternalServerError, "could not read stats")
		return
	}
	writeJSON(rw, http.StatusOK, statsResponse{
		StoreStats:   stats,
		CacheEntries: s.cache.Len(),
		Backend:      s.engine.Backend(),
	})
}

// handleMetrics refreshes the gauges that mirror store and cache state, then
// renders the collector.
func (s *Server) handleMetrics(rw http.ResponseWriter, r *http.Request) {
	if stats, err := s.engine.Stats(r.Context()); err == nil {
		metrics.DocumentsStored.Set(int64(stats.Documents))
	}
	metrics.CacheEntries.Set(int64(s.cache.Len()))
	metrics.Collector.Handler()(rw, r)
}
