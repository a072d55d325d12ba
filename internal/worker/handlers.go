package worker

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	gormdb "github.com/thebtf/readlens/internal/db/gorm"
	"github.com/thebtf/readlens/internal/insights"
	"github.com/thebtf/readlens/pkg/models"
)

// Handler configuration constants
const (
	// DefaultDocumentsLimit is the default number of documents to return.
	DefaultDocumentsLimit = 20

	// MaxDocumentsLimit caps document listings.
	MaxDocumentsLimit = 200

	// DefaultDetectionsLimit is the default number of detections to return.
	DefaultDetectionsLimit = 50

	// DefaultSimilarLimit is the default number of nearest neighbours to
	// return for a similarity lookup.
	DefaultSimilarLimit = 10
)

// writeJSON writes a JSON response with proper error handling.
func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeJSONStatus writes a JSON response with a non-200 status code. The
// Content-Type header must be set before WriteHeader or it is dropped.
func writeJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// parseUUIDParam parses a UUID path parameter, writing a 400 on failure.
func parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		http.Error(w, "invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// handleHealth handles health check requests. Returns 200 OK immediately
// (even during init) so clients can connect quickly. Use /api/ready for the
// full readiness check.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "starting"
	if s.ready.Load() {
		status = "ready"
	} else if err := s.GetInitError(); err != nil {
		status = "error"
	}
	writeJSON(w, map[string]interface{}{
		"status":  status,
		"version": s.version,
		"uptime":  time.Since(s.startTime).String(),
	})
}

// handleVersion returns the worker version for version checking.
func (s *Service) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"version": s.version,
	})
}

// handleReady handles readiness check requests. Returns 200 only when fully
// initialized, 503 otherwise.
func (s *Service) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		if err := s.GetInitError(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		http.Error(w, "service initializing", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]string{"status": "ready"})
}

// requireReady is middleware that returns 503 if service isn't ready.
func (s *Service) requireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			if err := s.GetInitError(); err != nil {
				http.Error(w, "service initialization failed: "+err.Error(), http.StatusInternalServerError)
				return
			}
			http.Error(w, "service initializing", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AnalyzeSnippetRequest is the snippet analysis payload.
type AnalyzeSnippetRequest struct {
	Text string `json:"text"`
}

// handleAnalyzeSnippet runs the heuristic snippet analysis. Pure
// computation, no database access.
// POST /api/snippets/analyze
func (s *Service) handleAnalyzeSnippet(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeSnippetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	found := s.analyzer.Analyze(req.Text)
	writeJSON(w, map[string]interface{}{
		"insights": found,
		"count":    len(found),
	})
}

// handleIngestDocument stores a processed document and scores it against
// the user's history.
// POST /api/documents
func (s *Service) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	var doc models.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if doc.UserID == uuid.Nil {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	if doc.Title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}
	if doc.WordCount < 0 || doc.ClaimCount < 0 || doc.EmotionalPatternCount < 0 {
		http.Error(w, "counts must not be negative", http.StatusBadRequest)
		return
	}
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	created, err := s.documentStore.CreateDocument(r.Context(), &doc)
	if err != nil {
		log.Error().Err(err).Msg("Failed to store document")
		http.Error(w, "failed to store document", http.StatusInternalServerError)
		return
	}

	result, err := s.engine.ScoreDocument(r.Context(), created)
	if err != nil {
		log.Error().Err(err).Str("document", created.ID.String()).Msg("Failed to score document")
		http.Error(w, "failed to score document", http.StatusInternalServerError)
		return
	}

	writeJSONStatus(w, http.StatusCreated, map[string]interface{}{
		"document":  created,
		"score":     result.Score,
		"detection": result.Detection,
	})
}

// handleGetDocument returns a document with its score and detection.
// GET /api/documents/{id}
func (s *Service) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	doc, err := s.documentStore.GetDocument(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to load document", http.StatusInternalServerError)
		return
	}
	if doc == nil {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}

	score, err := s.scoreStore.GetScore(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to load score", http.StatusInternalServerError)
		return
	}

	detection, err := s.scoreStore.GetDetection(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to load detection", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"document":  doc,
		"score":     score,
		"detection": detection,
	})
}

// handleGetScore returns the score for a document.
// GET /api/documents/{id}/score
func (s *Service) handleGetScore(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	score, err := s.scoreStore.GetScore(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to load score", http.StatusInternalServerError)
		return
	}
	if score == nil {
		http.Error(w, "score not found", http.StatusNotFound)
		return
	}
	writeJSON(w, score)
}

// handleRescoreDocument recomputes the score for one document against the
// user's current history.
// POST /api/documents/{id}/rescore
func (s *Service) handleRescoreDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	doc, err := s.documentStore.GetDocument(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to load document", http.StatusInternalServerError)
		return
	}
	if doc == nil {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}

	result, err := s.engine.ScoreDocument(r.Context(), doc)
	if err != nil {
		log.Error().Err(err).Str("document", id.String()).Msg("Failed to rescore document")
		http.Error(w, "failed to rescore document", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"score":     result.Score,
		"detection": result.Detection,
	})
}

// handleSimilarDocuments returns the documents nearest to the given one by
// embedding cosine distance, within the same user's history.
// GET /api/documents/{id}/similar
func (s *Service) handleSimilarDocuments(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	doc, err := s.documentStore.GetDocument(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to load document", http.StatusInternalServerError)
		return
	}
	if doc == nil {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}

	similar := []gormdb.SimilarDocument{}
	if len(doc.Embedding) > 0 {
		limit := gormdb.ParseLimitParam(r, DefaultSimilarLimit, MaxDocumentsLimit)
		similar, err = s.documentStore.SimilarDocuments(r.Context(), doc.UserID, doc.ID, doc.Embedding, limit)
		if err != nil {
			http.Error(w, "failed to find similar documents", http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, map[string]interface{}{
		"similar": similar,
		"count":   len(similar),
	})
}

// handleRecentDocuments lists a user's newest documents with scores.
// GET /api/users/{userID}/documents
func (s *Service) handleRecentDocuments(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUUIDParam(w, r, "userID")
	if !ok {
		return
	}

	limit := gormdb.ParseLimitParam(r, DefaultDocumentsLimit, MaxDocumentsLimit)
	offset := gormdb.ParseOffsetParam(r)
	summaries, err := s.documentStore.RecentDocumentSummaries(r.Context(), userID, limit, offset)
	if err != nil {
		http.Error(w, "failed to list documents", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"documents": summaries,
		"count":     len(summaries),
	})
}

// handleListDetections lists a user's redundancy detections, newest first.
// GET /api/users/{userID}/detections
func (s *Service) handleListDetections(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUUIDParam(w, r, "userID")
	if !ok {
		return
	}

	limit := gormdb.ParseLimitParam(r, DefaultDetectionsLimit, MaxDocumentsLimit)
	offset := gormdb.ParseOffsetParam(r)
	detections, err := s.scoreStore.ListUserDetections(r.Context(), userID, limit, offset)
	if err != nil {
		http.Error(w, "failed to list detections", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"detections": detections,
		"count":      len(detections),
	})
}

// handleDashboardStats returns a user's all-time reading totals.
// GET /api/users/{userID}/stats
func (s *Service) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUUIDParam(w, r, "userID")
	if !ok {
		return
	}

	ctx, done := s.store.WithTimeout(r.Context(), gormdb.DefaultQueryTimeout, "dashboard_stats")
	defer done()

	stats, err := s.documentStore.GetDashboardStats(ctx, userID)
	if err != nil {
		http.Error(w, "failed to load stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, stats)
}

// handleRescoreUser recomputes all of one user's scores in timestamp
// order. Per-document failures are skipped, not fatal.
// POST /api/users/{userID}/rescore
func (s *Service) handleRescoreUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUUIDParam(w, r, "userID")
	if !ok {
		return
	}

	ctx, done := s.store.WithTimeout(r.Context(), gormdb.SlowQueryTimeout, "rescore_user")
	defer done()

	docs, err := s.documentStore.ListUserDocuments(ctx, userID)
	if err != nil {
		http.Error(w, "failed to list documents", http.StatusInternalServerError)
		return
	}

	scored, err := s.engine.RescoreUser(ctx, docs)
	if err != nil {
		log.Error().Err(err).Str("user", userID.String()).Msg("User rescore aborted")
		http.Error(w, "rescore aborted", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"scored": scored,
		"total":  len(docs),
	})
}

// handleGetInsight returns the weekly insight for the week given by the
// "week" query parameter (YYYY-MM-DD, a Monday). Defaults to the last full
// week.
// GET /api/users/{userID}/insights
func (s *Service) handleGetInsight(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUUIDParam(w, r, "userID")
	if !ok {
		return
	}

	weekStart := insights.PreviousWeekStart(time.Now().UTC())
	if week := r.URL.Query().Get("week"); week != "" {
		parsed, err := time.Parse("2006-01-02", week)
		if err != nil {
			http.Error(w, "week must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		weekStart = parsed.UTC()
	}

	insight, err := s.scoreStore.GetInsight(r.Context(), userID, weekStart)
	if err != nil {
		http.Error(w, "failed to load insight", http.StatusInternalServerError)
		return
	}
	if insight == nil {
		http.Error(w, "insight not found", http.StatusNotFound)
		return
	}
	writeJSON(w, insight)
}

// handleLatestInsight returns the user's most recent weekly insight.
// GET /api/users/{userID}/insights/latest
func (s *Service) handleLatestInsight(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUUIDParam(w, r, "userID")
	if !ok {
		return
	}

	insight, err := s.scoreStore.LatestInsight(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to load insight", http.StatusInternalServerError)
		return
	}
	if insight == nil {
		http.Error(w, "no insights yet", http.StatusNotFound)
		return
	}
	writeJSON(w, insight)
}

// GenerateInsightRequest optionally pins the week to generate.
type GenerateInsightRequest struct {
	WeekStart string `json:"week_start,omitempty"` // YYYY-MM-DD
}

// handleGenerateInsight recomputes a weekly insight on demand, outside the
// cron schedule. Idempotent; the stored record is overwritten.
// POST /api/users/{userID}/insights/generate
func (s *Service) handleGenerateInsight(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUUIDParam(w, r, "userID")
	if !ok {
		return
	}

	weekStart := insights.PreviousWeekStart(time.Now().UTC())
	var req GenerateInsightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.WeekStart != "" {
		parsed, err := time.Parse("2006-01-02", req.WeekStart)
		if err != nil {
			http.Error(w, "week_start must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		weekStart = parsed.UTC()
	}

	insight, err := s.insightService.GenerateWeekly(r.Context(), userID, weekStart)
	if err != nil {
		log.Error().Err(err).Str("user", userID.String()).Msg("Failed to generate insight")
		http.Error(w, "failed to generate insight", http.StatusInternalServerError)
		return
	}
	writeJSON(w, insight)
}

// handleReprocessAll rescores every user's documents with a bounded worker
// pool. Rate limited: a full reprocess rereads the whole corpus.
// POST /api/admin/reprocess
func (s *Service) handleReprocessAll(w http.ResponseWriter, r *http.Request) {
	if !s.reprocessLimiter.CanExecute() {
		w.Header().Set("Retry-After", strconv.FormatInt(s.reprocessLimiter.CooldownRemaining(), 10))
		http.Error(w, "reprocess cooldown active", http.StatusTooManyRequests)
		return
	}

	ctx, done := s.store.WithTimeout(r.Context(), gormdb.SlowQueryTimeout, "reprocess_list")
	defer done()

	byUser, err := s.documentStore.AllDocumentsByUser(ctx)
	if err != nil {
		http.Error(w, "failed to list documents", http.StatusInternalServerError)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.engine.RescoreAll(s.ctx, byUser, ReprocessMaxParallel); err != nil {
			log.Error().Err(err).Msg("Full reprocess failed")
			return
		}
		log.Info().Int("users", len(byUser)).Msg("Full reprocess complete")
	}()

	writeJSONStatus(w, http.StatusAccepted, map[string]interface{}{
		"status": "started",
		"users":  len(byUser),
	})
}

// handleDBHealth returns database pool health.
// GET /api/admin/db/health
func (s *Service) handleDBHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.store.HealthCheck(r.Context()))
}
