package chi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tracksearch/internal/domain"
	"github.com/kailas-cloud/tracksearch/internal/domain/document"
	"github.com/kailas-cloud/tracksearch/internal/domain/search/query"
	"github.com/kailas-cloud/tracksearch/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/tracksearch/internal/usecase/health"
	"github.com/kailas-cloud/tracksearch/internal/usecase/indexer"
	searchuc "github.com/kailas-cloud/tracksearch/internal/usecase/search"
)

// Searcher answers search and stats requests.
type Searcher interface {
	SearchParsed(ctx context.Context, q string, limit *int) ([]result.Result, query.ParsedQuery, error)
	Stats(ctx context.Context) (searchuc.Stats, error)
}

// Syncer syncs one project on demand.
type Syncer interface {
	SyncProject(ctx context.Context, org, project string) (indexer.Stats, error)
}

// DocumentReader loads a single document.
type DocumentReader interface {
	GetDocument(ctx context.Context, t document.SourceType, sourceID string) (document.SearchDocument, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// SearchResponse is the body of GET /search.
type SearchResponse struct {
	Query   string            `json:"query"`
	Parsed  query.ParsedQuery `json:"parsed"`
	Results []result.Result   `json:"results"`
	Count   int               `json:"count"`
}

// Server serves the tracksearch HTTP API.
type Server struct {
	search        Searcher
	sync          Syncer
	docs          DocumentReader
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. sync may be nil when no document source is configured.
func NewServer(
	search Searcher,
	sync Syncer,
	docs DocumentReader,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		search:        search,
		sync:          sync,
		docs:          docs,
		health:        health,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Routes registers the API routes on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/search", s.Search)
	r.Get("/stats", s.Stats)
	r.Post("/sync/{organization}/{project}", s.SyncProject)
	r.Get("/documents/{source_type}/*", s.GetDocument)
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", metricsHandler())
}

// Search handles GET /search?q=<text>&limit=<n>.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	var limit *int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeInvalidQuery, "limit must be an integer")
			return
		}
		limit = &n
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, parsed, err := s.search.SearchParsed(ctx, q, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	setEmbeddingHeaders(w, usage)

	writeJSON(w, http.StatusOK, SearchResponse{
		Query:   q,
		Parsed:  parsed,
		Results: results,
		Count:   len(results),
	})
}

// Stats handles GET /stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.search.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// SyncProject handles POST /sync/{organization}/{project}.
func (s *Server) SyncProject(w http.ResponseWriter, r *http.Request) {
	if s.sync == nil {
		writeError(w, http.StatusNotImplemented, CodeNotConfigured, "no document source configured")
		return
	}

	org := chi.URLParam(r, "organization")
	project := chi.URLParam(r, "project")

	stats, err := s.sync.SyncProject(r.Context(), org, project)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetDocument handles GET /documents/{source_type}/{source_id}. PR source ids contain a slash.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	t, err := document.ParseSourceType(chi.URLParam(r, "source_type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidQuery, err.Error())
		return
	}
	id := chi.URLParam(r, "*")
	if id == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidQuery, "source id is required")
		return
	}

	doc, err := s.docs.GetDocument(r.Context(), t, id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc.WithoutEmbedding())
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Calls > 0 {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}
