// Package httpserver provides the HTTP REST API of the research catalog.
package httpserver

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/helixir/research-catalog/internal/archive"
	"github.com/helixir/research-catalog/internal/catalog"
	"github.com/helixir/research-catalog/internal/csvimport"
	"github.com/helixir/research-catalog/internal/database"
	"github.com/helixir/research-catalog/internal/domain"
	"github.com/helixir/research-catalog/internal/events"
	"github.com/helixir/research-catalog/internal/observability"
	"github.com/helixir/research-catalog/internal/reconcile"
	"github.com/helixir/research-catalog/internal/repository"
)

// HealthChecker checks the store. *database.DB implements it.
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

// Importer runs a CSV import. *csvimport.Service implements it.
type Importer interface {
	Import(ctx context.Context, r io.Reader) (*csvimport.Result, error)
}

// ArticleCreator creates an article with its default rows.
// *repository.ArticleWriter implements it.
type ArticleCreator interface {
	CreateWithDefaults(ctx context.Context, draft *domain.ArticleDraft) (*domain.ArticleBundle, error)
}

// ArchiveUploader stores a compressed export. *archive.Archiver implements it.
type ArchiveUploader interface {
	Upload(ctx context.Context, exp archive.Exporter) (*archive.Archive, error)
}

// DriftChecker reports identifier drift. *reconcile.Reconciler implements it.
type DriftChecker interface {
	Check(ctx context.Context) (*reconcile.Report, error)
}

// Resources holds one repository per catalog table.
type Resources struct {
	Disciplines     repository.Resource[domain.Discipline]
	Institutions    repository.Resource[domain.Institution]
	Journals        repository.Resource[domain.Journal]
	FundingAgencies repository.Resource[domain.FundingAgency]
	Authors         repository.Resource[domain.Author]
	Articles        repository.Resource[domain.Article]
	Designs         repository.Resource[domain.ArticleDesign]
	Metrics         repository.Resource[domain.ArticleMetrics]
	Statistics      repository.Resource[domain.Statistic]
	ArticleAuthors  repository.Resource[domain.ArticleAuthor]
	ArticleFunding  repository.Resource[domain.ArticleFunding]
}

// StoreResources exposes the tables of store as Resources.
func StoreResources(store *repository.Store) Resources {
	return Resources{
		Disciplines:     store.Disciplines,
		Institutions:    store.Institutions,
		Journals:        store.Journals,
		FundingAgencies: store.FundingAgencies,
		Authors:         store.Authors,
		Articles:        store.Articles,
		Designs:         store.Designs,
		Metrics:         store.Metrics,
		Statistics:      store.Statistics,
		ArticleAuthors:  store.ArticleAuthors,
		ArticleFunding:  store.ArticleFunding,
	}
}

// Dependencies wires the server to the rest of the service.
// Archiver and Reconciler are optional; their endpoints answer 503 without them.
type Dependencies struct {
	Resources  Resources
	Health     HealthChecker
	Loader     catalog.Loader
	Importer   Importer
	Writer     ArticleCreator
	Archiver   ArchiveUploader
	Reconciler DriftChecker
	Publisher  events.Publisher
	Metrics    *observability.Metrics
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	deps       Dependencies
	cfg        Config
	validate   *validator.Validate
	importRate *ipRateLimiter
	logger     zerolog.Logger
	now        func() time.Time
}

// Config holds HTTP server configuration.
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// MaxUploadBytes caps the CSV import body.
	MaxUploadBytes int64
	// ImportsPerMinute limits import requests per client address; 0 disables the limit.
	ImportsPerMinute float64
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(cfg Config, deps Dependencies, logger zerolog.Logger) *Server {
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}

	s := &Server{
		deps:       deps,
		cfg:        cfg,
		validate:   newValidator(),
		importRate: newIPRateLimiter(cfg.ImportsPerMinute),
		logger:     logger.With().Str("component", "http-server").Logger(),
		now:        time.Now,
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(metricsMiddleware(s.deps.Metrics))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.healthHandler)

		res := s.deps.Resources
		r.Route("/disciplines", newResource(s, "disciplines", "Discipline", res.Disciplines).routes)
		r.Route("/institutions", newResource(s, "institutions", "Institution", res.Institutions).routes)
		r.Route("/journals", newResource(s, "journals", "Journal", res.Journals).routes)
		r.Route("/funding-agencies", newResource(s, "funding-agencies", "Funding agency", res.FundingAgencies).routes)
		r.Route("/authors", newResource(s, "authors", "Author", res.Authors).routes)
		designs := newResource(s, "article-design", "Article design", res.Designs, withKeys("article_id"))
		designs.blank = func() *domain.ArticleDesign { return domain.NewDefaultDesign("") }
		r.Route("/article-design", designs.routes)
		r.Route("/article-metrics", newResource(s, "article-metrics", "Article metrics", res.Metrics,
			withKeys("article_id")).routes)
		r.Route("/statistics", newResource(s, "statistics", "Statistics record", res.Statistics).routes)
		r.Route("/article-authors", newResource(s, "article-authors", "Link", res.ArticleAuthors,
			withKeys("article_id", "author_id"), readOnlyRows()).routes)
		r.Route("/article-funding", newResource(s, "article-funding", "Funding link", res.ArticleFunding,
			withKeys("article_id", "agency_id"), readOnlyRows()).routes)

		r.Route("/articles", func(r chi.Router) {
			r.Post("/with-defaults", s.createWithDefaults)
			r.Get("/{id}/composite", s.getComposite)
			newResource(s, "articles", "Article", res.Articles, withGet()).routes(r)
		})

		r.Get("/composite-articles", s.listComposites)
		r.Get("/dashboard", s.getDashboard)
		r.Get("/export", s.exportCSV)
		r.Post("/export/archive", s.archiveExport)
		r.Get("/reconcile", s.reconcileReport)

		r.Get("/schema", s.listSchemas)
		r.Get("/schema/{resource}", s.getSchema)

		r.With(s.importRate.middleware).Post("/import", s.importCSV)
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler reports store connectivity and the store's clock.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := s.deps.Health.Health(r.Context())
	if health.Status != "healthy" {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":    "error",
			"message":   "API running but database unavailable",
			"db_status": health.Status,
			"db_error":  health.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"message":   "API server is running",
		"db_status": "connected",
		"timestamp": health.ServerTime,
	})
}

// snapshot loads the catalog for one request.
func (s *Server) snapshot(ctx context.Context) (*catalog.Snapshot, error) {
	return catalog.Load(ctx, s.deps.Loader, s.now())
}
