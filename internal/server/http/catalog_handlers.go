package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/helixir/research-catalog/internal/catalog"
	"github.com/helixir/research-catalog/internal/domain"
	"github.com/helixir/research-catalog/internal/events"
	"github.com/helixir/research-catalog/internal/observability"
)

// articleDraftRequest is the body of POST /api/articles/with-defaults: the
// article columns plus the display names resolved on create.
type articleDraftRequest struct {
	ID               string     `json:"id" validate:"required,max=255"`
	Title            string     `json:"title" validate:"required"`
	PublicationYear  *int       `json:"publication_year" validate:"omitempty,gte=1000,lte=9999"`
	DOI              *string    `json:"doi"`
	URL              *string    `json:"url"`
	Abstract         *string    `json:"abstract"`
	JournalID        *string    `json:"journal_id"`
	DisciplineID     *string    `json:"discipline_id"`
	DateAdded        *time.Time `json:"date_added"`
	JournalName      string     `json:"journal_name" validate:"max=255"`
	Discipline       string     `json:"discipline"`
	CustomDiscipline string     `json:"custom_discipline"`
	AuthorNames      []string   `json:"author_names" validate:"dive,max=255"`
}

func (req *articleDraftRequest) toDraft() *domain.ArticleDraft {
	discipline := req.Discipline
	if discipline == "" {
		discipline = domain.Deref(req.DisciplineID)
	}
	return &domain.ArticleDraft{
		Article: domain.Article{
			ID:              strings.TrimSpace(req.ID),
			Title:           strings.TrimSpace(req.Title),
			PublicationYear: req.PublicationYear,
			DOI:             blankToNil(req.DOI),
			URL:             blankToNil(req.URL),
			Abstract:        blankToNil(req.Abstract),
			JournalID:       blankToNil(req.JournalID),
			DateAdded:       req.DateAdded,
		},
		JournalName:      strings.TrimSpace(req.JournalName),
		Discipline:       discipline,
		CustomDiscipline: req.CustomDiscipline,
		AuthorNames:      req.AuthorNames,
	}
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// createWithDefaults creates an article along with its design, metrics,
// statistic and author rows in one transaction.
func (s *Server) createWithDefaults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx, s.logger)

	var req articleDraftRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&req); err != nil {
		writeDomainError(w, logger, decodeError(err))
		return
	}
	if err := s.validateStruct(&req); err != nil {
		writeDomainError(w, logger, err)
		return
	}

	bundle, err := s.deps.Writer.CreateWithDefaults(ctx, req.toDraft())
	if err != nil {
		writeDomainError(w, observability.WithArticleContext(logger, req.ID, domain.Deref(req.JournalID)), err)
		return
	}

	if !bundle.ArticleCreated {
		body, err := withMessage(bundle, "Article already exists")
		if err != nil {
			writeDomainError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, body)
		return
	}

	events.PublishBestEffort(ctx, s.deps.Publisher, events.EmitParams{
		AggregateID:   bundle.Article.ID,
		AggregateType: events.AggregateTypeArticle,
		EventType:     domain.EventTypeArticleCreated,
		Payload: domain.ArticleCreatedPayload{
			ArticleID:    bundle.Article.ID,
			JournalID:    domain.Deref(bundle.Article.JournalID),
			DisciplineID: domain.Deref(bundle.Article.DisciplineID),
			AuthorIDs:    bundle.AuthorIDs(),
		},
		CorrelationID: observability.RequestIDFromContext(ctx),
	}, logger)

	writeJSON(w, http.StatusCreated, bundle)
}

// decodeError maps a JSON decoding failure to the error reported to clients.
func decodeError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return domain.NewValidationError("body", "must be a valid JSON object")
}

func (s *Server) getComposite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx, s.logger)
	id := chi.URLParam(r, "id")

	snap, err := s.snapshot(ctx)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	composite, ok := snap.CompositeByID(id)
	if !ok {
		writeDomainError(w, logger, domain.NewNotFoundError("article", id))
		return
	}
	writeJSON(w, http.StatusOK, composite)
}

// compositeQuery holds the query parameters of the composite article list.
type compositeQuery struct {
	Query      string `json:"q" validate:"max=200"`
	Year       int    `json:"year" validate:"omitempty,gte=1000,lte=9999"`
	Discipline string `json:"discipline" validate:"max=255"`
	Method     string `json:"method" validate:"max=255"`
}

func (s *Server) parseCompositeQuery(r *http.Request) (catalog.Filter, error) {
	q := r.URL.Query()
	query := compositeQuery{
		Query:      strings.TrimSpace(q.Get("q")),
		Discipline: strings.TrimSpace(q.Get("discipline")),
		Method:     strings.TrimSpace(q.Get("method")),
	}
	if raw := strings.TrimSpace(q.Get("year")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return catalog.Filter{}, domain.NewValidationError("year", "must be a number")
		}
		query.Year = year
	}
	if err := s.validateStruct(&query); err != nil {
		return catalog.Filter{}, err
	}
	return catalog.Filter{
		Query:        query.Query,
		Year:         query.Year,
		DisciplineID: query.Discipline,
		Method:       query.Method,
	}, nil
}

// listComposites returns every article assembled with its journal,
// discipline, design, metrics, statistics and authors.
func (s *Server) listComposites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx, s.logger)

	filter, err := s.parseCompositeQuery(r)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Composites(filter))
}

func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap, err := s.snapshot(ctx)
	if err != nil {
		writeDomainError(w, observability.FromContext(ctx, s.logger), err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Dashboard(s.now()))
}

// exportCSV streams the flat article export as a CSV download. The file is
// rendered before the first byte is sent so a failure still answers 500.
func (s *Server) exportCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx, s.logger)

	snap, err := s.snapshot(ctx)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}

	var buf bytes.Buffer
	rows, err := snap.WriteCSV(&buf)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	s.deps.Metrics.RecordExport("csv", rows)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+catalog.ExportFilename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Warn().Err(err).Msg("failed to send export")
	}
}

// archiveExport uploads a compressed export to object storage.
func (s *Server) archiveExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx, s.logger)

	if s.deps.Archiver == nil {
		writeError(w, http.StatusServiceUnavailable, "export archiving is not configured")
		return
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	archived, err := s.deps.Archiver.Upload(ctx, snap)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	logger.Info().Str("key", archived.Key).Int("rows", archived.Rows).Msg("export archived")
	writeJSON(w, http.StatusCreated, archived)
}

// reconcileReport reports identifier drift without changing anything.
func (s *Server) reconcileReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.deps.Reconciler == nil {
		writeError(w, http.StatusServiceUnavailable, "reconciliation is not configured")
		return
	}
	report, err := s.deps.Reconciler.Check(ctx)
	if err != nil {
		writeDomainError(w, observability.FromContext(ctx, s.logger), err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) listSchemas(w http.ResponseWriter, _ *http.Request) {
	names := domain.SchemaResources()
	out := make([]domain.Schema, 0, len(names))
	for _, name := range names {
		schema, _ := domain.SchemaFor(name)
		out = append(out, schema)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getSchema(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "resource")
	schema, ok := domain.SchemaFor(name)
	if !ok {
		writeDomainError(w, s.logger, domain.NewNotFoundError("schema", name))
		return
	}
	writeJSON(w, http.StatusOK, schema)
}
