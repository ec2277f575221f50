package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/helixir/research-catalog/internal/domain"
	"github.com/helixir/research-catalog/internal/observability"
	"github.com/helixir/research-catalog/internal/repository"
)

// maxRequestBodySize limits JSON request bodies.
const maxRequestBodySize = 1 << 20

// resource serves the CRUD routes of one catalog table.
type resource[T any] struct {
	name    string
	display string
	repo    repository.Resource[T]
	schema  *domain.Schema
	resourceConfig
	// blank returns the value a create body is decoded onto, carrying defaults
	// for fields the body omits.
	blank  func() *T
	logger zerolog.Logger
}

// resourceConfig holds the route options shared by all resources.
type resourceConfig struct {
	keys   []string
	get    bool
	update bool
}

type resourceOption func(*resourceConfig)

// withKeys names the URL parameters that address one row, in key order.
func withKeys(keys ...string) resourceOption {
	return func(c *resourceConfig) { c.keys = keys }
}

// withGet exposes GET on a single row.
func withGet() resourceOption {
	return func(c *resourceConfig) { c.get = true }
}

// readOnlyRows drops the PUT route for link tables.
func readOnlyRows() resourceOption {
	return func(c *resourceConfig) { c.update = false }
}

func newResource[T any](s *Server, name, display string, repo repository.Resource[T], opts ...resourceOption) *resource[T] {
	r := &resource[T]{
		name:           name,
		display:        display,
		repo:           repo,
		resourceConfig: resourceConfig{keys: []string{"id"}, update: true},
		blank:          func() *T { return new(T) },
		logger:         s.logger.With().Str("resource", name).Logger(),
	}
	if schema, ok := domain.SchemaFor(name); ok {
		r.schema = &schema
	}
	for _, opt := range opts {
		opt(&r.resourceConfig)
	}
	return r
}

// routes mounts the resource on a router scoped to its path.
func (res *resource[T]) routes(r chi.Router) {
	pattern := "/{" + strings.Join(res.keys, "}/{") + "}"

	r.Get("/", res.list)
	r.Post("/", res.create)
	if res.get {
		r.Get(pattern, res.getOne)
	}
	if res.update {
		r.Put(pattern, res.replace)
	}
	r.Delete(pattern, res.remove)
}

func (res *resource[T]) key(r *http.Request) repository.Key {
	key := make(repository.Key, len(res.keys))
	for i, k := range res.keys {
		key[i] = chi.URLParam(r, k)
	}
	return key
}

func (res *resource[T]) list(w http.ResponseWriter, r *http.Request) {
	rows, err := res.repo.List(r.Context())
	if err != nil {
		writeDomainError(w, observability.FromContext(r.Context(), res.logger), err)
		return
	}
	if rows == nil {
		rows = []*T{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (res *resource[T]) getOne(w http.ResponseWriter, r *http.Request) {
	row, err := res.repo.Get(r.Context(), res.key(r))
	if err != nil {
		writeDomainError(w, observability.FromContext(r.Context(), res.logger), err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// create answers 201 with the new row, or 200 with the existing row and a
// message when the table resolved the write to a row that was already there.
func (res *resource[T]) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx, res.logger)

	v := res.blank()
	if err := res.decode(w, r, v, false); err != nil {
		writeDomainError(w, logger, err)
		return
	}

	row, created, err := res.repo.Create(ctx, v)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	if created {
		writeJSON(w, http.StatusCreated, row)
		return
	}

	body, err := withMessage(row, res.display+" already exists")
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (res *resource[T]) replace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx, res.logger)

	v := new(T)
	if err := res.decode(w, r, v, true); err != nil {
		writeDomainError(w, logger, err)
		return
	}

	row, err := res.repo.Update(ctx, res.key(r), v)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (res *resource[T]) remove(w http.ResponseWriter, r *http.Request) {
	key := res.key(r)
	if err := res.repo.Delete(r.Context(), key); err != nil {
		logger := observability.WithEntityContext(observability.FromContext(r.Context(), res.logger), res.name, key.String())
		writeDomainError(w, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Deleted successfully"})
}

// decode reads a JSON object, checks it against the resource schema and
// decodes it onto v. Updates may omit required fields. Form-style values
// such as numeric strings are accepted.
func (res *resource[T]) decode(w http.ResponseWriter, r *http.Request, v *T, partial bool) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err != nil {
		return err
	}

	var values map[string]any
	if err := json.Unmarshal(body, &values); err != nil || values == nil {
		return domain.NewValidationError("body", "must be a JSON object")
	}
	if res.schema != nil {
		if err := res.schema.Validate(values, partial); err != nil {
			return err
		}
		res.schema.Normalize(values)
		if body, err = json.Marshal(values); err != nil {
			return err
		}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return domain.NewValidationError("body", "has a field of the wrong type")
	}
	return nil
}
