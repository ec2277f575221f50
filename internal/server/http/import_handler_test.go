package httpserver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-catalog/internal/csvimport"
	"github.com/helixir/research-catalog/internal/domain"
)

const sampleCSV = "Key,Title,Author\nP1,Minimum wages,\"Smith, John\"\n"

// readingImporter reads the whole upload and reports its content.
func readingImporter(got *string) *mockImporter {
	return &mockImporter{importFn: func(_ context.Context, r io.Reader) (*csvimport.Result, error) {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		*got = string(data)
		return &csvimport.Result{ImportID: uuid.New(), Outcome: csvimport.OutcomeSuccess, NewArticles: 1}, nil
	}}
}

func postImport(t *testing.T, s *Server, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/import", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func multipartBody(t *testing.T, field, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "articles.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestImportCSV(t *testing.T) {
	t.Run("raw body", func(t *testing.T) {
		var got string
		deps := defaultDeps()
		deps.Importer = readingImporter(&got)
		s := newTestServer(t, deps)

		rec := postImport(t, s, strings.NewReader(sampleCSV), "text/csv")

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, sampleCSV, got)
		body := decodeBody[map[string]any](t, rec)
		assert.Equal(t, "success", body["outcome"])
		assert.EqualValues(t, 1, body["new_articles"])
	})

	t.Run("multipart upload", func(t *testing.T) {
		var got string
		deps := defaultDeps()
		deps.Importer = readingImporter(&got)
		s := newTestServer(t, deps)

		body, contentType := multipartBody(t, "file", sampleCSV)
		rec := postImport(t, s, body, contentType)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, sampleCSV, got)
	})

	t.Run("multipart without file field", func(t *testing.T) {
		deps := defaultDeps()
		deps.Importer = &mockImporter{importFn: func(context.Context, io.Reader) (*csvimport.Result, error) {
			t.Fatal("importer must not be called")
			return nil, nil
		}}
		s := newTestServer(t, deps)

		body, contentType := multipartBody(t, "upload", sampleCSV)
		rec := postImport(t, s, body, contentType)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "a CSV file is required")
	})

	t.Run("no header row", func(t *testing.T) {
		deps := defaultDeps()
		deps.Importer = &mockImporter{importFn: func(context.Context, io.Reader) (*csvimport.Result, error) {
			return nil, domain.NewValidationError("file", "no header row found")
		}}
		s := newTestServer(t, deps)

		rec := postImport(t, s, strings.NewReader(""), "text/csv")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "no header row found")
	})

	t.Run("interrupted import still reports progress", func(t *testing.T) {
		deps := defaultDeps()
		deps.Importer = &mockImporter{importFn: func(context.Context, io.Reader) (*csvimport.Result, error) {
			return &csvimport.Result{ImportID: uuid.New(), Outcome: csvimport.OutcomeWarning, NewArticles: 3},
				errors.New("import interrupted: context canceled")
		}}
		s := newTestServer(t, deps)

		rec := postImport(t, s, strings.NewReader(sampleCSV), "text/csv")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.EqualValues(t, 3, decodeBody[map[string]any](t, rec)["new_articles"])
	})

	t.Run("catalog unavailable", func(t *testing.T) {
		deps := defaultDeps()
		deps.Importer = &mockImporter{importFn: func(context.Context, io.Reader) (*csvimport.Result, error) {
			return nil, errors.New("failed to load catalog: connection refused")
		}}
		s := newTestServer(t, deps)

		rec := postImport(t, s, strings.NewReader(sampleCSV), "text/csv")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("upload too large", func(t *testing.T) {
		var got string
		deps := defaultDeps()
		deps.Importer = readingImporter(&got)
		s := newTestServer(t, deps, Config{MaxUploadBytes: 16})

		rec := postImport(t, s, strings.NewReader(sampleCSV), "text/csv")
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Empty(t, got)
	})
}

func TestImportCSV_RateLimited(t *testing.T) {
	var got string
	deps := defaultDeps()
	deps.Importer = readingImporter(&got)
	s := newTestServer(t, deps, Config{ImportsPerMinute: 6})

	rec := postImport(t, s, strings.NewReader(sampleCSV), "text/csv")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postImport(t, s, strings.NewReader(sampleCSV), "text/csv")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}
