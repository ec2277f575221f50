package httpserver

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/helixir/research-catalog/internal/domain"
	"github.com/helixir/research-catalog/internal/observability"
)

// defaultMaxUploadBytes caps CSV uploads when the config leaves it unset.
const defaultMaxUploadBytes = 32 << 20

// importFormField is the multipart field carrying the CSV file.
const importFormField = "file"

// importCSV loads a CSV file into the catalog. The file is sent either as
// the "file" field of a multipart form or as the raw request body.
//
// Per-row failures are reported in the result with 200. An import cut short
// by a cancelled request still reports what was written before it stopped.
func (s *Server) importCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx, s.logger)

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	body, closeBody, err := uploadReader(r)
	if err != nil {
		writeDomainError(w, logger, err)
		return
	}
	defer closeBody()

	result, err := s.deps.Importer.Import(ctx, body)
	if err != nil {
		if result == nil {
			writeDomainError(w, logger, err)
			return
		}
		logger.Warn().Err(err).Str("import_id", result.ImportID.String()).Msg("import stopped early")
	}
	writeJSON(w, http.StatusOK, result)
}

// uploadReader returns the CSV stream of r.
func uploadReader(r *http.Request) (io.Reader, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, func() {}, nil
	}

	file, _, err := r.FormFile(importFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, err
		}
		return nil, nil, domain.NewValidationError(importFormField, "a CSV file is required")
	}
	return file, func() { _ = file.Close() }, nil
}
