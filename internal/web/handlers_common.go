package web

// handlers_common.go holds request parsing shared by the upload endpoints
// and the small JSON endpoints.

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/harmonizer/internal/core"
	"github.com/JonMunkholm/harmonizer/internal/ingest"
)

// multipartMemory is how much of a multipart form is buffered in memory
// before spilling to temporary files.
const multipartMemory = 8 << 20

// defaultRawFileName names raw JSON bodies posted without ?filename=.
const defaultRawFileName = "upload.json"

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// readUpload extracts the document from the request. Browsers and curl -F
// send multipart forms with a "file" field; API clients may instead post the
// JSON document as the body and name it with ?filename=. The returned
// cleanup func must be called once the body has been consumed.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (core.ConvertRequest, func(), error) {
	noop := func() {}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())

	mediaType := ""
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return core.ConvertRequest{}, noop, fmt.Errorf("%w: content type: %v", core.ErrMalformedUpload, err)
		}
		mediaType = mt
	}

	switch mediaType {
	case "multipart/form-data":
		return s.readMultipart(r)

	case "", "application/json", "application/octet-stream":
		name := r.URL.Query().Get("filename")
		if name == "" {
			name = defaultRawFileName
		}
		return core.ConvertRequest{
			FileName:   name,
			Body:       r.Body,
			NullPolicy: r.URL.Query().Get("null_policy"),
		}, noop, nil

	default:
		return core.ConvertRequest{}, noop, fmt.Errorf("%w: unsupported content type %q", core.ErrMalformedUpload, mediaType)
	}
}

func (s *Server) readMultipart(r *http.Request) (core.ConvertRequest, func(), error) {
	noop := func() {}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return core.ConvertRequest{}, noop, uploadError(err)
	}
	cleanup := func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		cleanup()
		if errors.Is(err, http.ErrMissingFile) {
			return core.ConvertRequest{}, noop, core.ErrNoFile
		}
		return core.ConvertRequest{}, noop, uploadError(err)
	}

	return core.ConvertRequest{
			FileName:   header.Filename,
			Body:       file,
			NullPolicy: r.FormValue("null_policy"),
		}, func() {
			_ = file.Close()
			cleanup()
		}, nil
}

// uploadError classifies a form parsing failure.
func uploadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w: body exceeds %d bytes", ingest.ErrFileTooLarge, maxErr.Limit)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: body ended early", core.ErrMalformedUpload)
	}
	return fmt.Errorf("%w: %v", core.ErrMalformedUpload, err)
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus returns limiter occupancy and the active settings.
// Used for monitoring and to check if the system can accept more conversions.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.service.Status())
}

// SchemaResponse lists the CSV columns in output order.
type SchemaResponse struct {
	Columns    []string `json:"columns"`
	NullPolicy string   `json:"null_policy"`
}

// handleSchema returns the fixed output columns.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, SchemaResponse{
		Columns:    s.service.Columns(),
		NullPolicy: string(s.service.NullPolicy()),
	})
}

// handleHistory returns recent conversions, newest first. ?limit= caps the
// count at HISTORY_LIMIT.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.History(r.Context(), parseIntParam(r, "limit", 0))
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"entries": entries})
}
