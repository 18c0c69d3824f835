package web

import (
	"encoding/base64"
	"mime"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/harmonizer/internal/core"
	"github.com/JonMunkholm/harmonizer/internal/web/templates"
)

// convert runs one upload through the service. On failure it has already
// written the error response and returns nil.
func (s *Server) convert(w http.ResponseWriter, r *http.Request) *core.ConversionResult {
	req, cleanup, err := s.readUpload(w, r)
	defer cleanup()
	if err != nil {
		respondError(w, r, err, 0)
		return nil
	}

	ctx := withRequestMetadata(r.Context(), r)
	result, err := s.service.Convert(ctx, req)
	if err != nil {
		respondError(w, r, err, 0)
		return nil
	}
	return result
}

// handleConvertAPI returns the CSV as a file download.
func (s *Server) handleConvertAPI(w http.ResponseWriter, r *http.Request) {
	result := s.convert(w, r)
	if result == nil {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": result.DownloadName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.CSV)))
	w.Header().Set("X-Conversion-ID", result.ID)
	w.Header().Set("X-Record-Count", strconv.Itoa(result.Records))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(result.CSV))
}

// PreviewResponse summarizes a conversion without the full CSV.
type PreviewResponse struct {
	ConversionID  string `json:"conversion_id"`
	FileName      string `json:"file_name"`
	DownloadName  string `json:"download_name"`
	Records       int    `json:"records"`
	Columns       int    `json:"columns"`
	Bytes         int    `json:"bytes"`
	TrailingBytes int    `json:"trailing_bytes,omitempty"`
	NullPolicy    string `json:"null_policy"`
	DurationMS    int64  `json:"duration_ms"`
	Preview       string `json:"preview"`
	Truncated     bool   `json:"truncated"`
}

// handlePreviewAPI converts the upload and returns the first characters of
// the CSV. ?chars= overrides CONVERT_PREVIEW_CHARS.
func (s *Server) handlePreviewAPI(w http.ResponseWriter, r *http.Request) {
	result := s.convert(w, r)
	if result == nil {
		return
	}

	preview, truncated := result.Preview(parseIntParam(r, "chars", s.service.PreviewChars()))
	writeJSON(w, r, http.StatusOK, PreviewResponse{
		ConversionID:  result.ID,
		FileName:      result.FileName,
		DownloadName:  result.DownloadName,
		Records:       result.Records,
		Columns:       result.Columns,
		Bytes:         len(result.CSV),
		TrailingBytes: result.TrailingBytes,
		NullPolicy:    string(result.NullPolicy),
		DurationMS:    result.Duration.Milliseconds(),
		Preview:       preview,
		Truncated:     truncated,
	})
}

// handleConvertForm renders the result page for the browser upload form.
func (s *Server) handleConvertForm(w http.ResponseWriter, r *http.Request) {
	result := s.convert(w, r)
	if result == nil {
		return
	}

	preview, truncated := result.Preview(s.service.PreviewChars())
	params := templates.ResultPageParams{
		ConversionID:  result.ID,
		FileName:      result.FileName,
		DownloadName:  result.DownloadName,
		Records:       result.Records,
		Columns:       result.Columns,
		InputBytes:    result.InputBytes,
		OutputBytes:   len(result.CSV),
		TrailingBytes: result.TrailingBytes,
		NullPolicy:    string(result.NullPolicy),
		Duration:      result.Duration,
		Preview:       preview,
		Truncated:     truncated,
		DownloadURL:   csvDataURL(result.CSV),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ResultPage(params).Render(r.Context(), w); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
	}
}

// csvDataURL embeds the CSV in a data: URL for the download link.
func csvDataURL(csv string) string {
	return "data:text/csv;charset=utf-8;base64," + base64.StdEncoding.EncodeToString([]byte(csv))
}
