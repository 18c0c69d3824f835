package web

import (
	"net/http"

	"github.com/JonMunkholm/harmonizer/internal/core"
	"github.com/JonMunkholm/harmonizer/internal/logging"
	"github.com/JonMunkholm/harmonizer/internal/web/templates"
)

// handleIndex renders the upload page. A history failure is shown inline;
// the form keeps working.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	params := templates.UploadPageParams{
		MaxFileSize: s.service.MaxFileSize(),
		NullPolicy:  string(s.service.NullPolicy()),
		Columns:     s.service.Columns(),
	}

	entries, err := s.service.History(r.Context(), 0)
	if err != nil {
		logging.FromContext(r.Context()).Warn("load history for index", "error", err)
		params.HistoryError = core.FormatUserError(err)
	}
	params.History = entries

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.UploadPage(params).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render upload page", "error", err)
	}
}
