// Package templates renders the HTML pages of the converter.
//
// Pages are templ components; edit the .templ files and run `templ generate`
// to refresh the *_templ.go files.
package templates

import (
	"fmt"
	"time"

	"github.com/JonMunkholm/harmonizer/internal/history"
)

// UploadPageParams holds everything the upload page shows.
type UploadPageParams struct {
	MaxFileSize int64
	NullPolicy  string
	Columns     []string
	History     []history.Entry
	// HistoryError is set when history could not be loaded; the form still works.
	HistoryError string
}

// ResultPageParams describes a finished conversion.
type ResultPageParams struct {
	ConversionID  string
	FileName      string
	DownloadName  string
	Records       int
	Columns       int
	InputBytes    int64
	OutputBytes   int
	TrailingBytes int
	NullPolicy    string
	Duration      time.Duration
	Preview       string
	Truncated     bool
	// DownloadURL is a data: URL holding the whole CSV, so the download
	// needs no second request.
	DownloadURL string
}

// FormatBytes renders a byte count for display: 512 B, 1.5 KB, 10.0 MB.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// previewText marks a cut preview with an ellipsis.
func previewText(p ResultPageParams) string {
	if p.Truncated {
		return p.Preview + "..."
	}
	return p.Preview
}

func formatWhen(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
