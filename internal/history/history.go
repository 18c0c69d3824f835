// Package history records completed conversions so operators can see what
// was converted, when, and why a conversion failed.
//
// Only metadata is stored. Uploaded documents and generated CSV are never
// persisted.
package history

import (
	"context"
	"time"
)

// Status is the outcome of a conversion.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Entry describes one conversion attempt.
type Entry struct {
	ID           string    `json:"id"`
	FileName     string    `json:"file_name"`
	DownloadName string    `json:"download_name,omitempty"`
	Status       Status    `json:"status"`
	ErrorCode    string    `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Records      int       `json:"records"`
	InputBytes   int64     `json:"input_bytes"`
	OutputBytes  int64     `json:"output_bytes"`
	NullPolicy   string    `json:"null_policy"`
	DurationMS   int64     `json:"duration_ms"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store persists conversion history.
type Store interface {
	// Record saves an entry. Entries without CreatedAt are stamped with the
	// current time.
	Record(ctx context.Context, e Entry) error

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)

	// Prune deletes entries created before cutoff and reports how many
	// were removed.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)

	// Backend names the storage in status output ("memory" or "postgres").
	Backend() string

	Close()
}
