package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/JonMunkholm/harmonizer/internal/config"
	"github.com/JonMunkholm/harmonizer/internal/convert"
	"github.com/JonMunkholm/harmonizer/internal/history"
	"github.com/JonMunkholm/harmonizer/internal/ingest"
	"github.com/JonMunkholm/harmonizer/internal/logging"
	"github.com/google/uuid"
)

// Boundary errors raised before a document reaches the ingest package.
var (
	ErrNoFile             = errors.New("no file provided")
	ErrMalformedUpload    = errors.New("malformed upload")
	ErrHistoryUnavailable = errors.New("history unavailable")
)

// historyWriteTimeout bounds the history insert after a conversion. It runs
// on a context detached from the request so a client disconnect does not
// drop the entry.
const historyWriteTimeout = 5 * time.Second

// Service runs conversions and keeps their history.
type Service struct {
	store   history.Store
	limiter *ConversionLimiter

	policy       convert.NullPolicy
	maxFileSize  int64
	timeout      time.Duration
	previewChars int
	historyCfg   config.HistoryConfig
}

// NewService wires the conversion pipeline to a history store. cfg must
// already be validated.
func NewService(store history.Store, cfg *config.Config) *Service {
	policy, err := convert.ParseNullPolicy(cfg.Convert.NullPolicy)
	if err != nil {
		policy = convert.DefaultNullPolicy
	}

	return &Service{
		store:        store,
		limiter:      NewConversionLimiter(cfg.Convert.MaxConcurrent, cfg.Convert.MaxWaitTime),
		policy:       policy,
		maxFileSize:  cfg.Convert.MaxFileSize,
		timeout:      cfg.Convert.Timeout,
		previewChars: cfg.Convert.PreviewChars,
		historyCfg:   cfg.History,
	}
}

// ConvertRequest is one uploaded document.
type ConvertRequest struct {
	FileName string
	Body     io.Reader
	// NullPolicy overrides the configured policy when non-empty.
	NullPolicy string
}

// ConversionResult is the CSV produced for one upload.
type ConversionResult struct {
	ID            string
	FileName      string
	DownloadName  string
	CSV           string
	Records       int
	Columns       int
	InputBytes    int64
	TrailingBytes int
	NullPolicy    convert.NullPolicy
	Duration      time.Duration
}

// Preview returns the first n characters of the CSV and whether it was cut.
func (r *ConversionResult) Preview(n int) (string, bool) {
	if n <= 0 {
		return "", r.CSV != ""
	}
	if utf8.RuneCountInString(r.CSV) <= n {
		return r.CSV, false
	}

	count := 0
	for i := range r.CSV {
		if count == n {
			return r.CSV[:i], true
		}
		count++
	}
	return r.CSV, false
}

// Convert validates the upload, converts it to CSV and records the attempt
// in history. Failures are recorded too, with their error code.
func (s *Service) Convert(ctx context.Context, req ConvertRequest) (*ConversionResult, error) {
	start := time.Now()
	id := uuid.New().String()
	log := logging.WithFields(ctx, "conversion_id", id, "file", req.FileName)

	result, err := s.convert(ctx, id, req)
	elapsed := time.Since(start)

	s.record(ctx, id, req, result, err, elapsed)

	if err != nil {
		log.Warn("conversion failed",
			"error", err,
			"code", MapError(err).Code,
			"duration_ms", elapsed.Milliseconds(),
		)
		return nil, err
	}

	result.Duration = elapsed
	log.Info("conversion completed",
		"records", result.Records,
		"input_bytes", result.InputBytes,
		"output_bytes", len(result.CSV),
		"null_policy", result.NullPolicy,
		"duration_ms", elapsed.Milliseconds(),
	)
	if result.TrailingBytes > 0 {
		log.Warn("ignored content after JSON value", "trailing_bytes", result.TrailingBytes)
	}
	return result, nil
}

func (s *Service) convert(ctx context.Context, id string, req ConvertRequest) (*ConversionResult, error) {
	if req.Body == nil {
		return nil, ErrNoFile
	}
	if err := ingest.ValidateFileName(req.FileName); err != nil {
		return nil, err
	}

	policy := s.policy
	if req.NullPolicy != "" {
		p, err := convert.ParseNullPolicy(req.NullPolicy)
		if err != nil {
			return nil, err
		}
		policy = p
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	// Reading and parsing stay on the caller's goroutine so the limiter slot
	// is held until the body is no longer touched.
	defer s.limiter.Release()

	doc, err := ingest.Load(req.FileName, ingest.NewContextReader(ctx, req.Body), s.maxFileSize)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("conversion aborted: %w", ctxErr)
	}
	if err != nil {
		return nil, err
	}
	csv := convert.Convert(doc.Input, policy)

	return &ConversionResult{
		ID:            id,
		FileName:      doc.FileName,
		DownloadName:  doc.DownloadName,
		CSV:           csv,
		Records:       doc.Records,
		Columns:       len(convert.Schema),
		InputBytes:    doc.Size,
		TrailingBytes: doc.TrailingBytes,
		NullPolicy:    policy,
	}, nil
}

// record writes the history entry. Store failures are logged, never
// returned: a conversion that succeeded stays successful.
func (s *Service) record(ctx context.Context, id string, req ConvertRequest, result *ConversionResult, convErr error, elapsed time.Duration) {
	entry := history.Entry{
		ID:         id,
		FileName:   req.FileName,
		Status:     history.StatusSucceeded,
		NullPolicy: string(s.policy),
		DurationMS: elapsed.Milliseconds(),
		IPAddress:  IPAddressFromContext(ctx),
		UserAgent:  UserAgentFromContext(ctx),
		CreatedAt:  time.Now().UTC(),
	}

	if convErr != nil {
		msg := MapError(convErr)
		entry.Status = history.StatusFailed
		entry.ErrorCode = msg.Code
		entry.ErrorMessage = msg.Message
		if req.NullPolicy != "" {
			entry.NullPolicy = req.NullPolicy
		}
	} else {
		entry.DownloadName = result.DownloadName
		entry.Records = result.Records
		entry.InputBytes = result.InputBytes
		entry.OutputBytes = int64(len(result.CSV))
		entry.NullPolicy = string(result.NullPolicy)
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
	defer cancel()

	if err := s.store.Record(writeCtx, entry); err != nil {
		logging.FromContext(ctx).Error("failed to record conversion history",
			"conversion_id", id,
			"backend", s.store.Backend(),
			"error", err,
		)
	}
}

// History returns the most recent conversions, newest first. A non-positive
// limit uses the configured HISTORY_LIMIT.
func (s *Service) History(ctx context.Context, limit int) ([]history.Entry, error) {
	if limit <= 0 || limit > s.historyCfg.Limit {
		limit = s.historyCfg.Limit
	}

	entries, err := s.store.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHistoryUnavailable, err)
	}
	return entries, nil
}

// Status is the service snapshot served by /api/status.
type Status struct {
	Limiter        LimiterStatus `json:"limiter"`
	HistoryBackend string        `json:"history_backend"`
	NullPolicy     string        `json:"null_policy"`
	MaxFileSize    int64         `json:"max_file_size"`
	Columns        int           `json:"columns"`
}

// Status reports limiter occupancy and the active settings.
func (s *Service) Status() Status {
	return Status{
		Limiter:        s.limiter.Status(),
		HistoryBackend: s.store.Backend(),
		NullPolicy:     string(s.policy),
		MaxFileSize:    s.maxFileSize,
		Columns:        len(convert.Schema),
	}
}

// Columns returns the CSV header names in output order.
func (s *Service) Columns() []string {
	return convert.ColumnNames()
}

// NullPolicy returns the configured default policy.
func (s *Service) NullPolicy() convert.NullPolicy {
	return s.policy
}

// MaxFileSize returns the upload limit in bytes.
func (s *Service) MaxFileSize() int64 {
	return s.maxFileSize
}

// PreviewChars returns how many CSV characters the result page shows.
func (s *Service) PreviewChars() int {
	return s.previewChars
}

// WaitForConversions blocks until in-flight conversions finish or ctx ends.
// Used during graceful shutdown.
func (s *Service) WaitForConversions(ctx context.Context) error {
	active := s.limiter.ActiveCount()
	if active == 0 {
		return nil
	}
	slog.Info("waiting for conversions to finish", "active", active)
	return s.limiter.WaitForDrain(ctx)
}
