package core

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JonMunkholm/harmonizer/internal/config"
	"github.com/JonMunkholm/harmonizer/internal/convert"
	"github.com/JonMunkholm/harmonizer/internal/history"
	"github.com/JonMunkholm/harmonizer/internal/ingest"
)

func testConfig() *config.Config {
	return &config.Config{
		Convert: config.ConvertConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 2,
			MaxWaitTime:   50 * time.Millisecond,
			Timeout:       time.Second,
			NullPolicy:    "empty",
			PreviewChars:  200,
		},
		History: config.HistoryConfig{Limit: 10},
	}
}

func newTestService(t *testing.T) (*Service, *history.MemoryStore) {
	t.Helper()
	store := history.NewMemoryStore(10)
	return NewService(store, testConfig()), store
}

// failingStore rejects every write.
type failingStore struct{ history.MemoryStore }

func (f *failingStore) Record(context.Context, history.Entry) error {
	return errors.New("connection refused")
}

func (f *failingStore) Recent(context.Context, int) ([]history.Entry, error) {
	return nil, errors.New("connection refused")
}

// slowReader blocks before returning a document.
type slowReader struct {
	delay time.Duration
	r     *strings.Reader
	reads atomic.Int32
}

func (s *slowReader) Read(p []byte) (int, error) {
	s.reads.Add(1)
	time.Sleep(s.delay)
	return s.r.Read(p)
}

func TestService_Convert(t *testing.T) {
	svc, store := newTestService(t)
	ctx := ContextWithIPAddress(context.Background(), "203.0.113.9")
	ctx = ContextWithUserAgent(ctx, "test-agent")

	body := `[{"table": {"id": "a", "name": "Alpha"}}, {"id": "b", "provider": "New York, NY"}]`
	result, err := svc.Convert(ctx, ConvertRequest{FileName: "servers.json", Body: strings.NewReader(body)})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	if result.Records != 2 {
		t.Errorf("Records = %d, want 2", result.Records)
	}
	if result.Columns != len(convert.Schema) {
		t.Errorf("Columns = %d, want %d", result.Columns, len(convert.Schema))
	}
	if result.DownloadName != "servers_converted.csv" {
		t.Errorf("DownloadName = %q", result.DownloadName)
	}
	lines := strings.Split(result.CSV, "\n")
	if len(lines) != 3 {
		t.Fatalf("CSV has %d lines, want 3:\n%s", len(lines), result.CSV)
	}
	if !strings.HasPrefix(lines[1], "a,Alpha,") {
		t.Errorf("first row = %q, want it to start with a,Alpha,", lines[1])
	}
	if !strings.Contains(lines[2], `"New York, NY"`) {
		t.Errorf("second row = %q, want quoted provider", lines[2])
	}

	entries, _ := store.Recent(context.Background(), 0)
	if len(entries) != 1 {
		t.Fatalf("history has %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.ID != result.ID || e.Status != history.StatusSucceeded {
		t.Errorf("history entry = %+v", e)
	}
	if e.IPAddress != "203.0.113.9" || e.UserAgent != "test-agent" {
		t.Errorf("history client = %q/%q", e.IPAddress, e.UserAgent)
	}
	if e.OutputBytes != int64(len(result.CSV)) {
		t.Errorf("OutputBytes = %d, want %d", e.OutputBytes, len(result.CSV))
	}
}

func TestService_ConvertFailureRecorded(t *testing.T) {
	svc, store := newTestService(t)

	_, err := svc.Convert(context.Background(), ConvertRequest{FileName: "bad.json", Body: strings.NewReader("{oops")})
	if !errors.Is(err, ingest.ErrInvalidJSON) {
		t.Fatalf("Convert() error = %v, want ErrInvalidJSON", err)
	}

	entries, _ := store.Recent(context.Background(), 0)
	if len(entries) != 1 {
		t.Fatalf("history has %d entries, want 1", len(entries))
	}
	if entries[0].Status != history.StatusFailed || entries[0].ErrorCode != "JSON001" {
		t.Errorf("history entry = %+v, want failed JSON001", entries[0])
	}
}

func TestService_ConvertRequestErrors(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name    string
		req     ConvertRequest
		wantErr error
		code    string
	}{
		{"no body", ConvertRequest{FileName: "a.json"}, ErrNoFile, "FILE004"},
		{"wrong extension", ConvertRequest{FileName: "a.txt", Body: strings.NewReader("{}")}, ingest.ErrInvalidFileType, "FILE002"},
		{"no records", ConvertRequest{FileName: "a.json", Body: strings.NewReader(`{"table": []}`)}, ingest.ErrNoRecords, "JSON003"},
		{"bad policy", ConvertRequest{FileName: "a.json", Body: strings.NewReader(`{"id": 1}`), NullPolicy: "nil"}, convert.ErrInvalidNullPolicy, "UPL001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Convert(context.Background(), tt.req)
			if err == nil {
				t.Fatal("Convert() expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Convert() error = %v, want %v", err, tt.wantErr)
			}
			if got := MapError(err).Code; got != tt.code {
				t.Errorf("MapError code = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestService_NullPolicyOverride(t *testing.T) {
	svc, _ := newTestService(t)

	result, err := svc.Convert(context.Background(), ConvertRequest{
		FileName:   "one.json",
		Body:       strings.NewReader(`{"id": "x"}`),
		NullPolicy: "null",
	})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	row := strings.Split(result.CSV, "\n")[1]
	if !strings.HasPrefix(row, "x,NULL,NULL,") {
		t.Errorf("row = %q, want missing fields rendered as NULL", row)
	}
	if result.NullPolicy != convert.NullLiteral {
		t.Errorf("NullPolicy = %q, want %q", result.NullPolicy, convert.NullLiteral)
	}
}

func TestService_Busy(t *testing.T) {
	svc, _ := newTestService(t)
	for svc.limiter.TryAcquire() {
	}
	defer func() {
		svc.limiter.Release()
		svc.limiter.Release()
	}()

	_, err := svc.Convert(context.Background(), ConvertRequest{FileName: "a.json", Body: strings.NewReader(`{"id": 1}`)})
	if !errors.Is(err, ErrTooManyConversions) {
		t.Errorf("Convert() error = %v, want ErrTooManyConversions", err)
	}
}

func TestService_Timeout(t *testing.T) {
	cfg := testConfig()
	cfg.Convert.Timeout = 20 * time.Millisecond
	svc := NewService(history.NewMemoryStore(10), cfg)

	body := &slowReader{delay: 200 * time.Millisecond, r: strings.NewReader(`{"id": 1}`)}
	_, err := svc.Convert(context.Background(), ConvertRequest{FileName: "slow.json", Body: body})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Convert() error = %v, want deadline exceeded", err)
	}
	if got := MapError(err).Code; got != "UPL005" {
		t.Errorf("MapError code = %q, want UPL005", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := svc.WaitForConversions(ctx); err != nil {
		t.Errorf("WaitForConversions() error = %v", err)
	}
}

func TestService_TimeoutReleasesSlotAndStopsReading(t *testing.T) {
	cfg := testConfig()
	cfg.Convert.MaxConcurrent = 1
	cfg.Convert.Timeout = 20 * time.Millisecond
	svc := NewService(history.NewMemoryStore(10), cfg)

	doc := "[" + strings.Repeat(`{"id": 1},`, 2000) + `{"id": 2}]`
	body := &slowReader{delay: 40 * time.Millisecond, r: strings.NewReader(doc)}
	_, err := svc.Convert(context.Background(), ConvertRequest{FileName: "slow.json", Body: body})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Convert() error = %v, want deadline exceeded", err)
	}

	if active := svc.Status().Limiter.Active; active != 0 {
		t.Errorf("Limiter.Active = %d after timeout, want 0", active)
	}

	reads := body.reads.Load()
	time.Sleep(100 * time.Millisecond)
	if got := body.reads.Load(); got != reads {
		t.Errorf("body read %d more times after Convert returned", got-reads)
	}
	if reads != 1 {
		t.Errorf("body reads = %d, want 1", reads)
	}

	result, err := svc.Convert(context.Background(), ConvertRequest{FileName: "next.json", Body: strings.NewReader(`{"id": 1}`)})
	if err != nil {
		t.Fatalf("follow-up Convert() error = %v", err)
	}
	if result.Records != 1 {
		t.Errorf("Records = %d, want 1", result.Records)
	}
}

func TestService_HistoryStoreFailure(t *testing.T) {
	svc := NewService(&failingStore{}, testConfig())

	if _, err := svc.Convert(context.Background(), ConvertRequest{FileName: "a.json", Body: strings.NewReader(`{"id": 1}`)}); err != nil {
		t.Errorf("Convert() error = %v, want success despite history failure", err)
	}

	_, err := svc.History(context.Background(), 5)
	if !errors.Is(err, ErrHistoryUnavailable) {
		t.Errorf("History() error = %v, want ErrHistoryUnavailable", err)
	}
}

func TestService_HistoryLimit(t *testing.T) {
	svc, _ := newTestService(t)
	for i := 0; i < 12; i++ {
		_, _ = svc.Convert(context.Background(), ConvertRequest{FileName: "a.json", Body: strings.NewReader(`{"id": 1}`)})
	}

	entries, err := svc.History(context.Background(), 100)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 10 {
		t.Errorf("History(100) returned %d entries, want the configured limit 10", len(entries))
	}
}

func TestService_Status(t *testing.T) {
	svc, _ := newTestService(t)
	status := svc.Status()

	if status.HistoryBackend != "memory" {
		t.Errorf("HistoryBackend = %q, want memory", status.HistoryBackend)
	}
	if status.Limiter.MaxConcurrent != 2 {
		t.Errorf("Limiter.MaxConcurrent = %d, want 2", status.Limiter.MaxConcurrent)
	}
	if status.Columns != 26 {
		t.Errorf("Columns = %d, want 26", status.Columns)
	}
}

func TestConversionResult_Preview(t *testing.T) {
	r := &ConversionResult{CSV: "héllo,wörld"}

	tests := []struct {
		n         int
		want      string
		truncated bool
	}{
		{0, "", true},
		{5, "héllo", true},
		{11, "héllo,wörld", false},
		{200, "héllo,wörld", false},
	}

	for _, tt := range tests {
		got, truncated := r.Preview(tt.n)
		if got != tt.want || truncated != tt.truncated {
			t.Errorf("Preview(%d) = %q, %v; want %q, %v", tt.n, got, truncated, tt.want, tt.truncated)
		}
	}
}

func TestService_RetentionJob(t *testing.T) {
	store := history.NewMemoryStore(10)
	cfg := testConfig()
	cfg.History.Retention = time.Hour
	svc := NewService(store, cfg)

	ctx := context.Background()
	_ = store.Record(ctx, history.Entry{ID: "old", CreatedAt: time.Now().Add(-2 * time.Hour)})
	_ = store.Record(ctx, history.Entry{ID: "new", CreatedAt: time.Now()})

	svc.runRetentionJob(ctx, cfg.History.Retention)

	entries, _ := store.Recent(ctx, 0)
	if len(entries) != 1 || entries[0].ID != "new" {
		t.Errorf("entries after retention = %+v, want only new", entries)
	}
}

func TestService_RetentionDisabled(t *testing.T) {
	svc, _ := newTestService(t)

	done := make(chan struct{})
	go func() {
		svc.StartRetentionScheduler(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("StartRetentionScheduler should return when retention is disabled")
	}
}
