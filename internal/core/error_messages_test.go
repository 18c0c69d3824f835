package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/JonMunkholm/harmonizer/internal/ingest"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"file too large", fmt.Errorf("%w: exceeds 10 bytes", ingest.ErrFileTooLarge), "FILE001"},
		{"http body limit", errors.New("http: request body too large"), "FILE001"},
		{"wrong extension", fmt.Errorf("%w: %q", ingest.ErrInvalidFileType, "a.csv"), "FILE002"},
		{"no file", ErrNoFile, "FILE004"},
		{"empty file", ingest.ErrEmptyFile, "FILE005"},
		{"malformed multipart", fmt.Errorf("%w: boundary missing", ErrMalformedUpload), "FILE006"},
		{"syntax error", fmt.Errorf("%w: invalid character at line 3, column 2", ingest.ErrInvalidJSON), "JSON001"},
		{"structure", fmt.Errorf("%w: items must be objects", ingest.ErrInvalidStructure), "JSON002"},
		{"no records", ingest.ErrNoRecords, "JSON003"},
		{"null policy", errors.New(`invalid null policy "nil": must be one of: empty, null`), "UPL001"},
		{"busy", ErrTooManyConversions, "UPL002"},
		{"history", fmt.Errorf("%w: connection refused", ErrHistoryUnavailable), "UPL003"},
		{"cancelled", context.Canceled, "UPL004"},
		{"timeout", context.DeadlineExceeded, "UPL005"},
		{"rate limit", errors.New("rate limit exceeded"), "RATE001"},
		{"unknown", errors.New("some random internal error"), "ERR000"},
		{"case insensitive", errors.New("JSON PARSE ERROR: unexpected end"), "JSON001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.err != nil && got.Message == "" {
				t.Error("MapError() returned an empty message")
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}

	got := FormatUserError(ingest.ErrEmptyFile)
	want := "The uploaded file is empty (Code: FILE005). Please upload a JSON export that contains records"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("IsUserFacing(nil) = true")
	}
	if !IsUserFacing(ingest.ErrNoRecords) {
		t.Error("IsUserFacing(ErrNoRecords) = false")
	}
	if IsUserFacing(errors.New("pool exhausted")) {
		t.Error("IsUserFacing(unknown) = true")
	}
}

func TestUserError(t *testing.T) {
	if NewUserError(nil) != nil {
		t.Error("NewUserError(nil) should be nil")
	}

	technical := fmt.Errorf("%w: invalid character 'o' at line 3, column 3", ingest.ErrInvalidJSON)
	ue := NewUserError(technical)

	if ue.Error() != "File is not valid JSON" {
		t.Errorf("Error() = %q", ue.Error())
	}
	if !errors.Is(ue, ingest.ErrInvalidJSON) {
		t.Error("errors.Is(ue, ErrInvalidJSON) = false")
	}
	if !strings.Contains(ue.Detail(), "line 3") {
		t.Errorf("Detail() = %q, want the parse position", ue.Detail())
	}

	internal := NewUserError(errors.New("pgx: pool closed"))
	if internal.Detail() != "" {
		t.Errorf("Detail() leaked internal error: %q", internal.Detail())
	}
}
