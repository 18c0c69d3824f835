// Package ingest reads an uploaded JSON file and turns it into a classified
// document ready for conversion.
//
// Everything that can fail lives here: file type and size checks, decoding,
// parsing and structural validation. Once Load returns a Document, converting
// it cannot fail.
package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/harmonizer/internal/convert"
)

// DefaultMaxFileSize is the upload limit used when none is configured (10MB).
const DefaultMaxFileSize = 10 * 1024 * 1024

// Sentinel errors. Callers match with errors.Is; messages are mapped to user
// text by core.MapError.
var (
	ErrInvalidFileType  = errors.New("invalid file type: only .json files are accepted")
	ErrFileTooLarge     = errors.New("file too large")
	ErrEmptyFile        = errors.New("empty file")
	ErrInvalidJSON      = errors.New("json parse error")
	ErrInvalidStructure = errors.New("invalid document structure")
	ErrNoRecords        = errors.New("no records found")
)

// Document is a parsed upload.
type Document struct {
	FileName     string
	DownloadName string
	Raw          json.RawMessage
	Input        convert.Input
	Records      int
	// Size is the number of bytes received, before decoding.
	Size int64
	// TrailingBytes counts non-whitespace bytes ignored after the JSON value.
	TrailingBytes int
}

// Load validates the file name, reads at most maxSize bytes from r and parses
// the result. A maxSize <= 0 uses DefaultMaxFileSize.
func Load(fileName string, r io.Reader, maxSize int64) (*Document, error) {
	if err := ValidateFileName(fileName); err != nil {
		return nil, err
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	reader, counter := WrapUpload(r, maxSize)
	data, err := io.ReadAll(reader)
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return nil, fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, maxSize)
		}
		return nil, fmt.Errorf("read upload: %w", err)
	}

	raw, trailing, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if err := ValidateStructure(raw); err != nil {
		return nil, err
	}

	in := convert.Classify(raw)
	records := convert.Len(in)
	if records == 0 {
		return nil, ErrNoRecords
	}

	return &Document{
		FileName:      fileName,
		DownloadName:  DownloadName(fileName),
		Raw:           raw,
		Input:         in,
		Records:       records,
		Size:          counter.BytesRead,
		TrailingBytes: trailing,
	}, nil
}

// ValidateFileName accepts names ending in .json, in any letter case.
func ValidateFileName(name string) error {
	if !strings.HasSuffix(strings.ToLower(strings.TrimSpace(name)), ".json") {
		return fmt.Errorf("%w: %q", ErrInvalidFileType, name)
	}
	return nil
}

// Parse decodes the first JSON value in data. Content after that value is
// ignored and its length is returned, so exports with trailing junk (log
// lines, a stray brace) still convert.
func Parse(data []byte) (json.RawMessage, int, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, 0, ErrEmptyFile
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, 0, describeSyntaxError(data, err)
	}

	trailing := len(bytes.TrimSpace(data[dec.InputOffset():]))
	return raw, trailing, nil
}

// describeSyntaxError turns a decoder error into a message with a line and
// column the user can look up in an editor.
func describeSyntaxError(data []byte, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := position(data, syntaxErr.Offset)
		return fmt.Errorf("%w: %s at line %d, column %d", ErrInvalidJSON, syntaxErr.Error(), line, col)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: unexpected end of JSON input", ErrInvalidJSON)
	}
	return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
}

// position converts a byte offset to a 1-based line and column.
func position(data []byte, offset int64) (int, int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	before := data[:offset]
	line := bytes.Count(before, []byte("\n")) + 1
	col := len(before) - bytes.LastIndexByte(before, '\n')
	return line, col
}

// DownloadName derives the CSV file name: "models.json" -> "models_converted.csv".
// Directory components are dropped.
func DownloadName(fileName string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(fileName), `\`, "/"))
	if strings.HasSuffix(strings.ToLower(base), ".json") {
		base = base[:len(base)-len(".json")]
	}
	if base == "" || base == "." || base == "/" {
		base = "export"
	}
	return base + "_converted.csv"
}
