package ingest

// reader.go provides the readers an upload passes through before parsing:
//
//   - CountingReader: tracks raw bytes read and enforces the size limit
//   - NewDecodingReader: drops a UTF-8 BOM, transcodes UTF-16 (BOM-detected)
//     and replaces invalid UTF-8 with U+FFFD
//
// Use WrapUpload to apply both in the correct order. NewContextReader stops
// reading once a conversion is cancelled or times out.

import (
	"context"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CountingReader wraps an io.Reader to track bytes read.
// When Limit is positive, reading past it fails with ErrFileTooLarge.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Limit     int64
}

// NewCountingReader creates a counting reader. A limit <= 0 disables the check.
func NewCountingReader(r io.Reader, limit int64) *CountingReader {
	return &CountingReader{
		reader: r,
		Limit:  limit,
	}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	if r.Limit > 0 && r.BytesRead > r.Limit {
		return n, ErrFileTooLarge
	}
	return n, err
}

// NewDecodingReader returns a reader producing UTF-8 text from r.
// A leading BOM selects UTF-8, UTF-16LE or UTF-16BE and is removed; without
// one the input is treated as UTF-8.
func NewDecodingReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// WrapUpload applies the size limit to the raw bytes, then decoding.
// The returned CountingReader reports the raw upload size.
//
// The order matters: the limit applies to what the client sent, not to the
// transcoded text (UTF-16 input shrinks when decoded).
func WrapUpload(r io.Reader, limit int64) (io.Reader, *CountingReader) {
	counter := NewCountingReader(r, limit)
	return NewDecodingReader(counter), counter
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

// NewContextReader returns a reader that fails with ctx.Err() once ctx is
// done. A Read already blocked in r returns first; for uploads the server's
// read timeout bounds that.
func NewContextReader(ctx context.Context, r io.Reader) io.Reader {
	return &contextReader{ctx: ctx, r: r}
}

func (r *contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := r.r.Read(p)
	if ctxErr := r.ctx.Err(); ctxErr != nil {
		return n, ctxErr
	}
	return n, err
}
