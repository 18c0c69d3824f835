package convert

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidNullPolicy is returned by ParseNullPolicy for unknown names.
var ErrInvalidNullPolicy = errors.New("invalid null policy")

// NullPolicy decides how a missing value is written to a cell.
type NullPolicy string

const (
	// NullEmpty writes missing values as empty cells.
	NullEmpty NullPolicy = "empty"
	// NullLiteral writes missing values as the text NULL.
	NullLiteral NullPolicy = "null"
)

// DefaultNullPolicy is used when no policy is configured.
const DefaultNullPolicy = NullEmpty

// ParseNullPolicy parses "empty" or "null" (case-insensitive). An empty
// string yields DefaultNullPolicy.
func ParseNullPolicy(s string) (NullPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultNullPolicy, nil
	case string(NullEmpty):
		return NullEmpty, nil
	case string(NullLiteral):
		return NullLiteral, nil
	default:
		return "", fmt.Errorf("%w %q: must be one of: empty, null", ErrInvalidNullPolicy, s)
	}
}

// Placeholder returns the cell text written for a missing value.
func (p NullPolicy) Placeholder() string {
	if p == NullLiteral {
		return "NULL"
	}
	return ""
}

// Encoder writes records as CSV text using the fixed Schema.
// An Encoder holds no mutable state and is safe for concurrent use.
type Encoder struct {
	policy  NullPolicy
	columns []Column
}

// NewEncoder returns an encoder that renders missing values per policy.
// Unknown policies fall back to DefaultNullPolicy.
func NewEncoder(policy NullPolicy) *Encoder {
	if policy != NullEmpty && policy != NullLiteral {
		policy = DefaultNullPolicy
	}
	return &Encoder{policy: policy, columns: Schema}
}

// Policy reports the encoder's null policy.
func (e *Encoder) Policy() NullPolicy {
	return e.policy
}

// Header returns the header row.
func (e *Encoder) Header() string {
	names := make([]string, len(e.columns))
	for i, col := range e.columns {
		names[i] = Escape(col.Name)
	}
	return strings.Join(names, ",")
}

// Fields resolves a record against every column, before escaping.
func (e *Encoder) Fields(r Record) []string {
	fields := make([]string, len(e.columns))
	for i, col := range e.columns {
		text, ok := col.Resolve(r)
		if !ok {
			text = e.policy.Placeholder()
		}
		fields[i] = text
	}
	return fields
}

// Row returns one escaped CSV line for the record.
func (e *Encoder) Row(r Record) string {
	fields := e.Fields(r)
	for i, f := range fields {
		fields[i] = Escape(f)
	}
	return strings.Join(fields, ",")
}

// Encode returns the header followed by one row per record, separated by
// "\n" with no trailing newline.
func (e *Encoder) Encode(records []Record) string {
	var b strings.Builder
	b.WriteString(e.Header())
	for _, r := range records {
		b.WriteByte('\n')
		b.WriteString(e.Row(r))
	}
	return b.String()
}

// Escape quotes a cell when it contains a comma, a double quote or a line
// break, doubling any embedded quotes.
func Escape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Convert flattens a classified document and encodes it in one step.
func Convert(in Input, policy NullPolicy) string {
	return NewEncoder(policy).Encode(Flatten(in))
}
