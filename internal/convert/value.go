package convert

// value.go holds helpers for inspecting and rendering raw JSON values.
//
// Records keep every field as json.RawMessage so nested arrays and objects are
// re-serialized with their original key order and number text. Nothing here
// returns an error: malformed fragments degrade to empty values.

import (
	"bytes"
	"encoding/json"
)

// Record is one flat record: field name to raw JSON value.
// A missing key and a JSON null are both treated as absent.
type Record map[string]json.RawMessage

// kind classifies a raw JSON value by its first significant byte.
type kind int

const (
	kindAbsent kind = iota
	kindNull
	kindString
	kindNumber
	kindBool
	kindObject
	kindArray
)

func kindOf(raw json.RawMessage) kind {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 {
		return kindAbsent
	}
	switch b[0] {
	case 'n':
		return kindNull
	case '"':
		return kindString
	case 't', 'f':
		return kindBool
	case '{':
		return kindObject
	case '[':
		return kindArray
	default:
		return kindNumber
	}
}

// Get returns the raw value of a field and whether it is present.
// Null values count as absent.
func (r Record) Get(name string) (json.RawMessage, bool) {
	raw, ok := r[name]
	if !ok {
		return nil, false
	}
	switch kindOf(raw) {
	case kindAbsent, kindNull:
		return nil, false
	}
	return raw, true
}

// clone returns a shallow copy of the record.
func (r Record) clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// decodeObject returns the fields of a JSON object, or false if raw is not one.
func decodeObject(raw json.RawMessage) (Record, bool) {
	if kindOf(raw) != kindObject {
		return nil, false
	}
	var fields Record
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false
	}
	if fields == nil {
		fields = Record{}
	}
	return fields, true
}

// decodeArray returns the elements of a JSON array, or false if raw is not one.
func decodeArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	if kindOf(raw) != kindArray {
		return nil, false
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, false
	}
	return elems, true
}

// compact returns raw without insignificant whitespace.
func compact(raw json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return bytes.TrimSpace(raw)
	}
	return buf.Bytes()
}

// joinArray serializes already-compacted elements as a JSON array.
func joinArray(elems [][]byte) string {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, e := range elems {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(e)
	}
	buf.WriteByte(']')
	return buf.String()
}

// render converts a present raw value to its cell text.
// Strings lose their quotes, numbers keep their source text, booleans
// render as true/false and nested structures render as compact JSON.
func render(raw json.RawMessage) string {
	switch kindOf(raw) {
	case kindAbsent, kindNull:
		return ""
	case kindString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return string(bytes.TrimSpace(raw))
		}
		return s
	case kindObject, kindArray:
		return string(compact(raw))
	default:
		return string(bytes.TrimSpace(raw))
	}
}

// pairObject builds {"name":...,"description":...} style objects from the
// given keys, omitting keys that are missing from fields.
func pairObject(fields Record, keys ...string) json.RawMessage {
	var buf bytes.Buffer
	buf.WriteByte('{')
	n := 0
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok || kindOf(raw) == kindAbsent {
			continue
		}
		if n > 0 {
			buf.WriteByte(',')
		}
		name, _ := json.Marshal(key)
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(compact(raw))
		n++
	}
	buf.WriteByte('}')
	return json.RawMessage(buf.Bytes())
}
