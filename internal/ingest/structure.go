package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// objectSchemaJSON accepts a single record: an object with at least one field.
// When the record wraps its data in "table", an array there must hold only
// objects and an object there needs at least one field. An empty array is
// left to the record count check. Other "table" values are plain fields.
const objectSchemaJSON = `{
	"type": "object",
	"minProperties": 1,
	"properties": {
		"table": {
			"anyOf": [
				{"type": "array", "items": {"type": "object"}},
				{"type": "object", "minProperties": 1},
				{"not": {"type": ["array", "object"]}}
			]
		}
	}
}`

// arraySchemaJSON accepts a non-empty array whose elements are all objects.
const arraySchemaJSON = `{
	"type": "array",
	"minItems": 1,
	"items": {"type": "object"}
}`

var (
	objectSchema = mustSchema(objectSchemaJSON)
	arraySchema  = mustSchema(arraySchemaJSON)
)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("ingest: invalid built-in schema: %v", err))
	}
	return schema
}

// ValidateStructure rejects documents that cannot hold records: scalars,
// empty arrays, arrays of non-objects and objects without fields, including
// those wrapped in a "table" envelope.
func ValidateStructure(raw json.RawMessage) error {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return ErrEmptyFile
	}

	var schema *gojsonschema.Schema
	switch trimmed[0] {
	case '{':
		schema = objectSchema
	case '[':
		schema = arraySchema
	default:
		return fmt.Errorf("%w: document must be a JSON object or an array of objects", ErrInvalidStructure)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidStructure, err)
	}
	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidStructure, strings.Join(details, "; "))
}
