package convert

import "encoding/json"

// envelopeKey is the wrapper key some exports nest the real record under.
const envelopeKey = "table"

// Input is the shape of a decoded document, resolved once by Classify.
// It is one of ArrayInput, RecordInput or EnvelopedInput.
type Input interface {
	isInput()
}

// Item is a single element of a document: RecordInput or EnvelopedInput.
type Item interface {
	Input
	isItem()
}

// ArrayInput is a document holding a sequence of records, each classified
// on its own.
type ArrayInput struct {
	Items []Item
}

// RecordInput is a plain object used as a record.
type RecordInput struct {
	Fields Record
}

// EnvelopedInput is an object whose record lives under the "table" key.
// Fields holds the nested object's fields.
type EnvelopedInput struct {
	Fields Record
}

func (ArrayInput) isInput()     {}
func (RecordInput) isInput()    {}
func (EnvelopedInput) isInput() {}
func (RecordInput) isItem()     {}
func (EnvelopedInput) isItem()  {}

// Classify resolves the shape of a parsed JSON document.
//
//   - an array becomes an ArrayInput, one Item per element
//   - an object with "table" holding an object becomes an EnvelopedInput
//   - an object with "table" holding an array becomes an ArrayInput of its elements
//   - any other object becomes a RecordInput
//
// Scalars and malformed input classify as an empty RecordInput; callers are
// expected to reject those before converting.
func Classify(raw json.RawMessage) Input {
	if elems, ok := decodeArray(raw); ok {
		return classifyArray(elems)
	}

	fields, ok := decodeObject(raw)
	if !ok {
		return RecordInput{Fields: Record{}}
	}

	if elems, ok := decodeArray(fields[envelopeKey]); ok {
		return classifyArray(elems)
	}
	return classifyItem(fields)
}

// Len returns the number of records the input will flatten to.
func Len(in Input) int {
	switch v := in.(type) {
	case ArrayInput:
		return len(v.Items)
	case RecordInput, EnvelopedInput:
		return 1
	default:
		return 0
	}
}

func classifyArray(elems []json.RawMessage) ArrayInput {
	items := make([]Item, 0, len(elems))
	for _, elem := range elems {
		fields, ok := decodeObject(elem)
		if !ok {
			fields = Record{}
		}
		items = append(items, classifyItem(fields))
	}
	return ArrayInput{Items: items}
}

func classifyItem(fields Record) Item {
	if inner, ok := decodeObject(fields[envelopeKey]); ok {
		return EnvelopedInput{Fields: inner}
	}
	return RecordInput{Fields: fields}
}
