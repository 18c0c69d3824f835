package convert

import "encoding/json"

// Flatten turns a classified document into flat records, one per input
// record and in input order. It never fails: missing fields stay missing and
// are resolved by the encoder.
func Flatten(in Input) []Record {
	switch v := in.(type) {
	case ArrayInput:
		records := make([]Record, 0, len(v.Items))
		for _, item := range v.Items {
			records = append(records, flattenItem(item))
		}
		return records
	case Item:
		return []Record{flattenItem(v)}
	default:
		return nil
	}
}

func flattenItem(item Item) Record {
	var record Record
	switch v := item.(type) {
	case EnvelopedInput:
		record = v.Fields.clone()
	case RecordInput:
		record = v.Fields.clone()
	default:
		record = Record{}
	}

	if tools, ok := flattenTools(record["tools"]); ok {
		record["tools"] = tools
	}
	return record
}

// flattenTools replaces enveloped tool entries with their name and
// description. Entries without an envelope are kept as they are.
func flattenTools(raw json.RawMessage) (json.RawMessage, bool) {
	entries, ok := decodeArray(raw)
	if !ok {
		return nil, false
	}

	out := make([][]byte, len(entries))
	for i, entry := range entries {
		out[i] = compact(entry)

		fields, ok := decodeObject(entry)
		if !ok {
			continue
		}
		if _, wrapped := fields[envelopeKey]; !wrapped {
			continue
		}
		if inner, ok := decodeObject(fields[envelopeKey]); ok {
			out[i] = pairObject(inner, "name", "description")
		}
	}
	return json.RawMessage(joinArray(out)), true
}
