// Package convert turns JSON exports into CSV.
//
// A document is classified once with [Classify], flattened into records with
// [Flatten] and written with an [Encoder] against the fixed [Schema]:
//
//	in := convert.Classify(raw)
//	csv := convert.NewEncoder(convert.NullEmpty).Encode(convert.Flatten(in))
//
// Conversion is total. Any record shape produces exactly one row of
// len(Schema) fields; missing values are written according to the encoder's
// [NullPolicy].
package convert
