package ingest

import "strings"

// Field is a canonical result column.
type Field int

const (
	FieldTestName Field = iota
	FieldValue
	FieldUnit
	FieldFlag
	FieldReferenceRange
)

// Synonyms lists, per canonical field, the normalized headers that may carry
// it. Earlier candidates win when more than one is present and non-empty.
var Synonyms = map[Field][]string{
	FieldTestName:       {"test name", "test"},
	FieldValue:          {"result", "value"},
	FieldUnit:           {"units"},
	FieldFlag:           {"flag"},
	FieldReferenceRange: {"reference range"},
}

// Cell is one header/value pair from a raw row, in file column order.
type Cell struct {
	Header string
	Value  string
}

// RawRow is a row as read from the file.
type RawRow []Cell

// Row maps normalized headers to trimmed values.
type Row map[string]string

// Line is a row resolved onto the canonical fields.
type Line struct {
	TestName       string
	Value          string
	Unit           string
	Flag           string
	ReferenceRange string
}

// Normalize trims and lower-cases headers, trims values and drops cells with
// an empty header. When a header repeats, the first non-empty value is kept.
func Normalize(raw RawRow) Row {
	row := make(Row, len(raw))
	for _, cell := range raw {
		key := strings.ToLower(strings.TrimSpace(cell.Header))
		if key == "" {
			continue
		}
		value := strings.TrimSpace(cell.Value)
		if existing, ok := row[key]; ok && existing != "" {
			continue
		}
		row[key] = value
	}
	return row
}

// Resolve returns the first non-empty candidate value for f.
func (r Row) Resolve(f Field) string {
	for _, candidate := range Synonyms[f] {
		if v := r[candidate]; v != "" {
			return v
		}
	}
	return ""
}

func (r Row) Line() Line {
	return Line{
		TestName:       r.Resolve(FieldTestName),
		Value:          r.Resolve(FieldValue),
		Unit:           r.Resolve(FieldUnit),
		Flag:           r.Resolve(FieldFlag),
		ReferenceRange: r.Resolve(FieldReferenceRange),
	}
}
