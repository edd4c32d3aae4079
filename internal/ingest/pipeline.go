package ingest

// Entry is an accepted line with its reference range split.
type Entry struct {
	TestName string
	Value    string
	Unit     string
	Flag     string
	Range    Bounds
}

// Outcome is the result of folding every row of a table.
type Outcome struct {
	Accepted []Entry
	Skipped  int
}

// Fold runs each row through normalization, validation and range splitting,
// keeping file order. Records the decoder could not parse and blank lines
// after the header count as skipped.
func Fold(t *Table, policy RangePolicy) Outcome {
	out := Outcome{Skipped: t.Malformed + t.Blank}
	for _, raw := range t.Rows() {
		line := Normalize(raw).Line()
		if !Accept(line) {
			out.Skipped++
			continue
		}
		out.Accepted = append(out.Accepted, Entry{
			TestName: line.TestName,
			Value:    line.Value,
			Unit:     line.Unit,
			Flag:     line.Flag,
			Range:    policy.Split(line.ReferenceRange),
		})
	}
	return out
}
