package ingest

import "strings"

// Accept reports whether a line carries enough to become a result.
func Accept(l Line) bool {
	return strings.TrimSpace(l.TestName) != "" && strings.TrimSpace(l.Value) != ""
}
