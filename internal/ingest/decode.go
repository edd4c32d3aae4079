package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	ErrEmptyPayload       = errors.New("uploaded file is empty")
	ErrUnreadableWorkbook = errors.New("uploaded workbook cannot be read")
	ErrUndecodableText    = errors.New("uploaded file is not readable text")
)

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
	zipMagic   = []byte("PK\x03\x04")
)

var delimiters = []rune{',', ';', '\t'}

// Table is a decoded upload: the header row, the data records, the number
// of records that could not be parsed and the number of blank lines or rows
// after the header.
type Table struct {
	Header    []string
	Records   [][]string
	Malformed int
	Blank     int
}

// Rows pairs every record with the header. Missing trailing fields read as
// empty and fields beyond the header are dropped.
func (t *Table) Rows() []RawRow {
	rows := make([]RawRow, 0, len(t.Records))
	for _, rec := range t.Records {
		row := make(RawRow, len(t.Header))
		for i, h := range t.Header {
			row[i].Header = h
			if i < len(rec) {
				row[i].Value = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// Decode turns an uploaded file into a table. Workbooks are recognised by
// extension or by their ZIP signature; anything else is read as delimited
// text.
func Decode(name string, payload []byte) (*Table, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, ErrEmptyPayload
	}

	if isWorkbook(name, payload) {
		return decodeWorkbook(payload)
	}

	text, err := decodeText(payload)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyPayload
	}

	return decodeDelimited(text)
}

func isWorkbook(name string, payload []byte) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return bytes.HasPrefix(payload, zipMagic)
}

// decodeText returns payload as a UTF-8 string. UTF-8 and UTF-16 byte order
// marks are honoured; bytes that are not valid UTF-8 are read as Windows-1252.
func decodeText(payload []byte) (string, error) {
	switch {
	case bytes.HasPrefix(payload, utf8BOM):
		return string(payload[len(utf8BOM):]), nil
	case bytes.HasPrefix(payload, utf16LEBOM), bytes.HasPrefix(payload, utf16BEBOM):
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), payload)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUndecodableText, err)
		}
		return string(out), nil
	case utf8.Valid(payload):
		return string(payload), nil
	default:
		out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), payload)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUndecodableText, err)
		}
		return string(out), nil
	}
}

// sniffDelimiter picks the candidate that occurs most often on line.
func sniffDelimiter(line string) rune {
	best, bestCount := ',', 0
	for _, d := range delimiters {
		if n := strings.Count(line, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// splitLines breaks text on LF or CRLF. Trailing line breaks at the end of
// the file do not produce lines.
func splitLines(text string) []string {
	text = strings.TrimRight(text, "\r\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// parseLine reads one line as a single record. Bare quotes inside a field
// are tolerated; a quoted field left open is an error, so it can never
// swallow the lines after it.
func parseLine(line string, comma rune) ([]string, error) {
	read := func(lazy bool) ([]string, error) {
		r := csv.NewReader(strings.NewReader(line))
		r.Comma = comma
		r.LazyQuotes = lazy
		r.FieldsPerRecord = -1
		return r.Read()
	}

	rec, err := read(false)
	if errors.Is(err, csv.ErrBareQuote) {
		rec, err = read(true)
	}
	return rec, err
}

// decodeDelimited treats every physical line as one record. The first
// non-blank line is the header. Later blank lines and lines that fail to
// parse are counted, not returned.
func decodeDelimited(text string) (*Table, error) {
	t := &Table{}
	var comma rune
	headerRead := false

	for _, line := range splitLines(text) {
		blank := strings.TrimSpace(line) == ""
		if !headerRead {
			if blank {
				continue
			}
			headerRead = true
			comma = sniffDelimiter(line)
			rec, err := parseLine(line, comma)
			if err != nil {
				// Without a header no row resolves to a canonical field,
				// so every row ends up skipped.
				continue
			}
			t.Header = rec
			continue
		}

		if blank {
			t.Blank++
			continue
		}
		rec, err := parseLine(line, comma)
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, fmt.Errorf("failed to read delimited text: %w", err)
			}
			t.Malformed++
			continue
		}
		t.Records = append(t.Records, rec)
	}

	return t, nil
}

func decodeWorkbook(payload []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyPayload
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}

	t := &Table{}
	for _, row := range rows {
		if isBlank(row) {
			if t.Header != nil {
				t.Blank++
			}
			continue
		}
		if t.Header == nil {
			t.Header = row
			continue
		}
		t.Records = append(t.Records, row)
	}
	if t.Header == nil {
		return nil, ErrEmptyPayload
	}

	return t, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
