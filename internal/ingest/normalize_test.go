package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHeaders(t *testing.T) {
	row := Normalize(RawRow{
		{Header: "  Test Name ", Value: " Sodium "},
		{Header: "RESULT", Value: "139"},
		{Header: "", Value: "ignored"},
		{Header: "Units", Value: "mmol/L"},
	})

	assert.Equal(t, Row{"test name": "Sodium", "result": "139", "units": "mmol/L"}, row)
}

func TestNormalizeDuplicateHeaderFirstNonEmptyWins(t *testing.T) {
	row := Normalize(RawRow{
		{Header: "Flag", Value: ""},
		{Header: "flag", Value: "H"},
		{Header: "FLAG", Value: "L"},
	})

	assert.Equal(t, "H", row["flag"])
}

func TestResolveSynonymPrecedence(t *testing.T) {
	tests := []struct {
		name string
		row  Row
		want Line
	}{
		{
			name: "preferred headers",
			row:  Row{"test name": "Glucose", "result": "5.2", "units": "mmol/L", "flag": "N", "reference range": "3.9-5.6"},
			want: Line{TestName: "Glucose", Value: "5.2", Unit: "mmol/L", Flag: "N", ReferenceRange: "3.9-5.6"},
		},
		{
			name: "alternate headers",
			row:  Row{"test": "ALT", "value": "30"},
			want: Line{TestName: "ALT", Value: "30"},
		},
		{
			name: "test name beats test",
			row:  Row{"test": "short", "test name": "long", "result": "1"},
			want: Line{TestName: "long", Value: "1"},
		},
		{
			name: "empty result falls through to value",
			row:  Row{"test": "HbA1c", "result": "", "value": "6.1"},
			want: Line{TestName: "HbA1c", Value: "6.1"},
		},
		{
			name: "unknown columns ignored",
			row:  Row{"analyte": "Na", "reading": "140"},
			want: Line{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.row.Line())
		})
	}
}

func TestAccept(t *testing.T) {
	assert.True(t, Accept(Line{TestName: "Na", Value: "140"}))
	assert.False(t, Accept(Line{TestName: "Na"}))
	assert.False(t, Accept(Line{Value: "140"}))
	assert.False(t, Accept(Line{TestName: "  ", Value: "140"}))
}
