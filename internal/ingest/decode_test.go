package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

func TestDecodeEmptyPayload(t *testing.T) {
	for _, payload := range [][]byte{nil, []byte(""), []byte("  \n\t "), []byte("\xEF\xBB\xBF")} {
		_, err := Decode("results.csv", payload)
		assert.ErrorIs(t, err, ErrEmptyPayload)
	}
}

func TestDecodeCSV(t *testing.T) {
	payload := []byte("Test Name,Result,Units\nSodium,139,mmol/L\nPotassium,4.1\n")

	table, err := Decode("results.csv", payload)
	require.NoError(t, err)

	assert.Equal(t, []string{"Test Name", "Result", "Units"}, table.Header)
	require.Len(t, table.Records, 2)

	rows := table.Rows()
	assert.Equal(t, Cell{Header: "Units", Value: ""}, rows[1][2])
}

func TestDecodeStripsUTF8BOM(t *testing.T) {
	table, err := Decode("r.csv", []byte("\xEF\xBB\xBFTest,Value\nNa,140\n"))
	require.NoError(t, err)
	assert.Equal(t, "Test", table.Header[0])
}

func TestDecodeUTF16WithBOM(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	payload, _, err := transform.Bytes(enc, []byte("Test,Value\nCréatinine,88\n"))
	require.NoError(t, err)

	table, err := Decode("r.csv", payload)
	require.NoError(t, err)
	require.Len(t, table.Records, 1)
	assert.Equal(t, "Créatinine", table.Records[0][0])
}

func TestDecodeWindows1252Fallback(t *testing.T) {
	table, err := Decode("r.csv", []byte("Test,Value\nH\xe9moglobin,13.5\n"))
	require.NoError(t, err)
	require.Len(t, table.Records, 1)
	assert.Equal(t, "Hémoglobin", table.Records[0][0])
}

func TestDecodeSniffsDelimiter(t *testing.T) {
	table, err := Decode("r.csv", []byte("Test;Value;Reference Range\nGlucose;5,4;3,9-5,6\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Glucose", "5,4", "3,9-5,6"}, table.Records[0])

	table, err = Decode("r.tsv", []byte("Test\tValue\nGlucose\t5.4\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Glucose", "5.4"}, table.Records[0])
}

func TestDecodeToleratesStrayQuotes(t *testing.T) {
	table, err := Decode("r.csv", []byte("Test,Value\nVitamin \"D\",50\n"))
	require.NoError(t, err)
	require.Len(t, table.Records, 1)
	assert.Equal(t, "50", table.Records[0][1])
}

func TestDecodeUnterminatedQuote(t *testing.T) {
	table, err := Decode("r.csv", []byte("Test,Value\nA,\"1\nB,2\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, table.Malformed)
	require.Len(t, table.Records, 1)
	assert.Equal(t, []string{"B", "2"}, table.Records[0])
}

func TestDecodeWorkbook(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Test Name", "Result", "Reference Range"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"TSH", "2.1", "0.4-4.0"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]interface{}{"Free T4", "14"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	// detected by signature even without the extension
	table, err := Decode("upload.bin", buf.Bytes())
	require.NoError(t, err)

	assert.Equal(t, []string{"Test Name", "Result", "Reference Range"}, table.Header)
	require.Len(t, table.Records, 2)
	assert.Equal(t, "Free T4", table.Records[1][0])
	assert.Equal(t, 1, table.Blank)
}

func TestDecodeUnreadableWorkbook(t *testing.T) {
	_, err := Decode("broken.xlsx", []byte("definitely not a zip archive"))
	assert.ErrorIs(t, err, ErrUnreadableWorkbook)
}
