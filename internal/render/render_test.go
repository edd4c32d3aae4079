package render

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() *Document {
	return &Document{
		SenderName:     "Riverside Surgery",
		SenderAddress:  []string{"1 River Road", "Leeds"},
		Date:           time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC),
		Recipient:      "Ms. Jane Roe",
		Body:           "Your results are back.\r\n\r\n- Sodium: 140\n- Potassium: 4.1\n\n\n\nPlease call us. £5 café",
		Signatory:      "Dr A. Smith",
		SignatoryTitle: "General Practitioner",
	}
}

func TestParagraphs(t *testing.T) {
	doc := sampleDocument()
	assert.Equal(t, []string{
		"Your results are back.",
		"- Sodium: 140\n- Potassium: 4.1",
		"Please call us. £5 café",
	}, doc.Paragraphs())
	assert.Equal(t, "March 5, 2024", doc.DateLine())
}

func TestRenderPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPDF(&buf, sampleDocument()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 500)
}

func TestRenderHTML(t *testing.T) {
	doc := sampleDocument()
	doc.Body = "Hello <script>alert(1)</script>\nsecond line"

	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, doc))
	out := buf.String()

	assert.Contains(t, out, "Riverside Surgery")
	assert.Contains(t, out, "<div>1 River Road</div>")
	assert.Contains(t, out, "March 5, 2024")
	assert.Contains(t, out, "Dear Ms. Jane Roe,")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "<br>second line")
	assert.Contains(t, out, `<div class="title">General Practitioner</div>`)
}
