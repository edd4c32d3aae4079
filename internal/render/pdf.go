package render

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

const (
	marginMM   = 25.4
	bodyLineMM = 6.0
)

// RenderPDF writes the document as a Letter sized PDF with one inch margins.
func RenderPDF(w io.Writer, doc *Document) error {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(marginMM, marginMM, marginMM)
	pdf.SetAutoPageBreak(true, marginMM)
	pdf.SetTitle("Results letter", true)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 7, tr(doc.SenderName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	for _, line := range doc.SenderAddress {
		pdf.CellFormat(0, 5, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(10)

	pdf.SetFont("Times", "", 12)
	pdf.CellFormat(0, bodyLineMM, doc.DateLine(), "", 1, "L", false, 0, "")
	pdf.Ln(bodyLineMM)
	pdf.CellFormat(0, bodyLineMM, tr(fmt.Sprintf("Dear %s,", doc.Recipient)), "", 1, "L", false, 0, "")
	pdf.Ln(bodyLineMM / 2)

	for _, para := range doc.Paragraphs() {
		pdf.MultiCell(0, bodyLineMM, tr(para), "", "L", false)
		pdf.Ln(bodyLineMM / 2)
	}

	pdf.Ln(bodyLineMM)
	pdf.CellFormat(0, bodyLineMM, "Sincerely,", "", 1, "L", false, 0, "")
	pdf.Ln(bodyLineMM * 2)
	pdf.SetFont("Times", "B", 12)
	pdf.CellFormat(0, bodyLineMM, tr(doc.Signatory), "", 1, "L", false, 0, "")
	if doc.SignatoryTitle != "" {
		pdf.SetFont("Times", "I", 12)
		pdf.CellFormat(0, bodyLineMM, tr(doc.SignatoryTitle), "", 1, "L", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to lay out pdf: %w", err)
	}
	return pdf.Output(w)
}
