package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// OfferLetter carries the fields printed on a placement offer letter.
type OfferLetter struct {
	SchoolName     string
	Reference      string
	ApplicantName  string
	GradeApplied   string
	ClassOffered   string
	GuardianName   string
	OfferedAt      time.Time
	AcceptDeadline time.Time
}

// PDFExporter renders admission documents as PDF bytes.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RenderOfferLetter creates a single-page placement offer letter.
func (e *PDFExporter) RenderOfferLetter(letter OfferLetter) ([]byte, error) {
	if letter.ApplicantName == "" || letter.ClassOffered == "" {
		return nil, fmt.Errorf("offer letter requires applicant name and class")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, strings.ToUpper(letter.SchoolName), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, "Office of Admissions", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Ref: %s", letter.Reference), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Date: %s", letter.OfferedAt.Format("2 January 2006")), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "OFFER OF PLACEMENT", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 11)
	body := fmt.Sprintf(
		"Dear %s,\n\nWe are pleased to inform you that %s has been offered a place in %s for the %s intake. "+
			"Please confirm acceptance of this offer and complete the admission payment by %s to secure the placement.\n\n"+
			"This offer lapses automatically if not accepted by the stated date.",
		letter.GuardianName,
		letter.ApplicantName,
		letter.ClassOffered,
		letter.GradeApplied,
		letter.AcceptDeadline.Format("2 January 2006"),
	)
	pdf.MultiCell(0, 6, body, "", "L", false)
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 6, "Yours faithfully,", "", 1, "L", false, 0, "")
	pdf.Ln(10)
	pdf.CellFormat(0, 6, "Admissions Office", "", 1, "L", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render offer letter: %w", err)
	}
	return buf.Bytes(), nil
}
