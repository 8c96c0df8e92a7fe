package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/scolaria/scolaria-api/internal/models"
)

// ReportCardPDF renders a computed report card into an A4 document.
type ReportCardPDF struct{}

// NewReportCardPDF constructs a report card renderer.
func NewReportCardPDF() *ReportCardPDF {
	return &ReportCardPDF{}
}

// Render produces the PDF bytes for a report card view.
func (e *ReportCardPDF) Render(view models.ReportCardView) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, fmt.Sprintf("BULLETIN - %s", view.TermName), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Student: %s (%s)", view.StudentName, view.RegistrationNo), "", 1, "", false, 0, "")
	if view.ClassName != "" {
		pdf.CellFormat(0, 6, fmt.Sprintf("Class: %s", view.ClassName), "", 1, "", false, 0, "")
	}
	pdf.CellFormat(0, 6, fmt.Sprintf("Academic year: %s", view.AcademicYear), "", 1, "", false, 0, "")
	pdf.Ln(4)

	widths := []float64{80, 25, 40, 45}
	headers := []string{"Subject", "Coef", "Average", "Class average"}
	pdf.SetFont("Arial", "B", 10)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, subject := range view.Subjects {
		classAvg := "-"
		if subject.ClassAverage != nil {
			classAvg = fmt.Sprintf("%.2f", *subject.ClassAverage)
		}
		pdf.CellFormat(widths[0], 7, subject.SubjectName, "1", 0, "", false, 0, "")
		pdf.CellFormat(widths[1], 7, fmt.Sprintf("%d", subject.Coefficient), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[2], 7, fmt.Sprintf("%.2f", subject.Average), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[3], 7, classAvg, "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Overall average: %.2f / 20", view.OverallAverage), "", 1, "", false, 0, "")
	if view.Rank != nil && view.ClassSize != nil {
		pdf.CellFormat(0, 7, fmt.Sprintf("Rank: %d / %d", *view.Rank, *view.ClassSize), "", 1, "", false, 0, "")
	}

	pdf.SetFont("Arial", "", 10)
	if view.Appreciation != "" {
		pdf.Ln(2)
		pdf.MultiCell(0, 6, fmt.Sprintf("Appreciation: %s", view.Appreciation), "", "", false)
	}
	if view.Decision != "" {
		pdf.MultiCell(0, 6, fmt.Sprintf("Decision: %s", view.Decision), "", "", false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render report card pdf: %w", err)
	}
	return buf.Bytes(), nil
}
