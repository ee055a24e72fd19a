package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// MeasurementLine is the active-measurement summary printed on a report.
type MeasurementLine struct {
	WidthMM   string
	HeightMM  string
	DepthMM   string
	VolumeMM3 string
	Version   int
}

// ReportDocument carries everything needed to render a diagnostic report.
type ReportDocument struct {
	TrackingCode       string
	TissueType         string
	AnatomicalSite     string
	CollectionDate     time.Time
	PatientName        string
	PatientAge         int
	PatientSex         string
	PathologistName    string
	PathologistLicense string
	Status             string
	PrimaryDiagnosis   string
	SecondaryDiagnoses string
	Conclusion         string
	Recommendations    string
	DiagnosisCode      string
	IssuedAt           *time.Time
	ReleasedAt         *time.Time
	Measurement        *MeasurementLine
}

// RenderReportPDF renders a diagnostic report as an A4 PDF document.
func RenderReportPDF(doc ReportDocument) ([]byte, error) {
	if doc.TrackingCode == "" {
		return nil, fmt.Errorf("pdf requires a tracking code")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "PATHOLOGY REPORT", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Sample %s - %s", doc.TrackingCode, strings.ToUpper(doc.Status)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	field := func(label, value string) {
		if value == "" {
			return
		}
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(45, 7, label, "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 7, value, "", "", false)
	}
	section := func(title string) {
		pdf.Ln(3)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, title, "B", 1, "", false, 0, "")
		pdf.Ln(1)
	}

	section("Patient")
	field("Name", doc.PatientName)
	if doc.PatientAge > 0 {
		field("Age", fmt.Sprintf("%d", doc.PatientAge))
	}
	field("Sex", doc.PatientSex)

	section("Specimen")
	field("Tissue type", doc.TissueType)
	field("Anatomical site", doc.AnatomicalSite)
	if !doc.CollectionDate.IsZero() {
		field("Collected on", doc.CollectionDate.Format("2006-01-02"))
	}
	if m := doc.Measurement; m != nil {
		dims := fmt.Sprintf("%s x %s", m.WidthMM, m.HeightMM)
		if m.DepthMM != "" {
			dims += " x " + m.DepthMM
		}
		field("Dimensions (mm)", fmt.Sprintf("%s (version %d)", dims, m.Version))
		field("Volume (mm3)", m.VolumeMM3)
	}

	section("Diagnosis")
	field("Primary", doc.PrimaryDiagnosis)
	field("Secondary", doc.SecondaryDiagnoses)
	field("Code", doc.DiagnosisCode)

	section("Conclusion")
	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 7, doc.Conclusion, "", "", false)
	if doc.Recommendations != "" {
		section("Recommendations")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 7, doc.Recommendations, "", "", false)
	}

	section("Sign-off")
	field("Pathologist", doc.PathologistName)
	field("License", doc.PathologistLicense)
	if doc.IssuedAt != nil {
		field("Issued on", doc.IssuedAt.Format("2006-01-02"))
	}
	if doc.ReleasedAt != nil {
		field("Released on", doc.ReleasedAt.Format("2006-01-02"))
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
