package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// CertificateDocument carries the printed fields of a training certificate.
type CertificateDocument struct {
	Organisation   string
	Number         string
	StudentName    string
	FormationTitle string
	IssueDate      string
	FinalGrade     string
	AttendanceRate string
	Mention        string
	Revoked        bool
}

// RenderCertificate draws a landscape A4 certificate.
func RenderCertificate(doc CertificateDocument) ([]byte, error) {
	if doc.Number == "" || doc.StudentName == "" {
		return nil, fmt.Errorf("certificate number and student name required")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetLineWidth(1.2)
	pdf.SetDrawColor(31, 56, 100)
	pdf.Rect(10, 10, 277, 190, "D")

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, tr(doc.Organisation), "", 1, "C", false, 0, "")
	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 28)
	pdf.CellFormat(0, 16, tr("CERTIFICAT DE FORMATION"), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 14)
	pdf.CellFormat(0, 10, tr("Décerné à"), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 22)
	pdf.CellFormat(0, 14, tr(doc.StudentName), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 14)
	pdf.CellFormat(0, 10, tr(fmt.Sprintf("pour avoir suivi avec succès la formation « %s »", doc.FormationTitle)), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "", 12)
	if doc.FinalGrade != "" {
		pdf.CellFormat(0, 8, tr(fmt.Sprintf("Moyenne finale : %s/20", doc.FinalGrade)), "", 1, "C", false, 0, "")
	}
	if doc.AttendanceRate != "" {
		pdf.CellFormat(0, 8, tr(fmt.Sprintf("Taux d'assiduité : %s %%", doc.AttendanceRate)), "", 1, "C", false, 0, "")
	}
	if doc.Mention != "" {
		pdf.CellFormat(0, 8, tr("Mention : "+doc.Mention), "", 1, "C", false, 0, "")
	}

	pdf.SetY(-45)
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(130, 8, tr("N° "+doc.Number), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 8, tr("Délivré le "+doc.IssueDate), "", 1, "R", false, 0, "")

	if doc.Revoked {
		pdf.SetTextColor(200, 30, 30)
		pdf.SetFont("Arial", "B", 40)
		pdf.TransformBegin()
		pdf.TransformRotate(20, 148, 105)
		pdf.Text(95, 110, tr("RÉVOQUÉ"))
		pdf.TransformEnd()
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}
