package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Vue financière",
		Summary: [][2]string{{"Total facturé", "1500"}},
		Headers: []string{"Formation", "Montant"},
		Rows: []map[string]string{
			{"Formation": "Secrétariat", "Montant": "1000"},
			{"Formation": "Non spécifié", "Montant": "500"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	text := strings.TrimPrefix(string(out), "\ufeff")
	lines := strings.Split(strings.TrimSpace(text), "\n")
	assert.Equal(t, "Total facturé,1500", lines[0])
	assert.Equal(t, "Formation,Montant", lines[2])
	assert.Equal(t, "Non spécifié,500", lines[4])
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter("ASMiL").Render(Dataset{})
	assert.Error(t, err)
	_, err = NewXLSXExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter("ASMiL").Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(xlsxSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Vue financière", title)

	header, err := f.GetCellValue(xlsxSheet, "A5")
	require.NoError(t, err)
	assert.Equal(t, "Formation", header)

	value, err := f.GetCellValue(xlsxSheet, "B7")
	require.NoError(t, err)
	assert.Equal(t, "500", value)
}

func TestRenderCertificate(t *testing.T) {
	out, err := RenderCertificate(CertificateDocument{
		Organisation:   "ASMiL",
		Number:         "CERT-2024-00001",
		StudentName:    "Awa Koné",
		FormationTitle: "Comptabilité",
		IssueDate:      "15/03/2024",
		FinalGrade:     "14.50",
		Revoked:        true,
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = RenderCertificate(CertificateDocument{})
	assert.Error(t, err)
}
