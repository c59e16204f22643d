package pdf

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// ReportGenerator renders reporting exports. Interface so handlers can be
// tested without gofpdf.
type ReportGenerator interface {
	MonthlyReport(data ReportData) ([]byte, error)
}

type ReportRow struct {
	ClientName string
	Category   string
	PolicyFlow string
	Premium    float64
}

type ReportData struct {
	Month        string
	TotalLeads   int
	TotalPremium float64
	Rows         []ReportRow
}

type reportGenerator struct{}

func NewReportGenerator() ReportGenerator {
	return &reportGenerator{}
}

func (g *reportGenerator) MonthlyReport(data ReportData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Monthly Report %s", data.Month), false)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, fmt.Sprintf("Monthly Pipeline Report - %s", data.Month), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Total leads: %d", data.TotalLeads), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Total premium: $%.2f", data.TotalPremium), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// table header
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(70, 8, "Client", "1", 0, "L", true, 0, "")
	pdf.CellFormat(45, 8, "Category", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Flow", "1", 0, "L", true, 0, "")
	pdf.CellFormat(35, 8, "Premium", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, row := range data.Rows {
		pdf.CellFormat(70, 7, row.ClientName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 7, row.Category, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, row.PolicyFlow, "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 7, fmt.Sprintf("$%.2f", row.Premium), "1", 1, "R", false, 0, "")
	}

	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
