package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthlyReportProducesPDF(t *testing.T) {
	gen := NewReportGenerator()

	data, err := gen.MonthlyReport(ReportData{
		Month:        "2025-06",
		TotalLeads:   2,
		TotalPremium: 18750.50,
		Rows: []ReportRow{
			{ClientName: "Acme Logistics", Category: "Commercial Lines", PolicyFlow: "new", Premium: 12500.00},
			{ClientName: "Jane Cooper", Category: "Personal Lines", PolicyFlow: "renewal", Premium: 6250.50},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestMonthlyReportWithNoRows(t *testing.T) {
	gen := NewReportGenerator()

	data, err := gen.MonthlyReport(ReportData{Month: "2025-07"})
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
