package services

import (
	"agencycrm/internal/models"
	"agencycrm/internal/pdf"
	"agencycrm/internal/repositories"
)

type ReportFilter struct {
	Month       string // "2025-06"
	Category    string
	PolicyFlow  string
	AssignedCSR string
}

type ReportSummary struct {
	Month        string        `json:"month"`
	TotalLeads   int           `json:"total_leads"`
	TotalPremium float64       `json:"total_premium"`
	AllTimeLeads int           `json:"all_time_leads"`
	Leads        []models.Lead `json:"leads"`
}

type ReportService struct {
	Leads *repositories.LeadRepository
	PDF   pdf.ReportGenerator
}

func NewReportService(leads *repositories.LeadRepository, gen pdf.ReportGenerator) *ReportService {
	return &ReportService{Leads: leads, PDF: gen}
}

func (s *ReportService) Monthly(filter ReportFilter) (*ReportSummary, error) {
	leads, err := s.Leads.FilterLeads(filter.Category, filter.PolicyFlow,
		filter.AssignedCSR, filter.Month, 1000, 0)
	if err != nil {
		return nil, err
	}

	summary := &ReportSummary{
		Month: filter.Month,
		Leads: leads,
	}
	summary.TotalLeads = len(leads)
	for _, l := range leads {
		summary.TotalPremium += l.TotalPremium
	}

	total, err := s.Leads.CountLeads()
	if err != nil {
		return nil, err
	}
	summary.AllTimeLeads = total
	return summary, nil
}

// MonthlyPDF renders the same summary as a PDF document.
func (s *ReportService) MonthlyPDF(filter ReportFilter) ([]byte, error) {
	summary, err := s.Monthly(filter)
	if err != nil {
		return nil, err
	}

	rows := make([]pdf.ReportRow, 0, len(summary.Leads))
	for _, l := range summary.Leads {
		rows = append(rows, pdf.ReportRow{
			ClientName: l.ClientName,
			Category:   l.InsuranceCategory,
			PolicyFlow: l.PolicyFlow,
			Premium:    l.TotalPremium,
		})
	}
	return s.PDF.MonthlyReport(pdf.ReportData{
		Month:        summary.Month,
		TotalLeads:   summary.TotalLeads,
		TotalPremium: summary.TotalPremium,
		Rows:         rows,
	})
}
