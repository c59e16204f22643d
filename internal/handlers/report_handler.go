package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"agencycrm/internal/services"
)

type ReportHandler struct {
	Service *services.ReportService
}

func NewReportHandler(service *services.ReportService) *ReportHandler {
	return &ReportHandler{Service: service}
}

func reportFilterFromQuery(c *gin.Context) services.ReportFilter {
	return services.ReportFilter{
		Month:       c.Query("month"),
		Category:    c.Query("category"),
		PolicyFlow:  c.Query("policy_flow"),
		AssignedCSR: c.Query("assigned_csr"),
	}
}

func (h *ReportHandler) Monthly(c *gin.Context) {
	summary, err := h.Service.Monthly(reportFilterFromQuery(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *ReportHandler) MonthlyPDF(c *gin.Context) {
	filter := reportFilterFromQuery(c)
	data, err := h.Service.MonthlyPDF(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	filename := fmt.Sprintf("monthly-report-%s.pdf", filter.Month)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}
