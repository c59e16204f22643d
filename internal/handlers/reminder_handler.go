package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"agencycrm/internal/services"
)

type ReminderHandler struct {
	Service *services.ReminderService
}

func NewReminderHandler(service *services.ReminderService) *ReminderHandler {
	return &ReminderHandler{Service: service}
}

// Run triggers one reminder sweep. Meant to be hit by a scheduler.
func (h *ReminderHandler) Run(c *gin.Context) {
	result, err := h.Service.Run()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if result.Processed == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "No reminders to send", "count": 0})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"processed": result.Processed,
		"sent":      result.Sent,
		"errors":    result.Errors,
	})
}
