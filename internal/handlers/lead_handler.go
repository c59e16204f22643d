package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"agencycrm/internal/authz"
	"agencycrm/internal/models"
	"agencycrm/internal/services"
)

type LeadHandler struct {
	Service     *services.LeadService
	Transitions *services.TransitionService
}

func NewLeadHandler(service *services.LeadService, transitions *services.TransitionService) *LeadHandler {
	return &LeadHandler{Service: service, Transitions: transitions}
}

func (h *LeadHandler) Create(c *gin.Context) {
	var lead models.Lead
	if err := c.ShouldBindJSON(&lead); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := getUserAndRole(c)
	if lead.AssignedCSR == "" {
		lead.AssignedCSR = userID
	}

	if err := h.Service.Create(&lead); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, lead)
}

func (h *LeadHandler) GetByID(c *gin.Context) {
	id := c.Param("id")

	userID, role := getUserAndRole(c)

	lead, err := h.Service.GetByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch lead"})
		return
	}
	if lead == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
		return
	}
	if lead.AssignedCSR != userID && !authz.IsElevated(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.JSON(http.StatusOK, lead)
}

// Update edits contact/policy fields. Stage placement and metadata only
// change through UpdateStage.
func (h *LeadHandler) Update(c *gin.Context) {
	id := c.Param("id")

	userID, role := getUserAndRole(c)

	current, err := h.Service.GetByID(id)
	if err != nil || current == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
		return
	}
	if current.AssignedCSR != userID && !authz.IsElevated(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	var body models.Lead
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	body.ID = id

	// reassignment is an elevated-role action
	if !authz.IsElevated(role) {
		body.AssignedCSR = current.AssignedCSR
	}

	if err := h.Service.Update(&body); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	updated, _ := h.Service.GetByID(id)
	c.JSON(http.StatusOK, updated)
}

// UpdateStageRequest is the transition payload: target stage plus the
// partial metadata collected by the stage form.
type UpdateStageRequest struct {
	TargetStageID  string          `json:"targetStageId" binding:"required"`
	MetadataUpdate models.Metadata `json:"metadataUpdate"`
}

// @Summary      Move a lead to another pipeline stage
// @Tags         Leads
// @Accept       json
// @Produce      json
// @Param        id       path      string              true  "Lead id"
// @Param        request  body      UpdateStageRequest  true  "Transition"
// @Success      200      {object}  map[string]interface{}
// @Failure      400      {object}  map[string]interface{}
// @Failure      404      {object}  map[string]string
// @Router       /leads/{id}/stage [post]
func (h *LeadHandler) UpdateStage(c *gin.Context) {
	id := c.Param("id")

	var req UpdateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.Transitions.Execute(services.TransitionRequest{
		LeadID:         id,
		TargetStageID:  req.TargetStageID,
		MetadataUpdate: req.MetadataUpdate,
	})
	if err != nil {
		// validation failures carry actionable messages; infra failures
		// get a generic one so retrying is safe
		if ve, ok := services.AsValidationError(err); ok {
			resp := gin.H{"error": ve.Message}
			if len(ve.MissingFields) > 0 {
				resp["missingFields"] = ve.MissingFields
			}
			c.JSON(http.StatusBadRequest, resp)
			return
		}
		switch {
		case errors.Is(err, services.ErrLeadNotFound), errors.Is(err, services.ErrStageNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			logrus.WithError(err).WithField("lead_id", id).Error("stage update failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update stage"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// EmailHistory returns the notification log for one lead.
func (h *LeadHandler) EmailHistory(c *gin.Context) {
	id := c.Param("id")

	userID, role := getUserAndRole(c)

	lead, err := h.Service.GetByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch lead"})
		return
	}
	if lead == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "lead not found"})
		return
	}
	if lead.AssignedCSR != userID && !authz.IsElevated(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	logs, err := h.Service.EmailHistory(id, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch email history"})
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (h *LeadHandler) List(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "100"))
	if err != nil || size < 1 {
		size = 100
	}
	offset := (page - 1) * size

	userID, role := getUserAndRole(c)

	assignedCSR := c.Query("assigned_csr")
	if !authz.IsElevated(role) {
		// agents only see their own book
		assignedCSR = userID
	}

	leads, err := h.Service.Filter(
		c.Query("category"),
		c.Query("policy_flow"),
		assignedCSR,
		c.Query("month"),
		size, offset,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list leads"})
		return
	}
	c.JSON(http.StatusOK, leads)
}
