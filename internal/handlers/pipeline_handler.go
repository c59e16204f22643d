package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"agencycrm/internal/services"
)

type PipelineHandler struct {
	Service *services.StageService
}

func NewPipelineHandler(service *services.StageService) *PipelineHandler {
	return &PipelineHandler{Service: service}
}

func (h *PipelineHandler) List(c *gin.Context) {
	pipelines, err := h.Service.ListPipelines()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list pipelines"})
		return
	}
	c.JSON(http.StatusOK, pipelines)
}

// ListStages feeds the stage picker: catalog entries ordered by
// stage_order, mandatory_fields already normalized.
func (h *PipelineHandler) ListStages(c *gin.Context) {
	id := c.Param("id")

	pipeline, err := h.Service.GetPipeline(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch pipeline"})
		return
	}
	if pipeline == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "pipeline not found"})
		return
	}

	stages, err := h.Service.ListStages(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list stages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pipeline": pipeline,
		"stages":   stages,
	})
}
