package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/eventgraph-go/internal/models"
	"github.com/jengzang/eventgraph-go/internal/service"
	"github.com/jengzang/eventgraph-go/pkg/response"
)

// DatasetHandler handles HTTP requests for dataset runs
type DatasetHandler struct {
	service *service.DatasetService
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(service *service.DatasetService) *DatasetHandler {
	return &DatasetHandler{service: service}
}

// CreateDataset handles POST /api/v1/datasets
func (h *DatasetHandler) CreateDataset(c *gin.Context) {
	req := h.service.NewRequest()
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	run, err := h.service.CreateDataset(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, "Failed to create dataset", err)
		return
	}

	response.Created(c, gin.H{
		"id":       run.ID,
		"status":   run.Status,
		"metadata": run.Metadata,
	})
}

// ListDatasets handles GET /api/v1/datasets
func (h *DatasetHandler) ListDatasets(c *gin.Context) {
	var filter models.RunFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}

	runs, total, err := h.service.ListRuns(c.Request.Context(), filter)
	if err != nil {
		response.FromError(c, "Failed to list datasets", err)
		return
	}

	// Calculate pagination info
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 50
	}
	totalPages := int(total) / filter.PageSize
	if int(total)%filter.PageSize > 0 {
		totalPages++
	}

	response.Success(c, gin.H{
		"data":       runs,
		"total":      total,
		"page":       filter.Page,
		"pageSize":   filter.PageSize,
		"totalPages": totalPages,
	})
}

// GetDataset handles GET /api/v1/datasets/:id
func (h *DatasetHandler) GetDataset(c *gin.Context) {
	run, err := h.service.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, "Failed to get dataset", err)
		return
	}
	response.Success(c, run)
}

// GetFlatDataset handles GET /api/v1/datasets/:id/flat
func (h *DatasetHandler) GetFlatDataset(c *gin.Context) {
	flat, err := h.service.FlatView(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, "Failed to convert dataset", err)
		return
	}
	response.Success(c, flat)
}

// GetDatasetSummary handles GET /api/v1/datasets/:id/summary
func (h *DatasetHandler) GetDatasetSummary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, "Failed to summarize dataset", err)
		return
	}
	response.Success(c, summary)
}

// DeleteDataset handles DELETE /api/v1/datasets/:id
func (h *DatasetHandler) DeleteDataset(c *gin.Context) {
	if err := h.service.DeleteRun(c.Request.Context(), c.Param("id")); err != nil {
		response.FromError(c, "Failed to delete dataset", err)
		return
	}
	response.Success(c, gin.H{"id": c.Param("id")})
}
