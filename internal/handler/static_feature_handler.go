package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/eventgraph-go/internal/ingest"
	"github.com/jengzang/eventgraph-go/internal/models"
	"github.com/jengzang/eventgraph-go/internal/service"
	"github.com/jengzang/eventgraph-go/pkg/response"
)

// StaticFeatureHandler handles HTTP requests for cached static features
type StaticFeatureHandler struct {
	service *service.DatasetService
}

// NewStaticFeatureHandler creates a new static feature handler
func NewStaticFeatureHandler(service *service.DatasetService) *StaticFeatureHandler {
	return &StaticFeatureHandler{service: service}
}

// PutStaticFeatures handles PUT /api/v1/static-features/:key
// The body is either a JSON table or CSV (Content-Type text/csv) whose join
// column is named by the key_column query parameter.
func (h *StaticFeatureHandler) PutStaticFeatures(c *gin.Context) {
	var table *models.StaticFeatureTable
	if strings.HasPrefix(c.ContentType(), "text/csv") {
		t, err := ingest.ReadStaticFeaturesCSV(c.Request.Body, c.Query("key_column"))
		if err != nil {
			response.FromError(c, "Invalid CSV body", err)
			return
		}
		table = t
	} else {
		table = &models.StaticFeatureTable{}
		if err := c.ShouldBindJSON(table); err != nil {
			response.Error(c, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	key := c.Param("key")
	if err := h.service.PutStaticFeatures(c.Request.Context(), key, table); err != nil {
		response.FromError(c, "Failed to store static features", err)
		return
	}
	response.Success(c, gin.H{"key": key, "names": table.Names, "rows": len(table.Rows)})
}

// GetStaticFeatures handles GET /api/v1/static-features/:key
func (h *StaticFeatureHandler) GetStaticFeatures(c *gin.Context) {
	table, err := h.service.GetStaticFeatures(c.Request.Context(), c.Param("key"))
	if err != nil {
		response.FromError(c, "Failed to get static features", err)
		return
	}
	response.Success(c, table)
}

// DeleteStaticFeatures handles DELETE /api/v1/static-features/:key
func (h *StaticFeatureHandler) DeleteStaticFeatures(c *gin.Context) {
	if err := h.service.DeleteStaticFeatures(c.Request.Context(), c.Param("key")); err != nil {
		response.FromError(c, "Failed to delete static features", err)
		return
	}
	response.Success(c, gin.H{"key": c.Param("key")})
}
