package handlers

import (
	"errors"
	"net/http"

	"legaldraft-backend/rag"

	"github.com/gin-gonic/gin"
)

// IndexHandler handles HTTP requests for index lifecycle operations
type IndexHandler struct {
	pipeline *rag.Pipeline
}

// NewIndexHandler creates a new index handler
func NewIndexHandler(pipeline *rag.Pipeline) *IndexHandler {
	return &IndexHandler{
		pipeline: pipeline,
	}
}

// BuildIndex handles POST /api/index/build
func (h *IndexHandler) BuildIndex(c *gin.Context) {
	if err := h.pipeline.BuildIndex(c.Request.Context()); err != nil {
		status, code := pipelineErrorStatus(err)
		c.JSON(status, gin.H{
			"success": false,
			"error": gin.H{
				"code":    code,
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.pipeline.Status(),
	})
}

// RefreshIndex handles POST /api/index/refresh
func (h *IndexHandler) RefreshIndex(c *gin.Context) {
	if err := h.pipeline.RefreshIndex(c.Request.Context()); err != nil {
		status, code := pipelineErrorStatus(err)
		c.JSON(status, gin.H{
			"success": false,
			"error": gin.H{
				"code":    code,
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.pipeline.Status(),
	})
}

// GetIndexStatus handles GET /api/index/status
func (h *IndexHandler) GetIndexStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.pipeline.Status(),
	})
}

// pipelineErrorStatus maps pipeline errors to HTTP status and error codes
func pipelineErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, rag.ErrInvalidArgument):
		return http.StatusBadRequest, "INVALID_ARGUMENT"
	case errors.Is(err, rag.ErrBuildInProgress):
		return http.StatusConflict, "BUILD_IN_PROGRESS"
	case errors.Is(err, rag.ErrPipelineNotReady):
		return http.StatusServiceUnavailable, "PIPELINE_NOT_READY"
	case errors.Is(err, rag.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT"
	case errors.Is(err, rag.ErrEmptyIndex):
		return http.StatusServiceUnavailable, "EMPTY_INDEX"
	case errors.Is(err, rag.ErrIndexBuild):
		return http.StatusInternalServerError, "INDEX_BUILD_FAILED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
