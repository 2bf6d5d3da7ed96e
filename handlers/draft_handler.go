package handlers

import (
	"errors"
	"net/http"

	"legaldraft-backend/models"
	"legaldraft-backend/service"

	"github.com/gin-gonic/gin"
)

// DraftHandler handles HTTP requests for document drafting
type DraftHandler struct {
	draftService *service.DraftService
}

// NewDraftHandler creates a new draft handler
func NewDraftHandler(draftService *service.DraftService) *DraftHandler {
	return &DraftHandler{
		draftService: draftService,
	}
}

// DraftDocumentRequest represents the request body for drafting a document
type DraftDocumentRequest struct {
	Prompt       string            `json:"prompt" binding:"required"`
	DocumentType string            `json:"document_type"`
	Jurisdiction string            `json:"jurisdiction"`
	Variables    map[string]string `json:"variables"`
	TopK         int               `json:"top_k"`
	MaxLength    int               `json:"max_length"`
}

// DraftDocument handles POST /api/draft-document
func (h *DraftHandler) DraftDocument(c *gin.Context) {
	var req DraftDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	serviceReq := service.GenerateDocumentRequest{
		Prompt:       req.Prompt,
		DocumentType: models.DocumentType(req.DocumentType),
		Jurisdiction: models.Jurisdiction(req.Jurisdiction),
		Variables:    req.Variables,
		TopK:         req.TopK,
		MaxLength:    req.MaxLength,
	}

	result, err := h.draftService.GenerateDocument(c.Request.Context(), serviceReq)
	if err != nil {
		status, code := draftErrorStatus(err)
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
		"data":    result.Document,
	})
}

// draftErrorStatus maps service errors to HTTP status and error codes
func draftErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrPromptTooShort),
		errors.Is(err, service.ErrPromptTooLong),
		errors.Is(err, service.ErrInvalidDocType):
		return http.StatusBadRequest, "VALIDATION_FAILED"
	case errors.Is(err, service.ErrGenerationFailed):
		return http.StatusBadGateway, "GENERATION_FAILED"
	default:
		return pipelineErrorStatus(err)
	}
}

// GetDocumentTypes handles GET /api/document-types
func (h *DraftHandler) GetDocumentTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    service.DocumentTypes(),
	})
}

// ValidatePromptRequest represents the request body for prompt validation
type ValidatePromptRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// ValidatePrompt handles POST /api/validate-prompt
func (h *DraftHandler) ValidatePrompt(c *gin.Context) {
	var req ValidatePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": err.Error(),
			},
		})
		return
	}

	result := h.draftService.ValidatePrompt(service.ValidatePromptRequest{
		Prompt: req.Prompt,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}
