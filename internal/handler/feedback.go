package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Adams521/everything-gift/internal/model"
	"github.com/Adams521/everything-gift/internal/service"
)

// FeedbackHandler handles feedback-related HTTP requests
type FeedbackHandler struct {
	catalogService *service.CatalogService
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(catalogService *service.CatalogService) *FeedbackHandler {
	return &FeedbackHandler{
		catalogService: catalogService,
	}
}

// Submit handles POST /api/v1/recommendations/feedback
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req model.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	err := h.catalogService.LogFeedback(c.Request.Context(), req.RecommendationID, req.ProductID, req.Action)
	if errors.Is(err, service.ErrInvalidAction) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action. Must be one of: click, favorite, purchase"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log feedback: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.FeedbackResponse{
		Success: true,
		Message: "Feedback logged successfully",
	})
}
