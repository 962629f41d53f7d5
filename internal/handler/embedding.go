package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Adams521/everything-gift/internal/model"
	"github.com/Adams521/everything-gift/internal/service"
)

// EmbeddingHandler handles embedding-related HTTP requests
type EmbeddingHandler struct {
	catalogService *service.CatalogService
}

// NewEmbeddingHandler creates a new embedding handler
func NewEmbeddingHandler(catalogService *service.CatalogService) *EmbeddingHandler {
	return &EmbeddingHandler{
		catalogService: catalogService,
	}
}

// BatchUpdate handles POST /api/v1/products/embeddings/batch
func (h *EmbeddingHandler) BatchUpdate(c *gin.Context) {
	var req model.EmbeddingBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if len(req.Embeddings) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No embeddings provided"})
		return
	}

	success, errs, err := h.catalogService.UpdateEmbeddings(c.Request.Context(), req.Embeddings)
	switch {
	case errors.Is(err, service.ErrEmbeddingsUnsupported):
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
		return
	case errors.Is(err, service.ErrInvalidEmbedding):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update embeddings: " + err.Error()})
		return
	}

	response := model.EmbeddingBatchResponse{
		Success: success,
		Failed:  len(req.Embeddings) - success,
		Errors:  errs,
	}

	if len(errs) > 0 {
		c.JSON(http.StatusPartialContent, response)
	} else {
		c.JSON(http.StatusOK, response)
	}
}
