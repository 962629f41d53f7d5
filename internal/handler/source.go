package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Adams521/everything-gift/internal/source"
)

// SourceHandler exposes marketplace product search
type SourceHandler struct {
	registry *source.Registry
}

// NewSourceHandler creates a new source handler
func NewSourceHandler(registry *source.Registry) *SourceHandler {
	return &SourceHandler{
		registry: registry,
	}
}

// ListPlatforms handles GET /api/v1/sources
func (h *SourceHandler) ListPlatforms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"platforms": h.registry.Platforms()})
}

// Search handles GET /api/v1/sources/:platform/search?keyword=
func (h *SourceHandler) Search(c *gin.Context) {
	keyword := strings.TrimSpace(c.Query("keyword"))
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "keyword is required"})
		return
	}

	platform := c.Param("platform")
	products, err := h.registry.Search(c.Request.Context(), platform, keyword)
	if errors.Is(err, source.ErrUnknownPlatform) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown platform: " + platform})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"platform": platform,
		"keyword":  keyword,
		"total":    len(products),
		"products": products,
	})
}
