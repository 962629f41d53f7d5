package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/Adams521/everything-gift/internal/model"
	"github.com/Adams521/everything-gift/internal/service"
)

// RecommendationHandler handles recommendation HTTP requests
type RecommendationHandler struct {
	recommendService *service.RecommendService
}

// NewRecommendationHandler creates a new recommendation handler
func NewRecommendationHandler(recommendService *service.RecommendService) *RecommendationHandler {
	return &RecommendationHandler{
		recommendService: recommendService,
	}
}

// Recommend handles POST /api/v1/recommendations
func (h *RecommendationHandler) Recommend(c *gin.Context) {
	var req model.PreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	result, err := h.recommendService.Recommend(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// client went away, nobody reads the body
			c.Status(statusClientClosedRequest)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Recommendation failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// statusClientClosedRequest is the nginx convention for a request abandoned by the client
const statusClientClosedRequest = 499

// RecommendStream handles POST /api/v1/recommendations/stream - SSE streaming recommendation
func (h *RecommendationHandler) RecommendStream(c *gin.Context) {
	var req model.PreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	if err := sendSSE(c, "start", map[string]any{"digest": service.BuildDigest(&req)}); err != nil {
		return
	}
	flusher.Flush()

	result, err := h.recommendService.RecommendStream(c.Request.Context(), &req, func(event string, data any) error {
		if err := sendSSE(c, event, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})

	if err != nil {
		_ = sendSSE(c, "error", map[string]any{"error": err.Error()})
		flusher.Flush()
		return
	}

	// Send final results
	_ = sendSSE(c, "results", result)
	flusher.Flush()

	// Send done event
	_ = sendSSE(c, "done", nil)
	flusher.Flush()
}

// sendSSE writes one Server-Sent Event; a write error means the client is gone
func sendSSE(c *gin.Context, event string, data any) error {
	if data == nil {
		_, err := fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", event)
		return err
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		_, werr := fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\": \"JSON marshal failed\"}\n\n")
		return werr
	}
	_, err = fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, jsonData)
	return err
}
