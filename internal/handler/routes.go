package handler

import "github.com/gin-gonic/gin"

// Handlers groups the API handlers mounted under /api/v1
type Handlers struct {
	Recommendation *RecommendationHandler
	Feedback       *FeedbackHandler
	Embedding      *EmbeddingHandler
	Catalog        *CatalogHandler
	Source         *SourceHandler
}

// RegisterRoutes mounts the API routes on router
func RegisterRoutes(router gin.IRouter, h Handlers) {
	apiV1 := router.Group("/api/v1")
	{
		// Recommendation endpoints
		apiV1.POST("/recommendations", h.Recommendation.Recommend)
		apiV1.POST("/recommendations/stream", h.Recommendation.RecommendStream)
		apiV1.POST("/recommendations/feedback", h.Feedback.Submit)

		// Catalog endpoints
		apiV1.GET("/products", h.Catalog.ListProducts)
		apiV1.GET("/products/:id", h.Catalog.GetProduct)
		apiV1.POST("/products/embeddings/batch", h.Embedding.BatchUpdate)
		apiV1.GET("/categories", h.Catalog.ListCategories)
		apiV1.GET("/categories/:id", h.Catalog.GetCategory)

		// Marketplace sources
		if h.Source != nil {
			apiV1.GET("/sources", h.Source.ListPlatforms)
			apiV1.GET("/sources/:platform/search", h.Source.Search)
		}
	}
}
