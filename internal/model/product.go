package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Product represents a gift product in the catalog
type Product struct {
	ID               int64      `json:"id" db:"id"`
	Name             string     `json:"name" db:"name"`
	Price            *float64   `json:"price,omitempty" db:"price"`
	ImageURL         *string    `json:"image_url,omitempty" db:"image_url"`
	Platform         string     `json:"platform" db:"platform"`
	PlatformURL      string     `json:"platform_url" db:"platform_url"`
	CategoryID       *int64     `json:"category_id,omitempty" db:"category_id"`
	Description      *string    `json:"description,omitempty" db:"description"`
	Brand            *string    `json:"brand,omitempty" db:"brand"`
	Rating           *float64   `json:"rating,omitempty" db:"rating"`
	SalesCount       *int64     `json:"sales_count,omitempty" db:"sales_count"`
	Style            *string    `json:"style,omitempty" db:"style"`
	SuitableGender   *string    `json:"suitable_gender,omitempty" db:"suitable_gender"`
	SuitableAgeRange *string    `json:"suitable_age_range,omitempty" db:"suitable_age_range"`
	Tags             JSONArray  `json:"tags,omitempty" db:"tags"`
	SuitableScenes   JSONArray  `json:"suitable_scenes,omitempty" db:"suitable_scenes"`
	CrawlAt          *time.Time `json:"crawl_at,omitempty" db:"crawl_at"`
	CreatedAt        *time.Time `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// Category represents a gift category in the taxonomy
type Category struct {
	ID          int64      `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Description *string    `json:"description,omitempty" db:"description"`
	Icon        *string    `json:"icon,omitempty" db:"icon"`
	CreatedAt   *time.Time `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// ProductListOptions controls plain catalog listing (not recommendation)
type ProductListOptions struct {
	Skip       int
	Limit      int
	CategoryID *int64
	Platform   *string
}

// EmbeddingBatchRequest represents a batch product embedding update request
type EmbeddingBatchRequest struct {
	Embeddings []EmbeddingItem `json:"embeddings" binding:"required"`
}

// EmbeddingItem represents a single embedding for a product
type EmbeddingItem struct {
	ProductID int64     `json:"product_id" binding:"required"`
	Embedding []float32 `json:"embedding" binding:"required"`
	Text      string    `json:"text,omitempty"` // The text used to generate embedding
}

// EmbeddingBatchResponse represents the response for batch embedding update
type EmbeddingBatchResponse struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// JSONArray represents a JSON array field
type JSONArray []string

// Value implements driver.Valuer interface
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("cannot scan %T into JSONArray", value)
	}
}
