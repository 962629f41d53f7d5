package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Adams521/everything-gift/internal/model"
)

var (
	ErrProductNotFound       = errors.New("product not found")
	ErrCategoryNotFound      = errors.New("category not found")
	ErrEmbeddingsUnsupported = errors.New("catalog driver does not store embeddings")
	ErrInvalidAction         = errors.New("invalid action, must be one of: click, favorite, purchase")
	ErrInvalidEmbedding      = errors.New("invalid embedding dimension")
)

// Listing limits for GET /products
const (
	DefaultListLimit = 100
	MaxListLimit     = 100
)

// CatalogReader is the browse surface of the catalog store
type CatalogReader interface {
	ListProducts(ctx context.Context, opts model.ProductListOptions) ([]model.Product, error)
	GetProductByID(ctx context.Context, id int64) (*model.Product, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*model.Category, error)
}

// FeedbackStore records user actions on recommendations
type FeedbackStore interface {
	LogFeedback(ctx context.Context, recommendationID string, productID int64, action string) error
}

// EmbeddingStore writes product embedding vectors
type EmbeddingStore interface {
	BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string)
}

var validActions = map[string]bool{
	"click":    true,
	"favorite": true,
	"purchase": true,
}

// CatalogService serves product and category reads plus feedback and embedding writes
type CatalogService struct {
	reader     CatalogReader
	feedback   FeedbackStore
	embeddings EmbeddingStore
	dimensions int
}

// NewCatalogService creates a catalog service; embeddings may be nil when the driver has no vector column
func NewCatalogService(reader CatalogReader, feedback FeedbackStore, embeddings EmbeddingStore, dimensions int) *CatalogService {
	return &CatalogService{
		reader:     reader,
		feedback:   feedback,
		embeddings: embeddings,
		dimensions: dimensions,
	}
}

// ListProducts returns a page of products; limit is clamped to [1, MaxListLimit]
func (s *CatalogService) ListProducts(ctx context.Context, opts model.ProductListOptions) ([]model.Product, error) {
	if opts.Skip < 0 {
		opts.Skip = 0
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}
	if opts.Limit > MaxListLimit {
		opts.Limit = MaxListLimit
	}
	return s.reader.ListProducts(ctx, opts)
}

// GetProduct retrieves a single product by ID
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, err := s.reader.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	return p, nil
}

// ListCategories returns the taxonomy
func (s *CatalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.reader.ListCategories(ctx)
}

// GetCategory retrieves a single category by ID
func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	c, err := s.reader.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCategoryNotFound
	}
	return c, nil
}

// UpdateEmbeddings validates dimensions and updates embeddings for multiple products
func (s *CatalogService) UpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string, error) {
	if s.embeddings == nil {
		return 0, nil, ErrEmbeddingsUnsupported
	}
	if s.dimensions > 0 {
		for i, item := range items {
			if len(item.Embedding) != s.dimensions {
				return 0, nil, fmt.Errorf("%w at index %d, expected %d", ErrInvalidEmbedding, i, s.dimensions)
			}
		}
	}
	success, errs := s.embeddings.BatchUpdateEmbeddings(ctx, items)
	return success, errs, nil
}

// LogFeedback logs user feedback/action
func (s *CatalogService) LogFeedback(ctx context.Context, recommendationID string, productID int64, action string) error {
	if !validActions[action] {
		return ErrInvalidAction
	}
	return s.feedback.LogFeedback(ctx, recommendationID, productID, action)
}
