package repository

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/Adams521/everything-gift/internal/model"
)

//go:embed seed.json
var defaultSeed []byte

// Seed is the JSON document the memory driver loads
type Seed struct {
	Categories []model.Category `json:"categories"`
	Products   []model.Product  `json:"products"`
}

// DefaultSeed returns the built-in development catalog
func DefaultSeed() (Seed, error) {
	return parseSeed(defaultSeed)
}

// LoadSeed reads a seed file; an empty path means the built-in catalog
func LoadSeed(path string) (Seed, error) {
	if path == "" {
		return DefaultSeed()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("failed to read seed file: %w", err)
	}
	return parseSeed(data)
}

func parseSeed(data []byte) (Seed, error) {
	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("failed to parse seed: %w", err)
	}
	return seed, nil
}

// FeedbackRecord is a feedback action kept by the memory driver
type FeedbackRecord struct {
	RecommendationID string
	ProductID        int64
	Action           string
}

// MemoryRepository is an in-process catalog with the same predicate and ordering
// semantics as PostgresRepository. Products and categories are read-only after construction.
type MemoryRepository struct {
	products   []model.Product
	categories []model.Category

	mu              sync.Mutex
	recommendations []model.RecommendationLog
	feedback        []FeedbackRecord
}

// NewMemoryRepository creates a memory catalog from seed
func NewMemoryRepository(seed Seed) *MemoryRepository {
	products := append([]model.Product(nil), seed.Products...)
	sort.SliceStable(products, func(i, j int) bool { return products[i].ID < products[j].ID })

	categories := append([]model.Category(nil), seed.Categories...)
	sort.SliceStable(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })

	return &MemoryRepository{
		products:   products,
		categories: categories,
	}
}

// Close is a no-op for the memory driver
func (r *MemoryRepository) Close() error {
	return nil
}

// FindProducts filters, orders and truncates the catalog
func (r *MemoryRepository) FindProducts(ctx context.Context, q *model.ProductQuery) ([]model.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var categorySet map[int64]struct{}
	if len(q.CategoryIDs) > 0 {
		categorySet = make(map[int64]struct{}, len(q.CategoryIDs))
		for _, id := range q.CategoryIDs {
			categorySet[id] = struct{}{}
		}
	}

	matched := make([]model.Product, 0)
	for _, p := range r.products {
		if matchesQuery(&p, q, categorySet) {
			matched = append(matched, p)
		}
	}

	terms := q.OrderBy()
	sort.SliceStable(matched, func(i, j int) bool {
		for _, term := range terms {
			if c := compareField(&matched[i], &matched[j], term); c != 0 {
				return c < 0
			}
		}
		return false
	})

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// matchesQuery evaluates predicates the way SQL does: a NULL column never satisfies a comparison
func matchesQuery(p *model.Product, q *model.ProductQuery, categories map[int64]struct{}) bool {
	if q.PriceMin != nil && (p.Price == nil || *p.Price < *q.PriceMin) {
		return false
	}
	if q.PriceMax != nil && (p.Price == nil || *p.Price > *q.PriceMax) {
		return false
	}
	if q.Gender != nil && p.SuitableGender != nil &&
		*p.SuitableGender != *q.Gender && *p.SuitableGender != model.GenderUnisex {
		return false
	}
	if q.AgeRange != nil && p.SuitableAgeRange != nil && *p.SuitableAgeRange != *q.AgeRange {
		return false
	}
	if q.Style != nil && p.Style != nil && *p.Style != *q.Style {
		return false
	}
	if categories != nil {
		if p.CategoryID == nil {
			return false
		}
		if _, ok := categories[*p.CategoryID]; !ok {
			return false
		}
	}
	return true
}

// compareField orders two products on one term; unknown values sort after known ones
// regardless of direction
func compareField(a, b *model.Product, term model.OrderTerm) int {
	av, aok := fieldValue(a, term.Field)
	bv, bok := fieldValue(b, term.Field)

	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return 1
	case !bok:
		return -1
	}

	c := 0
	if av < bv {
		c = -1
	} else if av > bv {
		c = 1
	}
	if term.Desc {
		c = -c
	}
	return c
}

func fieldValue(p *model.Product, field string) (float64, bool) {
	switch field {
	case model.FieldPrice:
		if p.Price != nil {
			return *p.Price, true
		}
	case model.FieldRating:
		if p.Rating != nil {
			return *p.Rating, true
		}
	case model.FieldSalesCount:
		if p.SalesCount != nil {
			return float64(*p.SalesCount), true
		}
	case model.FieldCreatedAt:
		if p.CreatedAt != nil {
			return float64(p.CreatedAt.UnixMilli()), true
		}
	case model.FieldID:
		return float64(p.ID), true
	}
	return 0, false
}

// CategoriesMatching returns categories whose name contains any keyword (case-sensitive)
func (r *MemoryRepository) CategoriesMatching(ctx context.Context, keywords []string) ([]model.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []model.Category
	for _, c := range r.categories {
		for _, kw := range keywords {
			if kw != "" && strings.Contains(c.Name, kw) {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

// ListProducts returns a page of products by id
func (r *MemoryRepository) ListProducts(_ context.Context, opts model.ProductListOptions) ([]model.Product, error) {
	out := make([]model.Product, 0)
	skipped := 0
	for _, p := range r.products {
		if opts.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *opts.CategoryID) {
			continue
		}
		if opts.Platform != nil && p.Platform != *opts.Platform {
			continue
		}
		if skipped < opts.Skip {
			skipped++
			continue
		}
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
		out = append(out, p)
	}
	return out, nil
}

// GetProductByID retrieves a single product; nil when it does not exist
func (r *MemoryRepository) GetProductByID(_ context.Context, id int64) (*model.Product, error) {
	for i := range r.products {
		if r.products[i].ID == id {
			p := r.products[i]
			return &p, nil
		}
	}
	return nil, nil
}

// ListCategories returns the whole taxonomy by id
func (r *MemoryRepository) ListCategories(_ context.Context) ([]model.Category, error) {
	return append([]model.Category(nil), r.categories...), nil
}

// GetCategoryByID retrieves a single category; nil when it does not exist
func (r *MemoryRepository) GetCategoryByID(_ context.Context, id int64) (*model.Category, error) {
	for i := range r.categories {
		if r.categories[i].ID == id {
			c := r.categories[i]
			return &c, nil
		}
	}
	return nil, nil
}

// LogRecommendation keeps the audit record in memory
func (r *MemoryRepository) LogRecommendation(_ context.Context, entry *model.RecommendationLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recommendations = append(r.recommendations, *entry)
	return nil
}

// LogFeedback keeps the feedback action in memory
func (r *MemoryRepository) LogFeedback(_ context.Context, recommendationID string, productID int64, action string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feedback = append(r.feedback, FeedbackRecord{
		RecommendationID: recommendationID,
		ProductID:        productID,
		Action:           action,
	})
	return nil
}

// Recommendations returns a copy of the logged recommendations
func (r *MemoryRepository) Recommendations() []model.RecommendationLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.RecommendationLog(nil), r.recommendations...)
}

// Feedback returns a copy of the logged feedback
func (r *MemoryRepository) Feedback() []FeedbackRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]FeedbackRecord(nil), r.feedback...)
}
