package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Adams521/everything-gift/internal/metrics"
	"github.com/Adams521/everything-gift/internal/model"
)

// MaxRecommendations is the hard cap on products in one result
const MaxRecommendations = 10

// Catalog is the read-only product and category store the planner queries
type Catalog interface {
	// FindProducts returns products matching every predicate of q, ordered by q.OrderBy(), at most q.Limit
	FindProducts(ctx context.Context, q *model.ProductQuery) ([]model.Product, error)

	// CategoriesMatching returns categories whose name contains any keyword (case-sensitive), by id
	CategoriesMatching(ctx context.Context, keywords []string) ([]model.Category, error)
}

// PlanResult is an executed plan
type PlanResult struct {
	Query             *model.ProductQuery
	Products          []model.Product
	MatchedCategories []model.Category
}

// CategoryNames returns the names of the matched categories
func (r *PlanResult) CategoryNames() []string {
	names := make([]string, 0, len(r.MatchedCategories))
	for _, c := range r.MatchedCategories {
		names = append(names, c.Name)
	}
	return names
}

// QueryPlanner compiles a resolved intent plus the raw request into a catalog query
type QueryPlanner struct {
	catalog    Catalog
	maxResults int
}

// NewQueryPlanner creates a planner; maxResults is capped at MaxRecommendations
func NewQueryPlanner(catalog Catalog, maxResults int) *QueryPlanner {
	if maxResults <= 0 || maxResults > MaxRecommendations {
		maxResults = MaxRecommendations
	}
	return &QueryPlanner{catalog: catalog, maxResults: maxResults}
}

// PlanAndExecute resolves categories, builds the query and runs it.
// Catalog failures are returned; an empty match is not an error.
func (p *QueryPlanner) PlanAndExecute(ctx context.Context, resolution *model.IntentResolution, req *model.PreferenceRequest) (*PlanResult, error) {
	if resolution == nil {
		resolution = RuleBasedResolution(req)
	}

	q := p.mergeFilters(&resolution.Filters, req)
	q.Sort = model.ParseSortDirective(string(resolution.SortBy))

	var matched []model.Category
	if keywords := cleanList(resolution.Filters.CategoryKeywords); len(keywords) > 0 {
		start := time.Now()
		cats, err := p.catalog.CategoriesMatching(ctx, keywords)
		metrics.CatalogQueryDuration.WithLabelValues("categories_matching").Observe(time.Since(start).Seconds())
		if err != nil {
			return nil, fmt.Errorf("failed to match categories: %w", err)
		}
		// keywords that match nothing never zero out the result
		for _, c := range cats {
			q.CategoryIDs = append(q.CategoryIDs, c.ID)
		}
		matched = cats
	}

	start := time.Now()
	products, err := p.catalog.FindProducts(ctx, q)
	metrics.CatalogQueryDuration.WithLabelValues("find_products").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	if len(products) > p.maxResults {
		products = products[:p.maxResults]
	}
	if products == nil {
		products = []model.Product{}
	}

	return &PlanResult{
		Query:             q,
		Products:          products,
		MatchedCategories: matched,
	}, nil
}

// mergeFilters takes each dimension from the intent first and from the raw request
// second. Tags and scenes are carried by the intent but never become predicates.
func (p *QueryPlanner) mergeFilters(intent *model.FilterIntent, req *model.PreferenceRequest) *model.ProductQuery {
	q := &model.ProductQuery{
		PriceMin: intent.PriceMin,
		PriceMax: intent.PriceMax,
		Gender:   intent.SuitableGender,
		AgeRange: intent.SuitableAgeRange,
		Style:    intent.Style,
		Limit:    p.maxResults,
	}

	if req == nil {
		return q
	}

	if q.PriceMin == nil {
		q.PriceMin = copyFloat(req.BudgetMin)
	}
	if q.PriceMax == nil {
		q.PriceMax = copyFloat(req.BudgetMax)
	}
	if q.Style == nil {
		if style, ok := present(req.Style); ok {
			q.Style = &style
		}
	}
	if q.Gender == nil && req.Gender != nil {
		if g := model.NormalizeGender(*req.Gender); g != "" {
			q.Gender = &g
		}
	}
	if q.AgeRange == nil {
		if age, ok := present(req.AgeRange); ok {
			q.AgeRange = &age
		}
	}

	return q
}
