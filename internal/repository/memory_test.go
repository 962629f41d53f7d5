package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adams521/everything-gift/internal/model"
)

func productIDs(products []model.Product) []int64 {
	ids := make([]int64, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	return ids
}

func ts(day int) *time.Time {
	t := time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestDefaultSeed(t *testing.T) {
	seed, err := DefaultSeed()
	require.NoError(t, err)
	assert.Len(t, seed.Categories, 8)
	assert.Len(t, seed.Products, 12)
	assert.Equal(t, "电子产品", seed.Categories[0].Name)
}

func TestLoadSeed_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"categories":[{"id":1,"name":"花束"}],"products":[{"id":7,"name":"玫瑰","platform":"taobao","platform_url":"u"}]}`), 0o600))

	seed, err := LoadSeed(path)
	require.NoError(t, err)
	require.Len(t, seed.Products, 1)
	assert.Equal(t, "玫瑰", seed.Products[0].Name)

	_, err = LoadSeed(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestMemoryRepository_GenderNeverExcludesUnisexOrUnset(t *testing.T) {
	repo := NewMemoryRepository(Seed{Products: []model.Product{
		{ID: 1, Name: "female", SuitableGender: strPtr("female")},
		{ID: 2, Name: "male", SuitableGender: strPtr("male")},
		{ID: 3, Name: "unisex", SuitableGender: strPtr("unisex")},
		{ID: 4, Name: "unset"},
	}})

	got, err := repo.FindProducts(context.Background(), &model.ProductQuery{
		Gender: strPtr("female"),
		Sort:   model.SortRelevance,
		Limit:  10,
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 3, 4}, productIDs(got))
}

func TestMemoryRepository_PriceAscNullsLast(t *testing.T) {
	repo := NewMemoryRepository(Seed{Products: []model.Product{
		{ID: 1, Price: nil},
		{ID: 2, Price: float64Ptr(300)},
		{ID: 3, Price: float64Ptr(50)},
		{ID: 4, Price: nil},
		{ID: 5, Price: float64Ptr(50)},
	}})

	got, err := repo.FindProducts(context.Background(), &model.ProductQuery{Sort: model.SortPriceAsc, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 5, 2, 1, 4}, productIDs(got))

	got, err = repo.FindProducts(context.Background(), &model.ProductQuery{Sort: model.SortPriceDesc, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 5, 1, 4}, productIDs(got))
}

func TestMemoryRepository_UnknownValuesSortLast(t *testing.T) {
	repo := NewMemoryRepository(Seed{Products: []model.Product{
		{ID: 1},
		{ID: 2, Rating: float64Ptr(3.5), SalesCount: int64Ptr(900)},
		{ID: 3, Rating: float64Ptr(4.8)},
		{ID: 4, SalesCount: int64Ptr(20)},
		{ID: 5, Rating: float64Ptr(4.8), SalesCount: int64Ptr(20)},
	}})

	tests := []struct {
		name string
		sort model.SortDirective
		want []int64
	}{
		{name: "rating_desc", sort: model.SortRatingDesc, want: []int64{3, 5, 2, 1, 4}},
		{name: "sales_desc", sort: model.SortSalesDesc, want: []int64{2, 4, 5, 1, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.FindProducts(context.Background(), &model.ProductQuery{Sort: tt.sort, Limit: 10})
			require.NoError(t, err)
			assert.Equal(t, tt.want, productIDs(got))
		})
	}
}

func TestMemoryRepository_RelevanceComposite(t *testing.T) {
	repo := NewMemoryRepository(Seed{Products: []model.Product{
		{ID: 1, Rating: float64Ptr(4.5), SalesCount: int64Ptr(10), CreatedAt: ts(1)},
		{ID: 2, Rating: float64Ptr(4.9)},
		{ID: 3, Rating: float64Ptr(4.5), SalesCount: int64Ptr(10), CreatedAt: ts(5)},
		{ID: 4, Rating: float64Ptr(4.5), SalesCount: int64Ptr(99)},
		{ID: 5},
		{ID: 6, Rating: float64Ptr(4.5)},
	}})

	got, err := repo.FindProducts(context.Background(), &model.ProductQuery{Sort: model.SortRelevance, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 4, 3, 1, 6, 5}, productIDs(got))
}

func TestMemoryRepository_PredicatesAndLimit(t *testing.T) {
	seed, err := DefaultSeed()
	require.NoError(t, err)
	repo := NewMemoryRepository(seed)

	got, err := repo.FindProducts(context.Background(), &model.ProductQuery{
		PriceMin: float64Ptr(100),
		PriceMax: float64Ptr(500),
		Style:    strPtr("浪漫型"),
		Sort:     model.SortRelevance,
		Limit:    10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, got)
	for _, p := range got {
		require.NotNil(t, p.Price)
		assert.GreaterOrEqual(t, *p.Price, 100.0)
		assert.LessOrEqual(t, *p.Price, 500.0)
		if p.Style != nil {
			assert.Equal(t, "浪漫型", *p.Style)
		}
	}

	got, err = repo.FindProducts(context.Background(), &model.ProductQuery{Sort: model.SortRelevance, Limit: 3})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestMemoryRepository_CategoryRestriction(t *testing.T) {
	seed, err := DefaultSeed()
	require.NoError(t, err)
	repo := NewMemoryRepository(seed)

	got, err := repo.FindProducts(context.Background(), &model.ProductQuery{
		CategoryIDs: []int64{1},
		Sort:        model.SortPriceAsc,
		Limit:       10,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 9, 1}, productIDs(got))
}

func TestMemoryRepository_CategoriesMatching(t *testing.T) {
	repo := NewMemoryRepository(Seed{Categories: []model.Category{
		{ID: 2, Name: "美妆护肤"},
		{ID: 1, Name: "电子产品"},
		{ID: 3, Name: "Books"},
	}})
	ctx := context.Background()

	got, err := repo.CategoriesMatching(ctx, []string{"护肤", "电子"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(2), got[1].ID)

	got, err = repo.CategoriesMatching(ctx, []string{"books"})
	require.NoError(t, err)
	assert.Empty(t, got, "matching is case-sensitive")

	got, err = repo.CategoriesMatching(ctx, []string{"Book"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMemoryRepository_ListAndGet(t *testing.T) {
	seed, err := DefaultSeed()
	require.NoError(t, err)
	repo := NewMemoryRepository(seed)
	ctx := context.Background()

	page, err := repo.ListProducts(ctx, model.ProductListOptions{Skip: 2, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4, 5}, productIDs(page))

	jd := "jd"
	page, err = repo.ListProducts(ctx, model.ProductListOptions{Limit: 100, Platform: &jd})
	require.NoError(t, err)
	assert.Equal(t, []int64{9, 11}, productIDs(page))

	p, err := repo.GetProductByID(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Dior 999 经典正红色口红", p.Name)

	p, err = repo.GetProductByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, p)

	c, err := repo.GetCategoryByID(ctx, 8)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "体验类", c.Name)
}

func TestMemoryRepository_Logs(t *testing.T) {
	repo := NewMemoryRepository(Seed{})
	ctx := context.Background()

	require.NoError(t, repo.LogRecommendation(ctx, &model.RecommendationLog{RecommendationID: "r1", ProductIDs: []int64{1}}))
	require.NoError(t, repo.LogFeedback(ctx, "r1", 1, "click"))

	require.Len(t, repo.Recommendations(), 1)
	assert.Equal(t, "r1", repo.Recommendations()[0].RecommendationID)
	assert.Equal(t, []FeedbackRecord{{RecommendationID: "r1", ProductID: 1, Action: "click"}}, repo.Feedback())
}

func TestMemoryRepository_CancelledContext(t *testing.T) {
	repo := NewMemoryRepository(Seed{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.FindProducts(ctx, &model.ProductQuery{})
	assert.ErrorIs(t, err, context.Canceled)
}
