package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adams521/everything-gift/internal/model"
	"github.com/Adams521/everything-gift/internal/repository"
)

func TestQueryPlanner_MergeFilters(t *testing.T) {
	planner := NewQueryPlanner(nil, 10)

	tests := []struct {
		name   string
		intent model.FilterIntent
		req    *model.PreferenceRequest
		check  func(t *testing.T, q *model.ProductQuery)
	}{
		{
			name:   "AI value wins over user value",
			intent: model.FilterIntent{PriceMax: float64Ptr(200), Style: strPtr("创意型")},
			req:    &model.PreferenceRequest{BudgetMax: float64Ptr(800), Style: strPtr("实用型")},
			check: func(t *testing.T, q *model.ProductQuery) {
				assert.Equal(t, 200.0, *q.PriceMax)
				assert.Equal(t, "创意型", *q.Style)
			},
		},
		{
			name:   "User value fills absent dimensions",
			intent: model.FilterIntent{PriceMax: float64Ptr(200)},
			req: &model.PreferenceRequest{
				BudgetMin: float64Ptr(50),
				Style:     strPtr("实用型"),
				Gender:    strPtr("男"),
				AgeRange:  strPtr("18-25"),
			},
			check: func(t *testing.T, q *model.ProductQuery) {
				assert.Equal(t, 50.0, *q.PriceMin)
				assert.Equal(t, 200.0, *q.PriceMax)
				assert.Equal(t, "实用型", *q.Style)
				assert.Equal(t, model.GenderMale, *q.Gender)
				assert.Equal(t, "18-25", *q.AgeRange)
			},
		},
		{
			name:   "Absent in both means no predicate",
			intent: model.FilterIntent{Tags: []string{"浪漫"}, SuitableScenes: []string{"生日"}},
			req:    &model.PreferenceRequest{Gender: strPtr("保密"), Style: strPtr(" ")},
			check: func(t *testing.T, q *model.ProductQuery) {
				assert.Nil(t, q.PriceMin)
				assert.Nil(t, q.PriceMax)
				assert.Nil(t, q.Gender)
				assert.Nil(t, q.AgeRange)
				assert.Nil(t, q.Style)
				assert.Empty(t, q.CategoryIDs)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := planner.mergeFilters(&tt.intent, tt.req)
			assert.Equal(t, 10, q.Limit)
			tt.check(t, q)
		})
	}
}

func TestQueryPlanner_GenderNeverExcludesUnisexOrUnset(t *testing.T) {
	repo := repository.NewMemoryRepository(repository.Seed{Products: []model.Product{
		{ID: 1, SuitableGender: strPtr(model.GenderFemale)},
		{ID: 2, SuitableGender: strPtr(model.GenderMale)},
		{ID: 3, SuitableGender: strPtr(model.GenderUnisex)},
		{ID: 4},
	}})
	planner := NewQueryPlanner(repo, 10)

	res, err := planner.PlanAndExecute(context.Background(), &model.IntentResolution{
		Filters: model.FilterIntent{SuitableGender: strPtr(model.GenderFemale)},
		SortBy:  model.SortRelevance,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 4}, ids(res.Products))
}

func TestQueryPlanner_CategoryKeywords(t *testing.T) {
	repo := seedRepository(t)
	planner := NewQueryPlanner(repo, 10)
	ctx := context.Background()

	t.Run("Matched categories restrict and surface", func(t *testing.T) {
		res, err := planner.PlanAndExecute(ctx, &model.IntentResolution{
			Filters: model.FilterIntent{CategoryKeywords: []string{"美妆", "家居"}},
			SortBy:  model.SortPriceAsc,
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"美妆护肤", "家居用品"}, res.CategoryNames())
		assert.Equal(t, []int64{3, 2, 12}, ids(res.Products))
	})

	t.Run("Unmatched keywords never zero out the result", func(t *testing.T) {
		res, err := planner.PlanAndExecute(ctx, &model.IntentResolution{
			Filters: model.FilterIntent{CategoryKeywords: []string{"宠物用品"}},
			SortBy:  model.SortRelevance,
		}, nil)
		require.NoError(t, err)
		assert.Empty(t, res.MatchedCategories)
		assert.Len(t, res.Products, 10)
	})
}

func TestQueryPlanner_SortAndLimit(t *testing.T) {
	planner := NewQueryPlanner(seedRepository(t), 50)
	assert.Equal(t, MaxRecommendations, planner.maxResults)

	res, err := planner.PlanAndExecute(context.Background(), &model.IntentResolution{
		Filters: model.FilterIntent{PriceMax: float64Ptr(200)},
		SortBy:  model.SortPriceAsc,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 5, 3, 6, 8}, ids(res.Products))

	res, err = planner.PlanAndExecute(context.Background(), &model.IntentResolution{
		SortBy: model.SortDirective("bogus"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.SortRelevance, res.Query.Sort)
	assert.Equal(t, []int64{2, 1, 6, 11, 9, 3, 4, 8, 5, 7}, ids(res.Products))
}

func TestQueryPlanner_InvertedUserRangeIsNoMatch(t *testing.T) {
	planner := NewQueryPlanner(seedRepository(t), 10)

	res, err := planner.PlanAndExecute(context.Background(), nil, &model.PreferenceRequest{
		BudgetMin: float64Ptr(500),
		BudgetMax: float64Ptr(100),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Products)
	assert.NotNil(t, res.Products)
}

func TestQueryPlanner_CatalogFailureIsReturned(t *testing.T) {
	catalog := &failingCatalog{Catalog: seedRepository(t), failures: 1}
	planner := NewQueryPlanner(catalog, 10)

	_, err := planner.PlanAndExecute(context.Background(), RuleBasedResolution(nil), nil)
	assert.Error(t, err)

	res, err := planner.PlanAndExecute(context.Background(), RuleBasedResolution(nil), nil)
	require.NoError(t, err)
	assert.Len(t, res.Products, 10)
}
