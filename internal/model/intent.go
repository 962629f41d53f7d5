package model

import "strings"

// SortDirective is the ranking mode applied to the filtered candidate set
type SortDirective string

const (
	SortPriceAsc   SortDirective = "price_asc"
	SortPriceDesc  SortDirective = "price_desc"
	SortRatingDesc SortDirective = "rating_desc"
	SortSalesDesc  SortDirective = "sales_desc"
	SortRelevance  SortDirective = "relevance"
)

// ParseSortDirective normalizes a raw sort value; anything unrecognized becomes relevance
func ParseSortDirective(raw string) SortDirective {
	switch s := SortDirective(strings.ToLower(strings.TrimSpace(raw))); s {
	case SortPriceAsc, SortPriceDesc, SortRatingDesc, SortSalesDesc, SortRelevance:
		return s
	default:
		return SortRelevance
	}
}

// Gender values understood by the catalog
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderUnisex = "unisex"
)

// NormalizeGender maps a free-form gender signal to a catalog gender value.
// Returns empty string when the value is not recognized.
func NormalizeGender(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "male", "m", "男", "男性", "男生":
		return GenderMale
	case "female", "f", "女", "女性", "女生":
		return GenderFemale
	case "unisex", "中性", "通用", "不限":
		return GenderUnisex
	default:
		return ""
	}
}

// FilterIntent is the structured set of catalog predicates derived from AI analysis or rules.
// A nil field means "do not filter on this dimension".
type FilterIntent struct {
	PriceMin         *float64 `json:"price_min,omitempty"`
	PriceMax         *float64 `json:"price_max,omitempty"`
	SuitableGender   *string  `json:"suitable_gender,omitempty"`
	SuitableAgeRange *string  `json:"suitable_age_range,omitempty"`
	Style            *string  `json:"style,omitempty"`
	Tags             []string `json:"tags,omitempty"`             // reserved, never a hard predicate
	SuitableScenes   []string `json:"suitable_scenes,omitempty"`  // reserved, never a hard predicate
	CategoryKeywords []string `json:"category_keywords,omitempty"`
}

// IsEmpty reports whether the intent carries no dimension at all
func (f *FilterIntent) IsEmpty() bool {
	return f == nil || (f.PriceMin == nil && f.PriceMax == nil && f.SuitableGender == nil &&
		f.SuitableAgeRange == nil && f.Style == nil && len(f.Tags) == 0 &&
		len(f.SuitableScenes) == 0 && len(f.CategoryKeywords) == 0)
}

// IntentResolution is the resolved filter/sort/reasoning triple
type IntentResolution struct {
	Filters   FilterIntent  `json:"filters"`
	SortBy    SortDirective `json:"sort_by"`
	Reasoning string        `json:"reasoning"`
	Source    string        `json:"source"` // "ai" or "rules"
}

// Resolution sources
const (
	SourceAI    = "ai"
	SourceRules = "rules"
)
