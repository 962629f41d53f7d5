package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Adams521/everything-gift/internal/config"
	"github.com/Adams521/everything-gift/internal/logging"
	"github.com/Adams521/everything-gift/internal/metrics"
	"github.com/Adams521/everything-gift/internal/model"
	"github.com/Adams521/everything-gift/internal/utils"
)

// ErrUnparseable means the engine answered but no usable payload could be read from it
var ErrUnparseable = errors.New("AI response is not a parseable analysis payload")

const (
	// RuleReasoning is the reasoning seed of the deterministic path
	RuleReasoning = "根据您的筛选条件进行了商品推荐"

	// AnalysisReasoning replaces a missing reasoning in an otherwise valid payload
	AnalysisReasoning = "根据您的需求进行了商品筛选"
)

const analysisPromptTemplate = `你是一个专业的礼品推荐AI助手。请根据用户的以下需求，分析并返回JSON格式的商品筛选和排序建议。

用户需求：
%s

请分析用户需求，并返回一个JSON对象，包含以下字段：
1. "filters": 筛选条件对象
   - "price_min": 最低价格（数字，可选）
   - "price_max": 最高价格（数字，可选）
   - "suitable_gender": 适用性别（"male", "female", "unisex"或null）
   - "suitable_age_range": 适用年龄段（字符串，如"18-25", "25-35", "35+"或null）
   - "style": 风格（"实用型", "创意型", "浪漫型"等或null）
   - "tags": 标签列表（字符串数组，如["实用", "创意", "浪漫"]或null）
   - "suitable_scenes": 适用场景列表（字符串数组，如["生日", "情人节"]或null）
   - "category_keywords": 分类关键词列表（字符串数组，用于匹配商品分类，如["电子产品", "首饰"]或null）

2. "sort_by": 排序方式（"price_asc", "price_desc", "rating_desc", "sales_desc"或"relevance"）
3. "reasoning": 简要说明筛选逻辑（字符串）

只返回JSON对象，不要包含其他文字说明。JSON格式示例：
{
  "filters": {
    "price_min": 100,
    "price_max": 500,
    "suitable_gender": "female",
    "style": "浪漫型",
    "tags": ["浪漫", "精致"],
    "suitable_scenes": ["情人节", "纪念日"]
  },
  "sort_by": "relevance",
  "reasoning": "根据用户需求，推荐适合女性的浪漫型礼品，价格在100-500元之间"
}
`

// IntentResolver turns a preference request into filters, a sort directive and a reasoning seed.
// It asks the AI engine when one is enabled and falls back to rules on any failure.
type IntentResolver struct {
	engine AIEngine
	opts   GenerateOptions
}

// NewIntentResolver creates a resolver; a nil engine means rules only
func NewIntentResolver(engine AIEngine, cfg *config.AIConfig) *IntentResolver {
	opts := GenerateOptions{Temperature: 0.3, TopP: 0.9}
	if cfg != nil {
		opts = GenerateOptions{
			Temperature: cfg.AnalysisTemperature,
			TopP:        cfg.TopP,
			MaxTokens:   cfg.MaxTokens,
		}
	}
	return &IntentResolver{engine: engine, opts: opts}
}

// Resolve never fails: every AI problem ends in RuleBasedResolution
func (r *IntentResolver) Resolve(ctx context.Context, req *model.PreferenceRequest) (res *model.IntentResolution) {
	defer func() {
		if p := recover(); p != nil {
			r.fallback(ctx, "panic", fmt.Errorf("panic: %v", p))
			res = RuleBasedResolution(req)
		}
	}()

	digest := BuildDigest(req)

	if !engineEnabled(r.engine) {
		r.fallback(ctx, "disabled", ErrAIDisabled)
		return RuleBasedResolution(req)
	}

	text, err := r.engine.Generate(ctx, BuildAnalysisPrompt(digest), r.opts)
	if err != nil {
		r.fallback(ctx, failureReason(err), err)
		return RuleBasedResolution(req)
	}

	resolution, err := ParseAnalysis(text)
	if err != nil {
		r.fallback(ctx, "unparseable", err)
		return RuleBasedResolution(req)
	}

	logging.Ctx(ctx).Debug().
		Str("sort_by", string(resolution.SortBy)).
		Interface("filters", resolution.Filters).
		Msg("Intent resolved by AI")
	return resolution
}

func (r *IntentResolver) fallback(ctx context.Context, reason string, err error) {
	metrics.FallbacksTotal.WithLabelValues("intent", reason).Inc()
	evt := logging.Ctx(ctx).Warn()
	if reason == "disabled" {
		evt = logging.Ctx(ctx).Debug()
	}
	evt.Str("stage", "intent").Str("reason", reason).Err(err).Msg("Using rule-based intent")
}

// BuildAnalysisPrompt embeds the digest into the fixed analysis instruction
func BuildAnalysisPrompt(digest string) string {
	return fmt.Sprintf(analysisPromptTemplate, digest)
}

// RuleBasedResolution copies only the user's explicit budget and style; nothing is invented
func RuleBasedResolution(req *model.PreferenceRequest) *model.IntentResolution {
	res := &model.IntentResolution{
		SortBy:    model.SortRelevance,
		Reasoning: RuleReasoning,
		Source:    model.SourceRules,
	}
	if req == nil {
		return res
	}
	res.Filters.PriceMin = copyFloat(req.BudgetMin)
	res.Filters.PriceMax = copyFloat(req.BudgetMax)
	if style, ok := present(req.Style); ok {
		res.Filters.Style = &style
	}
	return res
}

// analysisPayload mirrors the JSON the analysis prompt asks for. Field types are
// lenient because models quote numbers and return single strings for lists.
type analysisPayload struct {
	Filters   *filterPayload `json:"filters"`
	SortBy    interface{}    `json:"sort_by"`
	Reasoning interface{}    `json:"reasoning"`
}

type filterPayload struct {
	PriceMin         flexFloat   `json:"price_min"`
	PriceMax         flexFloat   `json:"price_max"`
	SuitableGender   flexString  `json:"suitable_gender"`
	SuitableAgeRange flexString  `json:"suitable_age_range"`
	Style            flexString  `json:"style"`
	Tags             flexStrings `json:"tags"`
	SuitableScenes   flexStrings `json:"suitable_scenes"`
	CategoryKeywords flexStrings `json:"category_keywords"`
}

// ParseAnalysis reads an engine response into a validated resolution.
// Any error wraps ErrUnparseable.
func ParseAnalysis(text string) (*model.IntentResolution, error) {
	var payload analysisPayload
	if err := utils.ParseAIJSON(text, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	res := &model.IntentResolution{
		SortBy:    model.SortRelevance,
		Reasoning: AnalysisReasoning,
		Source:    model.SourceAI,
	}
	if s, ok := payload.SortBy.(string); ok {
		res.SortBy = model.ParseSortDirective(s)
	}
	if s, ok := payload.Reasoning.(string); ok && strings.TrimSpace(s) != "" {
		res.Reasoning = strings.TrimSpace(s)
	}
	if payload.Filters != nil {
		res.Filters = payload.Filters.toIntent()
	}
	return res, nil
}

// toIntent applies the repair rules: blanks and negatives become absent,
// unknown genders are dropped and reversed price bounds are swapped
func (f *filterPayload) toIntent() model.FilterIntent {
	intent := model.FilterIntent{
		PriceMin:         nonNegative(f.PriceMin.v),
		PriceMax:         nonNegative(f.PriceMax.v),
		SuitableAgeRange: f.SuitableAgeRange.v,
		Style:            f.Style.v,
		Tags:             cleanList(f.Tags.v),
		SuitableScenes:   cleanList(f.SuitableScenes.v),
		CategoryKeywords: cleanList(f.CategoryKeywords.v),
	}
	if f.SuitableGender.v != nil {
		if g := model.NormalizeGender(*f.SuitableGender.v); g != "" {
			intent.SuitableGender = &g
		}
	}
	if intent.PriceMin != nil && intent.PriceMax != nil && *intent.PriceMin > *intent.PriceMax {
		intent.PriceMin, intent.PriceMax = intent.PriceMax, intent.PriceMin
	}
	return intent
}

// flexFloat accepts a number, a numeric string ("200", "200元") or null
type flexFloat struct{ v *float64 }

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch val := raw.(type) {
	case float64:
		f.v = &val
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(val), "元")
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			f.v = &n
		}
	}
	return nil
}

// flexString accepts a string or null; blank and "null" become absent
type flexString struct{ v *string }

func (f *flexString) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		if s != "" && !strings.EqualFold(s, "null") && !strings.EqualFold(s, "none") {
			f.v = &s
		}
	}
	return nil
}

// flexStrings accepts an array of strings, a single string or null
type flexStrings struct{ v []string }

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch val := raw.(type) {
	case string:
		f.v = []string{val}
	case []interface{}:
		for _, item := range val {
			if s, ok := item.(string); ok {
				f.v = append(f.v, s)
			}
		}
	}
	return nil
}

// failureReason labels an engine error for logs and metrics
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrAIDisabled):
		return "disabled"
	case errors.Is(err, ErrAIRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrAICircuitOpen):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, ErrEmptyResponse):
		return "empty"
	default:
		return "ai_error"
	}
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func nonNegative(p *float64) *float64 {
	if p == nil || *p < 0 {
		return nil
	}
	return p
}
