package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Adams521/everything-gift/internal/config"
	"github.com/Adams521/everything-gift/internal/logging"
	"github.com/Adams521/everything-gift/internal/metrics"
	"github.com/Adams521/everything-gift/internal/model"
	"github.com/Adams521/everything-gift/internal/utils"
)

const (
	// NoMatchReasoning is returned whenever the result set is empty
	NoMatchReasoning = "抱歉，暂时没有找到完全符合您条件的礼品，建议放宽预算或调整筛选条件后再试。"

	// GenericReasoning is the template output for a request without any field
	GenericReasoning = "为您精选了以下热门礼品。"
)

const reasoningPromptTemplate = `你是一个专业的礼品推荐AI助手。请根据用户需求和推荐的商品，生成一段自然、友好的推荐理由（100-200字）。

用户需求：
%s

筛选思路：
%s

推荐的商品：
%s

请生成推荐理由，说明为什么这些商品适合用户的需求。语言要自然、友好，不要使用列表格式。
`

// ReasoningSynthesizer explains a result set, via the AI engine when available
type ReasoningSynthesizer struct {
	engine         AIEngine
	opts           GenerateOptions
	promptProducts int
	excerptRunes   int
}

// NewReasoningSynthesizer creates a synthesizer; a nil engine means template only
func NewReasoningSynthesizer(engine AIEngine, aiCfg *config.AIConfig, recCfg *config.RecommendConfig) *ReasoningSynthesizer {
	s := &ReasoningSynthesizer{
		engine:         engine,
		opts:           GenerateOptions{Temperature: 0.7, TopP: 0.9},
		promptProducts: 5,
		excerptRunes:   50,
	}
	if aiCfg != nil {
		s.opts = GenerateOptions{
			Temperature: aiCfg.ReasoningTemperature,
			TopP:        aiCfg.TopP,
			MaxTokens:   aiCfg.MaxTokens,
		}
	}
	if recCfg != nil {
		if recCfg.ReasoningProducts > 0 {
			s.promptProducts = recCfg.ReasoningProducts
		}
		if recCfg.DescriptionExcerpt > 0 {
			s.excerptRunes = recCfg.DescriptionExcerpt
		}
	}
	return s
}

// Synthesize never fails; engine problems degrade to TemplateReasoning
func (s *ReasoningSynthesizer) Synthesize(ctx context.Context, products []model.Product, req *model.PreferenceRequest, seed string) string {
	reasoning, _ := s.synthesize(ctx, products, req, seed)
	return reasoning
}

// synthesize also reports whether an enabled engine failed and the template was used instead
func (s *ReasoningSynthesizer) synthesize(ctx context.Context, products []model.Product, req *model.PreferenceRequest, seed string) (reasoning string, fellBack bool) {
	if len(products) == 0 {
		return NoMatchReasoning, false
	}

	defer func() {
		if p := recover(); p != nil {
			s.fallback(ctx, "panic", fmt.Errorf("panic: %v", p))
			reasoning, fellBack = TemplateReasoning(req), true
		}
	}()

	if !engineEnabled(s.engine) {
		return TemplateReasoning(req), false
	}

	text, err := s.engine.Generate(ctx, s.buildPrompt(products, req, seed), s.opts)
	if err != nil {
		s.fallback(ctx, failureReason(err), err)
		return TemplateReasoning(req), true
	}

	text = strings.TrimSpace(text)
	if text == "" {
		s.fallback(ctx, "empty", ErrEmptyResponse)
		return TemplateReasoning(req), true
	}
	return text, false
}

func (s *ReasoningSynthesizer) fallback(ctx context.Context, reason string, err error) {
	metrics.FallbacksTotal.WithLabelValues("reasoning", reason).Inc()
	logging.Ctx(ctx).Warn().Str("stage", "reasoning").Str("reason", reason).Err(err).
		Msg("Using template reasoning")
}

func (s *ReasoningSynthesizer) buildPrompt(products []model.Product, req *model.PreferenceRequest, seed string) string {
	n := len(products)
	if n > s.promptProducts {
		n = s.promptProducts
	}

	lines := make([]string, 0, n)
	for i, p := range products[:n] {
		price := "未知"
		if p.Price != nil {
			price = formatAmount(*p.Price) + "元"
		}
		lines = append(lines, fmt.Sprintf("%d. %s - 价格: %s, 风格: %s, 描述: %s",
			i+1, p.Name, price, deref(p.Style), utils.TruncateRunes(deref(p.Description), s.excerptRunes)))
	}

	if strings.TrimSpace(seed) == "" {
		seed = RuleReasoning
	}
	return fmt.Sprintf(reasoningPromptTemplate, BuildDigest(req), seed, strings.Join(lines, "\n"))
}

// TemplateReasoning composes the deterministic explanation from the present request fields
func TemplateReasoning(req *model.PreferenceRequest) string {
	if req == nil {
		return GenericReasoning
	}

	var parts []string
	if v, ok := present(req.RecipientType); ok {
		parts = append(parts, "收礼人："+v)
	}
	if v, ok := present(req.Occasion); ok {
		parts = append(parts, "场景："+v)
	}
	switch {
	case req.BudgetMin != nil && req.BudgetMax != nil:
		parts = append(parts, "预算："+formatAmount(*req.BudgetMin)+"-"+formatAmount(*req.BudgetMax)+"元")
	case req.BudgetMin != nil:
		parts = append(parts, "预算："+formatAmount(*req.BudgetMin)+"元以上")
	case req.BudgetMax != nil:
		parts = append(parts, "预算："+formatAmount(*req.BudgetMax)+"元以内")
	}
	if v, ok := present(req.Style); ok {
		parts = append(parts, "风格："+v)
	}

	if len(parts) == 0 {
		return GenericReasoning
	}
	return "根据您的筛选条件（" + strings.Join(parts, "，") + "），为您推荐以下礼品。"
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
