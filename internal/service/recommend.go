package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/Adams521/everything-gift/internal/cache"
	"github.com/Adams521/everything-gift/internal/logging"
	"github.com/Adams521/everything-gift/internal/metrics"
	"github.com/Adams521/everything-gift/internal/model"
)

// DefaultCategory is reported when no category predicate matched
const DefaultCategory = "通用礼品"

// ErrStreamClosed is returned when the event consumer stops accepting events
var ErrStreamClosed = errors.New("event stream closed")

// EventCallback is called for streaming recommendation events
type EventCallback func(event string, data any) error

// RecommendationRecorder persists finished recommendations
type RecommendationRecorder interface {
	LogRecommendation(ctx context.Context, entry *model.RecommendationLog) error
}

// RecommendService runs the recommendation pipeline end to end.
// For well-formed input it always produces a result; only cancellation is returned as an error.
type RecommendService struct {
	resolver    *IntentResolver
	planner     *QueryPlanner
	synthesizer *ReasoningSynthesizer
	recorder    RecommendationRecorder
	cache       cache.Client
	cacheTTL    time.Duration
}

// RecommendOption configures optional collaborators
type RecommendOption func(*RecommendService)

// WithRecorder logs every finished recommendation asynchronously
func WithRecorder(r RecommendationRecorder) RecommendOption {
	return func(s *RecommendService) { s.recorder = r }
}

// WithCache serves repeated identical requests from c
func WithCache(c cache.Client, ttl time.Duration) RecommendOption {
	return func(s *RecommendService) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// NewRecommendService creates a new recommendation service
func NewRecommendService(
	resolver *IntentResolver,
	planner *QueryPlanner,
	synthesizer *ReasoningSynthesizer,
	opts ...RecommendOption,
) *RecommendService {
	s := &RecommendService{
		resolver:    resolver,
		planner:     planner,
		synthesizer: synthesizer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Recommend produces a recommendation, serving from the result cache when configured
func (s *RecommendService) Recommend(ctx context.Context, req *model.PreferenceRequest) (*model.RecommendationResult, error) {
	if req == nil {
		req = &model.PreferenceRequest{}
	}

	start := time.Now()
	key := s.cacheKey(req)
	if entry := s.fromCache(ctx, key); entry != nil {
		result := entry.Result
		result.RecommendationID = uuid.NewString()
		result.Took = time.Since(start).Milliseconds()
		metrics.RecommendationsTotal.WithLabelValues("cached").Inc()
		s.record(req, entry.Intent, result)
		return result, nil
	}

	result, resolution, fellBack, err := s.run(ctx, req, nil)
	if err != nil {
		return nil, err
	}

	// results produced while the engine was failing are not cached so a recovered engine is used on the next call
	if !result.Degraded && !fellBack {
		s.toCache(ctx, key, &cacheEntry{Result: result, Intent: resolution})
	}
	return result, nil
}

// RecommendStream runs the pipeline and reports intermediate stages through callback.
// A nil callback runs silently.
func (s *RecommendService) RecommendStream(ctx context.Context, req *model.PreferenceRequest, callback EventCallback) (*model.RecommendationResult, error) {
	result, _, _, err := s.run(ctx, req, callback)
	return result, err
}

// run executes one recommendation. fellBack reports that an enabled engine failed in some stage.
func (s *RecommendService) run(ctx context.Context, req *model.PreferenceRequest, callback EventCallback) (result *model.RecommendationResult, resolution *model.IntentResolution, fellBack bool, err error) {
	if req == nil {
		req = &model.PreferenceRequest{}
	}

	startTime := time.Now()
	id := uuid.NewString()
	if logging.RequestIDFromContext(ctx) == "" {
		ctx = logging.ContextWithRequestID(ctx, id)
	}

	emit := func(event string, data any) error {
		if callback == nil {
			return nil
		}
		if err := callback(event, data); err != nil {
			return fmt.Errorf("%w: %v", ErrStreamClosed, err)
		}
		return nil
	}

	if err := ctx.Err(); err != nil {
		metrics.RecommendationsTotal.WithLabelValues("cancelled").Inc()
		return nil, nil, false, err
	}

	result, resolution, fellBack, err = s.pipeline(ctx, req, emit)
	switch {
	case ctx.Err() != nil:
		metrics.RecommendationsTotal.WithLabelValues("cancelled").Inc()
		return nil, nil, false, ctx.Err()
	case errors.Is(err, ErrStreamClosed):
		metrics.RecommendationsTotal.WithLabelValues("cancelled").Inc()
		return nil, nil, false, err
	case err != nil:
		metrics.FallbacksTotal.WithLabelValues("pipeline", "error").Inc()
		logging.Ctx(ctx).Warn().Str("stage", "pipeline").Str("reason", "error").Err(err).
			Msg("Pipeline failed, degrading to rule-based recommendation")
		result, resolution = s.degrade(ctx, req)
		fellBack = true
	}

	result.RecommendationID = id
	result.Took = time.Since(startTime).Milliseconds()

	outcome := "ok"
	if result.Degraded {
		outcome = "degraded"
	}
	metrics.RecommendationsTotal.WithLabelValues(outcome).Inc()
	metrics.RecommendationDuration.Observe(time.Since(startTime).Seconds())

	logging.Ctx(ctx).Info().
		Str("recommendation_id", id).
		Str("intent_source", resolution.Source).
		Int("products", len(result.Products)).
		Bool("degraded", result.Degraded).
		Bool("fell_back", fellBack).
		Int64("took_ms", result.Took).
		Msg("Recommendation completed")

	s.record(req, resolution, result)
	return result, resolution, fellBack, nil
}

// pipeline is the AI-assisted path. Panics are returned as errors.
func (s *RecommendService) pipeline(ctx context.Context, req *model.PreferenceRequest, emit EventCallback) (result *model.RecommendationResult, resolution *model.IntentResolution, fellBack bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("pipeline panic: %v", p)
		}
	}()

	resolution = s.resolver.Resolve(ctx, req)
	if err := ctx.Err(); err != nil {
		return nil, nil, false, err
	}
	fellBack = engineEnabled(s.resolver.engine) && resolution.Source == model.SourceRules
	if err := emit("intent", resolution); err != nil {
		return nil, nil, false, err
	}

	plan, err := s.planner.PlanAndExecute(ctx, resolution, req)
	if err != nil {
		return nil, nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, false, err
	}
	categories := categoryNames(plan)
	if err := emit("products", map[string]any{
		"categories": categories,
		"products":   plan.Products,
	}); err != nil {
		return nil, nil, false, err
	}

	reasoning, templated := s.synthesizer.synthesize(ctx, plan.Products, req, resolution.Reasoning)
	if err := ctx.Err(); err != nil {
		return nil, nil, false, err
	}
	fellBack = fellBack || templated
	if err := emit("reasoning", map[string]any{"reasoning": reasoning}); err != nil {
		return nil, nil, false, err
	}

	return &model.RecommendationResult{
		Categories: categories,
		Products:   plan.Products,
		Reasoning:  reasoning,
	}, resolution, fellBack, nil
}

// degrade runs rules, the planner and the template only. If the catalog fails
// again the result is empty with the apology reasoning.
func (s *RecommendService) degrade(ctx context.Context, req *model.PreferenceRequest) (result *model.RecommendationResult, resolution *model.IntentResolution) {
	resolution = RuleBasedResolution(req)
	result = &model.RecommendationResult{
		Categories: []string{DefaultCategory},
		Products:   []model.Product{},
		Reasoning:  NoMatchReasoning,
		Degraded:   true,
	}

	defer func() {
		if p := recover(); p != nil {
			logging.Ctx(ctx).Error().Interface("panic", p).Msg("Rule-based recommendation panicked")
		}
	}()

	plan, err := s.planner.PlanAndExecute(ctx, resolution, req)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Rule-based recommendation failed, returning empty result")
		return result, resolution
	}

	result.Categories = categoryNames(plan)
	result.Products = plan.Products
	if len(plan.Products) > 0 {
		result.Reasoning = TemplateReasoning(req)
	}
	return result, resolution
}

// record writes the audit log outside the request path; failures are only logged
func (s *RecommendService) record(req *model.PreferenceRequest, resolution *model.IntentResolution, result *model.RecommendationResult) {
	if s.recorder == nil {
		return
	}

	entry := &model.RecommendationLog{
		RecommendationID: result.RecommendationID,
		Digest:           BuildDigest(req),
		Intent:           resolution,
		ProductIDs:       make([]int64, len(result.Products)),
		Degraded:         result.Degraded,
		TookMs:           result.Took,
	}
	for i, p := range result.Products {
		entry.ProductIDs[i] = p.ID
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.recorder.LogRecommendation(ctx, entry); err != nil {
			logging.Warn().Err(err).Str("recommendation_id", entry.RecommendationID).
				Msg("Failed to log recommendation")
		}
	}()
}

// cacheEntry keeps the resolved intent next to the result so cache hits can be audit-logged
type cacheEntry struct {
	Result *model.RecommendationResult `json:"result"`
	Intent *model.IntentResolution     `json:"intent"`
}

// cacheKey is the SHA-256 of the canonical request JSON
func (s *RecommendService) cacheKey(req *model.PreferenceRequest) string {
	if s.cache == nil {
		return ""
	}
	data, err := json.Marshal(req)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return cache.Key("rec", hex.EncodeToString(sum[:]))
}

func (s *RecommendService) fromCache(ctx context.Context, key string) *cacheEntry {
	if key == "" {
		return nil
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			metrics.CacheRequests.WithLabelValues("miss").Inc()
		} else {
			metrics.CacheRequests.WithLabelValues("error").Inc()
			logging.Ctx(ctx).Warn().Err(err).Msg("Recommendation cache read failed")
		}
		return nil
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Result == nil {
		metrics.CacheRequests.WithLabelValues("error").Inc()
		return nil
	}
	metrics.CacheRequests.WithLabelValues("hit").Inc()
	return &entry
}

func (s *RecommendService) toCache(ctx context.Context, key string, entry *cacheEntry) {
	if key == "" {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Recommendation cache write failed")
	}
}

func categoryNames(plan *PlanResult) []string {
	if plan == nil || len(plan.MatchedCategories) == 0 {
		return []string{DefaultCategory}
	}
	return plan.CategoryNames()
}
