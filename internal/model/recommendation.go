package model

// PreferenceRequest represents the user's gift preference signals. Every field is optional.
type PreferenceRequest struct {
	Query         *string  `json:"query,omitempty"`          // free-text description
	RecipientType *string  `json:"recipient_type,omitempty"` // 男/女友、父母、同事等
	AgeRange      *string  `json:"age_range,omitempty"`
	Gender        *string  `json:"gender,omitempty"`
	Relationship  *string  `json:"relationship,omitempty"`
	Occasion      *string  `json:"occasion,omitempty"` // 生日、纪念日、节日等
	BudgetMin     *float64 `json:"budget_min,omitempty"` // advisory; inverted or negative bounds are passed through
	BudgetMax     *float64 `json:"budget_max,omitempty"`
	Style         *string  `json:"style,omitempty"` // 实用型、创意型、浪漫型等
	MBTI          *string  `json:"mbti,omitempty"`
	Zodiac        *string  `json:"zodiac,omitempty"`
	Interests     []string `json:"interests,omitempty"`
}

// RecommendationResult is the pipeline output
type RecommendationResult struct {
	RecommendationID string    `json:"recommendation_id"`
	Categories       []string  `json:"categories"`
	Products         []Product `json:"products"`
	Reasoning        string    `json:"reasoning"`
	Degraded         bool      `json:"degraded"` // true when the rule-based path replaced a failed pipeline
	Took             int64     `json:"took_ms"`
}

// RecommendationLog is an audit record of a finished recommendation
type RecommendationLog struct {
	RecommendationID string
	Digest           string
	Intent           *IntentResolution
	ProductIDs       []int64
	Degraded         bool
	TookMs           int64
}

// FeedbackRequest represents a user action on a recommendation
type FeedbackRequest struct {
	RecommendationID string `json:"recommendation_id" binding:"required"`
	ProductID        int64  `json:"product_id" binding:"required"`
	Action           string `json:"action" binding:"required"` // click, favorite, purchase
}

// FeedbackResponse represents feedback response
type FeedbackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
