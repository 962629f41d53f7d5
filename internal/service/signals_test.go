package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adams521/everything-gift/internal/model"
)

func TestBuildDigest(t *testing.T) {
	tests := []struct {
		name string
		req  *model.PreferenceRequest
		want string
	}{
		{
			name: "Nil request",
			req:  nil,
			want: DigestSentinel,
		},
		{
			name: "All fields absent",
			req:  &model.PreferenceRequest{},
			want: DigestSentinel,
		},
		{
			name: "Blank strings count as absent",
			req:  &model.PreferenceRequest{Query: strPtr("  "), Style: strPtr(""), Interests: []string{" "}},
			want: DigestSentinel,
		},
		{
			name: "Budget range and style",
			req: &model.PreferenceRequest{
				BudgetMin: float64Ptr(100),
				BudgetMax: float64Ptr(500),
				Style:     strPtr("浪漫型"),
			},
			want: "预算: 100-500元；风格偏好: 浪漫型",
		},
		{
			name: "Single budget bounds",
			req:  &model.PreferenceRequest{BudgetMax: float64Ptr(99.5)},
			want: "最高预算: 99.5元",
		},
		{
			name: "Fixed field order",
			req: &model.PreferenceRequest{
				Interests:     []string{"摄影", "旅行", "摄影"},
				Zodiac:        strPtr("天秤座"),
				MBTI:          strPtr("INFP"),
				Occasion:      strPtr("生日"),
				RecipientType: strPtr("女朋友"),
				Query:         strPtr("想送点特别的"),
				BudgetMin:     float64Ptr(200),
			},
			want: "用户描述: 想送点特别的；收礼人类型: 女朋友；场景: 生日；最低预算: 200元；MBTI: INFP；星座: 天秤座；兴趣爱好: 摄影, 旅行",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildDigest(tt.req))
		})
	}
}

func TestBuildDigest_Deterministic(t *testing.T) {
	req := &model.PreferenceRequest{
		Gender:       strPtr("女"),
		AgeRange:     strPtr("25-35"),
		Relationship: strPtr("同事"),
	}
	first := BuildDigest(req)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, BuildDigest(req))
	}
	assert.Equal(t, "年龄段: 25-35；性别: 女；关系: 同事", first)
}
