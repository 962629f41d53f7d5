package service

import (
	"strconv"
	"strings"

	"github.com/Adams521/everything-gift/internal/model"
)

// DigestSentinel is the digest of a request that carries no signal at all
const DigestSentinel = "通用礼品推荐"

const digestSeparator = "；"

// BuildDigest renders the present request fields as "label: value" in a fixed
// order, joined by a fixed separator. It is pure and total.
func BuildDigest(req *model.PreferenceRequest) string {
	if req == nil {
		return DigestSentinel
	}

	var parts []string
	add := func(label string, value *string) {
		if v, ok := present(value); ok {
			parts = append(parts, label+": "+v)
		}
	}

	add("用户描述", req.Query)
	add("收礼人类型", req.RecipientType)
	add("年龄段", req.AgeRange)
	add("性别", req.Gender)
	add("关系", req.Relationship)
	add("场景", req.Occasion)

	switch {
	case req.BudgetMin != nil && req.BudgetMax != nil:
		parts = append(parts, "预算: "+formatAmount(*req.BudgetMin)+"-"+formatAmount(*req.BudgetMax)+"元")
	case req.BudgetMin != nil:
		parts = append(parts, "最低预算: "+formatAmount(*req.BudgetMin)+"元")
	case req.BudgetMax != nil:
		parts = append(parts, "最高预算: "+formatAmount(*req.BudgetMax)+"元")
	}

	add("风格偏好", req.Style)
	add("MBTI", req.MBTI)
	add("星座", req.Zodiac)

	if interests := cleanList(req.Interests); len(interests) > 0 {
		parts = append(parts, "兴趣爱好: "+strings.Join(interests, ", "))
	}

	if len(parts) == 0 {
		return DigestSentinel
	}
	return strings.Join(parts, digestSeparator)
}

// present returns the trimmed value and whether it carries any signal
func present(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	v := strings.TrimSpace(*p)
	return v, v != ""
}

// cleanList trims entries and drops blanks and duplicates, keeping first-seen order
func cleanList(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// formatAmount prints 100 as "100" and 99.5 as "99.5"
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
