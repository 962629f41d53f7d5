package commands

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adams521/everything-gift/internal/model"
)

type recommendOptions struct {
	query        string
	recipient    string
	ageRange     string
	gender       string
	relationship string
	occasion     string
	style        string
	mbti         string
	zodiac       string
	interests    []string
	budgetMin    float64
	budgetMax    float64
	timeout      time.Duration
}

func newRecommendCmd(global *globalOptions) *cobra.Command {
	opts := &recommendOptions{}

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Run the recommendation pipeline for one preference record",
		Example: `  giftctl recommend --occasion 生日 --budget-max 300 --style 实用型
  giftctl recommend --query "送给喜欢露营的男朋友" --no-ai`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			app, err := loadApp(ctx, global)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Recommend.Recommend(ctx, opts.request(cmd))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.query, "query", "q", "", "free-text description")
	f.StringVar(&opts.recipient, "recipient", "", "recipient type, e.g. 父母")
	f.StringVar(&opts.ageRange, "age-range", "", "recipient age range")
	f.StringVar(&opts.gender, "gender", "", "recipient gender")
	f.StringVar(&opts.relationship, "relationship", "", "relationship to the recipient")
	f.StringVar(&opts.occasion, "occasion", "", "occasion, e.g. 生日")
	f.StringVar(&opts.style, "style", "", "gift style, e.g. 浪漫型")
	f.StringVar(&opts.mbti, "mbti", "", "recipient MBTI")
	f.StringVar(&opts.zodiac, "zodiac", "", "recipient zodiac sign")
	f.StringSliceVar(&opts.interests, "interest", nil, "recipient interest (repeatable)")
	f.Float64Var(&opts.budgetMin, "budget-min", 0, "minimum budget in yuan")
	f.Float64Var(&opts.budgetMax, "budget-max", 0, "maximum budget in yuan")
	f.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall timeout")

	return cmd
}

// request maps set flags to a preference record; unset flags stay absent
func (o *recommendOptions) request(cmd *cobra.Command) *model.PreferenceRequest {
	req := &model.PreferenceRequest{
		Query:         optional(o.query),
		RecipientType: optional(o.recipient),
		AgeRange:      optional(o.ageRange),
		Gender:        optional(o.gender),
		Relationship:  optional(o.relationship),
		Occasion:      optional(o.occasion),
		Style:         optional(o.style),
		MBTI:          optional(o.mbti),
		Zodiac:        optional(o.zodiac),
		Interests:     o.interests,
	}
	if cmd.Flags().Changed("budget-min") {
		v := o.budgetMin
		req.BudgetMin = &v
	}
	if cmd.Flags().Changed("budget-max") {
		v := o.budgetMax
		req.BudgetMax = &v
	}
	return req
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
