package steamweb

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
)

type reviewsResponse struct {
	Success      int `json:"success"`
	QuerySummary struct {
		ReviewScore   int `json:"review_score"`
		TotalPositive int `json:"total_positive"`
		TotalNegative int `json:"total_negative"`
		TotalReviews  int `json:"total_reviews"`
	} `json:"query_summary"`
}

// ScoreResult is the outcome of a review score lookup.
type ScoreResult struct {
	Status  Status
	Score   int
	Reviews int
}

// Score looks up the percentage of positive reviews for an app. While cooling down from a rate
// limit no request is made at all.
func (c *Client) Score(ctx context.Context, appID string) ScoreResult {
	if c.coolingDown(&c.scoreDeadline) {
		return ScoreResult{Status: NoData}
	}

	opts := c.options()
	params := url.Values{
		"json":          {"1"},
		"language":      {"all"},
		"purchase_type": {"all"},
		"num_per_page":  {"0"},
	}

	resp, errResp := getJSON[reviewsResponse](ctx, c, opts.StoreBaseURL, "appreviews/"+appID, params)
	if errResp != nil {
		switch {
		case errors.Is(errResp, ErrRateLimited):
			c.startCooldown(&c.scoreDeadline, opts.Cooldown)
			slog.Warn("Review lookups rate limited", slog.Duration("cooldown", opts.Cooldown))
		case errors.Is(errResp, ErrNotFound):
			return ScoreResult{Status: Invalid}
		default:
			slog.Error("Failed to fetch review score", slog.String("app_id", appID),
				slog.String("error", errResp.Error()))
		}

		return ScoreResult{Status: NoData}
	}

	if resp.Success != 1 {
		return ScoreResult{Status: Invalid}
	}

	total := resp.QuerySummary.TotalReviews
	if total == 0 {
		total = resp.QuerySummary.TotalPositive + resp.QuerySummary.TotalNegative
	}

	if total == 0 || total < opts.MinReviews {
		return ScoreResult{Status: NoData, Reviews: total}
	}

	return ScoreResult{
		Status:  Found,
		Score:   (resp.QuerySummary.TotalPositive*100 + total/2) / total,
		Reviews: total,
	}
}
