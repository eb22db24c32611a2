package api

import (
	"context"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/cache"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/logging"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/model"
)

func (c *Client) InsightsQuery() cache.Query {
	return cache.Query{Key: "GET /election/insights", Tags: []cache.Tag{cache.TagInsights}, Fetch: c.get("/election/insights")}
}

func (c *Client) CandidatesQuery() cache.Query {
	return cache.Query{Key: "GET /election/candidates", Tags: []cache.Tag{cache.TagCandidates}, Fetch: c.get("/election/candidates")}
}

func (c *Client) Insights(ctx context.Context) ([]model.Insight, error) {
	return cache.Load[[]model.Insight](ctx, c.cache, c.InsightsQuery())
}

func (c *Client) Candidates(ctx context.Context) ([]model.Candidate, error) {
	return cache.Load[[]model.Candidate](ctx, c.cache, c.CandidatesQuery())
}

// InsightsOrDefault never fails; when the endpoint errors and nothing is
// cached the built-in insights are returned.
func (c *Client) InsightsOrDefault(ctx context.Context) []model.Insight {
	v, err := c.Insights(ctx)
	if err != nil {
		logging.Log.Warnf("API: insights unavailable: %v", err)
	}
	if len(v) == 0 {
		return model.DefaultInsights()
	}
	return v
}

func (c *Client) CandidatesOrDefault(ctx context.Context) []model.Candidate {
	v, err := c.Candidates(ctx)
	if err != nil {
		logging.Log.Warnf("API: candidates unavailable: %v", err)
	}
	if len(v) == 0 {
		return model.DefaultCandidates()
	}
	return v
}
