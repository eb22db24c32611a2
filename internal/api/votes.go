package api

import (
	"context"
	"fmt"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/cache"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/model"
)

func (c *Client) VotesQuery() cache.Query {
	return cache.Query{Key: "GET /votes", Tags: []cache.Tag{cache.TagVotes}, Fetch: c.get("/votes")}
}

func (c *Client) ReferendumQuery() cache.Query {
	return cache.Query{Key: "GET /votes/referendum", Tags: []cache.Tag{cache.TagReferendum}, Fetch: c.get("/votes/referendum")}
}

func (c *Client) CountdownQuery() cache.Query {
	return cache.Query{Key: "GET /votes/countdown", Tags: []cache.Tag{cache.TagCountdown}, Fetch: c.get("/votes/countdown")}
}

func (c *Client) Votes(ctx context.Context) (model.VoteTally, error) {
	return cache.Load[model.VoteTally](ctx, c.cache, c.VotesQuery())
}

func (c *Client) Referendum(ctx context.Context) (model.ReferendumTally, error) {
	return cache.Load[model.ReferendumTally](ctx, c.cache, c.ReferendumQuery())
}

func (c *Client) Countdown(ctx context.Context) (model.CountdownValue, error) {
	return cache.Load[model.CountdownValue](ctx, c.cache, c.CountdownQuery())
}

// CastVote records one vote for opt and returns the updated tally.
func (c *Client) CastVote(ctx context.Context, opt model.Option) (model.VoteTally, error) {
	if !opt.Valid() {
		return model.VoteTally{}, fmt.Errorf("invalid ballot option %q", opt)
	}
	body := struct {
		Party model.Option `json:"party"`
	}{opt}
	return mutate[model.VoteTally](ctx, c, []cache.Tag{cache.TagVotes}, c.postJSON("/votes", body))
}

func (c *Client) CastReferendumVote(ctx context.Context, choice model.Choice) (model.ReferendumTally, error) {
	if !choice.Valid() {
		return model.ReferendumTally{}, fmt.Errorf("invalid referendum choice %q", choice)
	}
	body := struct {
		Choice model.Choice `json:"choice"`
	}{choice}
	return mutate[model.ReferendumTally](ctx, c, []cache.Tag{cache.TagReferendum}, c.postJSON("/votes/referendum", body))
}
