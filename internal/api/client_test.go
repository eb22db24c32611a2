package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/cache"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/metrics"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/model"
)

func setupTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	m := metrics.NewClientMetrics(prometheus.NewRegistry(), "test", "api")
	c := cache.New(cache.NewMemoryBackend(), time.Minute, m)
	t.Cleanup(func() { _ = c.Close() })

	return NewClient(srv.URL+"/api", c, m)
}

func writeEnvelope(w http.ResponseWriter, status int, success bool, data any, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": success, "data": data, "message": msg})
}

func TestVotes(t *testing.T) {
	calls := atomic.NewInt32(0)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/votes", func(w http.ResponseWriter, r *http.Request) {
		calls.Inc()
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.Write([]byte(`{"success":true,"data":{"partyA":120,"partyB":95,"total":215}}`))
	})
	c := setupTestClient(t, mux)

	got, err := c.Votes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.VoteTally{PartyA: 120, PartyB: 95, Total: 215}, got)

	_, err = c.Votes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/votes/referendum", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusInternalServerError, false, nil, "database offline")
	})
	mux.HandleFunc("GET /api/votes/countdown", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, false, nil, "")
	})
	mux.HandleFunc("GET /api/election/insights", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>`))
	})
	c := setupTestClient(t, mux)

	t.Run("Unhappy path - status and envelope message", func(t *testing.T) {
		_, err := c.Referendum(context.Background())
		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
		assert.Equal(t, "database offline", apiErr.Message)
		assert.True(t, IsStatus(err, http.StatusInternalServerError))
	})

	t.Run("Unhappy path - success false", func(t *testing.T) {
		_, err := c.Countdown(context.Background())
		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "request failed", apiErr.Message)
	})

	t.Run("Unhappy path - not json", func(t *testing.T) {
		_, err := c.Insights(context.Background())
		assert.ErrorContains(t, err, "invalid response from /election/insights")
	})

	t.Run("Unhappy path - unreachable", func(t *testing.T) {
		m := metrics.NewClientMetrics(prometheus.NewRegistry(), "test", "api")
		cc := cache.New(cache.NewMemoryBackend(), time.Minute, m)
		defer cc.Close()
		dead := NewClient("http://127.0.0.1:1/api", cc, m)
		_, err := dead.Votes(context.Background())
		assert.ErrorContains(t, err, "failed to call /votes")
	})
}

func TestCastVoteInvalidatesVotes(t *testing.T) {
	gets := atomic.NewInt32(0)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/votes", func(w http.ResponseWriter, r *http.Request) {
		n := gets.Inc()
		writeEnvelope(w, http.StatusOK, true, model.VoteTally{PartyA: int(n), Total: int(n)}, "")
	})
	mux.HandleFunc("POST /api/votes", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"party": "scale"}, body)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		writeEnvelope(w, http.StatusOK, true, model.VoteTally{PartyA: 1, PartyB: 1, Total: 2}, "")
	})
	c := setupTestClient(t, mux)

	_, err := c.Votes(context.Background())
	require.NoError(t, err)

	refetched := make(chan model.VoteTally, 1)
	stop := c.Cache().Watch(c.VotesQuery(), func(data []byte, err error) {
		v, err := cache.Decode[model.VoteTally](data, err)
		assert.NoError(t, err)
		refetched <- v
	})
	defer stop()

	got, err := c.CastVote(context.Background(), model.OptionScale)
	require.NoError(t, err)
	assert.Equal(t, model.VoteTally{PartyA: 1, PartyB: 1, Total: 2}, got)

	select {
	case v := <-refetched:
		assert.Equal(t, 2, v.PartyA)
	case <-time.After(2 * time.Second):
		t.Fatal("votes query was not refetched")
	}
}

func TestCastVoteRejectsUnknownOption(t *testing.T) {
	posts := atomic.NewInt32(0)
	c := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { posts.Inc() }))

	_, err := c.CastVote(context.Background(), model.Option("boat"))
	assert.Error(t, err)
	_, err = c.CastReferendumVote(context.Background(), model.Choice("maybe"))
	assert.Error(t, err)
	assert.Zero(t, posts.Load())
}

func TestCastReferendumVote(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/votes/referendum", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"choice":"yes"}`, string(b))
		writeEnvelope(w, http.StatusOK, true, model.ReferendumTally{Yes: 11, No: 4}, "")
	})
	c := setupTestClient(t, mux)

	got, err := c.CastReferendumVote(context.Background(), model.ChoiceYes)
	require.NoError(t, err)
	assert.Equal(t, model.ReferendumTally{Yes: 11, No: 4}, got)
}

func TestVerifyNID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/nid/verify", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Image string }
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Image == "data:image/jpeg;base64,YWJj" {
			writeEnvelope(w, http.StatusOK, true, model.VerificationResult{IsValid: true, Name: "Fatema Khatun"}, "")
			return
		}
		writeEnvelope(w, http.StatusOK, false, model.VerificationResult{Message: "unreadable"}, "")
	})
	c := setupTestClient(t, mux)

	t.Run("Happy path - valid card", func(t *testing.T) {
		got, err := c.VerifyNID(context.Background(), "data:image/jpeg;base64,YWJj")
		require.NoError(t, err)
		assert.True(t, got.Verified())
		assert.Equal(t, "Fatema Khatun", got.Name)
	})

	t.Run("Happy path - negative verdict is not an error", func(t *testing.T) {
		got, err := c.VerifyNID(context.Background(), "data:image/png;base64,AA==")
		require.NoError(t, err)
		assert.False(t, got.Verified())
		assert.Equal(t, "unreadable", got.Message)
	})
}

func TestVerifyNIDUpload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/nid/upload", func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("nidImage")
		require.NoError(t, err)
		defer f.Close()
		b, _ := io.ReadAll(f)
		assert.Equal(t, "card.png", hdr.Filename)
		assert.Equal(t, "image/png", hdr.Header.Get("Content-Type"))
		assert.Equal(t, []byte{1, 2, 3}, b)
		writeEnvelope(w, http.StatusOK, true, model.VerificationResult{Success: true, ImagePath: "/uploads/card.png"}, "")
	})
	c := setupTestClient(t, mux)

	got, err := c.VerifyNIDUpload(context.Background(), model.Image{Name: "card.png", ContentType: "image/png", Data: []byte{1, 2, 3}})
	require.NoError(t, err)
	assert.True(t, got.Verified())
	assert.Equal(t, "/uploads/card.png", got.ImagePath)
}

func TestNIDImage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/nid/images/{name}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "my card.png", r.PathValue("name"))
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("PNGDATA"))
	})
	c := setupTestClient(t, mux)

	got, err := c.NIDImage(context.Background(), "my card.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("PNGDATA"), got)
}

func TestFallbacks(t *testing.T) {
	c := setupTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	assert.Equal(t, model.DefaultCandidates(), c.CandidatesOrDefault(context.Background()))
	assert.Equal(t, model.DefaultInsights(), c.InsightsOrDefault(context.Background()))
}

func TestFallbacksNotUsedWhenAvailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/election/candidates", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, []model.Candidate{{Name: "A", Symbol: model.OptionRice}}, "")
	})
	c := setupTestClient(t, mux)

	got := c.CandidatesOrDefault(context.Background())
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Name)
}
