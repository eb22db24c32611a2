package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/display"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/metrics"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/model"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/store"
)

type staticSource struct {
	d display.Dashboard
}

func (s staticSource) Dashboard() display.Dashboard { return s.d }

func performRequest(r http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, &bytes.Buffer{})
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)
	return res
}

func setupTestRouter(t *testing.T, live bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	m := metrics.NewClientMetrics(reg, "election", "dashboard")
	m.EventsReceived.WithLabelValues("votes").Inc()

	d := display.Build(store.State{
		Connected: live,
		Votes:     model.VoteTally{PartyA: 120, PartyB: 95, Total: 215},
	}, model.CountdownValue{Days: 4})
	return NewRouter(staticSource{d: d}, reg)
}

func TestState(t *testing.T) {
	r := setupTestRouter(t, true)

	res := performRequest(r, http.MethodGet, "/api/state")
	require.Equal(t, http.StatusOK, res.Code)

	var body struct {
		Success bool              `json:"success"`
		Data    display.Dashboard `json:"data"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.True(t, body.Data.Live)
	assert.Equal(t, 55.8, body.Data.Votes.PartyA.Percent)
	assert.Equal(t, 4, body.Data.Countdown.Days)
}

func TestHealth(t *testing.T) {
	t.Run("Happy path - live", func(t *testing.T) {
		res := performRequest(setupTestRouter(t, true), http.MethodGet, "/healthz")
		assert.Equal(t, http.StatusOK, res.Code)
		assert.JSONEq(t, `{"status":"ok","live":true}`, res.Body.String())
	})

	t.Run("Unhappy path - offline", func(t *testing.T) {
		res := performRequest(setupTestRouter(t, false), http.MethodGet, "/healthz")
		assert.JSONEq(t, `{"status":"degraded","live":false}`, res.Body.String())
	})
}

func TestMetrics(t *testing.T) {
	res := performRequest(setupTestRouter(t, true), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `election_dashboard_realtime_events_total{event="votes"} 1`)
}

func TestUnknownRoute(t *testing.T) {
	res := performRequest(setupTestRouter(t, true), http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, res.Code)
}
