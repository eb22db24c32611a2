// Package web serves the dashboard state as JSON next to the Prometheus
// metrics of the process.
package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/display"
)

// Source provides the current dashboard view.
type Source interface {
	Dashboard() display.Dashboard
}

type Controller struct {
	source Source
}

func NewController(s Source) *Controller {
	return &Controller{source: s}
}

func (c *Controller) state(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"success": true, "data": c.source.Dashboard()})
}

func (c *Controller) health(ctx *gin.Context) {
	d := c.source.Dashboard()
	status := "degraded"
	if d.Live {
		status = "ok"
	}
	ctx.JSON(http.StatusOK, gin.H{"status": status, "live": d.Live})
}

func NewRouter(s Source, g prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	c := NewController(s)
	r.GET("/healthz", c.health)
	r.GET("/api/state", c.state)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))

	return r
}
