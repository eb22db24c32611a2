// Package devserver is a mock election backend: the REST endpoints under
// /api and a Socket.IO push channel under /socket.io/, backed by in-memory
// tallies.
package devserver

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/logging"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/model"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/pubsub"
)

const maxUploadSize = 5 << 20

type Server struct {
	seed     *Seed
	election *Election
	registry *Registry
	hub      *pubsub.Hub
}

func New(seed *Seed, target time.Time) *Server {
	e := NewElection(seed, target)
	return &Server{
		seed:     seed,
		election: e,
		registry: NewRegistry(seed.Voters),
		hub:      pubsub.NewHub(func() any { return e.Snapshot() }),
	}
}

func (s *Server) Election() *Election { return s.election }

func (s *Server) Hub() *pubsub.Hub { return s.hub }

// Run drives the push channel until ctx is done: the hub itself and a
// countdown-update broadcast every second.
func (s *Server) Run(ctx context.Context) {
	go s.hub.Run(ctx)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.hub.Emit("countdown-update", s.election.Countdown()) {
				return
			}
		}
	}
}

func ok(ctx *gin.Context, data any) {
	ctx.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func fail(ctx *gin.Context, status int, msg string) {
	ctx.JSON(status, gin.H{"success": false, "message": msg})
}

func (s *Server) insights(ctx *gin.Context)   { ok(ctx, s.seed.Insights) }
func (s *Server) candidates(ctx *gin.Context) { ok(ctx, s.seed.Candidates) }
func (s *Server) votes(ctx *gin.Context)      { ok(ctx, s.election.Votes()) }
func (s *Server) referendum(ctx *gin.Context) { ok(ctx, s.election.Referendum()) }
func (s *Server) countdown(ctx *gin.Context)  { ok(ctx, s.election.Countdown()) }

func (s *Server) castVote(ctx *gin.Context) {
	var body struct {
		Party model.Option `json:"party"`
	}
	if err := ctx.ShouldBindJSON(&body); err != nil || !body.Party.Valid() {
		fail(ctx, http.StatusBadRequest, "party must be rice or scale")
		return
	}

	tally := s.election.CastVote(body.Party)
	s.hub.Emit("vote-update", model.Snapshot{Votes: &tally})
	ok(ctx, tally)
}

func (s *Server) castReferendum(ctx *gin.Context) {
	var body struct {
		Choice model.Choice `json:"choice"`
	}
	if err := ctx.ShouldBindJSON(&body); err != nil || !body.Choice.Valid() {
		fail(ctx, http.StatusBadRequest, "choice must be yes or no")
		return
	}

	tally := s.election.CastReferendum(body.Choice)
	s.hub.Emit("vote-update", model.Snapshot{Referendum: &tally})
	ok(ctx, tally)
}

func (s *Server) verifyNID(ctx *gin.Context) {
	var body struct {
		Image string `json:"image"`
	}
	if err := ctx.ShouldBindJSON(&body); err != nil || body.Image == "" {
		fail(ctx, http.StatusBadRequest, "image is required")
		return
	}
	result := s.registry.VerifyDataURL(body.Image)
	ctx.JSON(http.StatusOK, gin.H{"success": result.Verified(), "data": result, "message": result.Message})
}

func (s *Server) uploadNID(ctx *gin.Context) {
	fh, err := ctx.FormFile("nidImage")
	if err != nil {
		fail(ctx, http.StatusBadRequest, "nidImage is required")
		return
	}
	if fh.Size > maxUploadSize {
		fail(ctx, http.StatusRequestEntityTooLarge, "image is larger than 5MB")
		return
	}

	f, err := fh.Open()
	if err != nil {
		fail(ctx, http.StatusBadRequest, "could not read upload")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		fail(ctx, http.StatusBadRequest, "could not read upload")
		return
	}

	result := s.registry.Store(fh.Filename, fh.Header.Get("Content-Type"), data)
	ctx.JSON(http.StatusOK, gin.H{"success": result.Verified(), "data": result, "message": result.Message})
}

func (s *Server) nidImage(ctx *gin.Context) {
	contentType, data, found := s.registry.Image(ctx.Param("filename"))
	if !found {
		fail(ctx, http.StatusNotFound, "image not found")
		return
	}
	ctx.Data(http.StatusOK, contentType, data)
}

func logRequests() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		logging.Log.WithFields(logrus.Fields{
			"method":   ctx.Request.Method,
			"path":     ctx.Request.URL.Path,
			"status":   ctx.Writer.Status(),
			"duration": time.Since(start),
		}).Debug("DEVSERVER: request")
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logRequests())
	r.MaxMultipartMemory = maxUploadSize

	api := r.Group("/api")
	api.GET("/election/insights", s.insights)
	api.GET("/election/candidates", s.candidates)
	api.GET("/votes", s.votes)
	api.POST("/votes", s.castVote)
	api.GET("/votes/referendum", s.referendum)
	api.POST("/votes/referendum", s.castReferendum)
	api.GET("/votes/countdown", s.countdown)
	api.POST("/nid/verify", s.verifyNID)
	api.POST("/nid/upload", s.uploadNID)
	api.GET("/nid/images/:filename", s.nidImage)

	r.GET("/socket.io/", gin.WrapH(s.hub))

	return r
}
