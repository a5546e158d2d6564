// Package server exposes the job boundary over HTTP: upload, status
// polling, transcript download, and refinement.
package server

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"audio-transcriber/internal/domain"
	"audio-transcriber/internal/jobs"
	"audio-transcriber/internal/refine"
)

// Service is the job boundary consumed by the HTTP layer.
type Service interface {
	Submit(sourcePath string, fullAudio bool) domain.Job
	Status(id string) (domain.Job, error)
	Events(id string, sinceSeq int64) ([]jobs.Event, error)
	Diagnostics() domain.DiagnosticReport
	Refine(ctx context.Context, id string, mode refine.Mode) (string, error)
}

// Config holds HTTP-layer settings.
type Config struct {
	UploadDir string
}

// New builds the gin engine with all routes and middleware.
func New(svc Service, cfg Config, log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(requestLogger(log), gin.Recovery())

	h := &handlers{svc: svc, cfg: cfg}

	router.GET("/healthz", h.health)

	api := router.Group("/api")
	{
		api.POST("/transcriptions", h.submit)
		api.GET("/transcriptions/:id", h.status)
		api.GET("/transcriptions/:id/download", h.download)
		api.GET("/transcriptions/:id/events", h.events)
		api.POST("/transcriptions/:id/refine", h.refine)
	}

	return router
}
