package server

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"audio-transcriber/internal/domain"
	"audio-transcriber/internal/jobs"
	"audio-transcriber/internal/refine"
)

// Errors the service layer may surface through handlers.
var (
	ErrJobNotCompleted = errors.New("job has not completed")
	ErrRefineDisabled  = errors.New("refinement endpoint is not configured")
)

type handlers struct {
	svc Service
	cfg Config
}

// submit accepts an uploaded audio file and returns a job id immediately.
func (h *handlers) submit(c *gin.Context) {
	file, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'audio' is required"})
		return
	}

	fullAudio := false
	if raw := c.PostForm("full_audio"); raw != "" {
		fullAudio, _ = strconv.ParseBool(raw)
	}

	// Uploads get a fresh name; the original one is untrusted client input.
	ext := filepath.Ext(file.Filename)
	sourcePath := filepath.Join(h.cfg.UploadDir, uuid.NewString()+ext)
	if err := c.SaveUploadedFile(file, sourcePath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store upload"})
		return
	}

	job := h.svc.Submit(sourcePath, fullAudio)
	c.JSON(http.StatusAccepted, gin.H{"jobId": job.ID, "status": job.Status})
}

// status returns a point-in-time snapshot of one job.
func (h *handlers) status(c *gin.Context) {
	job, err := h.svc.Status(c.Param("id"))
	if err != nil {
		notFoundOrInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// download serves the persisted transcript artifact of a completed job.
func (h *handlers) download(c *gin.Context) {
	id := c.Param("id")
	job, err := h.svc.Status(id)
	if err != nil {
		notFoundOrInternal(c, err)
		return
	}
	if job.Status != domain.JobStatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "transcript is not available", "status": job.Status})
		return
	}

	c.FileAttachment(job.OutputPath, id+".txt")
}

// events returns the job's event log after the given sequence number.
func (h *handlers) events(c *gin.Context) {
	sinceSeq, _ := strconv.ParseInt(c.Query("since"), 10, 64)
	list, err := h.svc.Events(c.Param("id"), sinceSeq)
	if err != nil {
		notFoundOrInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": list})
}

type refineRequest struct {
	Mode string `json:"mode" binding:"required,oneof=cleanup summary"`
}

// refine proxies a completed transcript to the language-model endpoint.
func (h *handlers) refine(c *gin.Context) {
	var req refineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be 'cleanup' or 'summary'"})
		return
	}

	text, err := h.svc.Refine(c.Request.Context(), c.Param("id"), refine.Mode(req.Mode))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"text": text})
	case errors.Is(err, jobs.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
	case errors.Is(err, ErrJobNotCompleted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, ErrRefineDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

// health reports service readiness from the startup diagnostics.
func (h *handlers) health(c *gin.Context) {
	report := h.svc.Diagnostics()
	status := "ok"
	code := http.StatusOK
	if report.HasFailures {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "diagnostics": report})
}

// notFoundOrInternal maps registry errors onto HTTP status codes.
func notFoundOrInternal(c *gin.Context, err error) {
	if errors.Is(err, jobs.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": strings.TrimSpace(err.Error())})
}
