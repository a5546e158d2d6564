// Package bootstrap wires configuration, the job registry, the transcription
// pipeline, and the HTTP layer into a runnable service.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"audio-transcriber/internal/cleanup"
	"audio-transcriber/internal/config"
	"audio-transcriber/internal/diagnostics"
	"audio-transcriber/internal/domain"
	"audio-transcriber/internal/jobs"
	"audio-transcriber/internal/logger"
	"audio-transcriber/internal/refine"
	"audio-transcriber/internal/runner"
	"audio-transcriber/internal/server"
	"audio-transcriber/internal/transcribe"
)

// App wires configuration, jobs, pipeline, and the HTTP boundary.
type App struct {
	Config      config.Config
	Log         zerolog.Logger
	Jobs        *jobs.Manager
	Pipeline    pipelineRunner
	Refiner     *refine.Client
	diagnostics domain.DiagnosticReport
	sweeper     *cleanup.Sweeper
}

// pipelineRunner isolates the transcription pipeline behind an interface.
type pipelineRunner interface {
	Run(ctx context.Context, req transcribe.Request) (transcribe.Result, error)
}

// New builds the application from configuration and startup diagnostics.
func New(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.Logging, "audio-transcriber")

	for _, dir := range []string{cfg.Storage.UploadDir, cfg.Storage.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	report := diagnostics.NewChecker().Run(cfg)
	for _, item := range report.Items {
		if item.Status == domain.DiagnosticStatusFail {
			log.Warn().Str("check", item.ID).Str("hint", item.Hint).Msg(item.Message)
		}
	}

	execRunner := &runner.ExecRunner{}
	pre := transcribe.NewPreprocessor(
		cfg.Tools.FFmpeg,
		cfg.Pipeline.ChunkSeconds,
		cfg.Pipeline.MaxAudioSeconds,
		execRunner,
	)
	pool := transcribe.NewPool(
		cfg.Tools.Whisper,
		cfg.Tools.ModelPath,
		cfg.Tools.Language,
		cfg.Tools.Prompt,
		cfg.Pipeline.Workers,
		execRunner,
	)

	app := &App{
		Config:      cfg,
		Log:         log,
		Jobs:        jobs.NewManager(),
		Pipeline:    transcribe.NewPipeline(pre, pool, logger.Component(log, "pipeline")),
		Refiner: refine.NewClient(refine.Config{
			BaseURL: cfg.Refine.BaseURL,
			Model:   cfg.Refine.Model,
			APIKey:  cfg.Refine.APIKey,
			Timeout: time.Duration(cfg.Refine.TimeoutSeconds) * time.Second,
		}),
		diagnostics: report,
	}

	if cfg.Cleanup.Enabled {
		app.sweeper = cleanup.NewSweeper(
			[]string{cfg.Storage.UploadDir, cfg.Storage.OutputDir},
			time.Duration(cfg.Cleanup.IntervalMin)*time.Minute,
			time.Duration(cfg.Cleanup.MaxAgeMinutes)*time.Minute,
			logger.Component(log, "cleanup"),
		)
	}

	return app, nil
}

// Run starts the background sweeper and serves the HTTP API.
func (a *App) Run(ctx context.Context) error {
	if a.sweeper != nil {
		go a.sweeper.Run(ctx)
	}

	router := server.New(a, server.Config{UploadDir: a.Config.Storage.UploadDir}, logger.Component(a.Log, "http"))
	srv := &http.Server{
		Addr:    a.Config.HTTP.Addr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.Log.Info().Str("addr", a.Config.HTTP.Addr).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Submit registers a job and launches its pipeline in the background. It
// returns immediately, never blocking on transcription.
func (a *App) Submit(sourcePath string, fullAudio bool) domain.Job {
	job := a.Jobs.Create()
	a.Log.Info().Str("job", job.ID).Str("source", sourcePath).Bool("full_audio", fullAudio).Msg("job accepted")

	go a.runJob(job.ID, sourcePath, fullAudio)
	return job
}

// Status returns the current snapshot of one job.
func (a *App) Status(id string) (domain.Job, error) {
	return a.Jobs.Get(id)
}

// Events returns the job's event log after the given sequence number.
func (a *App) Events(id string, sinceSeq int64) ([]jobs.Event, error) {
	return a.Jobs.Events(id, sinceSeq)
}

// Diagnostics returns the startup diagnostics report.
func (a *App) Diagnostics() domain.DiagnosticReport {
	return a.diagnostics
}

// Refine proxies a completed transcript to the language-model endpoint.
func (a *App) Refine(ctx context.Context, id string, mode refine.Mode) (string, error) {
	if a.Refiner == nil {
		return "", server.ErrRefineDisabled
	}

	job, err := a.Jobs.Get(id)
	if err != nil {
		return "", err
	}
	if job.Status != domain.JobStatusCompleted {
		return "", server.ErrJobNotCompleted
	}

	return a.Refiner.Refine(ctx, job.Transcript, mode)
}

// runJob executes the pipeline for one job and records its terminal state.
// Once dispatched a job runs to completion or failure; there is no
// mid-flight cancellation.
func (a *App) runJob(jobID, sourcePath string, fullAudio bool) {
	if err := a.Jobs.Start(jobID); err != nil {
		a.Log.Error().Err(err).Str("job", jobID).Msg("job start rejected")
		return
	}

	defer func() {
		if err := os.Remove(sourcePath); err != nil {
			a.Log.Warn().Err(err).Str("file", sourcePath).Msg("uploaded source cleanup failed")
		}
	}()

	result, err := a.Pipeline.Run(context.Background(), transcribe.Request{
		SourcePath: sourcePath,
		OutputBase: filepath.Join(a.Config.Storage.OutputDir, jobID),
		FullAudio:  fullAudio,
		OnProgress: func(stage string, percent int) {
			a.Jobs.SetProgress(jobID, stage, percent)
		},
	})
	if err != nil {
		a.Log.Error().Err(err).Str("job", jobID).Msg("job failed")
		_ = a.Jobs.Fail(jobID, err.Error())
		return
	}

	a.Log.Info().Str("job", jobID).Int("chunks", result.ChunkCount).Msg("job completed")
	_ = a.Jobs.Complete(jobID, result.Transcript, result.TextPath)
}
