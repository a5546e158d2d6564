// Package transcribe implements the chunked transcription pipeline: audio
// normalization and segmentation, bounded parallel recognition, and ordered
// reassembly of the final transcript.
package transcribe

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Stage names reported to polling callers.
const (
	StageStarting     = "Starting"
	StageNormalizing  = "Normalizing audio"
	StageSegmenting   = "Splitting audio"
	StageTranscribing = "Transcribing"
	StageFinalizing   = "Finalizing"
	StageCompleted    = "Completed"
	StageFailed       = "Failed"
)

// Request describes one transcription run.
type Request struct {
	// SourcePath is the uploaded audio file to transcribe.
	SourcePath string
	// OutputBase is the artifact path without extension; the final
	// transcript is written to OutputBase + ".txt".
	OutputBase string
	// FullAudio disables the default duration cap during normalization.
	FullAudio bool
	// OnProgress receives (stage, percent) updates. May be nil.
	OnProgress ReportFunc
}

// Result holds the assembled transcript and its persisted artifact path.
type Result struct {
	Transcript string
	TextPath   string
	ChunkCount int
}

// Pipeline orchestrates preprocessing, parallel recognition, and export.
type Pipeline struct {
	pre       *Preprocessor
	pool      *Pool
	log       zerolog.Logger
	mkdirTemp func(dir, pattern string) (string, error)
	removeAll func(path string) error
	writeFile func(name string, data []byte, perm os.FileMode) error
}

// NewPipeline wires the preprocessor and worker pool into one pipeline.
func NewPipeline(pre *Preprocessor, pool *Pool, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		pre:       pre,
		pool:      pool,
		log:       log,
		mkdirTemp: os.MkdirTemp,
		removeAll: os.RemoveAll,
		writeFile: os.WriteFile,
	}
}

// Run executes the full pipeline for one job. The scratch workspace is
// removed on every exit path; cleanup failures are logged, never returned.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.SourcePath) == "" {
		return Result{}, stageError(StageStarting, "source audio path is required", nil)
	}
	if strings.TrimSpace(req.OutputBase) == "" {
		return Result{}, stageError(StageStarting, "output base path is required", nil)
	}

	workDir, err := p.mkdirTemp("", "transcriber-job-*")
	if err != nil {
		return Result{}, stageError(StageStarting, "failed to create scratch workspace", err)
	}
	defer func() {
		if err := p.removeAll(workDir); err != nil {
			p.log.Warn().Err(err).Str("dir", workDir).Msg("scratch workspace cleanup failed")
		}
	}()

	tracker := newProgressTracker(req.OnProgress)
	tracker.Checkpoint(StageNormalizing, progressStart)

	normalized, err := p.pre.Normalize(ctx, req.SourcePath, workDir, req.FullAudio)
	if err != nil {
		return Result{}, stageError(StageNormalizing, "audio normalization failed", err)
	}
	tracker.Checkpoint(StageSegmenting, progressNormalized)

	chunks, err := p.pre.Segment(ctx, normalized, workDir)
	if err != nil {
		return Result{}, stageError(StageSegmenting, "audio segmentation failed", err)
	}
	p.log.Debug().Int("chunks", len(chunks)).Msg("audio segmented")

	tracker.BeginChunks(len(chunks), StageTranscribing)
	texts, err := p.pool.Transcribe(ctx, chunks, func() {
		tracker.ChunkDone(StageTranscribing)
	})
	if err != nil {
		return Result{}, stageError(StageTranscribing, "chunk recognition failed", err)
	}

	tracker.Checkpoint(StageFinalizing, progressFinalizing)
	transcript := strings.Join(texts, "\n")

	textPath := req.OutputBase + ".txt"
	if err := p.writeFile(textPath, []byte(transcript), 0o644); err != nil {
		return Result{}, stageError(StageFinalizing, fmt.Sprintf("failed to write transcript artifact: %s", textPath), err)
	}

	return Result{
		Transcript: transcript,
		TextPath:   textPath,
		ChunkCount: len(chunks),
	}, nil
}
