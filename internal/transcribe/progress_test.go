package transcribe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// recordingReport collects every reported (stage, percent) pair.
type recordingReport struct {
	stages   []string
	percents []int
}

// fn returns a ReportFunc appending into the recorder.
func (r *recordingReport) fn() ReportFunc {
	return func(stage string, percent int) {
		r.stages = append(r.stages, stage)
		r.percents = append(r.percents, percent)
	}
}

// TestProgressChunkInterpolation checks the dispatch-phase linear mapping.
func TestProgressChunkInterpolation(t *testing.T) {
	rec := &recordingReport{}
	tracker := newProgressTracker(rec.fn())

	tracker.BeginChunks(4, StageTranscribing)
	for i := 0; i < 4; i++ {
		tracker.ChunkDone(StageTranscribing)
	}

	assert.Equal(t, []int{20, 37, 55, 72, 90}, rec.percents)
}

// TestProgressNeverDecreases checks backward checkpoints are clamped.
func TestProgressNeverDecreases(t *testing.T) {
	rec := &recordingReport{}
	tracker := newProgressTracker(rec.fn())

	tracker.Checkpoint(StageSegmenting, 20)
	tracker.Checkpoint(StageNormalizing, 10)

	assert.Equal(t, []int{20, 20}, rec.percents)
}

// TestProgressChunkDoneWithoutTotalIsNoop checks division safety.
func TestProgressChunkDoneWithoutTotalIsNoop(t *testing.T) {
	rec := &recordingReport{}
	tracker := newProgressTracker(rec.fn())

	tracker.ChunkDone(StageTranscribing)
	assert.Empty(t, rec.percents)
}

// TestProgressNilTrackerIsSafe checks nil receiver tolerance.
func TestProgressNilTrackerIsSafe(t *testing.T) {
	var tracker *progressTracker
	tracker.Checkpoint(StageNormalizing, 10)
	tracker.BeginChunks(3, StageTranscribing)
	tracker.ChunkDone(StageTranscribing)
}
