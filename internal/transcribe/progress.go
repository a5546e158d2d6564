package transcribe

import "sync"

// Progress checkpoints for each pipeline phase. Chunk completions move the
// percentage linearly between the dispatch floor and ceiling.
const (
	progressStart      = 5
	progressNormalized = 10
	progressDispatch   = 20
	progressAssembled  = 90
	progressFinalizing = 95
	progressDone       = 100
)

// ReportFunc receives caller-visible (stage, percent) updates.
type ReportFunc func(stage string, percent int)

// progressTracker maps pipeline events onto a single monotonic percentage.
type progressTracker struct {
	mu        sync.Mutex
	report    ReportFunc
	percent   int
	total     int
	completed int
}

// newProgressTracker creates a tracker forwarding updates to report.
func newProgressTracker(report ReportFunc) *progressTracker {
	return &progressTracker{report: report}
}

// Checkpoint reports a fixed-percentage stage boundary.
func (t *progressTracker) Checkpoint(stage string, percent int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.set(stage, percent)
}

// BeginChunks records the total chunk count before dispatch starts.
func (t *progressTracker) BeginChunks(total int, stage string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total = total
	t.completed = 0
	t.set(stage, progressDispatch)
}

// ChunkDone records one finished chunk and interpolates the percentage.
func (t *progressTracker) ChunkDone(stage string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.completed++
	if t.total <= 0 {
		return
	}
	span := progressAssembled - progressDispatch
	percent := progressDispatch + span*t.completed/t.total
	t.set(stage, percent)
}

// set forwards an update, clamping so the percentage never moves backward.
// Callers must hold t.mu.
func (t *progressTracker) set(stage string, percent int) {
	if percent < t.percent {
		percent = t.percent
	}
	if percent > progressDone {
		percent = progressDone
	}
	t.percent = percent
	if t.report != nil {
		t.report(stage, percent)
	}
}
