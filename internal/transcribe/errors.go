package transcribe

import (
	"errors"
	"fmt"
)

// ErrNoChunks is returned when segmentation produces zero chunk files.
var ErrNoChunks = errors.New("segmentation produced no chunks")

// OutputMissingError reports a tool that exited 0 without writing its
// expected artifact.
type OutputMissingError struct {
	Path string
}

// Error names the missing artifact path.
func (e *OutputMissingError) Error() string {
	return fmt.Sprintf("expected output file is missing: %s", e.Path)
}

// PipelineError is a stage-aware error wrapping the failing step's cause.
type PipelineError struct {
	Stage   string
	Message string
	Err     error
}

// Error formats pipeline failures for job records and logs.
func (e *PipelineError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *PipelineError) Unwrap() error { return e.Err }

// stageError wraps err with stage context.
func stageError(stage, message string, err error) error {
	return &PipelineError{Stage: stage, Message: message, Err: err}
}
