// Package runner executes external commands and classifies their failures.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Result holds the captured output of a completed command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// SpawnError reports a command that could not be launched at all.
type SpawnError struct {
	Label   string
	Command string
	Err     error
}

// Error formats the spawn failure with its diagnostic label.
func (e *SpawnError) Error() string {
	return fmt.Sprintf("%s: cannot start %s: %v", e.Label, e.Command, e.Err)
}

// Unwrap exposes the underlying OS-level cause.
func (e *SpawnError) Unwrap() error { return e.Err }

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Label    string
	Command  string
	ExitCode int
	Stderr   string
}

// Error formats the exit failure including captured stderr.
func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: %s exited with code %d", e.Label, e.Command, e.ExitCode)
	if detail := lastLine(e.Stderr); detail != "" {
		msg += ": " + detail
	}
	return msg
}

// Runner abstracts process execution for testability.
type Runner interface {
	Run(ctx context.Context, label, name string, args ...string) (Result, error)
}

// ExecRunner executes commands via os/exec, capturing both streams.
type ExecRunner struct{}

// Run executes one command and waits for it to exit. A non-zero exit yields
// an *ExitError; failure to launch yields a *SpawnError.
func (r *ExecRunner) Run(ctx context.Context, label, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, &ExitError{
				Label:    label,
				Command:  name,
				ExitCode: result.ExitCode,
				Stderr:   result.Stderr,
			}
		}
		result.ExitCode = -1
		return result, &SpawnError{Label: label, Command: name, Err: err}
	}

	return result, nil
}

// lastLine returns the final non-empty line of captured stderr, which is
// where ffmpeg and whisper.cpp put their actual failure reason.
func lastLine(s string) string {
	lines := bytes.Split(bytes.TrimSpace([]byte(s)), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if line := bytes.TrimSpace(lines[i]); len(line) > 0 {
			return string(line)
		}
	}
	return ""
}
