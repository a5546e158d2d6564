package diagnostics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audio-transcriber/internal/config"
	"audio-transcriber/internal/domain"
)

// testConfig builds a config pointing at the given paths.
func testConfig(modelPath, uploadDir, outputDir string) config.Config {
	return config.Config{
		Tools: config.ToolsConfig{
			FFmpeg:    "ffmpeg",
			Whisper:   "whisper.cpp",
			ModelPath: modelPath,
		},
		Storage: config.StorageConfig{
			UploadDir: uploadDir,
			OutputDir: outputDir,
		},
	}
}

// TestCheckerRunAllPass validates happy-path diagnostics report.
func TestCheckerRunAllPass(t *testing.T) {
	root := t.TempDir()
	modelDir := filepath.Join(root, "models")
	require.NoError(t, os.MkdirAll(modelDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(modelDir, "ggml-base.bin"), []byte("stub"), 0o644))

	checker := NewCheckerForTests(
		func(name string) (string, error) { return "/usr/local/bin/" + name, nil },
		os.Stat,
		os.ReadDir,
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
	)

	report := checker.Run(testConfig(modelDir, filepath.Join(root, "uploads"), filepath.Join(root, "outputs")))
	assert.False(t, report.HasFailures, "expected no failures, got %+v", report.Items)
}

// TestCheckerRunMissingToolsAndPaths validates failure reporting.
func TestCheckerRunMissingToolsAndPaths(t *testing.T) {
	checker := NewCheckerForTests(
		func(string) (string, error) { return "", errors.New("not found") },
		os.Stat,
		os.ReadDir,
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
	)

	report := checker.Run(testConfig("/path/that/does/not/exist", "", ""))
	assert.True(t, report.HasFailures)

	assertStatusByID(t, report, "tool_ffmpeg", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "tool_whisper.cpp", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "model_path", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "upload_dir", domain.DiagnosticStatusFail)
	assertStatusByID(t, report, "output_dir", domain.DiagnosticStatusFail)
}

// TestCheckerRunModelDirectoryWithoutModelFilesFails validates model check.
func TestCheckerRunModelDirectoryWithoutModelFilesFails(t *testing.T) {
	root := t.TempDir()
	modelDir := filepath.Join(root, "models")
	require.NoError(t, os.MkdirAll(modelDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(modelDir, "README.txt"), []byte("no model"), 0o644))

	checker := NewCheckerForTests(
		func(name string) (string, error) { return "/usr/local/bin/" + name, nil },
		os.Stat,
		os.ReadDir,
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
	)
	report := checker.Run(testConfig(modelDir, filepath.Join(root, "uploads"), filepath.Join(root, "outputs")))

	assertStatusByID(t, report, "model_path", domain.DiagnosticStatusFail)
}

// assertStatusByID checks status for one diagnostic item by ID.
func assertStatusByID(t *testing.T, report domain.DiagnosticReport, id string, want domain.DiagnosticStatus) {
	t.Helper()
	for _, item := range report.Items {
		if item.ID == id {
			assert.Equal(t, want, item.Status, "item %s", id)
			return
		}
	}
	t.Fatalf("diagnostic item not found: %s", id)
}
