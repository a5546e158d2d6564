package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"audio-transcriber/internal/runner"
)

const (
	normalizedFileName = "normalized-16k-mono.wav"
	chunkPrefix        = "chunk_"

	// silenceFilter collapses silences longer than two seconds so segment
	// cuts tend to land in silence rather than mid-speech.
	silenceFilter = "silenceremove=stop_periods=-1:stop_duration=2:stop_threshold=-50dB"
)

// Preprocessor normalizes input audio and splits it into ordered chunks.
type Preprocessor struct {
	ffmpegPath      string
	chunkSeconds    int
	maxAudioSeconds int
	runner          runner.Runner
	stat            func(name string) (os.FileInfo, error)
	readDir         func(name string) ([]os.DirEntry, error)
}

// NewPreprocessor constructs a preprocessor with OS dependencies.
func NewPreprocessor(ffmpegPath string, chunkSeconds, maxAudioSeconds int, r runner.Runner) *Preprocessor {
	return &Preprocessor{
		ffmpegPath:      ffmpegPath,
		chunkSeconds:    chunkSeconds,
		maxAudioSeconds: maxAudioSeconds,
		runner:          r,
		stat:            os.Stat,
		readDir:         os.ReadDir,
	}
}

// Normalize downmixes the source to mono 16kHz PCM WAV inside workDir.
// Unless fullAudio is set, the output is capped at maxAudioSeconds to keep
// pathologically long uploads from consuming unbounded compute.
func (p *Preprocessor) Normalize(ctx context.Context, sourcePath, workDir string, fullAudio bool) (string, error) {
	outPath := filepath.Join(workDir, normalizedFileName)
	args := buildNormalizeArgs(sourcePath, outPath, p.maxAudioSeconds, fullAudio)

	if _, err := p.runner.Run(ctx, "normalize", p.ffmpegPath, args...); err != nil {
		return "", err
	}
	if _, err := p.stat(outPath); err != nil {
		return "", &OutputMissingError{Path: outPath}
	}

	return outPath, nil
}

// Segment splits the normalized stream into fixed-duration chunk files,
// trimming long silences first. Returns chunk paths in chronological order
// or ErrNoChunks when segmentation yields nothing.
func (p *Preprocessor) Segment(ctx context.Context, normalizedPath, workDir string) ([]string, error) {
	pattern := filepath.Join(workDir, chunkPrefix+"%03d.wav")
	args := buildSegmentArgs(normalizedPath, pattern, p.chunkSeconds)

	if _, err := p.runner.Run(ctx, "segment", p.ffmpegPath, args...); err != nil {
		return nil, err
	}

	chunks, err := p.listChunks(workDir)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}

	return chunks, nil
}

// listChunks enumerates chunk files sorted by their zero-padded suffix.
func (p *Preprocessor) listChunks(workDir string) ([]string, error) {
	entries, err := p.readDir(workDir)
	if err != nil {
		return nil, fmt.Errorf("read chunk directory: %w", err)
	}

	var chunks []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, chunkPrefix) || !strings.HasSuffix(name, ".wav") {
			continue
		}
		chunks = append(chunks, filepath.Join(workDir, name))
	}

	// Zero-padded suffixes make lexicographic order equal chronological order.
	sort.Strings(chunks)
	return chunks, nil
}

// buildNormalizeArgs builds ffmpeg args for mono 16k PCM WAV output.
func buildNormalizeArgs(sourcePath, outPath string, maxAudioSeconds int, fullAudio bool) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", sourcePath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
	}
	if !fullAudio && maxAudioSeconds > 0 {
		args = append(args, "-t", fmt.Sprintf("%d", maxAudioSeconds))
	}
	return append(args, outPath)
}

// buildSegmentArgs builds ffmpeg args that trim silences and split the
// stream into numbered fixed-duration chunks.
func buildSegmentArgs(normalizedPath, pattern string, chunkSeconds int) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", normalizedPath,
		"-af", silenceFilter,
		"-f", "segment",
		"-segment_time", fmt.Sprintf("%d", chunkSeconds),
		"-c:a", "pcm_s16le",
		pattern,
	}
}
