package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"audio-transcriber/internal/runner"
)

// Pool transcribes ordered chunk files with bounded parallelism.
type Pool struct {
	whisperPath string
	modelPath   string
	language    string
	prompt      string
	workers     int
	runner      runner.Runner
	stat        func(name string) (os.FileInfo, error)
	readDir     func(name string) ([]os.DirEntry, error)
	readFile    func(name string) ([]byte, error)
	numCPU      func() int
}

// NewPool constructs a worker pool with OS dependencies. A workers value of
// zero derives the count from available CPU parallelism.
func NewPool(whisperPath, modelPath, language, prompt string, workers int, r runner.Runner) *Pool {
	return &Pool{
		whisperPath: whisperPath,
		modelPath:   modelPath,
		language:    language,
		prompt:      prompt,
		workers:     workers,
		runner:      r,
		stat:        os.Stat,
		readDir:     os.ReadDir,
		readFile:    os.ReadFile,
		numCPU:      runtime.NumCPU,
	}
}

// Transcribe runs the recognition tool over every chunk and returns the
// recognized texts indexed by chunk position. onChunkDone fires after each
// chunk finishes, regardless of completion order. One failed chunk fails the
// whole call.
func (p *Pool) Transcribe(ctx context.Context, chunks []string, onChunkDone func()) ([]string, error) {
	modelPath, err := p.resolveModelPath()
	if err != nil {
		return nil, err
	}

	workers := p.workerCount()
	if workers > len(chunks) {
		workers = len(chunks)
	}
	threads := p.threadsPerWorker(workers)

	// Index-addressed slots keep result order independent of completion order.
	results := make([]string, len(chunks))
	indices := make(chan int, len(chunks))
	for i := range chunks {
		indices <- i
	}
	close(indices)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for idx := range indices {
				if err := ctx.Err(); err != nil {
					return err
				}
				text, err := p.transcribeChunk(ctx, chunks[idx], modelPath, threads)
				if err != nil {
					return err
				}
				results[idx] = text
				if onChunkDone != nil {
					onChunkDone()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// transcribeChunk invokes the recognition tool for one chunk and reads the
// text artifact it produces next to the chunk file.
func (p *Pool) transcribeChunk(ctx context.Context, chunkPath, modelPath string, threads int) (string, error) {
	outBase := strings.TrimSuffix(chunkPath, filepath.Ext(chunkPath))
	args := buildWhisperArgs(modelPath, chunkPath, outBase, p.language, p.prompt, threads)

	if _, err := p.runner.Run(ctx, "transcribe "+filepath.Base(chunkPath), p.whisperPath, args...); err != nil {
		return "", err
	}

	textPath := outBase + ".txt"
	if _, err := p.stat(textPath); err != nil {
		return "", &OutputMissingError{Path: textPath}
	}

	content, err := p.readFile(textPath)
	if err != nil {
		return "", fmt.Errorf("read chunk transcript: %w", err)
	}

	return strings.TrimSpace(string(content)), nil
}

// workerCount picks a small bounded worker count. Each recognition process
// wants multiple threads, and too many concurrent heavy processes saturate
// memory and disk I/O.
func (p *Pool) workerCount() int {
	if p.workers > 0 {
		return p.workers
	}
	workers := p.numCPU() / 4
	if workers < 1 {
		workers = 1
	}
	if workers > 4 {
		workers = 4
	}
	return workers
}

// threadsPerWorker divides the CPU budget among active workers with a floor
// so no recognition process runs single-threaded.
func (p *Pool) threadsPerWorker(workers int) int {
	if workers < 1 {
		workers = 1
	}
	threads := p.numCPU() / workers
	if threads < 2 {
		threads = 2
	}
	return threads
}

// resolveModelPath returns the model file path from a file or directory.
func (p *Pool) resolveModelPath() (string, error) {
	modelPath := strings.TrimSpace(p.modelPath)
	if modelPath == "" {
		return "", fmt.Errorf("model path is required")
	}

	info, err := p.stat(modelPath)
	if err != nil {
		return "", fmt.Errorf("cannot access model path: %s", modelPath)
	}
	if !info.IsDir() {
		return modelPath, nil
	}

	entries, err := p.readDir(modelPath)
	if err != nil {
		return "", fmt.Errorf("cannot read model directory: %s", modelPath)
	}

	modelNames := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".bin" || ext == ".gguf" {
			modelNames = append(modelNames, entry.Name())
		}
	}
	if len(modelNames) == 0 {
		return "", fmt.Errorf("no .bin or .gguf model files found in: %s", modelPath)
	}

	sort.Strings(modelNames)
	return filepath.Join(modelPath, modelNames[0]), nil
}

// normalizeLanguage maps "auto" and empty language to no CLI override.
func normalizeLanguage(raw string) string {
	lang := strings.TrimSpace(raw)
	if lang == "" || strings.EqualFold(lang, "auto") {
		return ""
	}
	return lang
}

// buildWhisperArgs builds whisper.cpp args for txt transcript export.
func buildWhisperArgs(modelPath, audioPath, textBase, language, prompt string, threads int) []string {
	args := []string{
		"-m", modelPath,
		"-f", audioPath,
		"-of", textBase,
		"-otxt",
		"-t", fmt.Sprintf("%d", threads),
	}

	if lang := normalizeLanguage(language); lang != "" {
		args = append(args, "-l", lang)
	}
	if prompt = strings.TrimSpace(prompt); prompt != "" {
		args = append(args, "--prompt", prompt)
	}

	return args
}
