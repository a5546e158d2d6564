// Package cleanup removes aged upload and output files on a fixed interval.
package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper deletes files older than maxAge from the configured directories.
// Deletion failures are logged and never escalated.
type Sweeper struct {
	dirs     []string
	interval time.Duration
	maxAge   time.Duration
	log      zerolog.Logger
	readDir  func(name string) ([]os.DirEntry, error)
	remove   func(name string) error
	now      func() time.Time
}

// NewSweeper creates a sweeper over the given directories.
func NewSweeper(dirs []string, interval, maxAge time.Duration, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		dirs:     dirs,
		interval: interval,
		maxAge:   maxAge,
		log:      log,
		readDir:  os.ReadDir,
		remove:   os.Remove,
		now:      time.Now,
	}
}

// Run sweeps on every tick until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep removes aged files from every configured directory once.
func (s *Sweeper) Sweep() {
	cutoff := s.now().Add(-s.maxAge)

	for _, dir := range s.dirs {
		entries, err := s.readDir(dir)
		if err != nil {
			s.log.Warn().Err(err).Str("dir", dir).Msg("cleanup scan failed")
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}

			path := filepath.Join(dir, entry.Name())
			if err := s.remove(path); err != nil {
				s.log.Warn().Err(err).Str("file", path).Msg("cleanup delete failed")
				continue
			}
			s.log.Debug().Str("file", path).Msg("aged file removed")
		}
	}
}
