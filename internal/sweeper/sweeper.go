// Package sweeper removes card artifacts left behind when a process died between
// rendering and cleanup.
package sweeper

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/congo-pay/paycard/internal/render"
)

// Sweeper periodically removes stale artifacts from one output directory.
type Sweeper struct {
	dir      string
	ttl      time.Duration
	interval time.Duration
	logger   *slog.Logger
}

// New builds a sweeper for dir. Files younger than ttl are never touched, so a
// ttl well above the capture and delivery timeouts keeps in-flight cards safe.
func New(dir string, interval, ttl time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{dir: dir, ttl: ttl, interval: interval, logger: logger}
}

// Run sweeps every interval until ctx is cancelled. A non-positive interval disables it.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	s.logger.Info("artifact sweeper started", slog.String("dir", s.dir), slog.Duration("ttl", s.ttl))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(time.Now())
		}
	}
}

// Sweep removes card artifacts modified more than ttl before now and returns how
// many it removed. Files not matching the artifact naming scheme are ignored.
func (s *Sweeper) Sweep(now time.Time) int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("read output dir", slog.String("dir", s.dir), slog.Any("error", err))
		}
		return 0
	}

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !isArtifact(name) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= s.ttl {
			continue
		}

		full := filepath.Join(s.dir, name)
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("remove stale artifact", slog.String("path", full), slog.Any("error", err))
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("stale artifacts removed", slog.String("dir", s.dir), slog.Int("count", removed))
	}
	return removed
}

func isArtifact(name string) bool {
	return strings.HasPrefix(name, render.ArtifactPrefix) && strings.HasSuffix(name, render.ArtifactExt)
}
