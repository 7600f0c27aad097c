package workdir

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"recap/internal/logging"
)

// SweepResult contains the outcome of a stale artifact sweep.
type SweepResult struct {
	Removed []string
	Errors  []SweepError
}

// SweepError pairs an artifact path with its removal error.
type SweepError struct {
	Path string
	Err  error
}

// SweepStale removes artifacts older than maxAge that a crashed run
// left behind. Only files this package produces are considered: audio
// artifacts and per-video lock files. Anything else in the directory
// is left alone.
func (d *Dir) SweepStale(maxAge time.Duration) SweepResult {
	result := SweepResult{}

	entries, err := os.ReadDir(d.path)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, SweepError{Path: d.path, Err: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if entry.IsDir() || !sweepable(entry.Name()) {
			continue
		}

		path := filepath.Join(d.path, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, SweepError{Path: path, Err: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, SweepError{Path: path, Err: err})
			d.logger.Warn("failed to remove stale artifact",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "workdir_sweep_failed"),
				logging.String(logging.FieldErrorHint, "check work_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}

		result.Removed = append(result.Removed, path)
		d.logger.Info("removed stale artifact",
			logging.String("path", path),
			logging.Duration("age", time.Since(info.ModTime())),
			logging.String(logging.FieldEventType, "workdir_sweep"),
		)
	}

	return result
}

// sweepable reports whether the name belongs to this package: audio
// artifacts (final, candidate, fallback, wav, transcript) share the
// audio_ prefix, lock files the .lock suffix.
func sweepable(name string) bool {
	return strings.HasPrefix(name, "audio_") || strings.HasSuffix(name, ".lock")
}
