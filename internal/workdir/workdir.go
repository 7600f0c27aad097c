package workdir

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"recap/internal/logging"
)

// lockRetryDelay is how often a blocked request re-probes the
// per-video lock while waiting for the holder to finish.
const lockRetryDelay = 250 * time.Millisecond

// Dir is a working directory rooted at a single path. All artifact
// names are derived from the video ID.
type Dir struct {
	path   string
	logger *slog.Logger
}

// New ensures the directory exists and returns a handle for it. The
// path should already be absolute with any home prefix expanded.
func New(path string, logger *slog.Logger) (*Dir, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("working directory path required")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create working directory: %w", err)
	}
	return &Dir{
		path:   path,
		logger: logging.NewComponentLogger(logger, "workdir"),
	}, nil
}

// Path returns the directory root.
func (d *Dir) Path() string {
	return d.path
}

// AudioPath returns the deterministic final audio name for a video.
func (d *Dir) AudioPath(videoID string) string {
	return filepath.Join(d.path, "audio_"+videoID+".mp3")
}

// Lock holds the per-video lock file until released.
type Lock struct {
	fl   *flock.Flock
	path string
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Release lets the next request for the same video proceed. The lock
// file stays on disk; the stale sweep reclaims old ones.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}

// AcquireLock serializes requests for the same video. It blocks until
// the current holder releases or ctx expires.
func (d *Dir) AcquireLock(ctx context.Context, videoID string) (*Lock, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, errors.New("video id required")
	}

	lockPath := filepath.Join(d.path, "video_"+videoID+".lock")
	fl := flock.New(lockPath)
	ok, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquire video lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("video lock %s unavailable", filepath.Base(lockPath))
	}

	d.logger.Debug("video lock acquired", logging.String("lock", lockPath))
	return &Lock{fl: fl, path: lockPath}, nil
}

// CleanupArtifacts removes every audio artifact belonging to the
// video: the final file plus any candidate, fallback, wav, or
// transcript intermediates sharing its stem. Lock files are not
// touched.
func (d *Dir) CleanupArtifacts(videoID string) error {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return errors.New("video id required")
	}

	matches, err := filepath.Glob(filepath.Join(d.path, "audio_"+videoID+"*"))
	if err != nil {
		return fmt.Errorf("list artifacts: %w", err)
	}

	var firstErr error
	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = err
			}
			d.logger.Warn("failed to remove artifact",
				logging.String("path", match),
				logging.Error(err),
				logging.String(logging.FieldEventType, "workdir_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check work_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
		}
	}
	return firstErr
}
