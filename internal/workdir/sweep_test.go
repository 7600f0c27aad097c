package workdir

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"recap/internal/logging"
)

func seedFile(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("stale"), 0o644); err != nil {
		t.Fatalf("seed %s: %v", name, err)
	}
	if age > 0 {
		when := time.Now().Add(-age)
		if err := os.Chtimes(path, when, when); err != nil {
			t.Fatalf("age %s: %v", name, err)
		}
	}
	return path
}

func TestSweepStaleRemovesOldArtifacts(t *testing.T) {
	dir, err := New(t.TempDir(), logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	oldAudio := seedFile(t, dir.Path(), "audio_old1.mp3", 2*time.Hour)
	oldCand := seedFile(t, dir.Path(), "audio_old1.cand0.webm.part", 2*time.Hour)
	oldLock := seedFile(t, dir.Path(), "video_old1.lock", 2*time.Hour)
	freshAudio := seedFile(t, dir.Path(), "audio_new1.mp3", 0)

	result := dir.SweepStale(time.Hour)

	if len(result.Errors) != 0 {
		t.Fatalf("sweep errors: %v", result.Errors)
	}
	if len(result.Removed) != 3 {
		t.Fatalf("removed %d files, want 3: %v", len(result.Removed), result.Removed)
	}
	for _, path := range []string{oldAudio, oldCand, oldLock} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s survived sweep", filepath.Base(path))
		}
	}
	if _, err := os.Stat(freshAudio); err != nil {
		t.Errorf("fresh artifact swept: %v", err)
	}
}

func TestSweepStaleLeavesForeignFilesAlone(t *testing.T) {
	dir, err := New(t.TempDir(), logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	foreign := seedFile(t, dir.Path(), "notes.md", 48*time.Hour)
	subdir := filepath.Join(dir.Path(), "audio_shaped_dir")
	if err := os.Mkdir(subdir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	when := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(subdir, when, when); err != nil {
		t.Fatalf("age dir: %v", err)
	}

	result := dir.SweepStale(time.Hour)
	if len(result.Removed) != 0 {
		t.Errorf("swept foreign entries: %v", result.Removed)
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Errorf("foreign file removed: %v", err)
	}
	if _, err := os.Stat(subdir); err != nil {
		t.Errorf("directory removed: %v", err)
	}
}

func TestSweepStaleMissingDirectory(t *testing.T) {
	dir := &Dir{path: filepath.Join(t.TempDir(), "gone"), logger: logging.NewNop()}
	result := dir.SweepStale(time.Hour)
	if len(result.Removed) != 0 || len(result.Errors) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}
