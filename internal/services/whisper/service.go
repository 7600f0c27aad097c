// Package whisper runs the local speech-to-text model over acquired
// audio. Preconditions on the audio asset are reported as distinct
// errors because they point at different upstream bugs: a missing file
// means the download lied about success, an empty file means a
// truncated write, a non-regular file means a path mix-up.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"recap/internal/acquire"
)

var (
	ErrAudioMissing   = errors.New("audio file does not exist")
	ErrAudioEmpty     = errors.New("audio file is empty")
	ErrNotRegularFile = errors.New("audio path is not a regular file")
)

// WAVExtractor prepares the fixed-rate mono input the model consumes.
type WAVExtractor interface {
	ExtractWAV(ctx context.Context, source, dest string) error
}

// Service wraps the whisper CLI.
type Service struct {
	binary    string
	extractor WAVExtractor

	commandRunner func(ctx context.Context, name string, args ...string) error

	mu        sync.Mutex
	modelSize string
	planModel string
	plan      []string
}

// NewService creates a whisper service.
func NewService(binary, modelSize string, extractor WAVExtractor) (*Service, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("whisper binary required")
	}
	if extractor == nil {
		return nil, errors.New("wav extractor required")
	}
	return &Service{
		binary:    binary,
		modelSize: strings.TrimSpace(modelSize),
		extractor: extractor,
	}, nil
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// SetModelSize switches to another model variant. The cached
// invocation plan is rebuilt on the next transcription.
func (s *Service) SetModelSize(size string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modelSize = strings.TrimSpace(size)
}

// ModelSize returns the configured model variant for logging.
func (s *Service) ModelSize() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modelSize
}

// invocationArgs returns the model-dependent argument plan, rebuilt
// only when the model size changed since the previous transcription.
func (s *Service) invocationArgs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.planModel != s.modelSize || s.plan == nil {
		s.plan = []string{
			"--model", s.modelSize,
			"--output_format", "txt",
			"--verbose", "False",
		}
		s.planModel = s.modelSize
	}
	return append([]string(nil), s.plan...)
}

// Transcribe converts the audio asset to text. outputDir receives the
// intermediate WAV and the model's text output; both are removed
// before returning. An empty transcription is a failure, never an
// empty success.
func (s *Service) Transcribe(ctx context.Context, asset acquire.AudioAsset, outputDir string) (string, error) {
	if err := checkAsset(asset.Path); err != nil {
		return "", err
	}
	if outputDir == "" {
		outputDir = filepath.Dir(asset.Path)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("transcribe: ensure output dir: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(asset.Path), filepath.Ext(asset.Path))
	wavPath := filepath.Join(outputDir, base+".wav")
	if err := s.extractor.ExtractWAV(ctx, asset.Path, wavPath); err != nil {
		return "", acquire.Wrap(acquire.ErrTranscriptionFailed, "transcribe", "prepare-audio", "", err)
	}
	defer os.Remove(wavPath)

	args := append([]string{wavPath}, s.invocationArgs()...)
	args = append(args, "--output_dir", outputDir)
	if err := s.run(ctx, s.binary, args...); err != nil {
		return "", acquire.Wrap(acquire.ErrTranscriptionFailed, "transcribe", "invoke-model", "", err)
	}

	txtPath := filepath.Join(outputDir, base+".txt")
	defer os.Remove(txtPath)
	data, err := os.ReadFile(txtPath)
	if err != nil {
		return "", acquire.Wrap(acquire.ErrTranscriptionFailed, "transcribe", "read-output", txtPath, err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", acquire.Wrap(acquire.ErrTranscriptionFailed, "transcribe", "read-output", "model produced empty text", nil)
	}
	return text, nil
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func checkAsset(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return acquire.Wrap(acquire.ErrTranscriptionFailed, "transcribe", "preconditions", path, ErrAudioMissing)
	}
	if err != nil {
		return acquire.Wrap(acquire.ErrTranscriptionFailed, "transcribe", "preconditions", path, err)
	}
	if !info.Mode().IsRegular() {
		return acquire.Wrap(acquire.ErrTranscriptionFailed, "transcribe", "preconditions", path, ErrNotRegularFile)
	}
	if info.Size() == 0 {
		return acquire.Wrap(acquire.ErrTranscriptionFailed, "transcribe", "preconditions", path, ErrAudioEmpty)
	}
	return nil
}
