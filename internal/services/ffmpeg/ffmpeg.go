// Package ffmpeg normalizes acquired audio: transcoding arbitrary
// stream formats to the fixed MP3 target and preparing the mono
// 16 kHz WAV input the transcriber consumes.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// commandContext is swapped in tests.
var commandContext = exec.CommandContext

// Service runs ffmpeg with a fixed binary.
type Service struct {
	binary string
}

// NewService creates an ffmpeg service.
func NewService(binary string) (*Service, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	return &Service{binary: binary}, nil
}

// TranscodeToMP3 rewrites any audio input as a 192 kbps MP3.
func (s *Service) TranscodeToMP3(ctx context.Context, source, dest string) error {
	if source == "" || dest == "" {
		return errors.New("transcode: source and destination required")
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-c:a", "libmp3lame",
		"-b:a", "192k",
		dest,
	}
	return s.run(ctx, "transcode", args)
}

// ExtractWAV produces the mono 16 kHz PCM WAV used for speech-to-text.
func (s *Service) ExtractWAV(ctx context.Context, source, dest string) error {
	if source == "" || dest == "" {
		return errors.New("extract: source and destination required")
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	return s.run(ctx, "extract", args)
}

func (s *Service) run(ctx context.Context, operation string, args []string) error {
	cmd := commandContext(ctx, s.binary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg %s: %w: %s", operation, err, strings.TrimSpace(string(output)))
	}
	return nil
}
