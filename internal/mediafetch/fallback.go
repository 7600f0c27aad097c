package mediafetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"

	"recap/internal/acquire"
)

// GenericFetcher is the minimal last-resort downloader: no identity
// rotation, no cookies, just the default innertube client and the
// highest-bitrate audio-only stream.
type GenericFetcher struct {
	client *youtube.Client
}

// NewGenericFetcher builds the fallback fetcher. timeout bounds each
// HTTP request, not the whole download.
func NewGenericFetcher(timeout time.Duration) *GenericFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GenericFetcher{
		client: &youtube.Client{
			HTTPClient: &http.Client{Timeout: timeout},
		},
	}
}

// Fetch downloads the best audio-only stream into dir and returns the
// raw asset in its native container.
func (f *GenericFetcher) Fetch(ctx context.Context, ref acquire.VideoRef, dir string) (acquire.AudioAsset, error) {
	video, err := f.client.GetVideoContext(ctx, ref.VideoID)
	if err != nil {
		return acquire.AudioAsset{}, classifyLibraryError(err)
	}

	format := bestAudioFormat(video.Formats)
	if format == nil {
		return acquire.AudioAsset{}, errors.New("fallback: no audio-only formats offered")
	}

	stream, _, err := f.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return acquire.AudioAsset{}, fmt.Errorf("fallback: open stream: %w", err)
	}
	defer stream.Close()

	destPath := filepath.Join(dir, fmt.Sprintf("audio_%s.fallback.%s", ref.VideoID, extensionFor(format.MimeType)))
	out, err := os.Create(destPath)
	if err != nil {
		return acquire.AudioAsset{}, fmt.Errorf("fallback: create %s: %w", destPath, err)
	}

	written, err := io.Copy(out, stream)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(destPath)
		return acquire.AudioAsset{}, fmt.Errorf("fallback: stream audio: %w", err)
	}
	if written == 0 {
		os.Remove(destPath)
		return acquire.AudioAsset{}, errors.New("fallback: stream produced no bytes")
	}
	return acquire.AudioAsset{Path: destPath, Size: written}, nil
}

// bestAudioFormat picks the audio-only format with the highest
// bitrate.
func bestAudioFormat(formats []youtube.Format) *youtube.Format {
	var best *youtube.Format
	for i := range formats {
		format := &formats[i]
		if format.AudioChannels == 0 || format.Width != 0 || format.Height != 0 {
			continue
		}
		if best == nil || formatBitrate(format) > formatBitrate(best) {
			best = format
		}
	}
	return best
}

func formatBitrate(f *youtube.Format) int {
	if f.Bitrate > 0 {
		return f.Bitrate
	}
	return f.AverageBitrate
}

func extensionFor(mimeType string) string {
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	parts := strings.Split(mimeType, "/")
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}
	return "bin"
}

// classifyLibraryError maps the library's restriction sentinels onto
// the hard marker so the orchestrator stops instead of moving on to
// the paid API for a video nobody can fetch.
func classifyLibraryError(err error) error {
	switch {
	case errors.Is(err, youtube.ErrVideoPrivate),
		errors.Is(err, youtube.ErrLoginRequired),
		errors.Is(err, youtube.ErrNotPlayableInEmbed):
		return acquire.Wrap(acquire.ErrVideoUnavailable, "media-fallback", "metadata", "", err)
	}
	var playability *youtube.ErrPlayabiltyStatus
	if errors.As(err, &playability) {
		return acquire.Wrap(acquire.ErrVideoUnavailable, "media-fallback", "metadata", "", err)
	}
	return fmt.Errorf("fallback: video metadata: %w", err)
}
