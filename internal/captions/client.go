package captions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"recap/internal/acquire"
)

const (
	defaultWatchBaseURL = "https://www.youtube.com"
	fetchTimeout        = 10 * time.Second
	maxPageBytes        = 3 << 20
	maxTrackBytes       = 10 << 20
)

// Track is one caption track advertised on the watch page.
type Track struct {
	BaseURL      string
	LanguageCode string
	Kind         string
	Name         string
}

// Auto reports whether the track was machine-generated.
func (t Track) Auto() bool { return t.Kind == "asr" }

// Client discovers and downloads caption tracks.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the watch page origin.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithUserAgent overrides the User-Agent header sent with every request.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// NewClient creates a caption client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: fetchTimeout},
		baseURL:    defaultWatchBaseURL,
		userAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type trackListPayload struct {
	PlayerCaptionsTracklistRenderer struct {
		CaptionTracks []struct {
			BaseURL string `json:"baseUrl"`
			Name    struct {
				SimpleText string `json:"simpleText"`
			} `json:"name"`
			LanguageCode string `json:"languageCode"`
			Kind         string `json:"kind"`
		} `json:"captionTracks"`
	} `json:"playerCaptionsTracklistRenderer"`
}

// ListTracks fetches the watch page and extracts the advertised
// caption tracks. A page without a captions section is a soft miss;
// captcha interstitials and unplayable videos map to their own
// markers so the caller can distinguish throttling from dead videos.
func (c *Client) ListTracks(ctx context.Context, videoID string) ([]Track, error) {
	pageURL := c.baseURL + "/watch?v=" + url.QueryEscape(videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build watch request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, acquire.Wrap(acquire.ErrSubtitlesUnavailable, "subtitles", "watch-page", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, acquire.Wrap(acquire.ErrRateLimited, "subtitles", "watch-page", "status 429", nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, acquire.Wrap(acquire.ErrSubtitlesUnavailable, "subtitles", "watch-page",
			fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, acquire.Wrap(acquire.ErrSubtitlesUnavailable, "subtitles", "watch-page", "read body", err)
	}

	return extractTracks(string(body))
}

func extractTracks(page string) ([]Track, error) {
	_, rest, found := strings.Cut(page, `"captions":`)
	if !found {
		if strings.Contains(page, `class="g-recaptcha"`) {
			return nil, acquire.Wrap(acquire.ErrRateLimited, "subtitles", "watch-page", "captcha interstitial", nil)
		}
		if strings.Contains(page, `action="https://consent.youtube.com/s"`) {
			return nil, acquire.Wrap(acquire.ErrSubtitlesUnavailable, "subtitles", "watch-page", "consent form", nil)
		}
		if strings.Contains(page, `"playabilityStatus"`) && strings.Contains(page, `"status":"ERROR"`) {
			return nil, acquire.Wrap(acquire.ErrVideoUnavailable, "subtitles", "watch-page", "video not playable", nil)
		}
		return nil, acquire.Wrap(acquire.ErrSubtitlesUnavailable, "subtitles", "watch-page", "no captions section", nil)
	}

	raw, _, found := strings.Cut(rest, `,"videoDetails`)
	if !found {
		raw = rest
	}
	raw = strings.ReplaceAll(raw, "\n", "")

	var payload trackListPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, acquire.Wrap(acquire.ErrSubtitlesUnavailable, "subtitles", "watch-page", "decode captions section", err)
	}

	entries := payload.PlayerCaptionsTracklistRenderer.CaptionTracks
	tracks := make([]Track, 0, len(entries))
	for _, entry := range entries {
		if entry.BaseURL == "" {
			continue
		}
		tracks = append(tracks, Track{
			BaseURL:      entry.BaseURL,
			LanguageCode: entry.LanguageCode,
			Kind:         entry.Kind,
			Name:         entry.Name.SimpleText,
		})
	}
	if len(tracks) == 0 {
		return nil, acquire.Wrap(acquire.ErrSubtitlesUnavailable, "subtitles", "watch-page", "no caption tracks advertised", nil)
	}
	return tracks, nil
}

// FetchTrack downloads a caption payload and reduces it to plain text.
// The request asks for WebVTT; the parser also accepts the timed-text
// XML some tracks return regardless.
func (c *Client) FetchTrack(ctx context.Context, track Track) (string, error) {
	trackURL, err := url.Parse(track.BaseURL)
	if err != nil {
		return "", acquire.Wrap(acquire.ErrSubtitlesUnavailable, "subtitles", "track", "parse track url", err)
	}
	query := trackURL.Query()
	query.Set("fmt", "vtt")
	trackURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trackURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build track request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", acquire.Wrap(acquire.ErrSubtitlesUnavailable, "subtitles", "track", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		marker := acquire.ErrSubtitlesUnavailable
		if resp.StatusCode == http.StatusTooManyRequests {
			marker = acquire.ErrRateLimited
		}
		return "", acquire.Wrap(marker, "subtitles", "track", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTrackBytes))
	if err != nil {
		return "", acquire.Wrap(acquire.ErrSubtitlesUnavailable, "subtitles", "track", "read body", err)
	}

	text, err := Parse(body)
	if err != nil {
		return "", acquire.Wrap(acquire.ErrSubtitlesUnavailable, "subtitles", "track", "parse payload", err)
	}
	return text, nil
}
