// Package convertapi talks to the third-party conversion service used
// as the last acquisition fallback: submit a video URL, poll the job
// until the converted audio is ready, then stream the file to local
// storage. The whole strategy is disabled unless an API key is
// configured.
package convertapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"recap/internal/acquire"
)

const (
	defaultPollInterval = 3 * time.Second
	defaultMaxPolls     = 10
	requestTimeout      = 30 * time.Second

	// downloadChunkSize bounds each read while streaming the converted
	// audio to disk.
	downloadChunkSize = 256 << 10

	maxErrorBody = 512
)

type job struct {
	ID               string   `json:"job_id"`
	Status           string   `json:"status"`
	DownloadEndpoint string   `json:"download_endpoint"`
	Error            string   `json:"error"`
	Metadata         *jobMeta `json:"metadata"`
}

// throttledPoll is a 429 on a status check. Unlike throttling at
// submit or download it does not abort the job; the Retry-After value
// stretches the next poll delay instead.
type throttledPoll struct {
	retryAfter time.Duration
}

func (e *throttledPoll) Error() string {
	return "convert-api: status: HTTP 429"
}

type jobMeta struct {
	Title    string `json:"title"`
	AudioURL string `json:"audio_url"`
}

// Client is a conversion-service API client.
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	pollInterval time.Duration
	maxPolls     int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for every request.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithPollInterval overrides the delay between job status checks.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// WithMaxPolls overrides how many status checks run before the job is
// declared stuck.
func WithMaxPolls(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxPolls = n
		}
	}
}

// NewClient creates a conversion API client. An empty apiKey produces
// a client whose Enabled method reports false; FetchAudio on it fails
// with a configuration error rather than a retryable one.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:       strings.TrimSpace(apiKey),
		httpClient:   &http.Client{Timeout: requestTimeout},
		pollInterval: defaultPollInterval,
		maxPolls:     defaultMaxPolls,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether the client has the credentials it needs.
func (c *Client) Enabled() bool {
	return c.apiKey != "" && c.baseURL != ""
}

// FetchAudio converts ref's video through the external service and
// writes the resulting audio to destPath. On any failure destPath is
// removed.
func (c *Client) FetchAudio(ctx context.Context, ref acquire.VideoRef, destPath string) (acquire.AudioAsset, error) {
	if !c.Enabled() {
		return acquire.AudioAsset{}, acquire.Wrap(acquire.ErrConfiguration, "convert-api", "preflight", "convert_api.api_key is not configured", nil)
	}

	submitted, err := c.submit(ctx, ref)
	if err != nil {
		return acquire.AudioAsset{}, err
	}

	finished, err := c.awaitCompletion(ctx, submitted)
	if err != nil {
		return acquire.AudioAsset{}, err
	}

	endpoint := finished.DownloadEndpoint
	if endpoint == "" && finished.Metadata != nil {
		endpoint = finished.Metadata.AudioURL
	}
	if endpoint == "" {
		return acquire.AudioAsset{}, fmt.Errorf("convert-api: job %s completed without a download location", finished.ID)
	}

	asset, err := c.download(ctx, endpoint, destPath)
	if err != nil {
		os.Remove(destPath)
		return acquire.AudioAsset{}, err
	}
	return asset, nil
}

func (c *Client) submit(ctx context.Context, ref acquire.VideoRef) (*job, error) {
	payload, err := json.Marshal(map[string]string{"url": ref.WatchURL()})
	if err != nil {
		return nil, fmt.Errorf("convert-api: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("convert-api: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("convert-api: submit: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, "submit"); err != nil {
		return nil, err
	}

	var j job
	if err := json.NewDecoder(resp.Body).Decode(&j); err != nil {
		return nil, fmt.Errorf("convert-api: decode submit response: %w", err)
	}
	if j.ID == "" {
		return nil, errors.New("convert-api: submit response carries no job id")
	}
	return &j, nil
}

// awaitCompletion polls the job until it completes, fails, or the
// poll budget runs out. A job already completed at submit time (the
// service caches conversions) short-circuits without polling. A 429
// on a status check consumes a poll and honors Retry-After for the
// next delay rather than failing the job.
func (c *Client) awaitCompletion(ctx context.Context, submitted *job) (*job, error) {
	current := submitted
	delay := c.pollInterval
	for poll := 0; poll < c.maxPolls; poll++ {
		switch current.Status {
		case "completed":
			return current, nil
		case "failed":
			detail := current.Error
			if detail == "" {
				detail = "no detail supplied"
			}
			return nil, fmt.Errorf("convert-api: job %s failed: %s", current.ID, detail)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		next, err := c.status(ctx, submitted.ID)
		if err != nil {
			var throttled *throttledPoll
			if !errors.As(err, &throttled) {
				return nil, err
			}
			delay = max(c.pollInterval, throttled.retryAfter)
			continue
		}
		delay = c.pollInterval
		current = next
	}
	return nil, acquire.Wrap(acquire.ErrTimeout, "convert-api", "poll", fmt.Sprintf("job %s still %s after %d checks", submitted.ID, current.Status, c.maxPolls), nil)
}

func (c *Client) status(ctx context.Context, id string) (*job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("convert-api: build status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("convert-api: status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &throttledPoll{retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}
	if err := c.checkStatus(resp, "status"); err != nil {
		return nil, err
	}

	var j job
	if err := json.NewDecoder(resp.Body).Decode(&j); err != nil {
		return nil, fmt.Errorf("convert-api: decode status response: %w", err)
	}
	return &j, nil
}

// parseRetryAfter reads the header's delay-seconds form; HTTP-date and
// garbage values fall back to zero, which keeps the regular cadence.
func parseRetryAfter(value string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func (c *Client) download(ctx context.Context, endpoint, destPath string) (acquire.AudioAsset, error) {
	resolved, err := c.resolveEndpoint(endpoint)
	if err != nil {
		return acquire.AudioAsset{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resolved, nil)
	if err != nil {
		return acquire.AudioAsset{}, fmt.Errorf("convert-api: build download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return acquire.AudioAsset{}, fmt.Errorf("convert-api: download: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, "download"); err != nil {
		return acquire.AudioAsset{}, err
	}

	out, err := os.Create(destPath)
	if err != nil {
		return acquire.AudioAsset{}, fmt.Errorf("convert-api: create %s: %w", destPath, err)
	}

	written, err := io.CopyBuffer(out, resp.Body, make([]byte, downloadChunkSize))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return acquire.AudioAsset{}, fmt.Errorf("convert-api: stream audio: %w", err)
	}
	if written == 0 {
		return acquire.AudioAsset{}, errors.New("convert-api: service returned an empty file")
	}
	return acquire.AudioAsset{Path: destPath, Size: written}, nil
}

// resolveEndpoint accepts both absolute download URLs and paths
// relative to the configured base.
func (c *Client) resolveEndpoint(endpoint string) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("convert-api: bad download endpoint %q: %w", endpoint, err)
	}
	if parsed.IsAbs() {
		return endpoint, nil
	}
	return c.baseURL + "/" + strings.TrimLeft(endpoint, "/"), nil
}

// checkStatus maps HTTP failures onto the acquisition taxonomy:
// credential rejections are configuration errors, throttling is rate
// limiting, anything else keeps its status for diagnostics.
func (c *Client) checkStatus(resp *http.Response, operation string) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return acquire.Wrap(acquire.ErrConfiguration, "convert-api", operation, fmt.Sprintf("service rejected the API key (HTTP %d)", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return acquire.Wrap(acquire.ErrRateLimited, "convert-api", operation, fmt.Sprintf("HTTP %d", resp.StatusCode), nil)
	default:
		detail := excerpt(resp.Body)
		if detail != "" {
			return fmt.Errorf("convert-api: %s: HTTP %d: %s", operation, resp.StatusCode, detail)
		}
		return fmt.Errorf("convert-api: %s: HTTP %d", operation, resp.StatusCode)
	}
}

func excerpt(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
