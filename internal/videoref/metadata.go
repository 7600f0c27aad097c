package videoref

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"

	"recap/internal/acquire"
)

const (
	defaultOEmbedURL = "https://www.youtube.com/oembed"
	metadataTimeout  = 10 * time.Second
	metadataMaxTries = 3
)

// Metadata carries the lightweight video description returned by the
// unauthenticated oEmbed endpoint.
type Metadata struct {
	Title  string `json:"title"`
	Author string `json:"author_name"`
}

// MetadataSource defines the lookup operation used during resolution.
type MetadataSource interface {
	Lookup(ctx context.Context, ref acquire.VideoRef) (Metadata, error)
}

// MetadataClient fetches titles and channel names via oEmbed. Lookups
// are best-effort for callers: a failed lookup leaves the reference
// without a title, it never aborts resolution.
type MetadataClient struct {
	baseURL    string
	httpClient *http.Client
	maxTries   uint
}

var _ MetadataSource = (*MetadataClient)(nil)

// MetadataOption configures a MetadataClient.
type MetadataOption func(*MetadataClient)

// WithMetadataHTTPClient overrides the default HTTP client.
func WithMetadataHTTPClient(client *http.Client) MetadataOption {
	return func(c *MetadataClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithMetadataBaseURL overrides the oEmbed endpoint.
func WithMetadataBaseURL(baseURL string) MetadataOption {
	return func(c *MetadataClient) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// NewMetadataClient creates an oEmbed metadata client.
func NewMetadataClient(opts ...MetadataOption) *MetadataClient {
	client := &MetadataClient{
		baseURL:    defaultOEmbedURL,
		httpClient: &http.Client{Timeout: metadataTimeout},
		maxTries:   metadataMaxTries,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Lookup fetches title and author for the reference. Server errors and
// throttling are retried a few times with exponential delay; missing
// or private videos fail immediately.
func (c *MetadataClient) Lookup(ctx context.Context, ref acquire.VideoRef) (Metadata, error) {
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return Metadata{}, fmt.Errorf("parse oembed url: %w", err)
	}
	params := url.Values{}
	params.Set("url", ref.WatchURL())
	params.Set("format", "json")
	endpoint.RawQuery = params.Encode()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 300 * time.Millisecond
	bo.MaxInterval = 2 * time.Second

	operation := func() (Metadata, error) {
		return c.lookupOnce(ctx, endpoint.String())
	}
	return backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(c.maxTries))
}

func (c *MetadataClient) lookupOnce(ctx context.Context, endpoint string) (Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Metadata{}, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return Metadata{}, acquire.Wrap(acquire.ErrMetadataUnavailable, "resolve", "oembed",
			fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return Metadata{}, acquire.Wrap(acquire.ErrMetadataUnavailable, "resolve", "oembed",
			fmt.Sprintf("oembed returned %d (latency=%v)", resp.StatusCode, latency), nil)
	default:
		// 400/401/404 mean the video is gone, private, or not
		// embeddable. No retry will change that.
		return Metadata{}, backoff.Permanent(acquire.Wrap(acquire.ErrMetadataUnavailable, "resolve", "oembed",
			fmt.Sprintf("oembed returned %d (latency=%v)", resp.StatusCode, latency), nil))
	}

	var payload Metadata
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Metadata{}, backoff.Permanent(acquire.Wrap(acquire.ErrMetadataUnavailable, "resolve", "oembed",
			"decode oembed response", err))
	}
	return payload, nil
}
