package videoref

import (
	"net/url"
	"regexp"
	"strings"

	"recap/internal/acquire"
)

var (
	idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	// Matches an 11-character identifier bounded by non-identifier
	// characters, so longer tokens such as playlist IDs never match.
	idScanPattern = regexp.MustCompile(`(?:^|[^A-Za-z0-9_-])([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`)
)

// Resolve parses a raw video URL into a VideoRef. It classifies the
// URL into one of the known forms (short-link, watch, shorts, embed)
// and extracts the identifier by the form-specific rule; unrecognized
// inputs fall back to scanning for an identifier-shaped token. Title
// and Author stay empty here; metadata lookup is a separate call.
func Resolve(rawURL string) (acquire.VideoRef, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return acquire.VideoRef{}, acquire.Wrap(acquire.ErrInvalidURL, "resolve", "parse", "empty URL", nil)
	}

	if parsed, err := url.Parse(trimmed); err == nil {
		if id := idFromKnownForm(parsed); id != "" {
			return acquire.VideoRef{RawURL: trimmed, VideoID: id}, nil
		}
	}

	if match := idScanPattern.FindStringSubmatch(trimmed); match != nil {
		return acquire.VideoRef{RawURL: trimmed, VideoID: match[1]}, nil
	}

	return acquire.VideoRef{}, acquire.Wrap(acquire.ErrInvalidURL, "resolve", "parse", "no video identifier in "+trimmed, nil)
}

func idFromKnownForm(parsed *url.URL) string {
	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")
	host = strings.TrimPrefix(host, "music.")

	switch host {
	case "youtu.be":
		if id := firstPathSegment(parsed.Path); idPattern.MatchString(id) {
			return id
		}
	case "youtube.com", "youtube-nocookie.com":
		if id := parsed.Query().Get("v"); idPattern.MatchString(id) {
			return id
		}
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/", "/v/"} {
			if rest, ok := strings.CutPrefix(parsed.Path, prefix); ok {
				if id := firstPathSegment(rest); idPattern.MatchString(id) {
					return id
				}
			}
		}
	}
	return ""
}

func firstPathSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if idx := strings.IndexByte(path, '/'); idx >= 0 {
		path = path[:idx]
	}
	return path
}
