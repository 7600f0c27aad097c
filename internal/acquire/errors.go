package acquire

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidURL           = errors.New("invalid video url")
	ErrMetadataUnavailable  = errors.New("metadata unavailable")
	ErrSubtitlesUnavailable = errors.New("subtitles unavailable")
	ErrRateLimited          = errors.New("rate limited")
	ErrVideoUnavailable     = errors.New("video unavailable")
	ErrConfiguration        = errors.New("configuration error")
	ErrTranscriptionFailed  = errors.New("transcription failed")
	ErrTimeout              = errors.New("timeout")
	ErrNoAcquisitionPath    = errors.New("no acquisition path available")
)

// Wrap builds an error message that includes stage context while
// tagging it with the provided marker for later classification. The
// marker should be one of the exported sentinel errors above; with a
// nil marker the detail wraps only the cause.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		if err != nil {
			return fmt.Errorf("%s: %w", detail, err)
		}
		return errors.New(detail)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "acquisition failure"
	}
	return strings.Join(parts, ": ")
}

// Hard reports whether err invalidates every remaining attempt of the
// strategy that produced it. A hard failure still lets the
// orchestrator fall through to the next strategy tier unless the
// marker is terminal for the whole pipeline (ErrVideoUnavailable).
func Hard(err error) bool {
	return errors.Is(err, ErrVideoUnavailable)
}

// Terminal reports whether err should stop the whole pipeline rather
// than fall through to the next strategy. ErrConfiguration is only
// terminal when the failing path was the last one available; the
// orchestrator decides that, so it is not listed here.
func Terminal(err error) bool {
	return errors.Is(err, ErrVideoUnavailable) || errors.Is(err, ErrInvalidURL)
}

// FailureReason is the user-facing explanation attached to a failed
// run.
type FailureReason struct {
	Code        string
	Explanation string
	Remediation string
}

func (r FailureReason) String() string {
	if r.Remediation == "" {
		return r.Explanation
	}
	return r.Explanation + " (" + r.Remediation + ")"
}

// Classify maps err to the taxonomy reason that best describes it.
// Context cancellation and deadline expiry classify as timeout unless
// a more specific marker is present.
func Classify(err error) FailureReason {
	switch {
	case err == nil:
		return FailureReason{}
	case errors.Is(err, ErrInvalidURL):
		return FailureReason{
			Code:        "invalid_url",
			Explanation: "the supplied URL does not contain a recognizable video identifier",
			Remediation: "check the URL; watch, youtu.be, shorts, and embed links are supported",
		}
	case errors.Is(err, ErrVideoUnavailable):
		return FailureReason{
			Code:        "video_unavailable",
			Explanation: "the video is private, removed, or otherwise unavailable",
			Remediation: "try a different video",
		}
	case errors.Is(err, ErrRateLimited):
		return FailureReason{
			Code:        "rate_limited",
			Explanation: "the upstream service is rate limiting or blocking automated clients",
			Remediation: "wait and retry, or configure acquire.cookies_file or acquire.proxy_url",
		}
	case errors.Is(err, ErrSubtitlesUnavailable):
		return FailureReason{
			Code:        "subtitles_unavailable",
			Explanation: "no usable caption track exists for the preferred languages",
			Remediation: "try a video with captions or let the pipeline fall back to audio transcription",
		}
	case errors.Is(err, ErrConfiguration):
		return FailureReason{
			Code:        "configuration",
			Explanation: "a required credential or setting is missing",
			Remediation: "run 'recap config init' and fill in the missing value",
		}
	case errors.Is(err, ErrTranscriptionFailed):
		return FailureReason{
			Code:        "transcription_failed",
			Explanation: "local speech-to-text produced no usable transcript",
			Remediation: "check that the whisper binary and model are installed",
		}
	case errors.Is(err, ErrNoAcquisitionPath):
		return FailureReason{
			Code:        "no_acquisition_path",
			Explanation: "every acquisition strategy was exhausted without a transcript",
			Remediation: "configure convert_api.api_key for the fallback API or try a video with captions",
		}
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return FailureReason{
			Code:        "timeout",
			Explanation: "the operation exceeded its deadline",
			Remediation: "raise acquire.overall_timeout_seconds or retry later",
		}
	case errors.Is(err, ErrMetadataUnavailable):
		return FailureReason{
			Code:        "metadata_unavailable",
			Explanation: "video metadata could not be fetched",
		}
	default:
		return FailureReason{
			Code:        "unknown",
			Explanation: strings.TrimSpace(err.Error()),
		}
	}
}
