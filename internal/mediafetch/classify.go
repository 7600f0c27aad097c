package mediafetch

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"recap/internal/acquire"
)

var httpErrorPattern = regexp.MustCompile(`HTTP Error (\d{3})`)

// hardPhrases identify failures no client identity change can fix.
var hardPhrases = []string{
	"video unavailable",
	"private video",
	"this video has been removed",
	"video is no longer available",
	"account associated with this video has been terminated",
	"members-only content",
}

var throttlePhrases = []string{
	"sign in to confirm",
	"too many requests",
	"rate-limited by",
	"temporarily blocked",
}

// classifyAttempt tags a failed download attempt with the taxonomy
// marker that decides whether the cross-product loop continues. An
// embedded HTTP status wins over phrase matching; anything
// unrecognized stays unclassified, which the loop treats as soft.
func classifyAttempt(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return acquire.Wrap(acquire.ErrTimeout, "media-download", "attempt", "", err)
	}

	message := err.Error()
	if m := httpErrorPattern.FindStringSubmatch(message); m != nil {
		switch m[1] {
		case "403", "429":
			return acquire.Wrap(acquire.ErrRateLimited, "media-download", "attempt", "", err)
		case "404", "410":
			return acquire.Wrap(acquire.ErrVideoUnavailable, "media-download", "attempt", "", err)
		}
	}

	lower := strings.ToLower(message)
	for _, phrase := range hardPhrases {
		if strings.Contains(lower, phrase) {
			return acquire.Wrap(acquire.ErrVideoUnavailable, "media-download", "attempt", "", err)
		}
	}
	for _, phrase := range throttlePhrases {
		if strings.Contains(lower, phrase) {
			return acquire.Wrap(acquire.ErrRateLimited, "media-download", "attempt", "", err)
		}
	}
	return err
}

func outcomeFor(err error) acquire.Outcome {
	switch {
	case err == nil:
		return acquire.OutcomeSuccess
	case acquire.Hard(err):
		return acquire.OutcomeHardFailure
	default:
		return acquire.OutcomeSoftFailure
	}
}
