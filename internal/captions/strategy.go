package captions

import (
	"context"
	"fmt"
	"log/slog"

	"recap/internal/acquire"
	"recap/internal/logging"
)

// Strategy acquires a transcript from an existing caption track
// without touching any media stream. Failures carry the subtitle,
// rate-limit, or unavailable markers so the orchestrator can decide
// whether to move on.
type Strategy struct {
	client    *Client
	languages []string
	allowAny  bool
	logger    *slog.Logger
}

// NewStrategy creates the caption strategy. languages is the accepted
// language list in preference order; allowAny accepts a track in any
// language when no preferred language exists.
func NewStrategy(client *Client, languages []string, allowAny bool, logger *slog.Logger) *Strategy {
	if client == nil {
		client = NewClient()
	}
	return &Strategy{
		client:    client,
		languages: languages,
		allowAny:  allowAny,
		logger:    logging.NewComponentLogger(logger, "captions"),
	}
}

// Fetch lists advertised tracks, picks one, and returns its parsed
// text. Every failure is returned as an error; the caller decides
// which markers are soft.
func (s *Strategy) Fetch(ctx context.Context, ref acquire.VideoRef) (*acquire.TranscriptResult, error) {
	tracks, err := s.client.ListTracks(ctx, ref.VideoID)
	if err != nil {
		return nil, err
	}

	manualCount := 0
	for _, track := range tracks {
		if !track.Auto() {
			manualCount++
		}
	}
	s.logger.DebugContext(ctx, "caption tracks advertised",
		logging.Int("tracks", len(tracks)),
		logging.Int("manual", manualCount))

	track, ok := chooseTrack(tracks, s.languages, s.allowAny)
	if !ok {
		return nil, acquire.Wrap(acquire.ErrSubtitlesUnavailable, "subtitles", "select",
			fmt.Sprintf("no track matches languages %v (%d advertised)", s.languages, len(tracks)), nil)
	}
	s.logger.InfoContext(ctx, "caption track selected",
		logging.String("language", track.LanguageCode),
		logging.Bool("auto_generated", track.Auto()))

	text, err := s.client.FetchTrack(ctx, track)
	if err != nil {
		return nil, err
	}

	result, err := acquire.NewTranscript(text, acquire.SourceSubtitles, ref.Title)
	if err != nil {
		return nil, acquire.Wrap(acquire.ErrSubtitlesUnavailable, "subtitles", "parse", "track reduced to empty text", err)
	}
	return result, nil
}
