package acquire

import (
	"errors"
	"strings"
	"time"
)

// Source identifies where transcript text came from.
type Source string

const (
	// SourceSubtitles marks text parsed from an existing caption track.
	SourceSubtitles Source = "subtitles"
	// SourceTranscription marks text produced by local speech-to-text.
	SourceTranscription Source = "transcription"
)

// VideoRef is a resolved video reference. VideoID is derived
// deterministically from RawURL and immutable once resolved; Title and
// Author are best-effort metadata and may stay empty.
type VideoRef struct {
	RawURL  string
	VideoID string
	Title   string
	Author  string
}

// WatchURL returns the canonical watch URL for the reference. Download
// strategies pass this instead of RawURL so shorts, embed, and
// short-link inputs all hit the same endpoint shape.
func (r VideoRef) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + r.VideoID
}

// TranscriptResult carries acquired transcript text. Text is always
// non-empty trimmed content; construct results through NewTranscript
// so empty payloads surface as failures instead.
type TranscriptResult struct {
	Text   string
	Source Source
	Title  string
}

// NewTranscript validates and builds a TranscriptResult.
func NewTranscript(text string, source Source, title string) (*TranscriptResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("transcript text is empty")
	}
	return &TranscriptResult{Text: text, Source: source, Title: strings.TrimSpace(title)}, nil
}

// AudioAsset is a downloaded audio file awaiting transcription. The
// creating strategy owns the file until it returns; afterwards the
// orchestrator removes it on every exit path.
type AudioAsset struct {
	Path string
	Size int64
}

// Outcome classifies a single acquisition attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	// OutcomeSoftFailure permits retry with another profile or strategy.
	OutcomeSoftFailure Outcome = "soft_failure"
	// OutcomeHardFailure invalidates the remaining attempts of the
	// current strategy.
	OutcomeHardFailure Outcome = "hard_failure"
)

// Attempt records one try at one strategy. Attempts live only in the
// per-run journal and feed logs and the CLI attempts table.
type Attempt struct {
	Strategy  string
	Profile   string
	UserAgent string
	StartedAt time.Time
	Elapsed   time.Duration
	Outcome   Outcome
	Detail    string
}
