package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"recap/internal/acquire"
	"recap/internal/logging"
	"recap/internal/mediafetch"
	"recap/internal/services"
	"recap/internal/videoref"
	"recap/internal/workdir"
)

const (
	defaultOverallTimeout    = 15 * time.Minute
	defaultMetadataTimeout   = 10 * time.Second
	defaultTranscribeTimeout = 10 * time.Minute
	defaultStaleAfter        = 24 * time.Hour

	strategySubtitles  = "subtitles"
	strategyMedia      = "media-download"
	strategyConvertAPI = "convert-api"
)

// SubtitleFetcher acquires a transcript from existing caption tracks.
type SubtitleFetcher interface {
	Fetch(ctx context.Context, ref acquire.VideoRef) (*acquire.TranscriptResult, error)
}

// MediaFetcher downloads the best available audio stream into the
// destination and reports every attempt it made.
type MediaFetcher interface {
	Fetch(ctx context.Context, ref acquire.VideoRef, dest mediafetch.Destination) (acquire.AudioAsset, []acquire.Attempt, error)
}

// AudioAPI is the last-resort conversion service. Enabled reports
// whether a key is configured; the orchestrator never calls FetchAudio
// when it is not.
type AudioAPI interface {
	Enabled() bool
	FetchAudio(ctx context.Context, ref acquire.VideoRef, destPath string) (acquire.AudioAsset, error)
}

// Transcriber turns an audio asset into text.
type Transcriber interface {
	Transcribe(ctx context.Context, asset acquire.AudioAsset, outputDir string) (string, error)
}

// Config bounds a run. Zero values pick the defaults.
type Config struct {
	OverallTimeout    time.Duration
	MetadataTimeout   time.Duration
	TranscribeTimeout time.Duration
	StaleAfter        time.Duration
}

// Request is one orchestration call.
type Request struct {
	URL             string
	PreferSubtitles bool
}

// Result is the run record: identity, the states visited, every
// strategy attempt, and either a transcript or a classified failure.
type Result struct {
	RequestID  string
	Ref        acquire.VideoRef
	Transcript *acquire.TranscriptResult
	States     []State
	Attempts   []acquire.Attempt
	Failure    *acquire.FailureReason
	Elapsed    time.Duration
}

// Orchestrator drives one video reference through the strategy order.
type Orchestrator struct {
	subtitles   SubtitleFetcher
	media       MediaFetcher
	transcriber Transcriber
	api         AudioAPI
	metadata    videoref.MetadataSource
	dir         *workdir.Dir
	cfg         Config
	logger      *slog.Logger
}

// Option configures optional collaborators.
type Option func(*Orchestrator)

// WithMetadata installs the best-effort title/author lookup.
func WithMetadata(source videoref.MetadataSource) Option {
	return func(o *Orchestrator) { o.metadata = source }
}

// WithAPI installs the external conversion service.
func WithAPI(api AudioAPI) Option {
	return func(o *Orchestrator) { o.api = api }
}

// New validates the required collaborators and applies defaults.
func New(subtitles SubtitleFetcher, media MediaFetcher, transcriber Transcriber, dir *workdir.Dir, cfg Config, logger *slog.Logger, opts ...Option) (*Orchestrator, error) {
	if subtitles == nil {
		return nil, errors.New("subtitle fetcher required")
	}
	if media == nil {
		return nil, errors.New("media fetcher required")
	}
	if transcriber == nil {
		return nil, errors.New("transcriber required")
	}
	if dir == nil {
		return nil, errors.New("working directory required")
	}

	if cfg.OverallTimeout <= 0 {
		cfg.OverallTimeout = defaultOverallTimeout
	}
	if cfg.MetadataTimeout <= 0 {
		cfg.MetadataTimeout = defaultMetadataTimeout
	}
	if cfg.TranscribeTimeout <= 0 {
		cfg.TranscribeTimeout = defaultTranscribeTimeout
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = defaultStaleAfter
	}

	orch := &Orchestrator{
		subtitles:   subtitles,
		media:       media,
		transcriber: transcriber,
		dir:         dir,
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "pipeline"),
	}
	for _, opt := range opts {
		opt(orch)
	}
	return orch, nil
}

// Run executes the state machine for one request. The returned error
// is the terminal failure; Result carries the classified reason and
// the full attempt journal either way.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	started := time.Now()
	result := Result{
		RequestID: uuid.NewString(),
		States:    []State{StateStart},
	}
	logger := o.logger

	ctx = services.WithRequestID(ctx, result.RequestID)
	ctx, cancel := context.WithTimeout(ctx, o.cfg.OverallTimeout)
	defer cancel()

	o.dir.SweepStale(o.cfg.StaleAfter)

	enter := func(state State) {
		ctx = services.WithStage(ctx, string(state))
		result.States = append(result.States, state)
		logger.DebugContext(ctx, "state entered")
	}
	fail := func(state State, err error) (Result, error) {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, acquire.ErrTimeout) {
			err = acquire.Wrap(acquire.ErrTimeout, "pipeline", string(state), err.Error(), nil)
		}
		result.States = append(result.States, StateFailed)
		reason := acquire.Classify(err)
		result.Failure = &reason
		result.Elapsed = time.Since(started)
		logger.ErrorContext(ctx, "pipeline failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "pipeline_failed"),
			logging.String(logging.FieldErrorHint, reason.Remediation),
		)
		return result, err
	}
	done := func(transcript *acquire.TranscriptResult) (Result, error) {
		result.Transcript = transcript
		enter(StateDone)
		result.Elapsed = time.Since(started)
		logger.InfoContext(ctx, "transcript acquired",
			logging.String("source", string(transcript.Source)),
			logging.Int("attempts", len(result.Attempts)),
			logging.Duration("elapsed", result.Elapsed),
			logging.String(logging.FieldEventType, "pipeline_done"),
		)
		return result, nil
	}

	enter(StateResolvingRef)
	ref, err := videoref.Resolve(req.URL)
	if err != nil {
		return fail(StateResolvingRef, err)
	}
	ctx = services.WithVideoID(ctx, ref.VideoID)
	if o.metadata != nil {
		mctx, mcancel := context.WithTimeout(ctx, o.cfg.MetadataTimeout)
		md, mdErr := o.metadata.Lookup(mctx, ref)
		mcancel()
		if mdErr != nil {
			logger.DebugContext(ctx, "metadata lookup failed", logging.Error(mdErr))
		} else {
			ref.Title = md.Title
			ref.Author = md.Author
		}
	}
	result.Ref = ref

	if req.PreferSubtitles {
		enter(StateTryingSubtitles)
		subStarted := time.Now()
		transcript, subErr := o.subtitles.Fetch(services.WithStrategy(ctx, strategySubtitles), ref)
		if subErr == nil && transcript == nil {
			subErr = errors.New("subtitle strategy returned no transcript")
		}
		result.Attempts = append(result.Attempts, attemptRecord(strategySubtitles, subStarted, subErr))
		if subErr == nil {
			return done(transcript)
		}
		if ctx.Err() != nil || acquire.Terminal(subErr) {
			return fail(StateTryingSubtitles, subErr)
		}
		logger.InfoContext(services.WithStrategy(ctx, strategySubtitles),
			"no usable caption track, downloading audio", logging.Error(subErr))
	}

	enter(StateTryingMedia)
	lock, lockErr := o.dir.AcquireLock(ctx, ref.VideoID)
	if lockErr != nil {
		return fail(StateTryingMedia, lockErr)
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			logger.WarnContext(ctx, "failed to release video lock", logging.Error(releaseErr))
		}
	}()
	defer func() {
		if cleanupErr := o.dir.CleanupArtifacts(ref.VideoID); cleanupErr != nil {
			logger.WarnContext(ctx, "failed to remove audio artifacts",
				logging.Error(cleanupErr),
				logging.String(logging.FieldErrorHint, "check work_dir permissions"),
				logging.String(logging.FieldImpact, "stale files remain until the next sweep"),
			)
		}
	}()

	dest := mediafetch.Destination{Dir: o.dir.Path(), FinalPath: o.dir.AudioPath(ref.VideoID)}
	asset, mediaAttempts, mediaErr := o.media.Fetch(services.WithStrategy(ctx, strategyMedia), ref, dest)
	result.Attempts = append(result.Attempts, mediaAttempts...)
	switch {
	case mediaErr == nil:
	case ctx.Err() != nil || acquire.Terminal(mediaErr):
		return fail(StateTryingMedia, mediaErr)
	case o.api == nil || !o.api.Enabled():
		return fail(StateTryingMedia, acquire.Wrap(acquire.ErrNoAcquisitionPath,
			"pipeline", "media-download", mediaErr.Error(), nil))
	default:
		logger.InfoContext(ctx, "media download exhausted, delegating to conversion API",
			logging.Error(mediaErr))
		enter(StateTryingAPI)
		apiStarted := time.Now()
		var apiErr error
		asset, apiErr = o.api.FetchAudio(services.WithStrategy(ctx, strategyConvertAPI), ref, dest.FinalPath)
		result.Attempts = append(result.Attempts, attemptRecord(strategyConvertAPI, apiStarted, apiErr))
		if apiErr != nil {
			return fail(StateTryingAPI, apiErr)
		}
	}

	enter(StateTranscribing)
	tctx, tcancel := context.WithTimeout(ctx, o.cfg.TranscribeTimeout)
	defer tcancel()
	text, trErr := o.transcriber.Transcribe(tctx, asset, o.dir.Path())
	if trErr != nil {
		if errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			trErr = acquire.Wrap(acquire.ErrTimeout, "pipeline", "transcribe", trErr.Error(), nil)
		}
		return fail(StateTranscribing, trErr)
	}
	transcript, buildErr := acquire.NewTranscript(text, acquire.SourceTranscription, ref.Title)
	if buildErr != nil {
		return fail(StateTranscribing, acquire.Wrap(acquire.ErrTranscriptionFailed,
			"pipeline", "transcribe", "", buildErr))
	}
	return done(transcript)
}

// attemptRecord journals a single-shot strategy call. Cross-product
// strategies journal their own attempts.
func attemptRecord(strategy string, started time.Time, err error) acquire.Attempt {
	attempt := acquire.Attempt{
		Strategy:  strategy,
		StartedAt: started,
		Elapsed:   time.Since(started),
		Outcome:   acquire.OutcomeSuccess,
	}
	if err != nil {
		attempt.Outcome = acquire.OutcomeSoftFailure
		if acquire.Hard(err) {
			attempt.Outcome = acquire.OutcomeHardFailure
		}
		attempt.Detail = err.Error()
	}
	return attempt
}
