package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"recap/internal/acquire"
	"recap/internal/logging"
	"recap/internal/mediafetch"
	"recap/internal/services"
	"recap/internal/services/ytdlp"
	"recap/internal/videoref"
	"recap/internal/workdir"
)

const testVideoID = "abc123xyz00"

type stubSubtitles struct {
	calls int
	fetch func(ctx context.Context, ref acquire.VideoRef) (*acquire.TranscriptResult, error)
}

func (s *stubSubtitles) Fetch(ctx context.Context, ref acquire.VideoRef) (*acquire.TranscriptResult, error) {
	s.calls++
	return s.fetch(ctx, ref)
}

type stubMedia struct {
	calls int
	fetch func(ref acquire.VideoRef, dest mediafetch.Destination) (acquire.AudioAsset, []acquire.Attempt, error)
}

func (m *stubMedia) Fetch(_ context.Context, ref acquire.VideoRef, dest mediafetch.Destination) (acquire.AudioAsset, []acquire.Attempt, error) {
	m.calls++
	return m.fetch(ref, dest)
}

type stubAPI struct {
	enabled bool
	calls   int
	fetch   func(ref acquire.VideoRef, destPath string) (acquire.AudioAsset, error)
}

func (a *stubAPI) Enabled() bool { return a.enabled }

func (a *stubAPI) FetchAudio(_ context.Context, ref acquire.VideoRef, destPath string) (acquire.AudioAsset, error) {
	a.calls++
	return a.fetch(ref, destPath)
}

type stubTranscriber struct {
	calls      int
	transcribe func(ctx context.Context, asset acquire.AudioAsset, outputDir string) (string, error)
}

func (tr *stubTranscriber) Transcribe(ctx context.Context, asset acquire.AudioAsset, outputDir string) (string, error) {
	tr.calls++
	return tr.transcribe(ctx, asset, outputDir)
}

type stubMetadata struct {
	md  videoref.Metadata
	err error
}

func (s *stubMetadata) Lookup(context.Context, acquire.VideoRef) (videoref.Metadata, error) {
	return s.md, s.err
}

func subtitleTranscript(t *testing.T, text, title string) *acquire.TranscriptResult {
	t.Helper()
	transcript, err := acquire.NewTranscript(text, acquire.SourceSubtitles, title)
	if err != nil {
		t.Fatalf("NewTranscript: %v", err)
	}
	return transcript
}

func subtitlesOK(t *testing.T) *stubSubtitles {
	return &stubSubtitles{fetch: func(_ context.Context, ref acquire.VideoRef) (*acquire.TranscriptResult, error) {
		return subtitleTranscript(t, "hello world", ref.Title), nil
	}}
}

func subtitlesSoftFail() *stubSubtitles {
	return &stubSubtitles{fetch: func(context.Context, acquire.VideoRef) (*acquire.TranscriptResult, error) {
		return nil, acquire.Wrap(acquire.ErrSubtitlesUnavailable, "subtitles", "select", "no track", nil)
	}}
}

func mediaOK() *stubMedia {
	return &stubMedia{fetch: func(_ acquire.VideoRef, dest mediafetch.Destination) (acquire.AudioAsset, []acquire.Attempt, error) {
		if err := os.WriteFile(dest.FinalPath, []byte("audio"), 0o644); err != nil {
			return acquire.AudioAsset{}, nil, err
		}
		attempt := acquire.Attempt{Strategy: "media-download", Profile: "android", Outcome: acquire.OutcomeSuccess}
		return acquire.AudioAsset{Path: dest.FinalPath, Size: 5}, []acquire.Attempt{attempt}, nil
	}}
}

func mediaExhausted() *stubMedia {
	return &stubMedia{fetch: func(acquire.VideoRef, mediafetch.Destination) (acquire.AudioAsset, []acquire.Attempt, error) {
		attempts := []acquire.Attempt{
			{Strategy: "media-download", Profile: "android", Outcome: acquire.OutcomeSoftFailure, Detail: "HTTP 429"},
			{Strategy: "media-download", Profile: "web", Outcome: acquire.OutcomeSoftFailure, Detail: "HTTP 429"},
		}
		err := acquire.Wrap(acquire.ErrRateLimited, "media-download", "attempt", "exhausted", nil)
		return acquire.AudioAsset{}, attempts, err
	}}
}

func transcriberOK(text string) *stubTranscriber {
	return &stubTranscriber{transcribe: func(context.Context, acquire.AudioAsset, string) (string, error) {
		return text, nil
	}}
}

func newTestDir(t *testing.T) *workdir.Dir {
	t.Helper()
	dir, err := workdir.New(t.TempDir(), logging.NewNop())
	if err != nil {
		t.Fatalf("workdir.New: %v", err)
	}
	return dir
}

func newOrchestrator(t *testing.T, subs SubtitleFetcher, media MediaFetcher, tr Transcriber, dir *workdir.Dir, opts ...Option) *Orchestrator {
	t.Helper()
	orch, err := New(subs, media, tr, dir, Config{}, logging.NewNop(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return orch
}

func assertStates(t *testing.T, got []State, want ...State) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("states = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("states = %v, want %v", got, want)
		}
	}
}

func TestRunSubtitleFirstShortCircuits(t *testing.T) {
	subs := subtitlesOK(t)
	media := &stubMedia{fetch: func(acquire.VideoRef, mediafetch.Destination) (acquire.AudioAsset, []acquire.Attempt, error) {
		return acquire.AudioAsset{}, nil, errors.New("must not run")
	}}
	tr := transcriberOK("unused")
	meta := &stubMetadata{md: videoref.Metadata{Title: "Launch Talk", Author: "Acme"}}

	orch := newOrchestrator(t, subs, media, tr, newTestDir(t), WithMetadata(meta))
	res, err := orch.Run(context.Background(), Request{URL: "https://youtu.be/" + testVideoID, PreferSubtitles: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Transcript == nil || res.Transcript.Text != "hello world" {
		t.Fatalf("transcript = %+v", res.Transcript)
	}
	if res.Transcript.Source != acquire.SourceSubtitles {
		t.Errorf("source = %q", res.Transcript.Source)
	}
	if res.Transcript.Title != "Launch Talk" {
		t.Errorf("title = %q, want metadata title", res.Transcript.Title)
	}
	if res.Ref.VideoID != testVideoID {
		t.Errorf("video id = %q", res.Ref.VideoID)
	}
	if res.RequestID == "" {
		t.Error("request id missing")
	}
	if media.calls != 0 {
		t.Errorf("media strategy invoked %d times on the subtitle path", media.calls)
	}
	if tr.calls != 0 {
		t.Errorf("transcriber invoked %d times on the subtitle path", tr.calls)
	}
	assertStates(t, res.States, StateStart, StateResolvingRef, StateTryingSubtitles, StateDone)
	if len(res.Attempts) != 1 || res.Attempts[0].Strategy != "subtitles" || res.Attempts[0].Outcome != acquire.OutcomeSuccess {
		t.Errorf("attempts = %+v", res.Attempts)
	}
}

func TestRunSubtitleSoftFailureFallsToMediaDownload(t *testing.T) {
	var downloads struct {
		mu    sync.Mutex
		count int
	}
	downloader := downloaderFunc(func(_ context.Context, req ytdlp.Request) error {
		downloads.mu.Lock()
		downloads.count++
		call := downloads.count
		downloads.mu.Unlock()
		if call <= 2 {
			return errors.New("ERROR: HTTP Error 429: Too Many Requests")
		}
		path := strings.ReplaceAll(req.OutputPath, "%(ext)s", "mp3")
		return os.WriteFile(path, []byte("downloaded-audio"), 0o644)
	})
	strategy, err := mediafetch.NewStrategy(downloader, mediafetch.Config{
		Profiles:   []string{"android", "ios", "tv_embedded", "web_safari", "web"},
		UserAgents: []string{"ua"},
	}, nil, mediafetch.WithDelayFunc(func() time.Duration { return 0 }))
	if err != nil {
		t.Fatalf("NewStrategy: %v", err)
	}

	dir := newTestDir(t)
	var transcribed acquire.AudioAsset
	tr := &stubTranscriber{transcribe: func(_ context.Context, asset acquire.AudioAsset, _ string) (string, error) {
		transcribed = asset
		return "words from audio", nil
	}}

	orch := newOrchestrator(t, subtitlesSoftFail(), strategy, tr, dir)
	res, err := orch.Run(context.Background(), Request{URL: "https://www.youtube.com/watch?v=" + testVideoID, PreferSubtitles: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if downloads.count != 3 {
		t.Errorf("download attempts = %d, want 3 (short-circuit on success)", downloads.count)
	}
	if len(res.Attempts) != 4 {
		t.Fatalf("journal = %+v, want subtitle attempt plus 3 media attempts", res.Attempts)
	}
	if res.Attempts[0].Strategy != "subtitles" || res.Attempts[0].Outcome != acquire.OutcomeSoftFailure {
		t.Errorf("attempts[0] = %+v", res.Attempts[0])
	}
	if res.Attempts[3].Outcome != acquire.OutcomeSuccess {
		t.Errorf("attempts[3] = %+v", res.Attempts[3])
	}
	if res.Transcript == nil || res.Transcript.Text != "words from audio" {
		t.Fatalf("transcript = %+v", res.Transcript)
	}
	if res.Transcript.Source != acquire.SourceTranscription {
		t.Errorf("source = %q", res.Transcript.Source)
	}
	if transcribed.Path != dir.AudioPath(testVideoID) {
		t.Errorf("transcribed asset path = %q", transcribed.Path)
	}
	assertStates(t, res.States,
		StateStart, StateResolvingRef, StateTryingSubtitles, StateTryingMedia, StateTranscribing, StateDone)

	if _, statErr := os.Stat(dir.AudioPath(testVideoID)); !os.IsNotExist(statErr) {
		t.Error("audio artifact not cleaned up after successful run")
	}
}

func TestRunSkipsSubtitlesWhenDisabled(t *testing.T) {
	subs := subtitlesSoftFail()
	orch := newOrchestrator(t, subs, mediaOK(), transcriberOK("text"), newTestDir(t))

	res, err := orch.Run(context.Background(), Request{URL: "https://youtu.be/" + testVideoID})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if subs.calls != 0 {
		t.Errorf("subtitle strategy invoked %d times with subtitle-first disabled", subs.calls)
	}
	assertStates(t, res.States, StateStart, StateResolvingRef, StateTryingMedia, StateTranscribing, StateDone)
}

func TestRunExhaustionWithoutKeyFailsWithoutAPICall(t *testing.T) {
	api := &stubAPI{enabled: false}
	orch := newOrchestrator(t, subtitlesSoftFail(), mediaExhausted(), transcriberOK("unused"), newTestDir(t), WithAPI(api))

	res, err := orch.Run(context.Background(), Request{URL: "https://youtu.be/" + testVideoID})
	if !errors.Is(err, acquire.ErrNoAcquisitionPath) {
		t.Fatalf("err = %v, want no-acquisition-path", err)
	}
	if api.calls != 0 {
		t.Errorf("conversion API invoked %d times without a key", api.calls)
	}
	if res.Failure == nil || res.Failure.Code != "no_acquisition_path" {
		t.Errorf("failure = %+v", res.Failure)
	}
	for _, state := range res.States {
		if state == StateTryingAPI {
			t.Error("entered the external API state without a key")
		}
	}
	assertStates(t, res.States, StateStart, StateResolvingRef, StateTryingMedia, StateFailed)
	if len(res.Attempts) != 2 {
		t.Errorf("journal = %+v, want the two media attempts", res.Attempts)
	}
}

func TestRunHardFailureIsTerminal(t *testing.T) {
	media := &stubMedia{fetch: func(acquire.VideoRef, mediafetch.Destination) (acquire.AudioAsset, []acquire.Attempt, error) {
		attempt := acquire.Attempt{Strategy: "media-download", Profile: "android", Outcome: acquire.OutcomeHardFailure, Detail: "private video"}
		err := acquire.Wrap(acquire.ErrVideoUnavailable, "media-download", "attempt", "private video", nil)
		return acquire.AudioAsset{}, []acquire.Attempt{attempt}, err
	}}
	api := &stubAPI{enabled: true, fetch: func(acquire.VideoRef, string) (acquire.AudioAsset, error) {
		return acquire.AudioAsset{}, errors.New("must not run")
	}}

	orch := newOrchestrator(t, subtitlesSoftFail(), media, transcriberOK("unused"), newTestDir(t), WithAPI(api))
	res, err := orch.Run(context.Background(), Request{URL: "https://youtu.be/" + testVideoID})
	if !errors.Is(err, acquire.ErrVideoUnavailable) {
		t.Fatalf("err = %v, want video unavailable", err)
	}
	if api.calls != 0 {
		t.Errorf("conversion API invoked %d times after a terminal failure", api.calls)
	}
	if res.Failure == nil || res.Failure.Code != "video_unavailable" {
		t.Errorf("failure = %+v", res.Failure)
	}
}

func TestRunSubtitleUnavailableVideoStopsPipeline(t *testing.T) {
	subs := &stubSubtitles{fetch: func(context.Context, acquire.VideoRef) (*acquire.TranscriptResult, error) {
		return nil, acquire.Wrap(acquire.ErrVideoUnavailable, "subtitles", "discover", "video removed", nil)
	}}
	media := &stubMedia{fetch: func(acquire.VideoRef, mediafetch.Destination) (acquire.AudioAsset, []acquire.Attempt, error) {
		return acquire.AudioAsset{}, nil, errors.New("must not run")
	}}

	orch := newOrchestrator(t, subs, media, transcriberOK("unused"), newTestDir(t))
	res, err := orch.Run(context.Background(), Request{URL: "https://youtu.be/" + testVideoID, PreferSubtitles: true})
	if !errors.Is(err, acquire.ErrVideoUnavailable) {
		t.Fatalf("err = %v, want video unavailable", err)
	}
	if media.calls != 0 {
		t.Errorf("media strategy invoked %d times for a video no strategy can acquire", media.calls)
	}
	assertStates(t, res.States, StateStart, StateResolvingRef, StateTryingSubtitles, StateFailed)
}

func TestRunAPIFallbackProducesTranscript(t *testing.T) {
	dir := newTestDir(t)
	api := &stubAPI{enabled: true, fetch: func(_ acquire.VideoRef, destPath string) (acquire.AudioAsset, error) {
		if err := os.WriteFile(destPath, []byte("api-audio"), 0o644); err != nil {
			return acquire.AudioAsset{}, err
		}
		return acquire.AudioAsset{Path: destPath, Size: 9}, nil
	}}
	lockProbed := false
	tr := &stubTranscriber{transcribe: func(ctx context.Context, asset acquire.AudioAsset, _ string) (string, error) {
		probeCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		if _, lockErr := dir.AcquireLock(probeCtx, testVideoID); lockErr != nil {
			lockProbed = true
		}
		return "api words", nil
	}}

	orch := newOrchestrator(t, subtitlesSoftFail(), mediaExhausted(), tr, dir, WithAPI(api))
	res, err := orch.Run(context.Background(), Request{URL: "https://youtu.be/" + testVideoID, PreferSubtitles: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if api.calls != 1 {
		t.Errorf("API calls = %d", api.calls)
	}
	if !lockProbed {
		t.Error("video lock was not held during transcription")
	}
	if res.Transcript == nil || res.Transcript.Text != "api words" {
		t.Fatalf("transcript = %+v", res.Transcript)
	}
	assertStates(t, res.States,
		StateStart, StateResolvingRef, StateTryingSubtitles, StateTryingMedia, StateTryingAPI, StateTranscribing, StateDone)

	last := res.Attempts[len(res.Attempts)-1]
	if last.Strategy != "convert-api" || last.Outcome != acquire.OutcomeSuccess {
		t.Errorf("last attempt = %+v", last)
	}
	if _, statErr := os.Stat(dir.AudioPath(testVideoID)); !os.IsNotExist(statErr) {
		t.Error("audio artifact not cleaned up after API run")
	}

	relock, lockErr := dir.AcquireLock(context.Background(), testVideoID)
	if lockErr != nil {
		t.Fatalf("lock not released after run: %v", lockErr)
	}
	relock.Release()
}

func TestRunAPIFailureFailsRun(t *testing.T) {
	api := &stubAPI{enabled: true, fetch: func(acquire.VideoRef, string) (acquire.AudioAsset, error) {
		return acquire.AudioAsset{}, acquire.Wrap(acquire.ErrRateLimited, "convert-api", "submit", "HTTP 429", nil)
	}}
	orch := newOrchestrator(t, subtitlesSoftFail(), mediaExhausted(), transcriberOK("unused"), newTestDir(t), WithAPI(api))

	res, err := orch.Run(context.Background(), Request{URL: "https://youtu.be/" + testVideoID})
	if !errors.Is(err, acquire.ErrRateLimited) {
		t.Fatalf("err = %v", err)
	}
	if res.Failure == nil || res.Failure.Code != "rate_limited" {
		t.Errorf("failure = %+v", res.Failure)
	}
	assertStates(t, res.States, StateStart, StateResolvingRef, StateTryingMedia, StateTryingAPI, StateFailed)
}

func TestRunInvalidURLFailsBeforeAnyStrategy(t *testing.T) {
	subs := subtitlesSoftFail()
	media := mediaOK()
	orch := newOrchestrator(t, subs, media, transcriberOK("unused"), newTestDir(t))

	res, err := orch.Run(context.Background(), Request{URL: "https://example.com/watch?v=short", PreferSubtitles: true})
	if !errors.Is(err, acquire.ErrInvalidURL) {
		t.Fatalf("err = %v, want invalid url", err)
	}
	if subs.calls != 0 || media.calls != 0 {
		t.Errorf("strategies invoked for an unresolvable URL: subs=%d media=%d", subs.calls, media.calls)
	}
	if res.Failure == nil || res.Failure.Code != "invalid_url" {
		t.Errorf("failure = %+v", res.Failure)
	}
	assertStates(t, res.States, StateStart, StateResolvingRef, StateFailed)
}

func TestRunEmptyTranscriptionFails(t *testing.T) {
	dir := newTestDir(t)
	tr := &stubTranscriber{transcribe: func(context.Context, acquire.AudioAsset, string) (string, error) {
		return "   ", nil
	}}
	orch := newOrchestrator(t, subtitlesSoftFail(), mediaOK(), tr, dir)

	res, err := orch.Run(context.Background(), Request{URL: "https://youtu.be/" + testVideoID})
	if !errors.Is(err, acquire.ErrTranscriptionFailed) {
		t.Fatalf("err = %v, want transcription failure", err)
	}
	if res.Failure == nil || res.Failure.Code != "transcription_failed" {
		t.Errorf("failure = %+v", res.Failure)
	}
	if _, statErr := os.Stat(dir.AudioPath(testVideoID)); !os.IsNotExist(statErr) {
		t.Error("audio artifact not cleaned up after failed run")
	}
}

func TestRunOverallDeadlineFailsWithTimeout(t *testing.T) {
	subs := &stubSubtitles{fetch: func(ctx context.Context, _ acquire.VideoRef) (*acquire.TranscriptResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	orch, err := New(subs, mediaOK(), transcriberOK("unused"), newTestDir(t),
		Config{OverallTimeout: 40 * time.Millisecond}, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, runErr := orch.Run(context.Background(), Request{URL: "https://youtu.be/" + testVideoID, PreferSubtitles: true})
	if !errors.Is(runErr, acquire.ErrTimeout) {
		t.Fatalf("err = %v, want timeout", runErr)
	}
	if res.Failure == nil || res.Failure.Code != "timeout" {
		t.Errorf("failure = %+v", res.Failure)
	}
	if res.States[len(res.States)-1] != StateFailed {
		t.Errorf("states = %v", res.States)
	}
}

// downloaderFunc adapts a function to the mediafetch downloader seam.
type downloaderFunc func(ctx context.Context, req ytdlp.Request) error

func (f downloaderFunc) Download(ctx context.Context, req ytdlp.Request) error {
	return f(ctx, req)
}

func TestRunAnnotatesStrategyContexts(t *testing.T) {
	var subCtx, mediaCtx context.Context
	subs := &stubSubtitles{fetch: func(ctx context.Context, _ acquire.VideoRef) (*acquire.TranscriptResult, error) {
		subCtx = ctx
		return nil, acquire.Wrap(acquire.ErrSubtitlesUnavailable, "subtitles", "select", "no track", nil)
	}}
	captureMedia := &ctxCapturingMedia{inner: mediaOK(), ctx: &mediaCtx}
	orch := newOrchestrator(t, subs, captureMedia, transcriberOK("text"), newTestDir(t))

	res, err := orch.Run(context.Background(), Request{URL: "https://youtu.be/" + testVideoID, PreferSubtitles: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	rid, ok := services.RequestIDFromContext(subCtx)
	if !ok || rid != res.RequestID {
		t.Fatalf("subtitle ctx request id = %q ok=%v, want %q", rid, ok, res.RequestID)
	}
	if id, ok := services.VideoIDFromContext(subCtx); !ok || id != testVideoID {
		t.Errorf("subtitle ctx video id = %q ok=%v", id, ok)
	}
	if stage, ok := services.StageFromContext(subCtx); !ok || stage != string(StateTryingSubtitles) {
		t.Errorf("subtitle ctx stage = %q ok=%v", stage, ok)
	}
	if strategy, ok := services.StrategyFromContext(subCtx); !ok || strategy != "subtitles" {
		t.Errorf("subtitle ctx strategy = %q ok=%v", strategy, ok)
	}
	if strategy, ok := services.StrategyFromContext(mediaCtx); !ok || strategy != "media-download" {
		t.Errorf("media ctx strategy = %q ok=%v", strategy, ok)
	}
	if stage, ok := services.StageFromContext(mediaCtx); !ok || stage != string(StateTryingMedia) {
		t.Errorf("media ctx stage = %q ok=%v", stage, ok)
	}
}

type ctxCapturingMedia struct {
	inner MediaFetcher
	ctx   *context.Context
}

func (m *ctxCapturingMedia) Fetch(ctx context.Context, ref acquire.VideoRef, dest mediafetch.Destination) (acquire.AudioAsset, []acquire.Attempt, error) {
	*m.ctx = ctx
	return m.inner.Fetch(ctx, ref, dest)
}

func TestRunLogsCarryRunFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	orch, err := New(subtitlesOK(t), mediaOK(), transcriberOK("unused"), newTestDir(t), Config{}, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, runErr := orch.Run(context.Background(), Request{URL: "https://youtu.be/" + testVideoID, PreferSubtitles: true})
	if runErr != nil {
		t.Fatalf("Run: %v", runErr)
	}

	out := buf.String()
	if !strings.Contains(out, `"request_id":"`+res.RequestID+`"`) {
		t.Errorf("logs missing request id: %q", out)
	}
	if !strings.Contains(out, `"video_id":"`+testVideoID+`"`) {
		t.Errorf("logs missing video id: %q", out)
	}
	if !strings.Contains(out, `"stage":"`+string(StateTryingSubtitles)+`"`) {
		t.Errorf("logs missing stage: %q", out)
	}
}
