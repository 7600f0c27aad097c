package mediafetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"

	"recap/internal/acquire"
	"recap/internal/logging"
	"recap/internal/services/ytdlp"
)

const (
	strategyPrimary  = "media-download"
	strategyFallback = "media-fallback"

	defaultAttemptTimeout = 90 * time.Second
	maxConcurrency        = 3
)

// Downloader runs one download attempt with one client identity.
type Downloader interface {
	Download(ctx context.Context, req ytdlp.Request) error
}

// Transcoder normalizes fallback output to the target codec.
type Transcoder interface {
	TranscodeToMP3(ctx context.Context, source, dest string) error
}

// Fallback is the single generic attempt tried after the identity
// cross product is exhausted. It writes into dir and returns the raw
// asset it produced, in whatever container the source offered.
type Fallback interface {
	Fetch(ctx context.Context, ref acquire.VideoRef, dir string) (acquire.AudioAsset, error)
}

// Destination names where the strategy works and where the final
// asset must end up. Attempts write distinct candidate files under
// Dir; the winner is renamed to FinalPath.
type Destination struct {
	Dir       string
	FinalPath string
}

// Config carries the identity lists and attempt limits.
type Config struct {
	Profiles       []string
	UserAgents     []string
	CookiesFile    string
	ProxyURL       string
	AttemptTimeout time.Duration
	Concurrency    int
}

// Strategy is the media download acquisition strategy.
type Strategy struct {
	downloader Downloader
	transcoder Transcoder
	fallback   Fallback
	cfg        Config
	logger     *slog.Logger
	delay      func() time.Duration
}

// Option configures a Strategy.
type Option func(*Strategy)

// WithFallback installs the post-exhaustion generic fetcher.
func WithFallback(f Fallback) Option {
	return func(s *Strategy) {
		s.fallback = f
	}
}

// WithTranscoder installs the normalizer for fallback output.
func WithTranscoder(t Transcoder) Option {
	return func(s *Strategy) {
		s.transcoder = t
	}
}

// WithDelayFunc overrides the inter-wave delay source (for testing).
func WithDelayFunc(delay func() time.Duration) Option {
	return func(s *Strategy) {
		if delay != nil {
			s.delay = delay
		}
	}
}

// NewStrategy builds the strategy. Profiles and user agents must be
// non-empty and every profile tag must be recognized.
func NewStrategy(downloader Downloader, cfg Config, logger *slog.Logger, opts ...Option) (*Strategy, error) {
	if downloader == nil {
		return nil, errors.New("downloader required")
	}
	if len(cfg.Profiles) == 0 {
		return nil, errors.New("at least one client profile required")
	}
	if len(cfg.UserAgents) == 0 {
		return nil, errors.New("at least one user agent required")
	}
	if err := validateProfiles(cfg.Profiles); err != nil {
		return nil, err
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = defaultAttemptTimeout
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Concurrency > maxConcurrency {
		cfg.Concurrency = maxConcurrency
	}

	s := &Strategy{
		downloader: downloader,
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "media"),
		delay:      jitterDelays(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// jitterDelays returns a growing randomized delay sequence so retry
// storms across concurrent runs stay desynchronized.
func jitterDelays() func() time.Duration {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	return bo.NextBackOff
}

type combo struct {
	profile   string
	userAgent string
}

type attemptResult struct {
	attempt   acquire.Attempt
	err       error
	candidate string
}

// Fetch walks the profile × user-agent cross product in configured
// order (profiles outer, user agents inner) until one attempt
// produces a playable asset. Every attempt is recorded in the
// returned journal. A hard failure aborts the remaining combinations;
// exhaustion triggers the generic fallback when one is installed.
func (s *Strategy) Fetch(ctx context.Context, ref acquire.VideoRef, dest Destination) (acquire.AudioAsset, []acquire.Attempt, error) {
	if dest.Dir == "" || dest.FinalPath == "" {
		return acquire.AudioAsset{}, nil, errors.New("destination dir and final path required")
	}

	combos := make([]combo, 0, len(s.cfg.Profiles)*len(s.cfg.UserAgents))
	for _, profile := range s.cfg.Profiles {
		for _, userAgent := range s.cfg.UserAgents {
			combos = append(combos, combo{profile: profile, userAgent: userAgent})
		}
	}

	var journal []acquire.Attempt
	var lastErr error
	for start := 0; start < len(combos); start += s.cfg.Concurrency {
		if err := ctx.Err(); err != nil {
			return acquire.AudioAsset{}, journal, err
		}

		wave := combos[start:min(start+s.cfg.Concurrency, len(combos))]
		results := s.runWave(ctx, ref, dest, wave, start)

		winner := -1
		for i, res := range results {
			journal = append(journal, res.attempt)
			if res.err == nil && winner < 0 {
				winner = i
			}
		}
		if winner >= 0 {
			for i, res := range results {
				if i != winner {
					removeCandidate(res.candidate)
				}
			}
			asset, err := s.promote(results[winner].candidate, dest.FinalPath)
			if err != nil {
				return acquire.AudioAsset{}, journal, err
			}
			s.logger.InfoContext(ctx, "audio acquired",
				"profile", wave[winner].profile,
				"size_bytes", asset.Size,
			)
			return asset, journal, nil
		}

		for _, res := range results {
			removeCandidate(res.candidate)
			if res.err != nil && !errors.Is(res.err, context.Canceled) {
				lastErr = res.err
			}
			if acquire.Hard(res.err) {
				s.logger.WarnContext(ctx, "aborting remaining combinations", "error", res.err)
				return acquire.AudioAsset{}, journal, res.err
			}
		}

		if start+s.cfg.Concurrency < len(combos) {
			if err := sleepContext(ctx, s.delay()); err != nil {
				return acquire.AudioAsset{}, journal, err
			}
		}
	}

	if s.fallback != nil {
		asset, attempt, err := s.runFallback(ctx, ref, dest)
		journal = append(journal, attempt)
		if err == nil {
			return asset, journal, nil
		}
		if acquire.Hard(err) {
			return acquire.AudioAsset{}, journal, err
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("no combinations attempted")
	}
	return acquire.AudioAsset{}, journal, fmt.Errorf("media-download: exhausted %d client combinations: %w", len(combos), lastErr)
}

// runWave runs one wave of attempts. With concurrency 1 this is a
// plain sequential call; otherwise attempts run together and the
// first success cancels its in-flight siblings. Preference among
// multiple successes follows configured order, not finish order.
func (s *Strategy) runWave(ctx context.Context, ref acquire.VideoRef, dest Destination, wave []combo, offset int) []attemptResult {
	if len(wave) == 1 {
		return []attemptResult{s.attempt(ctx, ref, dest, wave[0], offset)}
	}

	waveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]attemptResult, len(wave))
	var g errgroup.Group
	for i, cb := range wave {
		g.Go(func() error {
			results[i] = s.attempt(waveCtx, ref, dest, cb, offset+i)
			if results[i].err == nil {
				cancel()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.WarnContext(ctx, "wave error", "error", err)
	}
	return results
}

func (s *Strategy) attempt(ctx context.Context, ref acquire.VideoRef, dest Destination, cb combo, seq int) attemptResult {
	template, candidate := candidatePaths(dest, seq)
	started := time.Now()

	s.logger.DebugContext(ctx, "download attempt",
		"profile", cb.profile,
		"attempt", seq+1,
	)

	attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.AttemptTimeout)
	defer cancel()

	err := s.downloader.Download(attemptCtx, ytdlp.Request{
		URL:         ref.WatchURL(),
		OutputPath:  template,
		Profile:     cb.profile,
		UserAgent:   cb.userAgent,
		CookiesFile: s.cfg.CookiesFile,
		ProxyURL:    s.cfg.ProxyURL,
	})
	if err == nil {
		err = verifyCandidate(candidate)
	}
	if err != nil {
		removeCandidate(candidate)
		err = classifyAttempt(err)
	}

	elapsed := time.Since(started)
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return attemptResult{
		attempt: acquire.Attempt{
			Strategy:  strategyPrimary,
			Profile:   cb.profile,
			UserAgent: cb.userAgent,
			StartedAt: started,
			Elapsed:   elapsed,
			Outcome:   outcomeFor(err),
			Detail:    detail,
		},
		err:       err,
		candidate: candidate,
	}
}

// runFallback makes the single generic attempt and normalizes its
// output to the target MP3.
func (s *Strategy) runFallback(ctx context.Context, ref acquire.VideoRef, dest Destination) (acquire.AudioAsset, acquire.Attempt, error) {
	started := time.Now()
	record := func(err error) acquire.Attempt {
		detail := ""
		if err != nil {
			detail = err.Error()
		}
		return acquire.Attempt{
			Strategy:  strategyFallback,
			StartedAt: started,
			Elapsed:   time.Since(started),
			Outcome:   outcomeFor(err),
			Detail:    detail,
		}
	}

	s.logger.DebugContext(ctx, "generic fallback attempt")
	raw, err := s.fallback.Fetch(ctx, ref, dest.Dir)
	if err != nil {
		return acquire.AudioAsset{}, record(err), err
	}

	if strings.EqualFold(filepath.Ext(raw.Path), ".mp3") {
		asset, err := s.promote(raw.Path, dest.FinalPath)
		return asset, record(err), err
	}
	if s.transcoder == nil {
		err := fmt.Errorf("fallback produced %s and no transcoder is configured", filepath.Ext(raw.Path))
		os.Remove(raw.Path)
		return acquire.AudioAsset{}, record(err), err
	}

	err = s.transcoder.TranscodeToMP3(ctx, raw.Path, dest.FinalPath)
	os.Remove(raw.Path)
	if err != nil {
		os.Remove(dest.FinalPath)
		return acquire.AudioAsset{}, record(err), err
	}
	asset, err := verifyFinal(dest.FinalPath)
	if err == nil {
		s.logger.InfoContext(ctx, "audio acquired via fallback", "size_bytes", asset.Size)
	}
	return asset, record(err), err
}

// promote renames the winning candidate to the deterministic final
// name and verifies the post-condition.
func (s *Strategy) promote(candidate, finalPath string) (acquire.AudioAsset, error) {
	if candidate != finalPath {
		if err := os.Rename(candidate, finalPath); err != nil {
			removeCandidate(candidate)
			return acquire.AudioAsset{}, fmt.Errorf("promote candidate: %w", err)
		}
	}
	asset, err := verifyFinal(finalPath)
	if err != nil {
		os.Remove(finalPath)
	}
	return asset, err
}

func verifyCandidate(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("tool reported success but produced no audio at %s", filepath.Base(path))
	}
	if info.Size() == 0 {
		return fmt.Errorf("tool produced an empty file at %s", filepath.Base(path))
	}
	return nil
}

func verifyFinal(path string) (acquire.AudioAsset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return acquire.AudioAsset{}, fmt.Errorf("final asset missing: %w", err)
	}
	if info.Size() == 0 {
		return acquire.AudioAsset{}, errors.New("final asset is empty")
	}
	return acquire.AudioAsset{Path: path, Size: info.Size()}, nil
}

// candidatePaths derives the per-attempt output template and the MP3
// path that template resolves to once the tool substitutes the
// extension.
func candidatePaths(dest Destination, seq int) (template, mp3Path string) {
	base := strings.TrimSuffix(filepath.Base(dest.FinalPath), filepath.Ext(dest.FinalPath))
	stem := filepath.Join(dest.Dir, fmt.Sprintf("%s.cand%d", base, seq))
	return stem + ".%(ext)s", stem + ".mp3"
}

// removeCandidate sweeps every artifact sharing the candidate's stem,
// including partial downloads the tool may have left.
func removeCandidate(mp3Path string) {
	if mp3Path == "" {
		return
	}
	stem := strings.TrimSuffix(mp3Path, filepath.Ext(mp3Path))
	matches, err := filepath.Glob(stem + ".*")
	if err != nil {
		return
	}
	for _, match := range matches {
		os.Remove(match)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
