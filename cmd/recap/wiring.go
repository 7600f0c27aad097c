package main

import (
	"fmt"
	"log/slog"
	"time"

	"recap/internal/captions"
	"recap/internal/config"
	"recap/internal/mediafetch"
	"recap/internal/pipeline"
	"recap/internal/services/convertapi"
	"recap/internal/services/ffmpeg"
	"recap/internal/services/whisper"
	"recap/internal/services/ytdlp"
	"recap/internal/videoref"
	"recap/internal/workdir"
)

// buildOrchestrator assembles the acquisition pipeline from config.
// Every strategy gets its production collaborator; tests exercise the
// internal packages directly with stubs instead of this wiring.
func buildOrchestrator(cfg *config.Config, logger *slog.Logger) (*pipeline.Orchestrator, error) {
	dir, err := workdir.New(cfg.Paths.WorkDir, logger)
	if err != nil {
		return nil, fmt.Errorf("working directory: %w", err)
	}

	capClient := captions.NewClient(captions.WithUserAgent(cfg.Acquire.UserAgents[0]))
	subtitles := captions.NewStrategy(capClient, cfg.Subtitles.Languages, cfg.Subtitles.AllowAnyLanguage, logger)

	downloader, err := ytdlp.New(cfg.YtdlpBinary())
	if err != nil {
		return nil, fmt.Errorf("downloader: %w", err)
	}
	transcoder, err := ffmpeg.NewService(cfg.FFmpegBinary())
	if err != nil {
		return nil, fmt.Errorf("transcoder: %w", err)
	}
	media, err := mediafetch.NewStrategy(downloader, mediafetch.Config{
		Profiles:       cfg.Acquire.Profiles,
		UserAgents:     cfg.Acquire.UserAgents,
		CookiesFile:    cfg.Acquire.CookiesFile,
		ProxyURL:       cfg.Acquire.ProxyURL,
		AttemptTimeout: cfg.AttemptTimeout(),
		Concurrency:    cfg.Acquire.AttemptConcurrency,
	}, logger,
		mediafetch.WithFallback(mediafetch.NewGenericFetcher(30*time.Second)),
		mediafetch.WithTranscoder(transcoder),
	)
	if err != nil {
		return nil, fmt.Errorf("media strategy: %w", err)
	}

	transcriber, err := whisper.NewService(cfg.Transcribe.Binary, cfg.Transcribe.ModelSize, transcoder)
	if err != nil {
		return nil, fmt.Errorf("transcriber: %w", err)
	}

	opts := []pipeline.Option{
		pipeline.WithMetadata(videoref.NewMetadataClient()),
	}
	if api := convertapi.NewClient(cfg.ConvertAPI.BaseURL, cfg.ConvertAPI.APIKey); api.Enabled() {
		opts = append(opts, pipeline.WithAPI(api))
	}

	return pipeline.New(subtitles, media, transcriber, dir, pipeline.Config{
		OverallTimeout:    cfg.OverallTimeout(),
		TranscribeTimeout: cfg.TranscribeTimeout(),
	}, logger, opts...)
}
