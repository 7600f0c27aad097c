package main

import (
	"strings"

	"github.com/spf13/cobra"

	"recap/internal/config"
	"recap/internal/pipeline"
)

// acquireFlags are the pipeline knobs shared by the transcript and
// summarize commands.
type acquireFlags struct {
	subs   bool
	noSubs bool
	model  string
}

func (f *acquireFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.subs, "subs", true, "Try existing caption tracks before downloading audio")
	cmd.Flags().BoolVar(&f.noSubs, "no-subs", false, "Skip caption tracks and go straight to audio download")
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "Transcription model size override (tiny, base, small)")
}

// preferSubtitles resolves the flag pair against the configured
// default. An explicit --subs wins over config; --no-subs wins over
// everything.
func (f *acquireFlags) preferSubtitles(cmd *cobra.Command, cfg *config.Config) bool {
	prefer := cfg.Acquire.PreferSubtitles
	if cmd.Flags().Changed("subs") {
		prefer = f.subs
	}
	if f.noSubs {
		prefer = false
	}
	return prefer
}

// apply folds the model override into cfg, re-running validation so an
// unrecognized size fails before any work starts.
func (f *acquireFlags) apply(cfg *config.Config) error {
	model := strings.TrimSpace(f.model)
	if model == "" {
		return nil
	}
	cfg.Transcribe.ModelSize = model
	return cfg.Validate()
}

// runAcquisition builds the pipeline from config and drives one URL
// through it. The Result is returned even on failure so callers can
// show the attempt journal.
func runAcquisition(cctx *commandContext, cmd *cobra.Command, rawURL string, flags *acquireFlags) (pipeline.Result, *config.Config, error) {
	cfg, err := cctx.ensureConfig()
	if err != nil {
		return pipeline.Result{}, nil, err
	}
	if err := flags.apply(cfg); err != nil {
		return pipeline.Result{}, nil, err
	}
	logger, err := cctx.ensureLogger()
	if err != nil {
		return pipeline.Result{}, nil, err
	}
	orch, err := buildOrchestrator(cfg, logger)
	if err != nil {
		return pipeline.Result{}, nil, err
	}
	result, runErr := orch.Run(cmd.Context(), pipeline.Request{
		URL:             rawURL,
		PreferSubtitles: flags.preferSubtitles(cmd, cfg),
	})
	return result, cfg, runErr
}
