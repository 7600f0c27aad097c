package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"recap/internal/services/summarize"
)

func newSummarizeCommand(ctx *commandContext) *cobra.Command {
	flags := &acquireFlags{}
	var showAttempts bool
	var save bool

	cmd := &cobra.Command{
		Use:   "summarize <url>",
		Short: "Acquire a transcript and summarize it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, cfg, runErr := runAcquisition(ctx, cmd, args[0], flags)
			out := cmd.OutOrStdout()

			if showAttempts && len(result.Attempts) > 0 {
				fmt.Fprintln(out, renderAttempts(result.Attempts))
			}
			if runErr != nil {
				return failureError(result, runErr)
			}

			summarizer, err := summarize.NewService(cfg.Summarize.Binary, cfg.Summarize.Args)
			if err != nil {
				return err
			}
			sctx, cancel := context.WithTimeout(cmd.Context(), cfg.SummarizeTimeout())
			defer cancel()
			summary, err := summarizer.Summarize(sctx, result.Transcript.Text, result.Ref.Title)
			if err != nil {
				return fmt.Errorf("summarize transcript: %w", err)
			}

			document := fmt.Sprintf("# %s\n\n%s", videoHeading(result.Ref.Title, result.Ref.VideoID), summary)
			rendered, err := renderMarkdown(document)
			if err != nil {
				// Rendering problems never discard the summary.
				rendered = document
			}
			fmt.Fprintln(out, rendered)

			if save {
				stem := sanitizeFilename(result.Ref.Title, result.Ref.VideoID)
				transcriptPath, err := saveArtifact(cfg.Paths.OutputDir, stem, "transcript", result.Transcript.Text)
				if err != nil {
					return err
				}
				summaryPath, err := saveArtifact(cfg.Paths.OutputDir, stem, "summary", summary)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Saved transcript to %s\n", transcriptPath)
				fmt.Fprintf(cmd.ErrOrStderr(), "Saved summary to %s\n", summaryPath)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&showAttempts, "attempts", false, "Print the acquisition attempt table")
	cmd.Flags().BoolVar(&save, "save", false, "Write the transcript and summary to the output directory")
	return cmd
}
