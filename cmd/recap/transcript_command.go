package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTranscriptCommand(ctx *commandContext) *cobra.Command {
	flags := &acquireFlags{}
	var showAttempts bool
	var save bool

	cmd := &cobra.Command{
		Use:   "transcript <url>",
		Short: "Acquire a transcript for a video",
		Long: "Acquire a transcript for a video through the strategy chain:\n" +
			"existing caption tracks, multi-client audio download, the\n" +
			"conversion-API fallback, and local speech-to-text.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, cfg, runErr := runAcquisition(ctx, cmd, args[0], flags)
			out := cmd.OutOrStdout()

			if showAttempts && len(result.Attempts) > 0 {
				fmt.Fprintln(out, renderAttempts(result.Attempts))
			}
			if runErr != nil {
				return failureError(result, runErr)
			}

			fmt.Fprintln(out, result.Transcript.Text)

			if save {
				stem := sanitizeFilename(result.Ref.Title, result.Ref.VideoID)
				path, err := saveArtifact(cfg.Paths.OutputDir, stem, "transcript", result.Transcript.Text)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Saved transcript to %s\n", path)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&showAttempts, "attempts", false, "Print the acquisition attempt table")
	cmd.Flags().BoolVar(&save, "save", false, "Write the transcript to the output directory")
	return cmd
}
