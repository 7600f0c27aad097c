package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newProfilesCommand prints the attempt order the media strategy will
// follow: the client-profile × user-agent cross product, profiles
// outer, user agents inner.
func newProfilesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "Show the configured download attempt order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(cfg.Acquire.Profiles)*len(cfg.Acquire.UserAgents))
			seq := 0
			for _, profile := range cfg.Acquire.Profiles {
				for _, ua := range cfg.Acquire.UserAgents {
					seq++
					rows = append(rows, []string{
						fmt.Sprintf("%d", seq),
						profile,
						truncate(ua, 64),
					})
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"#", "Profile", "User Agent"}, rows, 0))
			fmt.Fprintf(out, "%d combinations, concurrency %d, per-attempt timeout %s\n",
				len(rows), cfg.Acquire.AttemptConcurrency, cfg.AttemptTimeout())
			return nil
		},
	}
}
