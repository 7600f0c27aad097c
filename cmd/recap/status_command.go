package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"recap/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check binaries, directories, and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			binaries := preflight.CheckSystemDeps(cfg)
			binaryRows := make([][]string, 0, len(binaries))
			allRequired := true
			for _, status := range binaries {
				mark := statusMark(status.Available)
				detail := status.Detail
				if status.Available {
					detail = status.Command
				}
				role := "required"
				if status.Optional {
					role = "optional"
				} else if !status.Available {
					allRequired = false
				}
				binaryRows = append(binaryRows, []string{mark, status.Name, role, detail, status.Description})
			}
			fmt.Fprintln(out, renderTable([]string{"", "Binary", "Role", "Detail", "Purpose"}, binaryRows))

			checks := preflight.RunAll(cfg)
			checkRows := make([][]string, 0, len(checks))
			for _, result := range checks {
				if !result.Passed {
					allRequired = false
				}
				checkRows = append(checkRows, []string{statusMark(result.Passed), result.Name, result.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"", "Check", "Detail"}, checkRows))

			if !allRequired {
				return fmt.Errorf("preflight found problems; fix the failing entries above")
			}
			fmt.Fprintln(out, "All preflight checks passed")
			return nil
		},
	}
}

func statusMark(ok bool) string {
	if ok {
		return "ok"
	}
	return "fail"
}
