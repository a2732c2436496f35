package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"slidecue/internal/deps"
	"slidecue/internal/preflight"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external tools and directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := preflight.CheckSystemDeps(cmd.Context(), cfg)
			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				state := "ok"
				switch {
				case s.Available:
				case s.Optional:
					state = "optional, missing"
				default:
					state = "missing"
				}
				detail := s.Version
				if detail == "" {
					detail = s.Detail
				}
				rows = append(rows, []string{s.Name, s.Command, state, detail})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Tool", "Command", "State", "Detail"}, rows, nil))

			checks := preflight.RunAll(cmd.Context(), cfg)
			checkRows := make([][]string, 0, len(checks))
			for _, c := range checks {
				checkRows = append(checkRows, []string{c.Name, yesNo(c.Passed), c.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Passed", "Detail"}, checkRows, nil))

			if deps.AnyMissing(statuses) || len(preflight.Failed(checks)) > 0 {
				return errors.New("some requirements are not met")
			}
			return nil
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
