package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"slidecue/internal/runstore"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the history of processed lectures",
	}
	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	return runsCmd
}

func withStore(cmd *cobra.Command, ctx *commandContext, fn func(*runstore.Store) error) error {
	store, err := ctx.openStore(cmd.Context())
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("run history is disabled (set [store] enabled = true)")
	}
	defer store.Close()
	return fn(store)
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, ctx, func(store *runstore.Store) error {
				runs, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, runs)
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, r := range runs {
					rows = append(rows, []string{
						r.ID,
						r.CreatedAt.Local().Format("2006-01-02 15:04"),
						string(r.Status),
						r.VideoPath,
						strconv.Itoa(r.PageCount),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Started", "Status", "Video", "Pages"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show one run and its slide transitions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, ctx, func(store *runstore.Store) error {
				run, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, run)
				}
				printRun(cmd, run)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON")
	return cmd
}

func printRun(cmd *cobra.Command, run *runstore.Run) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Status:   %s\n", run.Status)
	fmt.Fprintf(out, "Video:    %s\n", run.VideoPath)
	fmt.Fprintf(out, "Deck:     %s\n", run.DeckPath)
	fmt.Fprintf(out, "Started:  %s\n", run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if elapsed := run.Elapsed(); elapsed > 0 {
		fmt.Fprintf(out, "Elapsed:  %s\n", elapsed.Round(1e9))
	}
	if run.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:    %s\n", run.ErrorMessage)
	}
	if run.MergedPath != "" {
		fmt.Fprintf(out, "Merged:   %s\n", run.MergedPath)
	}
	if run.ChaptersPath != "" {
		fmt.Fprintf(out, "Chapters: %s\n", run.ChaptersPath)
	}
	if len(run.Transitions) == 0 {
		return
	}
	rows := make([][]string, 0, len(run.Transitions))
	for _, t := range run.Transitions {
		rows = append(rows, []string{
			strconv.Itoa(t.Ordinal),
			strconv.Itoa(t.SlideNumber),
			strconv.FormatInt(t.FrameNumber, 10),
			clock(t.Timestamp),
			t.Reason,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Slide", "Frame", "Time", "Reason"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft},
	))
}
