package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"slidecue/internal/pipeline"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "batch MANIFEST",
		Short: "Process every lecture listed in a TOML manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			jobs, err := pipeline.LoadManifest(args[0])
			if err != nil {
				return err
			}
			store, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}

			items := pipeline.NewFromConfig(cfg, store, logger).RunBatch(cmd.Context(), jobs)
			if err := cmd.Context().Err(); err != nil {
				return err
			}

			rows := make([][]string, 0, len(items))
			for i, item := range items {
				status, detail := "ok", ""
				if item.Outcome != nil {
					detail = item.Outcome.MergedPath
				}
				if item.Err != nil {
					status, detail = "failed", pipeline.Describe(item.Err)
				}
				rows = append(rows, []string{fmt.Sprint(i + 1), item.Job.Video.Name(), status, detail})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"#", "Video", "Status", "Detail"}, rows, []columnAlignment{alignRight}))

			if failed := pipeline.Failures(items); failed > 0 {
				return fmt.Errorf("%d of %d jobs failed", failed, len(items))
			}
			return nil
		},
	}
}
