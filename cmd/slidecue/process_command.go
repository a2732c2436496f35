package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"slidecue/internal/pipeline"
)

const stdinSource = "-"

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var srtPath string
	var chapters bool
	var outputDir string
	var uploadName string

	cmd := &cobra.Command{
		Use:   "process VIDEO DECK",
		Short: "Detect slides, transcribe, and write slide-aligned subtitles",
		Long: "Runs the full pipeline for one lecture. Pass - as VIDEO to read the\n" +
			"recording from stdin; --name then sets its file name.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
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

			job := pipeline.Job{
				Video:     sourceArg(args[0], uploadName, cmd.InOrStdin()),
				Deck:      pipeline.ExistingFile(args[1]),
				Chapters:  chapters,
				OutputDir: strings.TrimSpace(outputDir),
			}
			if srtPath != "" {
				job.Subtitles = pipeline.ExistingFile(srtPath)
			}

			p := pipeline.NewFromConfig(cfg, store, logger)
			outcome, err := p.Process(cmd.Context(), job)
			if err != nil {
				return describeError(err)
			}
			printOutcome(cmd.OutOrStdout(), outcome)
			return nil
		},
	}

	cmd.Flags().StringVar(&srtPath, "srt", "", "Use this subtitle file instead of transcribing")
	cmd.Flags().BoolVar(&chapters, "chapters", false, "Also write a copy of the video with slide chapters")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for outputs (defaults to paths.output_dir)")
	cmd.Flags().StringVar(&uploadName, "name", "lecture.mp4", "File name for a video read from stdin")
	return cmd
}

func sourceArg(arg, uploadName string, stdin io.Reader) pipeline.Source {
	if arg == stdinSource {
		return pipeline.Upload(uploadName, stdin)
	}
	return pipeline.ExistingFile(arg)
}

func printOutcome(out io.Writer, outcome *pipeline.Outcome) {
	fmt.Fprintf(out, "Run %s\n", outcome.RunID)
	if outcome.Result != nil {
		fmt.Fprintf(out, "  slides found: %d of %d\n", len(outcome.Result.Transitions), outcome.Result.PageCount)
	}
	fmt.Fprintf(out, "  subtitles:    %s\n", outcome.SubtitlePath)
	fmt.Fprintf(out, "  merged:       %s (%d blocks)\n", outcome.MergedPath, outcome.Cues)
	if outcome.ChaptersPath != "" {
		fmt.Fprintf(out, "  chapters:     %s\n", outcome.ChaptersPath)
	}
	for _, w := range outcome.Warnings {
		fmt.Fprintf(out, "  warning:      %s\n", w)
	}
}
