package main

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"slidecue/internal/debugviz"
	"slidecue/internal/services"
	"slidecue/internal/slides"
)

type regionView struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type transitionView struct {
	Ordinal    int     `json:"ordinal"`
	Slide      int     `json:"slide"`
	Frame      int64   `json:"frame"`
	Seconds    float64 `json:"seconds"`
	Timestamp  string  `json:"timestamp"`
	Distance   int     `json:"distance"`
	Similarity float64 `json:"similarity,omitempty"`
	Reason     string  `json:"reason"`
}

type detectView struct {
	Video         string           `json:"video"`
	Deck          string           `json:"deck"`
	FrameRate     float64          `json:"frame_rate"`
	Duration      float64          `json:"duration_seconds"`
	Pages         int              `json:"pages"`
	AnchorFrame   int64            `json:"anchor_frame"`
	AnchorSeconds float64          `json:"anchor_seconds"`
	Region        regionView       `json:"region"`
	Transitions   []transitionView `json:"transitions"`
	Stats         slides.Stats     `json:"stats"`
	DebugFiles    []string         `json:"debug_files,omitempty"`
}

func newDetectView(req slides.Request, res *slides.Result) detectView {
	view := detectView{
		Video:         req.VideoPath,
		Deck:          req.DeckPath,
		FrameRate:     res.FrameRate,
		Duration:      res.Duration.Seconds(),
		Pages:         res.PageCount,
		AnchorFrame:   res.AnchorFrame,
		AnchorSeconds: res.AnchorTime.Seconds(),
		Region:        newRegionView(res.Region),
		Transitions:   make([]transitionView, 0, len(res.Transitions)),
		Stats:         res.Stats,
	}
	for _, t := range res.Transitions {
		view.Transitions = append(view.Transitions, transitionView{
			Ordinal:    t.Ordinal,
			Slide:      t.SlideNumber(),
			Frame:      t.FrameNumber,
			Seconds:    t.Timestamp.Seconds(),
			Timestamp:  clock(t.Timestamp),
			Distance:   t.Distance,
			Similarity: t.Similarity,
			Reason:     string(t.Reason),
		})
	}
	return view
}

func newRegionView(r image.Rectangle) regionView {
	return regionView{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

func newDetectCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var debugDir string

	cmd := &cobra.Command{
		Use:   "detect VIDEO DECK",
		Short: "Find when each slide of DECK first appears in VIDEO",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			deps := slides.NewDependencies(cfg, logger)
			var viz *debugviz.Writer
			if dir := strings.TrimSpace(debugDir); dir != "" {
				viz, err = debugviz.New(dir, logger)
				if err != nil {
					return err
				}
				deps.Observer = viz
			}

			req := slides.Request{VideoPath: args[0], DeckPath: args[1]}
			detector := slides.NewDetector(slides.ConfigFromSettings(cfg), deps)
			runCtx := services.WithStage(cmd.Context(), "detect")
			res, err := detector.Detect(runCtx, req)
			if err != nil {
				return describeError(err)
			}

			view := newDetectView(req, res)
			if viz != nil {
				view.DebugFiles = viz.Files()
			}
			if jsonOutput || !isTerminal(cmd.OutOrStdout()) {
				return writeJSON(cmd, view)
			}
			printDetect(cmd, view)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON even on a terminal")
	cmd.Flags().StringVar(&debugDir, "debug-dir", "", "Write annotated frames for the anchor and every transition to this directory")
	return cmd
}

func printDetect(cmd *cobra.Command, view detectView) {
	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(view.Transitions))
	for _, t := range view.Transitions {
		similarity := "-"
		if t.Similarity > 0 {
			similarity = strconv.FormatFloat(t.Similarity, 'f', 2, 64)
		}
		rows = append(rows, []string{
			strconv.Itoa(t.Ordinal),
			strconv.Itoa(t.Slide),
			strconv.FormatInt(t.Frame, 10),
			t.Timestamp,
			strconv.Itoa(t.Distance),
			similarity,
			t.Reason,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Slide", "Frame", "Time", "Distance", "Similarity", "Reason"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
	))
	fmt.Fprintf(out, "%d of %d slides found; first slide at frame %d; %d frames sampled, %d OCR calls\n",
		len(view.Transitions), view.Pages, view.AnchorFrame, view.Stats.Samples, view.Stats.OCRCalls)
	for _, f := range view.DebugFiles {
		fmt.Fprintf(out, "debug: %s\n", f)
	}
}
