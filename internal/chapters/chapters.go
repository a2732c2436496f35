package chapters

import (
	"bufio"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"slidecue/internal/logging"
)

// lastChapterSpan is the length given to the final chapter when the video
// duration is unknown or does not extend past its start.
const lastChapterSpan = time.Second

// Start marks the first frame a slide is shown.
type Start struct {
	SlideNumber int
	Time        time.Duration
}

// Chapter is one titled interval of the video.
type Chapter struct {
	Title string
	Start time.Duration
	End   time.Duration
}

// Build orders starts by time and turns them into contiguous chapters. Each
// chapter ends where the next begins; the last ends at duration, or one second
// after its start when duration does not reach past it.
func Build(starts []Start, duration time.Duration) []Chapter {
	if len(starts) == 0 {
		return nil
	}
	sorted := slices.Clone(starts)
	slices.SortStableFunc(sorted, func(a, b Start) int {
		return cmp.Compare(a.Time, b.Time)
	})

	chapters := make([]Chapter, 0, len(sorted))
	for i, s := range sorted {
		end := s.Time + lastChapterSpan
		if i+1 < len(sorted) {
			end = sorted[i+1].Time
		} else if duration > s.Time {
			end = duration
		}
		if end <= s.Time {
			continue
		}
		chapters = append(chapters, Chapter{
			Title: fmt.Sprintf("Slide %d", s.SlideNumber),
			Start: s.Time,
			End:   end,
		})
	}
	return chapters
}

// WriteMetadata writes chapters in the FFMETADATA1 format with millisecond
// timestamps.
func WriteMetadata(w io.Writer, chapters []Chapter) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, ";FFMETADATA1")
	for _, ch := range chapters {
		fmt.Fprintln(bw)
		fmt.Fprintln(bw, "[CHAPTER]")
		fmt.Fprintln(bw, "TIMEBASE=1/1000")
		fmt.Fprintf(bw, "START=%d\n", ch.Start.Milliseconds())
		fmt.Fprintf(bw, "END=%d\n", ch.End.Milliseconds())
		fmt.Fprintf(bw, "title=%s\n", escapeMetadata(ch.Title))
	}
	return bw.Flush()
}

var metadataEscaper = strings.NewReplacer(`\`, `\\`, "=", `\=`, ";", `\;`, "#", `\#`, "\n", `\`+"\n")

func escapeMetadata(value string) string {
	return metadataEscaper.Replace(value)
}

// OutputPath returns the chaptered copy's path for video inside dir.
func OutputPath(dir, video string) string {
	ext := filepath.Ext(video)
	stem := strings.TrimSuffix(filepath.Base(video), ext)
	return filepath.Join(dir, stem+"_chapters"+ext)
}

type commandRunner func(ctx context.Context, name string, args ...string) error

// Embedder muxes chapter metadata into a copy of a video with ffmpeg.
type Embedder struct {
	ffmpegBinary  string
	workDir       string
	commandRunner commandRunner
	logger        *slog.Logger
}

// NewEmbedder returns an Embedder writing temporary metadata into workDir.
func NewEmbedder(ffmpegBinary, workDir string, logger *slog.Logger) *Embedder {
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	return &Embedder{
		ffmpegBinary: ffmpegBinary,
		workDir:      workDir,
		logger:       logging.NewComponentLogger(logger, "chapters"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (e *Embedder) WithCommandRunner(runner commandRunner) {
	e.commandRunner = runner
}

// Embed copies video to out with chapters attached. Streams are copied
// without re-encoding.
func (e *Embedder) Embed(ctx context.Context, video string, chapters []Chapter, out string) error {
	if len(chapters) == 0 {
		return errors.New("embed chapters: no chapters")
	}
	if video == "" || out == "" {
		return errors.New("embed chapters: video and output paths required")
	}

	meta, err := os.CreateTemp(e.workDir, "chapters-*.txt")
	if err != nil {
		return fmt.Errorf("embed chapters: create metadata: %w", err)
	}
	defer os.Remove(meta.Name())
	if err := WriteMetadata(meta, chapters); err != nil {
		meta.Close()
		return fmt.Errorf("embed chapters: write metadata: %w", err)
	}
	if err := meta.Close(); err != nil {
		return fmt.Errorf("embed chapters: close metadata: %w", err)
	}

	args := []string{
		"-hide_banner", "-loglevel", "error", "-nostdin",
		"-i", video,
		"-i", meta.Name(),
		"-map_metadata", "1",
		"-map_chapters", "1",
		"-map", "0",
		"-codec", "copy",
		"-y", out,
	}
	e.logger.Info("embedding chapters",
		logging.String("video", video),
		logging.String("output", out),
		logging.Int("chapters", len(chapters)),
	)
	if err := e.run(ctx, e.ffmpegBinary, args...); err != nil {
		return fmt.Errorf("embed chapters: %w", err)
	}
	return nil
}

func (e *Embedder) run(ctx context.Context, name string, args ...string) error {
	if e.commandRunner != nil {
		return e.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
