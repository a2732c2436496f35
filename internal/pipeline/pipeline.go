package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"slidecue/internal/chapters"
	"slidecue/internal/fileutil"
	"slidecue/internal/logging"
	"slidecue/internal/metrics"
	"slidecue/internal/preflight"
	"slidecue/internal/runstore"
	"slidecue/internal/services"
	"slidecue/internal/services/whisperx"
	"slidecue/internal/slides"
	"slidecue/internal/subtitles"
	"slidecue/internal/video"
)

// Stage names used in logs, errors, and metrics.
const (
	StagePreflight  = "preflight"
	StageInput      = "input"
	StageDetect     = "detect"
	StageTranscribe = "transcribe"
	StageMerge      = "merge"
	StageChapters   = "chapters"
)

// Detector finds slide transitions in a recording.
type Detector interface {
	Detect(ctx context.Context, req slides.Request) (*slides.Result, error)
}

// Transcriber produces an SRT transcript for a recording.
type Transcriber interface {
	Transcribe(ctx context.Context, video, workDir string) (whisperx.Result, error)
}

// ChapterEmbedder writes a chaptered copy of a recording.
type ChapterEmbedder interface {
	Embed(ctx context.Context, video string, chs []chapters.Chapter, out string) error
}

// RunStore persists run history.
type RunStore interface {
	Begin(ctx context.Context, videoPath, deckPath string) (*runstore.Run, error)
	Record(ctx context.Context, run *runstore.Run) error
}

// Notifier announces finished runs and batches.
type Notifier interface {
	RunCompleted(ctx context.Context, title string, found, pages int, mergedPath string) error
	RunFailed(ctx context.Context, title, reason string) error
	BatchCompleted(ctx context.Context, processed, failed int, elapsed time.Duration) error
}

// Dependencies are the collaborators a Pipeline drives. Only Detector is
// required.
type Dependencies struct {
	Detector    Detector
	Transcriber Transcriber
	Chapters    ChapterEmbedder
	Store       RunStore
	Metrics     *metrics.Recorder
	Notifier    Notifier
	Preflight   func(ctx context.Context) []preflight.Result
	Logger      *slog.Logger
}

// Settings control where a pipeline writes and which optional stages run.
type Settings struct {
	WorkDir         string
	OutputDir       string
	Transcribe      bool
	Chapters        bool
	MetricsTextfile string
	KeepWorkDir     bool
}

// Job is one lecture to process.
type Job struct {
	Video Source
	Deck  Source
	// Subtitles, when set, is used instead of transcribing the video.
	Subtitles Source
	// Chapters requests a chaptered copy even when disabled in Settings.
	Chapters  bool
	OutputDir string
}

// Outcome describes the files a processed job produced.
type Outcome struct {
	RunID        string
	Result       *slides.Result
	SubtitlePath string
	MergedPath   string
	ChaptersPath string
	Cues         int
	Warnings     []string
}

// Pipeline runs detection, transcription, merging, and chapter embedding for
// one job at a time per output stem.
type Pipeline struct {
	deps     Dependencies
	settings Settings
	logger   *slog.Logger
}

// New returns a Pipeline.
func New(deps Dependencies, settings Settings) *Pipeline {
	return &Pipeline{
		deps:     deps,
		settings: settings,
		logger:   logging.NewComponentLogger(deps.Logger, "pipeline"),
	}
}

// Process runs one job. Outputs are written under the job's output directory
// (or the pipeline default) named after the video's stem. A second job for
// the same stem fails while the first holds the output lock.
func (p *Pipeline) Process(ctx context.Context, job Job) (*Outcome, error) {
	if p.deps.Detector == nil {
		return nil, services.Wrap(services.ErrConfiguration, StageDetect, "", "no detector configured", nil)
	}
	if job.Video.IsZero() || job.Deck.IsZero() {
		return nil, services.Wrap(services.ErrValidation, StageInput, "", "video and deck are required", nil)
	}

	outputDir := strings.TrimSpace(job.OutputDir)
	if outputDir == "" {
		outputDir = p.settings.OutputDir
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, StageInput, "output dir", outputDir, err)
	}
	stem := job.Video.Stem()

	lock := flock.New(filepath.Join(outputDir, "."+stem+".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, StageInput, "lock", stem, err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrTransient, StageInput, "lock", fmt.Sprintf("another job is writing outputs for %q", stem), nil)
	}
	defer func() { _ = lock.Unlock() }()

	run := p.begin(ctx, job)
	ctx = services.WithRunID(ctx, run.ID)
	ctx = services.WithInput(ctx, stem)
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("video", job.Video.Name()),
		logging.String("deck", job.Deck.Name()),
	)

	workDir := filepath.Join(p.settings.WorkDir, run.ID)
	if !p.settings.KeepWorkDir {
		defer os.RemoveAll(workDir)
	}

	started := time.Now()
	outcome := &Outcome{RunID: run.ID}
	err = p.execute(ctx, job, stem, workDir, outputDir, run, outcome, logger)
	p.finish(ctx, run, outcome, err, logger)

	if err != nil {
		logger.Error("job failed",
			logging.String(logging.FieldEventType, "job_failed"),
			logging.String("reason", Describe(err)),
			logging.Error(err),
		)
		return outcome, err
	}
	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.Int("transitions", len(outcome.Result.Transitions)),
		logging.String("merged", outcome.MergedPath),
		logging.Duration("elapsed", time.Since(started)),
	)
	return outcome, nil
}

func (p *Pipeline) execute(ctx context.Context, job Job, stem, workDir, outputDir string, run *runstore.Run, outcome *Outcome, logger *slog.Logger) error {
	if p.deps.Preflight != nil {
		err := p.stage(ctx, StagePreflight, func(ctx context.Context) error {
			if failed := preflight.Failed(p.deps.Preflight(ctx)); len(failed) > 0 {
				details := make([]string, 0, len(failed))
				for _, f := range failed {
					details = append(details, f.Name+": "+f.Detail)
				}
				return services.Wrap(services.ErrConfiguration, StagePreflight, "", strings.Join(details, "; "), nil)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	var videoPath, deckPath, srtPath string
	err := p.stage(ctx, StageInput, func(context.Context) error {
		var err error
		if videoPath, err = job.Video.Resolve(workDir); err != nil {
			return services.Wrap(services.ErrNotFound, StageInput, "video", job.Video.Name(), err)
		}
		if deckPath, err = job.Deck.Resolve(workDir); err != nil {
			return services.Wrap(services.ErrNotFound, StageInput, "deck", job.Deck.Name(), err)
		}
		if !job.Subtitles.IsZero() {
			if srtPath, err = job.Subtitles.Resolve(workDir); err != nil {
				return services.Wrap(services.ErrNotFound, StageInput, "subtitles", job.Subtitles.Name(), err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	run.VideoPath, run.DeckPath = videoPath, deckPath

	err = p.stage(ctx, StageDetect, func(ctx context.Context) error {
		result, err := p.deps.Detector.Detect(ctx, slides.Request{VideoPath: videoPath, DeckPath: deckPath})
		if err != nil {
			return classifyDetectError(err)
		}
		outcome.Result = result
		return nil
	})
	if err != nil {
		return err
	}

	if srtPath == "" {
		err = p.stage(ctx, StageTranscribe, func(ctx context.Context) error {
			if !p.settings.Transcribe || p.deps.Transcriber == nil {
				return services.Wrap(services.ErrConfiguration, StageTranscribe, "", "no subtitle file given and transcription is disabled", nil)
			}
			res, err := p.deps.Transcriber.Transcribe(ctx, videoPath, workDir)
			if err != nil {
				return services.Wrap(services.ErrExternalTool, StageTranscribe, "whisperx", "", err)
			}
			kept := filepath.Join(outputDir, stem+".srt")
			if err := fileutil.CopyFile(res.SRTPath, kept); err != nil {
				return services.Wrap(services.ErrTransient, StageTranscribe, "save transcript", kept, err)
			}
			srtPath = kept
			return nil
		})
		if err != nil {
			return err
		}
	}
	outcome.SubtitlePath = srtPath

	err = p.stage(ctx, StageMerge, func(ctx context.Context) error {
		return p.merge(ctx, srtPath, filepath.Join(outputDir, stem+"_merged.srt"), outcome, logger)
	})
	if err != nil {
		return err
	}

	if job.Chapters || p.settings.Chapters {
		err = p.stage(ctx, StageChapters, func(ctx context.Context) error {
			return p.embedChapters(ctx, videoPath, outputDir, outcome)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) merge(ctx context.Context, srtPath, target string, outcome *Outcome, logger *slog.Logger) error {
	f, err := os.Open(srtPath)
	if err != nil {
		return services.Wrap(services.ErrNotFound, StageMerge, "open subtitles", srtPath, err)
	}
	cues, err := subtitles.Parse(f)
	f.Close()
	if err != nil {
		return services.Wrap(services.ErrValidation, StageMerge, "parse subtitles", srtPath, err)
	}

	for _, warning := range subtitles.Validate(cues, outcome.Result.Duration) {
		outcome.Warnings = append(outcome.Warnings, warning)
		logging.WarnWithContext(logging.WithContext(ctx, logger), "subtitle check failed", "subtitle_validation", "merged cues may be misaligned",
			logging.String("check", warning),
		)
	}

	merged := subtitles.MergeBySlides(cues, outcome.Result.Starts())
	if err := fileutil.WriteAtomic(target, func(w io.Writer) error { return subtitles.Format(w, merged) }); err != nil {
		return services.Wrap(services.ErrTransient, StageMerge, "write", target, err)
	}
	outcome.MergedPath = target
	outcome.Cues = len(merged)
	return nil
}

func (p *Pipeline) embedChapters(ctx context.Context, videoPath, outputDir string, outcome *Outcome) error {
	if p.deps.Chapters == nil {
		return services.Wrap(services.ErrConfiguration, StageChapters, "", "no chapter embedder configured", nil)
	}
	starts := make([]chapters.Start, 0, len(outcome.Result.Transitions))
	for _, t := range outcome.Result.Transitions {
		starts = append(starts, chapters.Start{SlideNumber: t.SlideNumber(), Time: t.Timestamp})
	}
	chs := chapters.Build(starts, outcome.Result.Duration)
	if len(chs) == 0 {
		return nil
	}
	out := chapters.OutputPath(outputDir, videoPath)
	if err := p.deps.Chapters.Embed(ctx, videoPath, chs, out); err != nil {
		return services.Wrap(services.ErrExternalTool, StageChapters, "ffmpeg", out, err)
	}
	outcome.ChaptersPath = out
	return nil
}

// stage runs fn with the stage recorded in ctx and its duration observed.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx = services.WithStage(ctx, name)
	started := time.Now()
	err := fn(ctx)
	elapsed := time.Since(started)
	if p.deps.Metrics != nil {
		p.deps.Metrics.ObserveStage(name, elapsed)
	}
	logging.WithContext(ctx, p.logger).Debug("stage finished",
		logging.Duration("elapsed", elapsed),
		logging.Bool("ok", err == nil),
	)
	return err
}

func (p *Pipeline) begin(ctx context.Context, job Job) *runstore.Run {
	if p.deps.Store != nil {
		run, err := p.deps.Store.Begin(ctx, job.Video.Path(), job.Deck.Path())
		if err == nil {
			return run
		}
		logging.WarnWithContext(p.logger, "run store unavailable", "run_store", "run will not appear in history", logging.Error(err))
	}
	return &runstore.Run{
		ID:          uuid.NewString(),
		VideoPath:   job.Video.Path(),
		DeckPath:    job.Deck.Path(),
		Status:      runstore.StatusRunning,
		AnchorFrame: -1,
		CreatedAt:   time.Now().UTC(),
	}
}

// finish records the run outcome and exports metrics. Failures here are
// logged and never replace the job error.
func (p *Pipeline) finish(ctx context.Context, run *runstore.Run, outcome *Outcome, jobErr error, logger *slog.Logger) {
	run.Status = runstore.StatusCompleted
	if jobErr != nil {
		run.Status = services.FailureStatus(jobErr)
		run.ErrorMessage = jobErr.Error()
	}
	run.FinishedAt = time.Now().UTC()
	run.SubtitlePath = outcome.SubtitlePath
	run.MergedPath = outcome.MergedPath
	run.ChaptersPath = outcome.ChaptersPath
	if res := outcome.Result; res != nil {
		run.AnchorFrame = res.AnchorFrame
		run.FrameRate = res.FrameRate
		run.PageCount = res.PageCount
		run.ScannedFrames = int64(res.Stats.ScannedFrames)
		run.OCRCalls = res.Stats.OCRCalls
		run.Transitions = make([]runstore.Transition, 0, len(res.Transitions))
		for _, t := range res.Transitions {
			run.Transitions = append(run.Transitions, runstore.Transition{
				Ordinal:     t.Ordinal,
				SlideNumber: t.SlideNumber(),
				FrameNumber: t.FrameNumber,
				Timestamp:   t.Timestamp,
				Distance:    t.Distance,
				Similarity:  t.Similarity,
				Reason:      string(t.Reason),
			})
		}
	}

	// Recording uses a fresh context so cancelled jobs still land in history.
	recordCtx := context.WithoutCancel(ctx)
	if p.deps.Store != nil {
		if err := p.deps.Store.Record(recordCtx, run); err != nil {
			logging.WarnWithContext(logger, "failed to record run", "run_store", "run history is incomplete", logging.Error(err))
		}
	}
	if m := p.deps.Metrics; m != nil {
		m.ObserveDetection(outcome.Result)
		m.ObserveRun(string(run.Status), run.FinishedAt)
		if err := m.WriteTextfile(p.settings.MetricsTextfile); err != nil {
			logging.WarnWithContext(logger, "failed to export metrics", "metrics_export", "textfile collector sees stale values", logging.Error(err))
		}
	}
	p.notifyRun(recordCtx, run, outcome, jobErr, logger)
}

func (p *Pipeline) notifyRun(ctx context.Context, run *runstore.Run, outcome *Outcome, jobErr error, logger *slog.Logger) {
	if p.deps.Notifier == nil || errors.Is(jobErr, context.Canceled) {
		return
	}
	title := filepath.Base(run.VideoPath)
	var err error
	if jobErr != nil {
		err = p.deps.Notifier.RunFailed(ctx, title, Describe(jobErr))
	} else {
		found := 0
		if outcome.Result != nil {
			found = len(outcome.Result.Transitions)
		}
		err = p.deps.Notifier.RunCompleted(ctx, title, found, run.PageCount, outcome.MergedPath)
	}
	if err != nil {
		logging.WarnWithContext(logger, "failed to send notification", "notification", "run result not announced", logging.Error(err))
	}
}

// classifyDetectError tags detector failures so input problems are rejected
// while tool crashes are reported as failures.
func classifyDetectError(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, video.ErrStreamMetadata):
		return services.Wrap(services.ErrValidation, StageDetect, "open video", "", err)
	case errors.Is(err, slides.ErrFirstSlideNotFound):
		return services.Wrap(services.ErrValidation, StageDetect, "find first slide", "", err)
	case errors.Is(err, slides.ErrRoiNotFound):
		return services.Wrap(services.ErrValidation, StageDetect, "locate slide area", "", err)
	default:
		return services.Wrap(services.ErrExternalTool, StageDetect, "", "", err)
	}
}

// Describe returns the user-facing message for a job error.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, video.ErrStreamMetadata):
		return "video is unreadable or malformed"
	case errors.Is(err, slides.ErrFirstSlideNotFound):
		return "no slides detected"
	case errors.Is(err, slides.ErrRoiNotFound):
		return "slide area not found"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return services.Describe(err)
	}
}
