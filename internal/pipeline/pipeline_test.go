package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"slidecue/internal/chapters"
	"slidecue/internal/config"
	"slidecue/internal/logging"
	"slidecue/internal/metrics"
	"slidecue/internal/pipeline"
	"slidecue/internal/preflight"
	"slidecue/internal/runstore"
	"slidecue/internal/services"
	"slidecue/internal/services/whisperx"
	"slidecue/internal/slides"
	"slidecue/internal/testsupport"
	"slidecue/internal/video"
)

const lectureSRT = `1
00:00:01,000 --> 00:00:02,000
hello

2
00:00:06,000 --> 00:00:07,000
world

3
00:00:11,000 --> 00:00:12,000
bye
`

const mergedSRT = `1
00:00:00,000 --> 00:00:05,000
hello

2
00:00:05,000 --> 00:00:10,000
world

3
00:00:10,000 --> 00:00:12,000
bye
`

type fakeDetector struct {
	mu       sync.Mutex
	requests []slides.Request
	err      error
}

func (f *fakeDetector) Detect(ctx context.Context, req slides.Request) (*slides.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if _, err := os.Stat(req.VideoPath); err != nil {
		return nil, fmt.Errorf("%w: %v", video.ErrStreamMetadata, err)
	}
	return &slides.Result{
		Transitions: []slides.Transition{
			{Ordinal: 1, SlideIndex: 0, FrameNumber: 0, Timestamp: 0, Reason: slides.ReasonDefiniteHash},
			{Ordinal: 2, SlideIndex: 1, FrameNumber: 150, Timestamp: 5 * time.Second, Reason: slides.ReasonDefiniteHash},
			{Ordinal: 3, SlideIndex: 2, FrameNumber: 300, Timestamp: 10 * time.Second, Distance: 3, Similarity: 0.9, Reason: slides.ReasonTextCorroborated},
		},
		AnchorFrame: 0,
		FrameRate:   30,
		Duration:    15 * time.Second,
		PageCount:   3,
		Stats:       slides.Stats{ScannedFrames: 1, Samples: 15, OCRCalls: 4},
	}, nil
}

type fakeTranscriber struct {
	calls int
}

func (f *fakeTranscriber) Transcribe(_ context.Context, videoPath, workDir string) (whisperx.Result, error) {
	f.calls++
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return whisperx.Result{}, err
	}
	srt := filepath.Join(workDir, "transcript.srt")
	if err := os.WriteFile(srt, []byte(lectureSRT), 0o644); err != nil {
		return whisperx.Result{}, err
	}
	return whisperx.Result{SRTPath: srt}, nil
}

type fakeEmbedder struct {
	chapters []chapters.Chapter
	out      string
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string, chs []chapters.Chapter, out string) error {
	f.chapters = chs
	f.out = out
	return os.WriteFile(out, []byte("video"), 0o644)
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (f *fakeNotifier) record(event string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

func (f *fakeNotifier) RunCompleted(_ context.Context, title string, found, pages int, merged string) error {
	return f.record(fmt.Sprintf("completed %s %d/%d %s", title, found, pages, filepath.Base(merged)))
}

func (f *fakeNotifier) RunFailed(_ context.Context, title, reason string) error {
	return f.record(fmt.Sprintf("failed %s: %s", title, reason))
}

func (f *fakeNotifier) BatchCompleted(_ context.Context, processed, failed int, _ time.Duration) error {
	return f.record(fmt.Sprintf("batch %d/%d", failed, processed))
}

type harness struct {
	cfg      *config.Config
	store    *runstore.Store
	detector *fakeDetector
	whisper  *fakeTranscriber
	embedder *fakeEmbedder
	deps     pipeline.Dependencies
	settings pipeline.Settings
	inputs   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	h := &harness{
		cfg:      cfg,
		store:    testsupport.MustOpenStore(t, cfg),
		detector: &fakeDetector{},
		whisper:  &fakeTranscriber{},
		embedder: &fakeEmbedder{},
		inputs:   filepath.Join(testsupport.BaseDir(cfg), "inputs"),
	}
	h.deps = pipeline.Dependencies{
		Detector:    h.detector,
		Transcriber: h.whisper,
		Chapters:    h.embedder,
		Store:       h.store,
		Logger:      logging.NewNop(),
	}
	h.settings = pipeline.Settings{
		WorkDir:   cfg.Paths.WorkDir,
		OutputDir: cfg.Paths.OutputDir,
	}
	testsupport.WriteFile(t, filepath.Join(h.inputs, "week1.mp4"), 64)
	testsupport.WriteFile(t, filepath.Join(h.inputs, "week1.pdf"), 64)
	testsupport.WriteText(t, filepath.Join(h.inputs, "week1.srt"), lectureSRT)
	return h
}

func (h *harness) pipeline() *pipeline.Pipeline {
	return pipeline.New(h.deps, h.settings)
}

func (h *harness) job() pipeline.Job {
	return pipeline.Job{
		Video:     pipeline.ExistingFile(filepath.Join(h.inputs, "week1.mp4")),
		Deck:      pipeline.ExistingFile(filepath.Join(h.inputs, "week1.pdf")),
		Subtitles: pipeline.ExistingFile(filepath.Join(h.inputs, "week1.srt")),
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(raw)
}

func TestProcessMergesSuppliedSubtitles(t *testing.T) {
	h := newHarness(t)
	h.deps.Metrics = metrics.New()
	h.settings.MetricsTextfile = filepath.Join(testsupport.BaseDir(h.cfg), "metrics", "slidecue.prom")

	outcome, err := h.pipeline().Process(context.Background(), h.job())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if outcome.MergedPath != filepath.Join(h.cfg.Paths.OutputDir, "week1_merged.srt") {
		t.Fatalf("unexpected merged path %q", outcome.MergedPath)
	}
	if got := readFile(t, outcome.MergedPath); got != mergedSRT {
		t.Fatalf("unexpected merged srt:\n%s", got)
	}
	if outcome.Cues != 3 || len(outcome.Warnings) != 0 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if h.whisper.calls != 0 {
		t.Fatal("transcriber should not run when subtitles are supplied")
	}
	if outcome.ChaptersPath != "" {
		t.Fatalf("chapters were not requested, got %q", outcome.ChaptersPath)
	}

	run, err := h.store.Get(context.Background(), outcome.RunID)
	if err != nil {
		t.Fatalf("Get run: %v", err)
	}
	if run.Status != runstore.StatusCompleted || len(run.Transitions) != 3 || run.PageCount != 3 {
		t.Fatalf("unexpected stored run %+v", run)
	}
	if run.Transitions[2].SlideNumber != 3 || run.Transitions[2].Reason != string(slides.ReasonTextCorroborated) {
		t.Fatalf("unexpected stored transition %+v", run.Transitions[2])
	}
	if run.MergedPath != outcome.MergedPath {
		t.Fatalf("stored merged path %q", run.MergedPath)
	}

	prom := readFile(t, h.settings.MetricsTextfile)
	if !strings.Contains(prom, `slidecue_runs_total{status="completed"} 1`) || !strings.Contains(prom, "slidecue_transitions_total 3") {
		t.Fatalf("unexpected metrics:\n%s", prom)
	}
	if _, err := os.Stat(filepath.Join(h.cfg.Paths.WorkDir, outcome.RunID)); !os.IsNotExist(err) {
		t.Fatalf("expected work dir to be removed, stat err=%v", err)
	}
}

func TestProcessTranscribesWhenNoSubtitles(t *testing.T) {
	h := newHarness(t)
	h.settings.Transcribe = true
	job := h.job()
	job.Subtitles = pipeline.Source{}

	outcome, err := h.pipeline().Process(context.Background(), job)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if h.whisper.calls != 1 {
		t.Fatalf("expected one transcription, got %d", h.whisper.calls)
	}
	wantSRT := filepath.Join(h.cfg.Paths.OutputDir, "week1.srt")
	if outcome.SubtitlePath != wantSRT || readFile(t, wantSRT) != lectureSRT {
		t.Fatalf("expected transcript kept at %s, got %q", wantSRT, outcome.SubtitlePath)
	}
	if readFile(t, outcome.MergedPath) != mergedSRT {
		t.Fatal("unexpected merged output")
	}
}

func TestProcessWithoutSubtitlesOrTranscription(t *testing.T) {
	h := newHarness(t)
	job := h.job()
	job.Subtitles = pipeline.Source{}

	_, err := h.pipeline().Process(context.Background(), job)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestProcessEmbedsChapters(t *testing.T) {
	h := newHarness(t)
	job := h.job()
	job.Chapters = true

	outcome, err := h.pipeline().Process(context.Background(), job)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if outcome.ChaptersPath != filepath.Join(h.cfg.Paths.OutputDir, "week1_chapters.mp4") {
		t.Fatalf("unexpected chapters path %q", outcome.ChaptersPath)
	}
	if len(h.embedder.chapters) != 3 || h.embedder.chapters[2].End != 15*time.Second || h.embedder.chapters[1].Title != "Slide 2" {
		t.Fatalf("unexpected chapters %+v", h.embedder.chapters)
	}
}

func TestProcessRejectsFatalDetection(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"no slides", slides.ErrFirstSlideNotFound, "no slides detected"},
		{"no region", slides.ErrRoiNotFound, "slide area not found"},
		{"bad video", fmt.Errorf("open video: %w", video.ErrStreamMetadata), "video is unreadable or malformed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.detector.err = tt.err

			outcome, err := h.pipeline().Process(context.Background(), h.job())
			if !errors.Is(err, tt.err) || !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation-wrapped %v, got %v", tt.err, err)
			}
			if got := pipeline.Describe(err); got != tt.want {
				t.Fatalf("Describe = %q, want %q", got, tt.want)
			}
			run, getErr := h.store.Get(context.Background(), outcome.RunID)
			if getErr != nil {
				t.Fatalf("Get run: %v", getErr)
			}
			if run.Status != runstore.StatusRejected || run.ErrorMessage == "" {
				t.Fatalf("expected rejected run with message, got %+v", run)
			}
			if _, statErr := os.Stat(filepath.Join(h.cfg.Paths.OutputDir, "week1_merged.srt")); !os.IsNotExist(statErr) {
				t.Fatal("no merged output expected after detection failure")
			}
		})
	}
}

func TestProcessToolFailureIsFailed(t *testing.T) {
	h := newHarness(t)
	h.detector.err = errors.New("tesseract crashed")

	outcome, err := h.pipeline().Process(context.Background(), h.job())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	run, getErr := h.store.Get(context.Background(), outcome.RunID)
	if getErr != nil {
		t.Fatalf("Get run: %v", getErr)
	}
	if run.Status != runstore.StatusFailed {
		t.Fatalf("expected failed run, got %s", run.Status)
	}
}

func TestProcessHonoursOutputLock(t *testing.T) {
	h := newHarness(t)
	lock := flock.New(filepath.Join(h.cfg.Paths.OutputDir, ".week1.lock"))
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("pre-lock: locked=%v err=%v", locked, err)
	}
	defer lock.Unlock()

	if _, err := h.pipeline().Process(context.Background(), h.job()); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected lock contention error, got %v", err)
	}
	if len(h.detector.requests) != 0 {
		t.Fatal("detector should not run while output is locked")
	}
}

func TestProcessUploadSources(t *testing.T) {
	h := newHarness(t)
	job := pipeline.Job{
		Video:     pipeline.Upload("Week 2: Intro.mp4", strings.NewReader("video-bytes")),
		Deck:      pipeline.ExistingFile(filepath.Join(h.inputs, "week1.pdf")),
		Subtitles: pipeline.Upload("week2.srt", strings.NewReader(lectureSRT)),
	}

	outcome, err := h.pipeline().Process(context.Background(), job)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if filepath.Base(outcome.MergedPath) != "Week 2- Intro_merged.srt" {
		t.Fatalf("unexpected merged name %q", filepath.Base(outcome.MergedPath))
	}
	req := h.detector.requests[0]
	if filepath.Base(req.VideoPath) != "Week 2- Intro.mp4" || !strings.HasPrefix(req.VideoPath, h.cfg.Paths.WorkDir) {
		t.Fatalf("expected upload copied into work dir, got %q", req.VideoPath)
	}
}

func TestProcessMissingInput(t *testing.T) {
	h := newHarness(t)
	job := h.job()
	job.Deck = pipeline.ExistingFile(filepath.Join(h.inputs, "missing.pdf"))

	_, err := h.pipeline().Process(context.Background(), job)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := h.pipeline().Process(context.Background(), pipeline.Job{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty job, got %v", err)
	}
}

func TestProcessPreflightFailure(t *testing.T) {
	h := newHarness(t)
	h.deps.Preflight = func(context.Context) []preflight.Result {
		return []preflight.Result{{Name: "Output directory", Detail: "read-only"}}
	}
	_, err := h.pipeline().Process(context.Background(), h.job())
	if !errors.Is(err, services.ErrConfiguration) || !strings.Contains(err.Error(), "read-only") {
		t.Fatalf("expected preflight configuration error, got %v", err)
	}
	if len(h.detector.requests) != 0 {
		t.Fatal("detector should not run after failed preflight")
	}
}

func TestProcessCancelled(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.pipeline().Process(ctx, h.job())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if pipeline.Describe(err) != "cancelled" {
		t.Fatalf("unexpected description %q", pipeline.Describe(err))
	}
}

func TestProcessWithoutStore(t *testing.T) {
	h := newHarness(t)
	h.deps.Store = nil
	outcome, err := h.pipeline().Process(context.Background(), h.job())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if outcome.RunID == "" {
		t.Fatal("expected a run ID even without a store")
	}
	if _, err := os.Stat(h.cfg.Paths.WorkDir); err != nil {
		t.Fatalf("work root must survive job cleanup: %v", err)
	}
}

func TestProcessNotifiesRunResult(t *testing.T) {
	h := newHarness(t)
	notifier := &fakeNotifier{}
	h.deps.Notifier = notifier

	if _, err := h.pipeline().Process(context.Background(), h.job()); err != nil {
		t.Fatalf("Process: %v", err)
	}
	h.detector.err = slides.ErrFirstSlideNotFound
	if _, err := h.pipeline().Process(context.Background(), h.job()); err == nil {
		t.Fatal("expected detection failure")
	}

	want := []string{
		"completed week1.mp4 3/3 week1_merged.srt",
		"failed week1.mp4: no slides detected",
	}
	if fmt.Sprint(notifier.events) != fmt.Sprint(want) {
		t.Fatalf("events = %q, want %q", notifier.events, want)
	}
}

func TestProcessNotificationFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.deps.Notifier = &fakeNotifier{err: errors.New("ntfy unreachable")}

	if _, err := h.pipeline().Process(context.Background(), h.job()); err != nil {
		t.Fatalf("notification failure must not fail the run: %v", err)
	}
}
