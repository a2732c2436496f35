package pipeline

import (
	"context"
	"log/slog"

	"slidecue/internal/chapters"
	"slidecue/internal/config"
	"slidecue/internal/metrics"
	"slidecue/internal/notifications"
	"slidecue/internal/preflight"
	"slidecue/internal/runstore"
	"slidecue/internal/services/whisperx"
	"slidecue/internal/slides"
)

// NewFromConfig wires a Pipeline with the production detector, WhisperX,
// ffmpeg chapter muxing, ntfy notifications, and preflight checks. store may be nil to skip run
// history.
func NewFromConfig(cfg *config.Config, store *runstore.Store, logger *slog.Logger) *Pipeline {
	deps := Dependencies{
		Detector:    slides.NewDetector(slides.ConfigFromSettings(cfg), slides.NewDependencies(cfg, logger)),
		Transcriber: whisperx.NewService(whisperx.ConfigFromSettings(cfg), cfg.FFmpegBinary(), logger),
		Chapters:    chapters.NewEmbedder(cfg.FFmpegBinary(), cfg.Paths.WorkDir, logger),
		Notifier:    notifications.NewService(cfg),
		Preflight: func(ctx context.Context) []preflight.Result {
			return preflight.RunAll(ctx, cfg)
		},
		Logger: logger,
	}
	if store != nil {
		deps.Store = store
	}
	if cfg.Metrics.Textfile != "" {
		deps.Metrics = metrics.New()
	}
	return New(deps, Settings{
		WorkDir:         cfg.Paths.WorkDir,
		OutputDir:       cfg.Paths.OutputDir,
		Transcribe:      cfg.Transcription.Enabled,
		Chapters:        cfg.Chapters.Enabled,
		MetricsTextfile: cfg.Metrics.Textfile,
	})
}
