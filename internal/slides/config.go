package slides

import (
	"context"
	"log/slog"
	"time"

	"slidecue/internal/config"
	"slidecue/internal/deck"
	"slidecue/internal/ocr"
	"slidecue/internal/roi"
	"slidecue/internal/textutil"
	"slidecue/internal/video"
)

// Config holds the detector tunables.
type Config struct {
	Keywords         []string
	MinConfidence    float64
	SamplingInterval time.Duration
	FirstSlideScan   time.Duration
	HashMaxDistance  int
	DefiniteDistance int
	Scorer           textutil.Scorer
}

// ConfigFromSettings derives detector tunables from application config.
func ConfigFromSettings(cfg *config.Config) Config {
	d := cfg.Detection
	strategy, _ := textutil.ParseStrategy(d.SimilarityStrategy)
	threshold := d.JaccardThreshold
	if strategy == textutil.StrategyFuzzy {
		threshold = d.FuzzyThreshold
	}
	return Config{
		Keywords:         append([]string(nil), d.Keywords...),
		MinConfidence:    cfg.OCR.MinConfidence,
		SamplingInterval: seconds(d.SamplingIntervalSeconds),
		FirstSlideScan:   seconds(d.FirstSlideScanSeconds),
		HashMaxDistance:  d.HashMaxDistance,
		DefiniteDistance: d.DefiniteMatchDistance,
		Scorer: textutil.Scorer{
			Strategy:       strategy,
			Threshold:      threshold,
			Ignore:         append([]string(nil), d.IgnoreKeywords...),
			MinTokenLength: d.MinTokenLength,
		},
	}
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// NewDependencies wires the ffmpeg frame source, OpenCV locator, tesseract
// engine, and MuPDF deck loader from application config.
func NewDependencies(cfg *config.Config, logger *slog.Logger) Dependencies {
	videoOpts := video.Options{
		FFmpegBinary:  cfg.FFmpegBinary(),
		FFprobeBinary: cfg.FFprobeBinary(),
		Logger:        logger,
	}
	d := cfg.Detection
	engineMode := cfg.OCR.EngineMode
	return Dependencies{
		OpenVideo: func(ctx context.Context, path string) (FrameSource, error) {
			reader, err := video.Open(ctx, path, videoOpts)
			if err != nil {
				return nil, err
			}
			return reader, nil
		},
		Locator: roi.NewLocator(roi.Options{
			Padding:   d.RoIPadding,
			MinWidth:  d.RoIMinWidth,
			MinHeight: d.RoIMinHeight,
			MinArea:   d.RoIMinArea,
		}),
		OCR: ocr.NewTesseract(ocr.TesseractConfig{
			Binary:      cfg.TesseractBinary(),
			Language:    cfg.OCR.Language,
			PageSegMode: cfg.OCR.PageSegMode,
			EngineMode:  &engineMode,
		}),
		LoadDeck: func(ctx context.Context, path string) (*deck.Deck, error) {
			return deck.Load(ctx, path, d.PDFDPI)
		},
		Logger: logger,
	}
}
