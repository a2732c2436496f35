package slides

import (
	"context"
	"errors"
	"fmt"
	"image"
	"iter"
	"log/slog"
	"math"
	"time"

	"slidecue/internal/deck"
	"slidecue/internal/logging"
	"slidecue/internal/ocr"
	"slidecue/internal/phash"
	"slidecue/internal/roi"
	"slidecue/internal/video"
)

// FrameSource yields decoded frames of one video.
type FrameSource interface {
	Info() video.Info
	Frames(ctx context.Context, opts video.ReadOptions) iter.Seq2[video.Frame, error]
}

// RegionLocator finds the slide area of a frame.
type RegionLocator interface {
	Locate(img image.Image) (image.Rectangle, error)
}

// Dependencies are the collaborators a Detector drives.
type Dependencies struct {
	OpenVideo func(ctx context.Context, path string) (FrameSource, error)
	Locator   RegionLocator
	OCR       ocr.Engine
	LoadDeck  func(ctx context.Context, path string) (*deck.Deck, error)
	Observer  Observer
	Logger    *slog.Logger
}

// Request names the inputs of one detection run.
type Request struct {
	VideoPath string
	DeckPath  string
}

// Transition is one confirmed slide change.
type Transition struct {
	Ordinal     int
	SlideIndex  int
	FrameNumber int64
	Timestamp   time.Duration
	Distance    int
	Similarity  float64
	Reason      Reason
}

// SlideNumber returns the 1-based page number of the slide.
func (t Transition) SlideNumber() int {
	return t.SlideIndex + 1
}

// Stats counts the work performed by a run.
type Stats struct {
	ScannedFrames int `json:"scanned_frames"`
	Samples       int `json:"samples"`
	OCRCalls      int `json:"ocr_calls"`
	SkippedFrames int `json:"skipped_frames"`
}

// Result is the slide transition map of a video plus run context.
type Result struct {
	Transitions []Transition
	AnchorFrame int64
	AnchorTime  time.Duration
	Region      image.Rectangle
	FrameRate   float64
	Duration    time.Duration
	PageCount   int
	Stats       Stats
}

// Starts returns the transition timestamps in order.
func (r *Result) Starts() []time.Duration {
	starts := make([]time.Duration, len(r.Transitions))
	for i, t := range r.Transitions {
		starts[i] = t.Timestamp
	}
	return starts
}

// Detector finds the frames at which each slide of a deck first appears.
// A Detector may run several detections concurrently; each Detect call owns
// its tracker, index, and decoder.
type Detector struct {
	cfg    Config
	deps   Dependencies
	logger *slog.Logger
}

// NewDetector returns a detector. Non-positive tunables fall back to defaults.
func NewDetector(cfg Config, deps Dependencies) *Detector {
	if cfg.SamplingInterval <= 0 {
		cfg.SamplingInterval = time.Second
	}
	if cfg.FirstSlideScan <= 0 {
		cfg.FirstSlideScan = 30 * time.Second
	}
	if cfg.DefiniteDistance <= 0 {
		cfg.DefiniteDistance = DefaultDefiniteDistance
	}
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	return &Detector{
		cfg:    cfg,
		deps:   deps,
		logger: logging.NewComponentLogger(deps.Logger, "slides"),
	}
}

func (d *Detector) validate() error {
	switch {
	case d.deps.OpenVideo == nil:
		return errors.New("detector: no video opener configured")
	case d.deps.Locator == nil:
		return errors.New("detector: no region locator configured")
	case d.deps.OCR == nil:
		return errors.New("detector: no OCR engine configured")
	case d.deps.LoadDeck == nil:
		return errors.New("detector: no deck loader configured")
	}
	return nil
}

// Detect runs one detection. It returns video.ErrStreamMetadata,
// ErrFirstSlideNotFound, or ErrRoiNotFound for inputs it cannot process, and
// ctx.Err() when cancelled. A truncated frame or a failed sample is logged
// and skipped; any other decoder failure ends the run with an error.
func (d *Detector) Detect(ctx context.Context, req Request) (*Result, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	logger := logging.WithContext(ctx, d.logger)

	src, err := d.deps.OpenVideo(ctx, req.VideoPath)
	if err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}
	info := src.Info()
	if info.FrameRate <= 0 {
		return nil, fmt.Errorf("%w: %s: frame rate %v", video.ErrStreamMetadata, req.VideoPath, info.FrameRate)
	}
	result := &Result{FrameRate: info.FrameRate, Duration: info.Duration}

	anchor, err := d.findAnchor(ctx, src, info.FrameRate, &result.Stats, logger)
	if err != nil {
		return nil, err
	}
	result.AnchorFrame = anchor.Number
	result.AnchorTime = anchor.Timestamp
	logger.Info("first slide found",
		logging.Frame(anchor.Number),
		logging.Duration("timestamp", anchor.Timestamp),
		logging.Int("scanned_frames", result.Stats.ScannedFrames),
	)

	region, err := d.deps.Locator.Locate(anchor.Image)
	if err != nil {
		if errors.Is(err, roi.ErrNotFound) {
			return nil, fmt.Errorf("%w in anchor frame %d", ErrRoiNotFound, anchor.Number)
		}
		return nil, fmt.Errorf("locate slide region: %w", err)
	}
	result.Region = region
	logger.Debug("slide region located", logging.String("region", region.String()))
	d.deps.Observer.OnAnchor(anchor, region)

	slideDeck, err := d.deps.LoadDeck(ctx, req.DeckPath)
	if err != nil {
		return nil, fmt.Errorf("load deck: %w", err)
	}
	if slideDeck.Len() == 0 {
		return nil, fmt.Errorf("load deck %s: %w", req.DeckPath, deck.ErrEmpty)
	}
	result.PageCount = slideDeck.Len()

	index := phash.NewIndex(slideDeck.Hashes(), d.cfg.HashMaxDistance)
	tracker := NewTracker(index, d.cfg.Scorer, slideDeck.Pages, DecisionOptions{DefiniteDistance: d.cfg.DefiniteDistance})
	stride := SamplingStride(d.cfg.SamplingInterval, info.FrameRate)
	logger.Debug("sampling frames",
		logging.Int("stride", stride),
		logging.Int("pages", result.PageCount),
	)

	for frame, err := range src.Frames(ctx, video.ReadOptions{Start: anchor.Number, Stride: stride}) {
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if !errors.Is(err, video.ErrShortFrame) {
				return nil, fmt.Errorf("decode frames: %w", err)
			}
			result.Stats.SkippedFrames++
			logging.WarnWithContext(logger, "truncated frame", "frame_decode_failed", "sample skipped", logging.Error(err))
			continue
		}
		result.Stats.Samples++
		sample := NewSample(frame, region, d.deps.OCR, d.cfg.MinConfidence)
		decision, err := d.evaluate(ctx, tracker, sample)
		result.Stats.OCRCalls += sample.OCRCalls()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			result.Stats.SkippedFrames++
			logging.WarnWithContext(logger, "sample evaluation failed", "sample_failed", "sample skipped",
				logging.Frame(frame.Number),
				logging.Error(err),
			)
			continue
		}
		d.deps.Observer.OnSample(sample, decision)
		logger.Debug("sample evaluated",
			logging.Frame(frame.Number),
			logging.String("decision_result", decision.Verdict()),
			logging.String("decision_reason", string(decision.Reason)),
			logging.Int("distance", decision.Distance),
		)
		if !decision.Confirm {
			continue
		}

		tracker.MarkConfirmed(decision.Index)
		transition := Transition{
			Ordinal:     len(result.Transitions) + 1,
			SlideIndex:  decision.Index,
			FrameNumber: frame.Number,
			Timestamp:   frame.Timestamp,
			Distance:    decision.Distance,
			Similarity:  decision.Similarity,
			Reason:      decision.Reason,
		}
		result.Transitions = append(result.Transitions, transition)
		logger.Info("slide transition",
			logging.Slide(transition.SlideNumber()),
			logging.Frame(transition.FrameNumber),
			logging.Duration("timestamp", transition.Timestamp),
			logging.String("reason", string(transition.Reason)),
		)
		d.deps.Observer.OnTransition(transition, sample)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Info("detection complete",
		logging.Int("transitions", len(result.Transitions)),
		logging.Int("pages", result.PageCount),
		logging.Int("samples", result.Stats.Samples),
		logging.Int("ocr_calls", result.Stats.OCRCalls),
	)
	return result, nil
}

func (d *Detector) evaluate(ctx context.Context, tracker *Tracker, sample *Sample) (Decision, error) {
	hash, err := sample.Hash()
	if err != nil {
		return Decision{}, err
	}
	return tracker.Evaluate(hash, func() (string, error) {
		return sample.ConfidentText(ctx)
	})
}

// findAnchor returns the first frame within the scan window that shows every
// keyword.
func (d *Detector) findAnchor(ctx context.Context, src FrameSource, fps float64, stats *Stats, logger *slog.Logger) (video.Frame, error) {
	oracle := ocr.Oracle{
		Matcher:       ocr.NewKeywordMatcher(d.cfg.Keywords),
		MinConfidence: d.cfg.MinConfidence,
	}
	limit := ScanLimit(d.cfg.FirstSlideScan, fps)

	for frame, err := range src.Frames(ctx, video.ReadOptions{Stride: 1}) {
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return video.Frame{}, ctxErr
			}
			if !errors.Is(err, video.ErrShortFrame) {
				return video.Frame{}, fmt.Errorf("decode frames: %w", err)
			}
			stats.SkippedFrames++
			logging.WarnWithContext(logger, "truncated frame", "frame_decode_failed", "anchor scan frame skipped", logging.Error(err))
			continue
		}
		if frame.Number >= limit {
			break
		}
		stats.ScannedFrames++
		sample := NewSample(frame, image.Rectangle{}, d.deps.OCR, d.cfg.MinConfidence)
		words, err := sample.FullWords(ctx)
		stats.OCRCalls += sample.OCRCalls()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return video.Frame{}, ctxErr
			}
			stats.SkippedFrames++
			logging.WarnWithContext(logger, "anchor OCR failed", "ocr_failed", "anchor scan frame skipped",
				logging.Frame(frame.Number),
				logging.Error(err),
			)
			continue
		}
		if oracle.Check(words) {
			return frame, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return video.Frame{}, err
	}
	return video.Frame{}, fmt.Errorf("%w within the first %s", ErrFirstSlideNotFound, d.cfg.FirstSlideScan)
}

// ScanLimit returns the number of leading frames searched for the anchor.
func ScanLimit(window time.Duration, fps float64) int64 {
	return int64(math.Ceil(window.Seconds() * fps))
}

// SamplingStride converts a sampling interval into a frame stride of at least one.
func SamplingStride(interval time.Duration, fps float64) int {
	return max(1, int(math.Round(interval.Seconds()*fps)))
}
