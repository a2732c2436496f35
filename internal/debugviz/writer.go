package debugviz

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fogleman/gg"

	"slidecue/internal/logging"
	"slidecue/internal/slides"
	"slidecue/internal/textutil"
	"slidecue/internal/video"
)

// Writer is a slides.Observer that renders annotated frames as PNG files.
type Writer struct {
	dir    string
	logger *slog.Logger

	mu    sync.Mutex
	files []string
}

// New creates dir and returns a Writer that saves into it.
func New(dir string, logger *slog.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create debug directory: %w", err)
	}
	return &Writer{dir: dir, logger: logging.NewComponentLogger(logger, "debugviz")}, nil
}

// Files returns the paths written so far.
func (w *Writer) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.files...)
}

// OnAnchor saves the anchor frame with the detected slide area outlined.
func (w *Writer) OnAnchor(frame video.Frame, region image.Rectangle) {
	label := fmt.Sprintf("anchor frame %d  %s", frame.Number, clock(frame.Timestamp))
	w.save(fmt.Sprintf("anchor_f%06d.png", frame.Number), frame.Image, region, label, green)
}

// OnSample saves samples whose hash match was rejected by the text check.
func (w *Writer) OnSample(sample *slides.Sample, decision slides.Decision) {
	if decision.Reason != slides.ReasonTextRejected {
		return
	}
	label := fmt.Sprintf("slide %d rejected  distance %d  similarity %.2f", decision.Index+1, decision.Distance, decision.Similarity)
	name := fmt.Sprintf("%s_f%06d.png", textutil.SanitizeToken(string(decision.Reason)), sample.Frame.Number)
	w.save(name, sample.Frame.Image, sample.Region(), label, red)
}

// OnTransition saves the frame at which a slide was confirmed.
func (w *Writer) OnTransition(t slides.Transition, sample *slides.Sample) {
	label := fmt.Sprintf("#%d slide %d  frame %d  %s  %s", t.Ordinal, t.SlideNumber(), t.FrameNumber, clock(t.Timestamp), t.Reason)
	w.save(fmt.Sprintf("slide_%03d_f%06d.png", t.SlideNumber(), t.FrameNumber), sample.Frame.Image, sample.Region(), label, green)
}

type rgb struct{ r, g, b float64 }

var (
	green = rgb{0, 1, 0}
	red   = rgb{1, 0, 0}
)

func (w *Writer) save(name string, img image.Image, region image.Rectangle, label string, outline rgb) {
	if img == nil {
		return
	}
	dc := gg.NewContextForImage(img)
	if !region.Empty() {
		dc.SetRGB(outline.r, outline.g, outline.b)
		dc.SetLineWidth(3)
		dc.DrawRectangle(float64(region.Min.X), float64(region.Min.Y), float64(region.Dx()), float64(region.Dy()))
		dc.Stroke()
	}

	const pad = 6
	textWidth, textHeight := dc.MeasureString(label)
	dc.SetRGBA(0, 0, 0, 0.7)
	dc.DrawRectangle(0, 0, textWidth+2*pad, textHeight+2*pad)
	dc.Fill()
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(label, pad, pad, 0, 1)

	path := filepath.Join(w.dir, name)
	if err := dc.SavePNG(path); err != nil {
		logging.WarnWithContext(w.logger, "debug frame not written", "debug_write_failed", "visualization incomplete",
			logging.String("path", path),
			logging.Error(err),
		)
		return
	}
	w.mu.Lock()
	w.files = append(w.files, path)
	w.mu.Unlock()
	w.logger.Debug("debug frame written", logging.String("path", path))
}

func clock(d time.Duration) string {
	d = d.Round(time.Millisecond)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	ms := (d % time.Second) / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
