package slides_test

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"iter"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/fogleman/gg"

	"slidecue/internal/deck"
	"slidecue/internal/ocr"
	"slidecue/internal/phash"
	"slidecue/internal/slides"
	"slidecue/internal/textutil"
	"slidecue/internal/video"
)

var (
	frameBounds = image.Rect(0, 0, 320, 240)
	slideRegion = image.Rect(40, 30, 280, 210)
	markerPoint = image.Pt(5, 5)
	marker      = color.RGBA{R: 255, A: 255}
	institution = []string{"FH", "AACHEN", "UNIVERSITY", "OF", "APPLIED", "SCIENCES"}
)

// pageImage draws a deterministic block pattern filling the slide region.
func pageImage(seed uint64) *image.RGBA {
	w, h := slideRegion.Dx(), slideRegion.Dy()
	rng := rand.New(rand.NewPCG(seed+11, seed*31+7))
	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	const cells = 6
	cw, ch := float64(w)/cells, float64(h)/cells
	for y := 0; y < cells; y++ {
		for x := 0; x < cells; x++ {
			if rng.IntN(2) == 0 {
				dc.SetRGB(0.1, 0.1, 0.3)
				dc.DrawRectangle(float64(x)*cw, float64(y)*ch, cw, ch)
				dc.Fill()
			}
		}
	}
	return dc.Image().(*image.RGBA)
}

// lecture is a synthetic recording: segment i shows pages[i] (or a dark
// screen when negative) from its start frame until the next segment.
type lecture struct {
	pages    []*image.RGBA
	starts   []int64
	shown    []int
	total    int64
	fps      float64
	reads    []video.ReadOptions
	rendered int
	// failRead makes the given 1-based Frames call yield failErr after
	// failAfter frames and end.
	failRead  int
	failAfter int
	failErr   error
}

func (l *lecture) Info() video.Info {
	return video.Info{
		Path:      "/lectures/week1.mp4",
		Width:     frameBounds.Dx(),
		Height:    frameBounds.Dy(),
		FrameRate: l.fps,
		Duration:  video.FrameTime(l.total, l.fps),
	}
}

func (l *lecture) pageAt(n int64) int {
	page := -1
	for i, start := range l.starts {
		if n >= start {
			page = l.shown[i]
		}
	}
	return page
}

func (l *lecture) render(n int64) *image.RGBA {
	l.rendered++
	img := image.NewRGBA(frameBounds)
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	if page := l.pageAt(n); page >= 0 {
		draw.Draw(img, slideRegion, l.pages[page], image.Point{}, draw.Src)
		img.SetRGBA(markerPoint.X, markerPoint.Y, marker)
	}
	return img
}

func (l *lecture) Frames(ctx context.Context, opts video.ReadOptions) iter.Seq2[video.Frame, error] {
	l.reads = append(l.reads, opts)
	failing := l.failRead == len(l.reads)
	return func(yield func(video.Frame, error) bool) {
		yielded := 0
		for n := opts.Start; n < l.total; n += int64(opts.Stride) {
			if err := ctx.Err(); err != nil {
				yield(video.Frame{}, err)
				return
			}
			if failing && yielded == l.failAfter {
				yield(video.Frame{}, l.failErr)
				return
			}
			yielded++
			frame := video.Frame{Image: l.render(n), Number: n, Timestamp: video.FrameTime(n, l.fps)}
			if !yield(frame, nil) {
				return
			}
		}
	}
}

// bannerEngine reports the institution banner for frames carrying the marker
// pixel and reads nothing elsewhere.
type bannerEngine struct {
	calls      int
	failures   int
	regionText []ocr.Word
}

func (e *bannerEngine) Recognize(_ context.Context, img image.Image) ([]ocr.Word, error) {
	e.calls++
	if e.failures > 0 {
		e.failures--
		return nil, errOCR
	}
	if markerPoint.In(img.Bounds()) {
		r, g, b, _ := img.At(markerPoint.X, markerPoint.Y).RGBA()
		if r>>8 == 255 && g == 0 && b == 0 {
			words := make([]ocr.Word, len(institution))
			for i, w := range institution {
				words[i] = ocr.Word{Text: w, Confidence: 93, Left: i * 40, Width: 36, Height: 12}
			}
			return words, nil
		}
	}
	return e.regionText, nil
}

type staticError string

func (e staticError) Error() string { return string(e) }

const errOCR = staticError("tesseract crashed")

type fixedLocator struct {
	rect  image.Rectangle
	err   error
	calls int
}

func (f *fixedLocator) Locate(image.Image) (image.Rectangle, error) {
	f.calls++
	return f.rect, f.err
}

func testDeck(t *testing.T, texts ...string) (*deck.Deck, []*image.RGBA) {
	t.Helper()
	images := make([]*image.RGBA, len(texts))
	pages := make([]deck.Page, len(texts))
	for i, text := range texts {
		images[i] = pageImage(uint64(i + 1))
		page, err := deck.NewPage(i, images[i], text)
		if err != nil {
			t.Fatalf("NewPage: %v", err)
		}
		pages[i] = page
	}
	for i := range pages {
		for j := i + 1; j < len(pages); j++ {
			if d := phash.Distance(pages[i].Hash, pages[j].Hash); d <= 8 {
				t.Fatalf("fixture pages %d and %d are only %d bits apart", i, j, d)
			}
		}
	}
	d, err := deck.New(pages)
	if err != nil {
		t.Fatalf("deck.New: %v", err)
	}
	return d, images
}

func testConfig() slides.Config {
	return slides.Config{
		Keywords:         institution,
		MinConfidence:    80,
		SamplingInterval: time.Second,
		FirstSlideScan:   30 * time.Second,
		HashMaxDistance:  8,
		DefiniteDistance: 2,
		Scorer: textutil.Scorer{
			Strategy:       textutil.StrategyJaccard,
			Threshold:      0.65,
			Ignore:         institution,
			MinTokenLength: 2,
		},
	}
}

type harness struct {
	lecture  *lecture
	engine   *bannerEngine
	locator  *fixedLocator
	deck     *deck.Deck
	observer *recordingObserver
}

func newHarness(t *testing.T, starts []int64, shown []int, total int64) *harness {
	t.Helper()
	d, images := testDeck(t, "FH AACHEN Intro course overview", "FH AACHEN Methods data collection", "FH AACHEN Results accuracy table")
	return &harness{
		lecture:  &lecture{pages: images, starts: starts, shown: shown, total: total, fps: 30},
		engine:   &bannerEngine{},
		locator:  &fixedLocator{rect: slideRegion},
		deck:     d,
		observer: &recordingObserver{},
	}
}

func (h *harness) detector(cfg slides.Config) *slides.Detector {
	return slides.NewDetector(cfg, slides.Dependencies{
		OpenVideo: func(context.Context, string) (slides.FrameSource, error) { return h.lecture, nil },
		Locator:   h.locator,
		OCR:       h.engine,
		LoadDeck:  func(context.Context, string) (*deck.Deck, error) { return h.deck, nil },
		Observer:  h.observer,
	})
}

type recordingObserver struct {
	anchor       video.Frame
	region       image.Rectangle
	samples      []slides.Decision
	transitions  []slides.Transition
	onTransition func(slides.Transition)
}

func (o *recordingObserver) OnAnchor(frame video.Frame, region image.Rectangle) {
	o.anchor, o.region = frame, region
}

func (o *recordingObserver) OnSample(_ *slides.Sample, d slides.Decision) {
	o.samples = append(o.samples, d)
}

func (o *recordingObserver) OnTransition(t slides.Transition, _ *slides.Sample) {
	o.transitions = append(o.transitions, t)
	if o.onTransition != nil {
		o.onTransition(t)
	}
}
