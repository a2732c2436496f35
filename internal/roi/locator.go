package roi

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// ErrNotFound reports a frame without a sufficiently large outer rectangle.
var ErrNotFound = errors.New("region of interest not found")

// Options holds the edge detection parameters and validity gates.
type Options struct {
	Padding   int
	CannyLow  float32
	CannyHigh float32
	MinWidth  int
	MinHeight int
	MinArea   int
}

// DefaultOptions returns the gates used for 720p and larger lecture captures.
func DefaultOptions() Options {
	return Options{
		Padding:   5,
		CannyLow:  50,
		CannyHigh: 150,
		MinWidth:  500,
		MinHeight: 500,
		MinArea:   5000,
	}
}

// Locator finds the projected slide area in a frame.
type Locator struct {
	opts Options
}

// NewLocator returns a Locator; zero-valued Canny thresholds fall back to defaults.
func NewLocator(opts Options) *Locator {
	def := DefaultOptions()
	if opts.CannyLow <= 0 {
		opts.CannyLow = def.CannyLow
	}
	if opts.CannyHigh <= 0 {
		opts.CannyHigh = def.CannyHigh
	}
	if opts.Padding < 0 {
		opts.Padding = 0
	}
	return &Locator{opts: opts}
}

// Locate returns the bounding rectangle of the largest external contour in
// img, in img coordinates. The frame is padded with black first so a slide
// filling the whole frame still has an edge.
func (l *Locator) Locate(img image.Image) (image.Rectangle, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return image.Rectangle{}, fmt.Errorf("%w: empty image", ErrNotFound)
	}

	src, err := matFromImage(img)
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("roi: convert frame: %w", err)
	}
	defer src.Close()

	pad := l.opts.Padding
	padded := gocv.NewMat()
	defer padded.Close()
	gocv.CopyMakeBorder(src, &padded, pad, pad, pad, pad, gocv.BorderConstant, color.RGBA{A: 255})

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(padded, &gray, gocv.ColorRGBAToGray)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, l.opts.CannyLow, l.opts.CannyHigh)

	contours := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()
	if contours.Size() == 0 {
		return image.Rectangle{}, fmt.Errorf("%w: no contours", ErrNotFound)
	}

	var best image.Rectangle
	bestArea := -1
	for i := 0; i < contours.Size(); i++ {
		rect := gocv.BoundingRect(contours.At(i))
		if area := rect.Dx() * rect.Dy(); area > bestArea {
			best, bestArea = rect, area
		}
	}

	if best.Dx() < l.opts.MinWidth || best.Dy() < l.opts.MinHeight || bestArea < l.opts.MinArea {
		return image.Rectangle{}, fmt.Errorf("%w: largest region %dx%d below %dx%d/%d",
			ErrNotFound, best.Dx(), best.Dy(), l.opts.MinWidth, l.opts.MinHeight, l.opts.MinArea)
	}

	// Back to frame coordinates, clipped to the frame.
	rect := best.Sub(image.Pt(pad, pad)).Add(bounds.Min).Intersect(bounds)
	if rect.Empty() {
		return image.Rectangle{}, fmt.Errorf("%w: region outside frame", ErrNotFound)
	}
	return rect, nil
}

// Crop returns the rect portion of img as a new image with origin (0,0).
func Crop(img image.Image, rect image.Rectangle) *image.NRGBA {
	return imaging.Crop(img, rect)
}

func matFromImage(img image.Image) (gocv.Mat, error) {
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*rgba.Rect.Dx() || len(rgba.Pix) != rgba.Stride*rgba.Rect.Dy() {
		b := img.Bounds()
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return gocv.NewMatFromBytes(rgba.Rect.Dy(), rgba.Rect.Dx(), gocv.MatTypeCV8UC4, rgba.Pix)
}
