package roi_test

import (
	"errors"
	"image"
	"testing"

	"github.com/fogleman/gg"

	"slidecue/internal/roi"
)

func frameWithRect(width, height int, rect image.Rectangle) image.Image {
	dc := gg.NewContext(width, height)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	if !rect.Empty() {
		dc.SetRGB(1, 1, 1)
		dc.DrawRectangle(float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()))
		dc.Fill()
	}
	return dc.Image()
}

func near(a, b image.Rectangle, tol int) bool {
	abs := func(v int) int {
		if v < 0 {
			return -v
		}
		return v
	}
	return abs(a.Min.X-b.Min.X) <= tol && abs(a.Min.Y-b.Min.Y) <= tol &&
		abs(a.Max.X-b.Max.X) <= tol && abs(a.Max.Y-b.Max.Y) <= tol
}

func TestLocateFindsProjectedSlide(t *testing.T) {
	want := image.Rect(100, 60, 900, 660)
	img := frameWithRect(1280, 720, want)

	got, err := roi.NewLocator(roi.DefaultOptions()).Locate(img)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if !near(got, want, 2) {
		t.Fatalf("Locate = %v, want about %v", got, want)
	}
}

func TestLocateFullFrameSlide(t *testing.T) {
	full := image.Rect(0, 0, 1280, 720)
	img := frameWithRect(1280, 720, full)

	got, err := roi.NewLocator(roi.DefaultOptions()).Locate(img)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if !near(got, full, 2) {
		t.Fatalf("Locate = %v, want about %v", got, full)
	}
	if !got.In(full) {
		t.Fatalf("rectangle %v not clipped to frame", got)
	}
}

func TestLocateAllBlackFrame(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1280, 720))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	rect, err := roi.NewLocator(roi.DefaultOptions()).Locate(img)
	if !errors.Is(err, roi.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got rect %v err %v", rect, err)
	}
	if rect != (image.Rectangle{}) {
		t.Fatalf("expected zero rectangle on failure, got %v", rect)
	}
}

func TestLocateRejectsSmallRegion(t *testing.T) {
	img := frameWithRect(1280, 720, image.Rect(50, 50, 250, 250))
	_, err := roi.NewLocator(roi.DefaultOptions()).Locate(img)
	if !errors.Is(err, roi.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a 200x200 widget, got %v", err)
	}
}

func TestLocateGatesAreTunable(t *testing.T) {
	img := frameWithRect(640, 360, image.Rect(40, 40, 340, 320))
	opts := roi.DefaultOptions()
	opts.MinWidth, opts.MinHeight, opts.MinArea = 200, 200, 1000

	got, err := roi.NewLocator(opts).Locate(img)
	if err != nil {
		t.Fatalf("Locate with lowered gates: %v", err)
	}
	if !near(got, image.Rect(40, 40, 340, 320), 2) {
		t.Fatalf("unexpected rectangle %v", got)
	}
}

func TestLocateIsIdempotent(t *testing.T) {
	img := frameWithRect(1280, 720, image.Rect(140, 80, 1140, 680))
	locator := roi.NewLocator(roi.DefaultOptions())

	first, err := locator.Locate(img)
	if err != nil {
		t.Fatalf("first Locate: %v", err)
	}
	second, err := locator.Locate(img)
	if err != nil {
		t.Fatalf("second Locate: %v", err)
	}
	if first != second {
		t.Fatalf("Locate not deterministic: %v then %v", first, second)
	}
}

func TestCropRebasesOrigin(t *testing.T) {
	img := frameWithRect(100, 80, image.Rect(10, 10, 60, 50))
	cropped := roi.Crop(img, image.Rect(10, 10, 60, 50))
	if cropped.Bounds() != image.Rect(0, 0, 50, 40) {
		t.Fatalf("unexpected crop bounds %v", cropped.Bounds())
	}
	if r, g, b, _ := cropped.At(25, 20).RGBA(); r>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
		t.Fatalf("expected white inside crop, got %d %d %d", r>>8, g>>8, b>>8)
	}
}
