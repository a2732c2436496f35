package slides

import (
	"context"
	"image"

	"slidecue/internal/ocr"
	"slidecue/internal/phash"
	"slidecue/internal/roi"
	"slidecue/internal/video"
)

// memo holds a value computed at most once.
type memo[T any] struct {
	done  bool
	value T
	err   error
}

func (m *memo[T]) get(compute func() (T, error)) (T, error) {
	if !m.done {
		m.value, m.err = compute()
		m.done = true
	}
	return m.value, m.err
}

// Sample is one decoded frame with its derived values computed lazily and at
// most once. A Sample is owned by a single detection run and is not safe for
// concurrent use.
type Sample struct {
	Frame video.Frame

	region        image.Rectangle
	engine        ocr.Engine
	minConfidence float64
	ocrCalls      int

	crop        memo[image.Image]
	hash        memo[phash.Hash]
	fullWords   memo[[]ocr.Word]
	regionWords memo[[]ocr.Word]
	text        memo[string]
}

// NewSample wraps frame. An empty region means the slide area is not known
// yet and region-derived values use the whole frame.
func NewSample(frame video.Frame, region image.Rectangle, engine ocr.Engine, minConfidence float64) *Sample {
	return &Sample{
		Frame:         frame,
		region:        region,
		engine:        engine,
		minConfidence: minConfidence,
	}
}

// Region returns the frozen slide area the sample was cropped with.
func (s *Sample) Region() image.Rectangle {
	return s.region
}

// Crop returns the slide area of the frame.
func (s *Sample) Crop() image.Image {
	img, _ := s.crop.get(func() (image.Image, error) {
		if s.region.Empty() {
			return s.Frame.Image, nil
		}
		return roi.Crop(s.Frame.Image, s.region), nil
	})
	return img
}

// Hash returns the perceptual hash of the slide area.
func (s *Sample) Hash() (phash.Hash, error) {
	return s.hash.get(func() (phash.Hash, error) {
		return phash.FromImage(s.Crop())
	})
}

// FullWords runs OCR over the whole frame.
func (s *Sample) FullWords(ctx context.Context) ([]ocr.Word, error) {
	return s.fullWords.get(func() ([]ocr.Word, error) {
		s.ocrCalls++
		return s.engine.Recognize(ctx, s.Frame.Image)
	})
}

// RegionWords runs OCR over the slide area only.
func (s *Sample) RegionWords(ctx context.Context) ([]ocr.Word, error) {
	return s.regionWords.get(func() ([]ocr.Word, error) {
		s.ocrCalls++
		return s.engine.Recognize(ctx, s.Crop())
	})
}

// ConfidentText joins the slide-area words at or above the confidence floor.
func (s *Sample) ConfidentText(ctx context.Context) (string, error) {
	return s.text.get(func() (string, error) {
		words, err := s.RegionWords(ctx)
		if err != nil {
			return "", err
		}
		return ocr.ConfidentText(words, s.minConfidence), nil
	})
}

// OCRCalls returns how many recognition passes the sample has triggered.
func (s *Sample) OCRCalls() int {
	return s.ocrCalls
}
