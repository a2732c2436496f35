package slides

import (
	"image"

	"slidecue/internal/video"
)

// Observer receives detector progress. Implementations run synchronously on
// the detection goroutine and must not retain samples.
type Observer interface {
	OnAnchor(frame video.Frame, region image.Rectangle)
	OnSample(sample *Sample, decision Decision)
	OnTransition(transition Transition, sample *Sample)
}

type nopObserver struct{}

func (nopObserver) OnAnchor(video.Frame, image.Rectangle) {}

func (nopObserver) OnSample(*Sample, Decision) {}

func (nopObserver) OnTransition(Transition, *Sample) {}
