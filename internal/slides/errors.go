package slides

import (
	"errors"
	"fmt"

	"slidecue/internal/roi"
)

var (
	// ErrFirstSlideNotFound reports that no frame within the scan window
	// showed every anchor keyword.
	ErrFirstSlideNotFound = errors.New("first slide not found")
	// ErrRoiNotFound reports that the anchor frame has no usable slide area.
	ErrRoiNotFound = fmt.Errorf("slide region: %w", roi.ErrNotFound)
)
