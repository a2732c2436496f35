package services

import (
	"errors"
	"fmt"
	"strings"

	"slidecue/internal/runstore"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureStatus maps a pipeline error to the run status recorded in the store.
// Input problems (unreadable video, no slides, bad config) are rejected rather
// than failed so they are not mistaken for tool crashes.
func FailureStatus(err error) runstore.Status {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration), errors.Is(err, ErrNotFound):
		return runstore.StatusRejected
	default:
		return runstore.StatusFailed
	}
}

// Describe returns a short user-facing classification of err by marker.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "invalid input"
	case errors.Is(err, ErrConfiguration):
		return "configuration problem"
	case errors.Is(err, ErrNotFound):
		return "input not found"
	case errors.Is(err, ErrExternalTool):
		return "external tool failed"
	case errors.Is(err, ErrTimeout):
		return "timed out"
	default:
		return "processing failed"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{stage, operation, message} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
