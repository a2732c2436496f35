package main

import (
	"context"
	"errors"
	"fmt"

	"slidecue/internal/pipeline"
)

// describeError prefixes err with its user-facing classification.
func describeError(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%s: %w", pipeline.Describe(err), err)
}
