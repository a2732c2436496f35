package preflight

import (
	"context"
	"path/filepath"

	"slidecue/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem and OCR checks that must pass before a job
// starts. Checks for disabled features are skipped.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
	}
	if cfg.Store.Enabled && cfg.Store.Path != "" {
		results = append(results, CheckDirectoryAccess("Run store directory", filepath.Dir(cfg.Store.Path)))
	}
	results = append(results, CheckTesseractLanguage(ctx, cfg.TesseractBinary(), cfg.OCR.Language))
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
