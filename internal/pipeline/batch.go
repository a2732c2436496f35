package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"slidecue/internal/logging"
)

// Manifest is a TOML file listing lectures to process together.
//
//	output_dir = "out"
//
//	[[job]]
//	video = "week1.mp4"
//	deck = "week1.pdf"
//	subtitles = "week1.srt"
//	chapters = true
type Manifest struct {
	OutputDir string        `toml:"output_dir"`
	Jobs      []ManifestJob `toml:"job"`
}

// ManifestJob is one [[job]] entry of a Manifest.
type ManifestJob struct {
	Video     string `toml:"video"`
	Deck      string `toml:"deck"`
	Subtitles string `toml:"subtitles"`
	Chapters  bool   `toml:"chapters"`
	OutputDir string `toml:"output_dir"`
}

// LoadManifest reads a manifest and returns its jobs. Relative paths are
// resolved against the manifest's directory.
func LoadManifest(path string) ([]Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Jobs) == 0 {
		return nil, fmt.Errorf("manifest %s lists no jobs", path)
	}

	base := filepath.Dir(path)
	resolve := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	jobs := make([]Job, 0, len(m.Jobs))
	for i, entry := range m.Jobs {
		if strings.TrimSpace(entry.Video) == "" || strings.TrimSpace(entry.Deck) == "" {
			return nil, fmt.Errorf("manifest job %d: video and deck are required", i+1)
		}
		job := Job{
			Video:     ExistingFile(resolve(entry.Video)),
			Deck:      ExistingFile(resolve(entry.Deck)),
			Chapters:  entry.Chapters,
			OutputDir: resolve(entry.OutputDir),
		}
		if job.OutputDir == "" {
			job.OutputDir = resolve(m.OutputDir)
		}
		if entry.Subtitles != "" {
			job.Subtitles = ExistingFile(resolve(entry.Subtitles))
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// BatchItem is the result of one job in a batch.
type BatchItem struct {
	Job     Job
	Outcome *Outcome
	Err     error
}

// RunBatch processes jobs in order. A failing job is logged and the batch
// continues; only cancellation of ctx stops it early, leaving the remaining
// jobs without results.
func (p *Pipeline) RunBatch(ctx context.Context, jobs []Job) []BatchItem {
	started := time.Now()
	items := make([]BatchItem, 0, len(jobs))
	for i, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		outcome, err := p.Process(ctx, job)
		items = append(items, BatchItem{Job: job, Outcome: outcome, Err: err})
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.WarnWithContext(p.logger, "batch job failed", "batch_item_failed", "continuing with next job",
				logging.Int("job", i+1),
				logging.String("video", job.Video.Name()),
				logging.String("reason", Describe(err)),
			)
		}
	}
	if p.deps.Notifier != nil && ctx.Err() == nil {
		if err := p.deps.Notifier.BatchCompleted(ctx, len(items), Failures(items), time.Since(started)); err != nil {
			logging.WarnWithContext(p.logger, "failed to send notification", "notification", "batch result not announced", logging.Error(err))
		}
	}
	return items
}

// Failures counts the items that ended in error.
func Failures(items []BatchItem) int {
	n := 0
	for _, item := range items {
		if item.Err != nil {
			n++
		}
	}
	return n
}
