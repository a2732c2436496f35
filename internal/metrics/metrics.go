package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"slidecue/internal/slides"
)

const namespace = "slidecue"

// Recorder collects the metrics of one invocation in its own registry.
type Recorder struct {
	registry *prometheus.Registry

	runsTotal       *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	framesScanned   prometheus.Counter
	framesSampled   prometheus.Counter
	framesSkipped   prometheus.Counter
	ocrCalls        prometheus.Counter
	transitions     prometheus.Counter
	lastRunUnixTime prometheus.Gauge
}

// New returns a Recorder with every slidecue metric registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Lecture runs processed, by final status",
		}, []string{"status"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}, []string{"stage"}),
		framesScanned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_scanned_total",
			Help:      "Frames decoded while searching for the title slide",
		}),
		framesSampled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sampled_total",
			Help:      "Frames compared against the slide deck",
		}),
		framesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_skipped_total",
			Help:      "Frames dropped after a per-frame error",
		}),
		ocrCalls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ocr_calls_total",
			Help:      "Tesseract invocations",
		}),
		transitions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Confirmed slide transitions",
		}),
		lastRunUnixTime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}
}

// Registry exposes the underlying registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveStage records how long a pipeline stage took.
func (r *Recorder) ObserveStage(stage string, elapsed time.Duration) {
	r.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// ObserveDetection adds the counters of a finished detection run.
func (r *Recorder) ObserveDetection(result *slides.Result) {
	if result == nil {
		return
	}
	r.framesScanned.Add(float64(result.Stats.ScannedFrames))
	r.framesSampled.Add(float64(result.Stats.Samples))
	r.framesSkipped.Add(float64(result.Stats.SkippedFrames))
	r.ocrCalls.Add(float64(result.Stats.OCRCalls))
	r.transitions.Add(float64(len(result.Transitions)))
}

// ObserveRun counts a finished run under its status.
func (r *Recorder) ObserveRun(status string, finished time.Time) {
	r.runsTotal.WithLabelValues(status).Inc()
	r.lastRunUnixTime.Set(float64(finished.Unix()))
}

// WriteTextfile writes the registry in the node exporter textfile format.
// The file is replaced atomically so a scraping collector never sees a
// partial write.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
