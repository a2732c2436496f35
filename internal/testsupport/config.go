package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"slidecue/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The run store lives under the same root and the directories exist on return.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Store.Path = filepath.Join(base, "state", "runs.db")
	cfgVal.Metrics.Textfile = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithTranscription toggles WhisperX transcription on the test config.
func WithTranscription(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Transcription.Enabled = enabled
	}
}

// WithChapters toggles chapter embedding on the test config.
func WithChapters(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Chapters.Enabled = enabled
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the slidecue external tools are
// stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe", "tesseract", "uvx"}
		}
		stubs := make(map[string]string, len(names))
		for _, name := range names {
			stubs[name] = "exit 0"
		}
		PrependPath(b.t, WriteScripts(b.t, filepath.Join(b.baseDir, "bin"), stubs))
	}
}

// WriteScripts writes each body as an executable shell script named by its
// key inside dir and returns dir.
func WriteScripts(t testing.TB, dir string, scripts map[string]string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	for name, body := range scripts {
		target := filepath.Join(dir, name)
		if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}
	return dir
}

// PrependPath puts dir first on PATH for the rest of the test.
func PrependPath(t testing.TB, dir string) {
	t.Helper()
	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
