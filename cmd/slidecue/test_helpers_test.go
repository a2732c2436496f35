package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"slidecue/internal/config"
	"slidecue/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

// setupCLITestEnv writes a config rooted in temp directories and stubs the
// external tools on PATH. tesseract reports the configured language.
func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SLIDECUE_LOG_LEVEL", "")

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	bin := testsupport.WriteScripts(t, filepath.Join(base, "bin"), map[string]string{
		"ffmpeg":    `echo "ffmpeg version 7.1"`,
		"ffprobe":   `echo "ffprobe version 7.1"`,
		"uvx":       `echo "uv 0.5.0"`,
		"tesseract": "echo 'List of available languages in \"/usr/share/tessdata/\" (2):'\necho eng\necho osd",
	})
	testsupport.PrependPath(t, bin)

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	configPath := filepath.Join(base, "slidecue.toml")
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\nactual: %s", needle, haystack)
	}
}
