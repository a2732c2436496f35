package preflight

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"slidecue/internal/config"
	"slidecue/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckReadable verifies that an input file exists and can be read.
func CheckReadable(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// Requirements lists the external tools the given configuration invokes.
func Requirements(cfg *config.Config) []deps.Requirement {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for frame decoding and chapter muxing",
			VersionArgs: []string{"-version"},
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for stream inspection",
			VersionArgs: []string{"-version"},
		},
		{
			Name:        "Tesseract",
			Command:     cfg.TesseractBinary(),
			Description: "Required for slide text recognition",
			VersionArgs: []string{"--version"},
		},
	}
	requirements = append(requirements, deps.Requirement{
		Name:        "uvx",
		Command:     "uvx",
		Description: "Runs WhisperX when no subtitle file is supplied",
		Optional:    !cfg.Transcription.Enabled,
		VersionArgs: []string{"--version"},
	})
	return requirements
}

// CheckSystemDeps evaluates all external tools for the given config.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(ctx, Requirements(cfg))
}

// CheckTesseractLanguage verifies that the configured OCR language data is
// installed by asking tesseract for its language list.
func CheckTesseractLanguage(ctx context.Context, binary, language string) Result {
	const name = "Tesseract language"
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(checkCtx, binary, "--list-langs").CombinedOutput() //nolint:gosec
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("list languages failed (%v)", err)}
	}
	langs := parseLanguageList(string(out))
	for _, want := range strings.Split(language, "+") {
		if !slices.Contains(langs, want) {
			return Result{Name: name, Detail: fmt.Sprintf("%s not installed", want)}
		}
	}
	return Result{Name: name, Passed: true, Detail: language}
}

// parseLanguageList extracts language codes from `tesseract --list-langs`,
// which prints a header line followed by one code per line.
func parseLanguageList(output string) []string {
	var langs []string
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.Contains(line, " ") {
			continue
		}
		langs = append(langs, line)
	}
	return langs
}
