package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains working, output, and log directory configuration.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Detection contains the tunables of the slide transition detector.
type Detection struct {
	Keywords                []string `toml:"keywords"`
	IgnoreKeywords          []string `toml:"ignore_keywords"`
	SamplingIntervalSeconds float64  `toml:"sampling_interval_seconds"`
	FirstSlideScanSeconds   float64  `toml:"first_slide_scan_seconds"`
	HashMaxDistance         int      `toml:"hash_max_distance"`
	DefiniteMatchDistance   int      `toml:"definite_match_distance"`
	SimilarityStrategy      string   `toml:"similarity_strategy"`
	JaccardThreshold        float64  `toml:"jaccard_threshold"`
	FuzzyThreshold          float64  `toml:"fuzzy_threshold"`
	MinTokenLength          int      `toml:"min_token_length"`
	RoIPadding              int      `toml:"roi_padding"`
	RoIMinWidth             int      `toml:"roi_min_width"`
	RoIMinHeight            int      `toml:"roi_min_height"`
	RoIMinArea              int      `toml:"roi_min_area"`
	PDFDPI                  float64  `toml:"pdf_dpi"`
}

// OCR contains configuration for the tesseract engine.
type OCR struct {
	Binary        string  `toml:"binary"`
	Language      string  `toml:"language"`
	PageSegMode   int     `toml:"psm"`
	EngineMode    int     `toml:"oem"`
	MinConfidence float64 `toml:"min_confidence"`
}

// Transcription contains configuration for WhisperX speech-to-text.
type Transcription struct {
	Enabled     bool   `toml:"enabled"`
	Model       string `toml:"model"`
	Language    string `toml:"language"`
	CUDAEnabled bool   `toml:"cuda_enabled"`
	VADMethod   string `toml:"vad_method"`
	HFToken     string `toml:"hf_token"`
}

// Chapters contains configuration for chapter marker embedding.
type Chapters struct {
	Enabled bool `toml:"enabled"`
}

// Store contains configuration for the run history database.
type Store struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Metrics contains configuration for the prometheus textfile export.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for slidecue.
//
// Configuration sections by subsystem:
//   - Paths: working, output, and log directories
//   - Detection: slide transition detector thresholds
//   - OCR: tesseract invocation and confidence floor
//   - Transcription: WhisperX speech-to-text
//   - Chapters: chapter marker embedding
//   - Store: run history database
//   - Metrics: prometheus textfile export
//   - Notifications: ntfy run notifications
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Detection     Detection     `toml:"detection"`
	OCR           OCR           `toml:"ocr"`
	Transcription Transcription `toml:"transcription"`
	Chapters      Chapters      `toml:"chapters"`
	Store         Store         `toml:"store"`
	Metrics       Metrics       `toml:"metrics"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("slidecue.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the working, output, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Store.Enabled && c.Store.Path != "" {
		if err := os.MkdirAll(filepath.Dir(c.Store.Path), 0o755); err != nil {
			return fmt.Errorf("create store directory: %w", err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for decoding and muxing.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for stream inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// TesseractBinary returns the configured tesseract executable.
func (c *Config) TesseractBinary() string {
	if strings.TrimSpace(c.OCR.Binary) == "" {
		return defaultTesseractBinary
	}
	return c.OCR.Binary
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
