package config

import (
	"fmt"
	"os"
	"strings"

	"slidecue/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDetection()
	c.normalizeOCR()
	c.normalizeTranscription()
	if err := c.normalizeStore(); err != nil {
		return err
	}
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDetection() {
	c.Detection.Keywords = trimList(c.Detection.Keywords)
	c.Detection.IgnoreKeywords = trimList(c.Detection.IgnoreKeywords)
	c.Detection.SimilarityStrategy = strings.ToLower(strings.TrimSpace(c.Detection.SimilarityStrategy))
	if c.Detection.SimilarityStrategy == "" {
		c.Detection.SimilarityStrategy = defaultSimilarityStrategy
	}
	if c.Detection.PDFDPI == 0 {
		c.Detection.PDFDPI = defaultPDFDPI
	}
}

func (c *Config) normalizeOCR() {
	c.OCR.Binary = strings.TrimSpace(c.OCR.Binary)
	if c.OCR.Binary == "" {
		c.OCR.Binary = defaultTesseractBinary
	}
	// tesseract traineddata names are ISO 639-2 codes ("eng", "deu").
	c.OCR.Language = strings.ToLower(strings.TrimSpace(c.OCR.Language))
	switch {
	case c.OCR.Language == "":
		c.OCR.Language = defaultOCRLanguage
	case strings.Contains(c.OCR.Language, "+"):
	default:
		c.OCR.Language = language.ToTesseract(c.OCR.Language)
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		if value, ok := os.LookupEnv("WHISPER_MODEL"); ok && strings.TrimSpace(value) != "" {
			c.Transcription.Model = strings.TrimSpace(value)
		} else {
			c.Transcription.Model = defaultTranscriptionModel
		}
	}
	c.Transcription.Language = language.ToISO2(c.Transcription.Language)
	c.Transcription.VADMethod = strings.ToLower(strings.TrimSpace(c.Transcription.VADMethod))
	if c.Transcription.VADMethod == "" {
		c.Transcription.VADMethod = defaultTranscriptionVADMethod
	}
	c.Transcription.HFToken = strings.TrimSpace(c.Transcription.HFToken)
	if c.Transcription.HFToken == "" {
		if value, ok := os.LookupEnv("HUGGING_FACE_HUB_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeStore() error {
	var err error
	if strings.TrimSpace(c.Store.Path) == "" {
		c.Store.Path = defaultStorePath
	}
	if c.Store.Path, err = expandPath(c.Store.Path); err != nil {
		return fmt.Errorf("store.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeMetrics() error {
	var err error
	c.Metrics.Textfile = strings.TrimSpace(c.Metrics.Textfile)
	if c.Metrics.Textfile, err = expandPath(c.Metrics.Textfile); err != nil {
		return fmt.Errorf("metrics.textfile: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds == 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if value, ok := os.LookupEnv("SLIDECUE_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = strings.ToLower(strings.TrimSpace(value))
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func trimList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
