package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateOCR(); err != nil {
		return err
	}
	if c.Notifications.RequestTimeoutSeconds < 0 {
		return errors.New("notifications.request_timeout_seconds must be >= 0")
	}
	if topic := c.Notifications.NtfyTopic; topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic %q must be an http(s) URL", topic)
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDetection() error {
	d := c.Detection
	if len(d.Keywords) == 0 {
		return errors.New("detection.keywords must contain at least one keyword")
	}
	for _, kw := range d.Keywords {
		if strings.ContainsAny(kw, " \t") {
			return fmt.Errorf("detection.keywords entry %q must be a single word", kw)
		}
	}
	if d.SamplingIntervalSeconds <= 0 || d.SamplingIntervalSeconds > maxSamplingIntervalSeconds {
		return fmt.Errorf("detection.sampling_interval_seconds must be in (0, %g]", maxSamplingIntervalSeconds)
	}
	if d.FirstSlideScanSeconds < minFirstSlideScanSeconds {
		return errors.New("detection.first_slide_scan_seconds must be positive")
	}
	if d.HashMaxDistance < 0 || d.HashMaxDistance > hashBits {
		return fmt.Errorf("detection.hash_max_distance must be between 0 and %d", hashBits)
	}
	if d.DefiniteMatchDistance < 0 || d.DefiniteMatchDistance > d.HashMaxDistance+1 {
		return errors.New("detection.definite_match_distance must be between 0 and hash_max_distance+1")
	}
	switch d.SimilarityStrategy {
	case similarityStrategyJaccard, similarityStrategyFuzzy:
	default:
		return fmt.Errorf("detection.similarity_strategy %q must be %q or %q", d.SimilarityStrategy, similarityStrategyJaccard, similarityStrategyFuzzy)
	}
	if d.JaccardThreshold < 0 || d.JaccardThreshold > 1 {
		return errors.New("detection.jaccard_threshold must be between 0 and 1")
	}
	if d.FuzzyThreshold < 0 || d.FuzzyThreshold > maxPercent {
		return errors.New("detection.fuzzy_threshold must be between 0 and 100")
	}
	if d.MinTokenLength < 0 {
		return errors.New("detection.min_token_length must be >= 0")
	}
	if d.RoIPadding < 0 {
		return errors.New("detection.roi_padding must be >= 0")
	}
	if err := ensurePositiveMap(map[string]int{
		"detection.roi_min_width":  d.RoIMinWidth,
		"detection.roi_min_height": d.RoIMinHeight,
		"detection.roi_min_area":   d.RoIMinArea,
	}); err != nil {
		return err
	}
	if d.PDFDPI <= 0 {
		return errors.New("detection.pdf_dpi must be positive")
	}
	return nil
}

func (c *Config) validateOCR() error {
	if c.OCR.MinConfidence < 0 || c.OCR.MinConfidence > maxPercent {
		return errors.New("ocr.min_confidence must be between 0 and 100")
	}
	if c.OCR.PageSegMode < 0 || c.OCR.PageSegMode > 13 {
		return errors.New("ocr.psm must be between 0 and 13")
	}
	if c.OCR.EngineMode < 0 || c.OCR.EngineMode > 3 {
		return errors.New("ocr.oem must be between 0 and 3")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
