// Package config loads, normalizes, and validates slidecue configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// WHISPER_MODEL and SLIDECUE_LOG_LEVEL. The Config type centralizes every
// detector threshold and external tool setting the CLI needs.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
