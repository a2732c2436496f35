// Package language normalizes language codes for the OCR and transcription
// tools.
//
// Tesseract names its traineddata after ISO 639-2 codes with a few script
// suffixes, while WhisperX expects ISO 639-1. Configuration may use either
// form or the English word.
package language
