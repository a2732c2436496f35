// Package ocr extracts words from frames and decides keyword presence.
//
// Engines return word records with confidence and pixel boxes. The tesseract
// engine shells out to the tesseract CLI in TSV mode. KeywordMatcher and
// Oracle implement the first-slide test: every configured keyword must be read
// as a whole word at or above the confidence floor.
package ocr
