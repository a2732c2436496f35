package ocr

import (
	"context"
	"image"
	"strings"
)

// Word is one recognized word with its confidence (0-100) and pixel box.
type Word struct {
	Text       string
	Confidence float64
	Left       int
	Top        int
	Width      int
	Height     int
}

// Engine recognizes words in an image.
type Engine interface {
	Recognize(ctx context.Context, img image.Image) ([]Word, error)
}

// Confident returns the words at or above minConfidence, in reading order.
func Confident(words []Word, minConfidence float64) []Word {
	out := make([]Word, 0, len(words))
	for _, w := range words {
		if w.Confidence >= minConfidence && strings.TrimSpace(w.Text) != "" {
			out = append(out, w)
		}
	}
	return out
}

// ConfidentText joins the confident words with single spaces.
func ConfidentText(words []Word, minConfidence float64) string {
	kept := Confident(words, minConfidence)
	parts := make([]string, len(kept))
	for i, w := range kept {
		parts[i] = strings.TrimSpace(w.Text)
	}
	return strings.Join(parts, " ")
}
