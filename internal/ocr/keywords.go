package ocr

import (
	"context"
	"image"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// KeywordMatcher decides whether every required keyword was read on screen.
// It is not safe for concurrent use.
type KeywordMatcher struct {
	keywords []string
	fold     cases.Caser
}

// NewKeywordMatcher returns a matcher for the given keywords. Matching is
// whole-word and case-insensitive under Unicode case folding.
func NewKeywordMatcher(keywords []string) *KeywordMatcher {
	m := &KeywordMatcher{fold: cases.Fold()}
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		kw = m.fold.String(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		m.keywords = append(m.keywords, kw)
	}
	return m
}

// Keywords returns the folded keyword set.
func (m *KeywordMatcher) Keywords() []string {
	return append([]string(nil), m.keywords...)
}

// Match reports whether every keyword appears as a standalone word among the
// words at or above minConfidence. An empty keyword set never matches.
func (m *KeywordMatcher) Match(words []Word, minConfidence float64) bool {
	if len(m.keywords) == 0 {
		return false
	}
	present := make(map[string]struct{})
	for _, w := range Confident(words, minConfidence) {
		for _, part := range splitWord(m.fold.String(w.Text)) {
			present[part] = struct{}{}
		}
	}
	for _, kw := range m.keywords {
		if _, ok := present[kw]; !ok {
			return false
		}
	}
	return true
}

// Missing returns the keywords not found among the confident words.
func (m *KeywordMatcher) Missing(words []Word, minConfidence float64) []string {
	present := make(map[string]struct{})
	for _, w := range Confident(words, minConfidence) {
		for _, part := range splitWord(m.fold.String(w.Text)) {
			present[part] = struct{}{}
		}
	}
	var missing []string
	for _, kw := range m.keywords {
		if _, ok := present[kw]; !ok {
			missing = append(missing, kw)
		}
	}
	return missing
}

// splitWord breaks OCR output such as "FH-AACHEN," into its word parts.
func splitWord(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

// Oracle runs OCR over a whole frame and checks for the keyword set.
type Oracle struct {
	Engine        Engine
	Matcher       *KeywordMatcher
	MinConfidence float64
}

// Present reports whether all keywords are visible in img.
func (o Oracle) Present(ctx context.Context, img image.Image) (bool, error) {
	words, err := o.Engine.Recognize(ctx, img)
	if err != nil {
		return false, err
	}
	return o.Check(words), nil
}

// Check applies the keyword test to words that were already recognized.
func (o Oracle) Check(words []Word) bool {
	if o.Matcher == nil {
		return false
	}
	return o.Matcher.Match(words, o.MinConfidence)
}
