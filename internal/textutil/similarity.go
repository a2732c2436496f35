package textutil

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Strategy names a token similarity measure.
type Strategy string

const (
	// StrategyJaccard scores token-set overlap in [0, 1].
	StrategyJaccard Strategy = "jaccard"
	// StrategyFuzzy scores a token-set Levenshtein ratio in [0, 100].
	StrategyFuzzy Strategy = "fuzzy"
)

// Fields splits text on runs of whitespace. Punctuation stays attached.
func Fields(text string) []string {
	return strings.Fields(text)
}

// NormalizeTokens lowercases tokens and drops those shorter than minLen runes
// or present in ignore. Ignore entries are compared case-insensitively.
func NormalizeTokens(tokens []string, ignore []string, minLen int) map[string]struct{} {
	skip := make(map[string]struct{}, len(ignore))
	for _, word := range ignore {
		skip[strings.ToLower(strings.TrimSpace(word))] = struct{}{}
	}
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		token = strings.ToLower(token)
		if _, ok := skip[token]; ok {
			continue
		}
		if utf8.RuneCountInString(token) < minLen {
			continue
		}
		out[token] = struct{}{}
	}
	return out
}

// Jaccard returns |a ∩ b| / |a ∪ b|, or 0 when both sets are empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for token := range a {
		if _, ok := b[token]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// TokenSetRatio compares the whitespace tokens of a and b after lowercasing.
// It returns 0 when either side has no tokens. Strings are compared with a
// Levenshtein ratio over the longer length, which scores unequal lengths
// lower than the Indel ratio over the summed length: "abc" against "abcdef"
// is 50 here and 66.7 under Indel.
func TokenSetRatio(a, b string) float64 {
	return tokenSetRatio(NormalizeTokens(Fields(a), nil, 0), NormalizeTokens(Fields(b), nil, 0))
}

// tokenSetRatio builds the sorted intersection and the two sorted
// intersection-plus-remainder strings, and returns the best pairwise ratio.
func tokenSetRatio(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var inter, onlyA, onlyB []string
	for token := range a {
		if _, ok := b[token]; ok {
			inter = append(inter, token)
		} else {
			onlyA = append(onlyA, token)
		}
	}
	for token := range b {
		if _, ok := a[token]; !ok {
			onlyB = append(onlyB, token)
		}
	}
	slices.Sort(inter)
	slices.Sort(onlyA)
	slices.Sort(onlyB)

	sect := strings.Join(inter, " ")
	if sect != "" && (len(onlyA) == 0 || len(onlyB) == 0) {
		return 100
	}
	combinedA := strings.TrimSpace(sect + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(sect + " " + strings.Join(onlyB, " "))

	best := ratio(combinedA, combinedB)
	if sect != "" {
		best = max(best, ratio(sect, combinedA), ratio(sect, combinedB))
	}
	return best
}

// ratio is 100 * (1 - levenshtein distance / longer length), measured in
// runes. Substitutions cost one edit.
func ratio(a, b string) float64 {
	longer := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longer == 0 {
		return 100
	}
	d := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(d)/float64(longer))
}

// Scorer decides whether two token lists describe the same slide.
type Scorer struct {
	Strategy       Strategy
	Threshold      float64
	Ignore         []string
	MinTokenLength int
}

// Score returns the similarity of a and b under the configured strategy.
// Jaccard scores lie in [0, 1] and fuzzy scores in [0, 100].
func (s Scorer) Score(a, b []string) float64 {
	left := NormalizeTokens(a, s.Ignore, s.MinTokenLength)
	right := NormalizeTokens(b, s.Ignore, s.MinTokenLength)
	if s.Strategy == StrategyFuzzy {
		return tokenSetRatio(left, right)
	}
	return Jaccard(left, right)
}

// Accept reports whether Score reaches the threshold.
func (s Scorer) Accept(a, b []string) (float64, bool) {
	score := s.Score(a, b)
	return score, score >= s.Threshold
}

// ParseStrategy maps a configured name to a Strategy.
func ParseStrategy(name string) (Strategy, bool) {
	switch Strategy(strings.ToLower(strings.TrimSpace(name))) {
	case StrategyJaccard, "":
		return StrategyJaccard, true
	case StrategyFuzzy:
		return StrategyFuzzy, true
	default:
		return "", false
	}
}
