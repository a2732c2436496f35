package textutil

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"
)

func set(tokens ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		out[t] = struct{}{}
	}
	return out
}

func TestNormalizeTokens(t *testing.T) {
	got := NormalizeTokens(
		[]string{"FH", "Aachen", "Results:", "a", "95%", "RESULTS:", "of"},
		[]string{"FH", "AACHEN", "OF"},
		2,
	)
	want := set("results:", "95%")
	if len(got) != len(want) {
		t.Fatalf("NormalizeTokens() = %v, want %v", got, want)
	}
	for token := range want {
		if _, ok := got[token]; !ok {
			t.Fatalf("missing %q in %v", token, got)
		}
	}
}

func TestNormalizeTokensCountsRunes(t *testing.T) {
	got := NormalizeTokens([]string{"äö", "ü"}, nil, 2)
	if _, ok := got["äö"]; !ok || len(got) != 1 {
		t.Fatalf("expected only two-rune token kept, got %v", got)
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b map[string]struct{}
		want float64
	}{
		{"both empty", set(), set(), 0},
		{"one empty", set("a"), set(), 0},
		{"identical", set("a", "b"), set("b", "a"), 1},
		{"disjoint", set("a"), set("b"), 0},
		{"partial", set("a", "b", "c"), set("b", "c", "d"), 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Jaccard(tt.a, tt.b); got != tt.want {
				t.Errorf("Jaccard() = %v, want %v", got, tt.want)
			}
			if Jaccard(tt.a, tt.b) != Jaccard(tt.b, tt.a) {
				t.Error("Jaccard not symmetric")
			}
		})
	}
}

func TestTokenSetRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{"empty", "", "anything", 0, 0},
		{"subset", "neural networks", "Neural Networks explained simply", 100, 100},
		{"reordered", "gradient descent step", "step descent gradient", 100, 100},
		{"ocr noise", "convolutional layers pooling", "convolutiona1 layers poolinq", 70, 99},
		{"unrelated", "introduction", "zebra", 0, 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TokenSetRatio(tt.a, tt.b)
			if got < tt.min || got > tt.max {
				t.Errorf("TokenSetRatio(%q, %q) = %v, want in [%v, %v]", tt.a, tt.b, got, tt.min, tt.max)
			}
			if back := TokenSetRatio(tt.b, tt.a); math.Abs(back-got) > 1e-9 {
				t.Errorf("TokenSetRatio not symmetric: %v vs %v", got, back)
			}
		})
	}
}

func TestRatioUsesLongerLength(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"abc", "abcdef", 50},
		{"kitten", "sitting", 100 * (1 - 3.0/7)},
		{"folie", "folie", 100},
		{"", "", 100},
		{"über", "uber", 75},
	}
	for _, tt := range tests {
		if got := ratio(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ratio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestScorerJaccardThreshold(t *testing.T) {
	s := Scorer{Strategy: StrategyJaccard, Threshold: 0.65, Ignore: []string{"FH", "AACHEN"}, MinTokenLength: 2}
	page := Fields("FH AACHEN Methods data collection survey design")
	frame := Fields("Methods data collection survey FH")

	score, ok := s.Accept(frame, page)
	if score != 0.8 || !ok {
		t.Fatalf("Accept() = %v, %v; want 0.8, true", score, ok)
	}
	if _, ok := s.Accept(Fields("Results accuracy"), page); ok {
		t.Fatal("expected unrelated text to be rejected")
	}
	if s.Score(frame, page) != s.Score(page, frame) {
		t.Fatal("Score not symmetric")
	}
}

func TestScorerFuzzy(t *testing.T) {
	s := Scorer{Strategy: StrategyFuzzy, Threshold: 75, MinTokenLength: 2}
	score, ok := s.Accept(Fields("Methods data co1lection"), Fields("methods data collection"))
	if !ok {
		t.Fatalf("expected fuzzy accept, score %v", score)
	}
}

func TestScorerEmptyTextRejected(t *testing.T) {
	for _, strategy := range []Strategy{StrategyJaccard, StrategyFuzzy} {
		s := Scorer{Strategy: strategy, Threshold: 0.1, MinTokenLength: 2}
		if _, ok := s.Accept(nil, Fields("Methods")); ok {
			t.Fatalf("%s: empty frame text must not corroborate", strategy)
		}
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want Strategy
		ok   bool
	}{
		{"", StrategyJaccard, true},
		{" Jaccard ", StrategyJaccard, true},
		{"FUZZY", StrategyFuzzy, true},
		{"cosine", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseStrategy(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseStrategy(%q) = %q, %v", tt.in, got, ok)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	long := strings.Repeat("ä", 150) + ".mp4"
	tests := []struct {
		in   string
		want string
	}{
		{` Week 3: "Intro"/Basics? `, "Week 3- Intro-Basics"},
		{"..", ""},
		{"../../etc/passwd", "-..-etc-passwd"},
		{".hidden.mp4", "hidden.mp4"},
		{"tab\tname\x00.mp4", "tabname.mp4"},
	}
	for _, tt := range tests {
		if got := SanitizeFileName(tt.in); got != tt.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	got := SanitizeFileName(long)
	if len(got) > 200 || !strings.HasSuffix(got, ".mp4") || !utf8.ValidString(got) {
		t.Fatalf("long name not shortened cleanly: %d bytes %q", len(got), got)
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := map[string]string{
		"Text Rejected!":  "text_rejected",
		"text_rejected":   "text_rejected",
		"  ":              "unknown",
		"Slide--2":        "slide--2",
		"définite   hash": "d_finite_hash",
	}
	for in, want := range tests {
		if got := SanitizeToken(in); got != want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", in, got, want)
		}
	}
}
