package slides

import (
	"slidecue/internal/deck"
	"slidecue/internal/phash"
	"slidecue/internal/textutil"
)

// Reason explains a tracker decision.
type Reason string

const (
	ReasonNoMatch          Reason = "no_match"
	ReasonAlreadySeen      Reason = "already_seen"
	ReasonDefiniteHash     Reason = "definite_hash"
	ReasonTextCorroborated Reason = "text_corroborated"
	ReasonTextRejected     Reason = "text_rejected"
)

// DefaultDefiniteDistance is the hash distance below which a match is
// accepted without consulting slide text.
const DefaultDefiniteDistance = 2

// Decision is the outcome of evaluating one sample against the deck.
type Decision struct {
	Confirm    bool
	Index      int
	Distance   int
	Similarity float64
	Reason     Reason
}

// Verdict is "confirm" or "skip".
func (d Decision) Verdict() string {
	if d.Confirm {
		return "confirm"
	}
	return "skip"
}

// DecisionOptions tunes the tracker.
type DecisionOptions struct {
	DefiniteDistance int
}

// Tracker remembers which slides were already shown so every page is
// confirmed at most once, at its first appearance.
type Tracker struct {
	index   *phash.Index
	scorer  textutil.Scorer
	tokens  [][]string
	opts    DecisionOptions
	current int
	seen    map[int]struct{}
}

// NewTracker returns a tracker with no slide shown yet.
func NewTracker(index *phash.Index, scorer textutil.Scorer, pages []deck.Page, opts DecisionOptions) *Tracker {
	tokens := make([][]string, len(pages))
	for i, page := range pages {
		tokens[i] = page.Tokens
	}
	return &Tracker{
		index:   index,
		scorer:  scorer,
		tokens:  tokens,
		opts:    opts,
		current: -1,
		seen:    make(map[int]struct{}),
	}
}

// Evaluate decides whether hash shows a slide not seen before. text is
// called only when the hash match alone is not conclusive. Evaluate does not
// change tracker state.
func (t *Tracker) Evaluate(hash phash.Hash, text func() (string, error)) (Decision, error) {
	match, ok := t.index.Nearest(hash)
	if !ok {
		return Decision{Index: -1, Distance: match.Distance, Reason: ReasonNoMatch}, nil
	}
	decision := Decision{Index: match.Index, Distance: match.Distance}
	if t.Seen(match.Index) {
		decision.Reason = ReasonAlreadySeen
		return decision, nil
	}
	if match.Distance < t.opts.DefiniteDistance {
		decision.Confirm = true
		decision.Reason = ReasonDefiniteHash
		return decision, nil
	}

	var frameText string
	if text != nil {
		var err error
		if frameText, err = text(); err != nil {
			return decision, err
		}
	}
	var pageTokens []string
	if match.Index < len(t.tokens) {
		pageTokens = t.tokens[match.Index]
	}
	score, accepted := t.scorer.Accept(textutil.Fields(frameText), pageTokens)
	decision.Similarity = score
	if accepted {
		decision.Confirm = true
		decision.Reason = ReasonTextCorroborated
	} else {
		decision.Reason = ReasonTextRejected
	}
	return decision, nil
}

// MarkConfirmed records index as shown and makes it the current slide.
func (t *Tracker) MarkConfirmed(index int) {
	t.seen[index] = struct{}{}
	t.current = index
}

// Current returns the most recently confirmed slide.
func (t *Tracker) Current() (int, bool) {
	return t.current, t.current >= 0
}

// Seen reports whether index was confirmed before.
func (t *Tracker) Seen(index int) bool {
	_, ok := t.seen[index]
	return ok
}

// SeenCount returns the number of confirmed slides.
func (t *Tracker) SeenCount() int {
	return len(t.seen)
}
