// Package sentiment defines the closed sentiment label enumeration shared by
// the client and the ledger gateway, plus a small keyword analyzer the CLI
// uses to label entries. The sync engine only ever consumes the resulting
// Label; the analyzer itself is replaceable.
package sentiment

import (
	"strings"

	"github.com/ledgerink/ledgerink/internal/common"
)

// Label classifies the mood of an entry.
type Label string

const (
	LabelNeutral  Label = "neutral"
	LabelPositive Label = "positive"
	LabelNegative Label = "negative"
)

// Wire codes stored on the ledger. The ledger validates these at its
// boundary; entry text is opaque to it, the code is not.
const (
	CodeNeutral  = 0
	CodePositive = 1
	CodeNegative = 2
)

// Code returns the numeric wire code for the label.
func (l Label) Code() int {
	switch l {
	case LabelPositive:
		return CodePositive
	case LabelNegative:
		return CodeNegative
	default:
		return CodeNeutral
	}
}

// ParseLabel validates a textual label.
func ParseLabel(s string) (Label, error) {
	switch Label(strings.ToLower(strings.TrimSpace(s))) {
	case LabelNeutral:
		return LabelNeutral, nil
	case LabelPositive:
		return LabelPositive, nil
	case LabelNegative:
		return LabelNegative, nil
	default:
		return "", common.ErrInvalidSentiment
	}
}

// FromCode maps a wire code back to a label.
func FromCode(code int) (Label, error) {
	switch code {
	case CodeNeutral:
		return LabelNeutral, nil
	case CodePositive:
		return LabelPositive, nil
	case CodeNegative:
		return LabelNegative, nil
	default:
		return "", common.ErrInvalidSentiment
	}
}

// Analyzer produces a sentiment label for a plaintext entry.
type Analyzer interface {
	Analyze(text string) Label
}

// KeywordAnalyzer is a trivial bag-of-words heuristic. It exists so the CLI
// has a working default; anything implementing Analyzer can replace it.
type KeywordAnalyzer struct{}

var positiveWords = map[string]struct{}{
	"happy": {}, "great": {}, "good": {}, "love": {}, "excited": {},
	"grateful": {}, "calm": {}, "proud": {}, "joy": {}, "wonderful": {},
}

var negativeWords = map[string]struct{}{
	"sad": {}, "angry": {}, "bad": {}, "tired": {}, "anxious": {},
	"stressed": {}, "lonely": {}, "afraid": {}, "awful": {}, "worried": {},
}

// Analyze counts positive and negative keywords and returns the majority
// label, defaulting to neutral on a tie or no hits.
func (KeywordAnalyzer) Analyze(text string) Label {
	var pos, neg int
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:'\"()")
		if _, ok := positiveWords[w]; ok {
			pos++
		}
		if _, ok := negativeWords[w]; ok {
			neg++
		}
	}
	switch {
	case pos > neg:
		return LabelPositive
	case neg > pos:
		return LabelNegative
	default:
		return LabelNeutral
	}
}
