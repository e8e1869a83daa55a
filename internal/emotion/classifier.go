package emotion

import (
	"context"
	"strings"
	"unicode"

	"github.com/coregx/ahocorasick"
)

// labelPatterns maps each label to its keyword/phrase matchers. Patterns are
// matched case-insensitively against canonicalized text.
var labelPatterns = map[Label][]string{
	LabelLoving: {
		"love you", "love u", "i love", "adore you", "my love", "babe",
		"baby", "sweetheart", "darling", "❤️", "😍", "miss you so much",
	},
	LabelHappy: {
		"so happy", "great day", "amazing", "awesome", "wonderful",
		"best day", "yay", "😊", "😄", "excited",
	},
	LabelPlayful: {
		"haha", "lol", "lmao", "hehe", "😜", "😛", "tease", "silly",
		"guess what", "bet you",
	},
	LabelSad: {
		"i'm sad", "im sad", "feeling down", "depressed", "crying",
		"cried", "miss you", "lonely night", "😢", "😭", "heartbroken",
	},
	LabelAngry: {
		"angry", "furious", "pissed", "hate this", "hate you", "annoyed",
		"shut up", "leave me alone", "😠", "😡",
	},
	LabelAnxious: {
		"worried", "anxious", "nervous", "scared", "stressed",
		"can't sleep", "cant sleep", "panic", "overthinking",
	},
	LabelJealous: {
		"jealous", "who is she", "who was that", "other girl", "other guy",
		"someone else", "your ex", "talking to her", "talking to him",
	},
	LabelLonely: {
		"i'm alone", "im alone", "all alone", "nobody", "no one cares",
		"by myself", "wish you were here",
	},
	LabelHorny: {
		"horny", "turned on", "want you so bad", "naughty", "in bed",
		"😏", "🥵", "send a pic", "what are you wearing",
	},
	LabelNeutral: {
		"ok", "okay", "fine", "sure", "maybe", "idk",
	},
}

// HeuristicClassifier scores each label by pattern hit count over a single
// Aho-Corasick automaton. Deterministic and allocation-light; it runs
// synchronously on every inbound message.
type HeuristicClassifier struct {
	ac             *ahocorasick.Automaton
	patternToLabel []Label
}

// NewHeuristicClassifier compiles the label patterns into an automaton.
func NewHeuristicClassifier() (*HeuristicClassifier, error) {
	var patterns []string
	var owners []Label
	for _, label := range Labels {
		for _, p := range labelPatterns[label] {
			patterns = append(patterns, canonicalize(p))
			owners = append(owners, label)
		}
	}

	ac, err := ahocorasick.NewBuilder().
		AddStrings(patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, err
	}

	return &HeuristicClassifier{ac: ac, patternToLabel: owners}, nil
}

// Classify returns the highest-scoring label for text. Empty or unscorable
// input yields the neutral label at low confidence, never an error.
func (c *HeuristicClassifier) Classify(_ context.Context, text string) Classification {
	if c == nil || c.ac == nil || strings.TrimSpace(text) == "" {
		return Neutral()
	}

	haystack := []byte(canonicalize(text))
	scores := make(map[Label]int, len(Labels))
	for _, m := range c.ac.FindAllOverlapping(haystack) {
		if m.PatternID < 0 || m.PatternID >= len(c.patternToLabel) {
			continue
		}
		scores[c.patternToLabel[m.PatternID]]++
	}

	best := LabelNeutral
	bestScore := 0
	for _, label := range Labels {
		if scores[label] > bestScore {
			best = label
			bestScore = scores[label]
		}
	}
	if bestScore == 0 {
		return Neutral()
	}
	return Classification{Label: best, Confidence: ClampConfidence(bestScore)}
}

// canonicalize lowercases and collapses separator runs to single spaces so
// multiword patterns match regardless of punctuation.
func canonicalize(s string) string {
	var out strings.Builder
	out.Grow(len(s))
	lastWasSpace := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) || r == ',' || r == '!' || r == '.' || r == '?' {
			if !lastWasSpace {
				out.WriteRune(' ')
				lastWasSpace = true
			}
			continue
		}
		out.WriteRune(r)
		lastWasSpace = false
	}
	return strings.TrimRight(out.String(), " ")
}
