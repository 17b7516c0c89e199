package intel

import (
	"strings"
	"unicode"
)

// Fixed sentiment keyword lists. Matching is whole-word over the lowercased
// transcript.
var (
	positiveWords = []string{
		"great", "good", "excellent", "awesome", "fantastic", "perfect",
		"love", "like", "happy", "glad", "excited", "wonderful", "amazing",
		"agree", "agreed", "progress", "success", "successful", "win",
		"works", "working", "solved", "improved", "better", "best", "thanks",
	}
	negativeWords = []string{
		"bad", "terrible", "awful", "horrible", "hate", "worried", "worry",
		"concern", "concerned", "problem", "problems", "issue", "issues",
		"blocked", "blocker", "fail", "failed", "failure", "broken", "bug",
		"delay", "delayed", "risk", "wrong", "difficult", "worse", "unhappy",
	}
)

// analyzeSentiment counts whole-word keyword occurrences across the full
// text; the neutral bucket is whatever sentence count remains.
func analyzeSentiment(fullText string, sentenceCount int) Sentiment {
	words := strings.FieldsFunc(strings.ToLower(fullText), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	counts := make(map[string]int, len(words))
	for _, w := range words {
		counts[w]++
	}

	var s Sentiment
	for _, w := range positiveWords {
		s.Positive += counts[w]
	}
	for _, w := range negativeWords {
		s.Negative += counts[w]
	}
	s.Neutral = sentenceCount - s.Positive - s.Negative
	if s.Neutral < 0 {
		s.Neutral = 0
	}
	return s
}
