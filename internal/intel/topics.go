package intel

import (
	"sort"
	"strings"
	"unicode"
)

// Topic extraction tuning.
const (
	maxTopics       = 12
	minWordCount    = 3 // single words must recur this often
	minBigramCount  = 2 // bigrams carry more signal, lower bar
	minTopicWordLen = 2
)

// stopWords are excluded from topic candidacy and from bigrams. Bigrams pair
// consecutive surviving words, so a pair may span removed stop words
// ("state of the art" counts "state art").
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "up": true, "about": true,
	"into": true, "over": true, "after": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "should": true, "could": true,
	"can": true, "may": true, "might": true, "must": true, "shall": true,
	"this": true, "that": true, "these": true, "those": true, "it": true,
	"its": true, "we": true, "our": true, "you": true, "your": true,
	"he": true, "she": true, "they": true, "them": true, "i": true,
	"me": true, "my": true, "so": true, "if": true, "then": true,
	"than": true, "as": true, "just": true, "like": true, "also": true,
	"there": true, "here": true, "what": true, "when": true, "where": true,
	"who": true, "how": true, "why": true, "not": true, "no": true,
	"yes": true, "okay": true, "ok": true, "yeah": true, "well": true,
	"think": true, "know": true, "going": true, "get": true, "got": true,
	"really": true, "very": true, "thing": true, "things": true,
}

// extractTopics lowercases the transcript, strips stop words, counts
// alphabetic words and adjacent-word bigrams, and returns the merged union
// sorted by descending frequency, truncated to the topic cap.
func extractTopics(fullText string) []Topic {
	words := topicTokens(fullText)

	wordCounts := make(map[string]int)
	bigramCounts := make(map[string]int)
	for i, w := range words {
		wordCounts[w]++
		if i+1 < len(words) {
			bigramCounts[w+" "+words[i+1]]++
		}
	}

	var topics []Topic
	for bg, n := range bigramCounts {
		if n >= minBigramCount {
			topics = append(topics, Topic{Text: bg, Count: n})
		}
	}
	for w, n := range wordCounts {
		if n >= minWordCount {
			topics = append(topics, Topic{Text: w, Count: n})
		}
	}

	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Count != topics[j].Count {
			return topics[i].Count > topics[j].Count
		}
		return topics[i].Text < topics[j].Text
	})

	if len(topics) > maxTopics {
		topics = topics[:maxTopics]
	}
	return topics
}

// topicTokens lowercases and tokenizes text into candidate topic words:
// alphabetic, at least two letters, not a stop word. Bigrams are formed from
// adjacency in this filtered sequence.
func topicTokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < minTopicWordLen || stopWords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}
