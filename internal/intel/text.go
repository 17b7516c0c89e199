package intel

import (
	"regexp"
	"strings"
)

// sentenceChunkRe captures sentences with their terminal punctuation so
// downstream filters can still see question marks.
var sentenceChunkRe = regexp.MustCompile(`[^.!?]+[.!?]*`)

// sentencesKeepPunct splits text into trimmed sentences, retaining each
// sentence's terminal punctuation.
func sentencesKeepPunct(text string) []string {
	matches := sentenceChunkRe.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimSpace(m)
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}
