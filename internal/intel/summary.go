package intel

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/minutewire/minutewire/pkg/provider/summarize"
)

// Extractive summary tuning.
const (
	executiveSentences = 2
	standardSentences  = 5
	detailedSentences  = 8

	// Sentence length bands (in words): shorter is penalized, the sweet spot
	// is rewarded, rambling is penalized.
	shortSentenceWords = 5
	idealMinWords      = 10
	idealMaxWords      = 30

	positionBonus = 2.0
	keywordBonus  = 1.5
	idealBonus    = 1.0
	lengthPenalty = 1.0

	// abstractiveChunkWords caps the words per chunk handed to the
	// abstractive provider; chunks break at sentence boundaries.
	abstractiveChunkWords = 1000
)

// summaryKeywords mark sentences that likely carry conclusions or
// commitments.
var summaryKeywords = []string{
	"decided", "agreed", "action", "must", "should", "will",
	"important", "key", "critical", "conclusion", "next step",
	"deadline", "deliver", "launch", "budget", "approve",
}

var sentenceSplitRe = regexp.MustCompile(`[.!?]+\s+|[.!?]+$`)

// splitSentences breaks text into trimmed sentences, dropping empties.
func splitSentences(text string) []string {
	parts := sentenceSplitRe.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

type scoredSentence struct {
	index int
	text  string
	score float64
}

// extractiveSummary scores each sentence by position, length band, and
// keyword presence, takes the top N per granularity, and restores original
// order within each.
func extractiveSummary(sentences []string) Summary {
	if len(sentences) == 0 {
		return Summary{}
	}

	scored := make([]scoredSentence, len(sentences))
	for i, s := range sentences {
		scored[i] = scoredSentence{index: i, text: s, score: scoreSentence(s, i, len(sentences))}
	}

	return Summary{
		Executive: strings.Join(topSentences(scored, executiveSentences), " "),
		Standard:  strings.Join(topSentences(scored, standardSentences), " "),
		Detailed:  topSentences(scored, detailedSentences),
	}
}

func scoreSentence(s string, index, total int) float64 {
	var score float64

	// Openers and closers tend to carry framing and conclusions.
	if index == 0 || index == total-1 {
		score += positionBonus
	}

	words := len(strings.Fields(s))
	switch {
	case words < shortSentenceWords || words > idealMaxWords:
		score -= lengthPenalty
	case words >= idealMinWords:
		score += idealBonus
	}

	lower := strings.ToLower(s)
	for _, kw := range summaryKeywords {
		if strings.Contains(lower, kw) {
			score += keywordBonus
		}
	}
	return score
}

// topSentences picks the n highest-scoring sentences and returns them in
// their original transcript order. Ties break toward earlier sentences so
// the selection is deterministic.
func topSentences(scored []scoredSentence, n int) []string {
	if n > len(scored) {
		n = len(scored)
	}
	byScore := make([]scoredSentence, len(scored))
	copy(byScore, scored)
	sort.SliceStable(byScore, func(i, j int) bool {
		if byScore[i].score != byScore[j].score {
			return byScore[i].score > byScore[j].score
		}
		return byScore[i].index < byScore[j].index
	})

	picked := byScore[:n]
	sort.Slice(picked, func(i, j int) bool { return picked[i].index < picked[j].index })

	out := make([]string, len(picked))
	for i, s := range picked {
		out[i] = s.text
	}
	return out
}

// abstractiveSummary chunks the transcript at sentence boundaries, summarizes
// each chunk through the provider, and assembles the granularities from the
// concatenated chunk summaries.
func abstractiveSummary(ctx context.Context, p summarize.Provider, fullText string) (Summary, error) {
	chunks := chunkBySentences(fullText, abstractiveChunkWords)

	var parts []string
	for _, chunk := range chunks {
		s, err := p.Summarize(ctx, chunk)
		if err != nil {
			return Summary{}, err
		}
		s = strings.TrimSpace(s)
		if s != "" {
			parts = append(parts, s)
		}
	}

	combined := strings.Join(parts, " ")
	sentences := splitSentences(combined)

	sum := extractiveSummary(sentences)
	// The combined abstractive text is itself the standard summary; the
	// extractive pass over it only condenses the executive view.
	sum.Standard = combined
	return sum, nil
}

// chunkBySentences splits text into pieces of at most maxWords words without
// breaking sentences. A single over-long sentence becomes its own chunk.
func chunkBySentences(text string, maxWords int) []string {
	sentences := splitSentences(text)
	var (
		chunks  []string
		current []string
		words   int
	)
	for _, s := range sentences {
		n := len(strings.Fields(s))
		if words+n > maxWords && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, ". ")+".")
			current = current[:0]
			words = 0
		}
		current = append(current, s)
		words += n
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, ". ")+".")
	}
	return chunks
}

// extractKeyPoints returns the sentences that mention commitment keywords,
// in transcript order, capped at the detailed summary size.
func extractKeyPoints(sentences []string) []string {
	var out []string
	for _, s := range sentences {
		lower := strings.ToLower(s)
		for _, kw := range summaryKeywords {
			if strings.Contains(lower, kw) {
				out = append(out, s)
				break
			}
		}
		if len(out) == detailedSentences {
			break
		}
	}
	return out
}
