// Package livemerge folds overlapping sliding-window transcriptions into one
// continuously growing display string.
//
// Live snapshots are transcribed from a rolling audio window, so consecutive
// results share a word overlap at the seam. The Merger finds the longest
// suffix of the displayed text that matches a prefix of the incoming snapshot
// and appends only the remainder, keeping the display free of duplicate runs
// without ever touching meeting or diarization state.
//
// Not safe for concurrent use: the snapshot poller is non-overlapping, so
// there is exactly one caller per session.
package livemerge

import (
	"errors"
	"strings"
)

// ErrExtremeRepetition is returned by [Merger.Merge] when the incoming
// snapshot looks like a decoder hallucination loop. The display is left
// unchanged; callers log it as a soft warning.
var ErrExtremeRepetition = errors.New("livemerge: extreme repetition in snapshot")

const (
	defaultMaxOverlapWords = 15
	defaultMaxDisplayWords = 300

	// Repetition guard: a word sequence of length 5..10 occurring 5 or more
	// times marks the snapshot as hallucinated. Short enough sequences are
	// deliberately exempt so normal repeated phrases pass.
	repetitionMinSeqWords = 5
	repetitionMaxSeqWords = 10
	repetitionRejectCount = 5
)

// Merger accumulates the live display text across snapshots.
type Merger struct {
	words      []string
	maxOverlap int
	maxWords   int
}

// Option configures a Merger.
type Option func(*Merger)

// WithMaxOverlapWords bounds the overlap search length. Default 15.
func WithMaxOverlapWords(n int) Option {
	return func(m *Merger) { m.maxOverlap = n }
}

// WithMaxDisplayWords bounds the retained display buffer. Default 300.
func WithMaxDisplayWords(n int) Option {
	return func(m *Merger) { m.maxWords = n }
}

// NewMerger creates a Merger with an empty display.
func NewMerger(opts ...Option) *Merger {
	m := &Merger{
		maxOverlap: defaultMaxOverlapWords,
		maxWords:   defaultMaxDisplayWords,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Merge folds one snapshot transcription into the display and returns the
// updated display text. An empty snapshot is a no-op. A snapshot failing the
// repetition guard leaves the display unchanged and returns
// [ErrExtremeRepetition].
func (m *Merger) Merge(snapshot string) (string, error) {
	incoming := strings.Fields(snapshot)
	if len(incoming) == 0 {
		return m.Text(), nil
	}
	if extremeRepetition(incoming) {
		return m.Text(), ErrExtremeRepetition
	}

	m.words = append(m.words, incoming[m.overlap(incoming):]...)

	// Re-slice through a copy so the dropped prefix does not pin the old
	// backing array.
	if len(m.words) > m.maxWords {
		trimmed := make([]string, m.maxWords)
		copy(trimmed, m.words[len(m.words)-m.maxWords:])
		m.words = trimmed
	}
	return m.Text(), nil
}

// Text returns the current display string.
func (m *Merger) Text() string {
	return strings.Join(m.words, " ")
}

// WordCount returns the number of words currently displayed.
func (m *Merger) WordCount() int {
	return len(m.words)
}

// Reset clears the display.
func (m *Merger) Reset() {
	m.words = nil
}

// overlap returns the length of the longest suffix of the display that
// equals a prefix of incoming, compared word-by-word case-insensitively.
// Longest wins so repeated short phrases at the seam cannot truncate the
// match.
func (m *Merger) overlap(incoming []string) int {
	max := m.maxOverlap
	if len(m.words) < max {
		max = len(m.words)
	}
	if len(incoming) < max {
		max = len(incoming)
	}
	for n := max; n >= 1; n-- {
		if wordsEqualFold(m.words[len(m.words)-n:], incoming[:n]) {
			return n
		}
	}
	return 0
}

func wordsEqualFold(a, b []string) bool {
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

// extremeRepetition reports whether any exact word sequence of length 5..10
// occurs 5 or more times within words. Occurrences may overlap; comparison is
// case-insensitive.
func extremeRepetition(words []string) bool {
	lowered := make([]string, len(words))
	for i, w := range words {
		lowered[i] = strings.ToLower(w)
	}

	for seqLen := repetitionMinSeqWords; seqLen <= repetitionMaxSeqWords; seqLen++ {
		// Even fully overlapping occurrences need this many words.
		if len(lowered) < seqLen+repetitionRejectCount-1 {
			break
		}
		counts := make(map[string]int)
		for i := 0; i+seqLen <= len(lowered); i++ {
			key := strings.Join(lowered[i:i+seqLen], " ")
			counts[key]++
			if counts[key] >= repetitionRejectCount {
				return true
			}
		}
	}
	return false
}
