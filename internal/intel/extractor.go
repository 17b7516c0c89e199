package intel

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/minutewire/minutewire/internal/meeting"
	"github.com/minutewire/minutewire/pkg/provider/summarize"
)

// ErrTranscriptTooShort is returned by [Extractor.Generate] when the
// concatenated transcript is under the minimum length for extraction.
// Callers keep their previous report in that case.
var ErrTranscriptTooShort = errors.New("intel: transcript too short for extraction")

// minTranscriptChars is the minimum concatenated transcript length for a
// report to be generated.
const minTranscriptChars = 50

// Extractor generates intelligence reports from utterance snapshots.
//
// Safe for concurrent use: it holds no mutable state between calls. An
// optional abstractive summarizer may be injected; when it is nil or fails,
// the extractive summary path is the baseline and fallback.
type Extractor struct {
	summarizer summarize.Provider
}

// Option is a functional option for [NewExtractor].
type Option func(*Extractor)

// WithSummarizer injects an abstractive summarization provider. The
// extractive path remains the fallback when the provider errors.
func WithSummarizer(p summarize.Provider) Option {
	return func(e *Extractor) { e.summarizer = p }
}

// NewExtractor creates an Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Generate runs all extraction stages over the utterance snapshot and
// returns a fully populated report. The snapshot is read-only; Generate
// never mutates utterances.
//
// Returns [ErrTranscriptTooShort] when the concatenated transcript is under
// 50 characters.
func (e *Extractor) Generate(ctx context.Context, utterances []meeting.Utterance) (*Report, error) {
	fullText := joinUtteranceText(utterances)
	if len(fullText) < minTranscriptChars {
		return nil, ErrTranscriptTooShort
	}

	sentences := splitSentences(fullText)

	r := &Report{
		Summary:     e.summarize(ctx, fullText, sentences),
		ActionItems: extractActionItems(utterances),
		Decisions:   extractDecisions(utterances),
		Topics:      extractTopics(fullText),
		Questions:   extractQuestions(utterances),
		Sentiment:   analyzeSentiment(fullText, len(sentences)),
		KeyPoints:   extractKeyPoints(sentences),
	}
	return r, nil
}

// summarize prefers the abstractive provider when one is configured, falling
// back to the extractive path on any failure.
func (e *Extractor) summarize(ctx context.Context, fullText string, sentences []string) Summary {
	if e.summarizer != nil {
		if s, err := abstractiveSummary(ctx, e.summarizer, fullText); err == nil {
			return s
		} else {
			slog.Warn("abstractive summarization failed, falling back to extractive", "err", err)
		}
	}
	return extractiveSummary(sentences)
}

func joinUtteranceText(utterances []meeting.Utterance) string {
	var b strings.Builder
	for _, u := range utterances {
		text := strings.TrimSpace(u.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(text)
	}
	return b.String()
}
