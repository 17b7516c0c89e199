package intel

import (
	"strings"

	"github.com/minutewire/minutewire/internal/meeting"
)

// Question extraction tuning.
const (
	minQuestionChars = 10

	// answerLookahead is how many following utterances are scanned for a
	// reply.
	answerLookahead = 3

	// substantialReplyChars: a long reply is assumed to engage with the
	// question even without an explicit marker.
	substantialReplyChars = 50
)

// answerMarkers are affirmative/negative/hedging openers that signal a
// direct reply.
var answerMarkers = []string{
	"yes", "no", "yeah", "yep", "nope", "sure", "absolutely", "definitely",
	"correct", "right", "exactly", "of course", "not really", "i don't think",
	"i think", "probably", "maybe", "possibly", "i believe", "it depends",
}

// extractQuestions splits each utterance on sentence-final question marks
// and applies a shallow answered heuristic over the next few utterances.
func extractQuestions(utterances []meeting.Utterance) []Question {
	questions := make([]Question, 0)

	for i, u := range utterances {
		for _, sentence := range sentencesKeepPunct(u.Text) {
			if !strings.HasSuffix(sentence, "?") {
				continue
			}
			text := strings.TrimSpace(sentence)
			if len(text) < minQuestionChars {
				continue
			}
			questions = append(questions, Question{
				Text:        text,
				UtteranceID: u.ID,
				SpeakerID:   u.SpeakerID,
				Timestamp:   u.Start,
				Answered:    isAnswered(utterances, i),
			})
		}
	}
	return questions
}

// isAnswered scans the utterances after index i for anything that looks like
// a reply: an answer marker, or a reply long enough to be substantial.
func isAnswered(utterances []meeting.Utterance, i int) bool {
	end := i + 1 + answerLookahead
	if end > len(utterances) {
		end = len(utterances)
	}
	for _, u := range utterances[i+1 : end] {
		text := strings.TrimSpace(u.Text)
		if text == "" {
			continue
		}
		if len(text) > substantialReplyChars {
			return true
		}
		lower := strings.ToLower(text)
		for _, marker := range answerMarkers {
			if lower == marker || strings.HasPrefix(lower, marker+" ") ||
				strings.HasPrefix(lower, marker+",") || strings.Contains(lower, " "+marker+" ") {
				return true
			}
		}
	}
	return false
}
