package intel

import (
	"regexp"

	"github.com/minutewire/minutewire/internal/meeting"
)

// decisionRules are applied in order against each utterance; capture group 1
// is the candidate decision text.
var decisionRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bwe (?:decided|agreed) (?:to|that|on)\s+(.+)`),
	regexp.MustCompile(`(?i)\b(?:decision|agreed|resolved)\s*:\s*(.+)`),
	regexp.MustCompile(`(?i)\bit(?:'s| is| was) (?:decided|agreed|settled) that\s+(.+)`),
	regexp.MustCompile(`(?i)\b(?:the )?final decision is\s+(?:to\s+)?(.+)`),
	regexp.MustCompile(`(?i)\b(?:we have|we've) (?:a )?consensus (?:to|that|on)\s+(.+)`),
	regexp.MustCompile(`(?i)\blet's go with\s+(.+)`),
	regexp.MustCompile(`(?i)\b(?:approved|signed off on)\s+(.+)`),
	regexp.MustCompile(`(?i)\bwe(?:'re| are) going (?:to go )?with\s+(.+)`),
}

// extractDecisions mirrors the action extraction: same length and question
// filters, same first-occurrence deduplication. Extracted decisions carry
// confirmed=true; the rules only fire on affirmative phrasings.
func extractDecisions(utterances []meeting.Utterance) []Decision {
	dedupe := newDeduper()
	decisions := make([]Decision, 0)

	for _, u := range utterances {
		for _, sentence := range sentencesKeepPunct(u.Text) {
			for _, re := range decisionRules {
				m := re.FindStringSubmatch(sentence)
				if m == nil {
					continue
				}
				text := trimMatch(m[1])
				if !plausibleMatch(text, false) {
					continue
				}
				if !dedupe.add(text) {
					continue
				}
				decisions = append(decisions, Decision{
					Text:        text,
					UtteranceID: u.ID,
					SpeakerID:   u.SpeakerID,
					Timestamp:   u.Start,
					Confirmed:   true,
				})
			}
		}
	}
	return decisions
}
