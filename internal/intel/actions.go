package intel

import (
	"regexp"
	"strings"

	"github.com/minutewire/minutewire/internal/meeting"
)

// Extraction filters shared by action items and decisions.
const (
	minMatchChars = 10
	maxMatchChars = 200
)

// actionRule pairs a pattern with whether it is an explicit request, which
// exempts the match from the question-mark filter.
type actionRule struct {
	re        *regexp.Regexp
	isRequest bool
}

// actionRules are applied in order against each utterance; capture group 1
// is the candidate action text.
var actionRules = []actionRule{
	{re: regexp.MustCompile(`(?i)\b(?:todo|action)\s*:\s*(.+)`)},
	{re: regexp.MustCompile(`(?i)\bnext steps?\s*(?::|is|are)\s*(.+)`)},
	{re: regexp.MustCompile(`(?i)\bI(?:'ll| will| can| am going to)\s+(.+)`)},
	{re: regexp.MustCompile(`(?i)\bI (?:need|have) to\s+(.+)`)},
	{re: regexp.MustCompile(`(?i)\byou (?:should|need to|will|must|have to)\s+(.+)`)},
	{re: regexp.MustCompile(`(?i)\bwe (?:need to|should|will|must|have to)\s+(.+)`)},
	{re: regexp.MustCompile(`(?i)\blet's\s+(.+)`)},
	{re: regexp.MustCompile(`(?i)\b(?:can|could|would) you\s+(.+)`), isRequest: true},
	{re: regexp.MustCompile(`(?i)\bmake sure (?:to|that|we|you)\s+(.+)`)},
	{re: regexp.MustCompile(`(?i)\bdon't forget to\s+(.+)`)},
}

// Urgency keyword tiers, highest first.
var (
	urgentKeywords = []string{"urgent", "asap", "immediately", "critical", "right away", "right now", "today"}
	highKeywords   = []string{"important", "priority", "soon", "by tomorrow", "end of day", "this week"}
)

// deadlineRe matches date and weekday phrases following a deadline
// preposition.
var deadlineRe = regexp.MustCompile(`(?i)\b(?:by|before|on|until|due)\s+` +
	`((?:next\s+)?(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday|tomorrow|today|week|month)` +
	`|end of (?:the )?(?:day|week|month|quarter)` +
	`|(?:january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2}` +
	`|\d{1,2}(?:st|nd|rd|th)?(?:\s+of\s+\w+)?)`)

// categoryKeywords map verb domains to categories, checked in priority order.
var categoryKeywords = []struct {
	category Category
	words    []string
}{
	{CategoryCommunication, []string{"email", "call", "reach out", "contact", "message", "reply", "respond"}},
	{CategoryReview, []string{"review", "check", "look at", "verify", "test", "audit", "validate"}},
	{CategoryDeliverable, []string{"create", "build", "write", "prepare", "draft", "deliver", "finish", "ship", "implement"}},
	{CategoryMeeting, []string{"schedule", "meeting", "meet with", "book", "invite", "calendar"}},
	{CategoryUpdate, []string{"update", "sync", "report", "status", "share", "send over"}},
}

// extractActionItems applies the action rule table to every utterance,
// filters implausible matches, classifies the survivors, and deduplicates by
// normalized key keeping the first occurrence.
func extractActionItems(utterances []meeting.Utterance) []ActionItem {
	dedupe := newDeduper()
	items := make([]ActionItem, 0)

	for _, u := range utterances {
		// Rules run per sentence so a capture never spills across a
		// sentence boundary.
		for _, sentence := range sentencesKeepPunct(u.Text) {
			for _, rule := range actionRules {
				m := rule.re.FindStringSubmatch(sentence)
				if m == nil {
					continue
				}
				text := trimMatch(m[1])
				if !plausibleMatch(text, rule.isRequest) {
					continue
				}
				if !dedupe.add(text) {
					continue
				}
				items = append(items, ActionItem{
					Text:        text,
					UtteranceID: u.ID,
					SpeakerID:   u.SpeakerID,
					Timestamp:   u.Start,
					Priority:    classifyPriority(sentence),
					Assignee:    classifyAssignee(sentence),
					Deadline:    extractDeadline(sentence),
					Category:    classifyCategory(text),
				})
			}
		}
	}
	return items
}

// trimMatch trims whitespace and a trailing sentence terminator from a
// captured candidate.
func trimMatch(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimRight(s, ".!")
}

// plausibleMatch filters out fragments, rambles, and questions (unless the
// rule is an explicit request).
func plausibleMatch(text string, isRequest bool) bool {
	if len(text) < minMatchChars || len(text) > maxMatchChars {
		return false
	}
	if !isRequest && strings.Contains(text, "?") {
		return false
	}
	return true
}

func classifyPriority(text string) Priority {
	lower := strings.ToLower(text)
	for _, kw := range urgentKeywords {
		if strings.Contains(lower, kw) {
			return PriorityUrgent
		}
	}
	for _, kw := range highKeywords {
		if strings.Contains(lower, kw) {
			return PriorityHigh
		}
	}
	return PriorityNormal
}

func classifyAssignee(text string) Assignee {
	lower := " " + strings.ToLower(text) + " "
	switch {
	case strings.Contains(lower, " you "), strings.Contains(lower, " you'll "):
		return AssigneeListener
	case strings.Contains(lower, " i "), strings.Contains(lower, " i'll "), strings.HasPrefix(strings.TrimSpace(lower), "i "):
		return AssigneeSpeaker
	case strings.Contains(lower, " we "), strings.Contains(lower, " we'll "):
		return AssigneeTeam
	default:
		return AssigneeSpeaker
	}
}

func extractDeadline(text string) string {
	m := deadlineRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

func classifyCategory(text string) Category {
	lower := strings.ToLower(text)
	for _, ck := range categoryKeywords {
		for _, w := range ck.words {
			if strings.Contains(lower, w) {
				return ck.category
			}
		}
	}
	return CategoryTask
}
