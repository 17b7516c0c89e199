// Package intel implements the transcript intelligence extractor: a pure,
// rule-based pass over a diarized utterance list that produces action items,
// decisions, topics, questions, sentiment, and summaries.
//
// Extraction is recompute-on-demand by design. Every call to
// [Extractor.Generate] runs all stages against the full utterance snapshot,
// so a report is always internally consistent with the transcript at the
// moment of generation; there is no incremental update path and no partial
// staleness. The stages themselves are pure functions of the input text, each
// isolated behind its own rule table so individual rules can be tested on
// their own.
package intel

import (
	"time"

	"github.com/google/uuid"
)

// Priority classifies how urgent an action item is.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
)

// Category groups action items by verb domain.
type Category string

const (
	CategoryCommunication Category = "communication"
	CategoryReview        Category = "review"
	CategoryDeliverable   Category = "deliverable"
	CategoryMeeting       Category = "meeting"
	CategoryUpdate        Category = "update"
	CategoryTask          Category = "task"
)

// Assignee is the pronoun-derived owner of an action item.
type Assignee string

const (
	AssigneeSpeaker  Assignee = "speaker"
	AssigneeListener Assignee = "listener"
	AssigneeTeam     Assignee = "team"
)

// ActionItem is an extracted commitment or task.
type ActionItem struct {
	Text        string        `json:"text"`
	UtteranceID uuid.UUID     `json:"utteranceId"`
	SpeakerID   int           `json:"speakerId"`
	Timestamp   time.Duration `json:"timestamp"`
	Priority    Priority      `json:"priority"`
	Assignee    Assignee      `json:"assignee"`
	Deadline    string        `json:"deadline,omitempty"`
	Category    Category      `json:"category"`
}

// Decision is an extracted agreement or resolution.
type Decision struct {
	Text        string        `json:"text"`
	UtteranceID uuid.UUID     `json:"utteranceId"`
	SpeakerID   int           `json:"speakerId"`
	Timestamp   time.Duration `json:"timestamp"`
	Confirmed   bool          `json:"confirmed"`
}

// Question is an extracted question with a shallow answered heuristic.
type Question struct {
	Text        string        `json:"text"`
	UtteranceID uuid.UUID     `json:"utteranceId"`
	SpeakerID   int           `json:"speakerId"`
	Timestamp   time.Duration `json:"timestamp"`
	Answered    bool          `json:"answered"`
}

// Topic is a recurring word or bigram ranked by frequency.
type Topic struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// Sentiment holds whole-word sentiment keyword counts; Neutral is the
// remainder of sentence count not matched either way.
type Sentiment struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// Summary carries the three summary granularities.
type Summary struct {
	Executive string   `json:"executive"`
	Standard  string   `json:"standard"`
	Detailed  []string `json:"detailed"`
}

// Report is the full intelligence output for one transcript snapshot.
// It is a plain serializable structure with no behavior, and a pure function
// of the input snapshot: generating twice from the same snapshot yields
// identical reports.
type Report struct {
	Summary     Summary      `json:"summary"`
	ActionItems []ActionItem `json:"actionItems"`
	Decisions   []Decision   `json:"decisions"`
	Topics      []Topic      `json:"topics"`
	Questions   []Question   `json:"questions"`
	Sentiment   Sentiment    `json:"sentiment"`
	KeyPoints   []string     `json:"keyPoints"`
}
