// Package meeting defines the Meeting aggregate: the ordered, append-only
// record of diarized utterances for one live session.
//
// A Meeting has exactly one writer — the live session that appends completed
// utterances — and any number of readers working from [Meeting.Snapshot]
// copies. Utterances are immutable once appended; the speaker assignment is
// written at creation time by the clusterer and never changes afterwards.
// All exported types are plain serializable structures so persistence and
// export collaborators can store them without behavior attached.
package meeting

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/minutewire/minutewire/internal/diarize"
)

// WordSpan is a word-level time span reported by the transcription service.
type WordSpan struct {
	Word       string        `json:"word"`
	Start      time.Duration `json:"start"`
	End        time.Duration `json:"end"`
	Confidence float64       `json:"confidence,omitempty"`
}

// Utterance is one contiguous, transcribed speech segment attributed to a
// speaker. Never mutated after being appended to a Meeting.
type Utterance struct {
	ID        uuid.UUID             `json:"id"`
	Start     time.Duration         `json:"start"`
	Duration  time.Duration         `json:"duration"`
	SpeakerID int                   `json:"speakerId"`
	Text      string                `json:"text"`
	Words     []WordSpan            `json:"words,omitempty"`
	Features  diarize.FeatureVector `json:"features"`
}

// Meeting owns the ordered utterance list for one session.
type Meeting struct {
	mu sync.RWMutex

	id         uuid.UUID
	title      string
	startedAt  time.Time
	utterances []Utterance
}

// New creates an empty Meeting starting now.
func New(title string) *Meeting {
	return &Meeting{
		id:        uuid.New(),
		title:     title,
		startedAt: time.Now().UTC(),
	}
}

// ID returns the meeting identifier.
func (m *Meeting) ID() uuid.UUID { return m.id }

// Title returns the meeting title.
func (m *Meeting) Title() string { return m.title }

// StartedAt returns the meeting start time.
func (m *Meeting) StartedAt() time.Time { return m.startedAt }

// Append adds a completed utterance. Utterances must arrive in stream order;
// the strictly time-ordered invariant is preserved by the single-writer
// discipline of the live session.
func (m *Meeting) Append(u Utterance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.utterances = append(m.utterances, u)
}

// Len returns the number of appended utterances.
func (m *Meeting) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.utterances)
}

// Snapshot returns a copy of the utterance list as of the call. Readers such
// as the intelligence extractor work exclusively from snapshots so extraction
// never observes a partially appended state.
func (m *Meeting) Snapshot() []Utterance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Utterance, len(m.utterances))
	copy(out, m.utterances)
	return out
}

// Export is the serializable representation of a completed meeting handed to
// persistence and display collaborators.
type Export struct {
	ID         uuid.UUID         `json:"id"`
	Title      string            `json:"title"`
	StartedAt  time.Time         `json:"startedAt"`
	Utterances []Utterance       `json:"utterances"`
	Speakers   []diarize.Speaker `json:"speakers"`
}

// Export assembles the serializable form of the meeting together with the
// given speaker list.
func (m *Meeting) Export(speakers []diarize.Speaker) Export {
	return Export{
		ID:         m.id,
		Title:      m.title,
		StartedAt:  m.startedAt,
		Utterances: m.Snapshot(),
		Speakers:   speakers,
	}
}
