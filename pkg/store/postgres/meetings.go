package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/minutewire/minutewire/internal/diarize"
	"github.com/minutewire/minutewire/internal/intel"
	"github.com/minutewire/minutewire/internal/meeting"
)

// ErrNotFound is returned when a requested meeting does not exist.
var ErrNotFound = errors.New("postgres store: meeting not found")

// MeetingSummary is the listing row for an archived meeting.
type MeetingSummary struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	StartedAt  time.Time `json:"startedAt"`
	SavedAt    time.Time `json:"savedAt"`
	Utterances int       `json:"utterances"`
	Speakers   int       `json:"speakers"`
}

// SpeakerMatch is one result of a voice-similarity lookup across archived
// meetings.
type SpeakerMatch struct {
	MeetingID uuid.UUID `json:"meetingId"`
	SpeakerID int       `json:"speakerId"`
	Name      string    `json:"name"`
	Distance  float64   `json:"distance"`
}

// SaveMeeting persists a completed meeting export together with its final
// intelligence report (which may be nil when the transcript was too short).
// The write is transactional: either the meeting, all utterances, and all
// speakers land, or nothing does. Saving the same meeting ID again replaces
// the previous archive.
func (s *Store) SaveMeeting(ctx context.Context, export meeting.Export, report *intel.Report) error {
	var reportJSON []byte
	if report != nil {
		b, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("postgres store: marshal report: %w", err)
		}
		reportJSON = b
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres store: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const upsertMeeting = `
		INSERT INTO meetings (id, title, started_at, report)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
		    title      = EXCLUDED.title,
		    started_at = EXCLUDED.started_at,
		    saved_at   = now(),
		    report     = EXCLUDED.report`
	if _, err := tx.Exec(ctx, upsertMeeting, export.ID, export.Title, export.StartedAt, reportJSON); err != nil {
		return fmt.Errorf("postgres store: upsert meeting: %w", err)
	}

	// Replace children wholesale; a re-save of the same meeting is rare and
	// per-row reconciliation is not worth the complexity.
	if _, err := tx.Exec(ctx, `DELETE FROM utterances WHERE meeting_id = $1`, export.ID); err != nil {
		return fmt.Errorf("postgres store: clear utterances: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM speakers WHERE meeting_id = $1`, export.ID); err != nil {
		return fmt.Errorf("postgres store: clear speakers: %w", err)
	}

	const insertUtterance = `
		INSERT INTO utterances (id, meeting_id, start_ns, duration_ns, speaker_id, text, words)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, u := range export.Utterances {
		words, err := json.Marshal(u.Words)
		if err != nil {
			return fmt.Errorf("postgres store: marshal word spans: %w", err)
		}
		if _, err := tx.Exec(ctx, insertUtterance,
			u.ID, export.ID, u.Start.Nanoseconds(), u.Duration.Nanoseconds(),
			u.SpeakerID, u.Text, words,
		); err != nil {
			return fmt.Errorf("postgres store: insert utterance: %w", err)
		}
	}

	const insertSpeaker = `
		INSERT INTO speakers (meeting_id, speaker_id, name, color_tag, utterance_count, total_speech_ns, centroid)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, sp := range export.Speakers {
		if _, err := tx.Exec(ctx, insertSpeaker,
			export.ID, sp.ID, sp.Name, sp.ColorTag,
			sp.UtteranceCount, sp.TotalDuration.Nanoseconds(),
			centroidVector(sp.Centroid),
		); err != nil {
			return fmt.Errorf("postgres store: insert speaker: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres store: commit: %w", err)
	}
	return nil
}

// GetMeeting loads an archived meeting, its utterances and speakers, and the
// stored report. Returns [ErrNotFound] when the ID is unknown.
func (s *Store) GetMeeting(ctx context.Context, id uuid.UUID) (meeting.Export, *intel.Report, error) {
	var (
		export     meeting.Export
		reportJSON []byte
	)

	const meetingQ = `SELECT id, title, started_at, report FROM meetings WHERE id = $1`
	err := s.pool.QueryRow(ctx, meetingQ, id).Scan(&export.ID, &export.Title, &export.StartedAt, &reportJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return meeting.Export{}, nil, ErrNotFound
	}
	if err != nil {
		return meeting.Export{}, nil, fmt.Errorf("postgres store: get meeting: %w", err)
	}

	const utteranceQ = `
		SELECT id, start_ns, duration_ns, speaker_id, text, words
		FROM   utterances
		WHERE  meeting_id = $1
		ORDER  BY start_ns`
	rows, err := s.pool.Query(ctx, utteranceQ, id)
	if err != nil {
		return meeting.Export{}, nil, fmt.Errorf("postgres store: get utterances: %w", err)
	}
	export.Utterances, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (meeting.Utterance, error) {
		var (
			u          meeting.Utterance
			startNS    int64
			durationNS int64
			words      []byte
		)
		if err := row.Scan(&u.ID, &startNS, &durationNS, &u.SpeakerID, &u.Text, &words); err != nil {
			return meeting.Utterance{}, err
		}
		u.Start = time.Duration(startNS)
		u.Duration = time.Duration(durationNS)
		if err := json.Unmarshal(words, &u.Words); err != nil {
			return meeting.Utterance{}, err
		}
		return u, nil
	})
	if err != nil {
		return meeting.Export{}, nil, fmt.Errorf("postgres store: scan utterances: %w", err)
	}

	const speakerQ = `
		SELECT speaker_id, name, color_tag, utterance_count, total_speech_ns, centroid
		FROM   speakers
		WHERE  meeting_id = $1
		ORDER  BY speaker_id`
	rows, err = s.pool.Query(ctx, speakerQ, id)
	if err != nil {
		return meeting.Export{}, nil, fmt.Errorf("postgres store: get speakers: %w", err)
	}
	export.Speakers, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (diarize.Speaker, error) {
		var (
			sp       diarize.Speaker
			speechNS int64
			centroid pgvector.Vector
		)
		if err := row.Scan(&sp.ID, &sp.Name, &sp.ColorTag, &sp.UtteranceCount, &speechNS, &centroid); err != nil {
			return diarize.Speaker{}, err
		}
		sp.TotalDuration = time.Duration(speechNS)
		sp.Centroid = vectorCentroid(centroid)
		return sp, nil
	})
	if err != nil {
		return meeting.Export{}, nil, fmt.Errorf("postgres store: scan speakers: %w", err)
	}

	var report *intel.Report
	if len(reportJSON) > 0 {
		report = &intel.Report{}
		if err := json.Unmarshal(reportJSON, report); err != nil {
			return meeting.Export{}, nil, fmt.Errorf("postgres store: unmarshal report: %w", err)
		}
	}
	return export, report, nil
}

// ListMeetings returns archived meetings ordered most recent first.
// A non-positive limit defaults to 50.
func (s *Store) ListMeetings(ctx context.Context, limit int) ([]MeetingSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
		SELECT m.id, m.title, m.started_at, m.saved_at,
		       (SELECT count(*) FROM utterances u WHERE u.meeting_id = m.id),
		       (SELECT count(*) FROM speakers s WHERE s.meeting_id = m.id)
		FROM   meetings m
		ORDER  BY m.started_at DESC
		LIMIT  $1`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list meetings: %w", err)
	}
	summaries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (MeetingSummary, error) {
		var m MeetingSummary
		err := row.Scan(&m.ID, &m.Title, &m.StartedAt, &m.SavedAt, &m.Utterances, &m.Speakers)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan meetings: %w", err)
	}
	if summaries == nil {
		summaries = []MeetingSummary{}
	}
	return summaries, nil
}

// SimilarSpeakers finds archived speakers whose stored centroid is closest
// (cosine distance) to the given feature vector, across all meetings. Useful
// for recognising a returning voice.
func (s *Store) SimilarSpeakers(ctx context.Context, centroid diarize.FeatureVector, topK int) ([]SpeakerMatch, error) {
	if topK <= 0 {
		topK = 5
	}
	const q = `
		SELECT meeting_id, speaker_id, name, centroid <=> $1 AS distance
		FROM   speakers
		WHERE  centroid IS NOT NULL
		ORDER  BY distance
		LIMIT  $2`

	rows, err := s.pool.Query(ctx, q, centroidVector(centroid), topK)
	if err != nil {
		return nil, fmt.Errorf("postgres store: similar speakers: %w", err)
	}
	matches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (SpeakerMatch, error) {
		var m SpeakerMatch
		err := row.Scan(&m.MeetingID, &m.SpeakerID, &m.Name, &m.Distance)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan matches: %w", err)
	}
	return matches, nil
}

// centroidVector flattens a feature vector into the fixed pgvector layout.
// The order must match [vectorCentroid] and never change once data is stored.
func centroidVector(v diarize.FeatureVector) pgvector.Vector {
	return pgvector.NewVector([]float32{
		float32(v.Pitch),
		float32(v.Formant),
		float32(v.Energy),
		float32(v.LowBand),
		float32(v.MidBand),
		float32(v.HighBand),
		float32(v.PitchVariance),
		float32(v.EnergyVariance),
	})
}

// vectorCentroid is the inverse of [centroidVector].
func vectorCentroid(vec pgvector.Vector) diarize.FeatureVector {
	s := vec.Slice()
	if len(s) < centroidDimensions {
		return diarize.FeatureVector{}
	}
	return diarize.FeatureVector{
		Pitch:          float64(s[0]),
		Formant:        float64(s[1]),
		Energy:         float64(s[2]),
		LowBand:        float64(s[3]),
		MidBand:        float64(s[4]),
		HighBand:       float64(s[5]),
		PitchVariance:  float64(s[6]),
		EnergyVariance: float64(s[7]),
	}
}
