package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// centroidDimensions is the fixed shape of the acoustic feature vector:
// pitch, formant, energy, three band energies, pitch variance, energy
// variance. The column type is baked in at schema creation time.
const centroidDimensions = 8

const ddlMeetings = `
CREATE TABLE IF NOT EXISTS meetings (
    id          UUID         PRIMARY KEY,
    title       TEXT         NOT NULL,
    started_at  TIMESTAMPTZ  NOT NULL,
    saved_at    TIMESTAMPTZ  NOT NULL DEFAULT now(),
    report      JSONB
);

CREATE INDEX IF NOT EXISTS idx_meetings_started_at
    ON meetings (started_at);
`

const ddlUtterances = `
CREATE TABLE IF NOT EXISTS utterances (
    id          UUID         PRIMARY KEY,
    meeting_id  UUID         NOT NULL REFERENCES meetings (id) ON DELETE CASCADE,
    start_ns    BIGINT       NOT NULL,
    duration_ns BIGINT       NOT NULL,
    speaker_id  INT          NOT NULL,
    text        TEXT         NOT NULL,
    words       JSONB        NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_utterances_meeting_id
    ON utterances (meeting_id);

CREATE INDEX IF NOT EXISTS idx_utterances_meeting_start
    ON utterances (meeting_id, start_ns);

CREATE INDEX IF NOT EXISTS idx_utterances_fts
    ON utterances USING GIN (to_tsvector('english', text));
`

// ddlSpeakers returns the speakers DDL with the centroid dimension substituted.
func ddlSpeakers(dims int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS speakers (
    meeting_id       UUID       NOT NULL REFERENCES meetings (id) ON DELETE CASCADE,
    speaker_id       INT        NOT NULL,
    name             TEXT       NOT NULL,
    color_tag        TEXT       NOT NULL DEFAULT '',
    utterance_count  INT        NOT NULL DEFAULT 0,
    total_speech_ns  BIGINT     NOT NULL DEFAULT 0,
    centroid         vector(%d),
    PRIMARY KEY (meeting_id, speaker_id)
);

CREATE INDEX IF NOT EXISTS idx_speakers_centroid
    ON speakers USING hnsw (centroid vector_cosine_ops);
`, dims)
}

// Migrate creates or ensures all required database tables and extensions
// exist. It is idempotent (CREATE TABLE IF NOT EXISTS / CREATE INDEX IF NOT
// EXISTS) and safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		ddlMeetings,
		ddlUtterances,
		ddlSpeakers(centroidDimensions),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
