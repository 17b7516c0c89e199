package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/minutewire/minutewire/internal/diarize"
	"github.com/minutewire/minutewire/internal/intel"
	"github.com/minutewire/minutewire/internal/meeting"
	"github.com/minutewire/minutewire/pkg/store/postgres"
)

// testDSN returns the test database DSN from the environment, or skips the
// test if MINUTEWIRE_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("MINUTEWIRE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("MINUTEWIRE_TEST_POSTGRES_DSN not set, skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestStore creates a fresh [postgres.Store] with a clean schema.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	cleanPool := mustPool(t, ctx, dsn)
	t.Cleanup(cleanPool.Close)
	for _, table := range []string{"utterances", "speakers", "meetings"} {
		if _, err := cleanPool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			t.Fatalf("drop table %s: %v", table, err)
		}
	}

	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func mustPool(t *testing.T, ctx context.Context, dsn string) *pgxpool.Pool {
	t.Helper()
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	return pool
}

// sampleExport builds a small two-speaker meeting export.
func sampleExport() meeting.Export {
	m := meeting.New("Quarterly planning")
	m.Append(meeting.Utterance{
		ID:        uuid.New(),
		Start:     0,
		Duration:  2 * time.Second,
		SpeakerID: 0,
		Text:      "Let's review the budget first.",
		Words: []meeting.WordSpan{
			{Word: "Let's", Start: 0, End: 400 * time.Millisecond, Confidence: 0.9},
		},
	})
	m.Append(meeting.Utterance{
		ID:        uuid.New(),
		Start:     3 * time.Second,
		Duration:  2 * time.Second,
		SpeakerID: 1,
		Text:      "I'll send the updated numbers by Friday.",
	})
	speakers := []diarize.Speaker{
		{ID: 0, Name: "Speaker 1", ColorTag: "blue", UtteranceCount: 1, TotalDuration: 2 * time.Second,
			Centroid: diarize.FeatureVector{Pitch: 120, Formant: 40, Energy: 0.2, MidBand: 0.5}},
		{ID: 1, Name: "Speaker 2", ColorTag: "green", UtteranceCount: 1, TotalDuration: 2 * time.Second,
			Centroid: diarize.FeatureVector{Pitch: 210, Formant: 55, Energy: 0.3, MidBand: 0.4}},
	}
	return m.Export(speakers)
}

func TestSaveAndGetMeeting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	export := sampleExport()
	report := &intel.Report{Topics: []intel.Topic{{Text: "budget", Count: 3}}}

	if err := store.SaveMeeting(ctx, export, report); err != nil {
		t.Fatalf("SaveMeeting: %v", err)
	}

	got, gotReport, err := store.GetMeeting(ctx, export.ID)
	if err != nil {
		t.Fatalf("GetMeeting: %v", err)
	}
	if got.Title != export.Title {
		t.Errorf("title: got %q, want %q", got.Title, export.Title)
	}
	if len(got.Utterances) != 2 {
		t.Fatalf("utterances: got %d, want 2", len(got.Utterances))
	}
	if got.Utterances[0].Text != "Let's review the budget first." {
		t.Errorf("utterances[0].text: got %q", got.Utterances[0].Text)
	}
	if len(got.Utterances[0].Words) != 1 {
		t.Errorf("utterances[0].words: got %d, want 1", len(got.Utterances[0].Words))
	}
	if len(got.Speakers) != 2 {
		t.Fatalf("speakers: got %d, want 2", len(got.Speakers))
	}
	if got.Speakers[1].Centroid.Pitch != 210 {
		t.Errorf("speakers[1].centroid.pitch: got %v, want 210", got.Speakers[1].Centroid.Pitch)
	}
	if gotReport == nil || len(gotReport.Topics) != 1 {
		t.Fatalf("report not round-tripped: %+v", gotReport)
	}
}

func TestSaveMeeting_NilReport(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	export := sampleExport()
	if err := store.SaveMeeting(ctx, export, nil); err != nil {
		t.Fatalf("SaveMeeting: %v", err)
	}

	_, report, err := store.GetMeeting(ctx, export.ID)
	if err != nil {
		t.Fatalf("GetMeeting: %v", err)
	}
	if report != nil {
		t.Errorf("expected nil report, got %+v", report)
	}
}

func TestSaveMeeting_ResaveReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	export := sampleExport()
	if err := store.SaveMeeting(ctx, export, nil); err != nil {
		t.Fatalf("first SaveMeeting: %v", err)
	}

	export.Utterances = export.Utterances[:1]
	if err := store.SaveMeeting(ctx, export, nil); err != nil {
		t.Fatalf("second SaveMeeting: %v", err)
	}

	got, _, err := store.GetMeeting(ctx, export.ID)
	if err != nil {
		t.Fatalf("GetMeeting: %v", err)
	}
	if len(got.Utterances) != 1 {
		t.Errorf("utterances after re-save: got %d, want 1", len(got.Utterances))
	}
}

func TestGetMeeting_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, _, err := store.GetMeeting(context.Background(), uuid.New())
	if !errors.Is(err, postgres.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListMeetings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	export := sampleExport()
	if err := store.SaveMeeting(ctx, export, nil); err != nil {
		t.Fatalf("SaveMeeting: %v", err)
	}

	summaries, err := store.ListMeetings(ctx, 10)
	if err != nil {
		t.Fatalf("ListMeetings: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("summaries: got %d, want 1", len(summaries))
	}
	if summaries[0].Utterances != 2 || summaries[0].Speakers != 2 {
		t.Errorf("counts: got %d utterances / %d speakers, want 2/2",
			summaries[0].Utterances, summaries[0].Speakers)
	}
}

func TestSimilarSpeakers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	export := sampleExport()
	if err := store.SaveMeeting(ctx, export, nil); err != nil {
		t.Fatalf("SaveMeeting: %v", err)
	}

	// Probe with a vector close to speaker 1's centroid.
	probe := diarize.FeatureVector{Pitch: 208, Formant: 54, Energy: 0.3, MidBand: 0.4}
	matches, err := store.SimilarSpeakers(ctx, probe, 2)
	if err != nil {
		t.Fatalf("SimilarSpeakers: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches: got %d, want 2", len(matches))
	}
	if matches[0].SpeakerID != 1 {
		t.Errorf("closest speaker: got %d, want 1", matches[0].SpeakerID)
	}
}
