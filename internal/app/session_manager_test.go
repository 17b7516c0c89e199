package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/minutewire/minutewire/internal/app"
	"github.com/minutewire/minutewire/internal/config"
	"github.com/minutewire/minutewire/pkg/provider/stt"
	sttmock "github.com/minutewire/minutewire/pkg/provider/stt/mock"
)

// testConfig returns a config tuned for fast utterance boundaries in tests.
func testConfig() *config.Config {
	return &config.Config{
		Audio: config.AudioConfig{SampleRate: testSampleRate, FrameMillis: 30},
		Segmenter: config.SegmenterConfig{
			EnergyThreshold:     0.01,
			SpeechFrames:        2,
			SilenceFrames:       3,
			MaxUtteranceSeconds: 15,
		},
		Diarize: config.DiarizeConfig{BaseThreshold: 0.35, MaxSpeakers: 8},
		Live:    config.LiveConfig{UpdateIntervalSeconds: 3, SnapshotSeconds: 6, MaxDisplayWords: 300},
	}
}

func newTestManager(provider stt.Provider) *app.SessionManager {
	return app.NewSessionManager(app.SessionManagerConfig{
		Config: testConfig(),
		STT:    provider,
	})
}

func TestSessionManager_SingleActiveSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sm := newTestManager(&sttmock.Provider{})

	sess, err := sm.Start(ctx, "weekly sync")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !sm.Active() {
		t.Error("Active: got false, want true")
	}

	info := sm.Info()
	if info.Title != "weekly sync" {
		t.Errorf("info title: got %q, want %q", info.Title, "weekly sync")
	}
	if info.SessionID != sess.ID() {
		t.Errorf("info session id: got %s, want %s", info.SessionID, sess.ID())
	}

	if _, err := sm.Start(ctx, "second meeting"); !errors.Is(err, app.ErrSessionActive) {
		t.Errorf("second Start: got %v, want ErrSessionActive", err)
	}

	if _, err := sm.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if sm.Active() {
		t.Error("Active after Stop: got true, want false")
	}
}

func TestSessionManager_DefaultTitle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sm := newTestManager(&sttmock.Provider{})
	if _, err := sm.Start(ctx, ""); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sm.Stop(ctx)

	if got := sm.Info().Title; got != "Untitled meeting" {
		t.Errorf("default title: got %q, want %q", got, "Untitled meeting")
	}
}

func TestSessionManager_StopWithoutSession(t *testing.T) {
	t.Parallel()

	sm := newTestManager(&sttmock.Provider{})
	if _, err := sm.Stop(context.Background()); !errors.Is(err, app.ErrNoSession) {
		t.Errorf("Stop: got %v, want ErrNoSession", err)
	}
}

func TestSessionManager_ReportWithoutSession(t *testing.T) {
	t.Parallel()

	sm := newTestManager(&sttmock.Provider{})
	if _, err := sm.Report(context.Background()); !errors.Is(err, app.ErrNoSession) {
		t.Errorf("Report: got %v, want ErrNoSession", err)
	}
}

func TestSessionManager_StopGeneratesReport(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	provider := &sttmock.Provider{Result: stt.Result{
		Text: "We decided to ship the beta on Friday. John will prepare the release notes before then.",
	}}
	sm := newTestManager(provider)

	sess, err := sm.Start(ctx, "release planning")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	feedUtterance(sess)
	waitForEvent(t, sess, app.EventUtteranceFinal)

	report, err := sm.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if report == nil {
		t.Fatal("expected a report from a transcribed meeting, got nil")
	}
}

func TestSessionManager_StopShortTranscriptNilReport(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	sm := newTestManager(&sttmock.Provider{})
	if _, err := sm.Start(ctx, "empty meeting"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	report, err := sm.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if report != nil {
		t.Errorf("expected nil report for an empty meeting, got %+v", report)
	}
}
