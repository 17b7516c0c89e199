package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/minutewire/minutewire/internal/config"
	"github.com/minutewire/minutewire/internal/display"
	"github.com/minutewire/minutewire/internal/intel"
	"github.com/minutewire/minutewire/internal/observe"
	"github.com/minutewire/minutewire/internal/segment"
	"github.com/minutewire/minutewire/pkg/provider/stt"
	"github.com/minutewire/minutewire/pkg/provider/summarize"
)

// ErrSessionActive is returned by Start when a session is already running.
var ErrSessionActive = errors.New("app: a session is already active")

// ErrNoSession is returned by Stop and Report when no session is running.
var ErrNoSession = errors.New("app: no active session")

// SessionInfo holds metadata about an active session.
type SessionInfo struct {
	// SessionID is the unique identifier for this session.
	SessionID uuid.UUID

	// Title is the meeting title given at start.
	Title string

	// StartedAt is when the session was started.
	StartedAt time.Time
}

// SessionManager manages the lifecycle of recording sessions.
// Only one session can be active at a time (enforced by mutex).
// All exported methods are safe for concurrent use.
type SessionManager struct {
	mu      sync.Mutex
	current *Session
	info    SessionInfo

	// Dependencies injected at construction.
	cfg         *config.Config
	stt         stt.Provider
	summarizer  summarize.Provider
	broadcaster *display.Broadcaster
	metrics     *observe.Metrics
}

// SessionManagerConfig holds all dependencies for a [SessionManager].
// STT is required; Summarizer and Broadcaster are optional.
type SessionManagerConfig struct {
	Config      *config.Config
	STT         stt.Provider
	Summarizer  summarize.Provider
	Broadcaster *display.Broadcaster
	Metrics     *observe.Metrics
}

// NewSessionManager creates a SessionManager with the given dependencies.
func NewSessionManager(cfg SessionManagerConfig) *SessionManager {
	return &SessionManager{
		cfg:         cfg.Config,
		stt:         cfg.STT,
		summarizer:  cfg.Summarizer,
		broadcaster: cfg.Broadcaster,
		metrics:     cfg.Metrics,
	}
}

// Start begins a new recording session for a meeting with the given title.
// Returns [ErrSessionActive] if a session is already running.
func (sm *SessionManager) Start(ctx context.Context, title string) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.current != nil {
		return nil, fmt.Errorf("%w (id=%s)", ErrSessionActive, sm.info.SessionID)
	}
	if title == "" {
		title = "Untitled meeting"
	}

	sess, err := NewSession(sm.sessionConfig(title))
	if err != nil {
		return nil, fmt.Errorf("app: start session: %w", err)
	}

	sm.current = sess
	sm.info = SessionInfo{
		SessionID: sess.ID(),
		Title:     title,
		StartedAt: sess.StartedAt(),
	}

	_ = ctx // session lifetime is governed by Stop, not the start request
	return sess, nil
}

// Stop ends the active session and generates the final intelligence report.
// A transcript too short for extraction is not an error; the report is nil in
// that case. Returns [ErrNoSession] if nothing is running.
func (sm *SessionManager) Stop(ctx context.Context) (*intel.Report, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.current == nil {
		return nil, ErrNoSession
	}
	sess := sm.current
	id := sm.info.SessionID

	if err := sess.Stop(ctx); err != nil {
		slog.Warn("session stop error", "session_id", id, "err", err)
	}

	report, err := sess.Report(ctx)
	if err != nil && !errors.Is(err, intel.ErrTranscriptTooShort) {
		slog.Warn("final report generation failed", "session_id", id, "err", err)
	}

	sm.current = nil
	sm.info = SessionInfo{}
	return report, nil
}

// Active reports whether a session is currently running.
func (sm *SessionManager) Active() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.current != nil
}

// Info returns metadata about the active session.
// Returns the zero value if no session is active.
func (sm *SessionManager) Info() SessionInfo {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.info
}

// Current returns the active session, or nil.
func (sm *SessionManager) Current() *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.current
}

// Report generates an on-demand intelligence report from the active session
// without stopping it. Returns [ErrNoSession] if nothing is running.
func (sm *SessionManager) Report(ctx context.Context) (*intel.Report, error) {
	sm.mu.Lock()
	sess := sm.current
	sm.mu.Unlock()

	if sess == nil {
		return nil, ErrNoSession
	}
	return sess.Report(ctx)
}

// sessionConfig maps the loaded config onto a SessionConfig.
func (sm *SessionManager) sessionConfig(title string) SessionConfig {
	sc := SessionConfig{
		Title:       title,
		STT:         sm.stt,
		Summarizer:  sm.summarizer,
		Broadcaster: sm.broadcaster,
		Metrics:     sm.metrics,
	}
	if sm.cfg != nil {
		sc.SampleRate = sm.cfg.Audio.SampleRate
		sc.Segmenter = segment.Config{
			EnergyThreshold:     sm.cfg.Segmenter.EnergyThreshold,
			SpeechFramesNeeded:  sm.cfg.Segmenter.SpeechFrames,
			SilenceFramesNeeded: sm.cfg.Segmenter.SilenceFrames,
			MaxUtteranceSeconds: sm.cfg.Segmenter.MaxUtteranceSeconds,
		}
		sc.DiarizeBaseThreshold = sm.cfg.Diarize.BaseThreshold
		sc.DiarizeMaxSpeakers = sm.cfg.Diarize.MaxSpeakers
		sc.LiveUpdateInterval = sm.cfg.Live.UpdateInterval()
		sc.LiveSnapshotWindow = sm.cfg.Live.SnapshotWindow()
		sc.LiveMaxDisplayWords = sm.cfg.Live.MaxDisplayWords
		if lang, ok := sm.cfg.Providers.STT.Options["language"].(string); ok {
			sc.STTLanguage = lang
		}
	}
	return sc
}
