package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/minutewire/minutewire/internal/diarize"
	"github.com/minutewire/minutewire/internal/display"
	"github.com/minutewire/minutewire/internal/intel"
	"github.com/minutewire/minutewire/internal/livemerge"
	"github.com/minutewire/minutewire/internal/meeting"
	"github.com/minutewire/minutewire/internal/observe"
	"github.com/minutewire/minutewire/internal/segment"
	"github.com/minutewire/minutewire/pkg/audio"
	"github.com/minutewire/minutewire/pkg/provider/stt"
	"github.com/minutewire/minutewire/pkg/provider/summarize"
)

// minSnapshotRMS is the level below which a live snapshot window is treated
// as silence and left untranscribed.
const minSnapshotRMS = 0.005

// eventBuffer is the capacity of the session event channel. A slow consumer
// loses events rather than stalling the audio path.
const eventBuffer = 64

// EventType enumerates session pipeline events.
type EventType int

const (
	// EventSpeechStart indicates the segmenter opened an utterance.
	EventSpeechStart EventType = iota

	// EventSpeechEnd indicates the segmenter closed an utterance; its audio
	// has been queued for transcription.
	EventSpeechEnd

	// EventUtteranceFinal indicates a transcribed, speaker-attributed
	// utterance was appended to the meeting. Event.Utterance is set.
	EventUtteranceFinal

	// EventSnapshotReady indicates the live display text grew.
	// Event.LiveText holds the full merged text.
	EventSnapshotReady

	// EventSnapshotRejected indicates a live snapshot was discarded.
	// Event.Err holds the reason.
	EventSnapshotRejected
)

// Event is a tagged session pipeline event.
type Event struct {
	Type      EventType
	Utterance *meeting.Utterance
	LiveText  string
	Err       error
}

// SessionConfig holds tuning and collaborators for a [Session]. STT is the
// only required provider.
type SessionConfig struct {
	Title      string
	SampleRate int

	Segmenter segment.Config

	DiarizeBaseThreshold float64
	DiarizeMaxSpeakers   int

	LiveUpdateInterval  time.Duration
	LiveSnapshotWindow  time.Duration
	LiveMaxDisplayWords int

	STT         stt.Provider
	STTLanguage string
	Summarizer  summarize.Provider
	Broadcaster *display.Broadcaster
	Metrics     *observe.Metrics
}

// Session owns the full live pipeline state for one meeting: the segmenter,
// the speaker clusterer, the live merger, the rolling capture buffer, and the
// meeting aggregate itself.
//
// Frames must be fed from a single goroutine via [Session.ProcessFrame].
// Utterance transcription runs serialized on an internal worker; the live
// snapshot poller runs independently and never touches meeting state.
type Session struct {
	id        uuid.UUID
	startedAt time.Time
	cfg       SessionConfig

	meeting   *meeting.Meeting
	seg       *segment.Segmenter
	est       *diarize.Estimator
	clusterer *diarize.Clusterer

	liveMu sync.Mutex
	merger *livemerge.Merger

	ring    *audio.RingBuffer
	stt     stt.Provider
	metrics *observe.Metrics

	pending        chan *segment.Utterance
	transcribeDone chan struct{}
	events         chan Event

	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	snapshotBusy atomic.Bool
	speakerCount atomic.Int64
	stopOnce     sync.Once
}

// NewSession creates a session and starts its transcription worker and live
// snapshot poller. Call [Session.Stop] to end it.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.STT == nil {
		return nil, errors.New("app: session requires an STT provider")
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = audio.DefaultSampleRate
	}
	if cfg.LiveUpdateInterval <= 0 {
		cfg.LiveUpdateInterval = 3 * time.Second
	}
	if cfg.LiveSnapshotWindow <= 0 {
		cfg.LiveSnapshotWindow = 6 * time.Second
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	cfg.Segmenter.SampleRate = cfg.SampleRate

	var clustererOpts []diarize.Option
	if cfg.DiarizeBaseThreshold > 0 {
		clustererOpts = append(clustererOpts, diarize.WithBaseThreshold(cfg.DiarizeBaseThreshold))
	}
	if cfg.DiarizeMaxSpeakers > 0 {
		clustererOpts = append(clustererOpts, diarize.WithMaxSpeakers(cfg.DiarizeMaxSpeakers))
	}

	var mergerOpts []livemerge.Option
	if cfg.LiveMaxDisplayWords > 0 {
		mergerOpts = append(mergerOpts, livemerge.WithMaxDisplayWords(cfg.LiveMaxDisplayWords))
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		id:             uuid.New(),
		startedAt:      time.Now().UTC(),
		cfg:            cfg,
		meeting:        meeting.New(cfg.Title),
		seg:            segment.NewSegmenter(cfg.Segmenter),
		est:            diarize.NewEstimator(cfg.SampleRate),
		clusterer:      diarize.NewClusterer(clustererOpts...),
		merger:         livemerge.NewMerger(mergerOpts...),
		ring:           audio.NewRingBuffer(int(cfg.LiveSnapshotWindow.Seconds()) * cfg.SampleRate),
		stt:            cfg.STT,
		metrics:        cfg.Metrics,
		pending:        make(chan *segment.Utterance, 1),
		transcribeDone: make(chan struct{}),
		events:         make(chan Event, eventBuffer),
		ctx:            ctx,
		cancel:         cancel,
	}

	s.wg.Add(2)
	go s.transcribeLoop()
	go s.snapshotLoop()

	s.metrics.ActiveSessions.Add(ctx, 1)
	slog.Info("session started", "session_id", s.id, "title", cfg.Title)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// StartedAt returns the session start time.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Meeting returns the meeting aggregate. The session is its single writer;
// readers use Meeting.Snapshot.
func (s *Session) Meeting() *meeting.Meeting { return s.meeting }

// Events returns the session event stream. Events are dropped, not queued,
// when the consumer falls behind.
func (s *Session) Events() <-chan Event { return s.events }

// LiveText returns the current merged live display text.
func (s *Session) LiveText() string {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	return s.merger.Text()
}

// Speakers returns the speaker clusters observed so far.
//
// Safe to call concurrently with ProcessFrame only after Stop, since the
// clusterer is owned by the transcription worker while the session runs.
func (s *Session) Speakers() []diarize.Speaker {
	return s.clusterer.Speakers()
}

// SpeakerCount returns the number of speaker clusters created so far.
// Unlike [Session.Speakers] it is safe to call while the session runs.
func (s *Session) SpeakerCount() int {
	return int(s.speakerCount.Load())
}

// ProcessFrame feeds one capture frame through the pipeline: the rolling
// snapshot buffer and the voice activity segmenter. Must be called from a
// single goroutine.
func (s *Session) ProcessFrame(frame audio.Frame) {
	s.ring.Write(frame.Samples)

	for _, ev := range s.seg.Process(frame) {
		switch ev.Type {
		case segment.SpeechStart:
			s.emit(Event{Type: EventSpeechStart})
		case segment.SpeechEnd:
			s.emit(Event{Type: EventSpeechEnd})
			s.enqueue(ev.Utterance)
		}
	}
}

// enqueue hands a closed utterance to the transcription worker. Transcription
// is serialized on a single inference resource: when the worker is still busy
// with the previous utterance and the queue slot is taken, the utterance is
// dropped with a log instead of run concurrently.
func (s *Session) enqueue(utt *segment.Utterance) {
	select {
	case s.pending <- utt:
	default:
		slog.Warn("transcription busy, dropping utterance",
			"session_id", s.id,
			"start", utt.Start,
			"duration", utt.Duration,
		)
		s.metrics.RecordUtterance(s.ctx, "dropped")
	}
}

// transcribeLoop is the single utterance-completion call site: it runs ASR,
// feature extraction, and speaker assignment for one utterance at a time and
// is the only writer of the meeting.
func (s *Session) transcribeLoop() {
	defer s.wg.Done()
	defer close(s.transcribeDone)
	for utt := range s.pending {
		s.finalizeUtterance(utt)
	}
}

func (s *Session) finalizeUtterance(utt *segment.Utterance) {
	start := time.Now()
	res, err := s.stt.Transcribe(s.ctx, utt.Samples, stt.Options{
		Language:       s.cfg.STTLanguage,
		WordTimestamps: true,
	})
	s.metrics.STTDuration.Record(s.ctx, time.Since(start).Seconds())

	if err != nil {
		// Transient ASR failure: discard this utterance, leave clustering
		// and meeting state untouched.
		slog.Warn("utterance transcription failed",
			"session_id", s.id, "start", utt.Start, "err", err)
		s.metrics.RecordUtterance(s.ctx, "failed")
		return
	}
	if res.Text == "" {
		s.metrics.RecordUtterance(s.ctx, "empty")
		return
	}

	features := s.est.Extract(utt.Samples)
	assignment := s.clusterer.Assign(features, utt.Duration)
	if assignment.Created {
		s.speakerCount.Add(1)
		s.metrics.RecordSpeakerCreated(s.ctx)
	}

	u := meeting.Utterance{
		ID:        uuid.New(),
		Start:     utt.Start,
		Duration:  utt.Duration,
		SpeakerID: assignment.SpeakerID,
		Text:      res.Text,
		Words:     wordSpans(res.Words, utt.Start),
		Features:  features,
	}
	s.meeting.Append(u)
	s.metrics.RecordUtterance(s.ctx, "transcribed")

	if s.cfg.Broadcaster != nil {
		s.cfg.Broadcaster.Broadcast(display.Event{Type: display.EventUtterance, Utterance: &u})
	}
	s.emit(Event{Type: EventUtteranceFinal, Utterance: &u})
}

// snapshotLoop periodically transcribes the rolling capture window for the
// live display. Polling is non-overlapping: a tick that arrives while the
// previous snapshot is still in flight is skipped, not queued.
func (s *Session) snapshotLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.LiveUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if !s.snapshotBusy.CompareAndSwap(false, true) {
				s.metrics.RecordSnapshot(s.ctx, "skipped")
				continue
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				defer s.snapshotBusy.Store(false)
				s.snapshot()
			}()
		}
	}
}

func (s *Session) snapshot() {
	start := time.Now()
	defer func() {
		s.metrics.SnapshotDuration.Record(s.ctx, time.Since(start).Seconds())
	}()

	window := s.ring.Window(int(s.cfg.LiveSnapshotWindow.Seconds()) * s.cfg.SampleRate)
	if len(window) == 0 || audio.RMS(window) < minSnapshotRMS {
		s.metrics.RecordSnapshot(s.ctx, "silent")
		return
	}

	res, err := s.stt.Transcribe(s.ctx, window, stt.Options{Language: s.cfg.STTLanguage})
	if err != nil {
		slog.Warn("live snapshot transcription failed", "session_id", s.id, "err", err)
		s.metrics.RecordSnapshot(s.ctx, "silent")
		return
	}
	if res.Text == "" {
		s.metrics.RecordSnapshot(s.ctx, "silent")
		return
	}

	s.liveMu.Lock()
	merged, err := s.merger.Merge(res.Text)
	s.liveMu.Unlock()
	if err != nil {
		slog.Warn("live snapshot rejected", "session_id", s.id, "err", err)
		s.metrics.RecordSnapshot(s.ctx, "rejected")
		s.emit(Event{Type: EventSnapshotRejected, Err: err})
		return
	}

	s.metrics.RecordSnapshot(s.ctx, "merged")
	if s.cfg.Broadcaster != nil {
		s.cfg.Broadcaster.Broadcast(display.Event{Type: display.EventLiveText, LiveText: merged})
	}
	s.emit(Event{Type: EventSnapshotReady, LiveText: merged})
}

// Stop ends the session: the segmenter's open utterance buffer is flushed
// through transcription, the snapshot poller is cancelled, and the meeting's
// already-appended utterances are left intact.
//
// After Stop returns, the events channel is closed and the meeting is safe
// for concurrent reads.
func (s *Session) Stop(ctx context.Context) error {
	var stopErr error
	s.stopOnce.Do(func() {
		if open := s.seg.Flush(); open != nil {
			select {
			case s.pending <- open:
			case <-ctx.Done():
				slog.Warn("stop deadline hit, discarding open utterance", "session_id", s.id)
				s.metrics.RecordUtterance(s.ctx, "dropped")
			}
		}
		close(s.pending)

		// Let the worker drain the queue before cancelling, so the flushed
		// utterance still gets transcribed; only then stop the poller.
		select {
		case <-s.transcribeDone:
		case <-ctx.Done():
			stopErr = fmt.Errorf("app: stop session %s: %w", s.id, ctx.Err())
		}
		s.cancel()

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			// All workers gone, safe to close the event stream.
			close(s.events)
		case <-ctx.Done():
			if stopErr == nil {
				stopErr = fmt.Errorf("app: stop session %s: %w", s.id, ctx.Err())
			}
		}
		s.metrics.ActiveSessions.Add(context.WithoutCancel(s.ctx), -1)
		slog.Info("session stopped",
			"session_id", s.id,
			"utterances", s.meeting.Len(),
			"speakers", s.clusterer.Count(),
		)
	})
	return stopErr
}

// Report runs the intelligence extractor over the current meeting snapshot.
// Returns [intel.ErrTranscriptTooShort] when there is not enough text yet.
func (s *Session) Report(ctx context.Context) (*intel.Report, error) {
	start := time.Now()
	defer func() {
		s.metrics.ReportDuration.Record(ctx, time.Since(start).Seconds())
	}()

	var opts []intel.Option
	if s.cfg.Summarizer != nil {
		opts = append(opts, intel.WithSummarizer(s.cfg.Summarizer))
	}
	report, err := intel.NewExtractor(opts...).Generate(ctx, s.meeting.Snapshot())
	if err != nil {
		return nil, err
	}

	if s.cfg.Broadcaster != nil {
		s.cfg.Broadcaster.Broadcast(display.Event{Type: display.EventReport, Report: report})
	}
	return report, nil
}

// emit delivers an event without ever blocking the audio path.
func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		slog.Debug("event consumer behind, dropping event", "session_id", s.id, "type", ev.Type)
	}
}

// wordSpans converts provider word timings (relative to the utterance audio)
// into meeting word spans on the session timeline.
func wordSpans(words []stt.Word, base time.Duration) []meeting.WordSpan {
	if len(words) == 0 {
		return nil
	}
	spans := make([]meeting.WordSpan, len(words))
	for i, w := range words {
		spans[i] = meeting.WordSpan{
			Word:       w.Word,
			Start:      base + w.Start,
			End:        base + w.End,
			Confidence: w.Confidence,
		}
	}
	return spans
}
