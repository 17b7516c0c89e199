// Package segment implements the streaming voice-activity segmenter that
// turns a raw frame stream into discrete utterance buffers.
//
// The segmenter is a two-state machine (idle, speaking) driven by per-frame
// RMS energy with hysteresis on both edges: a run of consecutive speech
// frames is required before an utterance opens, and a longer run of silence
// frames before it closes. While an utterance is open every incoming frame is
// accumulated — including the in-tolerance trailing silence — so the emitted
// audio is gapless. Accumulation is bounded: once the buffer reaches the
// configured maximum utterance length it is force-flushed as a complete
// utterance and accumulation continues in a fresh buffer, so neither memory
// nor end-to-end latency grows without bound and no audio is dropped.
//
// A Segmenter is not safe for concurrent use; it is designed to be driven
// from a single stream-processing loop.
package segment

import (
	"time"

	"github.com/minutewire/minutewire/pkg/audio"
)

// Default tuning for 16 kHz audio with ~30 ms frames.
const (
	DefaultEnergyThreshold     = 0.01
	DefaultSpeechFramesNeeded  = 5  // ≈0.15 s of speech before an utterance opens
	DefaultSilenceFramesNeeded = 25 // ≈0.8 s of silence before an utterance closes
	DefaultMaxUtteranceSeconds = 15
)

// Config holds the segmenter tuning parameters. The zero value is not usable;
// use [NewSegmenter] which applies defaults for unset fields.
type Config struct {
	// SampleRate is the audio sample rate in Hz. Must match the frames passed
	// to Process.
	SampleRate int

	// EnergyThreshold is the RMS level above which a frame counts as speech.
	EnergyThreshold float64

	// SpeechFramesNeeded is the number of consecutive speech frames required
	// for the idle→speaking transition.
	SpeechFramesNeeded int

	// SilenceFramesNeeded is the number of consecutive silence frames required
	// for the speaking→idle transition (utterance end).
	SilenceFramesNeeded int

	// MaxUtteranceSeconds bounds the accumulation buffer. Once exceeded the
	// utterance is force-flushed.
	MaxUtteranceSeconds int
}

// EventType enumerates segmenter outputs.
type EventType int

const (
	// SpeechStart indicates an utterance has opened.
	SpeechStart EventType = iota

	// SpeechEnd indicates an utterance has closed; Event.Utterance carries
	// the accumulated audio.
	SpeechEnd
)

// Event is a tagged segmentation event. Utterance is non-nil only for
// SpeechEnd.
type Event struct {
	Type      EventType
	Utterance *Utterance
}

// Utterance is one contiguous speech segment bounded by start/end detection.
type Utterance struct {
	// Samples is the accumulated mono PCM, including onset frames and the
	// trailing in-tolerance silence.
	Samples []float32

	// Start is the capture timestamp of the first accumulated frame.
	Start time.Duration

	// Duration is the play time of Samples.
	Duration time.Duration

	// ForceSplit reports whether this utterance was closed by the buffer
	// bound rather than by detected silence.
	ForceSplit bool
}

type state int

const (
	stateIdle state = iota
	stateSpeaking
)

// Segmenter is the streaming voice-activity segmenter.
type Segmenter struct {
	cfg Config

	st            state
	speechFrames  int
	silenceFrames int

	// onset holds the candidate speech frames observed while still idle, so
	// the opening ~0.15 s of an utterance is not lost.
	onset      []float32
	onsetStart time.Duration

	buf        []float32
	bufStart   time.Duration
	maxSamples int
}

// NewSegmenter creates a Segmenter, applying defaults for any zero field in cfg.
func NewSegmenter(cfg Config) *Segmenter {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = audio.DefaultSampleRate
	}
	if cfg.EnergyThreshold <= 0 {
		cfg.EnergyThreshold = DefaultEnergyThreshold
	}
	if cfg.SpeechFramesNeeded <= 0 {
		cfg.SpeechFramesNeeded = DefaultSpeechFramesNeeded
	}
	if cfg.SilenceFramesNeeded <= 0 {
		cfg.SilenceFramesNeeded = DefaultSilenceFramesNeeded
	}
	if cfg.MaxUtteranceSeconds <= 0 {
		cfg.MaxUtteranceSeconds = DefaultMaxUtteranceSeconds
	}
	return &Segmenter{
		cfg:        cfg,
		maxSamples: cfg.MaxUtteranceSeconds * cfg.SampleRate,
	}
}

// Process classifies one frame and advances the state machine. It returns
// zero, one, or two events: a frame can both open an utterance and, at the
// buffer bound, close one. All inputs are accepted; there are no error states.
func (s *Segmenter) Process(frame audio.Frame) []Event {
	hasSpeech := audio.RMS(frame.Samples) > s.cfg.EnergyThreshold

	var events []Event
	switch s.st {
	case stateIdle:
		if hasSpeech {
			if s.speechFrames == 0 {
				s.onset = s.onset[:0]
				s.onsetStart = frame.Timestamp
			}
			s.speechFrames++
			s.silenceFrames = 0
			s.onset = append(s.onset, frame.Samples...)
			if s.speechFrames >= s.cfg.SpeechFramesNeeded {
				s.st = stateSpeaking
				s.buf = append(s.buf[:0], s.onset...)
				s.bufStart = s.onsetStart
				s.onset = s.onset[:0]
				s.speechFrames = 0
				events = append(events, Event{Type: SpeechStart})
			}
		} else {
			s.speechFrames = 0
			s.onset = s.onset[:0]
		}

	case stateSpeaking:
		// Every frame is accumulated while speaking, speech or trailing
		// silence alike.
		s.buf = append(s.buf, frame.Samples...)
		if hasSpeech {
			s.silenceFrames = 0
		} else {
			s.silenceFrames++
			if s.silenceFrames >= s.cfg.SilenceFramesNeeded {
				events = append(events, s.closeUtterance(false))
				s.st = stateIdle
				break
			}
		}
		if len(s.buf) > s.maxSamples {
			// Bound reached: emit what we have and keep speaking into a
			// fresh buffer so no audio is dropped.
			events = append(events, s.closeUtterance(true))
		}
	}
	return events
}

// Flush closes any open utterance, returning it, and resets the segmenter to
// idle. Returns nil when no utterance is open. Used when a session stops.
func (s *Segmenter) Flush() *Utterance {
	if s.st != stateSpeaking || len(s.buf) == 0 {
		s.reset()
		return nil
	}
	ev := s.closeUtterance(false)
	s.reset()
	return ev.Utterance
}

// Reset discards all accumulated state without emitting anything.
func (s *Segmenter) Reset() {
	s.reset()
}

func (s *Segmenter) reset() {
	s.st = stateIdle
	s.speechFrames = 0
	s.silenceFrames = 0
	s.onset = s.onset[:0]
	s.buf = nil
}

func (s *Segmenter) closeUtterance(forced bool) Event {
	samples := make([]float32, len(s.buf))
	copy(samples, s.buf)
	u := &Utterance{
		Samples:    samples,
		Start:      s.bufStart,
		Duration:   time.Duration(len(samples)) * time.Second / time.Duration(s.cfg.SampleRate),
		ForceSplit: forced,
	}
	s.bufStart += u.Duration
	s.buf = s.buf[:0]
	s.speechFrames = 0
	s.silenceFrames = 0
	return Event{Type: SpeechEnd, Utterance: u}
}
