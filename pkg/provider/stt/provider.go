// Package stt defines the Provider interface for speech-to-text backends.
//
// An STT provider transcribes one bounded utterance at a time: the voice
// activity segmenter hands over a complete mono PCM buffer and the provider
// returns text plus optional per-word timing. There is no streaming surface;
// utterance transcription is serialized by the session, so a batch call per
// utterance keeps the contract small and keeps a single inference resource
// uncontended.
//
// Implementations must be safe for concurrent use across sessions.
package stt

import (
	"context"
	"time"
)

// Options carries per-call recognition hints.
type Options struct {
	// Language is the recognition language code (e.g., "en", "de"). An empty
	// string lets the provider auto-detect or use its configured default.
	Language string

	// WordTimestamps requests per-word spans in the result. Providers without
	// native word timing may interpolate spans across the utterance.
	WordTimestamps bool
}

// Word holds per-word metadata from providers that support it.
type Word struct {
	Word       string
	Start      time.Duration
	End        time.Duration
	Confidence float64
}

// Result is one utterance transcription. An empty Text means the provider
// heard no speech; callers treat that as "no utterance produced", not as an
// error.
type Result struct {
	Text  string
	Words []Word
}

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Transcribe converts one utterance of mono float32 PCM samples at 16 kHz
	// into text. May return an empty Result when the audio contains no
	// recognizable speech.
	//
	// Returns an error only for backend failures (timeout, transport,
	// inference); the caller logs and discards the utterance.
	Transcribe(ctx context.Context, samples []float32, opts Options) (Result, error)
}
