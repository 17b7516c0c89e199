package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/minutewire/minutewire/pkg/provider/stt"
)

// ErrAllFailed is returned by [STTFallback.Transcribe] when every registered
// backend either failed the utterance or is benched.
var ErrAllFailed = errors.New("all transcription backends failed")

// FallbackConfig configures the per-backend circuit breaker created for each
// backend registered with an [STTFallback]. The breaker Name is overwritten
// with the backend's registration name.
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// sttBackend pairs a transcription provider with its dedicated breaker.
type sttBackend struct {
	name     string
	provider stt.Provider
	breaker  *CircuitBreaker
}

// STTFallback implements [stt.Provider] with automatic failover across
// multiple STT backends. Each backend has its own circuit breaker, so a
// flapping transcription engine degrades to the next backend (or to
// discarded utterances) instead of stalling the whole session.
//
// Register all backends during wiring; AddFallback must not be called
// concurrently with Transcribe.
type STTFallback struct {
	backends []sttBackend
	cfg      FallbackConfig
}

// Compile-time interface assertion.
var _ stt.Provider = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred
// backend.
func NewSTTFallback(primary stt.Provider, primaryName string, cfg FallbackConfig) *STTFallback {
	f := &STTFallback{cfg: cfg}
	f.register(primaryName, primary)
	return f
}

// AddFallback registers an additional STT backend. Backends are tried in
// registration order, after the primary.
func (f *STTFallback) AddFallback(name string, provider stt.Provider) {
	f.register(name, provider)
}

func (f *STTFallback) register(name string, provider stt.Provider) {
	cbCfg := f.cfg.CircuitBreaker
	cbCfg.Name = name
	f.backends = append(f.backends, sttBackend{
		name:     name,
		provider: provider,
		breaker:  NewCircuitBreaker(cbCfg),
	})
}

// Transcribe runs the utterance against the first healthy backend. Benched
// backends are skipped; a failed backend is charged on its breaker and the
// next one is tried. Returns [ErrAllFailed] wrapping the last error when no
// backend produces a result.
func (f *STTFallback) Transcribe(ctx context.Context, samples []float32, opts stt.Options) (stt.Result, error) {
	var lastErr error
	for i := range f.backends {
		b := &f.backends[i]
		var res stt.Result
		err := b.breaker.Execute(func() error {
			var tErr error
			res, tErr = b.provider.Transcribe(ctx, samples, opts)
			return tErr
		})
		if err == nil {
			return res, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping benched stt backend", "backend", b.name)
		} else {
			slog.Warn("stt backend failed utterance, trying next",
				"backend", b.name, "error", err)
		}
	}
	return stt.Result{}, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
