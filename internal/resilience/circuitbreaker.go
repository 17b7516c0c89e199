// Package resilience keeps a capture session transcribing when a
// speech-to-text backend misbehaves. Each backend sits behind its own
// [CircuitBreaker] so that an engine that keeps timing out is benched
// instead of being hit again on every utterance, and [STTFallback] routes
// each transcription request to the first healthy backend in registration
// order.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] while the backend
// is benched and the reset timeout has not yet elapsed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the current operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed is the healthy state; calls reach the backend.
	StateClosed State = iota

	// StateOpen means the backend failed too many utterances in a row.
	// Calls are rejected with [ErrCircuitOpen] until the reset timeout
	// elapses.
	StateOpen

	// StateHalfOpen admits a small number of trial calls after the reset
	// timeout. Enough successes close the breaker; any failure re-opens it.
	StateHalfOpen
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Defaults tuned for per-utterance transcription calls, which arrive a few
// seconds apart rather than in bursts.
const (
	defaultMaxFailures  = 3
	defaultResetTimeout = 30 * time.Second
	defaultHalfOpenMax  = 2
)

// CircuitBreakerConfig holds tuning knobs for a [CircuitBreaker].
type CircuitBreakerConfig struct {
	// Name identifies the guarded backend in log output, e.g. "whisper".
	Name string

	// MaxFailures is the number of consecutive failed utterances that
	// benches the backend. Default: 3.
	MaxFailures int

	// ResetTimeout is how long a benched backend sits out before trial
	// calls are admitted. Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMax is the number of trial calls that must succeed before a
	// benched backend is trusted again. Default: 2.
	HalfOpenMax int
}

// CircuitBreaker guards a single transcription backend. It is safe for
// concurrent use, though Minutewire's serialized transcription worker means
// calls rarely overlap in practice.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int

	mu        sync.Mutex
	state     State
	failures  int       // consecutive failures while closed
	benchedAt time.Time // when the breaker last opened
	trials    int       // calls admitted while half-open
	trialWins int       // successful trial calls
}

// NewCircuitBreaker creates a [CircuitBreaker] for one backend. Zero-value
// config fields fall back to the package defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = defaultMaxFailures
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = defaultResetTimeout
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = defaultHalfOpenMax
	}
	return &CircuitBreaker{
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		halfOpenMax:  cfg.HalfOpenMax,
	}
}

// Execute runs one transcription attempt through the breaker. While the
// backend is benched it returns [ErrCircuitOpen] without invoking fn.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	trial, err := cb.admit()
	if err != nil {
		return err
	}
	err = fn()
	cb.settle(trial, err)
	return err
}

// admit decides whether a call may proceed and reports whether it counts as
// a half-open trial call.
func (cb *CircuitBreaker) admit() (trial bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.benchedAt) < cb.resetTimeout {
			return false, ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.trials = 0
		cb.trialWins = 0
		slog.Info("stt backend admitted for trial calls", "backend", cb.name)

	case StateHalfOpen:
		if cb.trials >= cb.halfOpenMax {
			// Trial budget spent; wait for the outcome of the calls
			// already in flight.
			return false, ErrCircuitOpen
		}
	}

	if cb.state == StateHalfOpen {
		cb.trials++
		return true, nil
	}
	return false, nil
}

// settle records the outcome of an admitted call.
func (cb *CircuitBreaker) settle(trial bool, callErr error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if callErr != nil {
		cb.benchedAt = time.Now()
		if trial {
			// One failed trial is enough to bench the backend again.
			cb.state = StateOpen
			cb.failures = cb.maxFailures
			slog.Warn("stt backend failed trial call, benched again",
				"backend", cb.name,
				"retry_in", cb.resetTimeout)
			return
		}
		cb.failures++
		if cb.failures >= cb.maxFailures {
			cb.state = StateOpen
			slog.Warn("stt backend benched after consecutive failures",
				"backend", cb.name,
				"failures", cb.failures,
				"retry_in", cb.resetTimeout)
		}
		return
	}

	if trial {
		cb.trialWins++
		if cb.trialWins >= cb.halfOpenMax {
			cb.state = StateClosed
			cb.failures = 0
			cb.trials = 0
			cb.trialWins = 0
			slog.Info("stt backend recovered", "backend", cb.name)
		}
		return
	}
	cb.failures = 0
}

// State returns the breaker's current [State]. A benched backend whose reset
// timeout has elapsed reports [StateHalfOpen]; the stored state changes on
// the next [CircuitBreaker.Execute].
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && time.Since(cb.benchedAt) >= cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker back to [StateClosed] and clears all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.trials = 0
	cb.trialWins = 0
	slog.Info("stt backend breaker reset", "backend", cb.name)
}
