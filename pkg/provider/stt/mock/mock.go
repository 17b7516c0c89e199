// Package mock provides a test double for the stt.Provider interface.
//
// Use Provider to return canned transcriptions and inspect the audio that was
// submitted:
//
//	p := &mock.Provider{Result: stt.Result{Text: "hello there"}}
//	res, _ := p.Transcribe(ctx, samples, stt.Options{})
package mock

import (
	"context"
	"sync"

	"github.com/minutewire/minutewire/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Provider.Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// Samples is a copy of the audio passed to Transcribe.
	Samples []float32
	// Opts is the Options value passed to Transcribe.
	Opts stt.Options
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Result is returned from Transcribe when TranscribeFunc and
	// TranscribeErr are both unset.
	Result stt.Result

	// TranscribeErr, if non-nil, is returned as the error from Transcribe.
	TranscribeErr error

	// TranscribeFunc, if non-nil, computes the result per call and takes
	// precedence over Result and TranscribeErr.
	TranscribeFunc func(ctx context.Context, samples []float32, opts stt.Options) (stt.Result, error)

	// TranscribeCalls records every call to Transcribe.
	TranscribeCalls []TranscribeCall
}

// Transcribe records the call and returns the configured result.
func (p *Provider) Transcribe(ctx context.Context, samples []float32, opts stt.Options) (stt.Result, error) {
	p.mu.Lock()
	copied := make([]float32, len(samples))
	copy(copied, samples)
	p.TranscribeCalls = append(p.TranscribeCalls, TranscribeCall{Ctx: ctx, Samples: copied, Opts: opts})
	fn := p.TranscribeFunc
	result, err := p.Result, p.TranscribeErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, samples, opts)
	}
	if err != nil {
		return stt.Result{}, err
	}
	return result, nil
}

// Calls returns a snapshot of the recorded calls. Thread-safe.
func (p *Provider) Calls() []TranscribeCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]TranscribeCall, len(p.TranscribeCalls))
	copy(out, p.TranscribeCalls)
	return out
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TranscribeCalls = nil
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)
