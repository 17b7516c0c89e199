// Package mock provides a test double for the summarize.Provider interface.
//
// Use Provider to return canned summaries and inspect the chunks that were
// submitted:
//
//	p := &mock.Provider{Summary: "short recap"}
//	out, _ := p.Summarize(ctx, transcript)
package mock

import (
	"context"
	"sync"

	"github.com/minutewire/minutewire/pkg/provider/summarize"
)

// SummarizeCall records a single invocation of Provider.Summarize.
type SummarizeCall struct {
	// Ctx is the context passed to Summarize.
	Ctx context.Context
	// Text is the input text passed to Summarize.
	Text string
}

// Provider is a mock implementation of summarize.Provider.
type Provider struct {
	mu sync.Mutex

	// Summary is returned from Summarize when SummarizeFunc and SummarizeErr
	// are both unset.
	Summary string

	// SummarizeErr, if non-nil, is returned as the error from Summarize.
	SummarizeErr error

	// SummarizeFunc, if non-nil, computes the result per call and takes
	// precedence over Summary and SummarizeErr.
	SummarizeFunc func(ctx context.Context, text string) (string, error)

	// SummarizeCalls records every call to Summarize.
	SummarizeCalls []SummarizeCall
}

// Summarize records the call and returns the configured result.
func (p *Provider) Summarize(ctx context.Context, text string) (string, error) {
	p.mu.Lock()
	p.SummarizeCalls = append(p.SummarizeCalls, SummarizeCall{Ctx: ctx, Text: text})
	fn := p.SummarizeFunc
	summary, err := p.Summary, p.SummarizeErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}
	if err != nil {
		return "", err
	}
	return summary, nil
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SummarizeCalls = nil
}

// Ensure Provider implements summarize.Provider at compile time.
var _ summarize.Provider = (*Provider)(nil)
