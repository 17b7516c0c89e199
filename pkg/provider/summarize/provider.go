// Package summarize defines the Provider interface for abstractive text
// summarization backends.
//
// Summarization is an optional collaborator: the intelligence extractor's
// extractive path is the baseline and required fallback, and a Provider only
// upgrades the summary quality when one is configured and healthy. Callers
// must treat any Provider error as "use the fallback", never as fatal.
//
// Implementations must be safe for concurrent use.
package summarize

import "context"

// Provider is the abstraction over any summarization backend.
type Provider interface {
	// Summarize condenses text into a short summary. The input is at most a
	// ~1000-word chunk; callers handle chunking and concatenation of longer
	// transcripts.
	//
	// Returns an error if the backend is unreachable or refuses the input;
	// callers fall back to extractive summarization.
	Summarize(ctx context.Context, text string) (string, error)
}
