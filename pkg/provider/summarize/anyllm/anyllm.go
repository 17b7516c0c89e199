// Package anyllm provides a summarization provider backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, and more.
//
// Usage:
//
//	p, err := anyllm.New("openai", "gpt-4o-mini", anyllmlib.WithAPIKey("sk-..."))
//	p, err := anyllm.NewOllama("llama3.2")
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/minutewire/minutewire/pkg/provider/summarize"
)

// systemPrompt steers every backend toward short, factual meeting summaries.
const systemPrompt = "You are a meeting summarizer. Condense the transcript excerpt " +
	"into a short factual summary. Keep the speakers' own wording for decisions and " +
	"commitments, do not invent details, and answer with the summary text only."

// Provider implements summarize.Provider by wrapping github.com/mozilla-ai/any-llm-go.
type Provider struct {
	backend anyllmlib.Provider
	model   string

	temperature float64
	maxTokens   int
}

// Option configures a Provider.
type Option func(*Provider)

// WithTemperature overrides the sampling temperature. The default of 0.2 keeps
// summaries close to the transcript.
func WithTemperature(t float64) Option {
	return func(p *Provider) { p.temperature = t }
}

// WithMaxTokens caps the summary length in tokens. Default 512.
func WithMaxTokens(n int) Option {
	return func(p *Provider) { p.maxTokens = n }
}

// New creates a new Provider backed by the given LLM provider name.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama", "deepseek",
// "mistral", "groq", "llamacpp", "llamafile".
//
// model is the specific model to use (e.g., "gpt-4o-mini", "claude-3-5-haiku-latest").
//
// libOpts are any-llm-go configuration options (e.g., anyllmlib.WithAPIKey,
// anyllmlib.WithBaseURL). If no API key option is provided, the backend falls
// back to its usual environment variable (OPENAI_API_KEY, ANTHROPIC_API_KEY, etc.).
func New(providerName, model string, libOpts []anyllmlib.Option, opts ...Option) (*Provider, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}

	backend, err := createBackend(providerName, libOpts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}

	p := &Provider{
		backend:     backend,
		model:       model,
		temperature: 0.2,
		maxTokens:   512,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// NewOpenAI creates a Provider backed by OpenAI.
// Without libOpts, it reads the OPENAI_API_KEY environment variable.
func NewOpenAI(model string, libOpts ...anyllmlib.Option) (*Provider, error) {
	return New("openai", model, libOpts)
}

// NewAnthropic creates a Provider backed by Anthropic.
// Without libOpts, it reads the ANTHROPIC_API_KEY environment variable.
func NewAnthropic(model string, libOpts ...anyllmlib.Option) (*Provider, error) {
	return New("anthropic", model, libOpts)
}

// NewOllama creates a Provider backed by Ollama (local inference).
// Without libOpts, it connects to http://localhost:11434.
func NewOllama(model string, libOpts ...anyllmlib.Option) (*Provider, error) {
	return New("ollama", model, libOpts)
}

// createBackend creates the underlying any-llm-go provider for the given provider name.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile", providerName)
	}
}

// Summarize implements summarize.Provider.
func (p *Provider) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("anyllm: empty input text")
	}

	temperature := p.temperature
	maxTokens := p.maxTokens
	params := anyllmlib.CompletionParams{
		Model: p.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: systemPrompt},
			{Role: anyllmlib.RoleUser, Content: text},
		},
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}

	resp, err := p.backend.Completion(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anyllm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("anyllm: empty choices in response")
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.ContentString())
	if summary == "" {
		return "", fmt.Errorf("anyllm: backend returned an empty summary")
	}
	return summary, nil
}

// Ensure Provider implements summarize.Provider at compile time.
var _ summarize.Provider = (*Provider)(nil)
