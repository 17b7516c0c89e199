// Package openai provides an STT provider backed by the OpenAI audio
// transcription API.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/minutewire/minutewire/pkg/audio"
	"github.com/minutewire/minutewire/pkg/provider/stt"
)

// DefaultModel is the default OpenAI transcription model.
const DefaultModel = oai.AudioModelWhisper1

// Ensure Provider implements the stt.Provider interface.
var _ stt.Provider = (*Provider)(nil)

// Provider implements stt.Provider using the OpenAI API. Utterance audio is
// wrapped in a WAV container and submitted as one transcription request per
// utterance.
type Provider struct {
	client oai.Client
	model  string
}

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI STT Provider.
// If model is empty, DefaultModel (whisper-1) is used.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai stt: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{client: client, model: model}, nil
}

// Transcribe implements stt.Provider.
//
// The API does not return reliable word timing for all models, so when word
// spans are requested they are interpolated evenly across the utterance
// duration instead.
func (p *Provider) Transcribe(ctx context.Context, samples []float32, opts stt.Options) (stt.Result, error) {
	if len(samples) == 0 {
		return stt.Result{}, nil
	}

	wav := encodeWAV(audio.Float32ToPCM16(samples), audio.DefaultSampleRate)

	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(wav), "utterance.wav", "audio/wav"),
		Model: p.model,
	}
	if opts.Language != "" {
		params.Language = param.NewOpt(opts.Language)
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return stt.Result{}, fmt.Errorf("openai stt: transcribe: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	result := stt.Result{Text: text}
	if opts.WordTimestamps && text != "" {
		duration := time.Duration(len(samples)) * time.Second / audio.DefaultSampleRate
		result.Words = interpolateWords(text, duration)
	}
	return result, nil
}

// interpolateWords spreads the utterance duration evenly across its words.
func interpolateWords(text string, duration time.Duration) []stt.Word {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	step := duration / time.Duration(len(fields))
	words := make([]stt.Word, len(fields))
	for i, f := range fields {
		ws := step * time.Duration(i)
		we := ws + step
		if i == len(fields)-1 {
			we = duration
		}
		words[i] = stt.Word{Word: f, Start: ws, End: we}
	}
	return words
}
