package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/minutewire/minutewire/internal/segment"
	"github.com/minutewire/minutewire/pkg/audio"
	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt":        {"whisper", "openai"},
	"summarizer": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero-valued tuning fields with their defaults so that a
// minimal config file stays minimal.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = audio.DefaultSampleRate
	}
	if cfg.Audio.FrameMillis == 0 {
		cfg.Audio.FrameMillis = 30
	}
	if cfg.Segmenter.EnergyThreshold == 0 {
		cfg.Segmenter.EnergyThreshold = segment.DefaultEnergyThreshold
	}
	if cfg.Segmenter.SpeechFrames == 0 {
		cfg.Segmenter.SpeechFrames = segment.DefaultSpeechFramesNeeded
	}
	if cfg.Segmenter.SilenceFrames == 0 {
		cfg.Segmenter.SilenceFrames = segment.DefaultSilenceFramesNeeded
	}
	if cfg.Segmenter.MaxUtteranceSeconds == 0 {
		cfg.Segmenter.MaxUtteranceSeconds = segment.DefaultMaxUtteranceSeconds
	}
	if cfg.Diarize.BaseThreshold == 0 {
		cfg.Diarize.BaseThreshold = 0.35
	}
	if cfg.Diarize.MaxSpeakers == 0 {
		cfg.Diarize.MaxSpeakers = 8
	}
	if cfg.Live.UpdateIntervalSeconds == 0 {
		cfg.Live.UpdateIntervalSeconds = 3
	}
	if cfg.Live.SnapshotSeconds == 0 {
		cfg.Live.SnapshotSeconds = 6
	}
	if cfg.Live.MaxDisplayWords == 0 {
		cfg.Live.MaxDisplayWords = 300
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when tls is set"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when tls is set"))
		}
	}

	// Audio
	if cfg.Audio.SampleRate != audio.DefaultSampleRate {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d is unsupported; only %d is supported", cfg.Audio.SampleRate, audio.DefaultSampleRate))
	}
	if cfg.Audio.FrameMillis < 10 || cfg.Audio.FrameMillis > 100 {
		errs = append(errs, fmt.Errorf("audio.frame_millis %d is out of range [10, 100]", cfg.Audio.FrameMillis))
	}

	// Segmenter
	if cfg.Segmenter.EnergyThreshold < 0 || cfg.Segmenter.EnergyThreshold >= 1 {
		errs = append(errs, fmt.Errorf("segmenter.energy_threshold %.3f is out of range [0, 1)", cfg.Segmenter.EnergyThreshold))
	}
	if cfg.Segmenter.SpeechFrames < 1 {
		errs = append(errs, fmt.Errorf("segmenter.speech_frames %d must be at least 1", cfg.Segmenter.SpeechFrames))
	}
	if cfg.Segmenter.SilenceFrames < 1 {
		errs = append(errs, fmt.Errorf("segmenter.silence_frames %d must be at least 1", cfg.Segmenter.SilenceFrames))
	}
	if cfg.Segmenter.MaxUtteranceSeconds < 1 {
		errs = append(errs, fmt.Errorf("segmenter.max_utterance_seconds %d must be at least 1", cfg.Segmenter.MaxUtteranceSeconds))
	}

	// Diarize
	if cfg.Diarize.BaseThreshold <= 0 || cfg.Diarize.BaseThreshold >= 1 {
		errs = append(errs, fmt.Errorf("diarize.base_threshold %.3f is out of range (0, 1)", cfg.Diarize.BaseThreshold))
	}
	if cfg.Diarize.MaxSpeakers < 1 || cfg.Diarize.MaxSpeakers > 32 {
		errs = append(errs, fmt.Errorf("diarize.max_speakers %d is out of range [1, 32]", cfg.Diarize.MaxSpeakers))
	}

	// Live
	if cfg.Live.UpdateIntervalSeconds < 1 {
		errs = append(errs, fmt.Errorf("live.update_interval_seconds %d must be at least 1", cfg.Live.UpdateIntervalSeconds))
	}
	if cfg.Live.SnapshotSeconds < cfg.Live.UpdateIntervalSeconds {
		errs = append(errs, fmt.Errorf("live.snapshot_seconds %d must be at least live.update_interval_seconds %d to overlap consecutive snapshots",
			cfg.Live.SnapshotSeconds, cfg.Live.UpdateIntervalSeconds))
	}
	if cfg.Live.MaxDisplayWords < 1 {
		errs = append(errs, fmt.Errorf("live.max_display_words %d must be at least 1", cfg.Live.MaxDisplayWords))
	}

	// Provider name validation: warn for unknown provider names.
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("summarizer", cfg.Providers.Summarizer.Name)

	// STT must exist; the pipeline has nothing to do without it.
	if cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt.name is required"))
	}
	if cfg.Providers.STT.Name == "whisper" && cfg.Providers.STT.Model == "" {
		errs = append(errs, errors.New("providers.stt.model (GGML model path) is required for the whisper provider"))
	}
	if cfg.Providers.STT.Name == "openai" && cfg.Providers.STT.APIKey == "" {
		errs = append(errs, errors.New("providers.stt.api_key is required for the openai provider"))
	}

	// Summarizer availability warnings
	if cfg.Providers.Summarizer.Name == "" {
		slog.Warn("no summarizer provider configured; reports will use the extractive summary only")
	}
	if cfg.Providers.Summarizer.Name != "" && cfg.Providers.Summarizer.Model == "" {
		slog.Warn("providers.summarizer.model is empty; the provider default model will be used",
			"summarizer", cfg.Providers.Summarizer.Name)
	}

	// Storage availability
	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; meetings will not be persisted")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
