package config_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/minutewire/minutewire/internal/config"
)

func TestValidate_MissingSTTProvider(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":8080"
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing stt provider, got nil")
	}
	if !strings.Contains(err.Error(), "providers.stt.name") {
		t.Errorf("error should mention providers.stt.name, got: %v", err)
	}
}

func TestValidate_WhisperRequiresModelPath(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  stt:
    name: whisper
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for whisper without model path, got nil")
	}
	if !strings.Contains(err.Error(), "model") {
		t.Errorf("error should mention model, got: %v", err)
	}
}

func TestValidate_OpenAIRequiresAPIKey(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  stt:
    name: openai
    model: whisper-1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for openai stt without api key, got nil")
	}
	if !strings.Contains(err.Error(), "api_key") {
		t.Errorf("error should mention api_key, got: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
live:
  update_interval_seconds: 10
  snapshot_seconds: 5
providers:
  stt:
    name: whisper
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
	if !strings.Contains(errStr, "snapshot_seconds") {
		t.Errorf("error should mention snapshot_seconds, got: %v", err)
	}
	if !strings.Contains(errStr, "model") {
		t.Errorf("error should mention the missing whisper model, got: %v", err)
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	// Sanity-check that the map is populated.
	if len(config.ValidProviderNames) == 0 {
		t.Fatal("ValidProviderNames should not be empty")
	}
	sttNames := config.ValidProviderNames["stt"]
	if !slices.Contains(sttNames, "whisper") {
		t.Error(`ValidProviderNames["stt"] should contain "whisper"`)
	}
	sumNames := config.ValidProviderNames["summarizer"]
	if !slices.Contains(sumNames, "openai") {
		t.Error(`ValidProviderNames["summarizer"] should contain "openai"`)
	}
}
