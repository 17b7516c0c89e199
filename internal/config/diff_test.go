package config_test

import (
	"testing"

	"github.com/minutewire/minutewire/internal/config"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Server: config.ServerConfig{LogLevel: config.LogInfo},
		Live:   config.LiveConfig{UpdateIntervalSeconds: 5, SnapshotSeconds: 10},
	}
	d := config.Diff(cfg, cfg)
	if d.HasChanges() {
		t.Error("expected HasChanges=false for identical configs")
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Server: config.ServerConfig{LogLevel: config.LogInfo}}
	new := &config.Config{Server: config.ServerConfig{LogLevel: config.LogDebug}}

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("expected NewLogLevel=debug, got %q", d.NewLogLevel)
	}
	if d.LiveChanged || d.SegmenterChanged {
		t.Error("expected only the log level to change")
	}
}

func TestDiff_LiveTuningChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Live: config.LiveConfig{UpdateIntervalSeconds: 5, SnapshotSeconds: 10, MaxDisplayWords: 300},
	}
	new := &config.Config{
		Live: config.LiveConfig{UpdateIntervalSeconds: 3, SnapshotSeconds: 10, MaxDisplayWords: 300},
	}

	d := config.Diff(old, new)
	if !d.LiveChanged {
		t.Error("expected LiveChanged=true")
	}
	if d.NewLive.UpdateIntervalSeconds != 3 {
		t.Errorf("expected NewLive.UpdateIntervalSeconds=3, got %d", d.NewLive.UpdateIntervalSeconds)
	}
}

func TestDiff_SegmenterTuningChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Segmenter: config.SegmenterConfig{EnergyThreshold: 0.01, SpeechFrames: 3, SilenceFrames: 25},
	}
	new := &config.Config{
		Segmenter: config.SegmenterConfig{EnergyThreshold: 0.02, SpeechFrames: 3, SilenceFrames: 25},
	}

	d := config.Diff(old, new)
	if !d.SegmenterChanged {
		t.Error("expected SegmenterChanged=true")
	}
	if d.NewSegmenter.EnergyThreshold != 0.02 {
		t.Errorf("expected NewSegmenter.EnergyThreshold=0.02, got %.3f", d.NewSegmenter.EnergyThreshold)
	}
}

func TestDiff_MultipleChanges(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Server: config.ServerConfig{LogLevel: config.LogInfo},
		Live:   config.LiveConfig{UpdateIntervalSeconds: 5, SnapshotSeconds: 10},
	}
	new := &config.Config{
		Server: config.ServerConfig{LogLevel: config.LogWarn},
		Live:   config.LiveConfig{UpdateIntervalSeconds: 5, SnapshotSeconds: 15},
	}

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if !d.LiveChanged {
		t.Error("expected LiveChanged=true")
	}
	if !d.HasChanges() {
		t.Error("expected HasChanges=true")
	}
}
