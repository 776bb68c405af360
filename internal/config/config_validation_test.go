package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadWithProfile_ActiveConfig(t *testing.T) {
	content := `
active_config: interview

audio:
  backend: pulse

configs:
  default:
    capture:
      sample_rate: 48000
    output:
      directory: /tmp/voicecapture-default
  interview:
    capture:
      noise_suppression: false
      encodings:
        - audio/ogg;codecs=opus
        - audio/ogg
    display:
      tick_interval_ms: 500
`

	configFile := createTempConfig(t, content)

	cfg, err := LoadWithProfile(configFile, "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Audio.Backend != "pulse" {
		t.Errorf("Expected global backend 'pulse', got %s", cfg.Audio.Backend)
	}
	if cfg.Capture.SampleRate != 48000 {
		t.Errorf("Expected sample rate from default profile 48000, got %d", cfg.Capture.SampleRate)
	}
	if cfg.NoiseSuppression() {
		t.Errorf("Expected noise suppression disabled by interview profile")
	}
	if !cfg.EchoCancellation() {
		t.Errorf("Expected echo cancellation inherited as enabled")
	}
	if len(cfg.Capture.Encodings) != 2 || cfg.Capture.Encodings[1] != "audio/ogg" {
		t.Errorf("Expected interview encodings, got %v", cfg.Capture.Encodings)
	}
	if cfg.Display.TickIntervalMs != 500 {
		t.Errorf("Expected tick interval 500, got %d", cfg.Display.TickIntervalMs)
	}
	if cfg.Output.Directory != "/tmp/voicecapture-default" {
		t.Errorf("Expected output directory from default profile, got %s", cfg.Output.Directory)
	}
}

func TestLoadWithProfile_ExplicitProfileWins(t *testing.T) {
	content := `
active_config: interview
configs:
  interview:
    capture:
      sample_rate: 16000
  studio:
    capture:
      sample_rate: 96000
`

	configFile := createTempConfig(t, content)

	cfg, err := LoadWithProfile(configFile, "studio")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if cfg.Capture.SampleRate != 96000 {
		t.Errorf("Expected sample rate 96000, got %d", cfg.Capture.SampleRate)
	}
}

func TestLoadWithProfile_UnknownProfile(t *testing.T) {
	configFile := createTempConfig(t, "configs:\n  default:\n    capture:\n      sample_rate: 44100\n")

	_, err := LoadWithProfile(configFile, "missing")
	if err == nil {
		t.Fatal("Expected error for unknown profile")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected 'not found' error, got: %v", err)
	}
}

func TestLoadWithProfile_InvalidValues(t *testing.T) {
	content := `
configs:
  default:
    capture:
      sample_rate: 1000
`
	configFile := createTempConfig(t, content)

	_, err := LoadWithProfile(configFile, "")
	if err == nil {
		t.Fatal("Expected validation error for sample rate 1000")
	}
	if !strings.Contains(err.Error(), "sample_rate") {
		t.Errorf("Expected sample_rate error, got: %v", err)
	}
}

func TestLoadWithProfile_MissingFileUsesDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	cfg, err := LoadWithProfile(missing, "")
	if err != nil {
		t.Fatalf("Expected defaults for missing file, got: %v", err)
	}
	if cfg.Capture.SampleRate != 44100 {
		t.Errorf("Expected default sample rate, got %d", cfg.Capture.SampleRate)
	}

	if _, err := LoadWithProfile(missing, "studio"); err == nil {
		t.Errorf("Expected error when a named profile is requested without a file")
	}
}

func TestUpdateActiveConfig(t *testing.T) {
	content := `
active_config: default
configs:
  default:
    capture:
      sample_rate: 44100
  studio:
    capture:
      sample_rate: 96000
`
	configFile := createTempConfig(t, content)

	if err := UpdateActiveConfig(configFile, "studio"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	root, err := ReadRootConfig(configFile)
	if err != nil {
		t.Fatalf("Expected no error re-reading config, got: %v", err)
	}
	if root.ActiveConfig != "studio" {
		t.Errorf("Expected active_config 'studio', got %s", root.ActiveConfig)
	}

	if err := UpdateActiveConfig(configFile, "ghost"); err == nil {
		t.Errorf("Expected error for unknown profile")
	}
}

// Helper function to create temporary config files
func createTempConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "voicecapture.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}

	return path
}
