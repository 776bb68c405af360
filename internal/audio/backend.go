package audio

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/audiolibrelab/voicecapture/internal/config"
)

// BackendType represents the type of audio backend
type BackendType string

const (
	BackendTypePipeWire BackendType = "pipewire"
	BackendTypePulse    BackendType = "pulse"
	BackendTypeAuto     BackendType = "auto"
)

// Source is a capture source offered by a backend
type Source struct {
	Name       string `json:"name"`
	EchoCancel bool   `json:"echo_cancel"`
}

// AudioBackend is everything a capture session needs from the platform
type AudioBackend interface {
	MediaDevices
	RecorderFactory

	// List available capture sources
	ListSources(ctx context.Context) ([]Source, error)

	// Get the backend type
	GetType() BackendType
}

// NewBackend creates the backend selected by configuration
func NewBackend(cfg *config.Config) AudioBackend {
	backendType := determineBackend(cfg)
	slog.Debug("Selected audio backend", "backend", backendType)

	switch backendType {
	case BackendTypePulse:
		return NewPulseBackend(cfg.Audio.FFmpegPath)
	default:
		return NewPipeWireBackend(cfg.Audio.FFmpegPath)
	}
}

// determineBackend resolves "auto" by probing for the PipeWire tools
func determineBackend(cfg *config.Config) BackendType {
	switch strings.ToLower(cfg.Audio.Backend) {
	case "pipewire":
		return BackendTypePipeWire
	case "pulse":
		return BackendTypePulse
	}

	if available := GetAvailableBackends(); len(available) > 0 {
		return available[0]
	}
	return BackendTypePipeWire
}

// GetAvailableBackends returns list of available backends on current system
func GetAvailableBackends() []BackendType {
	backends := []BackendType{}

	if _, err := exec.LookPath("pw-link"); err == nil {
		backends = append(backends, BackendTypePipeWire)
	}
	if _, err := exec.LookPath("pactl"); err == nil {
		backends = append(backends, BackendTypePulse)
	}

	return backends
}
