package audio

import (
	"context"
)

// PipeWireBackend implements the AudioBackend interface for PipeWire
type PipeWireBackend struct {
	ffmpegDevices
	pipewire *PipeWire
}

// NewPipeWireBackend creates a backend listing sources with pw-link
func NewPipeWireBackend(ffmpegPath string) *PipeWireBackend {
	pw := NewPipeWire()
	return &PipeWireBackend{
		ffmpegDevices: ffmpegDevices{ffmpegPath: ffmpegPath, list: pw.ListSources},
		pipewire:      pw,
	}
}

// ListSources returns available PipeWire capture nodes
func (p *PipeWireBackend) ListSources(ctx context.Context) ([]Source, error) {
	return p.pipewire.ListSources(ctx)
}

// GetType returns the backend type
func (p *PipeWireBackend) GetType() BackendType {
	return BackendTypePipeWire
}

// PulseBackend implements the AudioBackend interface for PulseAudio
type PulseBackend struct {
	ffmpegDevices
	pulse *Pulse
}

// NewPulseBackend creates a backend listing sources with pactl
func NewPulseBackend(ffmpegPath string) *PulseBackend {
	p := &Pulse{}
	return &PulseBackend{
		ffmpegDevices: ffmpegDevices{ffmpegPath: ffmpegPath, list: p.ListSources},
		pulse:         p,
	}
}

// ListSources returns available PulseAudio sources
func (p *PulseBackend) ListSources(ctx context.Context) ([]Source, error) {
	return p.pulse.ListSources(ctx)
}

// GetType returns the backend type
func (p *PulseBackend) GetType() BackendType {
	return BackendTypePulse
}
