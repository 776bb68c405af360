// Package audiotest provides an in-memory capture backend for tests.
package audiotest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/audiolibrelab/voicecapture/internal/audio"
)

// Backend implements audio.AudioBackend without touching any device.
// Recorders finalize on their own goroutine when stopped.
type Backend struct {
	Supported map[string]bool
	Err       error
	Sources   []audio.Source
	Type      audio.BackendType

	mu        sync.Mutex
	streams   []*Stream
	recorders []*Recorder
}

// NewBackend returns a PipeWire-typed backend supporting webm with two sources
func NewBackend() *Backend {
	return &Backend{
		Supported: map[string]bool{"audio/webm;codecs=opus": true, "audio/webm": true},
		Sources:   []audio.Source{{Name: "alsa_input.usb-mic"}, {Name: "echo-cancel-source", EchoCancel: true}},
		Type:      audio.BackendTypePipeWire,
	}
}

func (b *Backend) GetUserMedia(ctx context.Context, constraints audio.Constraints) (audio.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.Err != nil {
		return nil, b.Err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	s := &Stream{id: fmt.Sprintf("test-stream-%d", len(b.streams)+1)}
	b.streams = append(b.streams, s)
	return s, nil
}

func (b *Backend) IsTypeSupported(mimeType string) bool { return b.Supported[mimeType] }

func (b *Backend) NewRecorder(stream audio.Stream, mimeType string, events audio.RecorderEvents) (audio.MediaRecorder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := &Recorder{mimeType: mimeType, events: events, state: audio.RecorderInactive}
	b.recorders = append(b.recorders, r)
	return r, nil
}

func (b *Backend) ListSources(ctx context.Context) ([]audio.Source, error) {
	if b.Err != nil {
		return nil, b.Err
	}
	return b.Sources, nil
}

func (b *Backend) GetType() audio.BackendType { return b.Type }

// Recorder returns the most recently created recorder, or nil
func (b *Backend) Recorder() *Recorder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.recorders) == 0 {
		return nil
	}
	return b.recorders[len(b.recorders)-1]
}

// Stream returns the most recently acquired stream, or nil
func (b *Backend) Stream() *Stream {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.streams) == 0 {
		return nil
	}
	return b.streams[len(b.streams)-1]
}

// Stream is a fake capture stream
type Stream struct {
	id      string
	stopped atomic.Bool
}

func (s *Stream) ID() string            { return s.id }
func (s *Stream) Tracks() []audio.Track { return nil }
func (s *Stream) Stop()                 { s.stopped.Store(true) }
func (s *Stream) Stopped() bool         { return s.stopped.Load() }

// Recorder is a fake recorder driven by Emit and Fail
type Recorder struct {
	mimeType string
	events   audio.RecorderEvents

	mu    sync.Mutex
	state audio.RecorderState
}

func (r *Recorder) Start(time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = audio.RecorderRecording
	return nil
}

func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == audio.RecorderInactive {
		return
	}
	r.state = audio.RecorderInactive
	go r.events.OnStop()
}

func (r *Recorder) State() audio.RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) MimeType() string { return r.mimeType }

// Emit delivers a data chunk as the platform would
func (r *Recorder) Emit(chunk []byte) { r.events.OnData(chunk) }

// Fail delivers a recorder error
func (r *Recorder) Fail(err error) { r.events.OnError(err) }
