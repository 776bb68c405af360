package audio

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrPermissionDenied is returned when the capture source refuses access.
	ErrPermissionDenied = errors.New("microphone access denied")
	// ErrNoDevice is returned when no capture source exists.
	ErrNoDevice = errors.New("no microphone found")
)

// Constraints describes how the microphone should be captured
type Constraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	SampleRate       int
	Device           string // empty selects the default capture source
}

// Track is one capture channel of a Stream
type Track interface {
	Label() string
	Stop()
	Stopped() bool
}

// Stream is an acquired microphone. Stop releases every track and may be
// called more than once.
type Stream interface {
	ID() string
	Tracks() []Track
	Stop()
}

// MediaDevices grants access to capture streams
type MediaDevices interface {
	GetUserMedia(ctx context.Context, constraints Constraints) (Stream, error)
}

// RecorderState mirrors the lifecycle of a platform recorder
type RecorderState string

const (
	RecorderInactive  RecorderState = "inactive"
	RecorderRecording RecorderState = "recording"
	RecorderPaused    RecorderState = "paused"
)

// RecorderEvents are the lifecycle notifications a recorder delivers.
// OnData receives every timeslice worth of encoded audio, including the
// final flush which always precedes OnStop. Events are delivered from the
// recorder's own goroutines, never from inside a MediaRecorder method.
type RecorderEvents struct {
	OnData  func(chunk []byte)
	OnStop  func()
	OnError func(err error)
}

// MediaRecorder encodes a Stream into a container/codec
type MediaRecorder interface {
	Start(timeslice time.Duration) error
	// Stop requests finalization and returns immediately; completion is
	// signalled through RecorderEvents.OnStop.
	Stop()
	State() RecorderState
	MimeType() string
}

// RecorderFactory creates recorders for a stream
type RecorderFactory interface {
	IsTypeSupported(mimeType string) bool
	NewRecorder(stream Stream, mimeType string, events RecorderEvents) (MediaRecorder, error)
}
