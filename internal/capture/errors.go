package capture

import (
	"errors"
	"fmt"

	"github.com/audiolibrelab/voicecapture/internal/audio"
)

var (
	ErrPermissionDenied  = errors.New("permission error")
	ErrDeviceNotFound    = errors.New("device error")
	ErrCapture           = errors.New("capture error")
	ErrNoActiveRecording = errors.New("no active recording")
	ErrEncodingRead      = errors.New("encoding read error")
	// ErrAlreadyActive is reported when Start is called while a session is
	// acquiring, recording or finalizing.
	ErrAlreadyActive = errors.New("recording already in progress")
	// ErrCancelled is returned to a pending Stop when Cancel wins the race.
	ErrCancelled = errors.New("recording cancelled")
)

// CaptureError is the value held by the error mailbox
type CaptureError struct {
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error returns the user-facing message
func (e CaptureError) Error() string { return e.Message }

func (e CaptureError) Unwrap() error { return e.Err }

// classifyStartError maps a backend failure to the capture taxonomy with a
// message the host can show as is.
func classifyStartError(err error) CaptureError {
	switch {
	case errors.Is(err, audio.ErrPermissionDenied):
		return CaptureError{
			Message: "Microphone access was denied. Please allow microphone access in your system or browser settings and try again.",
			Err:     fmt.Errorf("%w: %w", ErrPermissionDenied, err),
		}
	case errors.Is(err, audio.ErrNoDevice):
		return CaptureError{
			Message: "No microphone found. Please connect a microphone and try again.",
			Err:     fmt.Errorf("%w: %w", ErrDeviceNotFound, err),
		}
	case errors.Is(err, ErrAlreadyActive):
		return CaptureError{Message: "A recording is already in progress.", Err: err}
	default:
		return CaptureError{
			Message: fmt.Sprintf("Could not start recording: %v", err),
			Err:     fmt.Errorf("%w: %w", ErrCapture, err),
		}
	}
}
