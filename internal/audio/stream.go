package audio

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

var streamCounter atomic.Uint64

type deviceTrack struct {
	label   string
	stopped atomic.Bool
}

func (t *deviceTrack) Label() string { return t.label }
func (t *deviceTrack) Stop()         { t.stopped.Store(true) }
func (t *deviceTrack) Stopped() bool { return t.stopped.Load() }

// deviceStream is a reserved capture source. The ffmpeg process that reads
// it belongs to the recorder; the stream only carries the resolved source
// and constraints.
type deviceStream struct {
	id          string
	source      string
	constraints Constraints
	tracks      []*deviceTrack

	once sync.Once
}

func (s *deviceStream) ID() string { return s.id }

func (s *deviceStream) Tracks() []Track {
	tracks := make([]Track, len(s.tracks))
	for i, t := range s.tracks {
		tracks[i] = t
	}
	return tracks
}

func (s *deviceStream) Stop() {
	s.once.Do(func() {
		for _, t := range s.tracks {
			t.Stop()
		}
	})
}

func (s *deviceStream) released() bool {
	for _, t := range s.tracks {
		if !t.Stopped() {
			return false
		}
	}
	return true
}

// ffmpegDevices resolves capture sources through a lister and records them
// with ffmpeg's pulse input, which PipeWire serves through pipewire-pulse.
type ffmpegDevices struct {
	ffmpegPath string
	list       func(ctx context.Context) ([]Source, error)
}

// GetUserMedia checks a capture source exists and reserves it
func (d *ffmpegDevices) GetUserMedia(ctx context.Context, constraints Constraints) (Stream, error) {
	sources, err := d.list(ctx)
	if err != nil {
		return nil, err
	}

	source, err := selectSource(sources, constraints)
	if err != nil {
		return nil, err
	}

	n := streamCounter.Add(1)
	return &deviceStream{
		id:          fmt.Sprintf("stream-%d", n),
		source:      source,
		constraints: constraints,
		tracks:      []*deviceTrack{{label: source}},
	}, nil
}

// selectSource applies the device and echo cancellation constraints.
// "default" lets the sound server pick its default source.
func selectSource(sources []Source, constraints Constraints) (string, error) {
	if len(sources) == 0 {
		return "", ErrNoDevice
	}

	if constraints.Device != "" {
		for _, s := range sources {
			if s.Name == constraints.Device {
				return s.Name, nil
			}
		}
		return "", fmt.Errorf("%w: capture source %q not found", ErrNoDevice, constraints.Device)
	}

	if constraints.EchoCancellation {
		for _, s := range sources {
			if s.EchoCancel {
				return s.Name, nil
			}
		}
	}

	return "default", nil
}

// IsTypeSupported reports whether ffmpeg can produce the given MIME type
func (d *ffmpegDevices) IsTypeSupported(mimeType string) bool {
	_, ok := encodingArgs(mimeType)
	return ok
}

// NewRecorder creates an ffmpeg recorder over a stream from this backend
func (d *ffmpegDevices) NewRecorder(stream Stream, mimeType string, events RecorderEvents) (MediaRecorder, error) {
	ds, ok := stream.(*deviceStream)
	if !ok {
		return nil, fmt.Errorf("stream %s was not acquired from this backend", stream.ID())
	}
	if ds.released() {
		return nil, fmt.Errorf("stream %s has already been released", ds.ID())
	}

	codecArgs, ok := encodingArgs(mimeType)
	if !ok {
		return nil, fmt.Errorf("unsupported encoding: %s", mimeType)
	}

	return newFFmpegRecorder(d.ffmpegPath, ds, mimeType, codecArgs, events), nil
}

// encodingArgs maps a MIME type onto ffmpeg codec and muxer arguments
func encodingArgs(mimeType string) ([]string, bool) {
	normalized := strings.ToLower(strings.ReplaceAll(mimeType, " ", ""))
	switch normalized {
	case "audio/webm;codecs=opus", "audio/webm":
		return []string{"-c:a", "libopus", "-f", "webm"}, true
	case "audio/ogg;codecs=opus", "audio/ogg":
		return []string{"-c:a", "libopus", "-f", "ogg"}, true
	case "audio/wav", "audio/wave":
		return []string{"-c:a", "pcm_s16le", "-f", "wav"}, true
	}
	return nil, false
}
