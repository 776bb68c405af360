package capture

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/audiolibrelab/voicecapture/internal/audio"
)

type fakeTrack struct{ stopped atomic.Bool }

func (t *fakeTrack) Label() string { return "fake microphone" }
func (t *fakeTrack) Stop()         { t.stopped.Store(true) }
func (t *fakeTrack) Stopped() bool { return t.stopped.Load() }

type fakeStream struct {
	id    string
	track *fakeTrack
	stops atomic.Int32
}

func (s *fakeStream) ID() string            { return s.id }
func (s *fakeStream) Tracks() []audio.Track { return []audio.Track{s.track} }
func (s *fakeStream) Stop() {
	s.stops.Add(1)
	s.track.Stop()
}

// fakeRecorder finalizes on its own goroutine unless manual is set, in
// which case the test drives finalize.
type fakeRecorder struct {
	mime   string
	events audio.RecorderEvents
	manual bool
	tail   []byte

	mu        sync.Mutex
	state     audio.RecorderState
	timeslice time.Duration
	stopCalls int
	startErr  error
}

func (r *fakeRecorder) Start(timeslice time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return r.startErr
	}
	r.timeslice = timeslice
	r.state = audio.RecorderRecording
	return nil
}

func (r *fakeRecorder) Stop() {
	r.mu.Lock()
	if r.state == audio.RecorderInactive {
		r.mu.Unlock()
		return
	}
	r.state = audio.RecorderInactive
	r.stopCalls++
	manual := r.manual
	r.mu.Unlock()

	if !manual {
		go r.finalize()
	}
}

func (r *fakeRecorder) State() audio.RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *fakeRecorder) MimeType() string { return r.mime }

func (r *fakeRecorder) emit(chunk []byte) { r.events.OnData(chunk) }

func (r *fakeRecorder) fail(err error) { r.events.OnError(err) }

// finalize delivers the last chunk followed by the stop event
func (r *fakeRecorder) finalize() {
	if r.tail != nil {
		r.events.OnData(r.tail)
	}
	r.events.OnStop()
}

func (r *fakeRecorder) setState(state audio.RecorderState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
}

type fakeBackend struct {
	supported      map[string]bool
	getErr         error
	block          chan struct{}
	manualFinalize bool
	tail           []byte
	startErr       error
	newRecorderErr error

	mu          sync.Mutex
	constraints []audio.Constraints
	streams     []*fakeStream
	recorders   []*fakeRecorder
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		supported: map[string]bool{"audio/webm;codecs=opus": true, "audio/webm": true},
	}
}

func (b *fakeBackend) GetUserMedia(ctx context.Context, constraints audio.Constraints) (audio.Stream, error) {
	b.mu.Lock()
	b.constraints = append(b.constraints, constraints)
	b.mu.Unlock()

	if b.block != nil {
		select {
		case <-b.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if b.getErr != nil {
		return nil, b.getErr
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	stream := &fakeStream{id: fmt.Sprintf("stream-%d", len(b.streams)+1), track: &fakeTrack{}}
	b.streams = append(b.streams, stream)
	return stream, nil
}

func (b *fakeBackend) IsTypeSupported(mimeType string) bool { return b.supported[mimeType] }

func (b *fakeBackend) NewRecorder(stream audio.Stream, mimeType string, events audio.RecorderEvents) (audio.MediaRecorder, error) {
	if b.newRecorderErr != nil {
		return nil, b.newRecorderErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	rec := &fakeRecorder{
		mime:     mimeType,
		events:   events,
		manual:   b.manualFinalize,
		tail:     b.tail,
		state:    audio.RecorderInactive,
		startErr: b.startErr,
	}
	b.recorders = append(b.recorders, rec)
	return rec, nil
}

func (b *fakeBackend) lastRecorder() *fakeRecorder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.recorders) == 0 {
		return nil
	}
	return b.recorders[len(b.recorders)-1]
}

func (b *fakeBackend) lastStream() *fakeStream {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.streams) == 0 {
		return nil
	}
	return b.streams[len(b.streams)-1]
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingSink struct {
	mu    sync.Mutex
	texts []string
}

func (s *recordingSink) Show(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
}

func (s *recordingSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.texts)
}

func (s *recordingSink) Last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.texts) == 0 {
		return ""
	}
	return s.texts[len(s.texts)-1]
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// noTickOptions keeps the duration ticker from firing during a test
func noTickOptions() Options {
	opts := DefaultOptions()
	opts.SettleDelay = time.Hour
	return opts
}
