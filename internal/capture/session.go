package capture

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/audiolibrelab/voicecapture/internal/audio"
)

// State is the lifecycle position of the session
type State string

const (
	StateIdle       State = "idle"
	StateAcquiring  State = "acquiring"
	StateRecording  State = "recording"
	StateFinalizing State = "finalizing"
)

// DisplaySink receives the formatted duration. Implementations must not
// call back into the Session.
type DisplaySink interface {
	Show(text string)
}

// Options controls capture and duration display
type Options struct {
	Constraints  audio.Constraints
	Encodings    []string
	Timeslice    time.Duration
	TickInterval time.Duration
	SettleDelay  time.Duration
}

// DefaultOptions returns the standard voice capture settings
func DefaultOptions() Options {
	return Options{
		Constraints: audio.Constraints{
			EchoCancellation: true,
			NoiseSuppression: true,
			SampleRate:       44100,
		},
		Encodings:    []string{"audio/webm;codecs=opus", "audio/webm"},
		Timeslice:    time.Second,
		TickInterval: time.Second,
		SettleDelay:  100 * time.Millisecond,
	}
}

// SessionInfo is a snapshot of the session for status queries
type SessionInfo struct {
	ID        string     `json:"id,omitempty"`
	State     State      `json:"state"`
	Recording bool       `json:"recording"`
	MimeType  string     `json:"mime_type,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	Elapsed   string     `json:"elapsed,omitempty"`
	Chunks    int        `json:"chunks"`
	Bytes     int        `json:"bytes"`
}

type stopOutcome struct {
	result RecordingResult
	err    error
}

// run holds everything that belongs to one recording. Platform callbacks
// are bound to their run and dropped once it is no longer current.
type run struct {
	id        string
	stream    audio.Stream
	recorder  audio.MediaRecorder
	mimeType  string
	chunks    [][]byte
	size      int
	startedAt time.Time
	ticker    *durationTicker
	waiter    chan stopOutcome
	cancelled bool
}

// Session drives one microphone recording at a time and hands results to
// the host through Stop or the mailboxes.
type Session struct {
	devices   audio.MediaDevices
	recorders audio.RecorderFactory
	opts      Options
	encoder   Encoder
	sink      DisplaySink
	logger    *slog.Logger
	now       func() time.Time

	mu            sync.Mutex
	state         State
	active        *run
	lastRecording Mailbox[RecordingResult]
	lastError     Mailbox[CaptureError]
}

// Option customizes a Session
type Option func(*Session)

// WithEncoder replaces the base64 payload encoder
func WithEncoder(e Encoder) Option { return func(s *Session) { s.encoder = e } }
// WithDisplay sets where the elapsed time is shown
func WithDisplay(sink DisplaySink) Option { return func(s *Session) { s.sink = sink } }
// WithLogger sets the session logger
func WithLogger(logger *slog.Logger) Option { return func(s *Session) { s.logger = logger } }

// WithClock replaces time.Now for elapsed time calculations
func WithClock(now func() time.Time) Option { return func(s *Session) { s.now = now } }

// NewSession creates an idle session over the given platform facilities
func NewSession(devices audio.MediaDevices, recorders audio.RecorderFactory, opts Options, options ...Option) *Session {
	s := &Session{
		devices:   devices,
		recorders: recorders,
		opts:      normalizeOptions(opts),
		encoder:   Base64Encoder,
		logger:    slog.Default(),
		now:       time.Now,
		state:     StateIdle,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

func normalizeOptions(opts Options) Options {
	defaults := DefaultOptions()
	if len(opts.Encodings) == 0 {
		opts.Encodings = defaults.Encodings
	}
	if opts.Timeslice <= 0 {
		opts.Timeslice = defaults.Timeslice
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaults.TickInterval
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	return opts
}

// Configure swaps the platform facilities and options used by the next
// recording. Unread mailbox values are kept.
func (s *Session) Configure(devices audio.MediaDevices, recorders audio.RecorderFactory, opts Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return ErrAlreadyActive
	}
	s.devices = devices
	s.recorders = recorders
	s.opts = normalizeOptions(opts)
	return nil
}

// Start acquires the microphone and begins recording. Failures never
// escape: they are reported through the error mailbox and a false result.
func (s *Session) Start(ctx context.Context) bool {
	s.mu.Lock()
	if s.active != nil {
		s.lastError.Put(classifyStartError(ErrAlreadyActive))
		s.logger.Warn("Start requested while a recording is active", "session", s.active.id, "state", s.state)
		s.mu.Unlock()
		return false
	}
	r := &run{id: uuid.NewString()}
	s.active = r
	s.state = StateAcquiring
	s.lastError.Clear()
	s.mu.Unlock()

	s.logger.Debug("Requesting microphone", "session", r.id,
		"echo_cancellation", s.opts.Constraints.EchoCancellation,
		"noise_suppression", s.opts.Constraints.NoiseSuppression,
		"sample_rate", s.opts.Constraints.SampleRate)

	stream, err := s.devices.GetUserMedia(ctx, s.opts.Constraints)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != r || r.cancelled {
		if stream != nil {
			stream.Stop()
		}
		s.logger.Debug("Session cancelled during acquisition", "session", r.id)
		return false
	}
	if err != nil {
		s.abortLocked(r, err)
		return false
	}
	r.stream = stream
	r.mimeType = SelectEncoding(s.recorders.IsTypeSupported, s.opts.Encodings)

	recorder, err := s.recorders.NewRecorder(stream, r.mimeType, audio.RecorderEvents{
		OnData:  func(chunk []byte) { s.handleData(r, chunk) },
		OnStop:  func() { s.handleStop(r) },
		OnError: func(err error) { s.handleError(r, err) },
	})
	if err != nil {
		s.abortLocked(r, fmt.Errorf("failed to create recorder: %w", err))
		return false
	}
	r.recorder = recorder

	if err := recorder.Start(s.opts.Timeslice); err != nil {
		s.abortLocked(r, fmt.Errorf("failed to start recorder: %w", err))
		return false
	}

	r.startedAt = s.now()
	s.state = StateRecording
	r.ticker = startDurationTicker(s.opts.SettleDelay, s.opts.TickInterval, func() { s.tick(r) })

	s.logger.Info("Recording started", "session", r.id, "mime_type", r.mimeType, "stream", stream.ID())
	return true
}

// abortLocked tears down a run that failed before it started recording
func (s *Session) abortLocked(r *run, err error) {
	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
	}
	if r.stream != nil {
		r.stream.Stop()
		r.stream = nil
	}
	s.active = nil
	s.state = StateIdle

	captureErr := classifyStartError(err)
	s.lastError.Put(captureErr)
	s.logger.Error("Failed to start recording", "session", r.id, "error", err)
}

// Stop finalizes the recording and waits for the encoded result. If ctx
// ends first the result is delivered to the recording mailbox instead.
func (s *Session) Stop(ctx context.Context) (RecordingResult, error) {
	s.mu.Lock()
	r, err := s.beginFinalizeLocked()
	if err != nil {
		s.mu.Unlock()
		return RecordingResult{}, err
	}
	waiter := make(chan stopOutcome, 1)
	r.waiter = waiter
	r.recorder.Stop()
	s.mu.Unlock()

	select {
	case out := <-waiter:
		return out.result, out.err
	case <-ctx.Done():
	}

	s.mu.Lock()
	if r.waiter == waiter {
		r.waiter = nil
	}
	s.mu.Unlock()

	select {
	case out := <-waiter:
		return out.result, out.err
	default:
		return RecordingResult{}, fmt.Errorf("waiting for recording to finalize: %w", ctx.Err())
	}
}

// StopSync requests finalization without waiting. The result or error
// appears in the mailboxes.
func (s *Session) StopSync() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.beginFinalizeLocked()
	if err != nil {
		s.logger.Debug("StopSync ignored", "error", err)
		return false
	}
	r.waiter = nil
	r.recorder.Stop()
	return true
}

// beginFinalizeLocked freezes the duration display at the true stop time
// and moves the session to finalizing.
func (s *Session) beginFinalizeLocked() (*run, error) {
	r := s.active
	if r == nil || s.state != StateRecording || r.recorder == nil || r.recorder.State() == audio.RecorderInactive {
		return nil, ErrNoActiveRecording
	}

	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
	}
	if !r.startedAt.IsZero() {
		s.show(FormatDuration(s.elapsedSeconds(r)))
		r.startedAt = time.Time{}
	}
	s.state = StateFinalizing

	s.logger.Debug("Finalizing recording", "session", r.id, "chunks", len(r.chunks))
	return r, nil
}

// Cancel discards the current session, its chunks and both mailboxes. A
// finalize still in flight for the cancelled session delivers nothing.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastRecording.Clear()
	s.lastError.Clear()

	r := s.active
	if r == nil {
		return
	}
	r.cancelled = true
	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
	}
	r.startedAt = time.Time{}
	if r.stream != nil {
		r.stream.Stop()
		r.stream = nil
	}
	if r.recorder != nil && r.recorder.State() != audio.RecorderInactive {
		r.recorder.Stop()
	}
	r.recorder = nil
	r.chunks = nil
	r.size = 0
	if r.waiter != nil {
		r.waiter <- stopOutcome{err: ErrCancelled}
		r.waiter = nil
	}

	s.active = nil
	s.state = StateIdle
	s.logger.Info("Recording cancelled", "session", r.id)
}

func (s *Session) handleData(r *run, chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != r || r.cancelled {
		return
	}
	r.chunks = append(r.chunks, chunk)
	r.size += len(chunk)
}

// handleError records a mid-recording failure. The stream and recorder are
// left for an explicit Stop or Cancel.
func (s *Session) handleError(r *run, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != r || r.cancelled {
		return
	}
	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
	}
	r.startedAt = time.Time{}
	s.lastError.Put(CaptureError{
		Message: fmt.Sprintf("Recording error: %v", err),
		Err:     fmt.Errorf("%w: %w", ErrCapture, err),
	})
	s.logger.Error("Recording error", "session", r.id, "error", err)
}

func (s *Session) handleStop(r *run) {
	s.mu.Lock()
	if s.active != r || r.cancelled {
		s.mu.Unlock()
		s.logger.Debug("Ignoring stop from stale recorder", "session", r.id)
		return
	}
	if s.state != StateFinalizing {
		s.mu.Unlock()
		s.logger.Warn("Recorder stopped without a stop request", "session", r.id)
		return
	}

	blob := bytes.Join(r.chunks, nil)
	r.chunks = nil
	r.size = 0
	if r.stream != nil {
		r.stream.Stop()
		r.stream = nil
	}
	r.recorder = nil
	mimeType := r.mimeType
	s.mu.Unlock()

	data, encErr := s.encoder.Encode(blob)

	s.mu.Lock()
	defer s.mu.Unlock()
	if r.cancelled {
		s.logger.Debug("Discarding result of cancelled session", "session", r.id)
		return
	}

	var out stopOutcome
	if encErr != nil {
		out.err = fmt.Errorf("%w: %w", ErrEncodingRead, encErr)
	} else {
		out.result = RecordingResult{AudioData: data, MimeType: mimeType}
	}

	if s.active == r {
		s.active = nil
		s.state = StateIdle
	}

	if r.waiter != nil {
		r.waiter <- out
		r.waiter = nil
	} else if out.err != nil {
		s.lastError.Put(CaptureError{Message: "Failed to read recorded audio", Err: out.err})
	} else {
		s.lastRecording.Put(out.result)
	}

	if out.err != nil {
		s.logger.Error("Failed to encode recording", "session", r.id, "error", encErr)
	} else {
		s.logger.Info("Recording finished", "session", r.id, "mime_type", mimeType, "bytes", len(blob))
	}
}

func (s *Session) tick(r *run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != r || r.cancelled || s.state != StateRecording || r.startedAt.IsZero() {
		return
	}
	s.show(FormatDuration(s.elapsedSeconds(r)))
}

func (s *Session) elapsedSeconds(r *run) int {
	return int(s.now().Sub(r.startedAt) / time.Second)
}

// show hands text to the display sink; a misbehaving sink never breaks
// the session.
func (s *Session) show(text string) {
	if s.sink == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			s.logger.Warn("Display sink panicked", "panic", p)
		}
	}()
	s.sink.Show(text)
}

// LastRecording reads and clears the recording mailbox
func (s *Session) LastRecording() (RecordingResult, bool) {
	return s.lastRecording.Take()
}

// LastError reads and clears the error mailbox
func (s *Session) LastError() (string, bool) {
	e, ok := s.lastError.Take()
	return e.Message, ok
}

// LastErrorDetail is LastError with the classified error kept
func (s *Session) LastErrorDetail() (CaptureError, bool) {
	return s.lastError.Take()
}

// IsRecording reports whether a recorder exists and is recording
func (s *Session) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.active
	return r != nil && r.recorder != nil && r.recorder.State() == audio.RecorderRecording
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Info returns a snapshot of the current session
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := SessionInfo{State: s.state}
	r := s.active
	if r == nil {
		return info
	}
	info.ID = r.id
	info.MimeType = r.mimeType
	info.Recording = r.recorder != nil && r.recorder.State() == audio.RecorderRecording
	info.Chunks = len(r.chunks)
	info.Bytes = r.size
	if !r.startedAt.IsZero() {
		startedAt := r.startedAt
		info.StartedAt = &startedAt
		info.Elapsed = FormatDuration(s.elapsedSeconds(r))
	}
	return info
}
