package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

const stopTimeout = 5 * time.Second

// ffmpegRecorder records a deviceStream through an ffmpeg subprocess that
// writes the encoded container to stdout.
type ffmpegRecorder struct {
	ffmpegPath string
	stream     *deviceStream
	mimeType   string
	codecArgs  []string
	events     RecorderEvents

	mutex         sync.Mutex
	state         RecorderState
	stopRequested bool
	cmd           *exec.Cmd
	stderrBuf     bytes.Buffer
	exited        chan struct{}
}

func newFFmpegRecorder(ffmpegPath string, stream *deviceStream, mimeType string, codecArgs []string, events RecorderEvents) *ffmpegRecorder {
	return &ffmpegRecorder{
		ffmpegPath: ffmpegPath,
		stream:     stream,
		mimeType:   mimeType,
		codecArgs:  codecArgs,
		events:     events,
		state:      RecorderInactive,
	}
}

func (r *ffmpegRecorder) MimeType() string { return r.mimeType }

func (r *ffmpegRecorder) State() RecorderState {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.state
}

// buildArgs constructs the ffmpeg command line for the stream constraints
func (r *ffmpegRecorder) buildArgs() []string {
	logLevel := os.Getenv("FFMPEG_LOGLEVEL")
	if logLevel == "" {
		logLevel = "error"
	}

	args := []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", logLevel,
		"-f", "pulse",
		"-i", r.stream.source,
		"-ac", "1",
	}

	if r.stream.constraints.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(r.stream.constraints.SampleRate))
	}
	if r.stream.constraints.NoiseSuppression {
		args = append(args, "-af", "afftdn")
	}

	args = append(args, r.codecArgs...)
	return append(args, "pipe:1")
}

// Start launches ffmpeg and emits buffered output every timeslice
func (r *ffmpegRecorder) Start(timeslice time.Duration) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.cmd != nil {
		return fmt.Errorf("recorder already started")
	}
	if r.stream.released() {
		return fmt.Errorf("stream %s has already been released", r.stream.ID())
	}
	if timeslice <= 0 {
		timeslice = time.Second
	}

	args := r.buildArgs()
	slog.Info("Starting ffmpeg capture", "command", r.ffmpegPath+" "+strings.Join(args, " "))

	cmd := exec.Command(r.ffmpegPath, args...)
	cmd.Stderr = &r.stderrBuf
	// Only the interrupt sent by Stop may end the capture, not the
	// terminal's Ctrl+C delivered to the whole foreground group.
	detachProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("ffmpeg not found at %q: %w", r.ffmpegPath, err)
		}
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	r.cmd = cmd
	r.state = RecorderRecording
	r.exited = make(chan struct{})

	go r.pump(stdout, timeslice)
	return nil
}

// pump forwards stdout in timeslice-sized chunks. The final flush is sent
// before OnStop.
func (r *ffmpegRecorder) pump(stdout io.Reader, timeslice time.Duration) {
	reads := make(chan []byte, 16)
	go func() {
		defer close(reads)
		buf := make([]byte, 32*1024)
		for {
			n, err := stdout.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				reads <- chunk
			}
			if err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(timeslice)
	defer ticker.Stop()

	var pending bytes.Buffer
	flush := func() {
		if pending.Len() == 0 {
			return
		}
		chunk := make([]byte, pending.Len())
		copy(chunk, pending.Bytes())
		pending.Reset()
		if r.events.OnData != nil {
			r.events.OnData(chunk)
		}
	}

	for {
		select {
		case data, ok := <-reads:
			if !ok {
				waitErr := r.cmd.Wait()
				close(r.exited)
				flush()
				r.finish(waitErr)
				return
			}
			pending.Write(data)
		case <-ticker.C:
			flush()
		}
	}
}

// finish reports the end of the process through the recorder events
func (r *ffmpegRecorder) finish(waitErr error) {
	r.mutex.Lock()
	requested := r.stopRequested
	r.state = RecorderInactive
	r.mutex.Unlock()

	if requested {
		if waitErr != nil && !isInterruptExit(waitErr) {
			slog.Debug("ffmpeg exited with error after stop", "error", waitErr, "stderr", r.stderrBuf.String())
		} else {
			slog.Debug("ffmpeg exited after stop")
		}
	} else if r.events.OnError != nil {
		if waitErr == nil {
			waitErr = errors.New("capture ended unexpectedly")
		}
		r.events.OnError(classifyCommandError("ffmpeg", waitErr, r.stderrBuf.String()))
	}

	if r.events.OnStop != nil {
		r.events.OnStop()
	}
}

// Stop sends SIGINT so ffmpeg finalizes the container, with a kill fallback
func (r *ffmpegRecorder) Stop() {
	r.mutex.Lock()
	if r.state == RecorderInactive || r.cmd == nil {
		r.mutex.Unlock()
		return
	}
	r.state = RecorderInactive
	r.stopRequested = true
	process := r.cmd.Process
	exited := r.exited
	r.mutex.Unlock()

	slog.Debug("Sending SIGINT to ffmpeg process")
	if err := process.Signal(os.Interrupt); err != nil {
		slog.Debug("Failed to send interrupt to ffmpeg, falling back to SIGKILL", "error", err)
		process.Kill()
		return
	}

	go func() {
		select {
		case <-exited:
		case <-time.After(stopTimeout):
			slog.Warn("ffmpeg did not exit within timeout, force killing")
			process.Kill()
		}
	}()
}

// isInterruptExit reports exits caused by our own interrupt signal
func isInterruptExit(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	// Exit code 255 is ffmpeg's graceful exit after an interrupt
	if exitErr.ExitCode() == 255 {
		return true
	}
	if exitErr.ProcessState != nil {
		state := exitErr.ProcessState.String()
		return state == "signal: interrupt" || state == "signal: killed"
	}
	return false
}
