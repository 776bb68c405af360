package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"
)

func fixedSources(sources ...Source) func(context.Context) ([]Source, error) {
	return func(context.Context) ([]Source, error) { return sources, nil }
}

func TestGetUserMedia_NoDevice(t *testing.T) {
	d := &ffmpegDevices{ffmpegPath: "ffmpeg", list: fixedSources()}

	_, err := d.GetUserMedia(context.Background(), Constraints{SampleRate: 44100})
	if !errors.Is(err, ErrNoDevice) {
		t.Errorf("Expected ErrNoDevice, got %v", err)
	}
}

func TestGetUserMedia_ListerErrorPropagates(t *testing.T) {
	d := &ffmpegDevices{ffmpegPath: "ffmpeg", list: func(context.Context) ([]Source, error) {
		return nil, classifyCommandError("pw-link", errors.New("exit status 1"), "Permission denied")
	}}

	_, err := d.GetUserMedia(context.Background(), Constraints{})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Expected ErrPermissionDenied, got %v", err)
	}
}

func TestStream_StopIsIdempotent(t *testing.T) {
	d := &ffmpegDevices{ffmpegPath: "ffmpeg", list: fixedSources(Source{Name: "mic"})}

	stream, err := d.GetUserMedia(context.Background(), Constraints{})
	if err != nil {
		t.Fatalf("Expected stream, got %v", err)
	}

	stream.Stop()
	stream.Stop()

	for _, track := range stream.Tracks() {
		if !track.Stopped() {
			t.Errorf("Expected track %s to be stopped", track.Label())
		}
	}

	if _, err := d.NewRecorder(stream, "audio/webm", RecorderEvents{}); err == nil {
		t.Errorf("Expected error creating a recorder over a released stream")
	}
}

func TestNewRecorder_RejectsUnsupportedEncoding(t *testing.T) {
	d := &ffmpegDevices{ffmpegPath: "ffmpeg", list: fixedSources(Source{Name: "mic"})}
	stream, _ := d.GetUserMedia(context.Background(), Constraints{})

	if d.IsTypeSupported("audio/mp4") {
		t.Errorf("Expected audio/mp4 to be unsupported")
	}
	if _, err := d.NewRecorder(stream, "audio/mp4", RecorderEvents{}); err == nil {
		t.Errorf("Expected error for unsupported encoding")
	}
}

// fakeFFmpeg writes a script that prints a payload and exits cleanly on SIGINT
func fakeFFmpeg(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\ntrap 'printf tail; exit 0' INT\nprintf head\nwhile true; do sleep 0.05; done\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("Failed to write fake ffmpeg: %v", err)
	}
	return path
}

func TestFFmpegRecorder_StopFlushesBeforeOnStop(t *testing.T) {
	d := &ffmpegDevices{ffmpegPath: fakeFFmpeg(t), list: fixedSources(Source{Name: "mic"})}
	stream, _ := d.GetUserMedia(context.Background(), Constraints{SampleRate: 44100})

	var mu sync.Mutex
	var received []byte
	stopped := make(chan struct{})

	rec, err := d.NewRecorder(stream, "audio/webm", RecorderEvents{
		OnData: func(chunk []byte) {
			mu.Lock()
			received = append(received, chunk...)
			mu.Unlock()
		},
		OnStop:  func() { close(stopped) },
		OnError: func(err error) { t.Errorf("Unexpected OnError: %v", err) },
	})
	if err != nil {
		t.Fatalf("Expected recorder, got %v", err)
	}

	if err := rec.Start(20 * time.Millisecond); err != nil {
		t.Fatalf("Expected start, got %v", err)
	}
	if rec.State() != RecorderRecording {
		t.Errorf("Expected recording state, got %s", rec.State())
	}

	time.Sleep(150 * time.Millisecond)
	rec.Stop()
	if rec.State() != RecorderInactive {
		t.Errorf("Expected inactive state right after Stop, got %s", rec.State())
	}

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected OnStop after Stop")
	}

	mu.Lock()
	defer mu.Unlock()
	if string(received) != "headtail" {
		t.Errorf("Expected all output delivered before OnStop, got %q", received)
	}
}
