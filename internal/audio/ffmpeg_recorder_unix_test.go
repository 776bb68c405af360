//go:build unix

package audio

import (
	"context"
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestFFmpegRecorder_RunsInOwnProcessGroup(t *testing.T) {
	d := &ffmpegDevices{ffmpegPath: fakeFFmpeg(t), list: fixedSources(Source{Name: "mic"})}
	stream, _ := d.GetUserMedia(context.Background(), Constraints{})

	var mu sync.Mutex
	var errs []error
	stopped := make(chan struct{})

	rec, err := d.NewRecorder(stream, "audio/webm", RecorderEvents{
		OnStop: func() { close(stopped) },
		OnError: func(err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("Expected recorder, got %v", err)
	}
	if err := rec.Start(20 * time.Millisecond); err != nil {
		t.Fatalf("Expected start, got %v", err)
	}

	ff := rec.(*ffmpegRecorder)
	ff.mutex.Lock()
	pid := ff.cmd.Process.Pid
	ff.mutex.Unlock()

	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		t.Fatalf("Failed to read process group: %v", err)
	}
	if pgid != pid {
		t.Errorf("Expected ffmpeg to lead its own process group, got pgid %d for pid %d", pgid, pid)
	}
	if pgid == syscall.Getpgrp() {
		t.Errorf("Expected ffmpeg outside the caller's process group %d", pgid)
	}

	// A terminal interrupt reaches the caller's group only; the capture keeps
	// running until the host stops it.
	time.Sleep(100 * time.Millisecond)
	if rec.State() != RecorderRecording {
		t.Fatalf("Expected recording state before Stop, got %s", rec.State())
	}

	rec.Stop()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected OnStop after Stop")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(errs) != 0 {
		t.Errorf("Expected no OnError for a host-initiated stop, got %v", errs)
	}
}
