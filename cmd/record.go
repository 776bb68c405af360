package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/audiolibrelab/voicecapture/internal/capture"
	"github.com/audiolibrelab/voicecapture/internal/display"
	"github.com/audiolibrelab/voicecapture/internal/service"

	"github.com/spf13/cobra"
)

const (
	finalizeTimeout   = 15 * time.Second
	errorPollInterval = 500 * time.Millisecond
)

type recordOptions struct {
	sync        bool
	pollTimeout time.Duration
	jsonOutput  bool
	outputDir   string
}

var recordCmd = &cobra.Command{
	Use:   "record [name]",
	Short: "Record the microphone until Ctrl+C",
	Long: `Record the microphone with echo cancellation and noise suppression.
The elapsed time is shown while recording. Press Ctrl+C to stop; the
recording is written to the output directory, or printed as a JSON
payload with --json.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var name string
		if len(args) == 1 {
			name = args[0]
		}
		slog.Info("Record command started", "name", name)

		path, err := recordOnce(cmd.Context(), name, recordOptionsFromFlags(cmd))
		if err != nil {
			return err
		}

		return executePipeline(cmd, name, path, 'r')
	},
}

func init() {
	addRecordFlags(recordCmd)
}

func addRecordFlags(c *cobra.Command) {
	c.Flags().Bool("sync", false, "stop without waiting and poll for the result")
	c.Flags().Duration("poll-timeout", finalizeTimeout, "how long --sync polls for the result")
	c.Flags().Bool("json", false, "print the recording payload instead of writing a file")
	c.Flags().StringP("output", "o", "", "output directory (overrides config)")
}

func recordOptionsFromFlags(c *cobra.Command) recordOptions {
	syncStop, _ := c.Flags().GetBool("sync")
	pollTimeout, _ := c.Flags().GetDuration("poll-timeout")
	jsonOutput, _ := c.Flags().GetBool("json")
	outputDir, _ := c.Flags().GetString("output")
	return recordOptions{sync: syncStop, pollTimeout: pollTimeout, jsonOutput: jsonOutput, outputDir: outputDir}
}

// recordOnce runs one recording session and returns the saved file path,
// or an empty path when the payload was printed.
func recordOnce(ctx context.Context, name string, opts recordOptions) (string, error) {
	if opts.outputDir != "" {
		cfg.Output.Directory = opts.outputDir
	}

	svc := service.New(cfg, display.NewTerminalSink(os.Stderr))

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !svc.Start(sigCtx) {
		if msg, ok := svc.GetLastError(); ok {
			return "", errors.New(msg)
		}
		return "", fmt.Errorf("recording did not start")
	}

	fmt.Fprintln(os.Stderr, "Recording... Press Ctrl+C to stop")
	if err := waitForInterrupt(sigCtx, svc); err != nil {
		fmt.Fprintln(os.Stderr)
		svc.Cancel()
		return "", err
	}
	fmt.Fprintln(os.Stderr)
	slog.Info("Stopping recording...")

	var result capture.RecordingResult
	var err error
	if opts.sync {
		if !svc.StopSync() {
			return "", fmt.Errorf("failed to stop recording: %w", capture.ErrNoActiveRecording)
		}
		result, err = pollLastRecording(ctx, svc, opts.pollTimeout)
	} else {
		stopCtx, cancel := context.WithTimeout(ctx, finalizeTimeout)
		result, err = svc.Stop(stopCtx)
		cancel()
	}
	if err != nil {
		return "", err
	}

	if opts.jsonOutput {
		payload, err := result.Payload()
		if err != nil {
			return "", err
		}
		fmt.Println(payload)
		return "", nil
	}

	path, err := svc.SaveRecording(name, result)
	if err != nil {
		return "", err
	}
	fmt.Printf("Saved: %s\n", path)
	return path, nil
}

// waitForInterrupt blocks until ctx is done. A recorder error reported
// while waiting ends the recording early.
func waitForInterrupt(ctx context.Context, svc service.Service) error {
	ticker := time.NewTicker(errorPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if msg, ok := svc.GetLastError(); ok {
				return errors.New(msg)
			}
		}
	}
}

// pollLastRecording polls the mailboxes until a result or error arrives
func pollLastRecording(ctx context.Context, svc service.Service, timeout time.Duration) (capture.RecordingResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if result, ok := svc.GetLastRecording(); ok {
			return result, nil
		}
		if msg, ok := svc.GetLastError(); ok {
			return capture.RecordingResult{}, errors.New(msg)
		}
		select {
		case <-ctx.Done():
			return capture.RecordingResult{}, fmt.Errorf("no recording after %s: %w", timeout, ctx.Err())
		case <-ticker.C:
		}
	}
}
