package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/audiolibrelab/voicecapture/internal/audio"
	"github.com/audiolibrelab/voicecapture/internal/capture"
	"github.com/audiolibrelab/voicecapture/internal/config"
)

// ErrBusy is returned when configuration changes while a recording is active
var ErrBusy = errors.New("a recording is in progress")

// Service is the capability surface exposed to hosts
type Service interface {
	// Recording operations
	Start(ctx context.Context) bool
	Stop(ctx context.Context) (capture.RecordingResult, error)
	StopSync() bool
	Cancel()
	GetLastRecording() (capture.RecordingResult, bool)
	GetLastError() (string, bool)
	IsRecording() bool
	Status() Status

	// Configuration operations
	Reload(cfg *config.Config) error
	GetConfig() *config.Config

	// Information operations
	ListSources(ctx context.Context) ([]audio.Source, error)

	// Recording files
	SaveRecording(name string, result capture.RecordingResult) (string, error)
	ListRecordings() ([]RecordingFile, error)
}

// Status combines the session snapshot with host details
type Status struct {
	Session capture.SessionInfo `json:"session"`
	Backend string              `json:"backend"`
	Output  string              `json:"output_dir"`
}

// RecordingFile describes a saved recording
type RecordingFile struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	SizeHuman string    `json:"size_human"`
	ModTime   time.Time `json:"mod_time"`
}

// VoiceCaptureService is the main service implementation
type VoiceCaptureService struct {
	mu      sync.RWMutex
	cfg     *config.Config
	backend audio.AudioBackend
	session *capture.Session
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a service over the backend selected by cfg
func New(cfg *config.Config, sink capture.DisplaySink) *VoiceCaptureService {
	return NewWithBackend(cfg, audio.NewBackend(cfg), sink)
}

// NewWithBackend creates a service over an explicit backend
func NewWithBackend(cfg *config.Config, backend audio.AudioBackend, sink capture.DisplaySink, options ...capture.Option) *VoiceCaptureService {
	logger := slog.Default().With("component", "service")
	if sink != nil {
		options = append([]capture.Option{capture.WithDisplay(sink)}, options...)
	}
	return &VoiceCaptureService{
		cfg:     cfg,
		backend: backend,
		session: capture.NewSession(backend, backend, SessionOptions(cfg), options...),
		logger:  logger,
		now:     time.Now,
	}
}

// SessionOptions maps configuration onto capture options
func SessionOptions(cfg *config.Config) capture.Options {
	return capture.Options{
		Constraints: audio.Constraints{
			EchoCancellation: cfg.EchoCancellation(),
			NoiseSuppression: cfg.NoiseSuppression(),
			SampleRate:       cfg.Capture.SampleRate,
			Device:           cfg.Capture.Device,
		},
		Encodings:    cfg.Capture.Encodings,
		Timeslice:    cfg.Timeslice(),
		TickInterval: cfg.TickInterval(),
		SettleDelay:  cfg.SettleDelay(),
	}
}

// Start begins a recording. The outcome of a failed start is available
// from GetLastError.
func (s *VoiceCaptureService) Start(ctx context.Context) bool {
	s.logger.Debug("Service.Start called")
	return s.session.Start(ctx)
}

// Stop finalizes the recording and returns its payload
func (s *VoiceCaptureService) Stop(ctx context.Context) (capture.RecordingResult, error) {
	result, err := s.session.Stop(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to stop recording: %w", err)
	}
	return result, nil
}

// StopSync requests a stop; the result arrives in GetLastRecording
func (s *VoiceCaptureService) StopSync() bool { return s.session.StopSync() }

func (s *VoiceCaptureService) Cancel() { s.session.Cancel() }

// GetLastRecording reads and clears the recording mailbox
func (s *VoiceCaptureService) GetLastRecording() (capture.RecordingResult, bool) {
	return s.session.LastRecording()
}

// GetLastError reads and clears the error mailbox
func (s *VoiceCaptureService) GetLastError() (string, bool) {
	return s.session.LastError()
}

func (s *VoiceCaptureService) IsRecording() bool { return s.session.IsRecording() }

// Status returns the session snapshot and host details
func (s *VoiceCaptureService) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Session: s.session.Info(),
		Backend: string(s.backend.GetType()),
		Output:  s.cfg.Output.Directory,
	}
}

// Reload applies cfg to the next recording. It is refused while a session
// is active so the running recorder keeps its settings.
func (s *VoiceCaptureService) Reload(cfg *config.Config) error {
	return s.reload(cfg, audio.NewBackend(cfg))
}

func (s *VoiceCaptureService) reload(cfg *config.Config, backend audio.AudioBackend) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.session.Configure(backend, backend, SessionOptions(cfg)); err != nil {
		if errors.Is(err, capture.ErrAlreadyActive) {
			return ErrBusy
		}
		return err
	}
	s.cfg = cfg
	s.backend = backend
	s.logger.Info("Configuration reloaded", "backend", backend.GetType())
	return nil
}

func (s *VoiceCaptureService) GetConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *VoiceCaptureService) ListSources(ctx context.Context) ([]audio.Source, error) {
	s.mu.RLock()
	backend := s.backend
	s.mu.RUnlock()
	return backend.ListSources(ctx)
}

// SaveRecording writes the decoded audio into the output directory. An
// empty name is replaced with a timestamp.
func (s *VoiceCaptureService) SaveRecording(name string, result capture.RecordingResult) (string, error) {
	data, err := result.Decode()
	if err != nil {
		return "", err
	}

	outputDir := s.GetConfig().Output.Directory
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	base := CleanFileName(name)
	if base == "" {
		base = "recording-" + s.now().Format("20060102-150405")
	}
	path := filepath.Join(outputDir, base+"."+ExtensionForMimeType(result.MimeType))

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write recording: %w", err)
	}
	s.logger.Info("Recording saved", "path", path, "bytes", len(data))
	return path, nil
}

// ListRecordings returns saved recordings, newest first
func (s *VoiceCaptureService) ListRecordings() ([]RecordingFile, error) {
	outputDir := s.GetConfig().Output.Directory

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read recordings directory: %w", err)
	}

	var files []RecordingFile
	for _, entry := range entries {
		if entry.IsDir() || !isRecordingFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			s.logger.Warn("Failed to get file info", "file", entry.Name(), "error", err)
			continue
		}
		files = append(files, RecordingFile{
			Name:      entry.Name(),
			Path:      filepath.Join(outputDir, entry.Name()),
			Size:      info.Size(),
			SizeHuman: formatBytes(info.Size()),
			ModTime:   info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files, nil
}

// ExtensionForMimeType picks a file extension for a recorder MIME type
func ExtensionForMimeType(mimeType string) string {
	base, _, _ := strings.Cut(strings.ToLower(mimeType), ";")
	switch strings.TrimSpace(base) {
	case "audio/webm":
		return "webm"
	case "audio/ogg":
		return "ogg"
	case "audio/wav", "audio/wave":
		return "wav"
	case "audio/mp4":
		return "m4a"
	default:
		return "bin"
	}
}

func isRecordingFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".webm", ".ogg", ".wav", ".m4a":
		return true
	}
	return false
}

// CleanFileName turns a recording name into a safe file name. Special
// characters are dropped and spaces become underscores.
func CleanFileName(name string) string {
	var result strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == ' ' || r == '-' || r == '_' {
			result.WriteRune(r)
		}
	}
	return strings.ReplaceAll(strings.TrimSpace(result.String()), " ", "_")
}

// formatBytes formats bytes in human readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
